package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/yomia4825/Tokenized-Decentralized-Garden-Mulch-Distribution-Networks/internal/config"
	"github.com/yomia4825/Tokenized-Decentralized-Garden-Mulch-Distribution-Networks/internal/engine"
	"github.com/yomia4825/Tokenized-Decentralized-Garden-Mulch-Distribution-Networks/internal/ir"
	"github.com/yomia4825/Tokenized-Decentralized-Garden-Mulch-Distribution-Networks/internal/store"
)

// LedgerOptions are the flags of commands that open the transition log.
type LedgerOptions struct {
	Database string
	Config   string

	// FlowGenerator overrides the flow token generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	FlowGenerator engine.FlowTokenGenerator
}

func addLedgerFlags(cmd *cobra.Command, opts *LedgerOptions) {
	cmd.Flags().StringVar(&opts.Database, "db", "", "transition log: SQLite path, or DSN of the configured driver (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Config, "config", "", "CUE configuration file (built-in defaults when omitted)")
}

// loadConfig loads the configuration file, or the defaults when path is
// empty. Environment overrides apply in both cases.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default()
	}
	return config.Load(path)
}

// openEngine loads the configuration, opens the log named by --db and
// builds an engine over it. The engine has not read the log; resume does.
// The returned close function closes the store.
func openEngine(opts *LedgerOptions) (*engine.Engine, func(), error) {
	cfg, err := loadConfig(opts.Config)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	cfg.Storage.DSN = opts.Database

	slog.Debug("opening transition log", "driver", cfg.Storage.Driver, "dsn", opts.Database)
	st, err := cfg.OpenStore()
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	closeFn := func() {
		if closeErr := st.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}

	flowGen := opts.FlowGenerator
	if flowGen == nil {
		flowGen = engine.UUIDv7Generator{}
	}
	eng, err := cfg.NewEngine(st, flowGen)
	if err != nil {
		closeFn()
		return nil, nil, WrapExitError(ExitCommandError, "failed to create engine", err)
	}
	return eng, closeFn, nil
}

// resume rebuilds the engine's state from its log. A log that does not
// replay is a failure, not a command error: the database is readable but
// cannot be trusted.
func resume(ctx context.Context, eng *engine.Engine) (*engine.ReplayReport, error) {
	report, err := eng.Rebuild(ctx)
	if err != nil {
		if engine.IsReplayDiverged(err) {
			return nil, WrapExitError(ExitFailure, "log does not replay", err)
		}
		return nil, WrapExitError(ExitCommandError, "failed to rebuild state", err)
	}
	return report, nil
}

// parseArgs decodes the --args flag.
func parseArgs(raw string) (ir.IRObject, error) {
	if raw == "" {
		return ir.IRObject{}, nil
	}
	args, err := ir.ParseObject([]byte(raw))
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid --args JSON", err)
	}
	return args, nil
}

// openLog opens the log named by --db without building an engine.
func openLog(opts *LedgerOptions) (*store.Store, error) {
	cfg, err := loadConfig(opts.Config)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	cfg.Storage.DSN = opts.Database
	st, err := cfg.OpenStore()
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return st, nil
}

// describeError maps an engine error to a JSON error code.
func describeError(err error) string {
	var re *engine.RuntimeError
	if errors.As(err, &re) || engine.IsQuotaError(err) {
		return ErrCodeRuntime
	}
	return ErrCodeGeneric
}

func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func pluralize(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}
