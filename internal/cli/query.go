package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yomia4825/Tokenized-Decentralized-Garden-Mulch-Distribution-Networks/internal/engine"
	"github.com/yomia4825/Tokenized-Decentralized-Garden-Mulch-Distribution-Networks/internal/ir"
	"github.com/yomia4825/Tokenized-Decentralized-Garden-Mulch-Distribution-Networks/internal/ledger"
)

// QueryOptions holds flags for the query command.
type QueryOptions struct {
	*RootOptions
	LedgerOptions
	Args   string
	Caller string
}

// NewQueryCommand creates the query command.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "query <action>",
		Short: "Evaluate a read-only action against the ledger",
		Long: `Evaluate a read-only action against state rebuilt from the log.

Queries are never logged. Mutating actions are refused; use invoke.

Examples:
  mulchledger query Garden.get --db ./ledger.db --args '{"garden_id":1}'
  mulchledger query RateModel.expectedLifespan --db ./ledger.db --args '{"mulch_type":"cedar","initial_depth":50}'
  mulchledger query Notification.needsReplacement --db ./ledger.db --args '{"garden_id":1}' --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(opts, args[0], cmd)
		},
	}

	addLedgerFlags(cmd, &opts.LedgerOptions)
	cmd.Flags().StringVar(&opts.Args, "args", "{}", "action arguments as a JSON object")
	cmd.Flags().StringVar(&opts.Caller, "caller", "", "identity submitting the query")

	return cmd
}

func runQuery(opts *QueryOptions, action string, cmd *cobra.Command) error {
	ctx := cmdContext(cmd)
	formatter := newFormatter(opts.RootOptions, cmd)

	ref := ir.ActionRef(action)
	if readOnly, known := engine.Actions()[ref]; known && !readOnly {
		msg := fmt.Sprintf("%s mutates the ledger; use invoke", action)
		_ = formatter.Error(ErrCodeNotReadOnly, msg, nil)
		return NewExitError(ExitCommandError, msg)
	}

	args, err := parseArgs(opts.Args)
	if err != nil {
		return err
	}

	eng, closeFn, err := openEngine(&opts.LedgerOptions)
	if err != nil {
		return err
	}
	defer closeFn()
	if _, err := resume(ctx, eng); err != nil {
		return err
	}

	outcomes, err := eng.Invoke(ctx, engine.Request{
		Action: ref,
		Args:   args,
		Caller: ledger.Identity(opts.Caller),
		Height: requestHeight(0, eng),
	})
	return reportOutcomes(formatter, outcomes, err)
}
