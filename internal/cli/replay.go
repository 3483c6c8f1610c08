package cli

import (
	"fmt"
	"maps"
	"slices"

	"github.com/spf13/cobra"

	"github.com/yomia4825/Tokenized-Decentralized-Garden-Mulch-Distribution-Networks/internal/engine"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	LedgerOptions
}

// ReplayResult holds the replay report and the log's outcome counts.
type ReplayResult struct {
	*engine.ReplayReport
	Deterministic bool             `json:"deterministic"`
	Outcomes      map[string]int64 `json:"outcomes"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay the log and verify determinism",
		Long: `Replay the transition log from the genesis state and verify that every
logged completion is reproduced byte for byte.

The configuration must match the one the log was written with: the
genesis state (threshold, seed profiles, administrator) comes from it.

Exit codes:
  0 - Every transition reproduced
  1 - Determinism verification failed (divergences listed)
  2 - Command error (database not found, bad config, etc.)

Examples:
  mulchledger replay --db ./ledger.db
  mulchledger replay --db ./ledger.db --config ledger.cue --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, cmd)
		},
	}

	addLedgerFlags(cmd, &opts.LedgerOptions)

	return cmd
}

func runReplay(opts *ReplayOptions, cmd *cobra.Command) error {
	ctx := cmdContext(cmd)
	formatter := newFormatter(opts.RootOptions, cmd)

	eng, closeFn, err := openEngine(&opts.LedgerOptions)
	if err != nil {
		return err
	}
	defer closeFn()

	report, err := eng.Replay(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to replay log", err)
	}
	counts, err := eng.Store().OutcomeCounts(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to count outcomes", err)
	}

	result := ReplayResult{
		ReplayReport:  report,
		Deterministic: report.Deterministic(),
		Outcomes:      counts,
	}

	if formatter.JSON() {
		if result.Deterministic {
			return formatter.Success(result)
		}
		if err := formatter.Failure(ErrCodeDeterminism, "determinism verification failed", result); err != nil {
			return err
		}
		return NewExitError(ExitFailure, "determinism verification failed")
	}
	return outputReplayText(formatter, result)
}

func outputReplayText(f *OutputFormatter, result ReplayResult) error {
	w := f.Writer

	if result.Transitions == 0 {
		fmt.Fprintln(w, "No transitions in log.")
		return nil
	}

	fmt.Fprintf(w, "Replay Summary: %s\n", pluralize(result.Transitions, "transition"))
	fmt.Fprintf(w, "  Head seq:     %d\n", result.HeadSeq)
	fmt.Fprintf(w, "  Height:       %d\n", result.Height)
	fmt.Fprintf(w, "  State digest: %s\n", result.Digest)
	if f.Verbose {
		for _, name := range slices.Sorted(maps.Keys(result.Outcomes)) {
			fmt.Fprintf(w, "  %-20s %d\n", name+":", result.Outcomes[name])
		}
	}
	fmt.Fprintln(w)

	if result.Deterministic {
		fmt.Fprintln(w, "✓ All transitions verified deterministic")
		return nil
	}

	for _, d := range result.Divergences {
		fmt.Fprintf(w, "✗ seq %d %s (%s): %s\n", d.Seq, d.Action, truncateID(d.InvocationID), d.Reason)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "✗ Determinism verification failed")
	return NewExitError(ExitFailure, "determinism verification failed")
}
