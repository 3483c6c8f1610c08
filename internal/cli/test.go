package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/yomia4825/Tokenized-Decentralized-Garden-Mulch-Distribution-Networks/internal/harness"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Update bool   // regenerate golden files
	Filter string // scenario filter (glob pattern)
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <scenarios-dir>",
		Short: "Run scenario conformance tests",
		Long: `Run YAML scenarios against a fresh in-memory ledger each.

Each scenario's expectations and assertions are checked, and its trace is
compared with golden/<name>.golden next to it when that file exists.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, bad filter)

Examples:
  mulchledger test ./scenarios
  mulchledger test ./scenarios --filter "booking_*"
  mulchledger test ./scenarios --update
  mulchledger test ./scenarios --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by glob pattern")

	return cmd
}

func runTests(opts *TestOptions, scenariosDir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	if info, err := os.Stat(scenariosDir); err != nil || !info.IsDir() {
		msg := fmt.Sprintf("scenarios directory not found: %s", scenariosDir)
		_ = formatter.Error(ErrCodeNotFound, msg, nil)
		return NewExitError(ExitCommandError, msg)
	}

	suite, err := harness.RunSuite(cmdContext(cmd), scenariosDir, harness.SuiteOptions{
		Filter: opts.Filter,
		Update: opts.Update,
	})
	if err != nil {
		_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to run scenarios", err)
	}

	if suite.Total == 0 {
		if formatter.JSON() {
			return formatter.Success(suite)
		}
		fmt.Fprintln(formatter.Writer, "No scenarios found.")
		return nil
	}

	if formatter.JSON() {
		if suite.Failed == 0 {
			return formatter.Success(suite)
		}
		if err := formatter.Failure(ErrCodeScenarioFails, fmt.Sprintf("%d scenario(s) failed", suite.Failed), suite); err != nil {
			return err
		}
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", suite.Failed))
	}
	return outputTestText(formatter.Writer, suite)
}

func outputTestText(w io.Writer, suite *harness.SuiteResult) error {
	for _, sr := range suite.Scenarios {
		if sr.Pass {
			if sr.Golden == harness.GoldenUpdated {
				fmt.Fprintf(w, "✓ %s (golden updated)\n", sr.Name)
			} else {
				fmt.Fprintf(w, "✓ %s\n", sr.Name)
			}
			continue
		}
		fmt.Fprintf(w, "✗ %s\n", sr.Name)
		for _, msg := range sr.Errors {
			fmt.Fprintf(w, "  %s\n", msg)
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Test Summary: %d passed, %d failed, %d total\n", suite.Passed, suite.Failed, suite.Total)

	if suite.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", suite.Failed))
	}
	fmt.Fprintln(w, "✓ All scenarios passed")
	return nil
}
