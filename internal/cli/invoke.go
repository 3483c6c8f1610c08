package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/yomia4825/Tokenized-Decentralized-Garden-Mulch-Distribution-Networks/internal/engine"
	"github.com/yomia4825/Tokenized-Decentralized-Garden-Mulch-Distribution-Networks/internal/ir"
	"github.com/yomia4825/Tokenized-Decentralized-Garden-Mulch-Distribution-Networks/internal/ledger"
)

// InvokeOptions holds flags for the invoke command.
type InvokeOptions struct {
	*RootOptions
	LedgerOptions
	Args   string
	Caller string
	Height int64
	Flow   string
}

// OutcomeReport is the JSON payload of invoke, query and run.
type OutcomeReport struct {
	Outcomes []engine.Outcome `json:"outcomes"`
}

// NewInvokeCommand creates the invoke command.
func NewInvokeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InvokeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "invoke <action>",
		Short: "Apply one request to the ledger",
		Long: `Apply one request to the ledger.

State is rebuilt by replaying the log, the request is applied and logged,
and follow-on rules run in the same flow. The submitted request's
completion is printed first, then its follow-ons.

Exit codes:
  0 - The request completed with Success
  1 - The request was rejected, or follow-on evaluation stopped
  2 - Command error (bad flags, unknown action, unreadable log)

Examples:
  mulchledger invoke Garden.register --db ./ledger.db --caller gale \
    --args '{"location":"north bed","mulch_type":"cedar-chips","initial_depth":50,"application_date":1,"garden_size":10}'
  mulchledger invoke Booking.book --db ./ledger.db --caller casey --height 12 \
    --args '{"provider_id":1,"garden_size":10,"service_type":"mulch-application","scheduled_date":20,"estimated_hours":2,"payment_amount":120}'`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInvoke(opts, args[0], cmd)
		},
	}

	addLedgerFlags(cmd, &opts.LedgerOptions)
	cmd.Flags().StringVar(&opts.Args, "args", "{}", "action arguments as a JSON object")
	cmd.Flags().StringVar(&opts.Caller, "caller", "", "identity submitting the request (required)")
	_ = cmd.MarkFlagRequired("caller")
	cmd.Flags().Int64Var(&opts.Height, "height", 0, "block height (defaults to the log's height)")
	cmd.Flags().StringVar(&opts.Flow, "flow", "", "flow token (generated when omitted)")

	return cmd
}

func runInvoke(opts *InvokeOptions, action string, cmd *cobra.Command) error {
	ctx := cmdContext(cmd)
	formatter := newFormatter(opts.RootOptions, cmd)

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
		Action:    ir.ActionRef(action),
		Args:      args,
		Caller:    ledger.Identity(opts.Caller),
		Height:    requestHeight(opts.Height, eng),
		FlowToken: opts.Flow,
	})
	return reportOutcomes(formatter, outcomes, err)
}

// requestHeight defaults an unset height to the log's height. Height 0 is
// never valid for a request.
func requestHeight(height int64, eng *engine.Engine) int64 {
	if height > 0 {
		return height
	}
	return max(eng.Height(), 1)
}

// reportOutcomes prints the outcomes of one request and maps the result to
// an exit code.
func reportOutcomes(f *OutputFormatter, outcomes []engine.Outcome, invokeErr error) error {
	if invokeErr != nil && len(outcomes) == 0 {
		_ = f.Error(describeError(invokeErr), invokeErr.Error(), nil)
		return WrapExitError(ExitCommandError, "request failed", invokeErr)
	}

	root := outcomes[0].Completion
	report := OutcomeReport{Outcomes: outcomes}

	var code, message string
	switch {
	case invokeErr != nil:
		code, message = describeError(invokeErr), invokeErr.Error()
	case !root.Succeeded():
		code, message = ErrCodeRejected, fmt.Sprintf("%s: %s", root.OutputCase, completionMessage(root))
	}

	if f.JSON() {
		if code == "" {
			return f.Success(report)
		}
		if err := f.Failure(code, message, report); err != nil {
			return err
		}
	} else {
		writeOutcomes(f.Writer, outcomes)
		if code != "" {
			fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
		}
	}

	if code == "" {
		return nil
	}
	return NewExitError(ExitFailure, message)
}

func writeOutcomes(w io.Writer, outcomes []engine.Outcome) {
	for _, oc := range outcomes {
		writeOutcome(w, oc)
	}
}

func writeOutcome(w io.Writer, oc engine.Outcome) {
	inv, comp := oc.Invocation, oc.Completion
	seq := "query"
	if oc.Logged {
		seq = fmt.Sprintf("%d", inv.Seq)
	}
	prefix := ""
	if oc.RuleID != "" {
		prefix = fmt.Sprintf("  via %s: ", oc.RuleID)
	}
	fmt.Fprintf(w, "%s[%s] %s -> %s %s\n", prefix, seq, inv.Action, comp.OutputCase, formatObject(comp.Result))
}

func completionMessage(comp ir.Completion) string {
	if msg, ok := comp.Result["message"].(ir.IRString); ok {
		return string(msg)
	}
	return ""
}
