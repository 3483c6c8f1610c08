package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yomia4825/Tokenized-Decentralized-Garden-Mulch-Distribution-Networks/internal/ir"
	"github.com/yomia4825/Tokenized-Decentralized-Garden-Mulch-Distribution-Networks/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	LedgerOptions
	FlowToken string
	Action    string // optional - filter to specific action
}

// TraceEvent represents a single event in the trace timeline.
type TraceEvent struct {
	Seq        int64       `json:"seq"`
	Type       string      `json:"type"` // "invocation" or "completion"
	ID         string      `json:"id"`
	Action     string      `json:"action,omitempty"`
	Args       ir.IRObject `json:"args,omitempty"`
	Caller     string      `json:"caller,omitempty"`
	Height     int64       `json:"height,omitempty"`
	OutputCase string      `json:"output_case,omitempty"`
	Result     ir.IRObject `json:"result,omitempty"`
}

// TraceResult holds the complete trace output.
type TraceResult struct {
	FlowToken string       `json:"flow_token"`
	Timeline  []TraceEvent `json:"timeline"`
	Stats     TraceStats   `json:"stats"`
}

// TraceStats holds summary statistics for the trace.
type TraceStats struct {
	TotalEvents int `json:"total_events"`
	Transitions int `json:"transitions"`
	Rejected    int `json:"rejected"`
	Callers     int `json:"callers"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Show the timeline of a flow",
		Long: `Show the logged transitions of one flow in seq order.

A flow is a submitted request and the follow-on transitions its rules
produced. Each invocation is listed with its completion.

Examples:
  mulchledger trace --db ./ledger.db --flow 0192f3a4-...
  mulchledger trace --db ./ledger.db --flow batch-7 --action Notification.checkAndNotify
  mulchledger trace --db ./ledger.db --flow batch-7 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	addLedgerFlags(cmd, &opts.LedgerOptions)
	cmd.Flags().StringVar(&opts.FlowToken, "flow", "", "flow token to trace (required)")
	_ = cmd.MarkFlagRequired("flow")
	cmd.Flags().StringVar(&opts.Action, "action", "", "filter to one action, e.g. Booking.book")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := cmdContext(cmd)
	formatter := newFormatter(opts.RootOptions, cmd)

	st, err := openLog(&opts.LedgerOptions)
	if err != nil {
		return err
	}
	defer st.Close()

	transitions, err := st.ReadFlow(ctx, opts.FlowToken)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read flow", err)
	}

	if len(transitions) == 0 {
		if formatter.JSON() {
			return formatter.Success(TraceResult{
				FlowToken: opts.FlowToken,
				Timeline:  []TraceEvent{},
			})
		}
		fmt.Fprintf(formatter.Writer, "No events found for flow: %s\n", opts.FlowToken)
		return nil
	}

	result := buildTrace(opts.FlowToken, transitions, opts.Action)
	if formatter.JSON() {
		return formatter.Success(result)
	}
	outputTraceText(formatter.Writer, result, opts.Verbose)
	return nil
}

// buildTrace converts logged transitions to a timeline. When actionFilter
// is set, only that action's invocations and their completions are kept;
// stats always describe the whole flow.
func buildTrace(flowToken string, transitions []store.Transition, actionFilter string) TraceResult {
	result := TraceResult{FlowToken: flowToken, Timeline: []TraceEvent{}}
	callers := make(map[string]bool)

	for _, t := range transitions {
		inv, comp := t.Invocation, t.Completion
		result.Stats.Transitions++
		if !comp.Succeeded() {
			result.Stats.Rejected++
		}
		callers[inv.Caller] = true

		if actionFilter != "" && string(inv.Action) != actionFilter {
			continue
		}
		result.Timeline = append(result.Timeline,
			TraceEvent{
				Seq:    inv.Seq,
				Type:   "invocation",
				ID:     inv.ID,
				Action: string(inv.Action),
				Args:   inv.Args,
				Caller: inv.Caller,
				Height: inv.Height,
			},
			TraceEvent{
				Seq:        comp.Seq,
				Type:       "completion",
				ID:         comp.ID,
				OutputCase: comp.OutputCase,
				Result:     comp.Result,
			},
		)
	}

	result.Stats.TotalEvents = len(result.Timeline)
	result.Stats.Callers = len(callers)
	return result
}

func outputTraceText(w io.Writer, result TraceResult, verbose bool) {
	fmt.Fprintf(w, "Trace for Flow: %s\n", result.FlowToken)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Timeline ===")
	if len(result.Timeline) == 0 {
		fmt.Fprintln(w, "  (no matching events)")
	}
	for _, event := range result.Timeline {
		formatTimelineEvent(w, event, verbose)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Stats ===")
	fmt.Fprintf(w, "  Total Events: %d\n", result.Stats.TotalEvents)
	fmt.Fprintf(w, "  Transitions:  %d\n", result.Stats.Transitions)
	fmt.Fprintf(w, "  Rejected:     %d\n", result.Stats.Rejected)
	fmt.Fprintf(w, "  Callers:      %d\n", result.Stats.Callers)
}

func formatTimelineEvent(w io.Writer, event TraceEvent, verbose bool) {
	switch event.Type {
	case "invocation":
		fmt.Fprintf(w, "  [%d] INV %s by %s @ %d\n", event.Seq, event.Action, event.Caller, event.Height)
		if verbose && len(event.Args) > 0 {
			fmt.Fprintf(w, "       Args: %s\n", formatObject(event.Args))
		}
	case "completion":
		fmt.Fprintf(w, "  [%d] COMP %s\n", event.Seq, event.OutputCase)
		if verbose && len(event.Result) > 0 {
			fmt.Fprintf(w, "       Result: %s\n", formatObject(event.Result))
		}
	}
	if verbose {
		fmt.Fprintf(w, "       ID: %s\n", truncateID(event.ID))
	}
}

// formatObject formats an IR object for display with sorted keys.
func formatObject(obj ir.IRObject) string {
	if len(obj) == 0 {
		return "{}"
	}
	parts := make([]string, 0, len(obj))
	for _, k := range obj.SortedKeys() {
		parts = append(parts, fmt.Sprintf("%s=%s", k, formatValue(obj[k])))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func formatValue(v ir.IRValue) string {
	switch val := v.(type) {
	case ir.IRObject:
		return formatObject(val)
	case ir.IRArray:
		parts := make([]string, len(val))
		for i, elem := range val {
			parts[i] = formatValue(elem)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case ir.IRString:
		return string(val)
	case ir.IRNull:
		return "null"
	default:
		return fmt.Sprintf("%v", v)
	}
}

// truncateID truncates a long ID for display.
func truncateID(id string) string {
	if len(id) <= 16 {
		return id
	}
	return id[:8] + "..." + id[len(id)-8:]
}
