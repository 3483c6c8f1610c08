package harness

import (
	"github.com/yomia4825/Tokenized-Decentralized-Garden-Mulch-Distribution-Networks/internal/engine"
	"github.com/yomia4825/Tokenized-Decentralized-Garden-Mulch-Distribution-Networks/internal/ir"
)

// Trace event types.
const (
	EventInvocation = "invocation"
	EventCompletion = "completion"
)

// TraceEvent is one invocation or completion in the order it was applied.
type TraceEvent struct {
	Type       string      `json:"type"`
	Action     string      `json:"action"`
	Args       ir.IRObject `json:"args,omitempty"`
	Caller     string      `json:"caller,omitempty"`
	Height     int64       `json:"height,omitempty"`
	Rule       string      `json:"rule,omitempty"` // follow-on rule that fired the invocation
	OutputCase string      `json:"output_case,omitempty"`
	Result     ir.IRObject `json:"result,omitempty"`

	// Seq is the logical clock value; zero for read-only queries, which
	// are never logged.
	Seq int64 `json:"seq"`
}

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true if every expect clause and assertion held.
	Pass bool `json:"pass"`

	Trace  []TraceEvent `json:"trace"`
	Errors []string     `json:"errors,omitempty"`

	// State is the final ledger snapshot.
	State ir.IRObject `json:"state,omitempty"`
}

// NewResult creates a passing result with an empty trace.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError records a failure and marks the result failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddOutcome appends an outcome's invocation and completion to the trace.
func (r *Result) AddOutcome(oc engine.Outcome) {
	inv, comp := oc.Invocation, oc.Completion
	r.Trace = append(r.Trace,
		TraceEvent{
			Type:   EventInvocation,
			Action: string(inv.Action),
			Args:   inv.Args,
			Caller: inv.Caller,
			Height: inv.Height,
			Rule:   oc.RuleID,
			Seq:    inv.Seq,
		},
		TraceEvent{
			Type:       EventCompletion,
			Action:     string(inv.Action),
			OutputCase: comp.OutputCase,
			Result:     comp.Result,
			Seq:        comp.Seq,
		},
	)
}
