package ir

import "strings"

// ActionRef names a ledger action as "Component.action", e.g. "Booking.book".
type ActionRef string

// Component returns the part before the dot ("Booking").
func (a ActionRef) Component() string {
	c, _, _ := strings.Cut(string(a), ".")
	return c
}

// Name returns the part after the dot ("book"), or "" if there is no dot.
func (a ActionRef) Name() string {
	_, n, _ := strings.Cut(string(a), ".")
	return n
}

// Valid reports whether the ref has a non-empty component and name.
func (a ActionRef) Valid() bool {
	c, n, ok := strings.Cut(string(a), ".")
	return ok && c != "" && n != "" && !strings.Contains(n, ".")
}

// CaseSuccess is the output case of an accepted transition. Rejected
// transitions use the failure code name ("InvalidStatus", ...).
const CaseSuccess = "Success"

// Invocation is a request to apply one action.
type Invocation struct {
	ID            string    `json:"id"` // content-addressed
	FlowToken     string    `json:"flow_token"`
	Action        ActionRef `json:"action"`
	Args          IRObject  `json:"args"`
	Caller        string    `json:"caller"`
	Height        int64     `json:"height"`
	Seq           int64     `json:"seq"`
	EngineVersion string    `json:"engine_version"`
	IRVersion     string    `json:"ir_version"`
}

// Completion is the outcome of an invocation.
//
// A rejected transition is still a completion: OutputCase carries the failure
// name and Result holds {"code", "message"}.
type Completion struct {
	ID           string   `json:"id"` // content-addressed
	InvocationID string   `json:"invocation_id"`
	OutputCase   string   `json:"output_case"`
	Result       IRObject `json:"result"`
	Seq          int64    `json:"seq"`
}

// Succeeded reports whether the completion is an accepted transition.
func (c Completion) Succeeded() bool {
	return c.OutputCase == CaseSuccess
}
