package engine

import (
	"errors"
	"fmt"
)

// RuntimeError is an engine-level failure. It is distinct from a ledger
// failure: a ledger failure is a logged, rejected transition, while a
// RuntimeError means the engine refused to log anything (unknown action,
// regressing height) or stopped evaluating follow-on rules (cycle, quota).
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// FlowToken identifies the affected flow.
	FlowToken string

	// RuleID identifies the follow-on rule, for cycle and binding errors.
	RuleID string

	// ArgsHash identifies the resolved follow-on arguments (cycle errors).
	ArgsHash string

	// Details contains additional context.
	Details map[string]string
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeCycleDetected indicates a rule would fire the same arguments
	// twice within one flow.
	ErrCodeCycleDetected RuntimeErrorCode = "CYCLE_DETECTED"

	// ErrCodeQuotaExceeded indicates the flow exceeded max follow-on steps.
	ErrCodeQuotaExceeded RuntimeErrorCode = "QUOTA_EXCEEDED"

	// ErrCodeUnknownAction indicates an action name with no handler.
	ErrCodeUnknownAction RuntimeErrorCode = "UNKNOWN_ACTION"

	// ErrCodeInvalidBinding indicates a rule argument expression that does
	// not resolve against the triggering transition.
	ErrCodeInvalidBinding RuntimeErrorCode = "INVALID_BINDING"

	// ErrCodeHeightRegressed indicates a request below the log's height.
	ErrCodeHeightRegressed RuntimeErrorCode = "HEIGHT_REGRESSED"

	// ErrCodeReplayDiverged indicates a logged transition that no longer
	// reproduces.
	ErrCodeReplayDiverged RuntimeErrorCode = "REPLAY_DIVERGED"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	if e.FlowToken != "" && e.RuleID != "" {
		return fmt.Sprintf("%s: %s (flow=%s, rule=%s)", e.Code, e.Message, e.FlowToken, e.RuleID)
	}
	if e.FlowToken != "" {
		return fmt.Sprintf("%s: %s (flow=%s)", e.Code, e.Message, e.FlowToken)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func hasRuntimeCode(err error, code RuntimeErrorCode) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == code
	}
	return false
}

// IsCycleError reports whether err is a cycle detection error.
func IsCycleError(err error) bool {
	return hasRuntimeCode(err, ErrCodeCycleDetected)
}

// IsQuotaError reports whether err is a quota error. Both RuntimeError
// with ErrCodeQuotaExceeded and StepsExceededError match.
func IsQuotaError(err error) bool {
	if hasRuntimeCode(err, ErrCodeQuotaExceeded) {
		return true
	}
	var se *StepsExceededError
	return errors.As(err, &se)
}

// IsUnknownAction reports whether err names an action with no handler.
func IsUnknownAction(err error) bool {
	return hasRuntimeCode(err, ErrCodeUnknownAction)
}

// IsReplayDiverged reports whether err is a replay mismatch.
func IsReplayDiverged(err error) bool {
	return hasRuntimeCode(err, ErrCodeReplayDiverged)
}

// NewCycleError creates a RuntimeError for cycle detection.
func NewCycleError(flowToken, ruleID, argsHash string) *RuntimeError {
	return &RuntimeError{
		Code:      ErrCodeCycleDetected,
		Message:   "follow-on rule would fire the same arguments twice in flow",
		FlowToken: flowToken,
		RuleID:    ruleID,
		ArgsHash:  argsHash,
	}
}

// NewQuotaError creates a RuntimeError for quota exceeded.
func NewQuotaError(flowToken string, steps, maxSteps int) *RuntimeError {
	return &RuntimeError{
		Code:      ErrCodeQuotaExceeded,
		Message:   fmt.Sprintf("flow exceeded max steps (%d > %d)", steps, maxSteps),
		FlowToken: flowToken,
		Details: map[string]string{
			"steps":     fmt.Sprintf("%d", steps),
			"max_steps": fmt.Sprintf("%d", maxSteps),
		},
	}
}

// NewUnknownActionError creates a RuntimeError for an unregistered action.
func NewUnknownActionError(action string) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeUnknownAction,
		Message: fmt.Sprintf("unknown action %q", action),
	}
}
