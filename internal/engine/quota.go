package engine

import (
	"errors"
	"fmt"
)

// QuotaEnforcer bounds the number of follow-on transitions in one flow.
//
// Cycle detection catches a rule repeating itself; the quota catches a long
// chain of distinct firings (A -> B -> C -> ...). Together they guarantee an
// Invoke call terminates.
type QuotaEnforcer struct {
	maxSteps int
	current  int
}

// NewQuotaEnforcer creates an enforcer allowing maxSteps follow-ons.
func NewQuotaEnforcer(maxSteps int) *QuotaEnforcer {
	return &QuotaEnforcer{maxSteps: maxSteps}
}

// Check counts one step and fails once the limit is passed.
func (q *QuotaEnforcer) Check(flowToken string) error {
	q.current++
	if q.current > q.maxSteps {
		return &StepsExceededError{
			FlowToken: flowToken,
			Steps:     q.current,
			Limit:     q.maxSteps,
		}
	}
	return nil
}

// Reset sets the step counter back to 0.
func (q *QuotaEnforcer) Reset() {
	q.current = 0
}

// Current returns the step count.
func (q *QuotaEnforcer) Current() int {
	return q.current
}

// MaxSteps returns the limit.
func (q *QuotaEnforcer) MaxSteps() int {
	return q.maxSteps
}

// StepsExceededError is returned when a flow exceeds its follow-on quota.
// Transitions already committed in the flow stay committed.
type StepsExceededError struct {
	FlowToken string
	Steps     int
	Limit     int
}

func (e *StepsExceededError) Error() string {
	return fmt.Sprintf("flow %s exceeded max steps quota: %d steps > %d limit",
		e.FlowToken, e.Steps, e.Limit)
}

// IsStepsExceededError reports whether err is a StepsExceededError.
func IsStepsExceededError(err error) bool {
	var se *StepsExceededError
	return errors.As(err, &se)
}
