package engine

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCycleDetector(t *testing.T) {
	c := NewCycleDetector()
	assert.False(t, c.WouldCycle("f1", "rule", "h1"))

	c.Record("f1", "rule", "h1")
	assert.True(t, c.WouldCycle("f1", "rule", "h1"))
	assert.False(t, c.WouldCycle("f1", "rule", "h2"), "different args")
	assert.False(t, c.WouldCycle("f1", "other", "h1"), "different rule")
	assert.False(t, c.WouldCycle("f2", "rule", "h1"), "different flow")
	assert.Equal(t, 1, c.HistorySize())
	assert.Equal(t, 1, c.FlowHistorySize("f1"))

	c.Clear("f1")
	assert.False(t, c.WouldCycle("f1", "rule", "h1"))
	assert.Equal(t, 0, c.HistorySize())
	assert.Equal(t, 0, c.FlowHistorySize("f1"))
}

func TestQuotaEnforcer(t *testing.T) {
	q := NewQuotaEnforcer(2)
	require.NoError(t, q.Check("f"))
	require.NoError(t, q.Check("f"))

	err := q.Check("f")
	require.Error(t, err)
	assert.True(t, IsStepsExceededError(err))
	assert.True(t, IsQuotaError(fmt.Errorf("wrapped: %w", err)))
	assert.Equal(t, 3, q.Current())
	assert.Equal(t, 2, q.MaxSteps())

	q.Reset()
	assert.Equal(t, 0, q.Current())
}

func TestRuntimeError_Messages(t *testing.T) {
	assert.Equal(t, "CYCLE_DETECTED: follow-on rule would fire the same arguments twice in flow (flow=f, rule=r)",
		NewCycleError("f", "r", "h").Error())
	assert.Equal(t, `UNKNOWN_ACTION: unknown action "X.y"`, NewUnknownActionError("X.y").Error())

	qe := NewQuotaError("f", 3, 2)
	assert.True(t, IsQuotaError(qe))
	assert.Equal(t, "3", qe.Details["steps"])
	assert.False(t, IsCycleError(qe))
}
