package engine

import "sync"

// CycleDetector tracks follow-on firings per flow to stop self-triggering
// rules.
//
// A cycle is the same (rule, resolved args) firing twice in one flow, e.g.
// a rule on Notification.acknowledge that invokes Notification.acknowledge
// with the same id. Distinct arguments are not a cycle; the per-flow
// QuotaEnforcer bounds those.
type CycleDetector struct {
	mu      sync.Mutex
	history map[string]map[string]bool // flow token -> rule:args hash
}

// NewCycleDetector creates an empty detector.
func NewCycleDetector() *CycleDetector {
	return &CycleDetector{
		history: make(map[string]map[string]bool),
	}
}

// WouldCycle reports whether (ruleID, argsHash) already fired in the flow.
func (c *CycleDetector) WouldCycle(flowToken, ruleID, argsHash string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.history[flowToken] == nil {
		return false
	}
	return c.history[flowToken][ruleID+":"+argsHash]
}

// Record marks (ruleID, argsHash) as fired in the flow.
func (c *CycleDetector) Record(flowToken, ruleID, argsHash string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.history[flowToken] == nil {
		c.history[flowToken] = make(map[string]bool)
	}
	c.history[flowToken][ruleID+":"+argsHash] = true
}

// Clear drops the history of a flow once it has finished.
func (c *CycleDetector) Clear(flowToken string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.history, flowToken)
}

// HistorySize returns the number of flows with tracked history.
func (c *CycleDetector) HistorySize() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.history)
}

// FlowHistorySize returns the number of firings tracked for a flow.
func (c *CycleDetector) FlowHistorySize(flowToken string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.history[flowToken])
}
