package engine

import "github.com/yomia4825/Tokenized-Decentralized-Garden-Mulch-Distribution-Networks/internal/ir"

// pending is a follow-on invocation waiting to be applied.
type pending struct {
	ruleID   string
	argsHash string
	action   ir.ActionRef
	args     ir.IRObject
}

// followOnQueue is the FIFO of follow-ons within one Invoke call. Rules
// fire breadth-first in declaration order, so the log order of a flow is
// fixed by its root transition and the rule list.
//
// Only the goroutine holding the engine lock touches it.
type followOnQueue struct {
	items []pending
}

func (q *followOnQueue) push(p pending) {
	q.items = append(q.items, p)
}

func (q *followOnQueue) pop() (pending, bool) {
	if len(q.items) == 0 {
		return pending{}, false
	}
	p := q.items[0]
	q.items[0] = pending{} // release args for GC
	q.items = q.items[1:]
	return p, true
}

func (q *followOnQueue) Len() int {
	return len(q.items)
}
