package engine

import "sync/atomic"

// Clock is the logical clock that stamps every logged invocation and
// completion with a strictly increasing seq.
//
// Seq orders the log; wall-clock time never does. Rebuild positions the
// clock at the head of an existing log so new transitions continue the
// sequence.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock whose next value is start+1.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next returns the next sequence number.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the last issued sequence number.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}

// reset moves the clock to seq. Only Rebuild calls it.
func (c *Clock) reset(seq int64) {
	c.seq.Store(seq)
}
