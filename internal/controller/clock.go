package controller

import "sync/atomic"

// Clock is a monotonic logical clock used to stamp emissions.
//
// Wall-clock timestamps belong to the records themselves; the clock exists
// so the journal and traces carry a strictly increasing sequence that
// reflects emission order, immune to clock skew.
//
// Thread-safety: safe for concurrent use, though emissions are stamped only
// from the single invocation goroutine.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a clock starting at 0. The first Next returns 1.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock resuming from a specific sequence number.
// Used when a node restarts against an existing journal.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next returns the next sequence number and advances the clock.
// Each call returns a unique, strictly increasing value.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the current sequence number without advancing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
