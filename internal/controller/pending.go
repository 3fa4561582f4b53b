package controller

import "time"

// pendingSet tracks operations that were unresolved when dispatched.
//
// Only the invocation goroutine mutates it, so it needs no locking of its
// own; resolution state is read through each operation's done channel, which
// is safe to observe from here while other goroutines resolve.
//
// Entries are kept in dispatch order (oldest first) so forced draining can
// trim FIFO. An entry may resolve without being removed; the per-drain
// compact pass filters resolved entries out.
type pendingSet struct {
	ops []*Operation
}

// add appends an operation dispatched while still unresolved.
func (p *pendingSet) add(op *Operation) {
	p.ops = append(p.ops, op)
}

// size returns the number of tracked operations, resolved or not.
func (p *pendingSet) size() int {
	return len(p.ops)
}

// compact drops every resolved entry, preserving order of the rest.
// Cheap, non-blocking: one pass over the slice.
func (p *pendingSet) compact() {
	kept := p.ops[:0]
	for _, op := range p.ops {
		if !op.Resolved() {
			kept = append(kept, op)
		}
	}
	// Nil the vacated tail so resolved operations can be collected.
	for i := len(kept); i < len(p.ops); i++ {
		p.ops[i] = nil
	}
	p.ops = kept
}

// forceDrain bounds in-flight growth at the start of a drain pass.
//
// Resolved entries are filtered first. If more than maxWaiting operations
// remain, the oldest excess entries are waited on, all under one shared
// deadline of maxWait. A timed-out wait abandons waiting but cancels
// nothing: the operations stay pending and are retried on the next pass.
//
// Returns the number of waited-on operations that resolved and whether the
// deadline expired. The set's size never increases across a call.
func (p *pendingSet) forceDrain(maxWaiting int, maxWait time.Duration) (resolved int, timedOut bool) {
	p.compact()

	excess := len(p.ops) - maxWaiting
	if excess <= 0 {
		return 0, false
	}

	deadline := time.NewTimer(maxWait)
	defer deadline.Stop()

	for _, op := range p.ops[:excess] {
		select {
		case <-op.Done():
			resolved++
		case <-deadline.C:
			timedOut = true
		}
		if timedOut {
			break
		}
	}

	p.compact()
	return resolved, timedOut
}
