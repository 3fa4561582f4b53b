package controller

import "sync"

// completion is one (group, result) pair awaiting emission.
type completion struct {
	group   []Handle
	outputs []Output
	err     error
}

// completionQueue buffers resolved results between invocations.
//
// Multiple producers append: operation callbacks run on whatever goroutine
// resolves the operation. Only the invocation goroutine drains. This is the
// one structure in the controller mutated from more than one goroutine, so
// it is guarded by a mutex; a swap-and-clear drain keeps the critical
// section to a pointer exchange.
type completionQueue struct {
	mu      sync.Mutex
	entries []completion
}

func newCompletionQueue() *completionQueue {
	return &completionQueue{
		entries: make([]completion, 0, 64), // Pre-allocate for typical fan-out
	}
}

// push appends a completion.
// Thread-safe: may be called from any goroutine.
func (q *completionQueue) push(c completion) {
	q.mu.Lock()
	q.entries = append(q.entries, c)
	q.mu.Unlock()
}

// drainAll atomically removes and returns every entry currently queued, in
// arrival order. Entries pushed concurrently with the call may land in this
// snapshot or the next one; entries present before the call are always
// included.
func (q *completionQueue) drainAll() []completion {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.entries) == 0 {
		return nil
	}
	out := q.entries
	q.entries = make([]completion, 0, 64)
	return out
}

// len returns the current number of queued completions.
func (q *completionQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}
