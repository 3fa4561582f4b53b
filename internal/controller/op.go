package controller

import "sync"

// Operation is a deferred computation that resolves exactly once, to a
// sequence of outputs or to an error. The processing function creates
// operations; whatever goroutine finishes the work resolves them.
//
// Resolution is first-writer-wins: the second and later calls to Complete or
// Fail are ignored. The controller attaches a completion callback when it
// registers the operation; ownership of that callback is shared between the
// operation and the completion queue, so a callback attached after
// resolution fires immediately in the attaching goroutine.
//
// Thread-safety: all methods are safe for concurrent use.
type Operation struct {
	mu       sync.Mutex
	resolved bool
	outputs  []Output
	err      error
	notify   func(outputs []Output, err error)
	done     chan struct{}
}

// NewOperation creates an unresolved operation.
func NewOperation() *Operation {
	return &Operation{done: make(chan struct{})}
}

// CompletedOperation returns an operation already resolved with outputs.
// Convenience for processing functions whose result is immediate.
func CompletedOperation(outputs []Output) *Operation {
	op := NewOperation()
	op.Complete(outputs)
	return op
}

// FailedOperation returns an operation already resolved with err.
func FailedOperation(err error) *Operation {
	op := NewOperation()
	op.Fail(err)
	return op
}

// Complete resolves the operation successfully with outputs.
// Ignored if the operation already resolved.
func (o *Operation) Complete(outputs []Output) {
	o.resolve(outputs, nil)
}

// Fail resolves the operation with err.
// Ignored if the operation already resolved.
func (o *Operation) Fail(err error) {
	o.resolve(nil, err)
}

func (o *Operation) resolve(outputs []Output, err error) {
	o.mu.Lock()
	if o.resolved {
		o.mu.Unlock()
		return
	}
	o.resolved = true
	o.outputs = outputs
	o.err = err
	notify := o.notify
	o.notify = nil
	close(o.done)
	o.mu.Unlock()

	// Run outside the lock: the callback appends to the completion queue,
	// which takes its own mutex.
	if notify != nil {
		notify(outputs, err)
	}
}

// Resolved reports whether the operation has resolved, without blocking.
func (o *Operation) Resolved() bool {
	select {
	case <-o.done:
		return true
	default:
		return false
	}
}

// Done returns a channel that closes when the operation resolves.
func (o *Operation) Done() <-chan struct{} {
	return o.done
}

// Result returns the resolution values. Meaningful only after the operation
// has resolved; before that it returns zero values.
func (o *Operation) Result() ([]Output, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.outputs, o.err
}

// onResolve registers fn to run when the operation resolves. If the
// operation already resolved, fn runs immediately in the calling goroutine.
// At most one callback is held; the controller registers exactly one per
// dispatched operation.
func (o *Operation) onResolve(fn func(outputs []Output, err error)) {
	o.mu.Lock()
	if !o.resolved {
		o.notify = fn
		o.mu.Unlock()
		return
	}
	outputs, err := o.outputs, o.err
	o.mu.Unlock()
	fn(outputs, err)
}

// Dispatch pairs a completion group with the operation whose result must be
// reported against it. A single record may expand into many dispatches
// (fan-out); a tick may produce any number, including zero.
type Dispatch struct {
	// Group is the ordered list of source handles the result is reported
	// against. It is passed through to the sink untouched.
	Group []Handle

	// Op resolves to the outputs (or failure) for the group.
	Op *Operation
}
