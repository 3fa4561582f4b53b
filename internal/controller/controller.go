package controller

import (
	"context"
	"log/slog"
	"time"
)

// DefaultMaxWaitingOperations is the default backpressure threshold: the
// number of tracked pending operations above which a drain pass blocks.
const DefaultMaxWaitingOperations = 1000

// DefaultMaxWaitTime bounds how long a forced drain blocks the invocation
// goroutine waiting for excess operations to resolve.
const DefaultMaxWaitTime = 10 * time.Second

// ProcessFunc is the user-supplied processing function. It receives the
// source handle and the decoded event, and returns the fan-out: zero or more
// (group, operation) pairs. An error return is a dispatch failure, fatal
// for the whole invocation.
type ProcessFunc func(ctx context.Context, handle Handle, ev Event) ([]Dispatch, error)

// TickFunc is the optional tick hook, invoked with no payload. Same return
// shape as ProcessFunc. The default hook dispatches nothing.
type TickFunc func(ctx context.Context) ([]Dispatch, error)

// Sink receives exactly one emission per completion group, success or
// failure. Both methods are called only from the invocation goroutine,
// preserving the single-writer-to-downstream invariant. A sink error is
// logged by the controller and does not stop the drain.
type Sink interface {
	OnSuccess(group []Handle, outputs []Output) error
	OnFailure(group []Handle, err error) error
}

// Controller is the per-node asynchronous execution core.
//
// All state is instance-owned and constructed once by New: controllers share
// nothing, so multiple instances (one per node, or per test) never interfere.
//
// Thread-safety model:
//   - Invoke: must be called by at most one goroutine at a time (host
//     scheduler contract); no internal locking protects the entry point
//   - Operation resolution: safe from any goroutine
//   - Everything else is private to the invocation goroutine
type Controller struct {
	decoder Decoder
	process ProcessFunc
	tick    TickFunc
	sink    Sink

	pending pendingSet
	queue   *completionQueue

	maxWaiting    int
	maxWait       time.Duration
	anchorOutputs bool
}

// Option configures a Controller.
type Option func(*Controller)

// WithMaxWaitingOperations sets the backpressure threshold.
//
// Default: 1000 (DefaultMaxWaitingOperations).
// Use small values (2 to 10) in tests to force the bounded-wait path.
func WithMaxWaitingOperations(n int) Option {
	return func(c *Controller) {
		c.maxWaiting = n
	}
}

// WithMaxWaitTime bounds the blocking wait of a forced drain.
//
// Default: 10s (DefaultMaxWaitTime).
func WithMaxWaitTime(d time.Duration) Option {
	return func(c *Controller) {
		c.maxWait = d
	}
}

// WithAnchorOutputs controls whether downstream emissions are causally
// linked to their triggering input. The flag is a sink contract knob: the
// controller always delivers the completion group; anchoring-aware sinks
// read the flag via AnchorOutputs.
//
// Default: true.
func WithAnchorOutputs(anchor bool) Option {
	return func(c *Controller) {
		c.anchorOutputs = anchor
	}
}

// WithTickFunc installs a tick hook replacing the default no-op.
func WithTickFunc(fn TickFunc) Option {
	return func(c *Controller) {
		if fn != nil {
			c.tick = fn
		}
	}
}

// New creates a Controller wired to its collaborators. decoder, process and
// sink are required; options configure the rest.
func New(decoder Decoder, process ProcessFunc, sink Sink, opts ...Option) *Controller {
	c := &Controller{
		decoder:       decoder,
		process:       process,
		tick:          func(context.Context) ([]Dispatch, error) { return nil, nil },
		sink:          sink,
		queue:         newCompletionQueue(),
		maxWaiting:    DefaultMaxWaitingOperations,
		maxWait:       DefaultMaxWaitTime,
		anchorOutputs: true,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Invoke processes one host signal.
//
// The completion queue is always drained before Invoke returns, for every
// outcome including decode failure and ticks that dispatch nothing, since
// operations from earlier invocations may have resolved in between.
//
// Error contract: only decode failures (DecodeError) and outright dispatch
// failures (DispatchError) surface to the host. Per-operation failures route
// through the sink's failure path; backpressure timeouts degrade to logged
// diagnostics.
func (c *Controller) Invoke(ctx context.Context, sig Signal) error {
	defer c.drain()

	if sig.IsTick() {
		dispatches, err := c.tick(ctx)
		if err != nil {
			return c.dispatchFailed(nil, true, err)
		}
		c.register(dispatches)
		return nil
	}

	rec := sig.record
	ev, err := c.decoder.Decode(rec.Data)
	if err != nil {
		return &DecodeError{Err: err}
	}
	// The host may hold the raw record long after this invocation; drop the
	// payload now so decoded bytes are not retained twice.
	rec.Release()

	dispatches, err := c.process(ctx, rec.Handle, ev)
	if err != nil {
		return c.dispatchFailed([]Handle{rec.Handle}, false, err)
	}
	c.register(dispatches)
	return nil
}

// register attaches completion callbacks and tracks unresolved operations.
func (c *Controller) register(dispatches []Dispatch) {
	for _, d := range dispatches {
		if d.Op == nil {
			slog.Warn("dispatch without operation dropped", "group_size", len(d.Group))
			continue
		}

		group := d.Group
		op := d.Op
		op.onResolve(func(outputs []Output, err error) {
			c.queue.push(completion{group: group, outputs: outputs, err: err})
		})

		// An operation that resolved between onResolve and this check lands
		// in the pending set anyway; the next compact pass filters it.
		if !op.Resolved() {
			c.pending.add(op)
		}
	}

	if n := c.pending.size(); n > c.maxWaiting {
		// Diagnostic, not fatal: fan-out is outrunning capacity. The next
		// drain pass enforces the bound.
		slog.Warn("pending operations exceed backpressure threshold",
			"pending", n,
			"threshold", c.maxWaiting,
		)
	}
}

// dispatchFailed queues a best-effort failure completion for the triggering
// group, then returns the fatal error. The deferred drain routes the queued
// failure to the sink before Invoke returns, so downstream accounting sees
// the group even though the invocation fails. Policy: enqueue, then
// propagate.
func (c *Controller) dispatchFailed(group []Handle, tick bool, err error) error {
	derr := &DispatchError{Tick: tick, Err: err}
	c.queue.push(completion{group: group, err: derr})
	return derr
}

// drain is the per-invocation flush: the forced pending-set pass, then one
// atomic removal of the completion queue routed to the sink in arrival
// order. Runs only on the invocation goroutine; this is the single place
// emission happens.
func (c *Controller) drain() {
	resolved, timedOut := c.pending.forceDrain(c.maxWaiting, c.maxWait)
	if timedOut {
		slog.Warn("backpressure wait timed out",
			"resolved", resolved,
			"still_pending", c.pending.size(),
			"max_wait", c.maxWait,
		)
	}

	for _, comp := range c.queue.drainAll() {
		if comp.err != nil {
			if err := c.sink.OnFailure(comp.group, comp.err); err != nil {
				slog.Error("failure emission rejected by sink",
					"error", err,
					"group_size", len(comp.group),
				)
			}
			continue
		}
		if err := c.sink.OnSuccess(comp.group, comp.outputs); err != nil {
			slog.Error("emission rejected by sink",
				"error", err,
				"group_size", len(comp.group),
				"outputs", len(comp.outputs),
			)
		}
	}
}

// PendingOperations returns the number of tracked pending operations.
// Resolved-but-not-yet-compacted entries count until the next drain.
// Useful for monitoring and testing.
func (c *Controller) PendingOperations() int {
	return c.pending.size()
}

// QueuedCompletions returns the number of completions awaiting drain.
// Useful for monitoring and testing.
func (c *Controller) QueuedCompletions() int {
	return c.queue.len()
}

// AnchorOutputs reports whether emissions should be causally linked to their
// triggering input. Sinks consult this when building acknowledgments.
func (c *Controller) AnchorOutputs() bool {
	return c.anchorOutputs
}

// MaxWaitingOperations returns the configured backpressure threshold.
// Used for diagnostics.
func (c *Controller) MaxWaitingOperations() int {
	return c.maxWaiting
}
