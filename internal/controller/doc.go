// Package controller implements the asynchronous execution core of a sluice
// streaming node.
//
// The controller is invoked by the host once per input record or periodic
// tick. Each record is decoded, handed to a user-supplied processing
// function, and may fan out into any number of deferred operations, each
// reported against a completion group of source handles. Operations resolve
// on whatever goroutine finishes the work; their results land in a
// thread-safe completion queue that only the invocation goroutine drains.
//
// ARCHITECTURE:
//
// Single-Writer Invocation Discipline:
// The host guarantees at most one concurrent call to Invoke per controller
// instance. All pending-set mutation and all downstream emission happen on
// that one goroutine. The completion queue is the only structure shared with
// other goroutines, and it is guarded by a mutex.
//
// Invocation Flow:
// 1. Decode the record (fatal on failure) and release the host buffer
// 2. Call the processing function (or the tick hook for tick signals)
// 3. Register each (group, operation) pair: completion callbacks feed the
//    queue, unresolved operations join the pending set
// 4. Drain before returning: forced pending-set pass, then route every
//    queued completion to the sink in arrival order
//
// Backpressure:
// When the pending set outgrows the configured threshold, the drain pass
// blocks on the oldest excess operations with a bounded wait. A timed-out
// wait is a logged diagnostic; the operations stay pending and are retried
// on the next pass. This bounds in-flight growth when one record fans out
// into many slow downstream operations.
//
// Delivery Contract:
// Every dispatched completion group reaches the sink exactly once, success
// or failure, in the order its result arrived in the queue. No ordering is
// guaranteed across operations that resolve out of order.
package controller
