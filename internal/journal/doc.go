// Package journal provides the durable emission journal of a sluice node.
//
// Every emission the controller routes downstream, success or failure,
// can be journaled to SQLite with its logical sequence number, the handles
// of its completion group, and its outcome. The journal is the node's
// acknowledgment audit trail: operators use `sluice audit` to inspect what
// was emitted, in what order, and why a group failed.
//
// The schema is append-only. Writes are idempotent via ON CONFLICT DO
// NOTHING on the emission ID, so replaying a run against an existing journal
// never duplicates rows. Reads order by (seq, id) for a deterministic view.
//
// Only the invocation goroutine writes (the controller's single-writer
// emission invariant extends to the journal); the connection pool is sized
// accordingly.
package journal
