// Package harness executes scripted controller scenarios for conformance
// testing.
//
// A scenario is a sequence of steps (records with scripted operations,
// out-of-band resolutions, ticks) run against a real controller with a
// recording sink. The resulting emission trace is deterministic: operations
// resolve exactly where the script says they do, so the same scenario always
// yields the same trace, which makes golden-file comparison meaningful.
//
// Scenarios can be declared in Go or loaded from YAML files, and traces are
// compared with golden files via goldie:
//
//	go test ./internal/harness -update
//
// regenerates the golden files.
package harness
