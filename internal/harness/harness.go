package harness

import (
	"context"
	"errors"
	"fmt"

	"github.com/sluiceproject/sluice/internal/controller"
	"github.com/sluiceproject/sluice/internal/testutil"
)

// TraceEvent is one emission in a scenario trace.
type TraceEvent struct {
	Outcome string   `json:"outcome"` // "success" or "failure"
	Group   []string `json:"group"`
	Outputs []string `json:"outputs,omitempty"`
	Error   string   `json:"error,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	Scenario string `json:"scenario"`

	// Trace holds every emission in the order the sink saw it.
	Trace []TraceEvent `json:"trace"`

	// InvokeErrors records the fatal errors Invoke returned, in step order.
	// Empty for scenarios with no dispatch or decode failures.
	InvokeErrors []string `json:"invoke_errors,omitempty"`

	// Pending is the controller's pending-set size after the final step.
	Pending int `json:"pending"`
}

// Run executes a scenario against a fresh controller and returns its trace.
//
// Each RecordStep's ops become the processing function's fan-out for that
// record. Deferred ops are held by ID until a Resolve step resolves them;
// Immediate ops resolve before the processing call returns. Ticks flush.
func Run(sc *Scenario) (*Result, error) {
	if err := sc.Validate(); err != nil {
		return nil, err
	}

	sink := &testutil.RecordingSink{}

	// The processing function consumes the ops scripted for the record
	// being invoked; pending is set immediately before each Invoke.
	var pending *RecordStep
	ops := map[string]*controller.Operation{}

	process := func(ctx context.Context, h controller.Handle, ev controller.Event) ([]controller.Dispatch, error) {
		step := pending
		if step == nil {
			return nil, fmt.Errorf("no scripted step for record %v", h)
		}
		if step.FailDispatch != "" {
			return nil, errors.New(step.FailDispatch)
		}

		dispatches := make([]controller.Dispatch, 0, len(step.Ops))
		for _, spec := range step.Ops {
			op := controller.NewOperation()
			ops[spec.ID] = op
			if spec.Immediate {
				resolveOp(op, spec)
			}

			group := spec.Group
			if len(group) == 0 {
				group = []string{step.Handle}
			}
			handles := make([]controller.Handle, len(group))
			for i, g := range group {
				handles[i] = g
			}
			dispatches = append(dispatches, controller.Dispatch{Group: handles, Op: op})
		}
		return dispatches, nil
	}

	opts := []controller.Option{}
	if sc.Threshold > 0 {
		opts = append(opts, controller.WithMaxWaitingOperations(sc.Threshold))
	}
	opts = append(opts, controller.WithMaxWaitTime(sc.maxWait(controller.DefaultMaxWaitTime)))

	c := controller.New(testutil.StringDecoder, process, sink, opts...)

	result := &Result{Scenario: sc.Name}
	ctx := context.Background()

	for i, step := range sc.Steps {
		switch {
		case step.Record != nil:
			pending = step.Record
			sig := controller.RecordSignal(&controller.RawRecord{
				Handle: step.Record.Handle,
				Data:   []byte(step.Record.Value),
			})
			if err := c.Invoke(ctx, sig); err != nil {
				result.InvokeErrors = append(result.InvokeErrors, err.Error())
			}
			pending = nil

		case step.Resolve != nil:
			op, ok := ops[step.Resolve.Op]
			if !ok {
				return nil, fmt.Errorf("step %d: op %q never dispatched", i, step.Resolve.Op)
			}
			spec, err := sc.opSpec(step.Resolve.Op)
			if err != nil {
				return nil, err
			}
			resolveOp(op, spec)

		case step.Tick:
			if err := c.Invoke(ctx, controller.TickSignal()); err != nil {
				result.InvokeErrors = append(result.InvokeErrors, err.Error())
			}
		}
	}

	result.Trace = traceOf(sink)
	result.Pending = c.PendingOperations()
	return result, nil
}

// resolveOp applies an OpSpec's scripted resolution.
func resolveOp(op *controller.Operation, spec OpSpec) {
	if spec.Fail != "" {
		op.Fail(errors.New(spec.Fail))
		return
	}
	outputs := make([]controller.Output, len(spec.Outputs))
	for i, v := range spec.Outputs {
		outputs[i] = controller.Output{Value: v}
	}
	op.Complete(outputs)
}

// opSpec finds the scripted spec for an op ID.
func (s *Scenario) opSpec(id string) (OpSpec, error) {
	for _, step := range s.Steps {
		if step.Record == nil {
			continue
		}
		for _, spec := range step.Record.Ops {
			if spec.ID == id {
				return spec, nil
			}
		}
	}
	return OpSpec{}, fmt.Errorf("op %q not declared in scenario", id)
}

// traceOf renders the sink's recordings as trace events.
func traceOf(sink *testutil.RecordingSink) []TraceEvent {
	emissions := sink.Emissions()
	trace := make([]TraceEvent, 0, len(emissions))
	for _, em := range emissions {
		ev := TraceEvent{Group: em.Handles()}
		if em.Success {
			ev.Outcome = "success"
			for _, out := range em.Outputs {
				ev.Outputs = append(ev.Outputs, fmt.Sprint(out.Value))
			}
		} else {
			ev.Outcome = "failure"
			ev.Error = em.Err.Error()
		}
		trace = append(trace, ev)
	}
	return trace
}
