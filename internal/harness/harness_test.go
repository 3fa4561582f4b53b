package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_ImmediateFanOut(t *testing.T) {
	sc := &Scenario{
		Name: "immediate_fanout",
		Steps: []Step{
			{Record: &RecordStep{
				Handle: "r1",
				Value:  "alpha",
				Ops: []OpSpec{
					{ID: "enrich", Immediate: true, Outputs: []string{"A1", "A2"}},
					{ID: "lookup", Immediate: true, Group: []string{"r1", "side"}, Fail: "lookup failed"},
				},
			}},
		},
	}

	result, err := Run(sc)
	require.NoError(t, err)

	require.Len(t, result.Trace, 2)
	assert.Equal(t, "success", result.Trace[0].Outcome)
	assert.Equal(t, []string{"r1"}, result.Trace[0].Group)
	assert.Equal(t, []string{"A1", "A2"}, result.Trace[0].Outputs)

	assert.Equal(t, "failure", result.Trace[1].Outcome)
	assert.Equal(t, []string{"r1", "side"}, result.Trace[1].Group)
	assert.Equal(t, "lookup failed", result.Trace[1].Error)

	assert.Empty(t, result.InvokeErrors)
	assert.Zero(t, result.Pending)
}

func TestRun_DeferredResolutionFlushedByTick(t *testing.T) {
	sc := &Scenario{
		Name: "deferred",
		Steps: []Step{
			{Record: &RecordStep{
				Handle: "r1",
				Value:  "beta",
				Ops:    []OpSpec{{ID: "slow", Outputs: []string{"B"}}},
			}},
			{Tick: true}, // still unresolved: nothing to flush
			{Resolve: &ResolveStep{Op: "slow"}},
			{Tick: true},
		},
	}

	result, err := Run(sc)
	require.NoError(t, err)

	require.Len(t, result.Trace, 1)
	assert.Equal(t, "success", result.Trace[0].Outcome)
	assert.Equal(t, []string{"B"}, result.Trace[0].Outputs)
	assert.Zero(t, result.Pending)
}

func TestRun_DispatchFailure_TracedAndReturned(t *testing.T) {
	sc := &Scenario{
		Name: "dispatch_failure",
		Steps: []Step{
			{Record: &RecordStep{
				Handle:       "r1",
				Value:        "gamma",
				FailDispatch: "downstream client unavailable",
			}},
		},
	}

	result, err := Run(sc)
	require.NoError(t, err)

	require.Len(t, result.InvokeErrors, 1)
	assert.Contains(t, result.InvokeErrors[0], "downstream client unavailable")

	// The failure completion for the record's own group still traced
	require.Len(t, result.Trace, 1)
	assert.Equal(t, "failure", result.Trace[0].Outcome)
	assert.Equal(t, []string{"r1"}, result.Trace[0].Group)
}

func TestRun_BackpressureTimeout_KeepsPending(t *testing.T) {
	sc := &Scenario{
		Name:      "backpressure",
		Threshold: 1,
		MaxWait:   "30ms",
		Steps: []Step{
			{Record: &RecordStep{
				Handle: "r1",
				Value:  "delta",
				Ops: []OpSpec{
					{ID: "op1", Outputs: []string{"D1"}},
					{ID: "op2", Outputs: []string{"D2"}},
				},
			}},
		},
	}

	result, err := Run(sc)
	require.NoError(t, err)

	assert.Empty(t, result.Trace, "nothing resolved before the bounded wait expired")
	assert.Equal(t, 2, result.Pending, "timed-out operations stay pending")
	assert.Empty(t, result.InvokeErrors, "a backpressure timeout is not fatal")
}

func TestRun_BackpressureRecovery(t *testing.T) {
	sc := &Scenario{
		Name:      "backpressure_recovery",
		Threshold: 1,
		MaxWait:   "30ms",
		Steps: []Step{
			{Record: &RecordStep{
				Handle: "r1",
				Value:  "delta",
				Ops: []OpSpec{
					{ID: "op1", Outputs: []string{"D1"}},
					{ID: "op2", Outputs: []string{"D2"}},
				},
			}},
			{Resolve: &ResolveStep{Op: "op1"}},
			{Resolve: &ResolveStep{Op: "op2"}},
			{Tick: true},
		},
	}

	result, err := Run(sc)
	require.NoError(t, err)

	require.Len(t, result.Trace, 2)
	assert.Zero(t, result.Pending)
}

func TestRun_UnknownResolve_Fails(t *testing.T) {
	sc := &Scenario{
		Name: "broken",
		Steps: []Step{
			{Resolve: &ResolveStep{Op: "ghost"}},
		},
	}

	_, err := Run(sc)
	require.Error(t, err)
}
