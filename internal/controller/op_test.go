package controller

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOperation_CompleteResolvesOnce(t *testing.T) {
	op := NewOperation()
	require.False(t, op.Resolved())

	op.Complete([]Output{{Value: "a"}})
	require.True(t, op.Resolved())

	// Later resolutions are ignored
	op.Complete([]Output{{Value: "b"}})
	op.Fail(errors.New("too late"))

	outputs, err := op.Result()
	require.NoError(t, err)
	require.Len(t, outputs, 1)
	assert.Equal(t, "a", outputs[0].Value)
}

func TestOperation_FailResolvesOnce(t *testing.T) {
	op := NewOperation()
	boom := errors.New("boom")

	op.Fail(boom)
	op.Complete([]Output{{Value: "ignored"}})

	outputs, err := op.Result()
	assert.Nil(t, outputs)
	assert.Equal(t, boom, err)
}

func TestOperation_DoneClosesOnResolution(t *testing.T) {
	op := NewOperation()

	select {
	case <-op.Done():
		t.Fatal("done channel closed before resolution")
	default:
	}

	op.Complete(nil)

	select {
	case <-op.Done():
	case <-time.After(100 * time.Millisecond):
		t.Fatal("done channel did not close after resolution")
	}
}

func TestOperation_CallbackBeforeResolution(t *testing.T) {
	op := NewOperation()

	var got []Output
	fired := make(chan struct{})
	op.onResolve(func(outputs []Output, err error) {
		got = outputs
		close(fired)
	})

	op.Complete([]Output{{Value: 42}})

	select {
	case <-fired:
	case <-time.After(100 * time.Millisecond):
		t.Fatal("callback did not fire on resolution")
	}
	require.Len(t, got, 1)
	assert.Equal(t, 42, got[0].Value)
}

func TestOperation_CallbackAfterResolution_FiresImmediately(t *testing.T) {
	op := CompletedOperation([]Output{{Value: "done"}})

	fired := false
	op.onResolve(func(outputs []Output, err error) {
		fired = true
		assert.NoError(t, err)
		assert.Equal(t, "done", outputs[0].Value)
	})

	// No goroutine involved: an already-resolved operation runs the
	// callback in the registering goroutine.
	assert.True(t, fired)
}

func TestOperation_ConcurrentResolution_SingleWinner(t *testing.T) {
	op := NewOperation()

	fires := 0
	op.onResolve(func([]Output, error) {
		fires++
	})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			if i%2 == 0 {
				op.Complete([]Output{{Value: i}})
			} else {
				op.Fail(errors.New("loser"))
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, fires, "exactly one resolution must fire the callback")
	assert.True(t, op.Resolved())
}

func TestFailedOperation_Preresolved(t *testing.T) {
	boom := errors.New("boom")
	op := FailedOperation(boom)

	require.True(t, op.Resolved())
	_, err := op.Result()
	assert.Equal(t, boom, err)
}
