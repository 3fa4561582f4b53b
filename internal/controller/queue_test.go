package controller

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompletionQueue_PushDrainAll_FIFO(t *testing.T) {
	q := newCompletionQueue()

	for i := 0; i < 3; i++ {
		q.push(completion{group: []Handle{fmt.Sprintf("h%d", i)}})
	}

	drained := q.drainAll()
	require.Len(t, drained, 3)
	assert.Equal(t, "h0", drained[0].group[0])
	assert.Equal(t, "h1", drained[1].group[0])
	assert.Equal(t, "h2", drained[2].group[0])
}

func TestCompletionQueue_DrainAll_Empty(t *testing.T) {
	q := newCompletionQueue()
	assert.Nil(t, q.drainAll())
	assert.Equal(t, 0, q.len())
}

func TestCompletionQueue_DrainAll_RemovesSnapshot(t *testing.T) {
	q := newCompletionQueue()
	q.push(completion{group: []Handle{"a"}})

	first := q.drainAll()
	require.Len(t, first, 1)

	// The snapshot is removed; a second drain sees nothing
	assert.Nil(t, q.drainAll())

	// Entries pushed after a drain land in the next one
	q.push(completion{group: []Handle{"b"}})
	second := q.drainAll()
	require.Len(t, second, 1)
	assert.Equal(t, "b", second[0].group[0])
}

func TestCompletionQueue_ConcurrentProducers_NoLoss(t *testing.T) {
	q := newCompletionQueue()

	const producers = 8
	const perProducer = 100

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		p := p
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				q.push(completion{group: []Handle{fmt.Sprintf("p%d-%d", p, i)}})
			}
		}()
	}
	wg.Wait()

	drained := q.drainAll()
	require.Len(t, drained, producers*perProducer, "no completion may be lost")

	seen := make(map[string]bool, len(drained))
	for _, c := range drained {
		key := c.group[0].(string)
		require.False(t, seen[key], "duplicate completion %s", key)
		seen[key] = true
	}
}

func TestCompletionQueue_Len(t *testing.T) {
	q := newCompletionQueue()
	assert.Equal(t, 0, q.len())

	q.push(completion{})
	q.push(completion{})
	assert.Equal(t, 2, q.len())

	q.drainAll()
	assert.Equal(t, 0, q.len())
}
