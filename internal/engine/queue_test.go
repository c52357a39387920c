package engine

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/markerset/internal/ir"
)

func TestEventQueue_FIFO(t *testing.T) {
	q := newEventQueue()

	for _, name := range []string{"A", "B", "C"} {
		require.True(t, q.Enqueue(ir.Event{Kind: ir.EventInstance, Name: name}))
	}

	for _, want := range []string{"A", "B", "C"} {
		got, ok := q.TryDequeue()
		require.True(t, ok)
		assert.Equal(t, want, got.Name)
	}

	_, ok := q.TryDequeue()
	assert.False(t, ok, "dequeue from empty queue should return false")
}

func TestEventQueue_EnqueueAfterClose(t *testing.T) {
	q := newEventQueue()
	q.Close()

	assert.False(t, q.Enqueue(ir.Event{Kind: ir.EventBegin, Name: "late"}))
	assert.True(t, q.Drained())
}

func TestEventQueue_CloseIdempotent(t *testing.T) {
	q := newEventQueue()
	q.Close()
	assert.NotPanics(t, q.Close)
}

func TestEventQueue_DrainedOnlyWhenEmpty(t *testing.T) {
	q := newEventQueue()
	q.Enqueue(ir.Event{Kind: ir.EventEnd, Name: "x"})
	q.Close()

	assert.False(t, q.Drained(), "closed queue with pending events is not drained")
	assert.Equal(t, 1, q.Len())

	_, ok := q.TryDequeue()
	require.True(t, ok)
	assert.True(t, q.Drained())
}

func TestEventQueue_WaitSignals(t *testing.T) {
	q := newEventQueue()

	go func() {
		time.Sleep(10 * time.Millisecond)
		q.Enqueue(ir.Event{Kind: ir.EventInstance, Name: "ping"})
	}()

	select {
	case <-q.Wait():
	case <-time.After(time.Second):
		t.Fatal("no signal after enqueue")
	}

	e, ok := q.TryDequeue()
	require.True(t, ok)
	assert.Equal(t, "ping", e.Name)
}

func TestEventQueue_ConcurrentEnqueue(t *testing.T) {
	q := newEventQueue()
	const producers = 10
	const perProducer = 100

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				q.Enqueue(ir.Event{Kind: ir.EventInstance, Time: float64(i)})
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, producers*perProducer, q.Len())
}
