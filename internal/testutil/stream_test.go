package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/markerset/internal/ir"
)

func TestStream_BuildsInCallOrder(t *testing.T) {
	events := NewStream().
		Begin(1, "a").
		Instance(1.5, "blink").
		End(2, "a").
		Events()

	require.Len(t, events, 3)
	assert.Equal(t, ir.Event{Kind: ir.EventBegin, Time: 1, Name: "a"}, events[0])
	assert.Equal(t, ir.Event{Kind: ir.EventInstance, Time: 1.5, Name: "blink"}, events[1])
	assert.Equal(t, ir.Event{Kind: ir.EventEnd, Time: 2, Name: "a"}, events[2])
}

func TestStream_EventsReturnsCopy(t *testing.T) {
	s := NewStream().Begin(1, "a")
	events := s.Events()
	events[0].Name = "mutated"

	assert.Equal(t, "a", s.Events()[0].Name)
}

func TestStream_Ticking(t *testing.T) {
	s := NewTickingStream(0, 2).TickBegin("a").TickInstance("x").TickEnd("a")

	assert.Equal(t, 3, s.Len())
	times := []float64{}
	for _, ev := range s.Events() {
		times = append(times, ev.Time)
	}
	assert.Equal(t, []float64{0, 2, 4}, times)
}

func TestStream_TickWithoutTickerPanics(t *testing.T) {
	assert.Panics(t, func() { NewStream().TickBegin("a") })
}
