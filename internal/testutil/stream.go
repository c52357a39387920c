package testutil

import "github.com/roach88/markerset/internal/ir"

// Stream builds an event sequence in call order.
//
//	events := testutil.NewStream().
//		Begin(1, "a").
//		Instance(1.5, "blink").
//		End(2, "a").
//		Events()
type Stream struct {
	events []ir.Event
	ticker *Ticker
}

// NewStream creates an empty stream builder.
func NewStream() *Stream {
	return &Stream{}
}

// NewTickingStream creates a builder whose Tick* methods stamp events from
// a Ticker starting at start and advancing by step.
func NewTickingStream(start, step float64) *Stream {
	return &Stream{ticker: NewTicker(start, step)}
}

// Instance appends an instance event at t.
func (s *Stream) Instance(t float64, name string) *Stream {
	return s.add(ir.EventInstance, t, name)
}

// Begin appends a begin event at t.
func (s *Stream) Begin(t float64, name string) *Stream {
	return s.add(ir.EventBegin, t, name)
}

// End appends an end event at t.
func (s *Stream) End(t float64, name string) *Stream {
	return s.add(ir.EventEnd, t, name)
}

// TickInstance appends an instance event at the ticker's next time.
// Panics if the stream was not created by NewTickingStream.
func (s *Stream) TickInstance(name string) *Stream {
	return s.add(ir.EventInstance, s.mustTicker().Next(), name)
}

// TickBegin appends a begin event at the ticker's next time.
func (s *Stream) TickBegin(name string) *Stream {
	return s.add(ir.EventBegin, s.mustTicker().Next(), name)
}

// TickEnd appends an end event at the ticker's next time.
func (s *Stream) TickEnd(name string) *Stream {
	return s.add(ir.EventEnd, s.mustTicker().Next(), name)
}

// Events returns a copy of the built sequence.
func (s *Stream) Events() []ir.Event {
	return append([]ir.Event(nil), s.events...)
}

// Len returns the number of events appended so far.
func (s *Stream) Len() int {
	return len(s.events)
}

func (s *Stream) add(kind ir.EventKind, t float64, name string) *Stream {
	s.events = append(s.events, ir.Event{Kind: kind, Time: t, Name: name})
	return s
}

func (s *Stream) mustTicker() *Ticker {
	if s.ticker == nil {
		panic("testutil: Tick* called on a stream without a ticker")
	}
	return s.ticker
}
