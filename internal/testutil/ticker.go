package testutil

import "sync"

// Ticker hands out evenly spaced timestamps for building event streams.
//
// Unlike engine.Clock, which counts events, Ticker produces the float
// times the events carry. It can be reset so one scenario can be built
// twice with identical timestamps.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type Ticker struct {
	mu    sync.Mutex
	start float64
	step  float64
	n     int
}

// NewTicker creates a ticker whose first Next() returns start.
func NewTicker(start, step float64) *Ticker {
	return &Ticker{start: start, step: step}
}

// Next returns the next timestamp.
func (t *Ticker) Next() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	at := t.start + float64(t.n)*t.step
	t.n++
	return at
}

// Peek returns the timestamp Next would return, without advancing.
func (t *Ticker) Peek() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.start + float64(t.n)*t.step
}

// Reset rewinds the ticker to start.
func (t *Ticker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.n = 0
}
