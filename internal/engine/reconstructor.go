package engine

import (
	"cmp"
	"log/slog"
	"slices"
	"sync"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/roach88/markerset/internal/ir"
	"github.com/roach88/markerset/internal/logging"
)

// Reconstructor turns instance/begin/end calls into an ordered record set.
//
// Thread-safety model:
//   - every method takes the same mutex, so calls from several goroutines
//     are serialized
//   - pairing is only meaningful if callers deliver events in time order;
//     the engine does not check timestamps
//
// INVARIANTS:
//   - instances and markers are append-only
//   - only pending stacks shrink (End pops)
//   - pending remembers names in first-referenced order; that order decides
//     how open markers are emitted before the stable sort
type Reconstructor struct {
	mu sync.Mutex

	pending   *orderedmap.OrderedMap[string, []float64]
	instances []ir.Record
	markers   []ir.Record

	clock     *Clock
	finalized bool
	result    []ir.Record

	logger *slog.Logger
}

// Option configures a Reconstructor.
type Option func(*Reconstructor)

// WithLogger sets the logger used for per-event debug output. The default
// discards everything.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Reconstructor) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithClock sets the clock that numbers accepted events.
func WithClock(clock *Clock) Option {
	return func(r *Reconstructor) {
		if clock != nil {
			r.clock = clock
		}
	}
}

// New creates an empty Reconstructor.
func New(opts ...Option) *Reconstructor {
	r := &Reconstructor{
		pending: orderedmap.New[string, []float64](),
		clock:   NewClock(),
		logger:  logging.Discard(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Instance records an instantaneous event at t.
func (r *Reconstructor) Instance(t float64, name string) error {
	return r.Apply(ir.Event{Kind: ir.EventInstance, Time: t, Name: name})
}

// Begin records the start of an interval named name.
// Nothing is emitted until the matching End or Finalize.
func (r *Reconstructor) Begin(t float64, name string) error {
	return r.Apply(ir.Event{Kind: ir.EventBegin, Time: t, Name: name})
}

// End closes the most recent pending Begin for name. With nothing pending
// it records an orphan-end marker [ir.Sentinel, t].
func (r *Reconstructor) End(t float64, name string) error {
	return r.Apply(ir.Event{Kind: ir.EventEnd, Time: t, Name: name})
}

// Apply dispatches ev to the matching operation.
func (r *Reconstructor) Apply(ev ir.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.finalized {
		return newFinalizedError(ev, r.clock.Current())
	}

	switch ev.Kind {
	case ir.EventInstance:
		r.instances = append(r.instances, ir.NewInstance(ev.Time, ev.Name))

	case ir.EventBegin:
		starts, _ := r.pending.Get(ev.Name)
		r.pending.Set(ev.Name, append(starts, ev.Time))

	case ir.EventEnd:
		r.closeLocked(ev)

	default:
		return newUnknownEventError(ev, r.clock.Current())
	}

	seq := r.clock.Next()
	r.logger.Debug("event applied", "seq", seq, "kind", ev.Kind, "name", ev.Name, "at", ev.Time)
	return nil
}

// closeLocked pops the newest pending start for ev.Name. Caller holds mu.
func (r *Reconstructor) closeLocked(ev ir.Event) {
	starts, _ := r.pending.Get(ev.Name)
	if len(starts) == 0 {
		// Touch the name so first-referenced order counts ends too.
		r.pending.Set(ev.Name, starts)
		r.markers = append(r.markers, ir.NewMarker(ev.Name, ir.Sentinel, ev.Time))
		r.logger.Debug("end without begin", "name", ev.Name, "at", ev.Time)
		return
	}

	start := starts[len(starts)-1]
	r.pending.Set(ev.Name, starts[:len(starts)-1])
	r.markers = append(r.markers, ir.NewMarker(ev.Name, start, ev.Time))
}

// Finalize returns the complete record set ordered by start time (end time
// for orphan ends). Ties keep the order in which records were produced:
// instances first, then closed markers, then open markers.
//
// The first call seals the Reconstructor. Later calls return a copy of the
// same result.
func (r *Reconstructor) Finalize() []ir.Record {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.finalized {
		return cloneRecords(r.result)
	}

	out := make([]ir.Record, 0, len(r.instances)+len(r.markers)+r.pendingCountLocked())
	out = append(out, r.instances...)
	out = append(out, r.markers...)

	for pair := r.pending.Oldest(); pair != nil; pair = pair.Next() {
		for _, start := range pair.Value {
			out = append(out, ir.NewMarker(pair.Key, start))
		}
	}

	slices.SortStableFunc(out, func(a, b ir.Record) int {
		return cmp.Compare(a.SortKey(), b.SortKey())
	})

	r.result = out
	r.finalized = true

	r.logger.Debug("reconstructor finalized",
		"events", r.clock.Current(),
		"records", len(out),
	)
	return cloneRecords(out)
}

// Columns finalizes (if needed) and returns the struct-array form.
func (r *Reconstructor) Columns() ir.Columns {
	return ir.Transpose(r.Finalize())
}

// Finalized reports whether Finalize has run.
func (r *Reconstructor) Finalized() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.finalized
}

// PendingBegins lists the outstanding start times for one name,
// oldest first.
type PendingBegins struct {
	Name   string    `json:"name"`
	Starts []float64 `json:"starts"`
}

// Pending returns the names with unclosed begins, in first-referenced order.
// Names whose stacks have drained are omitted.
func (r *Reconstructor) Pending() []PendingBegins {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []PendingBegins
	for pair := r.pending.Oldest(); pair != nil; pair = pair.Next() {
		if len(pair.Value) == 0 {
			continue
		}
		out = append(out, PendingBegins{
			Name:   pair.Key,
			Starts: append([]float64(nil), pair.Value...),
		})
	}
	return out
}

// Stats summarizes what the Reconstructor has seen so far.
type Stats struct {
	Events        int64 `json:"events"`
	Instances     int   `json:"instances"`
	ClosedMarkers int   `json:"closed_markers"`
	OrphanEnds    int   `json:"orphan_ends"`
	PendingBegins int   `json:"pending_begins"`
	Finalized     bool  `json:"finalized"`
}

// Stats returns counters for diagnostics.
func (r *Reconstructor) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := Stats{
		Events:        r.clock.Current(),
		Instances:     len(r.instances),
		PendingBegins: r.pendingCountLocked(),
		Finalized:     r.finalized,
	}
	for _, m := range r.markers {
		if m.IsOrphan() {
			s.OrphanEnds++
		} else {
			s.ClosedMarkers++
		}
	}
	return s
}

func (r *Reconstructor) pendingCountLocked() int {
	n := 0
	for pair := r.pending.Oldest(); pair != nil; pair = pair.Next() {
		n += len(pair.Value)
	}
	return n
}

func cloneRecords(in []ir.Record) []ir.Record {
	out := make([]ir.Record, len(in))
	for i, rec := range in {
		out[i] = rec.Clone()
	}
	return out
}
