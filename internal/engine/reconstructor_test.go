package engine

import (
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/markerset/internal/ir"
)

func newTestReconstructor() *Reconstructor {
	return New(WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
}

// obj is a compact expected record: kind, name, times.
type obj struct {
	kind  ir.Kind
	name  string
	times []float64
}

func marker(name string, times ...float64) obj {
	return obj{ir.KindMarker, name, times}
}

func instance(name string, t float64) obj {
	return obj{ir.KindInstance, name, []float64{t}}
}

func assertRecords(t *testing.T, want []obj, got []ir.Record) {
	t.Helper()
	require.Len(t, got, len(want), "record count; got %v", got)
	for i, w := range want {
		assert.Equal(t, w.kind, got[i].Kind, "record %d kind", i)
		assert.Equal(t, w.name, got[i].Name, "record %d name", i)
		assert.Equal(t, w.times, got[i].Times, "record %d times", i)
	}
}

func TestReconstruct_None(t *testing.T) {
	r := newTestReconstructor()
	assert.Empty(t, r.Finalize())
}

func TestReconstruct_Begin(t *testing.T) {
	r := newTestReconstructor()
	require.NoError(t, r.Begin(3.14, "test"))

	assertRecords(t, []obj{marker("test", 3.14)}, r.Finalize())
}

func TestReconstruct_BeginEnd(t *testing.T) {
	r := newTestReconstructor()
	require.NoError(t, r.Begin(3.2, "foo"))
	require.NoError(t, r.End(3.3, "foo"))

	assertRecords(t, []obj{marker("foo", 3.2, 3.3)}, r.Finalize())
}

func TestReconstruct_BeginBegin(t *testing.T) {
	r := newTestReconstructor()
	require.NoError(t, r.Begin(1, "bob"))
	require.NoError(t, r.Begin(512, "dole"))

	assertRecords(t, []obj{
		marker("bob", 1),
		marker("dole", 512),
	}, r.Finalize())
}

func TestReconstruct_EndEnd(t *testing.T) {
	r := newTestReconstructor()
	require.NoError(t, r.End(1, "baz"))
	require.NoError(t, r.End(2, "baz"))

	assertRecords(t, []obj{
		marker("baz", ir.Sentinel, 1),
		marker("baz", ir.Sentinel, 2),
	}, r.Finalize())
}

func TestReconstruct_ABA(t *testing.T) {
	r := newTestReconstructor()
	require.NoError(t, r.Begin(1, "a"))
	require.NoError(t, r.Begin(2, "b"))
	require.NoError(t, r.End(3, "a"))

	assertRecords(t, []obj{
		marker("a", 1, 3),
		marker("b", 2),
	}, r.Finalize())
}

func TestReconstruct_ABB(t *testing.T) {
	r := newTestReconstructor()
	require.NoError(t, r.Begin(1, "a"))
	require.NoError(t, r.Begin(2, "b"))
	require.NoError(t, r.End(3, "b"))

	assertRecords(t, []obj{
		marker("a", 1),
		marker("b", 2, 3),
	}, r.Finalize())
}

func TestReconstruct_Nested(t *testing.T) {
	r := newTestReconstructor()
	require.NoError(t, r.Begin(1, "b"))
	require.NoError(t, r.Begin(2, "a"))
	require.NoError(t, r.End(3, "a"))
	require.NoError(t, r.End(4, "b"))

	assertRecords(t, []obj{
		marker("b", 1, 4),
		marker("a", 2, 3),
	}, r.Finalize())
}

func TestReconstruct_Overlapping(t *testing.T) {
	r := newTestReconstructor()
	require.NoError(t, r.Begin(1, "a"))
	require.NoError(t, r.Begin(2, "b"))
	require.NoError(t, r.End(3, "a"))
	require.NoError(t, r.End(4, "b"))

	assertRecords(t, []obj{
		marker("a", 1, 3),
		marker("b", 2, 4),
	}, r.Finalize())
}

func TestReconstruct_Instances(t *testing.T) {
	r := newTestReconstructor()
	require.NoError(t, r.Instance(5123.5, "wut"))

	assertRecords(t, []obj{instance("wut", 5123.5)}, r.Finalize())
}

func TestReconstruct_InstancesAndMarkers(t *testing.T) {
	r := newTestReconstructor()
	require.NoError(t, r.Instance(1, "wut"))
	require.NoError(t, r.Begin(2, "tsst"))
	require.NoError(t, r.End(3, "tsst"))
	require.NoError(t, r.Begin(4, "abc"))
	require.NoError(t, r.End(5, "abc"))
	require.NoError(t, r.Begin(6, "abc"))
	require.NoError(t, r.End(7, "def"))

	assertRecords(t, []obj{
		instance("wut", 1),
		marker("tsst", 2, 3),
		marker("abc", 4, 5),
		marker("abc", 6),
		marker("def", ir.Sentinel, 7),
	}, r.Finalize())
}

func TestReconstruct_SameNameNested(t *testing.T) {
	r := newTestReconstructor()
	require.NoError(t, r.Begin(1, "a"))
	require.NoError(t, r.Begin(2, "a"))
	require.NoError(t, r.End(4, "a"))
	require.NoError(t, r.End(5, "a"))

	assertRecords(t, []obj{
		marker("a", 1, 5),
		marker("a", 2, 4),
	}, r.Finalize())
}

func TestReconstruct_SameNameNested_InnermostClosesFirst(t *testing.T) {
	r := newTestReconstructor()
	require.NoError(t, r.Begin(1, "a"))
	require.NoError(t, r.Begin(2, "a"))
	require.NoError(t, r.End(4, "a"))

	// Before the outer end arrives, only the inner pair is closed and the
	// outer begin is still pending.
	pending := r.Pending()
	require.Len(t, pending, 1)
	assert.Equal(t, []float64{1}, pending[0].Starts)

	require.NoError(t, r.End(5, "a"))
	assert.Empty(t, r.Pending())
}

func TestReconstruct_FinalizeTwice(t *testing.T) {
	r := newTestReconstructor()
	require.NoError(t, r.Instance(1, "abc"))
	require.NoError(t, r.Begin(2, "def"))
	require.NoError(t, r.Begin(3, "fgh"))
	require.NoError(t, r.End(4, "fgh"))

	want := []obj{
		instance("abc", 1),
		marker("def", 2),
		marker("fgh", 3, 4),
	}
	assertRecords(t, want, r.Finalize())
	// The open "def" marker must not be appended a second time.
	assertRecords(t, want, r.Finalize())
}

func TestReconstruct_FinalizeReturnsCopy(t *testing.T) {
	r := newTestReconstructor()
	require.NoError(t, r.Begin(1, "a"))
	require.NoError(t, r.End(2, "a"))

	first := r.Finalize()
	first[0].Times[0] = 99
	first[0].Name = "mutated"

	assertRecords(t, []obj{marker("a", 1, 2)}, r.Finalize())
}

func TestReconstruct_InstanceDoesNotTouchStacks(t *testing.T) {
	r := newTestReconstructor()
	require.NoError(t, r.Begin(1, "x"))
	require.NoError(t, r.Instance(2, "x"))
	require.NoError(t, r.End(3, "x"))

	assertRecords(t, []obj{
		marker("x", 1, 3),
		instance("x", 2),
	}, r.Finalize())
}

func TestReconstruct_OrphanEndSortsByEndTime(t *testing.T) {
	r := newTestReconstructor()
	require.NoError(t, r.Begin(1, "a"))
	require.NoError(t, r.End(5, "zzz"))
	require.NoError(t, r.Begin(6, "b"))
	require.NoError(t, r.End(7, "a"))

	assertRecords(t, []obj{
		marker("a", 1, 7),
		marker("zzz", ir.Sentinel, 5),
		marker("b", 6),
	}, r.Finalize())
}

func TestReconstruct_StableTies(t *testing.T) {
	r := newTestReconstructor()
	// All records share sort key 1. Expected order is append order:
	// instances, then closed/orphan markers in close order, then open
	// markers by first-referenced name.
	require.NoError(t, r.Begin(1, "open-late"))
	require.NoError(t, r.Begin(1, "pair"))
	require.NoError(t, r.Begin(1, "pair"))
	require.NoError(t, r.Instance(1, "i1"))
	require.NoError(t, r.End(1, "orphan"))
	require.NoError(t, r.End(1, "pair"))
	require.NoError(t, r.Instance(1, "i2"))
	require.NoError(t, r.End(1, "pair"))
	require.NoError(t, r.Begin(1, "open-early"))

	assertRecords(t, []obj{
		instance("i1", 1),
		instance("i2", 1),
		marker("orphan", ir.Sentinel, 1),
		marker("pair", 1, 1),
		marker("pair", 1, 1),
		marker("open-late", 1),
		marker("open-early", 1),
	}, r.Finalize())
}

func TestReconstruct_OpenMarkersFirstReferencedOrder(t *testing.T) {
	r := newTestReconstructor()
	// "b" is first referenced by an orphan end, before "a" is begun.
	require.NoError(t, r.End(0, "b"))
	require.NoError(t, r.Begin(5, "a"))
	require.NoError(t, r.Begin(5, "b"))
	require.NoError(t, r.Begin(5, "a"))

	got := r.Finalize()
	assertRecords(t, []obj{
		marker("b", ir.Sentinel, 0),
		marker("b", 5),
		marker("a", 5),
		marker("a", 5),
	}, got)
}

func TestReconstruct_ManyOpenSameName_OldestFirst(t *testing.T) {
	r := newTestReconstructor()
	require.NoError(t, r.Begin(3, "a"))
	require.NoError(t, r.Begin(2, "a"))
	require.NoError(t, r.Begin(1, "a"))

	// Out-of-order input is accepted; the sort puts them by value.
	assertRecords(t, []obj{
		marker("a", 1),
		marker("a", 2),
		marker("a", 3),
	}, r.Finalize())
}

func TestReconstruct_LIFOPairingProperty(t *testing.T) {
	r := newTestReconstructor()
	starts := []float64{1, 2, 3, 4, 5}
	for _, s := range starts {
		require.NoError(t, r.Begin(s, "n"))
	}
	ends := []float64{10, 11, 12, 13, 14}
	for _, e := range ends {
		require.NoError(t, r.End(e, "n"))
	}

	stats := r.Stats()
	assert.Equal(t, len(ends), stats.ClosedMarkers, "one closed marker per end")
	assert.Zero(t, stats.PendingBegins)

	got := r.Finalize()
	require.Len(t, got, 5)
	// Sorted by start; each start s was closed by the end pushed
	// (len-1-index) positions later, i.e. nesting.
	for i, rec := range got {
		assert.Equal(t, starts[i], rec.Times[0])
		assert.Equal(t, ends[len(ends)-1-i], rec.Times[1])
	}
}

func TestReconstruct_MutationAfterFinalize(t *testing.T) {
	r := newTestReconstructor()
	require.NoError(t, r.Begin(1, "a"))
	r.Finalize()

	tests := []struct {
		name string
		call func() error
	}{
		{"instance", func() error { return r.Instance(2, "a") }},
		{"begin", func() error { return r.Begin(2, "a") }},
		{"end", func() error { return r.End(2, "a") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			require.Error(t, err)
			assert.True(t, IsFinalizedError(err))
		})
	}

	// The rejected calls left the result untouched.
	assertRecords(t, []obj{marker("a", 1)}, r.Finalize())
	assert.True(t, r.Finalized())
}

func TestReconstruct_UnknownEventKind(t *testing.T) {
	r := newTestReconstructor()
	err := r.Apply(ir.Event{Kind: "pause", Time: 1, Name: "x"})

	require.Error(t, err)
	assert.True(t, IsUnknownEventError(err))
	assert.Zero(t, r.Stats().Events, "rejected events do not advance the clock")
	assert.Empty(t, r.Finalize())
}

func TestReconstruct_Columns(t *testing.T) {
	r := newTestReconstructor()
	require.NoError(t, r.Begin(1, "b"))
	require.NoError(t, r.Begin(2, "a"))
	require.NoError(t, r.End(3, "a"))
	require.NoError(t, r.End(4, "b"))

	cols := r.Columns()
	assert.Equal(t, []ir.Kind{ir.KindMarker, ir.KindMarker}, cols.Kind)
	assert.Equal(t, []string{"b", "a"}, cols.Name)
	assert.Equal(t, [][]float64{{1, 4}, {2, 3}}, cols.Times)
	assert.True(t, r.Finalized())
}

func TestReconstruct_Stats(t *testing.T) {
	r := newTestReconstructor()
	require.NoError(t, r.Instance(0, "i"))
	require.NoError(t, r.Begin(1, "a"))
	require.NoError(t, r.End(2, "a"))
	require.NoError(t, r.End(3, "b"))
	require.NoError(t, r.Begin(4, "c"))

	assert.Equal(t, Stats{
		Events:        5,
		Instances:     1,
		ClosedMarkers: 1,
		OrphanEnds:    1,
		PendingBegins: 1,
	}, r.Stats())
}

func TestReconstruct_IndependentInstances(t *testing.T) {
	a := newTestReconstructor()
	b := newTestReconstructor()
	require.NoError(t, a.Begin(1, "x"))
	require.NoError(t, b.End(2, "x"))

	assertRecords(t, []obj{marker("x", 1)}, a.Finalize())
	assertRecords(t, []obj{marker("x", ir.Sentinel, 2)}, b.Finalize())
}

func TestReconstruct_ConcurrentCallsSerialized(t *testing.T) {
	r := newTestReconstructor()
	const goroutines = 20
	const perGoroutine = 50

	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perGoroutine; i++ {
				_ = r.Instance(float64(i), "tick")
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(goroutines*perGoroutine), r.Stats().Events)
	assert.Len(t, r.Finalize(), goroutines*perGoroutine)
}

func TestWithClock_ContinuesNumbering(t *testing.T) {
	r := New(WithClock(NewClockAt(100)), WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	require.NoError(t, r.Instance(1, "a"))

	assert.Equal(t, int64(101), r.Stats().Events)
}
