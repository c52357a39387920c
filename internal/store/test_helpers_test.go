package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/roach88/markerset/internal/ir"
)

// createTestStore opens a fresh database under t.TempDir with
// predictable session IDs.
func createTestStore(t *testing.T, ids ...string) *Store {
	t.Helper()
	if len(ids) == 0 {
		ids = []string{"session-1", "session-2", "session-3"}
	}
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path, WithIDGenerator(NewFixedGenerator(ids...)))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestSession creates a session or fails the test.
func createTestSession(t *testing.T, s *Store, name string) Session {
	t.Helper()
	sess, err := s.CreateSession(context.Background(), name, "test")
	if err != nil {
		t.Fatalf("CreateSession() failed: %v", err)
	}
	return sess
}

// sampleEvents exercises every record shape: instance, nested closed
// markers, an orphan end and an open begin.
func sampleEvents() []ir.Event {
	return []ir.Event{
		{Kind: ir.EventBegin, Time: 1, Name: "a"},
		{Kind: ir.EventInstance, Time: 1.5, Name: "blink"},
		{Kind: ir.EventBegin, Time: 2, Name: "a"},
		{Kind: ir.EventEnd, Time: 3, Name: "orphan"},
		{Kind: ir.EventEnd, Time: 4, Name: "a"},
		{Kind: ir.EventEnd, Time: 5, Name: "a"},
		{Kind: ir.EventBegin, Time: 6, Name: "open"},
	}
}

// sampleRecords is the finalized output of sampleEvents.
func sampleRecords() []ir.Record {
	return []ir.Record{
		ir.NewMarker("a", 1, 5),
		ir.NewInstance(1.5, "blink"),
		ir.NewMarker("a", 2, 4),
		ir.NewMarker("orphan", ir.Sentinel, 3),
		ir.NewMarker("open", 6),
	}
}
