package ir

import "fmt"

// Sentinel is stored as the start time of a marker whose end had no
// matching begin.
const Sentinel = -1.0

// Kind tags a reconstructed record.
type Kind string

const (
	KindInstance Kind = "Instance"
	KindMarker   Kind = "Marker"
)

// EventKind tags an input event.
type EventKind string

const (
	EventInstance EventKind = "instance"
	EventBegin    EventKind = "begin"
	EventEnd      EventKind = "end"
)

// Valid reports whether k is one of the three known event kinds.
func (k EventKind) Valid() bool {
	switch k {
	case EventInstance, EventBegin, EventEnd:
		return true
	}
	return false
}

// Event is a single timestamped call into the reconstruction engine.
type Event struct {
	Kind EventKind `json:"kind" yaml:"kind"`
	Time float64   `json:"at" yaml:"at"`
	Name string    `json:"name" yaml:"name"`
}

func (e Event) String() string {
	return fmt.Sprintf("%s(%g, %q)", e.Kind, e.Time, e.Name)
}

// Record is one reconstructed instance or marker.
//
// Times layouts:
//
//	Instance          [t]
//	closed Marker     [start, end]
//	orphan-end Marker [Sentinel, end]
//	open Marker       [start]
type Record struct {
	Kind  Kind      `json:"type" yaml:"type"`
	Name  string    `json:"name" yaml:"name"`
	Times []float64 `json:"times" yaml:"times"`
}

// NewInstance builds an instance record at t.
func NewInstance(t float64, name string) Record {
	return Record{Kind: KindInstance, Name: name, Times: []float64{t}}
}

// NewMarker builds a marker record from its start and optional end.
func NewMarker(name string, times ...float64) Record {
	return Record{Kind: KindMarker, Name: name, Times: append([]float64(nil), times...)}
}

// SortKey is the chronological position of the record. Orphan-end markers
// sort by their end time rather than the sentinel.
func (r Record) SortKey() float64 {
	if len(r.Times) == 0 {
		return 0
	}
	if r.Times[0] < 0 {
		return r.Times[len(r.Times)-1]
	}
	return r.Times[0]
}

// IsOpen reports whether r is a marker whose begin was never closed.
func (r Record) IsOpen() bool {
	return r.Kind == KindMarker && len(r.Times) == 1
}

// IsOrphan reports whether r is a marker closed without an observed begin.
func (r Record) IsOrphan() bool {
	return r.Kind == KindMarker && len(r.Times) == 2 && r.Times[0] == Sentinel
}

// Equal compares kind, name and times element-wise.
func (r Record) Equal(o Record) bool {
	if r.Kind != o.Kind || r.Name != o.Name || len(r.Times) != len(o.Times) {
		return false
	}
	for i := range r.Times {
		if r.Times[i] != o.Times[i] {
			return false
		}
	}
	return true
}

// Clone returns a copy of r that shares no backing array.
func (r Record) Clone() Record {
	r.Times = append([]float64(nil), r.Times...)
	return r
}

func (r Record) String() string {
	return fmt.Sprintf("%s(%q, %v)", r.Kind, r.Name, r.Times)
}
