package engine

import (
	"fmt"

	"github.com/roach88/markerset/internal/ir"
)

// Replay builds a fresh Reconstructor, applies events in order and
// finalizes it.
func Replay(events []ir.Event, opts ...Option) ([]ir.Record, error) {
	rec := New(opts...)
	for i, ev := range events {
		if err := rec.Apply(ev); err != nil {
			return nil, fmt.Errorf("replay event %d: %w", i, err)
		}
	}
	return rec.Finalize(), nil
}

// DeterminismReport compares two independent replays of one event log.
type DeterminismReport struct {
	EventsHash    string `json:"events_hash"`
	FirstHash     string `json:"first_hash"`
	SecondHash    string `json:"second_hash"`
	Records       int    `json:"records"`
	Deterministic bool   `json:"deterministic"`
}

// VerifyDeterminism replays events twice on separate engines and compares
// the record-set hashes.
func VerifyDeterminism(events []ir.Event, opts ...Option) (DeterminismReport, error) {
	eventsHash, err := ir.EventLogHash(events)
	if err != nil {
		return DeterminismReport{}, err
	}

	first, err := Replay(events, opts...)
	if err != nil {
		return DeterminismReport{}, fmt.Errorf("first replay: %w", err)
	}
	second, err := Replay(events, opts...)
	if err != nil {
		return DeterminismReport{}, fmt.Errorf("second replay: %w", err)
	}

	h1, err := ir.RecordSetHash(first)
	if err != nil {
		return DeterminismReport{}, err
	}
	h2, err := ir.RecordSetHash(second)
	if err != nil {
		return DeterminismReport{}, err
	}

	return DeterminismReport{
		EventsHash:    eventsHash,
		FirstHash:     h1,
		SecondHash:    h2,
		Records:       len(first),
		Deterministic: h1 == h2,
	}, nil
}
