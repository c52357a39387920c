package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/markerset/internal/ir"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// ReadEvents returns a session's events in arrival order (ordinal ASC).
//
// Returns an empty slice (not nil) if the session has no events, and
// ErrSessionNotFound if the session does not exist.
func (s *Store) ReadEvents(ctx context.Context, sessionID string) ([]ir.Event, error) {
	if _, err := s.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}
	return readEvents(ctx, s.db, sessionID)
}

func readEvents(ctx context.Context, q querier, sessionID string) ([]ir.Event, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT kind, at, name
		FROM events
		WHERE session_id = ?
		ORDER BY ordinal ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	events := []ir.Event{}
	for rows.Next() {
		var (
			ev   ir.Event
			kind string
		)
		if err := rows.Scan(&kind, &ev.Time, &ev.Name); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		ev.Kind = ir.EventKind(kind)
		events = append(events, ev)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}

	return events, nil
}

// ReadRecords returns a session's finalized record set in output order.
// A NULL t1 column yields a one-element Times slice.
//
// Returns an empty slice (not nil) if the session has no records, and
// ErrSessionNotFound if the session does not exist.
func (s *Store) ReadRecords(ctx context.Context, sessionID string) ([]ir.Record, error) {
	if _, err := s.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT type, name, t0, t1
		FROM records
		WHERE session_id = ?
		ORDER BY ordinal ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	records := []ir.Record{}
	for rows.Next() {
		var (
			kind string
			rec  ir.Record
			t0   float64
			t1   sql.NullFloat64
		)
		if err := rows.Scan(&kind, &rec.Name, &t0, &t1); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		rec.Kind = ir.Kind(kind)
		rec.Times = []float64{t0}
		if t1.Valid {
			rec.Times = append(rec.Times, t1.Float64)
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}

	return records, nil
}

// ReadColumns returns a session's record set in columnar form.
func (s *Store) ReadColumns(ctx context.Context, sessionID string) (ir.Columns, error) {
	records, err := s.ReadRecords(ctx, sessionID)
	if err != nil {
		return ir.Columns{}, err
	}
	return ir.Transpose(records), nil
}

// Run is everything stored for one session.
type Run struct {
	Session Session
	Events  []ir.Event
	Records []ir.Record
}

// LoadRun reads a session with its events and records, for replay.
func (s *Store) LoadRun(ctx context.Context, sessionID string) (Run, error) {
	sess, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return Run{}, fmt.Errorf("load run: %w", err)
	}

	events, err := readEvents(ctx, s.db, sessionID)
	if err != nil {
		return Run{}, fmt.Errorf("load run: %w", err)
	}

	records, err := s.ReadRecords(ctx, sessionID)
	if err != nil {
		return Run{}, fmt.Errorf("load run: %w", err)
	}

	return Run{Session: sess, Events: events, Records: records}, nil
}
