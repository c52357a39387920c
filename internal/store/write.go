package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/markerset/internal/ir"
)

// WriteEvents appends events to a session after any already stored, then
// recomputes the session's event hash over the full log.
//
// The whole append runs in one transaction: either every event lands or
// none do.
func (s *Store) WriteEvents(ctx context.Context, sessionID string, events []ir.Event) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		return writeEventsTx(ctx, tx, sessionID, events)
	})
}

// WriteRecords replaces a session's record set and stores its hash.
// Records are stored in the order given; that order is the output order.
func (s *Store) WriteRecords(ctx context.Context, sessionID string, records []ir.Record) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		return writeRecordsTx(ctx, tx, sessionID, records)
	})
}

// SaveRun creates a session and writes its events and records in a single
// transaction.
func (s *Store) SaveRun(ctx context.Context, name, source string, events []ir.Event, records []ir.Record) (Session, error) {
	sess, err := s.CreateSession(ctx, name, source)
	if err != nil {
		return Session{}, err
	}

	err = s.withTx(ctx, func(tx *sql.Tx) error {
		if err := writeEventsTx(ctx, tx, sess.ID, events); err != nil {
			return err
		}
		return writeRecordsTx(ctx, tx, sess.ID, records)
	})
	if err != nil {
		// Leave no half-written session behind.
		if delErr := s.DeleteSession(ctx, sess.ID); delErr != nil {
			return Session{}, fmt.Errorf("save run: %w (cleanup: %v)", err, delErr)
		}
		return Session{}, fmt.Errorf("save run: %w", err)
	}

	return s.GetSession(ctx, sess.ID)
}

func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func writeEventsTx(ctx context.Context, tx *sql.Tx, sessionID string, events []ir.Event) error {
	if err := sessionExistsTx(ctx, tx, sessionID); err != nil {
		return fmt.Errorf("write events: %w", err)
	}

	var next int64
	err := tx.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(ordinal), -1) + 1 FROM events WHERE session_id = ?
	`, sessionID).Scan(&next)
	if err != nil {
		return fmt.Errorf("write events: next ordinal: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO events (session_id, ordinal, kind, at, name)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("write events: prepare: %w", err)
	}
	defer stmt.Close()

	for i, ev := range events {
		if !ev.Kind.Valid() {
			return fmt.Errorf("write events: event %d: unknown kind %q", i, ev.Kind)
		}
		if _, err := stmt.ExecContext(ctx, sessionID, next+int64(i), string(ev.Kind), ev.Time, ev.Name); err != nil {
			return fmt.Errorf("write events: event %d: %w", i, err)
		}
	}

	all, err := readEvents(ctx, tx, sessionID)
	if err != nil {
		return fmt.Errorf("write events: %w", err)
	}
	hash, err := ir.EventLogHash(all)
	if err != nil {
		return fmt.Errorf("write events: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE sessions SET events_hash = ?, event_count = ? WHERE id = ?
	`, hash, len(all), sessionID)
	if err != nil {
		return fmt.Errorf("write events: update session: %w", err)
	}
	return nil
}

func writeRecordsTx(ctx context.Context, tx *sql.Tx, sessionID string, records []ir.Record) error {
	if err := sessionExistsTx(ctx, tx, sessionID); err != nil {
		return fmt.Errorf("write records: %w", err)
	}

	hash, err := ir.RecordSetHash(records)
	if err != nil {
		return fmt.Errorf("write records: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM records WHERE session_id = ?`, sessionID); err != nil {
		return fmt.Errorf("write records: clear: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO records (session_id, ordinal, type, name, t0, t1)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("write records: prepare: %w", err)
	}
	defer stmt.Close()

	for i, rec := range records {
		t0, t1, err := splitTimes(rec)
		if err != nil {
			return fmt.Errorf("write records: record %d: %w", i, err)
		}
		if _, err := stmt.ExecContext(ctx, sessionID, i, string(rec.Kind), rec.Name, t0, t1); err != nil {
			return fmt.Errorf("write records: record %d: %w", i, err)
		}
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE sessions SET records_hash = ?, record_count = ? WHERE id = ?
	`, hash, len(records), sessionID)
	if err != nil {
		return fmt.Errorf("write records: update session: %w", err)
	}
	return nil
}

// splitTimes maps a record's one or two times onto the t0/t1 columns.
func splitTimes(rec ir.Record) (float64, sql.NullFloat64, error) {
	switch len(rec.Times) {
	case 1:
		return rec.Times[0], sql.NullFloat64{}, nil
	case 2:
		return rec.Times[0], sql.NullFloat64{Float64: rec.Times[1], Valid: true}, nil
	default:
		return 0, sql.NullFloat64{}, fmt.Errorf("%s %q has %d times, want 1 or 2", rec.Kind, rec.Name, len(rec.Times))
	}
}

func sessionExistsTx(ctx context.Context, tx *sql.Tx, sessionID string) error {
	var one int
	err := tx.QueryRowContext(ctx, `SELECT 1 FROM sessions WHERE id = ?`, sessionID).Scan(&one)
	if err == sql.ErrNoRows {
		return fmt.Errorf("session %s: %w", sessionID, ErrSessionNotFound)
	}
	if err != nil {
		return fmt.Errorf("session %s: %w", sessionID, err)
	}
	return nil
}
