package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"golang.org/x/text/unicode/norm"
)

// ErrSessionNotFound is returned when a session ID does not exist.
var ErrSessionNotFound = errors.New("session not found")

// Session is one stored reconstruction run.
type Session struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Source      string `json:"source,omitempty"`
	Seq         int64  `json:"seq"`
	EventsHash  string `json:"events_hash,omitempty"`
	RecordsHash string `json:"records_hash,omitempty"`
	EventCount  int    `json:"event_count"`
	RecordCount int    `json:"record_count"`
}

// CreateSession inserts an empty session. Seq is assigned from the
// current maximum so ListSessions returns sessions in creation order.
//
// Session names are labels typed by operators, so they are stored NFC
// normalized. Event and record names are never normalized.
func (s *Store) CreateSession(ctx context.Context, name, source string) (Session, error) {
	sess := Session{
		ID:     s.idGen.Generate(),
		Name:   norm.NFC.String(name),
		Source: source,
	}

	err := s.db.QueryRowContext(ctx, `
		INSERT INTO sessions (id, name, source, seq)
		VALUES (?, ?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM sessions))
		RETURNING seq
	`, sess.ID, sess.Name, sess.Source).Scan(&sess.Seq)
	if err != nil {
		return Session{}, fmt.Errorf("create session: %w", err)
	}

	return sess, nil
}

// GetSession returns the session with the given ID.
// Returns ErrSessionNotFound if it does not exist.
func (s *Store) GetSession(ctx context.Context, id string) (Session, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, source, seq, events_hash, records_hash, event_count, record_count
		FROM sessions
		WHERE id = ?
	`, id)

	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, fmt.Errorf("get session %s: %w", id, ErrSessionNotFound)
	}
	if err != nil {
		return Session{}, fmt.Errorf("get session %s: %w", id, err)
	}
	return sess, nil
}

// ListSessions returns every session ordered by seq ASC, id ASC.
// A non-empty name filters to sessions with that name, compared after NFC
// normalization.
//
// Returns an empty slice (not nil) if no sessions exist.
func (s *Store) ListSessions(ctx context.Context, name string) ([]Session, error) {
	query := `
		SELECT id, name, source, seq, events_hash, records_hash, event_count, record_count
		FROM sessions`
	var args []any
	if name != "" {
		query += ` WHERE name = ?`
		args = append(args, norm.NFC.String(name))
	}
	query += ` ORDER BY seq ASC, id COLLATE BINARY ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	sessions := []Session{}
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}

	return sessions, nil
}

// DeleteSession removes a session and, by cascade, its events and records.
func (s *Store) DeleteSession(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("delete session %s: %w", id, ErrSessionNotFound)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (Session, error) {
	var sess Session
	err := row.Scan(
		&sess.ID,
		&sess.Name,
		&sess.Source,
		&sess.Seq,
		&sess.EventsHash,
		&sess.RecordsHash,
		&sess.EventCount,
		&sess.RecordCount,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Session{}, err
		}
		return Session{}, fmt.Errorf("scan session: %w", err)
	}
	return sess, nil
}
