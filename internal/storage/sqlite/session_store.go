package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/CapobiancoR/stopwatch-desktop/internal/storage"
)

type sessionStore struct {
	db *sql.DB
}

func (s *sessionStore) Upsert(ctx context.Context, session storage.Session) error {
	var endedAt sql.NullString
	if session.EndedAt != nil {
		endedAt = sql.NullString{String: formatTime(*session.EndedAt), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO activity_sessions (id, date, started_at, ended_at, duration_seconds, mode, active)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			ended_at = excluded.ended_at,
			duration_seconds = excluded.duration_seconds,
			mode = excluded.mode,
			active = excluded.active
	`, session.ID, session.Date, formatTime(session.StartedAt), endedAt,
		session.DurationSeconds, string(session.Mode), boolToInt(session.Active))
	if err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}
	return nil
}

func (s *sessionStore) Get(ctx context.Context, id string) (*storage.Session, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, date, started_at, ended_at, duration_seconds, mode, active
		FROM activity_sessions WHERE id = ?
	`, id)

	session, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return session, nil
}

func (s *sessionStore) ListByDateRange(ctx context.Context, fromDate, toDate string) ([]storage.Session, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, date, started_at, ended_at, duration_seconds, mode, active
		FROM activity_sessions
		WHERE date >= ? AND date <= ?
		ORDER BY started_at
	`, fromDate, toDate)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return collectSessions(rows)
}

func (s *sessionStore) ListOpen(ctx context.Context) ([]storage.Session, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, date, started_at, ended_at, duration_seconds, mode, active
		FROM activity_sessions
		WHERE active = 1
		ORDER BY started_at
	`)
	if err != nil {
		return nil, fmt.Errorf("list open sessions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return collectSessions(rows)
}

func (s *sessionStore) DeleteClosedBefore(ctx context.Context, cutoffDate string) (int, error) {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM activity_sessions WHERE active = 0 AND date < ?
	`, cutoffDate)
	if err != nil {
		return 0, fmt.Errorf("delete closed sessions: %w", err)
	}
	deleted, _ := result.RowsAffected()
	return int(deleted), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*storage.Session, error) {
	var (
		session   storage.Session
		startedAt string
		endedAt   sql.NullString
		mode      string
		active    int
	)
	if err := row.Scan(&session.ID, &session.Date, &startedAt, &endedAt,
		&session.DurationSeconds, &mode, &active); err != nil {
		return nil, err
	}

	started, err := time.Parse(time.RFC3339Nano, startedAt)
	if err != nil {
		return nil, fmt.Errorf("parse started_at: %w", err)
	}
	session.StartedAt = started

	if endedAt.Valid {
		ended, err := time.Parse(time.RFC3339Nano, endedAt.String)
		if err != nil {
			return nil, fmt.Errorf("parse ended_at: %w", err)
		}
		session.EndedAt = &ended
	}

	session.Mode = storage.Mode(mode)
	session.Active = active != 0
	return &session, nil
}

func collectSessions(rows *sql.Rows) ([]storage.Session, error) {
	sessions := make([]storage.Session, 0)
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, *session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
