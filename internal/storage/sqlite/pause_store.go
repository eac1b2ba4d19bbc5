package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/CapobiancoR/stopwatch-desktop/internal/storage"
)

type pauseStore struct {
	db *sql.DB
}

func (s *pauseStore) Insert(ctx context.Context, pause storage.PausePeriod) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO pause_periods (id, date, started_at, ended_at, duration_seconds)
		VALUES (?, ?, ?, ?, ?)
	`, pause.ID, pause.Date, formatTime(pause.StartedAt),
		formatTime(pause.EndedAt), pause.DurationSeconds)
	if err != nil {
		return fmt.Errorf("insert pause: %w", err)
	}
	return nil
}

func (s *pauseStore) ListByDateRange(ctx context.Context, fromDate, toDate string) ([]storage.PausePeriod, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, date, started_at, ended_at, duration_seconds
		FROM pause_periods
		WHERE date >= ? AND date <= ?
		ORDER BY started_at
	`, fromDate, toDate)
	if err != nil {
		return nil, fmt.Errorf("list pauses: %w", err)
	}
	defer func() { _ = rows.Close() }()

	pauses := make([]storage.PausePeriod, 0)
	for rows.Next() {
		pause, err := scanPause(rows)
		if err != nil {
			return nil, fmt.Errorf("scan pause: %w", err)
		}
		pauses = append(pauses, *pause)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pauses: %w", err)
	}
	return pauses, nil
}

func (s *pauseStore) DeleteBefore(ctx context.Context, cutoffDate string) (int, error) {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM pause_periods WHERE date < ?
	`, cutoffDate)
	if err != nil {
		return 0, fmt.Errorf("delete pauses: %w", err)
	}
	deleted, _ := result.RowsAffected()
	return int(deleted), nil
}

func scanPause(rows *sql.Rows) (*storage.PausePeriod, error) {
	var (
		pause     storage.PausePeriod
		startedAt string
		endedAt   string
	)
	if err := rows.Scan(&pause.ID, &pause.Date, &startedAt, &endedAt, &pause.DurationSeconds); err != nil {
		return nil, err
	}

	started, err := time.Parse(time.RFC3339Nano, startedAt)
	if err != nil {
		return nil, fmt.Errorf("parse started_at: %w", err)
	}
	ended, err := time.Parse(time.RFC3339Nano, endedAt)
	if err != nil {
		return nil, fmt.Errorf("parse ended_at: %w", err)
	}
	pause.StartedAt = started
	pause.EndedAt = ended
	return &pause, nil
}
