package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a record is missing from storage.
var ErrNotFound = errors.New("storage: record not found")

// Store represents the root storage interface. Both embedded backends
// (sqlite, bolt) implement it; the core only ever talks to these
// interfaces.
type Store interface {
	Close() error
	Sessions() SessionStore
	Pauses() PauseStore
}

// SessionStore manages activity session records. Upsert is keyed by
// session ID so repeated flushes of the same open session overwrite
// rather than duplicate.
type SessionStore interface {
	Upsert(ctx context.Context, session Session) error
	Get(ctx context.Context, id string) (*Session, error)
	ListByDateRange(ctx context.Context, fromDate, toDate string) ([]Session, error)
	ListOpen(ctx context.Context) ([]Session, error)
	DeleteClosedBefore(ctx context.Context, cutoffDate string) (int, error)
}

// PauseStore manages recorded pause periods. Pauses are write-once.
type PauseStore interface {
	Insert(ctx context.Context, pause PausePeriod) error
	ListByDateRange(ctx context.Context, fromDate, toDate string) ([]PausePeriod, error)
	DeleteBefore(ctx context.Context, cutoffDate string) (int, error)
}
