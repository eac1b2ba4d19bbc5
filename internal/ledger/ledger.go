// Package ledger owns the single open activity session and its
// transitions between work, leisure and no-session states.
package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/CapobiancoR/stopwatch-desktop/internal/clock"
	"github.com/CapobiancoR/stopwatch-desktop/internal/monitor"
	"github.com/CapobiancoR/stopwatch-desktop/internal/storage"
)

// Ledger maintains at most one open session system-wide. Ticks advance
// the open session, idle transitions close it, and mode switches close
// and reopen it with no gap. Failed writes are queued and retried on the
// next flush; in-memory state is never discarded.
type Ledger struct {
	sessions storage.SessionStore
	clock    clock.Clock
	logger   zerolog.Logger

	mu      sync.Mutex
	open    *storage.Session
	mode    storage.Mode
	pending []storage.Session // closed sessions whose write failed
}

// New creates a ledger starting in the no-session state.
func New(sessions storage.SessionStore, clk clock.Clock, logger zerolog.Logger) *Ledger {
	return &Ledger{
		sessions: sessions,
		clock:    clk,
		logger:   logger.With().Str("component", "ledger").Logger(),
		mode:     storage.ModeWork,
	}
}

// Recover closes any session left open by an unclean shutdown, using its
// last flushed duration rather than extrapolating. Must be called before
// the first tick.
func (l *Ledger) Recover(ctx context.Context) error {
	leftover, err := l.sessions.ListOpen(ctx)
	if err != nil {
		return fmt.Errorf("list open sessions: %w", err)
	}

	for _, session := range leftover {
		endedAt := session.StartedAt.Add(time.Duration(session.DurationSeconds) * time.Second)
		session.EndedAt = &endedAt
		session.Active = false

		if err := l.sessions.Upsert(ctx, session); err != nil {
			return fmt.Errorf("close leftover session %s: %w", session.ID, err)
		}

		l.logger.Info().
			Str("session_id", session.ID).
			Str("date", session.Date).
			Int64("duration_seconds", session.DurationSeconds).
			Msg("Closed session left over from unclean shutdown")
	}

	return nil
}

// Mode returns the current mode flag.
func (l *Ledger) Mode() storage.Mode {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.mode
}

// SetMode flips the work/leisure flag. If a session is open it is closed
// and a new one opened in the other mode, sharing a single timestamp so
// there is no gap and no overlap. With no open session, the flag only
// affects the next session opened.
func (l *Ledger) SetMode(ctx context.Context, mode storage.Mode) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if mode == l.mode {
		return
	}
	l.mode = mode

	if l.open == nil {
		return
	}

	now := l.clock.Now()
	l.closeOpen(ctx, now)
	l.openSession(ctx, now)
}

// Tick advances the ledger by one poll sample. While active, the open
// session's duration is re-derived from its start time rather than
// accumulated, so tick jitter cannot drift the total.
func (l *Ledger) Tick(ctx context.Context, sample monitor.Sample) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()

	if sample.Active {
		if l.open == nil {
			l.openSession(ctx, now)
		} else {
			l.open.DurationSeconds = int64(now.Sub(l.open.StartedAt).Seconds())
		}
		return
	}

	if sample.BecameIdle && l.open != nil {
		l.closeOpen(ctx, now)
	}
}

// OpenSession returns a copy of the current open session, or nil.
func (l *Ledger) OpenSession() *storage.Session {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.open == nil {
		return nil
	}
	copied := *l.open
	return &copied
}

// Flush writes the current open session snapshot and retries any queued
// failed writes. A failure is non-fatal: state stays in memory for the
// next flush.
func (l *Ledger) Flush(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.flushLocked(ctx)
}

// Shutdown closes the open session, if any, and performs a final flush.
func (l *Ledger) Shutdown(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.open != nil {
		l.closeOpen(ctx, l.clock.Now())
	}
	return l.flushLocked(ctx)
}

func (l *Ledger) flushLocked(ctx context.Context) error {
	// Retry closed sessions that failed to persist.
	remaining := l.pending[:0]
	for _, session := range l.pending {
		if err := l.sessions.Upsert(ctx, session); err != nil {
			remaining = append(remaining, session)
			l.logger.Warn().Err(err).Str("session_id", session.ID).Msg("Retry of session write failed")
		}
	}
	l.pending = remaining

	if l.open != nil {
		l.open.DurationSeconds = int64(l.clock.Now().Sub(l.open.StartedAt).Seconds())
		if err := l.sessions.Upsert(ctx, *l.open); err != nil {
			return fmt.Errorf("flush open session: %w", err)
		}
	}

	if len(l.pending) > 0 {
		return fmt.Errorf("%d closed session(s) still unflushed", len(l.pending))
	}
	return nil
}

// openSession starts a new session at the given instant in the current
// mode. Callers hold the lock.
func (l *Ledger) openSession(ctx context.Context, now time.Time) {
	session := &storage.Session{
		ID:        storage.NewRecordID(),
		Date:      now.Format(storage.DateFormat),
		StartedAt: now,
		Mode:      l.mode,
		Active:    true,
	}
	l.open = session

	if err := l.sessions.Upsert(ctx, *session); err != nil {
		// Not fatal; the next flush writes the same snapshot.
		l.logger.Warn().Err(err).Str("session_id", session.ID).Msg("Failed to persist new session")
	}

	l.logger.Info().
		Str("session_id", session.ID).
		Str("mode", string(session.Mode)).
		Msg("Opened session")
}

// closeOpen closes the current open session at the given instant.
// Callers hold the lock and must ensure l.open is non-nil.
func (l *Ledger) closeOpen(ctx context.Context, now time.Time) {
	session := l.open
	l.open = nil

	endedAt := now
	session.EndedAt = &endedAt
	session.DurationSeconds = int64(now.Sub(session.StartedAt).Seconds())
	session.Active = false

	if err := l.sessions.Upsert(ctx, *session); err != nil {
		l.pending = append(l.pending, *session)
		l.logger.Warn().Err(err).Str("session_id", session.ID).Msg("Failed to persist closed session, queued for retry")
	}

	l.logger.Info().
		Str("session_id", session.ID).
		Str("mode", string(session.Mode)).
		Int64("duration_seconds", session.DurationSeconds).
		Msg("Closed session")
}
