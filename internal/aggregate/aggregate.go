// Package aggregate computes daily and rolling-window totals by folding
// over stored session records. Volumes are small (a day has at most a
// few hundred sessions), so results are recomputed on each request.
package aggregate

import (
	"context"
	"fmt"
	"time"

	"github.com/CapobiancoR/stopwatch-desktop/internal/storage"
)

// Aggregator derives summaries from the session and pause stores.
type Aggregator struct {
	sessions storage.SessionStore
	pauses   storage.PauseStore
}

// New creates an aggregator over the given store.
func New(store storage.Store) *Aggregator {
	return &Aggregator{
		sessions: store.Sessions(),
		pauses:   store.Pauses(),
	}
}

// DailyTotals sums session durations for one date, grouped by mode. If
// live is the open session and belongs to that date, its in-memory
// duration replaces the stored snapshot, so "today" is current to the
// last tick rather than the last flush.
func (a *Aggregator) DailyTotals(ctx context.Context, date string, live *storage.Session) (storage.DailySummary, error) {
	sessions, err := a.sessions.ListByDateRange(ctx, date, date)
	if err != nil {
		return storage.DailySummary{}, fmt.Errorf("daily totals for %s: %w", date, err)
	}

	summary := storage.DailySummary{Date: date}
	for _, session := range sessions {
		if live != nil && session.ID == live.ID {
			continue
		}
		summary = addSession(summary, session)
	}

	if live != nil && live.Date == date {
		summary = addSession(summary, *live)
	}

	return summary, nil
}

// WindowTotals returns one summary per calendar day in the n-day window
// ending at end, ordered oldest to newest, with missing days zeroed.
func (a *Aggregator) WindowTotals(ctx context.Context, days int, end time.Time, live *storage.Session) ([]storage.DailySummary, error) {
	if days < 1 {
		return nil, fmt.Errorf("window must cover at least one day, got %d", days)
	}

	start := end.AddDate(0, 0, -(days - 1))
	fromDate := start.Format(storage.DateFormat)
	toDate := end.Format(storage.DateFormat)

	sessions, err := a.sessions.ListByDateRange(ctx, fromDate, toDate)
	if err != nil {
		return nil, fmt.Errorf("window totals %s..%s: %w", fromDate, toDate, err)
	}

	byDate := make(map[string]storage.DailySummary, days)
	for _, session := range sessions {
		if live != nil && session.ID == live.ID {
			continue
		}
		byDate[session.Date] = addSession(byDate[session.Date], session)
	}
	if live != nil && live.Date >= fromDate && live.Date <= toDate {
		byDate[live.Date] = addSession(byDate[live.Date], *live)
	}

	window := make([]storage.DailySummary, 0, days)
	for i := 0; i < days; i++ {
		date := start.AddDate(0, 0, i).Format(storage.DateFormat)
		summary := byDate[date]
		summary.Date = date
		window = append(window, summary)
	}

	return window, nil
}

// PausesForDate lists recorded pause periods for one date.
func (a *Aggregator) PausesForDate(ctx context.Context, date string) ([]storage.PausePeriod, error) {
	pauses, err := a.pauses.ListByDateRange(ctx, date, date)
	if err != nil {
		return nil, fmt.Errorf("pauses for %s: %w", date, err)
	}
	return pauses, nil
}

func addSession(summary storage.DailySummary, session storage.Session) storage.DailySummary {
	switch session.Mode {
	case storage.ModeLeisure:
		summary.LeisureSeconds += session.DurationSeconds
	default:
		summary.WorkSeconds += session.DurationSeconds
	}
	return summary
}
