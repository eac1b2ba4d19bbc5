// Package tracker drives the activity accounting loop: a 1s tick
// advancing the monitor and ledger, a 60s autosave flush, and graceful
// shutdown with one final synchronous flush.
package tracker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/CapobiancoR/stopwatch-desktop/internal/aggregate"
	"github.com/CapobiancoR/stopwatch-desktop/internal/clock"
	"github.com/CapobiancoR/stopwatch-desktop/internal/ledger"
	"github.com/CapobiancoR/stopwatch-desktop/internal/metrics"
	"github.com/CapobiancoR/stopwatch-desktop/internal/monitor"
	"github.com/CapobiancoR/stopwatch-desktop/internal/settings"
	"github.com/CapobiancoR/stopwatch-desktop/internal/storage"
)

const (
	// DefaultTickInterval drives the ledger and monitor.
	DefaultTickInterval = 1 * time.Second

	// DefaultFlushInterval is the autosave period.
	DefaultFlushInterval = 60 * time.Second
)

// Config holds tracker configuration.
type Config struct {
	TickInterval  time.Duration
	FlushInterval time.Duration
	RetentionDays int
}

// Tracker coordinates the monitor, ledger and stores.
type Tracker struct {
	monitor    *monitor.Monitor
	ledger     *ledger.Ledger
	aggregator *aggregate.Aggregator
	store      storage.Store
	settings   *settings.FileStore
	clock      clock.Clock
	logger     zerolog.Logger
	config     Config

	mu            sync.Mutex
	threshold     time.Duration
	pendingPauses []storage.PausePeriod // failed pause writes, retried on flush

	stopChan chan struct{}
	doneChan chan struct{}
}

// New creates a tracker. The idle threshold is loaded from the settings
// store, falling back to the default when missing or corrupt.
func New(m *monitor.Monitor, l *ledger.Ledger, store storage.Store, settingsStore *settings.FileStore, clk clock.Clock, config Config, logger zerolog.Logger) *Tracker {
	if config.TickInterval == 0 {
		config.TickInterval = DefaultTickInterval
	}
	if config.FlushInterval == 0 {
		config.FlushInterval = DefaultFlushInterval
	}

	loaded := settingsStore.Load()

	return &Tracker{
		monitor:    m,
		ledger:     l,
		aggregator: aggregate.New(store),
		store:      store,
		settings:   settingsStore,
		clock:      clk,
		logger:     logger.With().Str("component", "tracker").Logger(),
		config:     config,
		threshold:  loaded.IdleThreshold,
		stopChan:   make(chan struct{}),
		doneChan:   make(chan struct{}),
	}
}

// IdleThreshold returns the current idle threshold.
func (t *Tracker) IdleThreshold() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.threshold
}

// SetIdleThreshold clamps, persists and applies a new idle threshold.
// The new value is read on the next poll; no restart is needed.
func (t *Tracker) SetIdleThreshold(threshold time.Duration) error {
	clamped := settings.Settings{IdleThreshold: threshold}.Clamp()

	if err := t.settings.Save(clamped); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}

	t.mu.Lock()
	t.threshold = clamped.IdleThreshold
	t.mu.Unlock()
	return nil
}

// Mode returns the current work/leisure flag.
func (t *Tracker) Mode() storage.Mode {
	return t.ledger.Mode()
}

// SetMode flips the work/leisure flag, closing and reopening the open
// session if there is one.
func (t *Tracker) SetMode(ctx context.Context, mode storage.Mode) {
	previous := t.ledger.Mode()
	open := t.ledger.OpenSession()

	t.ledger.SetMode(ctx, mode)

	if mode == previous || open == nil {
		return
	}
	metrics.SessionsClosed.WithLabelValues(string(previous), "mode_switch").Inc()
	metrics.SessionsOpened.WithLabelValues(string(mode)).Inc()
}

// Start recovers leftover state, sweeps expired records and launches the
// tick and autosave loop.
func (t *Tracker) Start(ctx context.Context) error {
	if err := t.ledger.Recover(ctx); err != nil {
		return fmt.Errorf("recover ledger: %w", err)
	}

	t.sweep(ctx)

	go t.run()
	t.logger.Info().
		Dur("tick_interval", t.config.TickInterval).
		Dur("flush_interval", t.config.FlushInterval).
		Msg("Tracker started")
	return nil
}

// Stop halts the loop and performs one final synchronous flush, closing
// the open session.
func (t *Tracker) Stop(ctx context.Context) error {
	close(t.stopChan)
	<-t.doneChan

	t.flushPauses(ctx)
	if err := t.ledger.Shutdown(ctx); err != nil {
		return fmt.Errorf("final flush: %w", err)
	}

	t.logger.Info().Msg("Tracker stopped")
	return nil
}

func (t *Tracker) run() {
	defer close(t.doneChan)

	tick := time.NewTicker(t.config.TickInterval)
	defer tick.Stop()

	flush := time.NewTicker(t.config.FlushInterval)
	defer flush.Stop()

	for {
		select {
		case <-tick.C:
			t.Tick(context.Background())
		case <-flush.C:
			t.FlushNow(context.Background())
		case <-t.stopChan:
			return
		}
	}
}

// Tick performs one poll of the monitor and advances the ledger. Pause
// periods completed by an idle-to-active transition are recorded; a
// failed write keeps the pause in memory for the next flush.
func (t *Tracker) Tick(ctx context.Context) monitor.Sample {
	sample := t.monitor.Poll(t.IdleThreshold())

	mode := t.ledger.Mode()
	before := t.ledger.OpenSession()
	t.ledger.Tick(ctx, sample)

	if before == nil && sample.Active {
		metrics.SessionsOpened.WithLabelValues(string(mode)).Inc()
	}
	if sample.BecameIdle && before != nil {
		metrics.SessionsClosed.WithLabelValues(string(before.Mode), "idle").Inc()
	}
	if sample.Active {
		metrics.SecondsTracked.WithLabelValues(string(mode)).Add(t.config.TickInterval.Seconds())
	}

	metrics.IdleSeconds.Set(sample.IdleFor.Seconds())
	if sample.Active {
		metrics.UserIdle.Set(0)
	} else {
		metrics.UserIdle.Set(1)
	}

	if sample.Pause != nil {
		t.recordPause(ctx, *sample.Pause)
	}

	return sample
}

// FlushNow writes the open session snapshot and retries queued failed
// writes. Failures are logged and retried on the next flush.
func (t *Tracker) FlushNow(ctx context.Context) {
	t.flushPauses(ctx)

	if err := t.ledger.Flush(ctx); err != nil {
		metrics.FlushFailures.Inc()
		t.logger.Warn().Err(err).Msg("Autosave flush failed, keeping state in memory")
	}
}

// Today returns the live daily summary for the current date, including
// the open session's current elapsed time.
func (t *Tracker) Today(ctx context.Context) (storage.DailySummary, error) {
	date := t.clock.Now().Format(storage.DateFormat)
	return t.aggregator.DailyTotals(ctx, date, t.ledger.OpenSession())
}

// Window returns daily summaries for the n-day window ending today,
// oldest to newest.
func (t *Tracker) Window(ctx context.Context, days int) ([]storage.DailySummary, error) {
	return t.aggregator.WindowTotals(ctx, days, t.clock.Now(), t.ledger.OpenSession())
}

func (t *Tracker) recordPause(ctx context.Context, pause storage.PausePeriod) {
	if err := t.store.Pauses().Insert(ctx, pause); err != nil {
		t.mu.Lock()
		t.pendingPauses = append(t.pendingPauses, pause)
		t.mu.Unlock()
		t.logger.Warn().Err(err).Str("pause_id", pause.ID).Msg("Failed to persist pause, queued for retry")
		return
	}

	metrics.PausesRecorded.Inc()
	t.logger.Info().
		Str("date", pause.Date).
		Int64("duration_seconds", pause.DurationSeconds).
		Msg("Recorded pause period")
}

func (t *Tracker) flushPauses(ctx context.Context) {
	t.mu.Lock()
	pending := t.pendingPauses
	t.pendingPauses = nil
	t.mu.Unlock()

	for _, pause := range pending {
		if err := t.store.Pauses().Insert(ctx, pause); err != nil {
			t.mu.Lock()
			t.pendingPauses = append(t.pendingPauses, pause)
			t.mu.Unlock()
			t.logger.Warn().Err(err).Str("pause_id", pause.ID).Msg("Retry of pause write failed")
			continue
		}
		metrics.PausesRecorded.Inc()
	}
}

// sweep deletes closed sessions and pauses older than the retention
// window. Retention off (0) keeps everything.
func (t *Tracker) sweep(ctx context.Context) {
	if t.config.RetentionDays <= 0 {
		return
	}

	cutoff := t.clock.Now().AddDate(0, 0, -t.config.RetentionDays).Format(storage.DateFormat)

	deletedSessions, err := t.store.Sessions().DeleteClosedBefore(ctx, cutoff)
	if err != nil {
		t.logger.Warn().Err(err).Msg("Failed to sweep old sessions")
	}

	deletedPauses, err := t.store.Pauses().DeleteBefore(ctx, cutoff)
	if err != nil {
		t.logger.Warn().Err(err).Msg("Failed to sweep old pauses")
	}

	if deletedSessions > 0 || deletedPauses > 0 {
		t.logger.Info().
			Int("sessions", deletedSessions).
			Int("pauses", deletedPauses).
			Str("cutoff_date", cutoff).
			Msg("Swept expired records")
	}
}
