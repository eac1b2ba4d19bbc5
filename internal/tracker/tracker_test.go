package tracker

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"

	"github.com/CapobiancoR/stopwatch-desktop/internal/clock"
	"github.com/CapobiancoR/stopwatch-desktop/internal/ledger"
	"github.com/CapobiancoR/stopwatch-desktop/internal/metrics"
	"github.com/CapobiancoR/stopwatch-desktop/internal/monitor"
	"github.com/CapobiancoR/stopwatch-desktop/internal/settings"
	"github.com/CapobiancoR/stopwatch-desktop/internal/storage"
)

type fakeStore struct {
	sessions fakeSessions
	pauses   fakePauses
}

func (s *fakeStore) Close() error                   { return nil }
func (s *fakeStore) Sessions() storage.SessionStore { return &s.sessions }
func (s *fakeStore) Pauses() storage.PauseStore     { return &s.pauses }

type fakeSessions struct {
	mu   sync.Mutex
	rows map[string]storage.Session
}

func (f *fakeSessions) Upsert(ctx context.Context, session storage.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.rows == nil {
		f.rows = make(map[string]storage.Session)
	}
	f.rows[session.ID] = session
	return nil
}

func (f *fakeSessions) Get(ctx context.Context, id string) (*storage.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	session, ok := f.rows[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &session, nil
}

func (f *fakeSessions) ListByDateRange(ctx context.Context, fromDate, toDate string) ([]storage.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]storage.Session, 0)
	for _, session := range f.rows {
		if session.Date >= fromDate && session.Date <= toDate {
			out = append(out, session)
		}
	}
	return out, nil
}

func (f *fakeSessions) ListOpen(ctx context.Context) ([]storage.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]storage.Session, 0)
	for _, session := range f.rows {
		if session.Active {
			out = append(out, session)
		}
	}
	return out, nil
}

func (f *fakeSessions) DeleteClosedBefore(ctx context.Context, cutoffDate string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	deleted := 0
	for id, session := range f.rows {
		if !session.Active && session.Date < cutoffDate {
			delete(f.rows, id)
			deleted++
		}
	}
	return deleted, nil
}

func (f *fakeSessions) all() []storage.Session {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]storage.Session, 0, len(f.rows))
	for _, session := range f.rows {
		out = append(out, session)
	}
	return out
}

type fakePauses struct {
	mu         sync.Mutex
	rows       []storage.PausePeriod
	failInsert bool
}

func (f *fakePauses) Insert(ctx context.Context, pause storage.PausePeriod) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failInsert {
		return fmt.Errorf("injected write failure")
	}
	f.rows = append(f.rows, pause)
	return nil
}

func (f *fakePauses) ListByDateRange(ctx context.Context, fromDate, toDate string) ([]storage.PausePeriod, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]storage.PausePeriod, 0)
	for _, pause := range f.rows {
		if pause.Date >= fromDate && pause.Date <= toDate {
			out = append(out, pause)
		}
	}
	return out, nil
}

func (f *fakePauses) DeleteBefore(ctx context.Context, cutoffDate string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.rows[:0]
	deleted := 0
	for _, pause := range f.rows {
		if pause.Date < cutoffDate {
			deleted++
			continue
		}
		kept = append(kept, pause)
	}
	f.rows = kept
	return deleted, nil
}

func (f *fakePauses) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rows)
}

type harness struct {
	tracker *Tracker
	monitor *monitor.Monitor
	store   *fakeStore
	clock   *clock.TestClock
}

func newHarness(t *testing.T, config Config) *harness {
	t.Helper()

	clk := &clock.TestClock{CurrentTime: time.Date(2026, 8, 25, 9, 0, 0, 0, time.UTC)}
	store := &fakeStore{}
	m := monitor.New(clk)
	l := ledger.New(&store.sessions, clk, zerolog.Nop())
	settingsStore := settings.NewFileStore(filepath.Join(t.TempDir(), "settings.yaml"), zerolog.Nop())

	return &harness{
		tracker: New(m, l, store, settingsStore, clk, config, zerolog.Nop()),
		monitor: m,
		store:   store,
		clock:   clk,
	}
}

// step advances the clock one second and runs a tracker tick.
func (h *harness) step(ctx context.Context) monitor.Sample {
	h.clock.Advance(time.Second)
	return h.tracker.Tick(ctx)
}

func TestIdleCycleClosesSessionAndRecordsPause(t *testing.T) {
	h := newHarness(t, Config{})
	ctx := context.Background()

	// Input at construction and at tick 64; threshold 60s. The session
	// closes when idleness crosses the threshold, and reactivation emits
	// the full pause and opens a fresh session.
	for i := 1; i <= 65; i++ {
		if i == 64 {
			h.clock.Advance(time.Second)
			h.monitor.RecordInput()
			h.tracker.Tick(ctx)
			continue
		}
		h.step(ctx)
	}
	h.tracker.FlushNow(ctx)

	sessions := h.store.sessions.all()
	if len(sessions) != 2 {
		t.Fatalf("expected 2 sessions, got %d: %+v", len(sessions), sessions)
	}

	var closed, open *storage.Session
	for i := range sessions {
		if sessions[i].Active {
			open = &sessions[i]
		} else {
			closed = &sessions[i]
		}
	}
	if closed == nil || open == nil {
		t.Fatalf("expected one closed and one open session, got %+v", sessions)
	}

	if closed.DurationSeconds != 60 {
		t.Errorf("closed duration = %d, want 60", closed.DurationSeconds)
	}
	if open.DurationSeconds != 1 {
		t.Errorf("open duration = %d, want 1", open.DurationSeconds)
	}

	if got := h.store.pauses.count(); got != 1 {
		t.Fatalf("expected 1 pause, got %d", got)
	}
	pauses, _ := h.store.pauses.ListByDateRange(ctx, "2026-08-25", "2026-08-25")
	if pauses[0].DurationSeconds != 64 {
		t.Errorf("pause duration = %d, want 64", pauses[0].DurationSeconds)
	}
}

func TestModeSwitchSplitsTime(t *testing.T) {
	h := newHarness(t, Config{})
	ctx := context.Background()

	h.tracker.Tick(ctx) // opens the session at the base instant
	for i := 0; i < 30; i++ {
		h.step(ctx)
	}
	h.tracker.SetMode(ctx, storage.ModeLeisure)
	for i := 0; i < 20; i++ {
		h.step(ctx)
	}

	summary, err := h.tracker.Today(ctx)
	if err != nil {
		t.Fatalf("today: %v", err)
	}
	if summary.WorkSeconds != 30 {
		t.Errorf("work = %d, want 30", summary.WorkSeconds)
	}
	if summary.LeisureSeconds != 20 {
		t.Errorf("leisure = %d, want 20", summary.LeisureSeconds)
	}
}

func TestModeSwitchCountsInMetrics(t *testing.T) {
	h := newHarness(t, Config{})
	ctx := context.Background()

	h.tracker.Tick(ctx) // opens a work session

	closedBefore := testutil.ToFloat64(metrics.SessionsClosed.WithLabelValues("work", "mode_switch"))
	openedBefore := testutil.ToFloat64(metrics.SessionsOpened.WithLabelValues("leisure"))

	h.tracker.SetMode(ctx, storage.ModeLeisure)

	closed := testutil.ToFloat64(metrics.SessionsClosed.WithLabelValues("work", "mode_switch")) - closedBefore
	opened := testutil.ToFloat64(metrics.SessionsOpened.WithLabelValues("leisure")) - openedBefore
	if closed != 1 {
		t.Errorf("mode_switch closes = %v, want 1", closed)
	}
	if opened != 1 {
		t.Errorf("leisure opens = %v, want 1", opened)
	}

	// A no-op switch must not count.
	closedBefore = testutil.ToFloat64(metrics.SessionsClosed.WithLabelValues("leisure", "mode_switch"))
	h.tracker.SetMode(ctx, storage.ModeLeisure)
	closed = testutil.ToFloat64(metrics.SessionsClosed.WithLabelValues("leisure", "mode_switch")) - closedBefore
	if closed != 0 {
		t.Errorf("no-op switch counted: closes = %v, want 0", closed)
	}

	// Neither must a switch with no open session.
	idle := newHarness(t, Config{})
	closedBefore = testutil.ToFloat64(metrics.SessionsClosed.WithLabelValues("work", "mode_switch"))
	idle.tracker.SetMode(ctx, storage.ModeLeisure)
	closed = testutil.ToFloat64(metrics.SessionsClosed.WithLabelValues("work", "mode_switch")) - closedBefore
	if closed != 0 {
		t.Errorf("idle switch counted: closes = %v, want 0", closed)
	}
}

func TestTodayIncludesLiveSession(t *testing.T) {
	h := newHarness(t, Config{})
	ctx := context.Background()

	// A closed session from earlier today plus an open one from ticks.
	earlier := storage.Session{
		ID:              storage.NewRecordID(),
		Date:            "2026-08-25",
		StartedAt:       h.clock.CurrentTime.Add(-2 * time.Hour),
		DurationSeconds: 1000,
		Mode:            storage.ModeWork,
	}
	if err := h.store.sessions.Upsert(ctx, earlier); err != nil {
		t.Fatalf("seed: %v", err)
	}

	h.tracker.Tick(ctx)
	for i := 0; i < 10; i++ {
		h.step(ctx)
	}

	summary, err := h.tracker.Today(ctx)
	if err != nil {
		t.Fatalf("today: %v", err)
	}
	if summary.WorkSeconds != 1010 {
		t.Errorf("work = %d, want stored 1000 + live 10 = 1010", summary.WorkSeconds)
	}
}

func TestFailedPauseWriteIsRetriedOnFlush(t *testing.T) {
	h := newHarness(t, Config{})
	ctx := context.Background()

	h.store.pauses.failInsert = true

	for i := 1; i <= 64; i++ {
		if i == 64 {
			h.clock.Advance(time.Second)
			h.monitor.RecordInput()
			h.tracker.Tick(ctx)
			continue
		}
		h.step(ctx)
	}

	if got := h.store.pauses.count(); got != 0 {
		t.Fatalf("pause landed despite injected failure: %d", got)
	}

	h.store.pauses.failInsert = false
	h.tracker.FlushNow(ctx)

	if got := h.store.pauses.count(); got != 1 {
		t.Fatalf("expected pause after retry, got %d", got)
	}
}

func TestSetIdleThresholdClampsAndPersists(t *testing.T) {
	h := newHarness(t, Config{})

	if got := h.tracker.IdleThreshold(); got != settings.DefaultIdleThreshold {
		t.Fatalf("initial threshold = %s, want %s", got, settings.DefaultIdleThreshold)
	}

	if err := h.tracker.SetIdleThreshold(5 * time.Second); err != nil {
		t.Fatalf("set threshold: %v", err)
	}
	if got := h.tracker.IdleThreshold(); got != settings.MinIdleThreshold {
		t.Errorf("threshold = %s, want clamped %s", got, settings.MinIdleThreshold)
	}

	if err := h.tracker.SetIdleThreshold(2 * time.Minute); err != nil {
		t.Fatalf("set threshold: %v", err)
	}
	if got := h.tracker.IdleThreshold(); got != 2*time.Minute {
		t.Errorf("threshold = %s, want 2m", got)
	}
}

func TestLoweredThresholdAppliesOnNextTick(t *testing.T) {
	h := newHarness(t, Config{})
	ctx := context.Background()

	// 30s idle is active under the default 60s threshold.
	for i := 0; i < 30; i++ {
		if sample := h.step(ctx); !sample.Active {
			t.Fatalf("unexpectedly idle at second %d", i+1)
		}
	}

	if err := h.tracker.SetIdleThreshold(10 * time.Second); err != nil {
		t.Fatalf("set threshold: %v", err)
	}

	sample := h.step(ctx)
	if sample.Active || !sample.BecameIdle {
		t.Fatalf("expected idle transition under lowered threshold, got %+v", sample)
	}
}

func TestStartRecoversAndSweeps(t *testing.T) {
	h := newHarness(t, Config{RetentionDays: 30})
	ctx := context.Background()

	leftoverStart := h.clock.CurrentTime.Add(-3 * time.Hour)
	leftover := storage.Session{
		ID:              storage.NewRecordID(),
		Date:            leftoverStart.Format(storage.DateFormat),
		StartedAt:       leftoverStart,
		DurationSeconds: 450,
		Mode:            storage.ModeWork,
		Active:          true,
	}
	expired := storage.Session{
		ID:        storage.NewRecordID(),
		Date:      "2025-01-10",
		StartedAt: time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC),
		Mode:      storage.ModeWork,
	}
	for _, session := range []storage.Session{leftover, expired} {
		if err := h.store.sessions.Upsert(ctx, session); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	if err := h.tracker.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := h.tracker.Stop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}

	recovered, err := h.store.sessions.Get(ctx, leftover.ID)
	if err != nil {
		t.Fatalf("get recovered: %v", err)
	}
	if recovered.Active {
		t.Error("leftover session still open after start")
	}
	if recovered.DurationSeconds != 450 {
		t.Errorf("recovered duration = %d, want last flushed 450", recovered.DurationSeconds)
	}

	if _, err := h.store.sessions.Get(ctx, expired.ID); err == nil {
		t.Error("expired session survived the retention sweep")
	}
}
