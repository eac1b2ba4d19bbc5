// Package monitor observes input activity and classifies elapsed time
// as active or idle. The last-input timestamp is the only state shared
// with the listener goroutine.
package monitor

import (
	"sync"
	"time"

	"github.com/CapobiancoR/stopwatch-desktop/internal/clock"
	"github.com/CapobiancoR/stopwatch-desktop/internal/storage"
)

// Sample is the result of one poll of the monitor.
type Sample struct {
	// IdleFor is how long the user has been without input.
	IdleFor time.Duration

	// Active reports whether the user is considered active after this poll.
	Active bool

	// BecameIdle is true exactly once per idle stretch, on the poll where
	// idle time first exceeds the threshold.
	BecameIdle bool

	// BecameActive is true exactly once when input resumes after an idle
	// stretch.
	BecameActive bool

	// Pause is the completed pause period, set only on the poll where
	// BecameActive is true and the pause exceeded the threshold.
	Pause *storage.PausePeriod
}

// Monitor tracks the last observed input timestamp and derives
// idle/active transitions from it. Input events arrive asynchronously
// via RecordInput; Poll is called once per tick.
type Monitor struct {
	mu        sync.RWMutex
	clock     clock.Clock
	lastInput time.Time
	idle      bool
	idleStart time.Time // last input before the current idle stretch
}

// New creates a monitor. The user is considered active at creation.
func New(clk clock.Clock) *Monitor {
	return &Monitor{
		clock:     clk,
		lastInput: clk.Now(),
	}
}

// RecordInput notes that an input event was observed now.
func (m *Monitor) RecordInput() {
	m.RecordInputAt(m.clock.Now())
}

// RecordInputAt notes that an input event was observed at t. Timestamps
// older than the current last-input time are ignored.
func (m *Monitor) RecordInputAt(t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if t.After(m.lastInput) {
		m.lastInput = t
	}
}

// LastInput returns the last observed input timestamp.
func (m *Monitor) LastInput() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.lastInput
}

// Poll computes the current idle duration against the given threshold
// and fires at most one transition. The threshold is read fresh on every
// poll so a settings change takes effect on the next tick.
func (m *Monitor) Poll(threshold time.Duration) Sample {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock.Now()
	idleFor := now.Sub(m.lastInput)

	sample := Sample{IdleFor: idleFor}

	switch {
	case !m.idle && idleFor > threshold:
		// Transition to idle. The idle stretch began at the last input.
		m.idle = true
		m.idleStart = m.lastInput
		sample.BecameIdle = true

	case m.idle && m.lastInput.After(m.idleStart) && idleFor <= threshold:
		// Genuine reactivation: recent input pulled the idle duration
		// back under the threshold. The listener derives last-input
		// timestamps from probe reads, so small forward drift during a
		// real idle stretch moves lastInput without ending the stretch;
		// the idleFor check filters that out.
		m.idle = false
		sample.BecameActive = true
		sample.Pause = m.completedPause(threshold)
	}

	sample.Active = !m.idle
	return sample
}

// completedPause builds the pause record for the idle stretch that just
// ended, spanning the last input before the stretch to the reactivating
// input. Stretches at or under the threshold are not recorded.
func (m *Monitor) completedPause(threshold time.Duration) *storage.PausePeriod {
	duration := m.lastInput.Sub(m.idleStart)
	if duration <= threshold {
		return nil
	}
	return &storage.PausePeriod{
		ID:              storage.NewRecordID(),
		Date:            m.idleStart.Format(storage.DateFormat),
		StartedAt:       m.idleStart,
		EndedAt:         m.lastInput,
		DurationSeconds: int64(duration.Seconds()),
	}
}
