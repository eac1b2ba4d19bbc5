package monitor

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/CapobiancoR/stopwatch-desktop/internal/clock"
)

// Listener polls the system probe in the background and feeds observed
// input into the monitor's last-input timestamp. Probe failures after
// startup are logged and skipped; the monitor simply keeps its last
// known state.
type Listener struct {
	probe    SystemProbe
	monitor  *Monitor
	clock    clock.Clock
	interval time.Duration
	logger   zerolog.Logger
	stopChan chan struct{}
}

// NewListener creates a listener polling the probe at the given interval.
func NewListener(probe SystemProbe, m *Monitor, clk clock.Clock, interval time.Duration, logger zerolog.Logger) *Listener {
	return &Listener{
		probe:    probe,
		monitor:  m,
		clock:    clk,
		interval: interval,
		logger:   logger.With().Str("component", "input-listener").Logger(),
		stopChan: make(chan struct{}),
	}
}

// Start begins the listener goroutine.
func (l *Listener) Start() {
	go l.run()
	l.logger.Info().Dur("interval", l.interval).Msg("Input listener started")
}

// Stop stops the listener goroutine.
func (l *Listener) Stop() {
	close(l.stopChan)
	l.logger.Info().Msg("Input listener stopped")
}

func (l *Listener) run() {
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.observe()
		case <-l.stopChan:
			return
		}
	}
}

// observe translates the system idle duration into a last-input
// timestamp. RecordInputAt discards anything older than what the
// monitor already knows, so stale probe reads are harmless.
func (l *Listener) observe() {
	idle, err := l.probe.IdleTime()
	if err != nil {
		l.logger.Warn().Err(err).Msg("Input probe read failed")
		return
	}

	l.monitor.RecordInputAt(l.clock.Now().Add(-idle))
}
