package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	// Session metrics
	SessionsOpened = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stopwatch_sessions_opened_total",
			Help: "Total activity sessions opened",
		},
		[]string{"mode"},
	)

	SessionsClosed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stopwatch_sessions_closed_total",
			Help: "Total activity sessions closed",
		},
		[]string{"mode", "reason"},
	)

	SecondsTracked = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stopwatch_seconds_tracked_total",
			Help: "Total seconds of tracked activity",
		},
		[]string{"mode"},
	)

	// Pause metrics
	PausesRecorded = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "stopwatch_pauses_recorded_total",
			Help: "Total pause periods recorded",
		},
	)

	// Persistence metrics
	FlushFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "stopwatch_flush_failures_total",
			Help: "Total failed persistence flushes",
		},
	)

	// Monitor metrics
	UserIdle = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "stopwatch_user_idle",
			Help: "1 when the user is currently idle, 0 otherwise",
		},
	)

	IdleSeconds = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "stopwatch_idle_seconds",
			Help: "Seconds since the last observed input event",
		},
	)
)

func init() {
	prometheus.MustRegister(
		SessionsOpened,
		SessionsClosed,
		SecondsTracked,
		PausesRecorded,
		FlushFailures,
		UserIdle,
		IdleSeconds,
	)
}

// Server is the optional metrics HTTP server. It binds to localhost by
// default and is disabled unless configured on.
type Server struct {
	server *http.Server
	logger zerolog.Logger
}

// NewServer creates a new metrics server.
func NewServer(addr string, logger zerolog.Logger) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	return &Server{
		server: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 5 * time.Second,
		},
		logger: logger.With().Str("component", "metrics").Logger(),
	}
}

// Start begins serving metrics in the background.
func (s *Server) Start() {
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("Metrics server failed")
		}
	}()
	s.logger.Info().Str("addr", s.server.Addr).Msg("Metrics server started")
}

// Stop shuts the metrics server down.
func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}
