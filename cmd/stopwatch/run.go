package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/CapobiancoR/stopwatch-desktop/internal/clock"
	"github.com/CapobiancoR/stopwatch-desktop/internal/config"
	"github.com/CapobiancoR/stopwatch-desktop/internal/ledger"
	"github.com/CapobiancoR/stopwatch-desktop/internal/metrics"
	"github.com/CapobiancoR/stopwatch-desktop/internal/monitor"
	"github.com/CapobiancoR/stopwatch-desktop/internal/settings"
	"github.com/CapobiancoR/stopwatch-desktop/internal/storage"
	"github.com/CapobiancoR/stopwatch-desktop/internal/storage/bolt"
	"github.com/CapobiancoR/stopwatch-desktop/internal/storage/sqlite"
	"github.com/CapobiancoR/stopwatch-desktop/internal/tracker"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the activity tracker",
	Long:  `Start the background activity tracker: input monitoring, session accounting and periodic autosave.`,
	RunE:  runTracker,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runTracker(cmd *cobra.Command, args []string) error {
	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Setup logger
	logger := setupLogger(cfg.Logging)
	log.Logger = logger

	logger.Info().
		Str("version", version).
		Str("config", configPath).
		Msg("Starting stopwatch")

	// Initialize storage
	store, err := openStorage(cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error().Err(err).Msg("Failed to close storage")
		}
	}()

	logger.Info().
		Str("type", cfg.Storage.Type).
		Str("path", cfg.Storage.Path).
		Msg("Storage initialized")

	// The input probe is required; without it no activity can be
	// observed, so this is fatal at startup.
	probe, err := monitor.NewSystemProbe()
	if err != nil {
		return fmt.Errorf("failed to initialize input probe (grant input permissions and relaunch): %w", err)
	}

	clk := clock.RealClock{}
	activityMonitor := monitor.New(clk)

	listener := monitor.NewListener(
		probe,
		activityMonitor,
		clk,
		parseDuration(cfg.Tracking.ProbeInterval, time.Second),
		logger,
	)
	listener.Start()
	defer listener.Stop()

	// Initialize settings, ledger and tracker
	settingsStore := settings.NewFileStore(cfg.Tracking.SettingsPath, logger)
	sessionLedger := ledger.New(store.Sessions(), clk, logger)

	activityTracker := tracker.New(
		activityMonitor,
		sessionLedger,
		store,
		settingsStore,
		clk,
		tracker.Config{
			TickInterval:  parseDuration(cfg.Tracking.TickInterval, tracker.DefaultTickInterval),
			FlushInterval: parseDuration(cfg.Tracking.FlushInterval, tracker.DefaultFlushInterval),
			RetentionDays: cfg.Tracking.RetentionDays,
		},
		logger,
	)

	if err := activityTracker.Start(context.Background()); err != nil {
		return fmt.Errorf("failed to start tracker: %w", err)
	}

	// Optional metrics endpoint
	var metricsServer *metrics.Server
	if cfg.Metrics.Enabled {
		metricsServer = metrics.NewServer(cfg.Metrics.Addr, logger)
		metricsServer.Start()
	}

	logger.Info().
		Dur("idle_threshold", activityTracker.IdleThreshold()).
		Msg("Stopwatch startup complete")

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan

	logger.Info().Msg("Shutdown signal received, gracefully stopping...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := activityTracker.Stop(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Error during final flush")
	}

	if metricsServer != nil {
		if err := metricsServer.Stop(); err != nil {
			logger.Error().Err(err).Msg("Error stopping metrics server")
		}
	}

	logger.Info().Msg("Stopwatch stopped")
	return nil
}

// openStorage opens the configured embedded store backend.
func openStorage(cfg config.StorageConfig) (storage.Store, error) {
	switch cfg.Type {
	case "bolt":
		return bolt.Open(cfg.Path)
	default:
		return sqlite.Open(cfg.Path)
	}
}

// setupLogger configures the logger based on configuration.
func setupLogger(cfg config.LoggingConfig) zerolog.Logger {
	level := zerolog.InfoLevel
	switch cfg.Level {
	case "debug":
		level = zerolog.DebugLevel
	case "info":
		level = zerolog.InfoLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}

	zerolog.SetGlobalLevel(level)

	if cfg.Format == "json" {
		return zerolog.New(os.Stdout).With().Timestamp().Logger()
	}

	// Default to console output for a desktop process
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
}

// parseDuration parses a duration string with a fallback.
func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}
