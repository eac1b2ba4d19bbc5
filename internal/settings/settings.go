// Package settings persists the user-adjustable idle threshold outside
// the main activity store.
package settings

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/CapobiancoR/stopwatch-desktop/internal/storage"
)

const (
	// DefaultIdleThreshold is used when no settings file exists or the
	// stored value is unusable.
	DefaultIdleThreshold = 60 * time.Second

	// MinIdleThreshold and MaxIdleThreshold bound the configurable range.
	MinIdleThreshold = 10 * time.Second
	MaxIdleThreshold = 300 * time.Second
)

// Settings holds the user-adjustable tracker settings.
type Settings struct {
	IdleThreshold time.Duration
}

// Clamp bounds the idle threshold to the supported range, substituting
// the default for unusable values.
func (s Settings) Clamp() Settings {
	if s.IdleThreshold <= 0 {
		s.IdleThreshold = DefaultIdleThreshold
	}
	if s.IdleThreshold < MinIdleThreshold {
		s.IdleThreshold = MinIdleThreshold
	}
	if s.IdleThreshold > MaxIdleThreshold {
		s.IdleThreshold = MaxIdleThreshold
	}
	return s
}

// FileStore reads and writes settings to a small standalone file.
type FileStore struct {
	path   string
	logger zerolog.Logger
}

// NewFileStore creates a settings store backed by the given file path.
func NewFileStore(path string, logger zerolog.Logger) *FileStore {
	return &FileStore{
		path:   path,
		logger: logger.With().Str("component", "settings").Logger(),
	}
}

// Load reads settings from disk. A missing or corrupt file degrades to
// defaults; it never fails.
func (f *FileStore) Load() Settings {
	v := viper.New()
	v.SetConfigFile(f.path)
	v.SetConfigType("yaml")
	v.SetDefault("idle_threshold", DefaultIdleThreshold.String())

	if err := v.ReadInConfig(); err != nil {
		f.logger.Warn().Err(err).Str("path", f.path).Msg("Settings file unreadable, using defaults")
		return Settings{IdleThreshold: DefaultIdleThreshold}
	}

	threshold, err := time.ParseDuration(v.GetString("idle_threshold"))
	if err != nil {
		f.logger.Warn().Err(err).Msg("Invalid idle threshold in settings, using default")
		threshold = DefaultIdleThreshold
	}

	settings := Settings{IdleThreshold: threshold}.Clamp()
	return settings
}

// Save writes settings to disk, clamping first.
func (f *FileStore) Save(settings Settings) error {
	settings = settings.Clamp()

	if err := ensureDir(f.path); err != nil {
		return err
	}

	v := viper.New()
	v.SetConfigFile(f.path)
	v.SetConfigType("yaml")
	v.Set("idle_threshold", settings.IdleThreshold.String())

	if err := v.WriteConfigAs(f.path); err != nil {
		return fmt.Errorf("write settings file: %w", err)
	}

	f.logger.Info().
		Dur("idle_threshold", settings.IdleThreshold).
		Str("path", f.path).
		Msg("Settings saved")
	return nil
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	return storage.EnsureDir(dir)
}
