package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config holds the complete application configuration.
type Config struct {
	Storage  StorageConfig  `mapstructure:"storage"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Tracking TrackingConfig `mapstructure:"tracking"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// StorageConfig defines the embedded store backend and location.
type StorageConfig struct {
	Path string `mapstructure:"path"`
	Type string `mapstructure:"type"` // "sqlite" or "bolt"
}

// LoggingConfig defines logging behavior.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// TrackingConfig defines tick cadence and record retention.
type TrackingConfig struct {
	TickInterval  string `mapstructure:"tick_interval"`
	FlushInterval string `mapstructure:"flush_interval"`
	ProbeInterval string `mapstructure:"probe_interval"`
	SettingsPath  string `mapstructure:"settings_path"`
	RetentionDays int    `mapstructure:"retention_days"`
}

// MetricsConfig defines the optional metrics endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// Load loads configuration from file and environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigFile(configPath)
	v.SetEnvPrefix("STOPWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
		// Config file not found, use defaults and environment variables
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	dataDir := defaultDataDir()

	// Storage defaults
	v.SetDefault("storage.path", filepath.Join(dataDir, "activity.db"))
	v.SetDefault("storage.type", "sqlite")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	// Tracking defaults
	v.SetDefault("tracking.tick_interval", "1s")
	v.SetDefault("tracking.flush_interval", "60s")
	v.SetDefault("tracking.probe_interval", "1s")
	v.SetDefault("tracking.settings_path", filepath.Join(dataDir, "settings.yaml"))
	v.SetDefault("tracking.retention_days", 365)

	// Metrics defaults
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.addr", "127.0.0.1:9190")
}

// defaultDataDir returns the per-user data directory for the tracker.
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".local", "share", "stopwatch")
}

// validate validates the configuration.
func validate(cfg *Config) error {
	if cfg.Storage.Path == "" {
		return fmt.Errorf("storage path is required")
	}

	switch cfg.Storage.Type {
	case "", "sqlite", "bolt":
	default:
		return fmt.Errorf("unknown storage type: %s (must be sqlite or bolt)", cfg.Storage.Type)
	}
	if cfg.Storage.Type == "" {
		cfg.Storage.Type = "sqlite"
	}

	if cfg.Tracking.SettingsPath == "" {
		return fmt.Errorf("settings path is required")
	}

	if cfg.Metrics.Enabled && cfg.Metrics.Addr == "" {
		return fmt.Errorf("metrics address is required when metrics are enabled")
	}

	return nil
}
