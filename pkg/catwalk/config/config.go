package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"
)

// RotationConfig configures log file rotation.
type RotationConfig struct {
	MaxSize    string `mapstructure:"max_size"`
	MaxAge     int    `mapstructure:"max_age"`
	MaxBackups int    `mapstructure:"max_backups"`
	Daily      bool   `mapstructure:"daily"`
}

// LoggingConfig configures application logging.
type LoggingConfig struct {
	Level      string            `mapstructure:"level"`
	Path       string            `mapstructure:"path"`
	Rotation   RotationConfig    `mapstructure:"rotation"`
	Components map[string]string `mapstructure:"components"`
}

// FilterConfig configures what the enumerator skips.
type FilterConfig struct {
	// Hidden skips hidden and system entries when true.
	Hidden bool `mapstructure:"hidden"`

	// IgnoreGlobs are glob patterns skipped during enumeration.
	IgnoreGlobs []string `mapstructure:"ignore_globs"`

	// ExcludePaths are absolute paths never entered.
	ExcludePaths []string `mapstructure:"exclude_paths"`

	// Symlinks is the symlink policy: "ignore" or "follow".
	Symlinks string `mapstructure:"symlinks"`

	// LongPaths is the long-path policy: "never", "auto" or "force".
	LongPaths string `mapstructure:"long_paths"`
}

// RetryConfig configures the transient-fault executor.
type RetryConfig struct {
	Attempts       int `mapstructure:"attempts"`
	BackoffMillis  int `mapstructure:"backoff_millis"`
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
}

// WriterConfig configures the batched commit writer.
type WriterConfig struct {
	BatchSize       int `mapstructure:"batch_size"`
	IntervalSeconds int `mapstructure:"interval_seconds"`
}

// CheckpointConfig configures checkpoint cadence.
type CheckpointConfig struct {
	Records int `mapstructure:"records"`
	Seconds int `mapstructure:"seconds"`
}

// Config represents the application configuration.
type Config struct {
	DefaultPath   string           `mapstructure:"default_path"`
	Profile       string           `mapstructure:"profile"`
	Workers       int              `mapstructure:"workers"`
	QueueCapacity int              `mapstructure:"queue_capacity"`
	Filters       FilterConfig     `mapstructure:"filters"`
	Retry         RetryConfig      `mapstructure:"retry"`
	Writer        WriterConfig     `mapstructure:"writer"`
	Checkpoint    CheckpointConfig `mapstructure:"checkpoint"`
	Logging       LoggingConfig    `mapstructure:"logging"`
}

// Load loads configuration from file and environment variables.
// Config file locations (in order of precedence):
//   - $XDG_CONFIG_HOME/catwalk/config.yaml
//   - $HOME/.config/catwalk/config.yaml
//
// Environment variables are prefixed with CATWALK_ (e.g.,
// CATWALK_QUEUE_CAPACITY).
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")

	if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
		v.AddConfigPath(filepath.Join(xdgConfigHome, "catwalk"))
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get user home directory: %w", err)
	}
	v.AddConfigPath(filepath.Join(homeDir, ".config", "catwalk"))

	v.SetEnvPrefix("CATWALK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	SetDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is acceptable; we use defaults.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// SetDefaults registers every default value on the given viper instance.
// The CLI shares these with Load so flag-only runs see the same knobs.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("default_path", DefaultPath)
	v.SetDefault("profile", "auto")
	v.SetDefault("workers", 0) // 0 means use the profiled count
	v.SetDefault("queue_capacity", DefaultQueueCapacity)

	v.SetDefault("filters.hidden", true)
	v.SetDefault("filters.ignore_globs", DefaultIgnoreGlobs)
	v.SetDefault("filters.exclude_paths", DefaultExcludePaths)
	v.SetDefault("filters.symlinks", SymlinkIgnore)
	v.SetDefault("filters.long_paths", LongPathAuto)

	v.SetDefault("retry.attempts", DefaultRetryAttempts)
	v.SetDefault("retry.backoff_millis", DefaultRetryBackoffMillis)
	v.SetDefault("retry.timeout_seconds", DefaultOpTimeoutSeconds)

	v.SetDefault("writer.batch_size", DefaultBatchSize)
	v.SetDefault("writer.interval_seconds", DefaultBatchIntervalSeconds)

	v.SetDefault("checkpoint.records", DefaultCheckpointRecords)
	v.SetDefault("checkpoint.seconds", DefaultCheckpointSeconds)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.path", "")
	v.SetDefault("logging.rotation.max_size", "10MB")
	v.SetDefault("logging.rotation.max_age", 30)
	v.SetDefault("logging.rotation.max_backups", 5)
	v.SetDefault("logging.rotation.daily", true)
	v.SetDefault("logging.components", map[string]string{
		"session":   "info",
		"enumerate": "info",
		"hasher":    "warn",
		"writer":    "info",
		"watch":     "warn",
	})
}

// ConfigDir returns the configuration directory path.
func ConfigDir() (string, error) {
	if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
		return filepath.Join(xdgConfigHome, "catwalk"), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(homeDir, ".config", "catwalk"), nil
}

// EnsureConfigDir creates the config directory if it doesn't exist.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	return nil
}

// DataDir returns $XDG_DATA_HOME/catwalk/ for shard databases.
func DataDir() string {
	return filepath.Join(xdg.DataHome, "catwalk")
}

// StateDir returns $XDG_STATE_HOME/catwalk/ for log files.
func StateDir() string {
	return filepath.Join(xdg.StateHome, "catwalk")
}

// ShardDir returns the directory holding per-volume shard stores.
func ShardDir() string {
	return filepath.Join(DataDir(), "shards")
}

// DefaultLogPath returns the default log file path.
func DefaultLogPath() string {
	return filepath.Join(StateDir(), "catwalk.log")
}

// EnsureDataDir creates the data directory if it doesn't exist.
func EnsureDataDir() error {
	if err := os.MkdirAll(ShardDir(), 0o755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}
	return nil
}

// EnsureStateDir creates the state directory if it doesn't exist.
func EnsureStateDir() error {
	if err := os.MkdirAll(StateDir(), 0o755); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}
	return nil
}

// WriteDefault writes a default config file if none exists.
// Returns nil if a config file already exists.
func WriteDefault() error {
	if err := EnsureConfigDir(); err != nil {
		return err
	}

	configDir, err := ConfigDir()
	if err != nil {
		return err
	}

	configPath := filepath.Join(configDir, "config.yaml")

	if _, err := os.Stat(configPath); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to check config file: %w", err)
	}

	defaultConfig := fmt.Sprintf(`# Catwalk Volume Cataloger Configuration

# Default path to catalog when none is specified
default_path: %s

# Volume profile: auto, ssd, hdd, usb, network
profile: auto

# Worker count override (0 = use the profiled count)
workers: 0

# Backpressure queue capacity between enumerator and workers
queue_capacity: %d

# Enumeration filters
filters:
  hidden: true
  symlinks: %s      # ignore or follow
  long_paths: %s      # never, auto or force
  ignore_globs:
    - "**/.git/**"
    - "**/node_modules/**"
    - "**/*.tmp"
  exclude_paths:
    - /proc
    - /sys
    - /dev

# Transient-fault retry behavior
retry:
  attempts: %d
  backoff_millis: %d
  timeout_seconds: %d

# Batched commit writer
writer:
  batch_size: %d
  interval_seconds: %d

# Checkpoint cadence (whichever threshold is hit first)
checkpoint:
  records: %d
  seconds: %d

# Logging configuration
logging:
  level: info
  path: ""
  rotation:
    max_size: 10MB
    max_age: 30
    max_backups: 5
    daily: true
  components:
    session: info
    enumerate: info
    hasher: warn
    writer: info
    watch: warn
`, DefaultPath, DefaultQueueCapacity, SymlinkIgnore, LongPathAuto,
		DefaultRetryAttempts, DefaultRetryBackoffMillis, DefaultOpTimeoutSeconds,
		DefaultBatchSize, DefaultBatchIntervalSeconds,
		DefaultCheckpointRecords, DefaultCheckpointSeconds)

	if err := os.WriteFile(configPath, []byte(defaultConfig), 0o644); err != nil {
		return fmt.Errorf("failed to write default config: %w", err)
	}

	return nil
}

// ExpandPath expands ~ in a path to the user's home directory.
func ExpandPath(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(homeDir, path[1:]), nil
}
