package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	// Use a temp directory that doesn't have a config file
	tempDir := t.TempDir()
	t.Setenv("HOME", tempDir)
	t.Setenv("XDG_CONFIG_HOME", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.DefaultPath != DefaultPath {
		t.Errorf("DefaultPath = %q, want %q", cfg.DefaultPath, DefaultPath)
	}

	if cfg.Profile != "auto" {
		t.Errorf("Profile = %q, want %q", cfg.Profile, "auto")
	}

	if cfg.Workers != 0 {
		t.Errorf("Workers = %d, want 0", cfg.Workers)
	}

	if cfg.QueueCapacity != DefaultQueueCapacity {
		t.Errorf("QueueCapacity = %d, want %d", cfg.QueueCapacity, DefaultQueueCapacity)
	}

	if !cfg.Filters.Hidden {
		t.Error("Filters.Hidden = false, want true")
	}

	if cfg.Filters.Symlinks != SymlinkIgnore {
		t.Errorf("Filters.Symlinks = %q, want %q", cfg.Filters.Symlinks, SymlinkIgnore)
	}

	if len(cfg.Filters.IgnoreGlobs) != len(DefaultIgnoreGlobs) {
		t.Errorf("len(Filters.IgnoreGlobs) = %d, want %d",
			len(cfg.Filters.IgnoreGlobs), len(DefaultIgnoreGlobs))
	}

	if cfg.Retry.Attempts != DefaultRetryAttempts {
		t.Errorf("Retry.Attempts = %d, want %d", cfg.Retry.Attempts, DefaultRetryAttempts)
	}

	if cfg.Writer.BatchSize != DefaultBatchSize {
		t.Errorf("Writer.BatchSize = %d, want %d", cfg.Writer.BatchSize, DefaultBatchSize)
	}

	if cfg.Checkpoint.Records != DefaultCheckpointRecords {
		t.Errorf("Checkpoint.Records = %d, want %d", cfg.Checkpoint.Records, DefaultCheckpointRecords)
	}

	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "info")
	}

	if cfg.Logging.Rotation.MaxSize != "10MB" {
		t.Errorf("Logging.Rotation.MaxSize = %q, want %q", cfg.Logging.Rotation.MaxSize, "10MB")
	}
}

func TestLoad_FromFile(t *testing.T) {
	tempDir := t.TempDir()
	configDir := filepath.Join(tempDir, ".config", "catwalk")
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		t.Fatalf("failed to create config dir: %v", err)
	}

	configContent := `
default_path: /mnt/media
profile: hdd
workers: 3
queue_capacity: 500
filters:
  hidden: false
  symlinks: follow
  ignore_globs:
    - "**/*.bak"
retry:
  attempts: 2
  backoff_millis: 10
writer:
  batch_size: 100
  interval_seconds: 1
checkpoint:
  records: 50
  seconds: 2
logging:
  level: debug
`
	configPath := filepath.Join(configDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(configContent), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	t.Setenv("HOME", tempDir)
	t.Setenv("XDG_CONFIG_HOME", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.DefaultPath != "/mnt/media" {
		t.Errorf("DefaultPath = %q, want %q", cfg.DefaultPath, "/mnt/media")
	}

	if cfg.Profile != "hdd" {
		t.Errorf("Profile = %q, want %q", cfg.Profile, "hdd")
	}

	if cfg.Workers != 3 {
		t.Errorf("Workers = %d, want 3", cfg.Workers)
	}

	if cfg.QueueCapacity != 500 {
		t.Errorf("QueueCapacity = %d, want 500", cfg.QueueCapacity)
	}

	if cfg.Filters.Hidden {
		t.Error("Filters.Hidden = true, want false")
	}

	if cfg.Filters.Symlinks != SymlinkFollow {
		t.Errorf("Filters.Symlinks = %q, want %q", cfg.Filters.Symlinks, SymlinkFollow)
	}

	if len(cfg.Filters.IgnoreGlobs) != 1 || cfg.Filters.IgnoreGlobs[0] != "**/*.bak" {
		t.Errorf("Filters.IgnoreGlobs = %v, want [**/*.bak]", cfg.Filters.IgnoreGlobs)
	}

	if cfg.Retry.Attempts != 2 {
		t.Errorf("Retry.Attempts = %d, want 2", cfg.Retry.Attempts)
	}

	if cfg.Writer.BatchSize != 100 {
		t.Errorf("Writer.BatchSize = %d, want 100", cfg.Writer.BatchSize)
	}

	if cfg.Checkpoint.Records != 50 {
		t.Errorf("Checkpoint.Records = %d, want 50", cfg.Checkpoint.Records)
	}

	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "debug")
	}
}

func TestLoad_XDGConfigHome(t *testing.T) {
	tempDir := t.TempDir()
	configDir := filepath.Join(tempDir, "catwalk")
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		t.Fatalf("failed to create config dir: %v", err)
	}

	configContent := "profile: usb\n"
	if err := os.WriteFile(filepath.Join(configDir, "config.yaml"), []byte(configContent), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	t.Setenv("XDG_CONFIG_HOME", tempDir)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Profile != "usb" {
		t.Errorf("Profile = %q, want %q", cfg.Profile, "usb")
	}
}

func TestLoad_EnvironmentOverride(t *testing.T) {
	tempDir := t.TempDir()
	t.Setenv("HOME", tempDir)
	t.Setenv("XDG_CONFIG_HOME", "")
	t.Setenv("CATWALK_PROFILE", "network")
	t.Setenv("CATWALK_QUEUE_CAPACITY", "64")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Profile != "network" {
		t.Errorf("Profile = %q, want %q", cfg.Profile, "network")
	}

	if cfg.QueueCapacity != 64 {
		t.Errorf("QueueCapacity = %d, want 64", cfg.QueueCapacity)
	}
}

func TestConfigDir(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/custom/xdg")

	dir, err := ConfigDir()
	if err != nil {
		t.Fatalf("ConfigDir() error = %v", err)
	}

	if dir != "/custom/xdg/catwalk" {
		t.Errorf("ConfigDir() = %q, want %q", dir, "/custom/xdg/catwalk")
	}

	t.Setenv("XDG_CONFIG_HOME", "")
	dir, err = ConfigDir()
	if err != nil {
		t.Fatalf("ConfigDir() error = %v", err)
	}

	if !strings.HasSuffix(dir, filepath.Join(".config", "catwalk")) {
		t.Errorf("ConfigDir() = %q, want ~/.config/catwalk", dir)
	}
}

func TestWriteDefault(t *testing.T) {
	tempDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", tempDir)

	if err := WriteDefault(); err != nil {
		t.Fatalf("WriteDefault() error = %v", err)
	}

	configPath := filepath.Join(tempDir, "catwalk", "config.yaml")
	data, err := os.ReadFile(configPath)
	if err != nil {
		t.Fatalf("failed to read written config: %v", err)
	}

	content := string(data)
	for _, want := range []string{"profile: auto", "batch_size:", "checkpoint:", "ignore_globs:"} {
		if !strings.Contains(content, want) {
			t.Errorf("default config missing %q", want)
		}
	}

	// The written file must round-trip through Load.
	t.Setenv("HOME", tempDir)
	if _, err := Load(); err != nil {
		t.Fatalf("Load() after WriteDefault error = %v", err)
	}
}

func TestWriteDefault_DoesNotOverwrite(t *testing.T) {
	tempDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", tempDir)

	configDir := filepath.Join(tempDir, "catwalk")
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		t.Fatalf("failed to create config dir: %v", err)
	}

	configPath := filepath.Join(configDir, "config.yaml")
	custom := "profile: hdd\n"
	if err := os.WriteFile(configPath, []byte(custom), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	if err := WriteDefault(); err != nil {
		t.Fatalf("WriteDefault() error = %v", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		t.Fatalf("failed to read config: %v", err)
	}

	if string(data) != custom {
		t.Error("WriteDefault overwrote an existing config file")
	}
}

func TestExpandPath(t *testing.T) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		t.Fatalf("failed to get home dir: %v", err)
	}

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"tilde alone", "~", homeDir},
		{"tilde prefix", "~/media", filepath.Join(homeDir, "media")},
		{"absolute untouched", "/mnt/media", "/mnt/media"},
		{"relative untouched", "media", "media"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExpandPath(tt.in)
			if err != nil {
				t.Fatalf("ExpandPath(%q) error = %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ExpandPath(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
