// Package config provides configuration loading, validation, and management
// for the draftflow engine.
//
// A single global Config instance is maintained in memory, protected by a
// mutex. GetConfig returns the config BY VALUE so callers cannot mutate
// shared state; all updates go through the Update* functions, which validate
// before persisting. Engine constants the user should not touch (stage order,
// version numbering base) live in their owning packages, not here.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"draftflow/pkg/logx"
)

// Config file constants.
const (
	ConfigDir      = ".draftflow"
	ConfigFilename = "config.json"
	SchemaVersion  = "1.0"
)

// Defaults applied by DefaultConfig.
const (
	DefaultMaxVersions         = 5
	DefaultCheckpointInterval  = time.Minute
	DefaultCheckpointThreshold = 5 * time.Minute
	DefaultDebounceInterval    = 2 * time.Second
	DefaultMaxEventTextLen     = 500
)

// Config holds the engine settings for one project.
type Config struct {
	SchemaVersion string `json:"schema_version"`

	// StorageDir is where the local SQLite database and event logs live.
	StorageDir string `json:"storage_dir"`

	// MaxVersions bounds the document version history (FIFO eviction).
	MaxVersions int `json:"max_versions"`

	// CheckpointInterval is how often the auto-checkpoint timer wakes up.
	CheckpointInterval time.Duration `json:"checkpoint_interval"`

	// CheckpointThreshold is the elapsed time since the last checkpoint
	// (or session start) that triggers a new auto-checkpoint version.
	CheckpointThreshold time.Duration `json:"checkpoint_threshold"`

	// DebounceInterval is the quiet period before queued edit events flush.
	DebounceInterval time.Duration `json:"debounce_interval"`

	// MaxEventTextLen truncates before/after/context text on emitted events.
	MaxEventTextLen int `json:"max_event_text_len"`

	// TrackingEnabled gates the preference-signal pipeline entirely.
	TrackingEnabled bool `json:"tracking_enabled"`
}

//nolint:gochecknoglobals // Intentional singleton pattern for config management
var (
	config     *Config
	projectDir string // Immutable after LoadConfig - set once at startup
	logger     *logx.Logger
	mu         sync.RWMutex
)

func getLogger() *logx.Logger {
	if logger == nil {
		logger = logx.NewLogger("config")
	}
	return logger
}

// DefaultConfig returns a config populated with engine defaults.
func DefaultConfig() Config {
	return Config{
		SchemaVersion:       SchemaVersion,
		StorageDir:          ConfigDir,
		MaxVersions:         DefaultMaxVersions,
		CheckpointInterval:  DefaultCheckpointInterval,
		CheckpointThreshold: DefaultCheckpointThreshold,
		DebounceInterval:    DefaultDebounceInterval,
		MaxEventTextLen:     DefaultMaxEventTextLen,
		TrackingEnabled:     true,
	}
}

// Validate checks a config for consistency. Invalid configs are rejected
// before persistence.
func (c *Config) Validate() error {
	if c.MaxVersions < 1 {
		return fmt.Errorf("max_versions must be at least 1, got %d", c.MaxVersions)
	}
	if c.CheckpointInterval <= 0 {
		return fmt.Errorf("checkpoint_interval must be positive, got %v", c.CheckpointInterval)
	}
	if c.CheckpointThreshold < c.CheckpointInterval {
		return fmt.Errorf("checkpoint_threshold %v must not be shorter than checkpoint_interval %v",
			c.CheckpointThreshold, c.CheckpointInterval)
	}
	if c.DebounceInterval <= 0 {
		return fmt.Errorf("debounce_interval must be positive, got %v", c.DebounceInterval)
	}
	if c.MaxEventTextLen < 1 {
		return fmt.Errorf("max_event_text_len must be at least 1, got %d", c.MaxEventTextLen)
	}
	return nil
}

func configPath(dir string) string {
	return filepath.Join(dir, ConfigDir, ConfigFilename)
}

// LoadConfig loads the project config from disk, creating it with defaults
// if it does not exist. Usually called once at startup.
func LoadConfig(dir string) error {
	mu.Lock()
	defer mu.Unlock()

	path := configPath(dir)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		cfg := DefaultConfig()
		if err := persistLocked(dir, &cfg); err != nil {
			return err
		}
		config = &cfg
		projectDir = dir
		getLogger().Info("Created default config at %s", path)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config file %s is invalid: %w", path, err)
	}

	config = &cfg
	projectDir = dir
	return nil
}

// GetConfig returns a copy of the current config.
func GetConfig() (Config, error) {
	mu.RLock()
	defer mu.RUnlock()

	if config == nil {
		return Config{}, fmt.Errorf("config not loaded: call LoadConfig first")
	}
	return *config, nil
}

// Active returns the loaded config, or engine defaults when LoadConfig has
// not been called. Library constructors read their tunables through it, so
// an embedding product adjusts behavior by loading a config first while
// minimal callers and tests get defaults with no setup.
func Active() Config {
	mu.RLock()
	defer mu.RUnlock()

	if config == nil {
		return DefaultConfig()
	}
	return *config
}

// IsLoaded returns true if LoadConfig has been called successfully.
func IsLoaded() bool {
	mu.RLock()
	defer mu.RUnlock()
	return config != nil
}

// DatabasePath returns the SQLite database location under the configured
// storage directory.
func DatabasePath() string {
	return filepath.Join(Active().StorageDir, "draftflow.db")
}

// EventLogDir returns the directory event log files are written under.
func EventLogDir() string {
	return filepath.Join(Active().StorageDir, "events")
}

// UpdateTracking atomically updates the tracking toggle and persists.
func UpdateTracking(enabled bool) error {
	return update(func(c *Config) {
		c.TrackingEnabled = enabled
	})
}

// UpdateTiming atomically updates the timer settings and persists.
func UpdateTiming(checkpointInterval, checkpointThreshold, debounceInterval time.Duration) error {
	return update(func(c *Config) {
		c.CheckpointInterval = checkpointInterval
		c.CheckpointThreshold = checkpointThreshold
		c.DebounceInterval = debounceInterval
	})
}

// UpdateRetention atomically updates the history and payload bounds and persists.
func UpdateRetention(maxVersions, maxEventTextLen int) error {
	return update(func(c *Config) {
		c.MaxVersions = maxVersions
		c.MaxEventTextLen = maxEventTextLen
	})
}

// update applies a mutation to a copy of the config, validates it, persists
// it, and only then installs it as the current config.
func update(mutate func(*Config)) error {
	mu.Lock()
	defer mu.Unlock()

	if config == nil {
		return fmt.Errorf("config not loaded: call LoadConfig first")
	}

	updated := *config
	mutate(&updated)

	if err := updated.Validate(); err != nil {
		return fmt.Errorf("rejected config update: %w", err)
	}
	if err := persistLocked(projectDir, &updated); err != nil {
		return err
	}

	config = &updated
	return nil
}

// persistLocked writes the config to disk. Caller must hold mu.
func persistLocked(dir string, cfg *Config) error {
	path := configPath(dir)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Write to a temp file then rename for atomicity.
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to install config: %w", err)
	}
	return nil
}

// ResetForTest clears the singleton so tests can reload from scratch.
func ResetForTest() {
	mu.Lock()
	defer mu.Unlock()
	config = nil
	projectDir = ""
}
