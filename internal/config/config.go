// Package config loads tally settings from JSON files: a global config in
// the user's config directory and an optional per-project override.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fakeyudi/tally/internal/store"
	"github.com/fakeyudi/tally/internal/track"
)

// Duration is a time.Duration that unmarshals from strings like "15m" or "90s".
type Duration time.Duration

func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// Config holds all configurable tally settings.
type Config struct {
	DataDir            string   `json:"data_dir"` // override XDG data location
	IdleTimeout        Duration `json:"idle_timeout"`
	OutputGrace        Duration `json:"output_grace"`
	HeartbeatInterval  Duration `json:"heartbeat_interval"`
	SleepThreshold     Duration `json:"sleep_threshold"`
	MidnightInterval   Duration `json:"midnight_interval"`
	CheckpointInterval Duration `json:"checkpoint_interval"`
	SaveDebounce       Duration `json:"save_debounce"`
	IgnorePatterns     []string `json:"ignore_patterns"` // watcher ignores, glob style
}

// Defaults returns sensible default configuration values.
func Defaults() Config {
	tc := track.DefaultConfig()
	return Config{
		IdleTimeout:        Duration(tc.IdleTimeout),
		OutputGrace:        Duration(tc.OutputGrace),
		HeartbeatInterval:  Duration(tc.HeartbeatInterval),
		SleepThreshold:     Duration(tc.SleepThreshold),
		MidnightInterval:   Duration(tc.MidnightInterval),
		CheckpointInterval: Duration(tc.CheckpointInterval),
		SaveDebounce:       Duration(store.DefaultDebounce),
		IgnorePatterns:     []string{".git", "node_modules"},
	}
}

// LoadGlobal reads ~/.config/tally/config.json.
// Returns defaults if the file is absent.
func LoadGlobal() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	path := filepath.Join(home, ".config", "tally", "config.json")
	return loadFile(path, true)
}

// LoadProject reads .tallyconfig in the current working directory.
// Returns nil (no error) if the file is absent.
func LoadProject() (*Config, error) {
	return loadFile(".tallyconfig", false)
}

// loadFile reads and parses a JSON config file at path.
// If returnDefaults is true, returns defaults when the file is absent.
// If returnDefaults is false, returns nil when the file is absent.
func loadFile(path string, returnDefaults bool) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if returnDefaults {
				d := Defaults()
				return &d, nil
			}
			return nil, nil
		}
		return nil, err
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	return &cfg, nil
}

// Merge combines global and project configs, with project taking precedence.
// Missing keys fall back to global, then defaults.
func Merge(global, project *Config) Config {
	result := Defaults()
	for _, c := range []*Config{global, project} {
		if c == nil {
			continue
		}
		if c.DataDir != "" {
			result.DataDir = c.DataDir
		}
		if c.IdleTimeout > 0 {
			result.IdleTimeout = c.IdleTimeout
		}
		if c.OutputGrace > 0 {
			result.OutputGrace = c.OutputGrace
		}
		if c.HeartbeatInterval > 0 {
			result.HeartbeatInterval = c.HeartbeatInterval
		}
		if c.SleepThreshold > 0 {
			result.SleepThreshold = c.SleepThreshold
		}
		if c.MidnightInterval > 0 {
			result.MidnightInterval = c.MidnightInterval
		}
		if c.CheckpointInterval > 0 {
			result.CheckpointInterval = c.CheckpointInterval
		}
		if c.SaveDebounce > 0 {
			result.SaveDebounce = c.SaveDebounce
		}
		if len(c.IgnorePatterns) > 0 {
			result.IgnorePatterns = c.IgnorePatterns
		}
	}
	return result
}

// TrackConfig translates the file config into the tracker's timing knobs.
func (c Config) TrackConfig() track.Config {
	return track.Config{
		IdleTimeout:        time.Duration(c.IdleTimeout),
		OutputGrace:        time.Duration(c.OutputGrace),
		HeartbeatInterval:  time.Duration(c.HeartbeatInterval),
		SleepThreshold:     time.Duration(c.SleepThreshold),
		MidnightInterval:   time.Duration(c.MidnightInterval),
		CheckpointInterval: time.Duration(c.CheckpointInterval),
	}
}

// ResolveDataDir returns the directory holding the live dataset and archives:
// DataDir if set, else $XDG_DATA_HOME/tally or ~/.local/share/tally.
func (c Config) ResolveDataDir() (string, error) {
	if c.DataDir != "" {
		return c.DataDir, nil
	}
	base := os.Getenv("XDG_DATA_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(base, "tally"), nil
}

// TrackingPath returns the live snapshot location under dataDir.
func TrackingPath(dataDir string) string {
	return filepath.Join(dataDir, "tracking.json")
}

// ArchiveDir returns the monthly archive directory under dataDir.
func ArchiveDir(dataDir string) string {
	return filepath.Join(dataDir, "archive")
}

// ParseError is returned when a config file exists but cannot be parsed.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return "failed to parse config file " + e.Path + ": " + e.Err.Error()
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
