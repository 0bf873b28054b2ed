package config_test

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/fakeyudi/tally/internal/config"
)

func TestDurationUnmarshal(t *testing.T) {
	var cfg config.Config
	raw := `{"idle_timeout": "10m", "output_grace": "90s", "midnight_interval": "45s", "save_debounce": "3s"}`
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if time.Duration(cfg.IdleTimeout) != 10*time.Minute {
		t.Errorf("IdleTimeout = %v, want 10m", time.Duration(cfg.IdleTimeout))
	}
	if time.Duration(cfg.OutputGrace) != 90*time.Second {
		t.Errorf("OutputGrace = %v, want 90s", time.Duration(cfg.OutputGrace))
	}
	if time.Duration(cfg.MidnightInterval) != 45*time.Second {
		t.Errorf("MidnightInterval = %v, want 45s", time.Duration(cfg.MidnightInterval))
	}
	if time.Duration(cfg.SaveDebounce) != 3*time.Second {
		t.Errorf("SaveDebounce = %v, want 3s", time.Duration(cfg.SaveDebounce))
	}
}

func TestDurationUnmarshalRejectsGarbage(t *testing.T) {
	var cfg config.Config
	if err := json.Unmarshal([]byte(`{"idle_timeout": "soon"}`), &cfg); err == nil {
		t.Error("expected an error for an unparseable duration")
	}
}

func TestMergePrecedence(t *testing.T) {
	global := &config.Config{
		DataDir:     "/global/data",
		IdleTimeout: config.Duration(10 * time.Minute),
	}
	project := &config.Config{
		IdleTimeout:    config.Duration(20 * time.Minute),
		IgnorePatterns: []string{"vendor"},
	}

	merged := config.Merge(global, project)

	if merged.DataDir != "/global/data" {
		t.Errorf("DataDir = %q, want the global value", merged.DataDir)
	}
	if time.Duration(merged.IdleTimeout) != 20*time.Minute {
		t.Errorf("IdleTimeout = %v, want the project override", time.Duration(merged.IdleTimeout))
	}
	if len(merged.IgnorePatterns) != 1 || merged.IgnorePatterns[0] != "vendor" {
		t.Errorf("IgnorePatterns = %v, want [vendor]", merged.IgnorePatterns)
	}
	// Untouched knobs fall back to defaults.
	if time.Duration(merged.OutputGrace) != 2*time.Minute {
		t.Errorf("OutputGrace = %v, want the 2m default", time.Duration(merged.OutputGrace))
	}
	if time.Duration(merged.SaveDebounce) != 2*time.Second {
		t.Errorf("SaveDebounce = %v, want the 2s default", time.Duration(merged.SaveDebounce))
	}
}

func TestMergeNilConfigs(t *testing.T) {
	merged := config.Merge(nil, nil)
	defaults := config.Defaults()
	if merged.IdleTimeout != defaults.IdleTimeout {
		t.Errorf("IdleTimeout = %v, want default %v", merged.IdleTimeout, defaults.IdleTimeout)
	}
}

func TestTrackConfigTranslation(t *testing.T) {
	cfg := config.Defaults()
	tc := cfg.TrackConfig()
	if tc.IdleTimeout != 15*time.Minute {
		t.Errorf("IdleTimeout = %v, want 15m", tc.IdleTimeout)
	}
	if tc.MidnightInterval != 30*time.Second {
		t.Errorf("MidnightInterval = %v, want 30s", tc.MidnightInterval)
	}
	if tc.CheckpointInterval != 5*time.Minute {
		t.Errorf("CheckpointInterval = %v, want 5m", tc.CheckpointInterval)
	}
}

func TestResolveDataDirHonorsOverride(t *testing.T) {
	cfg := config.Config{DataDir: "/explicit"}
	dir, err := cfg.ResolveDataDir()
	if err != nil {
		t.Fatal(err)
	}
	if dir != "/explicit" {
		t.Errorf("dir = %q, want /explicit", dir)
	}
}

func TestResolveDataDirUsesXDG(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/xdg")
	dir, err := config.Config{}.ResolveDataDir()
	if err != nil {
		t.Fatal(err)
	}
	if dir != "/xdg/tally" {
		t.Errorf("dir = %q, want /xdg/tally", dir)
	}
}

func TestLoadProjectAbsentIsNil(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, err := config.LoadProject()
	if err != nil {
		t.Fatalf("LoadProject: %v", err)
	}
	if cfg != nil {
		t.Errorf("expected nil for an absent project config, got %+v", cfg)
	}
}

func TestParseErrorUnwraps(t *testing.T) {
	inner := errors.New("boom")
	err := &config.ParseError{Path: "x", Err: inner}
	if !errors.Is(err, inner) {
		t.Error("ParseError must unwrap to the inner error")
	}
}
