package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"rewindd/internal/resolution"
)

func TestLoadFromPath_MissingFileYieldsDefaults(t *testing.T) {
	cfg, err := LoadFromPath(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.ReplayBuffer.DurationSeconds != 30 {
		t.Fatalf("expected default duration 30, got %d", cfg.ReplayBuffer.DurationSeconds)
	}
	if cfg.Capture.Preset != "native" || cfg.Output.Preset != "native" {
		t.Fatalf("expected native presets, got %q/%q", cfg.Capture.Preset, cfg.Output.Preset)
	}
	if cfg.EnabledMonitors != nil {
		t.Fatalf("expected all monitors enabled by default")
	}
}

func TestLoadFromPath_PartialFileMergesOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
replay_buffer:
  duration_seconds: 90
  max_size_mb: 1024
output_resolution:
  preset: 720p
enabled_monitors: [1]
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.ReplayBuffer.DurationSeconds != 90 {
		t.Fatalf("expected duration 90, got %d", cfg.ReplayBuffer.DurationSeconds)
	}
	if cfg.Output.Preset != "720p" {
		t.Fatalf("expected 720p output, got %q", cfg.Output.Preset)
	}
	// Untouched sections keep their defaults.
	if cfg.Video.FPS != 60 {
		t.Fatalf("expected default fps 60, got %d", cfg.Video.FPS)
	}
	set := cfg.EnabledSet()
	if set.Contains(0) || !set.Contains(1) {
		t.Fatalf("expected only monitor 1 enabled")
	}
}

func TestLoadFromPath_InvalidPresetRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := "capture_resolution:\n  preset: 4k\n"
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	_, err := LoadFromPath(path)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if verr.Path != "capture_resolution.preset" {
		t.Fatalf("expected path capture_resolution.preset, got %q", verr.Path)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		path   string
	}{
		{"zero duration", func(c *Config) { c.ReplayBuffer.DurationSeconds = 0 }, "replay_buffer.duration_seconds"},
		{"zero bitrate", func(c *Config) { c.Video.BitrateKbps = 0 }, "video.bitrate_kbps"},
		{"bad format", func(c *Config) { c.Recording.Format = "avi" }, "recording.format"},
		{"empty path", func(c *Config) { c.Recording.Path = "" }, "recording.path"},
		{"negative monitor", func(c *Config) { m := []int{-1}; c.EnabledMonitors = &m }, "enabled_monitors[0]"},
		{"bad log level", func(c *Config) { c.Logging.Level = "chatty" }, "logging.level"},
	}

	for _, tt := range tests {
		cfg := Default()
		tt.mutate(cfg)
		err := cfg.Validate()
		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("%s: expected ValidationError, got %v", tt.name, err)
		}
		if verr.Path != tt.path {
			t.Fatalf("%s: expected path %q, got %q", tt.name, tt.path, verr.Path)
		}
	}

	if err := Default().Validate(); err != nil {
		t.Fatalf("default config must validate: %v", err)
	}
}

func TestSaveToRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")

	cfg := Default()
	cfg.Recording.Path = "/tmp/clips"
	monitors := []int{0, 2}
	cfg.EnabledMonitors = &monitors

	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Recording.Path != "/tmp/clips" {
		t.Fatalf("expected persisted recording path, got %q", loaded.Recording.Path)
	}
	if loaded.EnabledMonitors == nil || len(*loaded.EnabledMonitors) != 2 {
		t.Fatalf("expected persisted monitor list, got %v", loaded.EnabledMonitors)
	}
}

func TestCustomSpec(t *testing.T) {
	cfg := Default()
	cfg.Output = ResolutionSpec{Preset: "custom", Width: 2560, Height: 1440}

	preset, custom := cfg.OutputSpec()
	if preset != resolution.PresetCustom {
		t.Fatalf("expected custom preset, got %q", preset)
	}
	if custom == nil || custom.Width != 2560 || custom.Height != 1440 {
		t.Fatalf("expected 2560x1440, got %+v", custom)
	}

	// Custom preset without dimensions defers to the policy default.
	cfg.Output = ResolutionSpec{Preset: "custom"}
	_, custom = cfg.OutputSpec()
	if custom != nil {
		t.Fatalf("expected nil custom size, got %+v", custom)
	}
}
