// Package config loads and persists the rewindd configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"rewindd/internal/display"
	"rewindd/internal/resolution"
)

// ResolutionSpec selects a resolution preset, with explicit dimensions when
// the preset is custom.
type ResolutionSpec struct {
	Preset string `yaml:"preset"`
	Width  int    `yaml:"width,omitempty"`
	Height int    `yaml:"height,omitempty"`
}

// ReplayBufferConfig sizes the rolling buffer.
type ReplayBufferConfig struct {
	DurationSeconds int `yaml:"duration_seconds"`
	MaxSizeMB       int `yaml:"max_size_mb"`
}

// VideoConfig holds encoder parameters passed through to the engine.
type VideoConfig struct {
	BitrateKbps   int    `yaml:"bitrate_kbps"`
	Encoder       string `yaml:"encoder"`
	EncoderPreset string `yaml:"encoder_preset"`
	FPS           int    `yaml:"fps"`
}

// RecordingConfig controls the saved file container and destination folder.
type RecordingConfig struct {
	Format string `yaml:"format"`
	Path   string `yaml:"path"`
}

// AudioConfig gates the optional audio capture sources.
type AudioConfig struct {
	CaptureDesktop    bool `yaml:"capture_desktop"`
	CaptureMicrophone bool `yaml:"capture_microphone"`
}

// EngineConfig addresses the recording engine service on the session bus.
type EngineConfig struct {
	BusName    string `yaml:"bus_name"`
	ObjectPath string `yaml:"object_path"`
}

// MetricsConfig configures the observability HTTP listener.
type MetricsConfig struct {
	Enabled    bool   `yaml:"enabled"`
	ListenAddr string `yaml:"listen_addr"`
}

// LoggingConfig configures the daemon logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Config is the full daemon configuration.
type Config struct {
	ReplayBuffer ReplayBufferConfig `yaml:"replay_buffer"`
	Video        VideoConfig        `yaml:"video"`
	Capture      ResolutionSpec     `yaml:"capture_resolution"`
	Output       ResolutionSpec     `yaml:"output_resolution"`
	Recording    RecordingConfig    `yaml:"recording"`
	Audio        AudioConfig        `yaml:"audio"`

	// EnabledMonitors is an optional list of monitor ordinals; absent means
	// all monitors are captured.
	EnabledMonitors *[]int `yaml:"enabled_monitors,omitempty"`

	Engine  EngineConfig  `yaml:"engine"`
	Metrics MetricsConfig `yaml:"metrics"`
	Logging LoggingConfig `yaml:"logging"`
}

// ValidationError reports an invalid config value with its YAML path.
type ValidationError struct {
	Path string
	Err  error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config %s: %v", e.Path, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// Default returns the built-in configuration.
func Default() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		ReplayBuffer: ReplayBufferConfig{
			DurationSeconds: 30,
			MaxSizeMB:       512,
		},
		Video: VideoConfig{
			BitrateKbps:   8000,
			Encoder:       "x264",
			EncoderPreset: "veryfast",
			FPS:           60,
		},
		Capture: ResolutionSpec{Preset: string(resolution.PresetNative)},
		Output:  ResolutionSpec{Preset: string(resolution.PresetNative)},
		Recording: RecordingConfig{
			Format: "mp4",
			Path:   filepath.Join(home, "Videos", "rewindd"),
		},
		Audio: AudioConfig{
			CaptureDesktop:    true,
			CaptureMicrophone: false,
		},
		Metrics: MetricsConfig{
			Enabled:    false,
			ListenAddr: "127.0.0.1:9190",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// DefaultConfigPath returns ~/.config/rewindd/config.yaml.
func DefaultConfigPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "rewindd", "config.yaml"), nil
}

// Load reads the configuration from the standard location. A missing file
// yields the defaults.
func Load() (*Config, error) {
	path, err := DefaultConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFromPath(path)
}

// LoadFromPath reads and validates the configuration at path, applying
// defaults for absent values.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration to the standard location. The daemon only
// calls this to persist a picked recording folder; everything else is written
// by the user or the settings shell.
func (c *Config) Save() error {
	path, err := DefaultConfigPath()
	if err != nil {
		return err
	}
	return c.SaveTo(path)
}

// SaveTo writes the configuration to path, creating parent directories.
func (c *Config) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Validate performs strict validation of the configuration.
func (c *Config) Validate() error {
	if c.ReplayBuffer.DurationSeconds <= 0 {
		return &ValidationError{Path: "replay_buffer.duration_seconds", Err: fmt.Errorf("must be > 0")}
	}
	if c.ReplayBuffer.MaxSizeMB <= 0 {
		return &ValidationError{Path: "replay_buffer.max_size_mb", Err: fmt.Errorf("must be > 0")}
	}
	if c.Video.BitrateKbps <= 0 {
		return &ValidationError{Path: "video.bitrate_kbps", Err: fmt.Errorf("must be > 0")}
	}
	if c.Video.FPS <= 0 {
		return &ValidationError{Path: "video.fps", Err: fmt.Errorf("must be > 0")}
	}
	if !resolution.Preset(c.Capture.Preset).Valid() {
		return &ValidationError{Path: "capture_resolution.preset", Err: fmt.Errorf("unknown preset %q", c.Capture.Preset)}
	}
	if !resolution.Preset(c.Output.Preset).Valid() {
		return &ValidationError{Path: "output_resolution.preset", Err: fmt.Errorf("unknown preset %q", c.Output.Preset)}
	}
	switch c.Recording.Format {
	case "mp4", "mkv", "mov", "flv":
	default:
		return &ValidationError{Path: "recording.format", Err: fmt.Errorf("format must be one of: mp4, mkv, mov, flv")}
	}
	if c.Recording.Path == "" {
		return &ValidationError{Path: "recording.path", Err: fmt.Errorf("recording path is required")}
	}
	if c.EnabledMonitors != nil {
		for i, idx := range *c.EnabledMonitors {
			if idx < 0 {
				return &ValidationError{Path: fmt.Sprintf("enabled_monitors[%d]", i), Err: fmt.Errorf("monitor ordinal must be >= 0")}
			}
		}
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return &ValidationError{Path: "logging.level", Err: fmt.Errorf("level must be one of: debug, info, warn, error")}
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return &ValidationError{Path: "logging.format", Err: fmt.Errorf("format must be text or json")}
	}
	return nil
}

// EnabledSet converts the optional monitor list into a membership set.
func (c *Config) EnabledSet() display.EnabledSet {
	if c.EnabledMonitors == nil {
		return nil
	}
	return display.EnabledSet(*c.EnabledMonitors)
}

// CaptureSpec returns the capture resolution preset and custom size.
func (c *Config) CaptureSpec() (resolution.Preset, *resolution.Size) {
	return specOf(c.Capture)
}

// OutputSpec returns the output resolution preset and custom size.
func (c *Config) OutputSpec() (resolution.Preset, *resolution.Size) {
	return specOf(c.Output)
}

func specOf(spec ResolutionSpec) (resolution.Preset, *resolution.Size) {
	p := resolution.Preset(spec.Preset)
	if p != resolution.PresetCustom {
		return p, nil
	}
	if spec.Width <= 0 || spec.Height <= 0 {
		return p, nil
	}
	return p, &resolution.Size{Width: spec.Width, Height: spec.Height}
}
