package engine

// Settings is the typed engine configuration. The engine's own API takes a
// name/value dictionary; Parameters is the single place that maps struct
// fields onto engine parameter names so no other package does string-keyed
// lookups against an opaque blob.
type Settings struct {
	BufferSeconds   int
	BufferMaxSizeMB int

	VideoBitrateKbps int
	Encoder          string
	EncoderPreset    string
	FPS              int

	Format    string
	OutputDir string

	CanvasWidth  int
	CanvasHeight int
	OutputWidth  int
	OutputHeight int
}

// Parameters maps the settings onto the engine's parameter dictionary.
func (s Settings) Parameters() map[string]any {
	return map[string]any{
		"buffer_seconds":     s.BufferSeconds,
		"buffer_max_size_mb": s.BufferMaxSizeMB,
		"video_bitrate_kbps": s.VideoBitrateKbps,
		"encoder":            s.Encoder,
		"encoder_preset":     s.EncoderPreset,
		"fps":                s.FPS,
		"format":             s.Format,
		"output_dir":         s.OutputDir,
		"canvas_width":       s.CanvasWidth,
		"canvas_height":      s.CanvasHeight,
		"output_width":       s.OutputWidth,
		"output_height":      s.OutputHeight,
	}
}
