package mcp

// SaveClipInput is the input for the save_clip tool.
type SaveClipInput struct {
	Split bool `json:"split,omitempty" jsonschema:"When true, immediately split the saved clip into one file per enabled monitor"`
}

// SaveClipOutput is the output for the save_clip tool.
type SaveClipOutput struct {
	Path    string   `json:"path"`
	Outputs []string `json:"outputs,omitempty"`
}

// SplitRecordingInput is the input for the split_recording tool.
type SplitRecordingInput struct {
	Path    string `json:"path" jsonschema:"required,Path to a saved combined-canvas recording"`
	Monitor *int   `json:"monitor,omitempty" jsonschema:"Monitor ordinal to isolate. Omit to split every enabled monitor."`
}

// SplitRecordingOutput is the output for the split_recording tool.
type SplitRecordingOutput struct {
	Outputs []string `json:"outputs"`
}

// ListMonitorsInput is the input for the list_monitors tool.
type ListMonitorsInput struct{}

// MonitorDetail describes one connected monitor.
type MonitorDetail struct {
	Index  int    `json:"index"`
	Name   string `json:"name"`
	X      int    `json:"x"`
	Y      int    `json:"y"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// ListMonitorsOutput is the output for the list_monitors tool.
type ListMonitorsOutput struct {
	Monitors []MonitorDetail `json:"monitors"`
}

// BufferStatusInput is the input for the buffer_status tool.
type BufferStatusInput struct{}

// BufferStatusOutput is the output for the buffer_status tool.
type BufferStatusOutput struct {
	State          string `json:"state"`
	BufferRunning  bool   `json:"buffer_running"`
	Paused         bool   `json:"paused"`
	ActiveMonitors int    `json:"active_monitors"`
	CanvasWidth    int    `json:"canvas_width"`
	CanvasHeight   int    `json:"canvas_height"`
	OutputWidth    int    `json:"output_width"`
	OutputHeight   int    `json:"output_height"`
	UptimeSeconds  int64  `json:"uptime_seconds"`
}

// PauseBufferInput is the input for the pause_buffer tool.
type PauseBufferInput struct{}

// ResumeBufferInput is the input for the resume_buffer tool.
type ResumeBufferInput struct{}

// RestartBufferInput is the input for the restart_buffer tool.
type RestartBufferInput struct{}

// AckOutput is the output for tools that only acknowledge completion.
type AckOutput struct {
	OK bool `json:"ok"`
}
