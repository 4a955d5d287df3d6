package mcp

import (
	"context"
	"fmt"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

func (s *Server) handleSaveClip(_ context.Context, _ *mcpsdk.CallToolRequest, args SaveClipInput) (*mcpsdk.CallToolResult, SaveClipOutput, error) {
	path, err := s.client.Save()
	if err != nil {
		return nil, SaveClipOutput{}, fmt.Errorf("save failed: %w", err)
	}
	s.logger.Info("saved clip", "path", path, "split", args.Split)

	out := SaveClipOutput{Path: path}
	if args.Split {
		outputs, err := s.client.Split(path, nil)
		if err != nil {
			// The clip itself is on disk; report the path with the error
			// so the caller can retry the split alone.
			return nil, out, fmt.Errorf("clip saved to %s but split failed: %w", path, err)
		}
		out.Outputs = outputs
	}
	return nil, out, nil
}

func (s *Server) handleSplitRecording(_ context.Context, _ *mcpsdk.CallToolRequest, args SplitRecordingInput) (*mcpsdk.CallToolResult, SplitRecordingOutput, error) {
	if args.Path == "" {
		return nil, SplitRecordingOutput{}, fmt.Errorf("path is required")
	}

	outputs, err := s.client.Split(args.Path, args.Monitor)
	if err != nil {
		return nil, SplitRecordingOutput{}, fmt.Errorf("split failed: %w", err)
	}
	s.logger.Info("split recording", "path", args.Path, "outputs", len(outputs))

	return nil, SplitRecordingOutput{Outputs: outputs}, nil
}

func (s *Server) handleListMonitors(_ context.Context, _ *mcpsdk.CallToolRequest, _ ListMonitorsInput) (*mcpsdk.CallToolResult, ListMonitorsOutput, error) {
	data, err := s.client.GetMonitors()
	if err != nil {
		return nil, ListMonitorsOutput{}, fmt.Errorf("failed to list monitors: %w", err)
	}

	monitors := make([]MonitorDetail, len(data.Monitors))
	for i, m := range data.Monitors {
		monitors[i] = MonitorDetail{
			Index:  m.Index,
			Name:   m.Name,
			X:      m.X,
			Y:      m.Y,
			Width:  m.Width,
			Height: m.Height,
		}
	}
	return nil, ListMonitorsOutput{Monitors: monitors}, nil
}

func (s *Server) handleBufferStatus(_ context.Context, _ *mcpsdk.CallToolRequest, _ BufferStatusInput) (*mcpsdk.CallToolResult, BufferStatusOutput, error) {
	st, err := s.client.GetStatus()
	if err != nil {
		return nil, BufferStatusOutput{}, fmt.Errorf("failed to get status: %w", err)
	}

	return nil, BufferStatusOutput{
		State:          st.State,
		BufferRunning:  st.BufferRunning,
		Paused:         st.Paused,
		ActiveMonitors: st.ActiveMonitors,
		CanvasWidth:    st.CanvasWidth,
		CanvasHeight:   st.CanvasHeight,
		OutputWidth:    st.OutputWidth,
		OutputHeight:   st.OutputHeight,
		UptimeSeconds:  st.UptimeSeconds,
	}, nil
}

func (s *Server) handlePauseBuffer(_ context.Context, _ *mcpsdk.CallToolRequest, _ PauseBufferInput) (*mcpsdk.CallToolResult, AckOutput, error) {
	if err := s.client.Pause(); err != nil {
		return nil, AckOutput{}, fmt.Errorf("pause failed: %w", err)
	}
	return nil, AckOutput{OK: true}, nil
}

func (s *Server) handleResumeBuffer(_ context.Context, _ *mcpsdk.CallToolRequest, _ ResumeBufferInput) (*mcpsdk.CallToolResult, AckOutput, error) {
	if err := s.client.Resume(); err != nil {
		return nil, AckOutput{}, fmt.Errorf("resume failed: %w", err)
	}
	return nil, AckOutput{OK: true}, nil
}

func (s *Server) handleRestartBuffer(_ context.Context, _ *mcpsdk.CallToolRequest, _ RestartBufferInput) (*mcpsdk.CallToolResult, AckOutput, error) {
	if err := s.client.Restart(); err != nil {
		return nil, AckOutput{}, fmt.Errorf("restart failed: %w", err)
	}
	return nil, AckOutput{OK: true}, nil
}
