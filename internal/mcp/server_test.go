package mcp

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"rewindd/internal/ipc"
)

type fakeClient struct {
	status   *ipc.StatusData
	monitors *ipc.MonitorsData
	savePath string
	saveErr  error
	splitOut []string
	splitErr error

	splitCalls []struct {
		path    string
		monitor *int
	}
	paused, resumed, restarted bool
}

func (f *fakeClient) GetStatus() (*ipc.StatusData, error) {
	if f.status == nil {
		return nil, errors.New("daemon not running")
	}
	return f.status, nil
}

func (f *fakeClient) GetMonitors() (*ipc.MonitorsData, error) {
	if f.monitors == nil {
		return nil, errors.New("daemon not running")
	}
	return f.monitors, nil
}

func (f *fakeClient) Save() (string, error) { return f.savePath, f.saveErr }

func (f *fakeClient) Split(path string, monitor *int) ([]string, error) {
	f.splitCalls = append(f.splitCalls, struct {
		path    string
		monitor *int
	}{path, monitor})
	return f.splitOut, f.splitErr
}

func (f *fakeClient) Pause() error   { f.paused = true; return nil }
func (f *fakeClient) Resume() error  { f.resumed = true; return nil }
func (f *fakeClient) Restart() error { f.restarted = true; return nil }

func newTestServer(client DaemonClient) *Server {
	return NewServer(client, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestSaveClip(t *testing.T) {
	client := &fakeClient{savePath: "/videos/rewind-clip.mp4"}
	s := newTestServer(client)

	_, out, err := s.handleSaveClip(context.Background(), nil, SaveClipInput{})
	if err != nil {
		t.Fatalf("handleSaveClip: %v", err)
	}
	if out.Path != "/videos/rewind-clip.mp4" {
		t.Errorf("path = %q", out.Path)
	}
	if len(client.splitCalls) != 0 {
		t.Error("split invoked without being requested")
	}
}

func TestSaveClipWithSplit(t *testing.T) {
	client := &fakeClient{
		savePath: "/videos/rewind-clip.mp4",
		splitOut: []string{"/videos/rewind-clip-monitor-0.mp4", "/videos/rewind-clip-monitor-1.mp4"},
	}
	s := newTestServer(client)

	_, out, err := s.handleSaveClip(context.Background(), nil, SaveClipInput{Split: true})
	if err != nil {
		t.Fatalf("handleSaveClip: %v", err)
	}
	if len(out.Outputs) != 2 {
		t.Errorf("outputs = %v", out.Outputs)
	}
	if len(client.splitCalls) != 1 || client.splitCalls[0].monitor != nil {
		t.Errorf("split calls = %+v, want one all-monitors split", client.splitCalls)
	}
}

func TestSaveClipSplitFailureStillReportsPath(t *testing.T) {
	client := &fakeClient{
		savePath: "/videos/rewind-clip.mp4",
		splitErr: errors.New("transcode failed"),
	}
	s := newTestServer(client)

	_, out, err := s.handleSaveClip(context.Background(), nil, SaveClipInput{Split: true})
	if err == nil {
		t.Fatal("expected error when split fails")
	}
	if !strings.Contains(err.Error(), "/videos/rewind-clip.mp4") {
		t.Errorf("error does not name the saved clip: %v", err)
	}
	if out.Path != "/videos/rewind-clip.mp4" {
		t.Errorf("path = %q, want the saved clip even on split failure", out.Path)
	}
}

func TestSplitRecordingRequiresPath(t *testing.T) {
	s := newTestServer(&fakeClient{})

	if _, _, err := s.handleSplitRecording(context.Background(), nil, SplitRecordingInput{}); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestSplitRecordingSingleMonitor(t *testing.T) {
	client := &fakeClient{splitOut: []string{"/videos/rewind-clip-monitor-1.mp4"}}
	s := newTestServer(client)

	mon := 1
	_, out, err := s.handleSplitRecording(context.Background(), nil, SplitRecordingInput{
		Path:    "/videos/rewind-clip.mp4",
		Monitor: &mon,
	})
	if err != nil {
		t.Fatalf("handleSplitRecording: %v", err)
	}
	if len(out.Outputs) != 1 {
		t.Errorf("outputs = %v", out.Outputs)
	}
	if got := client.splitCalls[0]; got.monitor == nil || *got.monitor != 1 {
		t.Errorf("split target = %+v, want monitor 1", got)
	}
}

func TestListMonitors(t *testing.T) {
	client := &fakeClient{monitors: &ipc.MonitorsData{Monitors: []ipc.MonitorInfo{
		{Index: 0, Name: "DP-1", Width: 1920, Height: 1080},
		{Index: 1, Name: "HDMI-1", X: 1920, Width: 1920, Height: 1080},
	}}}
	s := newTestServer(client)

	_, out, err := s.handleListMonitors(context.Background(), nil, ListMonitorsInput{})
	if err != nil {
		t.Fatalf("handleListMonitors: %v", err)
	}
	if len(out.Monitors) != 2 || out.Monitors[1].X != 1920 {
		t.Errorf("monitors = %+v", out.Monitors)
	}
}

func TestBufferStatus(t *testing.T) {
	client := &fakeClient{status: &ipc.StatusData{
		State:          "running",
		BufferRunning:  true,
		ActiveMonitors: 2,
		CanvasWidth:    3840,
		CanvasHeight:   1080,
	}}
	s := newTestServer(client)

	_, out, err := s.handleBufferStatus(context.Background(), nil, BufferStatusInput{})
	if err != nil {
		t.Fatalf("handleBufferStatus: %v", err)
	}
	if !out.BufferRunning || out.CanvasWidth != 3840 {
		t.Errorf("status = %+v", out)
	}
}

func TestPauseResumeRestart(t *testing.T) {
	client := &fakeClient{}
	s := newTestServer(client)

	if _, out, err := s.handlePauseBuffer(context.Background(), nil, PauseBufferInput{}); err != nil || !out.OK {
		t.Fatalf("pause: %v %v", out, err)
	}
	if _, out, err := s.handleResumeBuffer(context.Background(), nil, ResumeBufferInput{}); err != nil || !out.OK {
		t.Fatalf("resume: %v %v", out, err)
	}
	if _, out, err := s.handleRestartBuffer(context.Background(), nil, RestartBufferInput{}); err != nil || !out.OK {
		t.Fatalf("restart: %v %v", out, err)
	}
	if !client.paused || !client.resumed || !client.restarted {
		t.Errorf("client calls = %+v", client)
	}
}
