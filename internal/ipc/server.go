package ipc

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	"rewindd/internal/config"
	"rewindd/internal/metrics"
	"rewindd/internal/replay"
	"rewindd/internal/runtimepath"
	"rewindd/internal/splitter"
)

// Server handles IPC requests from clients
type Server struct {
	socketPath   string
	listener     net.Listener
	logger       *slog.Logger
	controller   *replay.Controller
	split        *splitter.Splitter
	stats        *metrics.Metrics
	startTime    time.Time
	reloadChan   chan struct{}
	shuttingDown bool
	shutdownMu   sync.Mutex
}

// NewServer creates a new IPC server. reloadChan notifies the daemon loop
// that the configuration changed and the buffer needs a restart.
func NewServer(controller *replay.Controller, split *splitter.Splitter, stats *metrics.Metrics, reloadChan chan struct{}, logger *slog.Logger) (*Server, error) {
	socketPath, err := runtimepath.SocketPath()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve IPC socket path: %w", err)
	}

	// Remove existing socket if present
	os.Remove(socketPath)

	return &Server{
		socketPath: socketPath,
		logger:     logger,
		controller: controller,
		split:      split,
		stats:      stats,
		startTime:  time.Now(),
		reloadChan: reloadChan,
	}, nil
}

// Start begins listening for IPC connections
func (s *Server) Start() error {
	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("failed to create IPC socket: %w", err)
	}
	s.listener = listener

	// Set socket permissions
	if err := os.Chmod(s.socketPath, 0600); err != nil {
		return fmt.Errorf("failed to set socket permissions: %w", err)
	}

	s.logger.Info("IPC server listening", "socket", s.socketPath)

	go s.acceptLoop()

	return nil
}

// acceptLoop accepts incoming connections
func (s *Server) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			s.shutdownMu.Lock()
			if s.shuttingDown {
				s.shutdownMu.Unlock()
				return
			}
			s.shutdownMu.Unlock()
			s.logger.Error("IPC accept error", "error", err)
			continue
		}

		go s.handleConnection(conn)
	}
}

// handleConnection handles a single IPC connection
func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()

	reader := bufio.NewReader(conn)

	// Read the request (expect JSON on a single line)
	data, err := reader.ReadBytes('\n')
	if err != nil && err != io.EOF {
		s.logger.Error("IPC read error", "error", err)
		return
	}

	req, err := ParseRequest(data)
	if err != nil {
		s.sendError(conn, fmt.Sprintf("Invalid request: %v", err))
		return
	}

	resp := s.handleCommand(req)

	respData, err := resp.Marshal()
	if err != nil {
		s.logger.Error("failed to marshal response", "error", err)
		return
	}

	respData = append(respData, '\n')
	if _, err := conn.Write(respData); err != nil {
		s.logger.Error("failed to send response", "error", err)
	}
}

// handleCommand processes an IPC command and returns a response
func (s *Server) handleCommand(req *Request) *Response {
	switch req.Command {
	case CommandReload:
		return s.handleReload()
	case CommandGetStatus:
		return s.handleGetStatus()
	case CommandGetMonitors:
		return s.handleGetMonitors()
	case CommandSave:
		return s.handleSave()
	case CommandSplit:
		return s.handleSplit(req.Payload)
	case CommandPause:
		return s.handlePause()
	case CommandResume:
		return s.handleResume()
	case CommandRestart:
		return s.handleRestart()
	default:
		return NewErrorResponse(fmt.Sprintf("Unknown command: %s", req.Command))
	}
}

// handleReload validates the configuration on disk and asks the daemon loop
// to restart the buffer with it.
func (s *Server) handleReload() *Response {
	s.logger.Info("IPC: received RELOAD command")

	if _, err := config.Load(); err != nil {
		return NewErrorResponse(fmt.Sprintf("Failed to reload config: %v", err))
	}

	// Notify the main daemon via channel (non-blocking)
	select {
	case s.reloadChan <- struct{}{}:
	default:
	}

	resp, _ := NewOKResponse(nil)
	return resp
}

// handleGetStatus returns current daemon status
func (s *Server) handleGetStatus() *Response {
	st := s.controller.Status()

	status := StatusData{
		State:          st.State,
		BufferRunning:  st.BufferRunning,
		Paused:         st.Paused,
		ActiveMonitors: st.ActiveMonitors,
		CanvasWidth:    st.CaptureSize.Width,
		CanvasHeight:   st.CaptureSize.Height,
		OutputWidth:    st.OutputSize.Width,
		OutputHeight:   st.OutputSize.Height,
		SceneName:      st.SceneName,
		UptimeSeconds:  int64(time.Since(s.startTime).Seconds()),
		DaemonRunning:  true,
	}

	resp, _ := NewOKResponse(status)
	return resp
}

// handleGetMonitors returns information about all monitors
func (s *Server) handleGetMonitors() *Response {
	displays, err := s.controller.GetDisplays()
	if err != nil {
		return NewErrorResponse(fmt.Sprintf("Failed to get monitors: %v", err))
	}

	monitorInfos := make([]MonitorInfo, len(displays))
	for i, d := range displays {
		monitorInfos[i] = MonitorInfo{
			Index:  d.Index,
			Name:   d.Name,
			X:      d.X,
			Y:      d.Y,
			Width:  d.Width,
			Height: d.Height,
		}
	}

	resp, _ := NewOKResponse(MonitorsData{Monitors: monitorInfos})
	return resp
}

func (s *Server) handleSave() *Response {
	path, err := s.controller.Save(context.Background())
	if err != nil {
		s.stats.SaveFailuresTotal.Inc()
		return NewErrorResponse(fmt.Sprintf("Failed to save replay: %v", err))
	}
	s.stats.SavesTotal.Inc()
	s.logger.Info("IPC: replay saved", "path", path)

	resp, _ := NewOKResponse(SaveData{Path: path})
	return resp
}

func (s *Server) handleSplit(payload json.RawMessage) *Response {
	var req SplitPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		return NewErrorResponse(fmt.Sprintf("Invalid split payload: %v", err))
	}
	if req.Path == "" {
		return NewErrorResponse("path is required")
	}

	target := splitter.All
	if req.Monitor != nil {
		target = *req.Monitor
	}

	outputs, err := s.split.Split(context.Background(), req.Path, target)
	if err != nil {
		s.stats.SplitFailuresTotal.Inc()
		return NewErrorResponse(fmt.Sprintf("Failed to split recording: %v", err))
	}
	s.stats.SplitsTotal.Inc()

	resp, _ := NewOKResponse(SplitData{Outputs: outputs})
	return resp
}

func (s *Server) handlePause() *Response {
	if err := s.controller.Pause(context.Background()); err != nil {
		return NewErrorResponse(fmt.Sprintf("Failed to pause buffer: %v", err))
	}
	resp, _ := NewOKResponse(nil)
	return resp
}

func (s *Server) handleResume() *Response {
	if err := s.controller.Resume(context.Background()); err != nil {
		return NewErrorResponse(fmt.Sprintf("Failed to resume buffer: %v", err))
	}
	resp, _ := NewOKResponse(nil)
	return resp
}

func (s *Server) handleRestart() *Response {
	if err := s.controller.Restart(context.Background()); err != nil {
		return NewErrorResponse(fmt.Sprintf("Failed to restart buffer: %v", err))
	}
	s.stats.RestartsTotal.Inc()

	resp, _ := NewOKResponse(nil)
	return resp
}

// sendError sends an error response
func (s *Server) sendError(conn net.Conn, errMsg string) {
	resp := NewErrorResponse(errMsg)
	data, _ := resp.Marshal()
	data = append(data, '\n')
	conn.Write(data)
}

// Stop gracefully shuts down the IPC server
func (s *Server) Stop() {
	s.shutdownMu.Lock()
	s.shuttingDown = true
	s.shutdownMu.Unlock()

	if s.listener != nil {
		s.listener.Close()
	}
	os.Remove(s.socketPath)
}
