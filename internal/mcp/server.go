// Package mcp exposes the rewindd daemon's operations as MCP tools so agents
// can save clips, split recordings and inspect the capture topology. Every
// tool talks to the daemon over its IPC socket; the MCP process holds no
// engine state of its own.
package mcp

import (
	"context"
	"log/slog"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"rewindd/internal/ipc"
)

const (
	ServerName    = "rewindd"
	ServerVersion = "0.1.0"
)

// DaemonClient is the subset of the IPC client the tools need.
type DaemonClient interface {
	GetStatus() (*ipc.StatusData, error)
	GetMonitors() (*ipc.MonitorsData, error)
	Save() (string, error)
	Split(path string, monitor *int) ([]string, error)
	Pause() error
	Resume() error
	Restart() error
}

// Server is the MCP server bridging tools to the daemon.
type Server struct {
	mcpServer *mcpsdk.Server
	client    DaemonClient
	logger    *slog.Logger
}

// NewServer creates an MCP server backed by the given daemon client.
func NewServer(client DaemonClient, logger *slog.Logger) *Server {
	s := &Server{
		client: client,
		logger: logger,
	}

	s.mcpServer = mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    ServerName,
			Version: ServerVersion,
		},
		nil,
	)

	s.registerTools()
	return s
}

// Run starts the MCP server on stdio transport, blocking until done.
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{})
}

func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "save_clip",
		Description: "Flush the rolling replay buffer to disk and return the saved file path. Optionally split the clip into one file per enabled monitor in the same call.",
	}, s.handleSaveClip)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "split_recording",
		Description: "Cut a saved combined-canvas recording into per-monitor files. Pass a monitor ordinal to isolate one monitor, or omit it to split every enabled monitor. The source file is deleted once all crops succeed.",
	}, s.handleSplitRecording)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "list_monitors",
		Description: "List the connected monitors with their stable ordinals and geometry. Ordinals are what the split tools and the enabled_monitors config refer to.",
	}, s.handleListMonitors)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "buffer_status",
		Description: "Report the replay buffer state: whether it is recording, the active monitor count, and the canvas and output resolutions.",
	}, s.handleBufferStatus)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "pause_buffer",
		Description: "Pause the replay buffer. Recording stops until resume_buffer is called; configuration is untouched.",
	}, s.handlePauseBuffer)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "resume_buffer",
		Description: "Resume a paused replay buffer.",
	}, s.handleResumeBuffer)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "restart_buffer",
		Description: "Restart the replay buffer with the configuration currently on disk. Call after editing the config to apply changes.",
	}, s.handleRestartBuffer)
}
