package ipc

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"rewindd/internal/runtimepath"
)

// Client handles IPC communication with the daemon
type Client struct {
	socketPath string
	timeout    time.Duration
}

// NewClient creates a new IPC client
func NewClient() *Client {
	socketPath, err := runtimepath.SocketPath()
	if err != nil {
		// Keep constructor non-failing; sendRequest surfaces connection errors.
		socketPath = ""
	}

	return &Client{
		socketPath: socketPath,
		timeout:    5 * time.Second,
	}
}

// sendRequest sends a request and waits for a response
func (c *Client) sendRequest(req *Request, timeout time.Duration) (*Response, error) {
	conn, err := net.DialTimeout("unix", c.socketPath, c.timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to daemon: %w (is the daemon running?)", err)
	}
	defer conn.Close()

	conn.SetDeadline(time.Now().Add(timeout))

	reqData, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	reqData = append(reqData, '\n')
	if _, err := conn.Write(reqData); err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	reader := bufio.NewReader(conn)
	respData, err := reader.ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var resp Response
	if err := json.Unmarshal(respData, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if resp.Status == "ERROR" {
		return nil, fmt.Errorf("daemon error: %s", resp.Error)
	}

	return &resp, nil
}

// Reload asks the daemon to re-read the configuration and restart the buffer
func (c *Client) Reload() error {
	_, err := c.sendRequest(&Request{Command: CommandReload}, c.timeout)
	return err
}

// GetStatus retrieves daemon status
func (c *Client) GetStatus() (*StatusData, error) {
	resp, err := c.sendRequest(&Request{Command: CommandGetStatus}, c.timeout)
	if err != nil {
		return nil, err
	}

	var status StatusData
	if err := json.Unmarshal(resp.Data, &status); err != nil {
		return nil, fmt.Errorf("failed to parse status data: %w", err)
	}

	return &status, nil
}

// GetMonitors retrieves monitor information
func (c *Client) GetMonitors() (*MonitorsData, error) {
	resp, err := c.sendRequest(&Request{Command: CommandGetMonitors}, c.timeout)
	if err != nil {
		return nil, err
	}

	var monitors MonitorsData
	if err := json.Unmarshal(resp.Data, &monitors); err != nil {
		return nil, fmt.Errorf("failed to parse monitors data: %w", err)
	}

	return &monitors, nil
}

// Save flushes the replay buffer to disk and returns the written path. The
// daemon side waits on the engine's write signal, so this call uses a longer
// deadline than the other commands.
func (c *Client) Save() (string, error) {
	resp, err := c.sendRequest(&Request{Command: CommandSave}, 15*time.Second)
	if err != nil {
		return "", err
	}

	var data SaveData
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		return "", fmt.Errorf("failed to parse save data: %w", err)
	}

	return data.Path, nil
}

// Split cuts a saved recording into per-monitor files. monitor is the target
// ordinal; pass nil to split every enabled monitor. Transcoding a long clip
// takes a while, hence the generous deadline.
func (c *Client) Split(path string, monitor *int) ([]string, error) {
	payload, err := json.Marshal(SplitPayload{Path: path, Monitor: monitor})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal split payload: %w", err)
	}

	resp, err := c.sendRequest(&Request{Command: CommandSplit, Payload: payload}, 10*time.Minute)
	if err != nil {
		return nil, err
	}

	var data SplitData
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		return nil, fmt.Errorf("failed to parse split data: %w", err)
	}

	return data.Outputs, nil
}

// Pause stops the replay buffer without tearing down the engine
func (c *Client) Pause() error {
	_, err := c.sendRequest(&Request{Command: CommandPause}, c.timeout)
	return err
}

// Resume restarts a paused replay buffer
func (c *Client) Resume() error {
	_, err := c.sendRequest(&Request{Command: CommandResume}, c.timeout)
	return err
}

// Restart re-applies the configuration and restarts the buffer
func (c *Client) Restart() error {
	_, err := c.sendRequest(&Request{Command: CommandRestart}, c.timeout)
	return err
}

// Ping checks if the daemon is responding
func (c *Client) Ping() error {
	_, err := c.GetStatus()
	return err
}
