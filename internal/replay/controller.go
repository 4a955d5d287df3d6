// Package replay owns the recording engine: it drives buffer lifecycle,
// applies topology and resolution configuration, and correlates save requests
// with the engine's asynchronous write signals. The Controller is the single
// owner of engine state; construct it once at process start and hand the
// reference to every consumer.
package replay

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"rewindd/internal/config"
	"rewindd/internal/display"
	"rewindd/internal/engine"
	"rewindd/internal/resolution"
	"rewindd/internal/scene"
)

// State is the controller's lifecycle state. Restarting is an explicit state
// so the signal handler can tell an intentional stop (part of a restart) from
// a user- or engine-initiated one without a side flag.
type State int

const (
	StateUninitialized State = iota
	StateInitializing
	StateRunning
	StateStopping
	StateRestarting
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitializing:
		return "initializing"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateRestarting:
		return "restarting"
	}
	return "unknown"
}

const (
	// DefaultSaveTimeout bounds the wait for a wrote/writing_error signal.
	DefaultSaveTimeout = 10 * time.Second
	// DefaultStopTimeout bounds the wait for the stop signal during a
	// restart; the signal is not contractually guaranteed.
	DefaultStopTimeout = 2 * time.Second
)

// DisplayProvider supplies the current monitor topology.
type DisplayProvider interface {
	Displays() ([]display.Display, error)
}

// EngineFactory opens a connection to the recording engine.
type EngineFactory func() (engine.Engine, error)

// ConfigProvider returns a fresh configuration snapshot.
type ConfigProvider func() (*config.Config, error)

type saveResult struct {
	path string
	err  error
}

// pendingSave is the single-slot registry correlating one outstanding save
// request with the write signal that arrives later.
type pendingSave struct {
	result chan saveResult
}

// Status is a point-in-time snapshot of the controller.
type Status struct {
	State          string          `json:"state"`
	BufferRunning  bool            `json:"buffer_running"`
	Paused         bool            `json:"paused"`
	ActiveMonitors int             `json:"active_monitors"`
	NativeRect     display.Rect    `json:"native_rect"`
	CaptureSize    resolution.Size `json:"capture_size"`
	OutputSize     resolution.Size `json:"output_size"`
	SceneName      string          `json:"scene_name"`
}

// Controller is the engine lifecycle state machine plus the save correlator.
// All state transitions and signal handling are serialized through one mutex;
// the signal handler never blocks.
type Controller struct {
	logger     *slog.Logger
	newEngine  EngineFactory
	displays   DisplayProvider
	loadConfig ConfigProvider

	saveTimeout time.Duration
	stopTimeout time.Duration

	mu      sync.Mutex
	state   State
	running bool
	paused  bool
	eng     engine.Engine

	pending        *pendingSave
	restartStopped chan struct{}

	activeDisplays []display.Display
	nativeRect     display.Rect
	captureSize    resolution.Size
	outputSize     resolution.Size
	sceneName      string
}

// NewController wires the controller's collaborators. Nothing touches the
// engine until Initialize.
func NewController(newEngine EngineFactory, displays DisplayProvider, loadConfig ConfigProvider, logger *slog.Logger) *Controller {
	return &Controller{
		logger:      logger,
		newEngine:   newEngine,
		displays:    displays,
		loadConfig:  loadConfig,
		saveTimeout: DefaultSaveTimeout,
		stopTimeout: DefaultStopTimeout,
	}
}

// Initialize connects to the engine, applies the full configuration and
// starts the buffer. Idempotent: a second call on an initialized controller
// is a no-op. On failure the state stays Uninitialized and the error is
// surfaced so the operator can remediate the missing engine.
func (c *Controller) Initialize(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateUninitialized {
		c.mu.Unlock()
		return nil
	}
	c.state = StateInitializing
	c.mu.Unlock()

	eng, err := c.newEngine()
	if err != nil {
		c.setState(StateUninitialized)
		return fmt.Errorf("engine initialization failed: %w", err)
	}

	if err := c.applyConfiguration(ctx, eng); err != nil {
		eng.Close()
		c.setState(StateUninitialized)
		return err
	}

	c.mu.Lock()
	c.eng = eng
	c.state = StateRunning
	c.running = true
	c.paused = false
	c.mu.Unlock()

	go c.drainSignals(eng)

	c.logger.Info("replay buffer initialized")
	return nil
}

func (c *Controller) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// applyConfiguration resolves topology, computes both resolutions, composes a
// fresh scene and pushes everything to the engine, then requests buffer
// start. Called on initialize and again on every restart.
func (c *Controller) applyConfiguration(ctx context.Context, eng engine.Engine) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	all, err := c.displays.Displays()
	if err != nil {
		return fmt.Errorf("failed to enumerate displays: %w", err)
	}

	enabled := cfg.EnabledSet()
	rect, active, fellBack, err := display.Resolve(all, enabled)
	if err != nil {
		return err
	}
	if fellBack {
		c.logger.Warn("enabled monitor set matches no connected display, capturing all",
			"enabled", enabled, "connected", len(all))
	}

	capPreset, capCustom := cfg.CaptureSpec()
	capture := resolution.Compute(capPreset, capCustom, rect.Width, rect.Height)
	outPreset, outCustom := cfg.OutputSpec()
	output := resolution.Compute(outPreset, outCustom, rect.Width, rect.Height)

	sc := scene.Compose(active, rect, capture, scene.AudioOptions{
		CaptureDesktop:    cfg.Audio.CaptureDesktop,
		CaptureMicrophone: cfg.Audio.CaptureMicrophone,
	})

	settings := engine.Settings{
		BufferSeconds:    cfg.ReplayBuffer.DurationSeconds,
		BufferMaxSizeMB:  cfg.ReplayBuffer.MaxSizeMB,
		VideoBitrateKbps: cfg.Video.BitrateKbps,
		Encoder:          cfg.Video.Encoder,
		EncoderPreset:    cfg.Video.EncoderPreset,
		FPS:              cfg.Video.FPS,
		Format:           cfg.Recording.Format,
		OutputDir:        cfg.Recording.Path,
		CanvasWidth:      capture.Width,
		CanvasHeight:     capture.Height,
		OutputWidth:      output.Width,
		OutputHeight:     output.Height,
	}

	if err := eng.Configure(ctx, settings); err != nil {
		return fmt.Errorf("failed to configure engine: %w", err)
	}
	if err := eng.ApplyScene(ctx, sc); err != nil {
		return fmt.Errorf("failed to apply scene: %w", err)
	}
	if err := eng.StartBuffer(ctx); err != nil {
		return fmt.Errorf("failed to start replay buffer: %w", err)
	}

	c.mu.Lock()
	c.activeDisplays = active
	c.nativeRect = rect
	c.captureSize = capture
	c.outputSize = output
	c.sceneName = sc.Name
	c.mu.Unlock()

	c.logger.Info("capture pipeline configured",
		"monitors", len(active),
		"canvas", fmt.Sprintf("%dx%d", capture.Width, capture.Height),
		"output", fmt.Sprintf("%dx%d", output.Width, output.Height),
		"scene", sc.Name)
	return nil
}

func (c *Controller) drainSignals(eng engine.Engine) {
	for sig := range eng.Signals() {
		c.handleSignal(sig)
	}
}

// handleSignal processes one engine notification. It only mutates small
// pieces of state and resolves pending waits; it must never block.
func (c *Controller) handleSignal(sig engine.Signal) {
	if sig.Type != engine.SignalTypeReplayBuffer {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	switch sig.Kind {
	case engine.SignalStart:
		c.running = true
		if c.state == StateStopping {
			c.state = StateRunning
		}

	case engine.SignalStop:
		if c.state == StateRestarting {
			// Intentional stop inside a restart: wake the waiter and
			// leave the logical running state untouched.
			if c.restartStopped != nil {
				select {
				case c.restartStopped <- struct{}{}:
				default:
				}
			}
			return
		}
		c.running = false
		if c.state == StateStopping {
			c.state = StateRunning
		}

	case engine.SignalWrote:
		p := c.pending
		c.pending = nil
		if p == nil {
			// Unmatched write signal; nothing waits for it.
			return
		}
		p.result <- saveResult{path: sig.Path}

	case engine.SignalWriteError:
		p := c.pending
		c.pending = nil
		if p == nil {
			return
		}
		p.result <- saveResult{err: &EngineError{Code: sig.Code, Message: sig.Message}}
	}
}

// Save flushes the rolling buffer to disk and returns the written file path.
// Exactly one save may be outstanding; the wait is bounded by the save
// timeout, after which the pending slot is cleared so a later save can
// proceed.
func (c *Controller) Save(ctx context.Context) (string, error) {
	c.mu.Lock()
	if c.eng == nil {
		c.mu.Unlock()
		return "", ErrNotInitialized
	}
	if !c.running || c.state == StateRestarting {
		c.mu.Unlock()
		return "", ErrNotRunning
	}
	if c.pending != nil {
		c.mu.Unlock()
		return "", ErrSaveInProgress
	}
	p := &pendingSave{result: make(chan saveResult, 1)}
	c.pending = p
	eng := c.eng
	c.mu.Unlock()

	if err := eng.SaveBuffer(ctx); err != nil {
		c.clearPending(p)
		return "", fmt.Errorf("save request failed: %w", err)
	}

	timer := time.NewTimer(c.saveTimeout)
	defer timer.Stop()

	select {
	case res := <-p.result:
		if res.err != nil {
			return "", res.err
		}
		return c.normalizeSavedPath(res.path), nil
	case <-timer.C:
		c.clearPending(p)
		// A signal may have raced the timer; prefer the real outcome.
		select {
		case res := <-p.result:
			if res.err != nil {
				return "", res.err
			}
			return c.normalizeSavedPath(res.path), nil
		default:
		}
		return "", ErrSaveTimeout
	case <-ctx.Done():
		c.clearPending(p)
		return "", ctx.Err()
	}
}

func (c *Controller) clearPending(p *pendingSave) {
	c.mu.Lock()
	if c.pending == p {
		c.pending = nil
	}
	c.mu.Unlock()
}

// normalizeSavedPath strips the engine's generic default name prefix from the
// saved file. Rename failures are logged and the original path returned.
func (c *Controller) normalizeSavedPath(path string) string {
	base := filepath.Base(path)
	const enginePrefix = "Replay "
	if !strings.HasPrefix(base, enginePrefix) {
		return path
	}

	renamed := filepath.Join(filepath.Dir(path),
		"rewind-"+strings.ReplaceAll(strings.TrimPrefix(base, enginePrefix), " ", "_"))
	if err := os.Rename(path, renamed); err != nil {
		c.logger.Warn("failed to rename saved replay", "path", path, "error", err)
		return path
	}
	return renamed
}

// Pause stops the buffer without touching configuration. Request failures
// are logged, not returned; the running flag follows the engine's signals.
func (c *Controller) Pause(ctx context.Context) error {
	c.mu.Lock()
	if c.eng == nil {
		c.mu.Unlock()
		return ErrNotInitialized
	}
	if !c.running {
		c.paused = true
		c.mu.Unlock()
		return nil
	}
	c.state = StateStopping
	c.paused = true
	eng := c.eng
	c.mu.Unlock()

	if err := eng.StopBuffer(ctx); err != nil {
		c.logger.Error("stop request failed", "error", err)
		c.setState(StateRunning)
	}
	return nil
}

// Resume restarts a paused buffer without touching configuration.
func (c *Controller) Resume(ctx context.Context) error {
	c.mu.Lock()
	if c.eng == nil {
		c.mu.Unlock()
		return ErrNotInitialized
	}
	c.paused = false
	if c.running {
		c.mu.Unlock()
		return nil
	}
	eng := c.eng
	c.mu.Unlock()

	if err := eng.StartBuffer(ctx); err != nil {
		c.logger.Error("start request failed", "error", err)
	}
	return nil
}

// Restart safely re-applies the configuration: stop, await the engine's stop
// signal (or the bounded timeout), reconfigure with a fresh topology and
// scene, start again. Used after any configuration write.
func (c *Controller) Restart(ctx context.Context) error {
	c.mu.Lock()
	if c.eng == nil {
		c.mu.Unlock()
		return ErrNotInitialized
	}
	if c.state == StateRestarting {
		c.mu.Unlock()
		return ErrRestartInProgress
	}
	wasRunning := c.running
	c.state = StateRestarting
	stopped := make(chan struct{}, 1)
	c.restartStopped = stopped
	eng := c.eng
	c.mu.Unlock()

	if wasRunning {
		if err := eng.StopBuffer(ctx); err != nil {
			c.logger.Error("stop request during restart failed", "error", err)
		}
		timer := time.NewTimer(c.stopTimeout)
		select {
		case <-stopped:
			timer.Stop()
		case <-timer.C:
			c.logger.Warn("no stop signal within restart window, proceeding")
		case <-ctx.Done():
			timer.Stop()
			c.finishRestart(false)
			return ctx.Err()
		}
	}

	if err := c.applyConfiguration(ctx, eng); err != nil {
		c.finishRestart(false)
		return err
	}

	c.finishRestart(true)
	c.logger.Info("replay buffer restarted with new settings")
	return nil
}

func (c *Controller) finishRestart(running bool) {
	c.mu.Lock()
	c.restartStopped = nil
	c.state = StateRunning
	c.running = running
	c.paused = false
	c.mu.Unlock()
}

// IsRunning reports whether the buffer is actively recording. This is the
// authoritative query after best-effort start/stop requests.
func (c *Controller) IsRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// Status returns a snapshot of the controller state.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Status{
		State:          c.state.String(),
		BufferRunning:  c.running,
		Paused:         c.paused,
		ActiveMonitors: len(c.activeDisplays),
		NativeRect:     c.nativeRect,
		CaptureSize:    c.captureSize,
		OutputSize:     c.outputSize,
		SceneName:      c.sceneName,
	}
}

// GetDisplays returns a synchronous snapshot of the display topology.
func (c *Controller) GetDisplays() ([]display.Display, error) {
	return c.displays.Displays()
}

// Shutdown stops the buffer if running and releases the engine connection.
// Call exactly once at process exit.
func (c *Controller) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	eng := c.eng
	running := c.running
	c.eng = nil
	c.state = StateUninitialized
	c.running = false
	if p := c.pending; p != nil {
		c.pending = nil
		p.result <- saveResult{err: ErrNotRunning}
	}
	c.mu.Unlock()

	if eng == nil {
		return nil
	}
	if running {
		if err := eng.StopBuffer(ctx); err != nil {
			c.logger.Warn("stop on shutdown failed", "error", err)
		}
	}
	return eng.Close()
}
