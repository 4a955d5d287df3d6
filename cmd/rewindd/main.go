package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"rewindd/internal/config"
	"rewindd/internal/daemon"
	"rewindd/internal/display"
	"rewindd/internal/engine"
	"rewindd/internal/ipc"
	"rewindd/internal/mcp"
	"rewindd/internal/metrics"
	"rewindd/internal/replay"
	"rewindd/internal/splitter"
	"rewindd/internal/watcher"
	"rewindd/internal/x11"
)

func main() {
	if len(os.Args) < 2 {
		printMainUsage(os.Stdout)
		os.Exit(0)
	}

	switch os.Args[1] {
	case "daemon":
		if len(os.Args) > 2 && (os.Args[2] == "help" || os.Args[2] == "-h" || os.Args[2] == "--help") {
			fmt.Fprintln(os.Stdout, "Usage: rewindd daemon")
			os.Exit(0)
		}
		if len(os.Args) > 2 {
			fmt.Fprintln(os.Stderr, "daemon takes no arguments")
			fmt.Fprintln(os.Stderr, "")
			fmt.Fprintln(os.Stderr, "Usage: rewindd daemon")
			os.Exit(2)
		}
		os.Exit(runDaemon())
	case "status":
		os.Exit(runStatus(os.Args[2:]))
	case "monitors":
		os.Exit(runMonitors(os.Args[2:]))
	case "save":
		os.Exit(runSave(os.Args[2:]))
	case "split":
		os.Exit(runSplit(os.Args[2:]))
	case "pause":
		os.Exit(runSimpleCommand("pause", os.Args[2:], func(c *ipc.Client) error { return c.Pause() }))
	case "resume":
		os.Exit(runSimpleCommand("resume", os.Args[2:], func(c *ipc.Client) error { return c.Resume() }))
	case "restart":
		os.Exit(runSimpleCommand("restart", os.Args[2:], func(c *ipc.Client) error { return c.Restart() }))
	case "reload":
		os.Exit(runSimpleCommand("reload", os.Args[2:], func(c *ipc.Client) error { return c.Reload() }))
	case "config":
		os.Exit(runConfig(os.Args[2:]))
	case "mcp":
		os.Exit(runMCP(os.Args[2:]))
	case "help", "-h", "--help":
		printMainUsage(os.Stdout)
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printMainUsage(os.Stderr)
		os.Exit(2)
	}
}

func printMainUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: rewindd <command> [options]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  daemon              Start the rewindd daemon (foreground)")
	fmt.Fprintln(w, "  status              Show daemon and replay buffer status")
	fmt.Fprintln(w, "  monitors            List connected monitors and their ordinals")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  save                Save the replay buffer to disk")
	fmt.Fprintln(w, "  split               Split a saved recording into per-monitor files")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  pause               Pause the replay buffer")
	fmt.Fprintln(w, "  resume              Resume a paused replay buffer")
	fmt.Fprintln(w, "  restart             Restart the buffer with the config on disk")
	fmt.Fprintln(w, "  reload              Validate the config and restart the buffer")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  config set          Set a config value (e.g. recording.path)")
	fmt.Fprintln(w, "  config validate     Validate configuration")
	fmt.Fprintln(w, "  config print        Print effective configuration")
	fmt.Fprintln(w, "  config path         Print configuration file path")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  mcp serve           Start MCP server (stdio transport)")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Run 'rewindd <command> --help' for command-specific options.")
}

// x11Displays adapts the X connection into the display provider used by the
// controller and the splitter. Every call re-enumerates, so hot-plugged
// monitors show up on the next restart.
type x11Displays struct {
	conn *x11.Connection
}

func (p x11Displays) Displays() ([]display.Display, error) {
	monitors, err := p.conn.GetMonitors()
	if err != nil {
		return nil, err
	}
	return display.FromMonitors(monitors), nil
}

func buildLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}

func runDaemon() int {
	// A .env beside the binary is optional, used for development overrides.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		return 1
	}

	logger := buildLogger(cfg.Logging)
	slog.SetDefault(logger)

	// Starting a second daemon would remove the live socket out from under
	// the first one, so refuse if anything answers on it.
	if err := ipc.NewClient().Ping(); err == nil {
		logger.Error("another rewindd daemon is already running")
		return 1
	}

	conn, err := x11.NewConnection()
	if err != nil {
		logger.Error("failed to connect to display server", "error", err)
		return 1
	}
	defer conn.Close()

	provider := x11Displays{conn: conn}

	newEngine := func() (engine.Engine, error) {
		return engine.Connect(engine.ConnectOptions{
			BusName:    cfg.Engine.BusName,
			ObjectPath: cfg.Engine.ObjectPath,
		}, logger)
	}

	controller := replay.NewController(newEngine, provider, config.Load, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := controller.Initialize(ctx); err != nil {
		// The engine may come up after us. Keep serving IPC and retry in
		// the background; Initialize is idempotent once it succeeds.
		logger.Error("engine initialization failed, retrying in background", "error", err)
		go retryInitialize(ctx, controller, logger)
	}
	defer controller.Shutdown(context.Background())

	stats := metrics.New()
	if cfg.Metrics.Enabled {
		srv := metrics.NewServer(cfg.Metrics.ListenAddr, stats, controller.Status, logger)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("metrics server failed", "error", err)
			}
		}()
		defer srv.Shutdown(context.Background())
	}

	split := splitter.New(splitter.NewFFmpeg(logger), provider, config.Load, logger)

	reloadChan := make(chan struct{}, 1)
	ipcServer, err := ipc.NewServer(controller, split, stats, reloadChan, logger)
	if err != nil {
		logger.Error("failed to create IPC server", "error", err)
		return 1
	}
	if err := ipcServer.Start(); err != nil {
		logger.Error("failed to start IPC server", "error", err)
		return 1
	}
	defer ipcServer.Stop()

	// A nil channel blocks forever, so a missing watcher just disables the
	// config-change path.
	var configChanged <-chan struct{}
	if path, err := config.DefaultConfigPath(); err == nil {
		w, err := watcher.New(path, logger)
		if err != nil {
			logger.Warn("config watcher disabled", "error", err)
		} else {
			defer w.Close()
			configChanged = w.Changed()
		}
	}

	reconciler := daemon.NewReconciler(daemon.ReconcilerConfig{Logger: logger}, controller, stats)
	go reconciler.Run(ctx)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	logger.Info("rewindd daemon started")

	for {
		select {
		case sig := <-sigChan:
			if sig == syscall.SIGHUP {
				logger.Info("SIGHUP received, restarting replay buffer")
				restartBuffer(ctx, controller, stats, logger)
				continue
			}
			logger.Info("shutting down", "signal", sig.String())
			return 0
		case <-reloadChan:
			restartBuffer(ctx, controller, stats, logger)
		case <-configChanged:
			restartBuffer(ctx, controller, stats, logger)
		}
	}
}

func retryInitialize(ctx context.Context, controller *replay.Controller, logger *slog.Logger) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := controller.Initialize(ctx); err != nil {
				logger.Debug("engine still unavailable", "error", err)
				continue
			}
			return
		}
	}
}

func restartBuffer(ctx context.Context, controller *replay.Controller, stats *metrics.Metrics, logger *slog.Logger) {
	if err := controller.Restart(ctx); err != nil {
		logger.Error("failed to restart replay buffer", "error", err)
		return
	}
	stats.RestartsTotal.Inc()
}

func runStatus(args []string) int {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: rewindd status")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Show daemon status via IPC.")
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "status takes no arguments")
		fs.Usage()
		return 2
	}

	client := ipc.NewClient()
	status, err := client.GetStatus()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	fmt.Printf("State:           %s\n", status.State)
	fmt.Printf("Buffer running:  %v\n", status.BufferRunning)
	if status.Paused {
		fmt.Printf("Paused:          true\n")
	}
	fmt.Printf("Active monitors: %d\n", status.ActiveMonitors)
	fmt.Printf("Canvas:          %dx%d\n", status.CanvasWidth, status.CanvasHeight)
	fmt.Printf("Output:          %dx%d\n", status.OutputWidth, status.OutputHeight)
	fmt.Printf("Uptime:          %ds\n", status.UptimeSeconds)
	return 0
}

func runMonitors(args []string) int {
	fs := flag.NewFlagSet("monitors", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: rewindd monitors")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "List connected monitors with the ordinals used by enabled_monitors and split.")
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}

	client := ipc.NewClient()
	data, err := client.GetMonitors()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	for _, m := range data.Monitors {
		fmt.Printf("%d: %s %dx%d at (%d,%d)\n", m.Index, m.Name, m.Width, m.Height, m.X, m.Y)
	}
	return 0
}

func runSave(args []string) int {
	fs := flag.NewFlagSet("save", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	splitAfter := fs.Bool("split", false, "split the saved clip into per-monitor files")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: rewindd save [--split]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Flush the rolling replay buffer to disk and print the saved path.")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}

	client := ipc.NewClient()
	path, err := client.Save()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Println(path)

	if *splitAfter {
		outputs, err := client.Split(path, nil)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		for _, out := range outputs {
			fmt.Println(out)
		}
	}
	return 0
}

func runSplit(args []string) int {
	fs := flag.NewFlagSet("split", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	monitor := fs.Int("monitor", -1, "monitor ordinal to isolate (default: all enabled monitors)")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: rewindd split [--monitor N] <recording>")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Cut a saved combined-canvas recording into per-monitor files.")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "split requires exactly one recording path")
		fs.Usage()
		return 2
	}

	var target *int
	if *monitor >= 0 {
		target = monitor
	}

	client := ipc.NewClient()
	outputs, err := client.Split(fs.Arg(0), target)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	for _, out := range outputs {
		fmt.Println(out)
	}
	return 0
}

func runSimpleCommand(name string, args []string, call func(*ipc.Client) error) int {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: rewindd %s\n", name)
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}

	if err := call(ipc.NewClient()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Println("OK")
	return 0
}

func runConfig(args []string) int {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: rewindd config <set|validate|print|path>")
		return 2
	}

	switch args[0] {
	case "set":
		if len(args) != 3 {
			fmt.Fprintln(os.Stderr, "Usage: rewindd config set <key> <value>")
			return 2
		}
		cfg, err := config.Load()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		if err := setConfigValue(cfg, args[1], args[2]); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 2
		}
		if err := cfg.Validate(); err != nil {
			fmt.Fprintf(os.Stderr, "Invalid: %v\n", err)
			return 1
		}
		if err := cfg.Save(); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		fmt.Printf("Set %s = %s\n", args[1], args[2])
		return 0
	case "validate":
		path, err := config.DefaultConfigPath()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		if _, err := config.Load(); err != nil {
			fmt.Fprintf(os.Stderr, "Invalid: %v\n", err)
			return 1
		}
		fmt.Printf("Valid: %s\n", path)
		return 0
	case "print":
		cfg, err := config.Load()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		out, err := yaml.Marshal(cfg)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		os.Stdout.Write(out)
		return 0
	case "path":
		path, err := config.DefaultConfigPath()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		fmt.Println(path)
		return 0
	default:
		fmt.Fprintf(os.Stderr, "Unknown config subcommand: %s\n", args[0])
		fmt.Fprintln(os.Stderr, "Usage: rewindd config <set|validate|print|path>")
		return 2
	}
}

// setConfigValue applies a single key update to cfg. Only the keys an
// external picker needs to persist are writable; everything else is
// edited in the config file directly.
func setConfigValue(cfg *config.Config, key, value string) error {
	switch key {
	case "recording.path":
		if value == "" {
			return fmt.Errorf("recording.path must not be empty")
		}
		cfg.Recording.Path = value
	case "recording.format":
		cfg.Recording.Format = value
	default:
		return fmt.Errorf("unknown or read-only config key: %s", key)
	}
	return nil
}

func runMCP(args []string) int {
	if len(args) < 1 || args[0] != "serve" {
		fmt.Fprintln(os.Stderr, "Usage: rewindd mcp serve")
		return 2
	}

	// stdout is the MCP transport; all logging goes to stderr.
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	server := mcp.NewServer(ipc.NewClient(), logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := server.Run(ctx); err != nil && ctx.Err() == nil {
		fmt.Fprintf(os.Stderr, "MCP server error: %v\n", err)
		return 1
	}
	return 0
}
