package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/godbus/dbus/v5"

	"rewindd/internal/scene"
)

// Default addressing for the recording engine service on the session bus.
const (
	DefaultBusName    = "org.rewindd.Engine1"
	DefaultObjectPath = "/org/rewindd/Engine1"
	engineInterface   = "org.rewindd.Engine1"
	signalMember      = engineInterface + ".Signal"
)

// DBusEngine drives the recording engine over the D-Bus session bus. The
// engine pushes notifications as D-Bus signals; DBusEngine translates them
// into Signal values on a single-consumer channel.
type DBusEngine struct {
	conn   *dbus.Conn
	obj    dbus.BusObject
	logger *slog.Logger

	raw chan *dbus.Signal
	out chan Signal

	closeOnce sync.Once
	done      chan struct{}
}

var _ Engine = (*DBusEngine)(nil)

// ConnectOptions addresses the engine service. Zero values use the defaults.
type ConnectOptions struct {
	BusName    string
	ObjectPath string
}

// Connect opens a session-bus connection to the engine and subscribes to its
// signal channel. A connection failure here means the native engine is
// missing or unloadable; the caller surfaces that once and continues without
// recording features.
func Connect(opts ConnectOptions, logger *slog.Logger) (*DBusEngine, error) {
	busName := opts.BusName
	if busName == "" {
		busName = DefaultBusName
	}
	objectPath := opts.ObjectPath
	if objectPath == "" {
		objectPath = DefaultObjectPath
	}

	conn, err := dbus.SessionBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session bus: %w", err)
	}

	if err := conn.AddMatchSignal(
		dbus.WithMatchInterface(engineInterface),
		dbus.WithMatchObjectPath(dbus.ObjectPath(objectPath)),
	); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to subscribe to engine signals: %w", err)
	}

	e := &DBusEngine{
		conn:   conn,
		obj:    conn.Object(busName, dbus.ObjectPath(objectPath)),
		logger: logger,
		raw:    make(chan *dbus.Signal, 32),
		out:    make(chan Signal, 32),
		done:   make(chan struct{}),
	}
	conn.Signal(e.raw)

	go e.pump()

	return e, nil
}

// pump translates raw bus signals into engine signals. It must never block:
// if the consumer falls behind, signals are dropped with a log line rather
// than stalling the bus reader.
func (e *DBusEngine) pump() {
	for {
		select {
		case <-e.done:
			close(e.out)
			return
		case raw, ok := <-e.raw:
			if !ok {
				close(e.out)
				return
			}
			sig, ok := parseSignal(raw)
			if !ok {
				continue
			}
			select {
			case e.out <- sig:
			default:
				e.logger.Warn("engine signal dropped, consumer not draining",
					"type", sig.Type, "kind", sig.Kind)
			}
		}
	}
}

func parseSignal(raw *dbus.Signal) (Signal, bool) {
	if raw.Name != signalMember || len(raw.Body) < 4 {
		return Signal{}, false
	}

	sigType, ok1 := raw.Body[0].(string)
	kind, ok2 := raw.Body[1].(string)
	code, ok3 := raw.Body[2].(int32)
	message, ok4 := raw.Body[3].(string)
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return Signal{}, false
	}

	sig := Signal{
		Type:    sigType,
		Kind:    kind,
		Code:    int(code),
		Message: message,
	}
	if len(raw.Body) > 4 {
		if path, ok := raw.Body[4].(string); ok {
			sig.Path = path
		}
	}
	return sig, true
}

// Configure pushes the parameter dictionary to the engine.
func (e *DBusEngine) Configure(ctx context.Context, s Settings) error {
	params := make(map[string]dbus.Variant)
	for name, value := range s.Parameters() {
		params[name] = dbus.MakeVariant(value)
	}

	if call := e.obj.CallWithContext(ctx, engineInterface+".Configure", 0, params); call.Err != nil {
		return fmt.Errorf("engine configure failed: %w", call.Err)
	}
	return nil
}

// ApplyScene replaces the engine scene. The scene is serialized as JSON; the
// engine treats it as an opaque composition document.
func (e *DBusEngine) ApplyScene(ctx context.Context, sc scene.Scene) error {
	doc, err := json.Marshal(sc)
	if err != nil {
		return fmt.Errorf("failed to encode scene: %w", err)
	}

	if call := e.obj.CallWithContext(ctx, engineInterface+".SetScene", 0, string(doc)); call.Err != nil {
		return fmt.Errorf("engine scene apply failed: %w", call.Err)
	}
	return nil
}

func (e *DBusEngine) StartBuffer(ctx context.Context) error {
	if call := e.obj.CallWithContext(ctx, engineInterface+".StartBuffer", 0); call.Err != nil {
		return fmt.Errorf("engine start request failed: %w", call.Err)
	}
	return nil
}

func (e *DBusEngine) StopBuffer(ctx context.Context) error {
	if call := e.obj.CallWithContext(ctx, engineInterface+".StopBuffer", 0); call.Err != nil {
		return fmt.Errorf("engine stop request failed: %w", call.Err)
	}
	return nil
}

func (e *DBusEngine) SaveBuffer(ctx context.Context) error {
	if call := e.obj.CallWithContext(ctx, engineInterface+".SaveBuffer", 0); call.Err != nil {
		return fmt.Errorf("engine save request failed: %w", call.Err)
	}
	return nil
}

// Signals returns the translated engine signal channel.
func (e *DBusEngine) Signals() <-chan Signal {
	return e.out
}

// Close releases the bus connection. Must be called exactly once at process
// exit.
func (e *DBusEngine) Close() error {
	var err error
	e.closeOnce.Do(func() {
		close(e.done)
		e.conn.RemoveSignal(e.raw)
		err = e.conn.Close()
	})
	return err
}
