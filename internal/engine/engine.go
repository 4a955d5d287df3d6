// Package engine defines the contract with the external recording engine and
// a D-Bus client adapter for it. The engine itself is opaque: the daemon
// configures it, starts and stops its replay buffer, and listens to its
// asynchronous signal channel for lifecycle and write outcomes.
package engine

import (
	"context"

	"rewindd/internal/scene"
)

// SignalType classifies which engine output a signal belongs to. Only
// replay-buffer signals are acted on; everything else is ignored.
const SignalTypeReplayBuffer = "replay-buffer"

// Signal kinds emitted on the replay-buffer channel.
const (
	SignalStart      = "start"
	SignalStop       = "stop"
	SignalWrote      = "wrote"
	SignalWriteError = "writing_error"
)

// Signal is one asynchronous notification from the engine.
type Signal struct {
	Type string
	Kind string
	Code int
	// Message carries the engine-supplied error text for writing_error.
	Message string
	// Path carries the written file path for wrote.
	Path string
}

// Engine is the recording engine capability the controller drives. All
// blocking calls take a context; completion of buffer operations is reported
// asynchronously on Signals, not by the method return.
type Engine interface {
	// Configure pushes encoder and buffer parameters. Must be called
	// before the first StartBuffer and again before restarting with new
	// settings.
	Configure(ctx context.Context, s Settings) error

	// ApplyScene replaces the engine's capture scene wholesale.
	ApplyScene(ctx context.Context, sc scene.Scene) error

	StartBuffer(ctx context.Context) error
	StopBuffer(ctx context.Context) error

	// SaveBuffer asks the engine to flush the rolling buffer to disk. The
	// outcome arrives later as a wrote or writing_error signal.
	SaveBuffer(ctx context.Context) error

	// Signals is the engine's push channel. It is closed by Close.
	Signals() <-chan Signal

	Close() error
}
