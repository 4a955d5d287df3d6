package replay

import (
	"errors"
	"fmt"
)

var (
	// ErrNotInitialized is returned when an operation needs the engine but
	// initialization never succeeded.
	ErrNotInitialized = errors.New("recording engine is not initialized")

	// ErrNotRunning is returned when an operation requires an active
	// replay buffer.
	ErrNotRunning = errors.New("replay buffer is not running")

	// ErrSaveTimeout is returned when no write signal arrives within the
	// save timeout. The pending slot is cleared; a later save may retry.
	ErrSaveTimeout = errors.New("timed out waiting for the engine to write the replay")

	// ErrRestartInProgress is returned when a restart is requested while
	// another restart has not yet finished.
	ErrRestartInProgress = errors.New("a restart is already in progress")

	// ErrSaveInProgress is returned when a save is requested while another
	// one is still outstanding.
	ErrSaveInProgress = errors.New("a replay save is already in progress")
)

// EngineError carries a write failure reported by the engine. Recoverable;
// the caller may retry the save.
type EngineError struct {
	Code    int
	Message string
}

func (e *EngineError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("engine reported write failure (code %d)", e.Code)
	}
	return fmt.Sprintf("engine reported write failure (code %d): %s", e.Code, e.Message)
}
