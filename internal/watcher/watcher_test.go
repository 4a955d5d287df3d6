package watcher

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"rewindd/internal/config"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeDefaultConfig(t *testing.T, path string) {
	t.Helper()
	cfg := config.Default()
	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("save config: %v", err)
	}
}

func TestWatcherNotifiesOnValidChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeDefaultConfig(t, path)

	w, err := New(path, testLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer w.Close()

	cfg := config.Default()
	cfg.ReplayBuffer.DurationSeconds = 60
	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}

	select {
	case <-w.Changed():
	case <-time.After(3 * time.Second):
		t.Fatal("no change notification")
	}
}

func TestWatcherIgnoresInvalidChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeDefaultConfig(t, path)

	w, err := New(path, testLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer w.Close()

	bad := "replay_buffer:\n  duration_seconds: -5\n"
	if err := os.WriteFile(path, []byte(bad), 0o644); err != nil {
		t.Fatalf("write invalid config: %v", err)
	}

	select {
	case <-w.Changed():
		t.Fatal("invalid config produced a notification")
	case <-time.After(500 * time.Millisecond):
	}
}

func TestWatcherIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	writeDefaultConfig(t, path)

	w, err := New(path, testLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer w.Close()

	if err := os.WriteFile(filepath.Join(dir, "other.yaml"), []byte("x: 1\n"), 0o644); err != nil {
		t.Fatalf("write sibling file: %v", err)
	}

	select {
	case <-w.Changed():
		t.Fatal("unrelated file produced a notification")
	case <-time.After(500 * time.Millisecond):
	}
}
