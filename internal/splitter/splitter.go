// Package splitter cuts a saved combined-canvas recording into per-monitor
// files. Crops are computed in output pixel space with the same resolution
// policy that produced the recording, so the geometry always matches what the
// engine encoded.
package splitter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"rewindd/internal/config"
	"rewindd/internal/display"
	"rewindd/internal/resolution"
)

// All selects every currently enabled monitor as the split target.
const All = -1

// DefaultCropTimeout bounds one transcoder invocation. A wedged ffmpeg is
// killed and reported instead of pinning the split forever.
const DefaultCropTimeout = 5 * time.Minute

var (
	// ErrFileNotFound is returned when the source recording does not
	// exist. Checked before the transcoder is ever invoked.
	ErrFileNotFound = errors.New("recording file not found")

	// ErrMonitorNotFound is returned when the target ordinal is outside
	// the current display list.
	ErrMonitorNotFound = errors.New("monitor not found")
)

// TranscodeError reports a failed crop for one monitor.
type TranscodeError struct {
	Monitor int
	Err     error
}

func (e *TranscodeError) Error() string {
	return fmt.Sprintf("transcode failed for monitor %d: %v", e.Monitor, e.Err)
}

func (e *TranscodeError) Unwrap() error { return e.Err }

// CropSpec is one rectangular crop in output pixel space.
type CropSpec struct {
	X      int
	Y      int
	Width  int
	Height int
}

// Transcoder produces dst from src restricted to the crop rectangle.
type Transcoder interface {
	Crop(ctx context.Context, src, dst string, spec CropSpec) error
}

// DisplayProvider supplies the current monitor topology.
type DisplayProvider interface {
	Displays() ([]display.Display, error)
}

// ConfigProvider returns a fresh configuration snapshot.
type ConfigProvider func() (*config.Config, error)

// Splitter orchestrates post-capture splitting.
type Splitter struct {
	logger      *slog.Logger
	displays    DisplayProvider
	loadConfig  ConfigProvider
	trans       Transcoder
	cropTimeout time.Duration
}

func New(trans Transcoder, displays DisplayProvider, loadConfig ConfigProvider, logger *slog.Logger) *Splitter {
	return &Splitter{
		logger:      logger,
		displays:    displays,
		loadConfig:  loadConfig,
		trans:       trans,
		cropTimeout: DefaultCropTimeout,
	}
}

// Split crops the recording at path into one file per target monitor and
// deletes the source once every requested crop succeeded. target is a monitor
// ordinal or All; All means every currently enabled monitor, not every
// connected one. On partial failure the source file is kept.
func (s *Splitter) Split(ctx context.Context, path string, target int) ([]string, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
	}

	cfg, err := s.loadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	all, err := s.displays.Displays()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate displays: %w", err)
	}

	// The rect and scale must mirror exactly what was recorded: the
	// bounding rect of the enabled set, scaled to the output resolution.
	rect, active, _, err := display.Resolve(all, cfg.EnabledSet())
	if err != nil {
		return nil, err
	}
	outPreset, outCustom := cfg.OutputSpec()
	out := resolution.Compute(outPreset, outCustom, rect.Width, rect.Height)
	scaleX := float64(out.Width) / float64(rect.Width)
	scaleY := float64(out.Height) / float64(rect.Height)

	var targets []display.Display
	if target == All {
		targets = active
	} else {
		for _, d := range all {
			if d.Index == target {
				targets = []display.Display{d}
				break
			}
		}
		if targets == nil {
			return nil, fmt.Errorf("%w: ordinal %d", ErrMonitorNotFound, target)
		}
	}

	outputs := make([]string, len(targets))
	failures := make([]error, len(targets))
	var wg sync.WaitGroup
	for i, d := range targets {
		outputs[i] = outputName(path, d.Index)
		spec := cropFor(d, rect, scaleX, scaleY)
		s.logger.Debug("cropping monitor",
			"monitor", d.Index, "output", outputs[i],
			"x", spec.X, "y", spec.Y, "w", spec.Width, "h", spec.Height)
		wg.Add(1)
		go func(i, ordinal int, spec CropSpec) {
			defer wg.Done()
			cropCtx, cancel := context.WithTimeout(ctx, s.cropTimeout)
			defer cancel()
			if err := s.trans.Crop(cropCtx, path, outputs[i], spec); err != nil {
				failures[i] = &TranscodeError{Monitor: ordinal, Err: err}
			}
		}(i, d.Index, spec)
	}
	wg.Wait()

	// Collect everything before touching the source. The original is only
	// removed when every requested crop succeeded.
	var produced []string
	var errs []error
	for i := range targets {
		if failures[i] != nil {
			errs = append(errs, failures[i])
			continue
		}
		produced = append(produced, outputs[i])
	}
	if len(errs) > 0 {
		s.logger.Error("split finished with failures, keeping source",
			"source", path, "failed", len(errs), "succeeded", len(produced))
		return produced, errors.Join(errs...)
	}

	if err := os.Remove(path); err != nil {
		s.logger.Warn("failed to remove source recording", "path", path, "error", err)
	}
	s.logger.Info("split recording", "source", path, "outputs", len(produced))
	return produced, nil
}

// outputName suffixes the monitor ordinal before the extension.
func outputName(src string, ordinal int) string {
	ext := filepath.Ext(src)
	return fmt.Sprintf("%s-monitor-%d%s", strings.TrimSuffix(src, ext), ordinal, ext)
}

func cropFor(d display.Display, rect display.Rect, scaleX, scaleY float64) CropSpec {
	return CropSpec{
		X:      int(math.Round(float64(d.X-rect.MinX) * scaleX)),
		Y:      int(math.Round(float64(d.Y-rect.MinY) * scaleY)),
		Width:  int(math.Round(float64(d.Width) * scaleX)),
		Height: int(math.Round(float64(d.Height) * scaleY)),
	}
}
