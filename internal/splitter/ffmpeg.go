package splitter

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
)

// FFmpeg runs the ffmpeg binary for rectangular crops. Audio streams are
// copied through untouched; only the video is re-encoded.
type FFmpeg struct {
	// Binary is the executable to run, "ffmpeg" unless overridden.
	Binary string

	logger *slog.Logger
}

func NewFFmpeg(logger *slog.Logger) *FFmpeg {
	return &FFmpeg{Binary: "ffmpeg", logger: logger}
}

func (f *FFmpeg) Crop(ctx context.Context, src, dst string, spec CropSpec) error {
	filter := fmt.Sprintf("crop=%d:%d:%d:%d", spec.Width, spec.Height, spec.X, spec.Y)
	args := []string{"-y", "-i", src, "-filter:v", filter, "-c:a", "copy", dst}

	f.logger.Debug("invoking transcoder", "binary", f.Binary, "args", strings.Join(args, " "))

	cmd := exec.CommandContext(ctx, f.Binary, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg failed: %w: %s", err, lastLine(stderr.String()))
	}
	return nil
}

// lastLine extracts the final non-empty stderr line, which is where ffmpeg
// puts the actual failure reason.
func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if l := strings.TrimSpace(lines[i]); l != "" {
			return l
		}
	}
	return "no output"
}
