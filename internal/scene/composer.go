// Package scene composes the capture scene consumed by the recording engine:
// one video source per enabled display, placed and scaled into the capture
// canvas, plus optional audio sources.
package scene

import (
	"fmt"
	"sync/atomic"

	"rewindd/internal/display"
	"rewindd/internal/resolution"
)

// VideoSource places one display capture inside the canvas. Offsets and
// scales are in canvas space: ScaleX/ScaleY are the canvas scale factors, not
// per-source aspect correction.
type VideoSource struct {
	ID           string
	DisplayIndex int
	OffsetX      float64
	OffsetY      float64
	ScaleX       float64
	ScaleY       float64
}

// AudioKind identifies an audio capture source.
type AudioKind string

const (
	AudioDesktop    AudioKind = "desktop"
	AudioMicrophone AudioKind = "microphone"
)

// AudioSource is one audio capture attached to the scene.
type AudioSource struct {
	ID   string
	Kind AudioKind
}

// AudioOptions gates which audio sources the scene carries. Both are
// optional; composition never fails for missing audio.
type AudioOptions struct {
	CaptureDesktop    bool
	CaptureMicrophone bool
}

// Scene is a full composition. Every call to Compose returns a scene with a
// fresh Name so a restart replaces the engine scene wholesale instead of
// mutating it; mutating in place can leak orphaned sources from the previous
// configuration into the new canvas.
type Scene struct {
	Name    string
	Canvas  resolution.Size
	Sources []VideoSource
	Audio   []AudioSource
}

var sceneSeq atomic.Uint64

// Compose builds the scene for the active displays scaled into the capture
// resolution. Displays outside the active set never appear as sources.
func Compose(active []display.Display, rect display.Rect, capture resolution.Size, audio AudioOptions) Scene {
	scaleX := 1.0
	scaleY := 1.0
	if rect.Width > 0 {
		scaleX = float64(capture.Width) / float64(rect.Width)
	}
	if rect.Height > 0 {
		scaleY = float64(capture.Height) / float64(rect.Height)
	}

	s := Scene{
		Name:    fmt.Sprintf("canvas-%d", sceneSeq.Add(1)),
		Canvas:  capture,
		Sources: make([]VideoSource, 0, len(active)),
	}

	for _, d := range active {
		s.Sources = append(s.Sources, VideoSource{
			ID:           fmt.Sprintf("%s/display-%d", s.Name, d.Index),
			DisplayIndex: d.Index,
			OffsetX:      float64(d.X-rect.MinX) * scaleX,
			OffsetY:      float64(d.Y-rect.MinY) * scaleY,
			ScaleX:       scaleX,
			ScaleY:       scaleY,
		})
	}

	if audio.CaptureDesktop {
		s.Audio = append(s.Audio, AudioSource{
			ID:   s.Name + "/audio-desktop",
			Kind: AudioDesktop,
		})
	}
	if audio.CaptureMicrophone {
		s.Audio = append(s.Audio, AudioSource{
			ID:   s.Name + "/audio-mic",
			Kind: AudioMicrophone,
		})
	}

	return s
}
