// Package resolution maps resolution presets onto concrete pixel dimensions.
// The capture (canvas) resolution and the output (encoded) resolution are two
// independent applications of the same policy.
package resolution

import "math"

// Preset selects how a resolution is derived from the native bounding rect.
type Preset string

const (
	PresetNative Preset = "native"
	Preset1080p  Preset = "1080p"
	Preset720p   Preset = "720p"
	Preset480p   Preset = "480p"
	PresetCustom Preset = "custom"
)

// Size is a concrete pixel resolution.
type Size struct {
	Width  int
	Height int
}

// DefaultCustom is used when a custom preset carries no explicit dimensions.
var DefaultCustom = Size{Width: 1920, Height: 1080}

func presetHeight(p Preset) int {
	switch p {
	case Preset1080p:
		return 1080
	case Preset720p:
		return 720
	case Preset480p:
		return 480
	}
	return 0
}

// Valid reports whether p is a known preset.
func (p Preset) Valid() bool {
	switch p {
	case PresetNative, Preset1080p, Preset720p, Preset480p, PresetCustom:
		return true
	}
	return false
}

// Compute maps a preset plus the native canvas size to a concrete resolution.
// Height presets fix the height and scale the width to preserve the native
// aspect ratio: a 3840x1080 dual-monitor canvas downscaled to 720p must come
// out 2560x720, not 1280x720.
func Compute(preset Preset, custom *Size, nativeW, nativeH int) Size {
	switch preset {
	case Preset1080p, Preset720p, Preset480p:
		h := presetHeight(preset)
		if nativeH <= 0 {
			return Size{Width: 0, Height: h}
		}
		w := int(math.Round(float64(nativeW) * float64(h) / float64(nativeH)))
		return Size{Width: w, Height: h}
	case PresetCustom:
		if custom == nil || custom.Width <= 0 || custom.Height <= 0 {
			return DefaultCustom
		}
		return *custom
	default: // native
		return Size{Width: nativeW, Height: nativeH}
	}
}
