package resolution

import (
	"math"
	"testing"
)

func TestCompute_Native(t *testing.T) {
	got := Compute(PresetNative, nil, 3840, 1080)
	if got != (Size{Width: 3840, Height: 1080}) {
		t.Fatalf("expected native passthrough, got %+v", got)
	}
}

func TestCompute_HeightPresets(t *testing.T) {
	tests := []struct {
		preset  Preset
		nativeW int
		nativeH int
		want    Size
	}{
		// Dual 1920x1080 side by side.
		{Preset720p, 3840, 1080, Size{Width: 2560, Height: 720}},
		{Preset1080p, 3840, 1080, Size{Width: 3840, Height: 1080}},
		{Preset480p, 3840, 1080, Size{Width: 1707, Height: 480}},
		// Single 16:9.
		{Preset720p, 1920, 1080, Size{Width: 1280, Height: 720}},
		// Ultrawide.
		{Preset1080p, 3440, 1440, Size{Width: 2580, Height: 1080}},
	}

	for _, tt := range tests {
		got := Compute(tt.preset, nil, tt.nativeW, tt.nativeH)
		if got != tt.want {
			t.Fatalf("%s of %dx%d: expected %+v, got %+v",
				tt.preset, tt.nativeW, tt.nativeH, tt.want, got)
		}
	}
}

func TestCompute_HeightPresetsPreserveAspect(t *testing.T) {
	layouts := []Size{
		{3840, 1080}, {1920, 1080}, {5760, 1080}, {2560, 1440}, {3286, 1294},
	}
	presets := []Preset{Preset1080p, Preset720p, Preset480p}

	for _, native := range layouts {
		nativeAspect := float64(native.Width) / float64(native.Height)
		for _, p := range presets {
			got := Compute(p, nil, native.Width, native.Height)
			aspect := float64(got.Width) / float64(got.Height)
			// Width rounding can shift the ratio by at most half a pixel
			// over the target height.
			if math.Abs(aspect-nativeAspect) > 0.5/float64(got.Height)*nativeAspect+0.001 {
				t.Fatalf("%s of %dx%d: aspect %f drifted from native %f",
					p, native.Width, native.Height, aspect, nativeAspect)
			}
		}
	}
}

func TestCompute_Custom(t *testing.T) {
	got := Compute(PresetCustom, &Size{Width: 2560, Height: 1440}, 3840, 1080)
	if got != (Size{Width: 2560, Height: 1440}) {
		t.Fatalf("expected stored custom size, got %+v", got)
	}

	// Missing custom dimensions default to 1920x1080.
	got = Compute(PresetCustom, nil, 3840, 1080)
	if got != DefaultCustom {
		t.Fatalf("expected default custom size, got %+v", got)
	}
	got = Compute(PresetCustom, &Size{}, 3840, 1080)
	if got != DefaultCustom {
		t.Fatalf("expected default for zero custom size, got %+v", got)
	}
}

func TestPresetValid(t *testing.T) {
	for _, p := range []Preset{PresetNative, Preset1080p, Preset720p, Preset480p, PresetCustom} {
		if !p.Valid() {
			t.Fatalf("expected %q to be valid", p)
		}
	}
	if Preset("4k").Valid() {
		t.Fatalf("unknown preset must be invalid")
	}
}
