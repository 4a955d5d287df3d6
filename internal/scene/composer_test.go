package scene

import (
	"math"
	"testing"

	"rewindd/internal/display"
	"rewindd/internal/resolution"
)

func dualLayout() ([]display.Display, display.Rect) {
	displays := []display.Display{
		{Index: 0, X: 0, Y: 0, Width: 1920, Height: 1080},
		{Index: 1, X: 1920, Y: 0, Width: 1920, Height: 1080},
	}
	rect := display.Rect{MinX: 0, MinY: 0, Width: 3840, Height: 1080}
	return displays, rect
}

func TestCompose_PlacementAtNativeScale(t *testing.T) {
	displays, rect := dualLayout()
	s := Compose(displays, rect, resolution.Size{Width: 3840, Height: 1080}, AudioOptions{})

	if len(s.Sources) != 2 {
		t.Fatalf("expected 2 sources, got %d", len(s.Sources))
	}
	if s.Sources[0].OffsetX != 0 || s.Sources[1].OffsetX != 1920 {
		t.Fatalf("expected offsets 0 and 1920, got %f and %f",
			s.Sources[0].OffsetX, s.Sources[1].OffsetX)
	}
	for _, src := range s.Sources {
		if src.ScaleX != 1 || src.ScaleY != 1 {
			t.Fatalf("expected unit scale at native resolution, got %+v", src)
		}
	}
}

func TestCompose_ScaledPlacement(t *testing.T) {
	displays, rect := dualLayout()
	// 720p preset of a 3840x1080 canvas.
	s := Compose(displays, rect, resolution.Size{Width: 2560, Height: 720}, AudioOptions{})

	scale := 2560.0 / 3840.0
	if math.Abs(s.Sources[1].OffsetX-1920*scale) > 1e-9 {
		t.Fatalf("expected second source at %f, got %f", 1920*scale, s.Sources[1].OffsetX)
	}
	if math.Abs(s.Sources[0].ScaleY-720.0/1080.0) > 1e-9 {
		t.Fatalf("expected scaleY %f, got %f", 720.0/1080.0, s.Sources[0].ScaleY)
	}
}

func TestCompose_InversionRecoversDisplayPosition(t *testing.T) {
	displays := []display.Display{
		{Index: 0, X: -2560, Y: -400, Width: 2560, Height: 1440},
		{Index: 1, X: 0, Y: 0, Width: 1920, Height: 1080},
		{Index: 2, X: 1920, Y: 120, Width: 1280, Height: 1024},
	}
	rect := display.Rect{MinX: -2560, MinY: -400, Width: 5760, Height: 1844}
	s := Compose(displays, rect, resolution.Size{Width: 2880, Height: 922}, AudioOptions{})

	for i, src := range s.Sources {
		// Inverting offset/scale must recover the display's position
		// relative to the bounding rect origin.
		relX := src.OffsetX / src.ScaleX
		relY := src.OffsetY / src.ScaleY
		wantX := float64(displays[i].X - rect.MinX)
		wantY := float64(displays[i].Y - rect.MinY)
		if math.Abs(relX-wantX) > 0.5 || math.Abs(relY-wantY) > 0.5 {
			t.Fatalf("source %d: inverted position (%f,%f) != display relative (%f,%f)",
				i, relX, relY, wantX, wantY)
		}
	}
}

func TestCompose_OnlyActiveDisplaysBecomeSources(t *testing.T) {
	displays := []display.Display{
		{Index: 1, X: 1920, Y: 0, Width: 1920, Height: 1080},
	}
	rect := display.Rect{MinX: 1920, MinY: 0, Width: 1920, Height: 1080}
	s := Compose(displays, rect, resolution.Size{Width: 1920, Height: 1080}, AudioOptions{})

	if len(s.Sources) != 1 {
		t.Fatalf("expected 1 source, got %d", len(s.Sources))
	}
	if s.Sources[0].DisplayIndex != 1 {
		t.Fatalf("expected source for display 1, got %d", s.Sources[0].DisplayIndex)
	}
	if s.Sources[0].OffsetX != 0 {
		t.Fatalf("origin must be normalized to the enabled display, got offset %f",
			s.Sources[0].OffsetX)
	}
}

func TestCompose_AudioSources(t *testing.T) {
	displays, rect := dualLayout()
	capture := resolution.Size{Width: 3840, Height: 1080}

	s := Compose(displays, rect, capture, AudioOptions{})
	if len(s.Audio) != 0 {
		t.Fatalf("expected no audio sources, got %d", len(s.Audio))
	}

	s = Compose(displays, rect, capture, AudioOptions{CaptureDesktop: true, CaptureMicrophone: true})
	if len(s.Audio) != 2 {
		t.Fatalf("expected 2 audio sources, got %d", len(s.Audio))
	}
	if s.Audio[0].Kind != AudioDesktop || s.Audio[1].Kind != AudioMicrophone {
		t.Fatalf("unexpected audio kinds: %+v", s.Audio)
	}
}

func TestCompose_FreshSceneIdentityPerComposition(t *testing.T) {
	displays, rect := dualLayout()
	capture := resolution.Size{Width: 3840, Height: 1080}

	a := Compose(displays, rect, capture, AudioOptions{})
	b := Compose(displays, rect, capture, AudioOptions{})
	if a.Name == b.Name {
		t.Fatalf("recomposition must mint a fresh scene name, got %q twice", a.Name)
	}
}
