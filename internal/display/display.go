// Package display resolves the monitor topology used for capture: which
// displays are enabled and the native bounding rectangle that encloses them.
package display

import (
	"errors"

	"rewindd/internal/x11"
)

// Display describes one physical monitor in desktop coordinates. Index is the
// stable ordinal (left-to-right, top-to-bottom) used for all user-facing
// monitor selection. It is fixed for the process lifetime; display hot-plug
// requires a full topology re-resolve and scene recomposition.
type Display struct {
	Index  int
	Name   string
	X      int
	Y      int
	Width  int
	Height int
}

// Rect is the native bounding rectangle of the enabled display set: the
// minimal rectangle enclosing every active display in real desktop
// coordinates.
type Rect struct {
	MinX   int
	MinY   int
	Width  int
	Height int
}

// EnabledSet is an optional ordered set of display ordinals. A nil set means
// all displays are enabled.
type EnabledSet []int

// Contains reports whether the ordinal is enabled. A nil set enables
// everything.
func (s EnabledSet) Contains(index int) bool {
	if s == nil {
		return true
	}
	for _, i := range s {
		if i == index {
			return true
		}
	}
	return false
}

// ErrNoDisplays is returned when the system reports no connected displays.
var ErrNoDisplays = errors.New("no displays connected")

// FromMonitors converts X11 monitor records into displays.
func FromMonitors(monitors []x11.Monitor) []Display {
	displays := make([]Display, len(monitors))
	for i, m := range monitors {
		displays[i] = Display{
			Index:  m.ID,
			Name:   m.Name,
			X:      m.X,
			Y:      m.Y,
			Width:  m.Width,
			Height: m.Height,
		}
	}
	return displays
}

// Resolve filters all connected displays by the enabled set and computes the
// native bounding rectangle of the result. If the enabled set selects nothing
// (stale ordinals after a hardware change), Resolve falls back to all
// displays rather than producing a zero-size canvas; the second return value
// reports whether that fallback happened so the caller can log it.
func Resolve(all []Display, enabled EnabledSet) (Rect, []Display, bool, error) {
	if len(all) == 0 {
		return Rect{}, nil, false, ErrNoDisplays
	}

	active := make([]Display, 0, len(all))
	for _, d := range all {
		if enabled.Contains(d.Index) {
			active = append(active, d)
		}
	}

	fellBack := false
	if len(active) == 0 {
		active = append(active, all...)
		fellBack = true
	}

	return boundingRect(active), active, fellBack, nil
}

func boundingRect(displays []Display) Rect {
	minX := displays[0].X
	minY := displays[0].Y
	maxX := displays[0].X + displays[0].Width
	maxY := displays[0].Y + displays[0].Height

	for _, d := range displays[1:] {
		minX = min(minX, d.X)
		minY = min(minY, d.Y)
		maxX = max(maxX, d.X+d.Width)
		maxY = max(maxY, d.Y+d.Height)
	}

	return Rect{
		MinX:   minX,
		MinY:   minY,
		Width:  maxX - minX,
		Height: maxY - minY,
	}
}
