// Package project maps an apparent sky direction into a viewport: a 2D
// screen pixel behind a field-of-view gate, or a 3D point on a fixed
// sphere for scene-graph rendering.
//
// Conventions (fixed here, after the sign ambiguity in earlier
// prototypes):
//
//   - relative azimuth = target azimuth − device heading, normalized to
//     [−180, 180); a target east of the facing direction is positive and
//     lands right of screen center.
//   - tilt is the device's forward pitch measured from flat: 0 = lying
//     face-up looking at the zenith, 90 = upright looking at the
//     horizon. The camera axis elevation is therefore 90 − tilt, and
//     relative elevation = altitude − (90 − tilt).
//   - the configured FOV angles act as the visibility gate either side
//     of center (a generous gate: a star glow half a FOV outside the
//     canvas still bleeds onto it). The boundary is exclusive: a target
//     at exactly the gate angle is off-screen.
package project

import (
	"math"

	"github.com/star/northstar/internal/astro"
)

// Default gate angles, degrees either side of center.
const (
	DefaultFOVHDeg = 60.0
	DefaultFOVVDeg = 40.0
)

// Screen describes a 2D projection surface.
type Screen struct {
	WidthPx, HeightPx float64
	FOVHDeg, FOVVDeg  float64
}

// ScreenPoint is a projected pixel position. Visible points may sit
// somewhat outside the canvas; the glow still overlaps it.
type ScreenPoint struct {
	X, Y float64
}

// NewScreen creates a Screen with the given pixel size and default gate
// angles.
func NewScreen(widthPx, heightPx float64) Screen {
	return Screen{
		WidthPx:  widthPx,
		HeightPx: heightPx,
		FOVHDeg:  DefaultFOVHDeg,
		FOVVDeg:  DefaultFOVVDeg,
	}
}

// Project maps the target direction to a pixel given the device's
// heading and tilt. The second return is false when the target is
// outside the gate; the point is zero in that case and must not be
// drawn.
func (s Screen) Project(h astro.Horizontal, headingDeg, tiltDeg float64) (ScreenPoint, bool) {
	relAz := normalizeRelative(h.AzDeg - headingDeg)
	relEl := h.AltDeg - (90.0 - tiltDeg)

	if math.Abs(relAz) >= s.FOVHDeg || math.Abs(relEl) >= s.FOVVDeg {
		return ScreenPoint{}, false
	}

	return ScreenPoint{
		X: s.WidthPx/2 + (relAz/s.FOVHDeg)*s.WidthPx,
		Y: s.HeightPx/2 - (relEl/s.FOVVDeg)*s.HeightPx,
	}, true
}

// normalizeRelative wraps an angle difference into [−180, 180).
func normalizeRelative(deg float64) float64 {
	deg = math.Mod(deg+180.0, 360.0)
	if deg < 0 {
		deg += 360.0
	}
	return deg - 180.0
}
