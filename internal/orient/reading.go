// Package orient models device orientation readings and the smoothing
// applied to them. Readings arrive as push callbacks from a sensor
// source; only the most recent smoothed value matters, so the store is
// latest-value-wins with no buffering.
package orient

import (
	"context"
	"time"
)

// Reading is one raw orientation sample. Pointer fields distinguish
// "sensor did not report this axis" from a zero angle; nil axes are
// ignored and leave the smoothed state untouched.
type Reading struct {
	HeadingDeg *float64 // compass bearing, 0–360, magnetic unless corrected
	PitchDeg   *float64 // forward/back tilt, degrees up from horizontal
	RollDeg    *float64 // left/right tilt, degrees

	// CompassAccuracyDeg is the platform's own heading accuracy
	// estimate when available. Readings carrying one are preferred
	// over bare heading values.
	CompassAccuracyDeg *float64

	At time.Time
}

// Orientation is a complete smoothed orientation triple.
type Orientation struct {
	HeadingDeg float64
	PitchDeg   float64
	RollDeg    float64
	At         time.Time
}

// Source delivers orientation readings as they arrive. Subscribe blocks
// delivering readings until the context is done. Implementations live at
// the platform edge (the web frontend posts readings over HTTP); the
// core only consumes.
type Source interface {
	Subscribe(ctx context.Context, deliver func(Reading)) error
}
