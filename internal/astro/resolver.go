package astro

import (
	"errors"
	"math"
	"time"
)

// Horizontal holds an apparent sky direction in horizontal coordinates.
type Horizontal struct {
	AltDeg float64 // 0 = horizon, 90 = zenith
	AzDeg  float64 // 0 = North, clockwise, [0, 360)
}

// Policy selects how the resolver computes the target's apparent direction.
type Policy int

const (
	// PolicyEquatorial uses true sidereal-time math from the target's
	// RA/Dec, observer location, and current time.
	PolicyEquatorial Policy = iota
	// PolicyHeuristic sets elevation = observer latitude and azimuth =
	// compass heading. A deliberate demo simplification: for Polaris the
	// altitude really is the latitude to within a degree, and pointing
	// the device at it makes the relative azimuth zero.
	PolicyHeuristic
)

// ErrNoObserver is returned when a resolution requires an observer
// location and none is available.
var ErrNoObserver = errors.New("astro: observer location unavailable")

// ResolveEquatorial computes the apparent altitude/azimuth of tgt for an
// observer at (latDeg, lonDeg) at time t, using the local sidereal time
// and the standard horizontal-coordinate equations:
//
//	sin(alt) = sin(dec)·sin(lat) + cos(dec)·cos(lat)·cos(ha)
//	cos(az)  = (sin(dec) − sin(lat)·sin(alt)) / (cos(lat)·cos(alt))
//
// with the azimuth mirrored to 360−az when sin(ha) > 0 (target west of
// the meridian). The acos argument is clamped to [−1, 1] so floating
// error near the zenith cannot produce NaN.
func ResolveEquatorial(tgt Target, latDeg, lonDeg float64, t time.Time) Horizontal {
	lstDeg := LocalSiderealTime(t, lonDeg) * 15.0
	haDeg := lstDeg - tgt.RADeg

	ha := haDeg * math.Pi / 180.0
	dec := tgt.DecDeg * math.Pi / 180.0
	lat := latDeg * math.Pi / 180.0

	sinAlt := math.Sin(dec)*math.Sin(lat) + math.Cos(dec)*math.Cos(lat)*math.Cos(ha)
	sinAlt = clamp(sinAlt)
	alt := math.Asin(sinAlt)

	cosAz := (math.Sin(dec) - math.Sin(lat)*sinAlt) / (math.Cos(lat) * math.Cos(alt))
	cosAz = clamp(cosAz)
	az := math.Acos(cosAz) * 180.0 / math.Pi

	if math.Sin(ha) > 0 {
		az = 360.0 - az
	}
	az = math.Mod(az, 360.0)
	if az < 0 {
		az += 360.0
	}

	return Horizontal{
		AltDeg: alt * 180.0 / math.Pi,
		AzDeg:  az,
	}
}

// ResolveHeuristic returns the simplified apparent direction: elevation
// equal to the observer latitude, azimuth equal to the compass heading.
// No time-of-day computation is involved.
func ResolveHeuristic(latDeg, headingDeg float64) Horizontal {
	az := math.Mod(headingDeg, 360.0)
	if az < 0 {
		az += 360.0
	}
	return Horizontal{AltDeg: latDeg, AzDeg: az}
}

func clamp(v float64) float64 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}
