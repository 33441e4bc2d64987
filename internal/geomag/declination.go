// Package geomag estimates magnetic declination from a coarse
// piecewise-linear fit. It exists so a compass heading can be nudged
// toward true north without shipping the real World Magnetic Model;
// errors of a few degrees are expected and acceptable for pointing a
// phone at a star.
package geomag

import "math"

// band is a linear declination fit over a longitude interval:
// decl = refDecl + lonSlope·(lon − refLon) + latSlope·(lat − 45).
type band struct {
	minLon, maxLon  float64
	refLon, refDecl float64
	lonSlope        float64
	latSlope        float64
}

// bands are eyeballed against 2020s declination charts for the regions
// this toy is likely to be used in. Longitude intervals are [min, max).
var bands = []band{
	// Western North America: ~+15°E at the Pacific coast down to ~+2°E
	// near the Mississippi.
	{minLon: -130, maxLon: -95, refLon: -130, refDecl: 15, lonSlope: -13.0 / 35.0, latSlope: 0.10},
	// Eastern North America: ~+2°E down to ~−16°W at the Atlantic.
	{minLon: -95, maxLon: -60, refLon: -95, refDecl: 2, lonSlope: -18.0 / 35.0, latSlope: 0.08},
	// Europe into western Asia: ~−2°W at the Azores rising eastward.
	{minLon: -15, maxLon: 45, refLon: -15, refDecl: -2, lonSlope: 0.2, latSlope: 0.05},
}

// defaultBand covers longitudes outside every fitted region: zero
// declination with a small latitude tilt.
var defaultBand = band{refDecl: 0, lonSlope: 0, latSlope: 0.05}

// DeclinationDeg returns the estimated magnetic declination in degrees
// (east positive) for the given location.
func DeclinationDeg(latDeg, lonDeg float64) float64 {
	b := defaultBand
	for _, c := range bands {
		if lonDeg >= c.minLon && lonDeg < c.maxLon {
			b = c
			break
		}
	}
	return b.refDecl + b.lonSlope*(lonDeg-b.refLon) + b.latSlope*(latDeg-45.0)
}

// TrueHeading converts a magnetic compass heading to an estimated true
// heading: (magnetic + declination + 360) mod 360.
func TrueHeading(magneticDeg, latDeg, lonDeg float64) float64 {
	h := math.Mod(magneticDeg+DeclinationDeg(latDeg, lonDeg)+360.0, 360.0)
	if h < 0 {
		h += 360.0
	}
	return h
}
