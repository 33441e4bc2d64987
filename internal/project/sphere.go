package project

import (
	"math"

	"github.com/star/northstar/internal/astro"
)

// DefaultSphereRadius is the scene-graph placement radius in world units.
const DefaultSphereRadius = 30.0

// Sphere projects directions onto a fixed-radius sphere around the
// viewer in a Y-up, −Z-forward frame (north along −Z).
type Sphere struct {
	RadiusUnits float64
}

// WorldPoint is a 3D scene position.
type WorldPoint struct {
	X, Y, Z float64
}

// Project converts elevation/azimuth to a world position:
//
//	x = −r·cos(el)·sin(az)
//	y =  r·sin(el)
//	z = −r·cos(el)·cos(az)
func (s Sphere) Project(h astro.Horizontal) WorldPoint {
	r := s.RadiusUnits
	if r <= 0 {
		r = DefaultSphereRadius
	}
	el := h.AltDeg * math.Pi / 180.0
	az := h.AzDeg * math.Pi / 180.0

	return WorldPoint{
		X: -r * math.Cos(el) * math.Sin(az),
		Y: r * math.Sin(el),
		Z: -r * math.Cos(el) * math.Cos(az),
	}
}
