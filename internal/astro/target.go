package astro

// Target is a fixed celestial point of interest in equatorial coordinates.
type Target struct {
	Name   string
	RADeg  float64 // Right Ascension in degrees (J2000)
	DecDeg float64 // Declination in degrees (J2000)
}

// Polaris, the North Star. RA 2h31m48s ≈ 37.95°, Dec +89.264°.
// Good enough for pointing a phone at; not navigation-grade (no proper
// motion or precession applied).
var Polaris = Target{
	Name:   "Polaris",
	RADeg:  37.95,
	DecDeg: 89.264,
}
