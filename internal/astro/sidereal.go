package astro

import (
	"math"
	"time"
)

// j2000 is the Julian Date of the J2000.0 epoch (January 1, 2000, 12:00:00 TT).
const j2000 = 2451545.0

// gmstAtJ2000 is Greenwich Mean Sidereal Time at the J2000.0 epoch, in hours.
const gmstAtJ2000 = 18.697374558

// gmstRatePerDay is the sidereal advance per solar day, in hours.
// 24h × 1.00273790935 (ratio of sidereal to solar rate).
const gmstRatePerDay = 24.06570982441908

// JulianDate converts a time.Time (UTC) to Julian Date.
// Uses the standard astronomical algorithm valid for dates after March 1, 4801 BC.
func JulianDate(t time.Time) float64 {
	y := float64(t.Year())
	m := float64(t.Month())
	d := float64(t.Day())
	h := float64(t.Hour())
	min := float64(t.Minute())
	s := float64(t.Second()) + float64(t.Nanosecond())/1e9

	// Adjust year/month for Jan/Feb (treat as months 13/14 of previous year).
	if m <= 2 {
		y -= 1
		m += 12
	}

	A := math.Floor(y / 100)
	B := 2 - A + math.Floor(A/4)

	jd := math.Floor(365.25*(y+4716)) + math.Floor(30.6001*(m+1)) + d + B - 1524.5
	jd += (h + min/60.0 + s/3600.0) / 24.0

	return jd
}

// GreenwichSiderealTime returns GMST in hours for a given UTC time,
// normalized to [0, 24).
//
// Uses the USNO linear model referenced to J2000.0:
//
//	GMST = 18.697374558 + 24.06570982441908 × D
//
// where D is days (including fraction) since J2000.0. Agrees with the
// IAU-82 cubic model to well under a second of time for decades around
// the epoch, which is far below the accuracy of a phone compass.
func GreenwichSiderealTime(t time.Time) float64 {
	d := JulianDate(t.UTC()) - j2000
	gmst := gmstAtJ2000 + gmstRatePerDay*d
	gmst = math.Mod(gmst, 24.0)
	if gmst < 0 {
		gmst += 24.0
	}
	return gmst
}

// LocalSiderealTime returns the local mean sidereal time in hours for the
// given UTC time and observer longitude (degrees, east positive),
// normalized to [0, 24).
func LocalSiderealTime(t time.Time, lonDeg float64) float64 {
	lst := GreenwichSiderealTime(t) + lonDeg/15.0
	lst = math.Mod(lst, 24.0)
	if lst < 0 {
		lst += 24.0
	}
	return lst
}
