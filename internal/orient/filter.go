package orient

import "math"

// DefaultAlpha is the smoothing coefficient observed to feel right on a
// hand-held device: heavy enough to kill compass jitter, light enough
// that a deliberate turn tracks within a second of samples.
const DefaultAlpha = 0.1

// Filter applies per-axis exponential smoothing to orientation readings:
// smoothed = smoothed·(1−α) + raw·α. Heading is smoothed on the shortest
// angular arc so a 359°→1° wobble does not swing the output through 180°.
//
// Filter is not safe for concurrent use; wrap it in a Store for shared
// access.
type Filter struct {
	alpha  float64
	seeded bool
	cur    Orientation
}

// NewFilter creates a Filter with the given smoothing coefficient.
// Alpha outside (0, 1] falls back to DefaultAlpha.
func NewFilter(alpha float64) *Filter {
	if alpha <= 0 || alpha > 1 {
		alpha = DefaultAlpha
	}
	return &Filter{alpha: alpha}
}

// Apply folds one raw reading into the smoothed state and returns the
// updated orientation. Nil axes are ignored; the first reading seeds the
// filter directly so startup does not lerp from zero.
func (f *Filter) Apply(r Reading) Orientation {
	if !f.seeded {
		if r.HeadingDeg != nil {
			f.cur.HeadingDeg = normalizeHeading(*r.HeadingDeg)
		}
		if r.PitchDeg != nil {
			f.cur.PitchDeg = *r.PitchDeg
		}
		if r.RollDeg != nil {
			f.cur.RollDeg = *r.RollDeg
		}
		f.seeded = r.HeadingDeg != nil || r.PitchDeg != nil || r.RollDeg != nil
		f.cur.At = r.At
		return f.cur
	}

	if r.HeadingDeg != nil {
		raw := normalizeHeading(*r.HeadingDeg)
		// Shortest signed arc from current to raw, in (−180, 180].
		delta := math.Mod(raw-f.cur.HeadingDeg+540.0, 360.0) - 180.0
		f.cur.HeadingDeg = normalizeHeading(f.cur.HeadingDeg + delta*f.alpha)
	}
	if r.PitchDeg != nil {
		f.cur.PitchDeg = f.cur.PitchDeg*(1-f.alpha) + *r.PitchDeg*f.alpha
	}
	if r.RollDeg != nil {
		f.cur.RollDeg = f.cur.RollDeg*(1-f.alpha) + *r.RollDeg*f.alpha
	}
	if !r.At.IsZero() {
		f.cur.At = r.At
	}
	return f.cur
}

// Current returns the latest smoothed orientation and whether the filter
// has been seeded by at least one reading.
func (f *Filter) Current() (Orientation, bool) {
	return f.cur, f.seeded
}

func normalizeHeading(h float64) float64 {
	h = math.Mod(h, 360.0)
	if h < 0 {
		h += 360.0
	}
	return h
}
