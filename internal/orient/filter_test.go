package orient

import (
	"math"
	"testing"
	"time"
)

func ptr(v float64) *float64 { return &v }

// TestFilter_Convergence feeds a constant reading and checks the output
// converges within a step count proportional to 1/α.
func TestFilter_Convergence(t *testing.T) {
	f := NewFilter(0.1)

	// Seed away from the target, then hold the target constant.
	f.Apply(Reading{HeadingDeg: ptr(10), PitchDeg: ptr(0), RollDeg: ptr(0)})

	target := Reading{HeadingDeg: ptr(90), PitchDeg: ptr(45), RollDeg: ptr(-30)}
	// (1-α)^n < 0.01 needs n ≈ 4.6/α; 60 steps gives margin at α=0.1.
	var cur Orientation
	for i := 0; i < 60; i++ {
		cur = f.Apply(target)
	}

	if math.Abs(cur.HeadingDeg-90) > 0.5 {
		t.Errorf("heading after convergence = %.3f, want ~90", cur.HeadingDeg)
	}
	if math.Abs(cur.PitchDeg-45) > 0.5 {
		t.Errorf("pitch after convergence = %.3f, want ~45", cur.PitchDeg)
	}
	if math.Abs(cur.RollDeg+30) > 0.5 {
		t.Errorf("roll after convergence = %.3f, want ~-30", cur.RollDeg)
	}
}

// TestFilter_HeadingWraparound checks that smoothing from 359° toward 1°
// moves through north, not backward through 180°.
func TestFilter_HeadingWraparound(t *testing.T) {
	f := NewFilter(0.1)
	f.Apply(Reading{HeadingDeg: ptr(359)})

	cur := f.Apply(Reading{HeadingDeg: ptr(1)})
	// One step of α=0.1 across a +2° arc: 359 + 0.2 → 359.2.
	if math.Abs(cur.HeadingDeg-359.2) > 1e-9 {
		t.Errorf("heading after one wraparound step = %.6f, want 359.2", cur.HeadingDeg)
	}

	for i := 0; i < 100; i++ {
		cur = f.Apply(Reading{HeadingDeg: ptr(1)})
	}
	off := math.Abs(cur.HeadingDeg - 1)
	if off > 180 {
		off = 360 - off
	}
	if off > 0.1 {
		t.Errorf("heading after wraparound convergence = %.3f, want ~1", cur.HeadingDeg)
	}
}

// TestFilter_NilAxesIgnored verifies a partial reading leaves missing
// axes untouched.
func TestFilter_NilAxesIgnored(t *testing.T) {
	f := NewFilter(0.5)
	f.Apply(Reading{HeadingDeg: ptr(100), PitchDeg: ptr(20), RollDeg: ptr(5)})

	cur := f.Apply(Reading{PitchDeg: ptr(40)})
	if cur.HeadingDeg != 100 {
		t.Errorf("heading mutated by nil-heading reading: %.3f", cur.HeadingDeg)
	}
	if cur.RollDeg != 5 {
		t.Errorf("roll mutated by nil-roll reading: %.3f", cur.RollDeg)
	}
	if math.Abs(cur.PitchDeg-30) > 1e-9 {
		t.Errorf("pitch = %.3f, want 30 (20·0.5 + 40·0.5)", cur.PitchDeg)
	}
}

func TestFilter_FirstReadingSeeds(t *testing.T) {
	f := NewFilter(0.1)
	cur := f.Apply(Reading{HeadingDeg: ptr(270), PitchDeg: ptr(35)})
	if cur.HeadingDeg != 270 || cur.PitchDeg != 35 {
		t.Errorf("first reading should seed directly, got heading=%.3f pitch=%.3f", cur.HeadingDeg, cur.PitchDeg)
	}
}

func TestStore_LatestValueWins(t *testing.T) {
	s := NewStore(NewFilter(1.0)) // α=1: no smoothing, raw passthrough

	if _, ok := s.Current(); ok {
		t.Fatal("empty store should report no orientation")
	}

	s.Apply(Reading{}) // all-nil reading is dropped
	if _, ok := s.Current(); ok {
		t.Fatal("all-nil reading must not seed the store")
	}

	now := time.Now()
	s.Apply(Reading{HeadingDeg: ptr(10), At: now})
	s.Apply(Reading{HeadingDeg: ptr(200), At: now.Add(time.Second)})

	o, ok := s.Current()
	if !ok {
		t.Fatal("store should have an orientation")
	}
	if o.HeadingDeg != 200 {
		t.Errorf("latest heading = %.3f, want 200", o.HeadingDeg)
	}
}
