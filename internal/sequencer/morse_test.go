package sequencer

import (
	"testing"
	"time"
)

func TestEncode_SOS(t *testing.T) {
	tl := Encode("SOS", DefaultTimings())

	ms := func(n int) time.Duration { return time.Duration(n) * time.Millisecond }
	want := Timeline{
		// S
		{true, ms(200)}, {false, ms(200)}, {true, ms(200)}, {false, ms(200)}, {true, ms(200)},
		{false, ms(600)},
		// O
		{true, ms(600)}, {false, ms(200)}, {true, ms(600)}, {false, ms(200)}, {true, ms(600)},
		{false, ms(600)},
		// S
		{true, ms(200)}, {false, ms(200)}, {true, ms(200)}, {false, ms(200)}, {true, ms(200)},
	}

	if len(tl) != len(want) {
		t.Fatalf("timeline has %d pulses, want %d", len(tl), len(want))
	}
	for i := range want {
		if tl[i] != want[i] {
			t.Errorf("pulse %d = {%v %v}, want {%v %v}", i, tl[i].On, tl[i].Duration, want[i].On, want[i].Duration)
		}
	}

	if got := tl.Total(); got != ms(5400) {
		t.Errorf("Total() = %v, want 5.4s", got)
	}
}

func TestEncode_CaseInsensitive(t *testing.T) {
	lower := Encode("sos", DefaultTimings())
	upper := Encode("SOS", DefaultTimings())
	if len(lower) != len(upper) {
		t.Fatalf("lowercase encodes %d pulses, uppercase %d", len(lower), len(upper))
	}
	for i := range upper {
		if lower[i] != upper[i] {
			t.Errorf("pulse %d differs between cases", i)
		}
	}
}

func TestEncode_WordGap(t *testing.T) {
	tl := Encode("E E", DefaultTimings())

	want := Timeline{
		{true, 200 * time.Millisecond},
		{false, 1400 * time.Millisecond}, // 7×dot, absorbs the letter gap
		{true, 200 * time.Millisecond},
	}
	if len(tl) != len(want) {
		t.Fatalf("timeline has %d pulses, want %d", len(tl), len(want))
	}
	for i := range want {
		if tl[i] != want[i] {
			t.Errorf("pulse %d = {%v %v}, want {%v %v}", i, tl[i].On, tl[i].Duration, want[i].On, want[i].Duration)
		}
	}

	// Consecutive spaces merge into a single word gap.
	if got := Encode("E   E", DefaultTimings()); len(got) != 3 || got[1].Duration != 1400*time.Millisecond {
		t.Errorf("multiple spaces should merge into one word gap, got %v", got)
	}
}

func TestEncode_UnknownCharsSkipped(t *testing.T) {
	// '#' maps to nothing: E and E end up separated by a plain letter gap.
	tl := Encode("E#E", DefaultTimings())
	want := Timeline{
		{true, 200 * time.Millisecond},
		{false, 600 * time.Millisecond},
		{true, 200 * time.Millisecond},
	}
	if len(tl) != len(want) {
		t.Fatalf("timeline has %d pulses, want %d", len(tl), len(want))
	}
	for i := range want {
		if tl[i] != want[i] {
			t.Errorf("pulse %d = {%v %v}, want {%v %v}", i, tl[i].On, tl[i].Duration, want[i].On, want[i].Duration)
		}
	}
}

func TestEncode_EmptyAndUnmapped(t *testing.T) {
	if tl := Encode("", DefaultTimings()); len(tl) != 0 {
		t.Errorf("empty text should encode to empty timeline, got %d pulses", len(tl))
	}
	if tl := Encode("€€€", DefaultTimings()); len(tl) != 0 {
		t.Errorf("fully unmapped text should encode to empty timeline, got %d pulses", len(tl))
	}
	if tl := Encode("   ", DefaultTimings()); len(tl) != 0 {
		t.Errorf("spaces only should encode to empty timeline, got %d pulses", len(tl))
	}
}

func TestEncode_NoTrailingGap(t *testing.T) {
	for _, text := range []string{"E", "SOS", "HELLO WORLD", "A1?"} {
		tl := Encode(text, DefaultTimings())
		if len(tl) == 0 {
			t.Fatalf("%q encoded to empty timeline", text)
		}
		if !tl[len(tl)-1].On {
			t.Errorf("%q: final pulse is a gap, timelines must end on", text)
		}
		if !tl[0].On {
			t.Errorf("%q: first pulse is a gap, timelines must start on", text)
		}
	}
}

func TestTimings_Normalize(t *testing.T) {
	tm := Timings{Dot: 100 * time.Millisecond}.Normalize()
	if tm.SymbolGap != 100*time.Millisecond || tm.LetterGap != 300*time.Millisecond || tm.WordGap != 700*time.Millisecond {
		t.Errorf("normalized timings = %+v, want ITU ratios of the dot", tm)
	}

	tm = Timings{}.Normalize()
	if tm.Dot != DefaultDot {
		t.Errorf("zero timings should default to %v dot, got %v", DefaultDot, tm.Dot)
	}
}
