// Package tone renders a sequencer timeline as an audible stream: a
// sine pulse per on-entry, silence per gap. Used by the diag tool to
// make a Morse timeline you can hear instead of see.
package tone

import (
	"math"
	"time"

	"github.com/gopxl/beep"

	"github.com/star/northstar/internal/sequencer"
)

// Defaults: a comfortable CW sidetone.
const (
	DefaultFreqHz     = 700.0
	DefaultSampleRate = beep.SampleRate(44100)
)

// Config controls tone rendering.
type Config struct {
	FreqHz     float64
	SampleRate beep.SampleRate
	// Edge softens pulse on/off with a linear ramp to avoid clicks.
	// Zero disables shaping.
	Edge time.Duration
}

// DefaultConfig returns the 700Hz/44.1kHz rendering configuration with
// a 5ms edge ramp.
func DefaultConfig() Config {
	return Config{
		FreqHz:     DefaultFreqHz,
		SampleRate: DefaultSampleRate,
		Edge:       5 * time.Millisecond,
	}
}

// sine generates a fixed-length sine burst with linear attack/release
// edges.
type sine struct {
	freq     float64
	phase    float64
	rate     beep.SampleRate
	total    int
	edge     int
	position int
}

func (s *sine) Stream(samples [][2]float64) (n int, ok bool) {
	for i := range samples {
		if s.position >= s.total {
			return i, false
		}

		val := math.Sin(2 * math.Pi * s.phase)

		if s.edge > 0 {
			if s.position < s.edge {
				val *= float64(s.position) / float64(s.edge)
			}
			if remaining := s.total - s.position; remaining < s.edge {
				val *= float64(remaining) / float64(s.edge)
			}
		}

		samples[i][0] = val
		samples[i][1] = val

		s.phase += s.freq / float64(s.rate)
		s.phase -= math.Floor(s.phase)
		s.position++
	}
	return len(samples), true
}

func (s *sine) Err() error { return nil }

// Render converts a timeline into a single streamer: tone bursts for
// on-pulses, silence for gaps, in order. An empty timeline renders to
// an immediately-exhausted streamer.
func Render(tl sequencer.Timeline, cfg Config) beep.Streamer {
	if cfg.FreqHz <= 0 {
		cfg.FreqHz = DefaultFreqHz
	}
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = DefaultSampleRate
	}

	segments := make([]beep.Streamer, 0, len(tl))
	for _, p := range tl {
		if p.On {
			segments = append(segments, &sine{
				freq:  cfg.FreqHz,
				rate:  cfg.SampleRate,
				total: cfg.SampleRate.N(p.Duration),
				edge:  cfg.SampleRate.N(cfg.Edge),
			})
		} else {
			segments = append(segments, beep.Silence(cfg.SampleRate.N(p.Duration)))
		}
	}
	return beep.Seq(segments...)
}

// NumSamples returns the exact sample count Render will produce for the
// timeline at the configured rate.
func NumSamples(tl sequencer.Timeline, cfg Config) int {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = DefaultSampleRate
	}
	total := 0
	for _, p := range tl {
		total += cfg.SampleRate.N(p.Duration)
	}
	return total
}
