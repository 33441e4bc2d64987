package render

import (
	"math"
	"math/rand"
	"sync"
	"sync/atomic"
)

// Brightness levels written by the sequencer and restored on idle.
const (
	SignalOn   = 1.0
	SignalOff  = 0.05
	IdleLevel  = 1.0
	TwinkleMin = 0.55
)

// Brightness is the shared brightness slot. The sequencer writes it
// while playing; the frame composer reads it and otherwise substitutes
// the twinkle value. Only one writer is active at a time, governed by
// the player's Idle/Playing state.
type Brightness struct {
	bits atomic.Uint64
}

// NewBrightness creates a slot at the idle level.
func NewBrightness() *Brightness {
	b := &Brightness{}
	b.Set(IdleLevel)
	return b
}

// Set stores a brightness value in [0, 1].
func (b *Brightness) Set(v float64) {
	b.bits.Store(math.Float64bits(v))
}

// Get returns the current value.
func (b *Brightness) Get() float64 {
	return math.Float64frombits(b.bits.Load())
}

// Twinkle produces a frame-rate brightness flicker: a bounded random
// walk in [TwinkleMin, 1], seedable for reproducible tests. Safe for
// concurrent callers (multiple stream connections tick it).
type Twinkle struct {
	mu  sync.Mutex
	rng *rand.Rand
	cur float64
}

// NewTwinkle creates a Twinkle from the given seed.
func NewTwinkle(seed int64) *Twinkle {
	return &Twinkle{
		rng: rand.New(rand.NewSource(seed)),
		cur: IdleLevel,
	}
}

// Next advances the walk one frame and returns the new brightness.
func (t *Twinkle) Next() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.cur += (t.rng.Float64()*2 - 1) * 0.12
	if t.cur > 1 {
		t.cur = 1
	}
	if t.cur < TwinkleMin {
		t.cur = TwinkleMin
	}
	return t.cur
}
