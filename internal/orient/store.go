package orient

import (
	"sync"
	"sync/atomic"
)

// Store provides thread-safe access to the latest smoothed orientation.
// Writers funnel through the embedded filter under a mutex; readers get
// the most recent value via an atomic pointer without contending with
// writers. Latest-value-wins: there is no history and no backpressure.
type Store struct {
	mu      sync.Mutex
	filter  *Filter
	current atomic.Pointer[Orientation]
}

// NewStore creates a Store smoothing through the given filter.
func NewStore(filter *Filter) *Store {
	if filter == nil {
		filter = NewFilter(DefaultAlpha)
	}
	return &Store{filter: filter}
}

// Apply folds a raw reading into the smoothed state. A reading with all
// axes nil is dropped without touching the state. Readings carrying a
// platform compass accuracy estimate are treated the same as bare ones
// here; preference happens at the delivery edge, which withholds the
// low-accuracy stream while the high-accuracy one is alive.
func (s *Store) Apply(r Reading) {
	if r.HeadingDeg == nil && r.PitchDeg == nil && r.RollDeg == nil {
		return
	}
	s.mu.Lock()
	o := s.filter.Apply(r)
	s.mu.Unlock()
	s.current.Store(&o)
}

// Current returns the latest smoothed orientation, or false if no
// reading has arrived yet.
func (s *Store) Current() (Orientation, bool) {
	o := s.current.Load()
	if o == nil {
		return Orientation{}, false
	}
	return *o, true
}
