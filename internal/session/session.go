// Package session holds per-session observer state: the geographic fix
// the resolver works from. The state is acquired once per session,
// replaced wholesale on re-acquisition, and falls back to a documented
// default when no fix is available.
package session

import (
	"sync/atomic"
	"time"
)

// Default observer used when no location fix is available: 40°N, 0°E.
// Mid-northern latitude so the target sits comfortably above the horizon.
const (
	DefaultLatDeg = 40.0
	DefaultLonDeg = 0.0
)

// Observer is a geographic fix.
type Observer struct {
	LatDeg     float64   `json:"lat"`
	LonDeg     float64   `json:"lon"`
	AccuracyM  float64   `json:"accuracy_m,omitempty"`
	AcquiredAt time.Time `json:"acquired_at"`
}

// Store provides thread-safe access to the current observer fix.
type Store struct {
	observer atomic.Pointer[Observer]
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{}
}

// Set replaces the current fix.
func (s *Store) Set(o Observer) {
	s.observer.Store(&o)
}

// Get returns the current fix. When no fix has been acquired it returns
// the default observer and defaulted=true; callers that must not guess
// (the equatorial resolver's strict mode) check the flag.
func (s *Store) Get() (o Observer, defaulted bool) {
	p := s.observer.Load()
	if p == nil {
		return Observer{LatDeg: DefaultLatDeg, LonDeg: DefaultLonDeg}, true
	}
	return *p, false
}
