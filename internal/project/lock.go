package project

import (
	"sync"

	"github.com/star/northstar/internal/astro"
)

// LockMode selects whether the projected target follows every
// orientation update or freezes at the first valid fix.
type LockMode int

const (
	// LockContinuous recomputes the target position on every update.
	LockContinuous LockMode = iota
	// LockOnFirstFix freezes the position at the first valid reading
	// until Recalibrate is called.
	LockOnFirstFix
)

// ParseLockMode maps a config string to a LockMode. Unknown values
// return LockContinuous and false.
func ParseLockMode(s string) (LockMode, bool) {
	switch s {
	case "continuous":
		return LockContinuous, true
	case "locked":
		return LockOnFirstFix, true
	}
	return LockContinuous, false
}

// Lock implements the positioning mode choice. Safe for concurrent use:
// orientation updates and render ticks may race on Update.
type Lock struct {
	mode LockMode

	mu   sync.Mutex
	held bool
	pos  astro.Horizontal
}

// NewLock creates a Lock in the given mode.
func NewLock(mode LockMode) *Lock {
	return &Lock{mode: mode}
}

// Update folds in a freshly resolved direction and returns the one to
// render. Continuous mode passes through; locked mode captures the
// first value and returns it until recalibration.
func (l *Lock) Update(h astro.Horizontal) astro.Horizontal {
	if l.mode == LockContinuous {
		return h
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.held {
		l.held = true
		l.pos = h
	}
	return l.pos
}

// Recalibrate drops a held fix so the next Update captures anew.
// No-op in continuous mode.
func (l *Lock) Recalibrate() {
	l.mu.Lock()
	l.held = false
	l.mu.Unlock()
}

// Mode returns the configured mode.
func (l *Lock) Mode() LockMode {
	return l.mode
}
