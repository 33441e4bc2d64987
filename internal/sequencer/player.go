package sequencer

import "sync"

// Player drives a Timeline against a signal output, one pulse at a
// time. State machine: Idle → Playing → Idle. Play while Playing
// cancels the active run (one off-signal) before the new timeline
// starts; Stop while Idle is a pure no-op, so stopping twice never
// emits a spurious off-signal.
//
// Callbacks are invoked outside the player's lock; a run generation
// counter makes a cancelled run's pending timer a no-op even if it was
// already in flight.
type Player struct {
	clock   Clock
	timings Timings

	// OnSignal receives each pulse edge: true = output on (full
	// brightness), false = output off. OnDone fires once when a
	// timeline runs to completion (not on Stop); the consumer restores
	// its idle brightness there.
	onSignal func(on bool)
	onDone   func()

	mu       sync.Mutex
	playing  bool
	run      uint64
	timeline Timeline
	cursor   int
	timer    Timer
}

// NewPlayer creates a Player. A nil clock uses the real one; zero
// timings fields are filled from the dot duration.
func NewPlayer(clock Clock, tm Timings, onSignal func(on bool), onDone func()) *Player {
	if clock == nil {
		clock = RealClock()
	}
	return &Player{
		clock:    clock,
		timings:  tm.Normalize(),
		onSignal: onSignal,
		onDone:   onDone,
	}
}

// Play encodes text and starts playing it from the first pulse,
// cancelling any active run first. An empty or fully-unmapped text
// completes immediately.
func (p *Player) Play(text string) {
	p.mu.Lock()
	wasPlaying := p.cancelLocked()
	p.timeline = Encode(text, p.timings)
	p.cursor = 0
	p.playing = true
	p.run++
	gen := p.run
	p.mu.Unlock()

	if wasPlaying {
		p.signal(false)
	}
	p.step(gen)
}

// Stop cancels the active run and emits one off-signal. Calling Stop
// while Idle does nothing.
func (p *Player) Stop() {
	p.mu.Lock()
	wasPlaying := p.cancelLocked()
	p.run++
	p.mu.Unlock()

	if wasPlaying {
		p.signal(false)
	}
}

// Playing reports whether a timeline is active. The render tick checks
// this before applying its own twinkle brightness.
func (p *Player) Playing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing
}

// cancelLocked stops the pending timer and leaves the player Idle.
// Returns whether a run was actually active. Caller holds p.mu.
func (p *Player) cancelLocked() bool {
	wasPlaying := p.playing
	p.playing = false
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
	return wasPlaying
}

// step emits the pulse at the cursor and schedules the next step after
// its duration. Stale generations (cancelled runs) return without
// side effects.
func (p *Player) step(gen uint64) {
	p.mu.Lock()
	if gen != p.run || !p.playing {
		p.mu.Unlock()
		return
	}

	if p.cursor >= len(p.timeline) {
		p.playing = false
		p.timer = nil
		done := p.onDone
		p.mu.Unlock()
		if done != nil {
			done()
		}
		return
	}

	pulse := p.timeline[p.cursor]
	p.cursor++
	p.timer = p.clock.AfterFunc(pulse.Duration, func() { p.step(gen) })
	p.mu.Unlock()

	p.signal(pulse.On)
}

func (p *Player) signal(on bool) {
	if p.onSignal != nil {
		p.onSignal(on)
	}
}
