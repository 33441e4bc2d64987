// Package render composes the per-frame output consumed by renderers:
// a visibility flag, a screen position, and a brightness scalar. The
// drawing itself (glow layering, spikes) belongs to the frontend.
package render

import (
	"time"

	"github.com/star/northstar/internal/astro"
	"github.com/star/northstar/internal/geomag"
	"github.com/star/northstar/internal/orient"
	"github.com/star/northstar/internal/project"
	"github.com/star/northstar/internal/sequencer"
	"github.com/star/northstar/internal/session"
)

// Frame is one renderable state. X/Y are only meaningful when Visible.
type Frame struct {
	Visible    bool    `json:"visible"`
	X          float64 `json:"x,omitempty"`
	Y          float64 `json:"y,omitempty"`
	Brightness float64 `json:"brightness"`

	AltDeg float64 `json:"alt"`
	AzDeg  float64 `json:"az"`

	ObserverDefaulted bool `json:"observer_defaulted,omitempty"`
	// NoOrientation is set when no sensor reading has arrived yet; the
	// target cannot be placed on screen without a heading.
	NoOrientation bool `json:"no_orientation,omitempty"`
}

// Composer wires the session state, orientation store, resolver,
// projector, and brightness sources into frames.
type Composer struct {
	Target      astro.Target
	Policy      astro.Policy
	Session     *session.Store
	Orient      *orient.Store
	Lock        *project.Lock
	Screen      project.Screen
	Twinkle     *Twinkle
	Player      *sequencer.Player
	Signal      *Brightness
	Declination bool // apply the magnetic declination correction
}

// Frame composes the renderable state for the given instant. The
// sequencer's brightness takes precedence over the twinkle while a
// timeline is playing; the twinkle still advances only when it is the
// active source, so a long play does not freeze the walk mid-jump.
func (c *Composer) Frame(now time.Time) Frame {
	brightness := c.brightness()

	o, haveOrient := c.Orient.Current()
	if !haveOrient {
		return Frame{Brightness: brightness, NoOrientation: true}
	}

	obs, defaulted := c.Session.Get()

	heading := o.HeadingDeg
	if c.Declination {
		heading = geomag.TrueHeading(heading, obs.LatDeg, obs.LonDeg)
	}

	var h astro.Horizontal
	switch c.Policy {
	case astro.PolicyHeuristic:
		h = astro.ResolveHeuristic(obs.LatDeg, heading)
	default:
		h = astro.ResolveEquatorial(c.Target, obs.LatDeg, obs.LonDeg, now)
	}
	h = c.Lock.Update(h)

	pt, visible := c.Screen.Project(h, heading, o.PitchDeg)

	f := Frame{
		Visible:           visible,
		Brightness:        brightness,
		AltDeg:            h.AltDeg,
		AzDeg:             h.AzDeg,
		ObserverDefaulted: defaulted,
	}
	if visible {
		f.X = pt.X
		f.Y = pt.Y
	}
	return f
}

func (c *Composer) brightness() float64 {
	if c.Player != nil && c.Player.Playing() {
		return c.Signal.Get()
	}
	if c.Twinkle != nil {
		return c.Twinkle.Next()
	}
	return IdleLevel
}
