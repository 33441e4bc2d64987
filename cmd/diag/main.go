// Command diag is a CLI check for the resolver and sequencer math:
// it prints the sidereal solution and projection for an observer, and
// can dump or audibly play a Morse timeline.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/speaker"

	"github.com/star/northstar/internal/astro"
	"github.com/star/northstar/internal/geomag"
	"github.com/star/northstar/internal/project"
	"github.com/star/northstar/internal/sequencer"
	"github.com/star/northstar/internal/tone"
)

func main() {
	lat := flag.Float64("lat", 39.7392, "observer latitude in degrees")
	lon := flag.Float64("lon", -104.9903, "observer longitude in degrees")
	heading := flag.Float64("heading", 0, "device compass heading in degrees")
	tilt := flag.Float64("tilt", 50, "device pitch in degrees up from horizontal")
	at := flag.String("at", "", "observation time, RFC 3339 (default: now)")
	text := flag.String("text", "SOS", "text to encode as a Morse timeline")
	play := flag.Bool("play", false, "play the timeline as an audible sidetone")
	flag.Parse()

	when := time.Now().UTC()
	if *at != "" {
		t, err := time.Parse(time.RFC3339, *at)
		if err != nil {
			fmt.Fprintln(os.Stderr, "ERROR parsing -at:", err)
			os.Exit(1)
		}
		when = t.UTC()
	}

	fmt.Printf("Observer: %.4f°N %.4f°E at %v\n", *lat, *lon, when.Format(time.RFC3339))
	fmt.Printf("Julian date: %.6f\n", astro.JulianDate(when))
	fmt.Printf("GMST: %.6f h\n", astro.GreenwichSiderealTime(when))
	fmt.Printf("LST:  %.6f h\n", astro.LocalSiderealTime(when, *lon))

	decl := geomag.DeclinationDeg(*lat, *lon)
	trueHeading := geomag.TrueHeading(*heading, *lat, *lon)
	fmt.Printf("Magnetic declination: %+.2f° (heading %.1f° magnetic -> %.1f° true)\n",
		decl, *heading, trueHeading)

	h := astro.ResolveEquatorial(astro.Polaris, *lat, *lon, when)
	fmt.Printf("%s: alt %.3f° az %.3f°\n", astro.Polaris.Name, h.AltDeg, h.AzDeg)

	heuristic := astro.ResolveHeuristic(*lat, trueHeading)
	fmt.Printf("Heuristic: alt %.3f° az %.3f° (delta alt %+.3f°)\n",
		heuristic.AltDeg, heuristic.AzDeg, heuristic.AltDeg-h.AltDeg)

	screen := project.Screen{WidthPx: 400, HeightPx: 800, FOVHDeg: 60, FOVVDeg: 40}
	pt, visible := screen.Project(h, trueHeading, *tilt)
	if visible {
		fmt.Printf("Screen: (%.1f, %.1f) px at heading %.1f° tilt %.1f°\n", pt.X, pt.Y, trueHeading, *tilt)
	} else {
		fmt.Printf("Off screen at heading %.1f° tilt %.1f°\n", trueHeading, *tilt)
	}

	wp := project.Sphere{}.Project(h)
	fmt.Printf("World: (%.3f, %.3f, %.3f)\n", wp.X, wp.Y, wp.Z)

	tl := sequencer.Encode(*text, sequencer.DefaultTimings())
	fmt.Printf("\nMorse %q: %d pulses, %v total\n", *text, len(tl), tl.Total())
	for i, p := range tl {
		state := "off"
		if p.On {
			state = "ON"
		}
		fmt.Printf("  %3d  %-3s %v\n", i, state, p.Duration)
	}

	if *play {
		cfg := tone.DefaultConfig()
		if err := speaker.Init(cfg.SampleRate, cfg.SampleRate.N(100*time.Millisecond)); err != nil {
			fmt.Fprintln(os.Stderr, "ERROR initializing speaker:", err)
			os.Exit(1)
		}
		done := make(chan struct{})
		speaker.Play(beep.Seq(tone.Render(tl, cfg), beep.Callback(func() { close(done) })))
		<-done
		// Let the buffer drain before exiting.
		time.Sleep(200 * time.Millisecond)
	}
}
