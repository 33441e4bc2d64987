// Package sequencer turns text into a Morse on/off timeline and plays
// it against a brightness output on a cancellable timer chain.
package sequencer

import (
	"time"
	"unicode"
)

// ITU timing at the default 200ms dot: dash 3×, symbol gap 1×, letter
// gap 3×, word gap 7×.
const (
	DefaultDot       = 200 * time.Millisecond
	DefaultSymbolGap = 200 * time.Millisecond
	DefaultLetterGap = 600 * time.Millisecond
	DefaultWordGap   = 1400 * time.Millisecond
)

// morseTable maps characters to dot/dash patterns. Unknown characters
// encode to nothing and are skipped.
var morseTable = map[rune]string{
	'A': ".-", 'B': "-...", 'C': "-.-.", 'D': "-..", 'E': ".",
	'F': "..-.", 'G': "--.", 'H': "....", 'I': "..", 'J': ".---",
	'K': "-.-", 'L': ".-..", 'M': "--", 'N': "-.", 'O': "---",
	'P': ".--.", 'Q': "--.-", 'R': ".-.", 'S': "...", 'T': "-",
	'U': "..-", 'V': "...-", 'W': ".--", 'X': "-..-", 'Y': "-.--",
	'Z': "--..",
	'0': "-----", '1': ".----", '2': "..---", '3': "...--", '4': "....-",
	'5': ".....", '6': "-....", '7': "--...", '8': "---..", '9': "----.",
	'.': ".-.-.-", ',': "--..--", '?': "..--..", '\'': ".----.",
	'!': "-.-.--", '/': "-..-.", '(': "-.--.", ')': "-.--.-",
	'&': ".-...", ':': "---...", ';': "-.-.-.", '=': "-...-",
	'+': ".-.-.", '-': "-....-", '_': "..--.-", '"': ".-..-.",
	'@': ".--.-.",
}

// Timings holds the four Morse durations. Zero fields are filled from
// Dot by Normalize.
type Timings struct {
	Dot       time.Duration
	SymbolGap time.Duration
	LetterGap time.Duration
	WordGap   time.Duration
}

// DefaultTimings returns the 200ms-dot ITU timing set.
func DefaultTimings() Timings {
	return Timings{
		Dot:       DefaultDot,
		SymbolGap: DefaultSymbolGap,
		LetterGap: DefaultLetterGap,
		WordGap:   DefaultWordGap,
	}
}

// Normalize fills zero fields from the dot duration per ITU ratios.
func (tm Timings) Normalize() Timings {
	if tm.Dot <= 0 {
		tm.Dot = DefaultDot
	}
	if tm.SymbolGap <= 0 {
		tm.SymbolGap = tm.Dot
	}
	if tm.LetterGap <= 0 {
		tm.LetterGap = 3 * tm.Dot
	}
	if tm.WordGap <= 0 {
		tm.WordGap = 7 * tm.Dot
	}
	return tm
}

// Pulse is one timeline entry: output on or off for a duration.
type Pulse struct {
	On       bool
	Duration time.Duration
}

// Timeline is an ordered on/off pulse sequence. Total play time is the
// sum of entry durations; entries alternate on/off.
type Timeline []Pulse

// Total returns the summed duration of all pulses.
func (tl Timeline) Total() time.Duration {
	var sum time.Duration
	for _, p := range tl {
		sum += p.Duration
	}
	return sum
}

// Encode converts text to a Morse timeline. Characters are matched
// case-insensitively; unmapped characters contribute nothing, not even
// a gap. A space becomes a word gap, which absorbs the letter gap that
// would otherwise separate the surrounding characters. There is no
// trailing gap after the final pulse.
func Encode(text string, tm Timings) Timeline {
	tm = tm.Normalize()

	var tl Timeline
	wordBreak := false
	for _, r := range text {
		if r == ' ' {
			if len(tl) > 0 {
				wordBreak = true
			}
			continue
		}

		code, ok := morseTable[unicode.ToUpper(r)]
		if !ok {
			continue
		}

		if len(tl) > 0 {
			gap := tm.LetterGap
			if wordBreak {
				gap = tm.WordGap
			}
			tl = append(tl, Pulse{On: false, Duration: gap})
		}
		wordBreak = false

		for i, sym := range code {
			if i > 0 {
				tl = append(tl, Pulse{On: false, Duration: tm.SymbolGap})
			}
			d := tm.Dot
			if sym == '-' {
				d = 3 * tm.Dot
			}
			tl = append(tl, Pulse{On: true, Duration: d})
		}
	}
	return tl
}
