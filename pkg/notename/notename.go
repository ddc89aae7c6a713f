// Package notename resolves MIDI pitch numbers from free-form text
package notename

import (
	"fmt"
	"regexp"
	"strconv"
)

// notePattern matches a note letter, an optional accidental and a signed
// octave number, e.g. "C4", "f#2", "Bb-1".
var notePattern = regexp.MustCompile(`[A-Ga-g][#b]?-?[0-9]+`)

// semitones maps note letters to their semitone offset within an octave
var semitones = map[byte]int{
	'c': 0, 'd': 2, 'e': 4, 'f': 5, 'g': 7, 'a': 9, 'b': 11,
}

// pitchNames holds display names for the twelve pitch classes
var pitchNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// Parser resolves note names embedded in item and take names.
// OctaveShift is added to every parsed pitch, for sample libraries that
// label octaves off by one from the MIDI convention.
type Parser struct {
	OctaveShift int
}

// New creates a Parser with no octave shift
func New() *Parser {
	return &Parser{}
}

// Parse scans text for note names and returns the MIDI pitch of the LAST
// match, clamped to [0,127]. The last match wins on purpose: take names
// frequently carry unrelated leading numbers ("01-120bpm-C3") and the note
// label sits at the end. ok is false when no note name is present.
func (p *Parser) Parse(text string) (pitch int, ok bool) {
	matches := notePattern.FindAllString(text, -1)
	if len(matches) == 0 {
		return 0, false
	}
	m := matches[len(matches)-1]

	semi := semitones[lower(m[0])]
	rest := m[1:]
	switch rest[0] {
	case '#':
		semi++
		rest = rest[1:]
	case 'b':
		semi--
		rest = rest[1:]
	}

	octave, err := strconv.Atoi(rest)
	if err != nil {
		return 0, false
	}

	pitch = (octave+1)*12 + semi + p.OctaveShift*12
	return Clamp(pitch), true
}

// Clamp restricts a pitch to the valid MIDI range [0,127]
func Clamp(pitch int) int {
	if pitch < 0 {
		return 0
	}
	if pitch > 127 {
		return 127
	}
	return pitch
}

// Name returns the display name of a MIDI pitch in <PitchClass><Octave>
// form. The octave is pitch/12-1, so Name(0) == "C-1" and Name(60) == "C4".
func Name(pitch int) string {
	pitch = Clamp(pitch)
	return fmt.Sprintf("%s%d", pitchNames[pitch%12], pitch/12-1)
}

func lower(c byte) byte {
	if c >= 'A' && c <= 'Z' {
		return c + ('a' - 'A')
	}
	return c
}
