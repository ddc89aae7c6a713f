// Package units converts between musician-facing units and parses the
// formatted value strings plugins render for their parameters
package units

import (
	"regexp"
	"strconv"
	"strings"
)

// Unit classifies the unit of a formatted parameter value
type Unit int

const (
	UnitUnknown Unit = iota
	UnitDecibel
	UnitMillisecond
	UnitSecond
)

// String returns a short label for the unit
func (u Unit) String() string {
	switch u {
	case UnitDecibel:
		return "dB"
	case UnitMillisecond:
		return "ms"
	case UnitSecond:
		return "s"
	default:
		return "unknown"
	}
}

// numberPattern matches the first signed decimal run in a formatted value.
// Both '.' and ',' are accepted as decimal separators.
var numberPattern = regexp.MustCompile(`-?[0-9]+([.,][0-9]+)?`)

// BeatsToMs converts quarter-note beats to milliseconds at the given tempo.
// A non-positive tempo yields 0.
func BeatsToMs(beats, bpm float64) float64 {
	if bpm <= 0 {
		return 0
	}
	return beats * 60000.0 / bpm
}

// ExtractValue pulls a numeric value and its unit out of a plugin's
// formatted display string, e.g. "12.0 dB" or "3,5ms". The unit is
// classified by substring search in priority order: dB before ms before
// seconds, so "1.0 dbs" reads as decibels. ok is false when the text
// contains no numeric run.
func ExtractValue(formatted string) (value float64, unit Unit, ok bool) {
	text := strings.ToLower(formatted)

	raw := numberPattern.FindString(text)
	if raw == "" {
		return 0, UnitUnknown, false
	}
	raw = strings.ReplaceAll(raw, ",", ".")
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, UnitUnknown, false
	}

	switch {
	case strings.Contains(text, "db"):
		unit = UnitDecibel
	case strings.Contains(text, "ms"):
		unit = UnitMillisecond
	case strings.Contains(text, " sec") || strings.Contains(text, " s"):
		unit = UnitSecond
	default:
		unit = UnitUnknown
	}

	return value, unit, true
}
