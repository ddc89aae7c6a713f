package host

import "strings"

// Parameter discovery is name-based and inherently fragile across plugin
// versions. The heuristics live here, in one place, as the documented
// contract: substring match for envelope controls, an exclusion list for
// the loop toggle, and a fixed index table for the sampler layout this
// tool ships against.

// FindParam returns the first parameter whose name contains substr,
// case-insensitively.
func FindParam(inst Instrument, substr string) (index int, ok bool) {
	substr = strings.ToLower(substr)
	for i := 0; i < inst.ParamCount(); i++ {
		if strings.Contains(strings.ToLower(inst.ParamName(i)), substr) {
			return i, true
		}
	}
	return 0, false
}

// loopExclude lists name fragments that disqualify a parameter from being
// the loop on/off toggle. "Loop start", "Loop end", "Crossfade loop" and
// friends all contain "loop" but control something else.
var loopExclude = []string{"start", "offset", "end", "xfade", "cross", "cache"}

// FindLoopToggle locates the loop on/off parameter. A parameter named
// exactly "loop" wins outright; otherwise the first name containing "loop"
// without any excluded fragment is used.
func FindLoopToggle(inst Instrument) (index int, ok bool) {
	best := -1
	for i := 0; i < inst.ParamCount(); i++ {
		name := strings.ToLower(strings.TrimSpace(inst.ParamName(i)))
		if name == "loop" {
			return i, true
		}
		if !strings.Contains(name, "loop") {
			continue
		}
		excluded := false
		for _, frag := range loopExclude {
			if strings.Contains(name, frag) {
				excluded = true
				break
			}
		}
		if !excluded && best < 0 {
			best = i
		}
	}
	if best < 0 {
		return 0, false
	}
	return best, true
}

// SamplerLayout is the fixed parameter index contract for the bundled
// sampler plugin. Indexes are a versioned agreement with one external
// plugin layout; a layout change touches only this table.
type SamplerLayout struct {
	Volume       int
	Pan          int
	KeyRangeLow  int
	KeyRangeHigh int
	ObeyNoteOff  int
	SampleStart  int
	SampleEnd    int
}

// DefaultSamplerLayout matches the sampler shipped with the offline host
var DefaultSamplerLayout = SamplerLayout{
	Volume:       0,
	Pan:          1,
	KeyRangeLow:  3,
	KeyRangeHigh: 4,
	ObeyNoteOff:  11,
	SampleStart:  13,
	SampleEnd:    14,
}

// KeyToNormalized converts a MIDI pitch to the normalized value of a key
// range parameter (128 discrete keys over [0,1]).
func KeyToNormalized(pitch int) float64 {
	if pitch < 0 {
		pitch = 0
	}
	if pitch > 127 {
		pitch = 127
	}
	return float64(pitch) / 127.0
}
