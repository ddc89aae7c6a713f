// Package instrument holds the option sets, shared types and the driver
// that dispatches a sample set to one of the two sampler back-ends
package instrument

import (
	"fmt"
	"strings"

	"github.com/james-see/wav2instrument/pkg/calibrate"
	"github.com/james-see/wav2instrument/pkg/host"
	"github.com/james-see/wav2instrument/pkg/notename"
)

// BackendKind selects the sampler back-end
type BackendKind string

const (
	// BackendInstances builds one sampler instance per note
	BackendInstances BackendKind = "instances"
	// BackendPreset builds a single multi-region XML preset
	BackendPreset BackendKind = "preset"
)

// ADSRSpec is the user-facing envelope request in musician units
type ADSRSpec struct {
	AttackMs  float64
	DecayMs   float64
	SustainDB float64
	ReleaseMs float64
}

// LoopSpec is the user-facing loop request in beats. BPM 0 means "use the
// project tempo at the first sample".
type LoopSpec struct {
	Enabled     bool
	BPM         float64
	StartBeats  float64
	LengthBeats float64
	XfadeBeats  float64
}

// Options configures one pipeline run
type Options struct {
	Backend     BackendKind
	Name        string // instrument/track name, used for output naming
	BasePitch   int    // fallback pitch base for unresolved take names
	NoIncrement bool   // all fallback pitches stay at BasePitch
	ObeyNoteOff bool
	ADSR        ADSRSpec
	Loop        LoopSpec
	OutDir      string
	Plugin      string // sampler plugin name for the instances back-end
}

// DefaultOptions returns the option set the interactive form starts from
func DefaultOptions() Options {
	return Options{
		Backend:     BackendPreset,
		Name:        "Instrument",
		BasePitch:   60,
		ObeyNoteOff: true,
		ADSR:        ADSRSpec{AttackMs: 2, DecayMs: 500, SustainDB: 0, ReleaseMs: 100},
		Loop:        LoopSpec{BPM: 0, StartBeats: 0, LengthBeats: 4, XfadeBeats: 0.1},
		Plugin:      "sampler",
	}
}

// Validate rejects out-of-range configuration before anything is mutated
func (o *Options) Validate() error {
	if o.BasePitch < 0 || o.BasePitch > 127 {
		return fmt.Errorf("base pitch %d out of range [0,127]", o.BasePitch)
	}
	if o.ADSR.AttackMs < 0 || o.ADSR.DecayMs < 0 || o.ADSR.ReleaseMs < 0 {
		return fmt.Errorf("envelope times must be >= 0")
	}
	if o.Loop.BPM < 0 {
		return fmt.Errorf("loop tempo must be >= 0 (0 = project tempo)")
	}
	if o.Loop.StartBeats < 0 || o.Loop.LengthBeats < 0 || o.Loop.XfadeBeats < 0 {
		return fmt.Errorf("loop positions must be >= 0")
	}
	switch o.Backend {
	case BackendInstances, BackendPreset:
	default:
		return fmt.Errorf("unknown back-end %q", o.Backend)
	}
	return nil
}

// ResolveBPM returns the loop tempo to use: the explicit value, else the
// project tempo at the first sample, else 120.
func ResolveBPM(loop LoopSpec, session host.Session) float64 {
	if loop.BPM > 0 {
		return loop.BPM
	}
	items := session.Items()
	if len(items) > 0 {
		if bpm := session.Tempo(items[0].Position()); bpm > 0 {
			return bpm
		}
	}
	return 120
}

// AssignPitches resolves one pitch per item: the parsed take name when
// present, else basePitch plus the item's ordinal (or basePitch alone in
// no-increment mode). Exactly one pitch per item, clamped to [0,127].
func AssignPitches(items []host.Item, parser *notename.Parser, basePitch int, noIncrement bool) []int {
	pitches := make([]int, len(items))
	for i, item := range items {
		if pitch, ok := parser.Parse(item.TakeName()); ok {
			pitches[i] = pitch
			continue
		}
		if noIncrement {
			pitches[i] = notename.Clamp(basePitch)
		} else {
			pitches[i] = notename.Clamp(basePitch + i)
		}
	}
	return pitches
}

// Calibration is one applied envelope or loop parameter adjustment
type Calibration struct {
	Param  string
	Target float64
	Result calibrate.Result
}

// SourceWindow is the normalized [start,end] of the source media one
// mapping plays. Start always equals the item's original source offset so
// the attack transient survives any loop configuration.
type SourceWindow struct {
	Start float64
	End   float64
}

// Mapping is the per-sample outcome of the instances back-end
type Mapping struct {
	Item          string
	Pitch         int
	Calibrations  []Calibration
	Window        SourceWindow
	LoopActive    bool
	LoopEscalated bool
}

// Report is what a back-end run hands back for display
type Report struct {
	Backend    BackendKind
	Mappings   []Mapping
	PitchLow   int
	PitchHigh  int
	PresetPath string
	TriggerMID string
}

// SanitizeName reduces an instrument name to characters safe in file
// names, replacing everything else with underscores.
func SanitizeName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "instrument"
	}
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '-', r == '_', r == '.':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}

// Backend builds an instrument from the session's selected items
type Backend interface {
	Kind() BackendKind
	Build(session host.Session, opts Options) (*Report, error)
}
