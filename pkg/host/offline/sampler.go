package offline

import (
	"fmt"
	"math"

	"github.com/james-see/wav2instrument/pkg/notename"
)

// The modeled sampler mirrors the parameter layout the pipeline is built
// against (see host.DefaultSamplerLayout). Display curves are nonlinear on
// purpose: the calibration search must earn its answers the same way it
// would against a real plugin.

const (
	attackMaxMs  = 2000
	decayMaxMs   = 5000
	releaseMaxMs = 4000
	levelMinDB   = -120
	levelMaxDB   = 12
	// Time parameters accept normalized values past the nominal 1.0
	// ceiling, extending their effective range.
	timeDomainMax = 2.0
)

type param struct {
	name   string
	value  float64
	max    float64 // normalized ceiling; SetParam clamps to [0,max]
	format func(v float64) string
}

// Sampler is the modeled plugin instance
type Sampler struct {
	params     []*param
	file       string
	config     map[string]string
	stickyLoop bool
}

func newSampler(stickyLoop bool) *Sampler {
	s := &Sampler{
		config:     make(map[string]string),
		stickyLoop: stickyLoop,
	}
	s.params = []*param{
		{name: "Volume", max: 1, value: 0.716, format: levelFormat},
		{name: "Pan", max: 1, value: 0.5, format: panFormat},
		{name: "Gain for minimum velocity", max: 1, format: levelFormat},
		{name: "Note range start", max: 1, format: noteFormat},
		{name: "Note range end", max: 1, value: 1, format: noteFormat},
		{name: "Attack", max: timeDomainMax, format: timeFormat(attackMaxMs)},
		{name: "Decay", max: timeDomainMax, value: 0.2, format: timeFormat(decayMaxMs)},
		{name: "Sustain", max: 1, value: 0.909, format: levelFormat},
		{name: "Release", max: timeDomainMax, format: timeFormat(releaseMaxMs)},
		{name: "Loop", max: 1, format: toggleFormat},
		{name: "Loop start offset", max: 1, format: plainFormat},
		{name: "Obey note-offs", max: 1, value: 1, format: toggleFormat},
		{name: "Loop xfade", max: 1, format: plainFormat},
		{name: "Sample start offset", max: 1, format: plainFormat},
		{name: "Sample end offset", max: 1, value: 1, format: plainFormat},
	}
	return s
}

func (s *Sampler) Name() string         { return "sampler" }
func (s *Sampler) ParamCount() int      { return len(s.params) }
func (s *Sampler) ParamName(i int) string {
	return s.params[i].name
}

func (s *Sampler) Param(i int) float64 { return s.params[i].value }

func (s *Sampler) SetParam(i int, normalized float64) {
	p := s.params[i]
	if s.stickyLoop && p.name == "Loop" {
		return
	}
	p.value = math.Max(0, math.Min(p.max, normalized))
}

func (s *Sampler) ParamFormatted(i int) string {
	p := s.params[i]
	return p.format(p.value)
}

// SetNamedConfig understands "FILE" (bind the source sample) and "LOOP"
// (force the loop flag, bypassing the parameter surface).
func (s *Sampler) SetNamedConfig(key, value string) bool {
	switch key {
	case "FILE":
		s.file = value
		s.config[key] = value
		return true
	case "LOOP":
		if value == "1" {
			s.params[9].value = 1
		} else {
			s.params[9].value = 0
		}
		s.config[key] = value
		return true
	}
	return false
}

// File returns the bound sample path
func (s *Sampler) File() string { return s.file }

// Config returns the raw configuration issued so far
func (s *Sampler) Config() map[string]string { return s.config }

// timeFormat renders a squared time curve, switching the display to
// seconds at and above one second the way real plugins do.
func timeFormat(maxMs float64) func(float64) string {
	return func(v float64) string {
		ms := maxMs * v * v
		if ms >= 1000 {
			return fmt.Sprintf("%.3f s", ms/1000)
		}
		return fmt.Sprintf("%.2f ms", ms)
	}
}

// levelFormat renders a squared dB curve over [levelMinDB, levelMaxDB]
func levelFormat(v float64) string {
	db := levelMinDB + (levelMaxDB-levelMinDB)*v*v
	if db <= levelMinDB {
		return "-inf dB"
	}
	return fmt.Sprintf("%.2f dB", db)
}

func panFormat(v float64) string {
	c := v*2 - 1
	switch {
	case c < 0:
		return fmt.Sprintf("%.0f%%L", -c*100)
	case c > 0:
		return fmt.Sprintf("%.0f%%R", c*100)
	default:
		return "center"
	}
}

func noteFormat(v float64) string {
	return notename.Name(int(math.Round(v * 127)))
}

func toggleFormat(v float64) string {
	if v >= 0.5 {
		return "ON"
	}
	return "OFF"
}

func plainFormat(v float64) string {
	return fmt.Sprintf("%.4f", v)
}
