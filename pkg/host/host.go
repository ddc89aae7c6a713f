// Package host declares the capabilities the instrument pipeline consumes
// from its audio host. Components receive these as injected interfaces so
// the same pipeline runs against a live session bridge or the bundled
// offline host.
package host

// Session is one open project: a tempo map, a set of selected sample items
// and a destination track for the built instrument.
type Session interface {
	// Tempo returns the project tempo in BPM at a timeline position
	Tempo(atSec float64) float64
	// Items returns the currently selected sample items in timeline order
	Items() []Item
	// Track returns the destination track for instrument instances
	Track() Track
	// Notes returns the sink for trigger notes and named regions
	Notes() NoteSink
}

// Item is one recorded sample on the timeline
type Item interface {
	// Position is the timeline start in seconds
	Position() float64
	// Length is the played length in seconds
	Length() float64
	// StartOffset is the offset into the source media in seconds
	StartOffset() float64
	// TakeName is the display name, scanned for note names
	TakeName() string
	// Source is the underlying media
	Source() MediaSource
}

// MediaSource describes a sample's source file
type MediaSource interface {
	Path() string
	// SampleRate reports the source rate in Hz; ok is false when the
	// media cannot be probed
	SampleRate() (rate int, ok bool)
	// Frames reports the total source length in sample frames
	Frames() (frames int64, ok bool)
}

// Track is the destination track for instrument instances
type Track interface {
	Name() string
	// AddInstrument instantiates a named plugin on the track. Failing to
	// instantiate the sampler is fatal for the whole back-end path.
	AddInstrument(pluginName string) (Instrument, error)
}

// Instrument is one live plugin instance. Parameter access is by index;
// the only readable rendering of a value is its formatted display string.
type Instrument interface {
	Name() string
	ParamCount() int
	ParamName(index int) string
	Param(index int) float64
	SetParam(index int, normalized float64)
	ParamFormatted(index int) string
	// SetNamedConfig issues a raw named configuration command, e.g.
	// binding a source file or forcing a loop flag the parameter surface
	// would not take. Returns false when the key is not understood.
	SetNamedConfig(key, value string) bool
}

// NoteSink receives the aggregate trigger sequence
type NoteSink interface {
	InsertNote(startSec, endSec float64, pitch, velocity int)
	CreateRegion(startSec, endSec float64, name string)
}

// Answer is a yes/no/cancel prompt outcome
type Answer int

const (
	AnswerYes Answer = iota
	AnswerNo
	AnswerCancel
)

// Prompter collects user input. A cancel aborts the rest of the pipeline;
// host state mutated before the cancel point stays as-is.
type Prompter interface {
	Confirm(title, message string) Answer
}

// ParamProbe adapts one instrument parameter to the calibration probe
// surface. It satisfies calibrate.Probe.
type ParamProbe struct {
	Instrument Instrument
	Index      int
}

func (p ParamProbe) Set(normalized float64) {
	p.Instrument.SetParam(p.Index, normalized)
}

func (p ParamProbe) ReadFormatted() string {
	return p.Instrument.ParamFormatted(p.Index)
}
