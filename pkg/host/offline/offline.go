// Package offline is an in-memory host implementation. It models a sampler
// plugin with realistic normalized-to-display parameter curves so the whole
// pipeline, calibration included, runs without a live audio host. The CLI,
// the API server and the integration tests all drive this host.
package offline

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/james-see/wav2instrument/pkg/host"
)

// DefaultPlugin is the sampler plugin name the offline track recognizes
const DefaultPlugin = "sampler"

// Session is an in-memory project
type Session struct {
	tempo float64
	items []host.Item
	track *Track
	notes *NoteSink
}

// NewSession creates an empty session at the given tempo (120 when
// non-positive).
func NewSession(tempo float64) *Session {
	if tempo <= 0 {
		tempo = 120
	}
	return &Session{
		tempo: tempo,
		track: &Track{name: "Instrument"},
		notes: &NoteSink{},
	}
}

// NewSessionFromFiles builds a session whose items are the given sample
// files laid back to back on the timeline. probe reports each file's
// sample rate and frame count; a probe failure leaves the item with
// unknown media metadata rather than failing the session.
func NewSessionFromFiles(paths []string, tempo float64, probe func(path string) (rate int, frames int64, err error)) *Session {
	s := NewSession(tempo)
	pos := 0.0
	for _, p := range paths {
		src := &MediaSource{path: p}
		length := 1.0
		if probe != nil {
			if rate, frames, err := probe(p); err == nil && rate > 0 {
				src.rate = rate
				src.frames = frames
				src.known = true
				length = float64(frames) / float64(rate)
			}
		}
		name := strings.TrimSuffix(filepath.Base(p), filepath.Ext(p))
		s.AddItem(&Item{
			position: pos,
			length:   length,
			takeName: name,
			source:   src,
		})
		pos += length
	}
	return s
}

// AddItem appends an item to the session selection
func (s *Session) AddItem(it *Item) { s.items = append(s.items, it) }

func (s *Session) Tempo(atSec float64) float64 { return s.tempo }
func (s *Session) Items() []host.Item          { return s.items }
func (s *Session) Track() host.Track           { return s.track }
func (s *Session) Notes() host.NoteSink        { return s.notes }

// InsertedNotes returns the trigger notes collected so far
func (s *Session) InsertedNotes() []Note { return s.notes.notes }

// Regions returns the named regions created so far
func (s *Session) Regions() []Region { return s.notes.regions }

// Instruments returns the plugin instances added to the track
func (s *Session) Instruments() []*Sampler { return s.track.instruments }

// Item is an in-memory sample item
type Item struct {
	position float64
	length   float64
	offset   float64
	takeName string
	source   *MediaSource
}

// NewItem builds an item with explicit timeline and source geometry
func NewItem(position, length, offset float64, takeName string, source *MediaSource) *Item {
	return &Item{position: position, length: length, offset: offset, takeName: takeName, source: source}
}

func (it *Item) Position() float64        { return it.position }
func (it *Item) Length() float64          { return it.length }
func (it *Item) StartOffset() float64     { return it.offset }
func (it *Item) TakeName() string         { return it.takeName }
func (it *Item) Source() host.MediaSource { return it.source }

// MediaSource is in-memory media metadata
type MediaSource struct {
	path   string
	rate   int
	frames int64
	known  bool
}

// NewMediaSource builds a source with known metadata
func NewMediaSource(path string, rate int, frames int64) *MediaSource {
	return &MediaSource{path: path, rate: rate, frames: frames, known: true}
}

// NewUnknownMediaSource builds a source whose metadata cannot be probed
func NewUnknownMediaSource(path string) *MediaSource {
	return &MediaSource{path: path}
}

func (m *MediaSource) Path() string { return m.path }

func (m *MediaSource) SampleRate() (int, bool) {
	if !m.known {
		return 0, false
	}
	return m.rate, true
}

func (m *MediaSource) Frames() (int64, bool) {
	if !m.known {
		return 0, false
	}
	return m.frames, true
}

// Track is an in-memory instrument track
type Track struct {
	name        string
	instruments []*Sampler
	// StickyLoopToggle makes new samplers ignore SetParam on the loop
	// toggle, forcing the raw-config escalation path
	StickyLoopToggle bool
}

func (t *Track) Name() string { return t.name }

// AddInstrument instantiates the modeled sampler. Unknown plugin names
// fail the way a missing plugin would on a real host.
func (t *Track) AddInstrument(pluginName string) (host.Instrument, error) {
	if !strings.EqualFold(pluginName, DefaultPlugin) {
		return nil, fmt.Errorf("plugin %q cannot be instantiated", pluginName)
	}
	inst := newSampler(t.StickyLoopToggle)
	t.instruments = append(t.instruments, inst)
	return inst, nil
}

// Note is one inserted trigger note
type Note struct {
	Start    float64
	End      float64
	Pitch    int
	Velocity int
}

// Region is one named timeline region
type Region struct {
	Start float64
	End   float64
	Name  string
}

// NoteSink records trigger notes and regions in memory
type NoteSink struct {
	notes   []Note
	regions []Region
}

func (n *NoteSink) InsertNote(startSec, endSec float64, pitch, velocity int) {
	n.notes = append(n.notes, Note{Start: startSec, End: endSec, Pitch: pitch, Velocity: velocity})
}

func (n *NoteSink) CreateRegion(startSec, endSec float64, name string) {
	n.regions = append(n.regions, Region{Start: startSec, End: endSec, Name: name})
}
