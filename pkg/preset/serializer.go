package preset

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/james-see/wav2instrument/pkg/host"
	"github.com/james-see/wav2instrument/pkg/instrument"
	"github.com/james-see/wav2instrument/pkg/notename"
	"github.com/james-see/wav2instrument/pkg/units"
)

// FileExt is the preset document extension
const FileExt = ".txprog"

// Serializer implements the single-instance multi-region back-end
type Serializer struct {
	Parser *notename.Parser
	// Probe reads sample-file metadata when the host's media source has
	// none. Defaults to ProbeWAV.
	Probe func(path string) (SourceInfo, error)
}

// New creates a Serializer with the default parser and WAV probe
func New() *Serializer {
	return &Serializer{
		Parser: notename.New(),
		Probe:  ProbeWAV,
	}
}

// Kind returns the back-end selector
func (s *Serializer) Kind() instrument.BackendKind {
	return instrument.BackendPreset
}

// Build collects the session's samples into a preset document and writes
// it next to the configured output directory. A write failure is fatal and
// leaves no partial artifact.
func (s *Serializer) Build(session host.Session, opts instrument.Options) (*instrument.Report, error) {
	doc, low, high, err := s.BuildDocument(session, opts)
	if err != nil {
		return nil, err
	}

	outDir := opts.OutDir
	if outDir == "" {
		outDir = "."
	}
	path := filepath.Join(outDir, instrument.SanitizeName(opts.Name)+FileExt)
	if err := doc.WriteFile(path); err != nil {
		return nil, err
	}

	return &instrument.Report{
		Backend:    s.Kind(),
		PitchLow:   low,
		PitchHigh:  high,
		PresetPath: path,
	}, nil
}

// BuildDocument assembles the document without touching the filesystem
func (s *Serializer) BuildDocument(session host.Session, opts instrument.Options) (doc *Document, pitchLow, pitchHigh int, err error) {
	items := session.Items()
	if len(items) == 0 {
		return nil, 0, 0, fmt.Errorf("no sample items selected")
	}

	pitches := instrument.AssignPitches(items, s.Parser, opts.BasePitch, opts.NoIncrement)

	type entry struct {
		item  host.Item
		pitch int
	}
	entries := make([]entry, len(items))
	for i, item := range items {
		entries[i] = entry{item: item, pitch: pitches[i]}
	}
	// Ascending pitch. Ties keep no particular order.
	sort.Slice(entries, func(i, j int) bool { return entries[i].pitch < entries[j].pitch })

	bpm := instrument.ResolveBPM(opts.Loop, session)
	loopStartMs := units.BeatsToMs(opts.Loop.StartBeats, bpm)
	loopLengthMs := units.BeatsToMs(opts.Loop.LengthBeats, bpm)

	doc = &Document{
		Version: "1",
		Name:    opts.Name,
		Soundshape: Soundshape{
			ID:      0,
			Attack:  MillisecondsAttr(opts.ADSR.AttackMs),
			Release: MillisecondsAttr(opts.ADSR.ReleaseMs),
			Sustain: DecibelAttr(opts.ADSR.SustainDB),
		},
		Group: Group{
			LowKey:  notename.Name(0),
			HighKey: notename.Name(127),
			LowVel:  0,
			HighVel: 127,
		},
	}

	pitchLow, pitchHigh = 127, 0
	for i, e := range entries {
		info := s.sourceInfo(e.item)
		wave := Wave{
			ID:   i + 1,
			Path: EncodePath(e.item.Source().Path()),
		}
		if opts.Loop.Enabled {
			start, end := loopSamples(loopStartMs, loopLengthMs, info)
			wave.LoopStart = &start
			wave.LoopEnd = &end
			wave.LoopMode = "forward"
		}
		doc.Waves = append(doc.Waves, wave)

		name := notename.Name(e.pitch)
		doc.Group.Regions = append(doc.Group.Regions, Region{
			Wave:    wave.ID,
			Root:    name,
			LowKey:  name,
			HighKey: name,
		})

		if e.pitch < pitchLow {
			pitchLow = e.pitch
		}
		if e.pitch > pitchHigh {
			pitchHigh = e.pitch
		}
	}

	return doc, pitchLow, pitchHigh, nil
}

// sourceInfo resolves sample metadata: the host's own media info first,
// then a header probe, then the fixed fallback.
func (s *Serializer) sourceInfo(item host.Item) SourceInfo {
	src := item.Source()
	if rate, ok := src.SampleRate(); ok && rate > 0 {
		if frames, ok := src.Frames(); ok && frames > 0 {
			return SourceInfo{SampleRate: rate, Frames: frames}
		}
	}
	if s.Probe != nil {
		if info, err := s.Probe(src.Path()); err == nil && info.SampleRate > 0 {
			return info
		}
	}
	return SourceInfo{SampleRate: FallbackSampleRate, Frames: FallbackFrames}
}

// loopSamples converts the loop window to absolute sample counts at the
// wave's own rate. The end clamps to the file length; a start past the
// file length resets to 0.
func loopSamples(loopStartMs, loopLengthMs float64, info SourceInfo) (start, end int64) {
	rate := float64(info.SampleRate)
	start = int64(loopStartMs / 1000 * rate)
	end = start + int64(loopLengthMs/1000*rate)
	if end > info.Frames {
		end = info.Frames
	}
	if start > info.Frames {
		start = 0
	}
	return start, end
}
