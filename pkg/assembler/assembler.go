// Package assembler builds the multi-instance back-end: one sampler
// instance per sample, keyed to a single note, with envelope and loop
// parameters calibrated against the live plugin.
package assembler

import (
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/james-see/wav2instrument/pkg/calibrate"
	"github.com/james-see/wav2instrument/pkg/host"
	"github.com/james-see/wav2instrument/pkg/instrument"
	"github.com/james-see/wav2instrument/pkg/notename"
	"github.com/james-see/wav2instrument/pkg/units"
)

// Time parameters hide range beyond the nominal 1.0 ceiling on some
// sampler builds, so their calibration domain is widened. Level (dB)
// parameters stay bounded.
const (
	timeDomainMax  = 10.0
	levelDomainMax = 1.0
)

// triggerVelocity is the velocity of every inserted trigger note
const triggerVelocity = 100

// Assembler implements the one-instance-per-note back-end
type Assembler struct {
	Parser *notename.Parser
	Layout host.SamplerLayout
}

// New creates an Assembler with the default parser and sampler layout
func New() *Assembler {
	return &Assembler{
		Parser: notename.New(),
		Layout: host.DefaultSamplerLayout,
	}
}

// Kind returns the back-end selector
func (a *Assembler) Kind() instrument.BackendKind {
	return instrument.BackendInstances
}

// Build runs every sample through the per-instance pipeline, then inserts
// the aggregate trigger sequence. Failing to instantiate the sampler is
// fatal; a missing named parameter on an instance only skips that one
// adjustment.
func (a *Assembler) Build(session host.Session, opts instrument.Options) (*instrument.Report, error) {
	items := session.Items()
	pitches := instrument.AssignPitches(items, a.Parser, opts.BasePitch, opts.NoIncrement)

	bpm := instrument.ResolveBPM(opts.Loop, session)
	loopStartMs := units.BeatsToMs(opts.Loop.StartBeats, bpm)
	loopLengthMs := units.BeatsToMs(opts.Loop.LengthBeats, bpm)

	track := session.Track()
	report := &instrument.Report{Backend: a.Kind(), PitchLow: 127, PitchHigh: 0}

	for i, item := range items {
		inst, err := track.AddInstrument(opts.Plugin)
		if err != nil {
			return nil, fmt.Errorf("sampler plugin unavailable: %w", err)
		}
		mapping := a.buildOne(inst, item, pitches[i], opts, loopStartMs, loopLengthMs)
		report.Mappings = append(report.Mappings, mapping)
		if pitches[i] < report.PitchLow {
			report.PitchLow = pitches[i]
		}
		if pitches[i] > report.PitchHigh {
			report.PitchHigh = pitches[i]
		}
	}

	a.insertTriggers(session, items, pitches, opts.Name)

	if opts.OutDir != "" {
		path, err := a.writeTriggerFile(items, pitches, bpm, opts)
		if err != nil {
			return nil, err
		}
		report.TriggerMID = path
	}

	return report, nil
}

// buildOne walks a single sample through instance creation, source
// binding, pitch binding, best-effort envelope calibration, loop
// resolution and source window computation.
func (a *Assembler) buildOne(inst host.Instrument, item host.Item, pitch int, opts instrument.Options, loopStartMs, loopLengthMs float64) instrument.Mapping {
	mapping := instrument.Mapping{Item: item.TakeName(), Pitch: pitch}

	inst.SetNamedConfig("FILE", item.Source().Path())

	// Single-key mapping: the note bounds both ends of the key range.
	inst.SetParam(a.Layout.KeyRangeLow, host.KeyToNormalized(pitch))
	inst.SetParam(a.Layout.KeyRangeHigh, host.KeyToNormalized(pitch))

	if opts.ObeyNoteOff {
		inst.SetParam(a.Layout.ObeyNoteOff, 1)
	} else {
		inst.SetParam(a.Layout.ObeyNoteOff, 0)
	}

	mapping.Calibrations = a.calibrateEnvelope(inst, opts.ADSR)
	mapping.LoopActive, mapping.LoopEscalated = a.resolveLoop(inst, opts.Loop.Enabled)
	mapping.Window = a.applySourceWindow(inst, item, opts.Loop, loopStartMs, loopLengthMs)

	return mapping
}

// calibrateEnvelope calibrates every envelope control the plugin exposes.
// Absent controls are skipped: the instrument is still usable without
// that adjustment.
func (a *Assembler) calibrateEnvelope(inst host.Instrument, adsr instrument.ADSRSpec) []instrument.Calibration {
	targets := []struct {
		param  string
		target float64
		kind   calibrate.Kind
		domain float64
	}{
		{"attack", adsr.AttackMs, calibrate.KindTime, timeDomainMax},
		{"decay", adsr.DecayMs, calibrate.KindTime, timeDomainMax},
		{"sustain", adsr.SustainDB, calibrate.KindLevel, levelDomainMax},
		{"release", adsr.ReleaseMs, calibrate.KindTime, timeDomainMax},
	}

	var results []instrument.Calibration
	for _, t := range targets {
		index, ok := host.FindParam(inst, t.param)
		if !ok {
			continue
		}
		probe := host.ParamProbe{Instrument: inst, Index: index}
		res := calibrate.Calibrate(probe, t.target, t.kind, t.domain)
		results = append(results, instrument.Calibration{
			Param:  t.param,
			Target: t.target,
			Result: res,
		})
	}
	return results
}

// resolveLoop sets or clears the loop toggle. A toggle that will not take
// a normalized write gets one escalation through the raw configuration
// surface, then a final verification.
func (a *Assembler) resolveLoop(inst host.Instrument, enabled bool) (active, escalated bool) {
	index, ok := host.FindLoopToggle(inst)
	if !ok {
		return false, false
	}

	if !enabled {
		inst.SetParam(index, 0)
		return false, false
	}

	inst.SetParam(index, 1)
	if inst.Param(index) < 0.5 {
		inst.SetNamedConfig("LOOP", "1")
		escalated = true
	}
	return inst.Param(index) >= 0.5, escalated
}

// applySourceWindow computes and applies the normalized source window.
// The start is always the item's original source offset: loop settings
// never advance it, so the attack transient survives. The end shrinks to
// the requested loop window when one is present and never exceeds the
// source length.
func (a *Assembler) applySourceWindow(inst host.Instrument, item host.Item, loop instrument.LoopSpec, loopStartMs, loopLengthMs float64) instrument.SourceWindow {
	offset := item.StartOffset()
	endSec := offset + item.Length()
	if loop.Enabled && loop.LengthBeats > 0 {
		loopEnd := offset + (loopStartMs+loopLengthMs)/1000
		endSec = math.Min(endSec, loopEnd)
	}

	sourceLen := sourceLengthSec(item)
	window := instrument.SourceWindow{
		Start: clamp01(offset / sourceLen),
		End:   clamp01(endSec / sourceLen),
	}

	inst.SetParam(a.Layout.SampleStart, window.Start)
	inst.SetParam(a.Layout.SampleEnd, window.End)
	return window
}

// sourceLengthSec returns the total source media length in seconds,
// falling back to the item's own extent when the media cannot be probed.
func sourceLengthSec(item host.Item) float64 {
	if rate, ok := item.Source().SampleRate(); ok && rate > 0 {
		if frames, ok := item.Source().Frames(); ok && frames > 0 {
			return float64(frames) / float64(rate)
		}
	}
	length := item.StartOffset() + item.Length()
	if length <= 0 {
		return 1
	}
	return length
}

// insertTriggers builds the aggregate trigger sequence: one note per
// sample at its original timeline position, plus a region spanning the
// whole sequence.
func (a *Assembler) insertTriggers(session host.Session, items []host.Item, pitches []int, name string) {
	sink := session.Notes()
	if len(items) == 0 {
		return
	}

	first, last := math.Inf(1), math.Inf(-1)
	for i, item := range items {
		start := item.Position()
		end := start + item.Length()
		sink.InsertNote(start, end, pitches[i], triggerVelocity)
		first = math.Min(first, start)
		last = math.Max(last, end)
	}
	sink.CreateRegion(first, last, name)
}

// writeTriggerFile exports the trigger sequence as a Standard MIDI File
func (a *Assembler) writeTriggerFile(items []host.Item, pitches []int, bpm float64, opts instrument.Options) (string, error) {
	data, err := TriggerSMF(items, pitches, bpm)
	if err != nil {
		return "", fmt.Errorf("trigger sequence: %w", err)
	}
	path := filepath.Join(opts.OutDir, instrument.SanitizeName(opts.Name)+"-triggers.mid")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write trigger file: %w", err)
	}
	return path, nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
