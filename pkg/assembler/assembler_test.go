package assembler

import (
	"math"
	"testing"

	"github.com/james-see/wav2instrument/pkg/host"
	"github.com/james-see/wav2instrument/pkg/host/offline"
	"github.com/james-see/wav2instrument/pkg/instrument"
)

// fourSecondSession builds a session whose items sit on four-second
// sources so window fractions are easy to reason about.
func fourSecondSession(names ...string) *offline.Session {
	s := offline.NewSession(120)
	pos := 0.0
	for _, name := range names {
		src := offline.NewMediaSource("/samples/"+name+".wav", 44100, 4*44100)
		s.AddItem(offline.NewItem(pos, 4, 0, name, src))
		pos += 4
	}
	return s
}

func baseOptions() instrument.Options {
	opts := instrument.DefaultOptions()
	opts.Backend = instrument.BackendInstances
	opts.Plugin = offline.DefaultPlugin
	return opts
}

func TestBuildCreatesOneInstancePerSample(t *testing.T) {
	s := fourSecondSession("C3", "D3", "unnamed")
	report, err := New().Build(s, baseOptions())
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if len(s.Instruments()) != 3 {
		t.Fatalf("instances = %d, want 3", len(s.Instruments()))
	}
	if len(report.Mappings) != 3 {
		t.Fatalf("mappings = %d, want 3", len(report.Mappings))
	}

	// C3/D3 parse; the third falls back to basePitch + ordinal
	wantPitches := []int{48, 50, 62}
	for i, m := range report.Mappings {
		if m.Pitch != wantPitches[i] {
			t.Errorf("mapping %d pitch = %d, want %d", i, m.Pitch, wantPitches[i])
		}
	}
	if report.PitchLow != 48 || report.PitchHigh != 62 {
		t.Errorf("pitch range = [%d,%d], want [48,62]", report.PitchLow, report.PitchHigh)
	}
}

func TestBuildBindsSingleKeyRange(t *testing.T) {
	s := fourSecondSession("C3")
	if _, err := New().Build(s, baseOptions()); err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	inst := s.Instruments()[0]
	layout := host.DefaultSamplerLayout
	want := host.KeyToNormalized(48)
	if inst.Param(layout.KeyRangeLow) != want || inst.Param(layout.KeyRangeHigh) != want {
		t.Errorf("key range = [%v,%v], want both %v",
			inst.Param(layout.KeyRangeLow), inst.Param(layout.KeyRangeHigh), want)
	}
	if inst.File() != "/samples/C3.wav" {
		t.Errorf("bound file = %q", inst.File())
	}
}

func TestBuildCalibratesEnvelope(t *testing.T) {
	s := fourSecondSession("C3")
	opts := baseOptions()
	opts.ADSR = instrument.ADSRSpec{AttackMs: 250, DecayMs: 800, SustainDB: -12, ReleaseMs: 300}

	report, err := New().Build(s, opts)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	cals := report.Mappings[0].Calibrations
	if len(cals) != 4 {
		t.Fatalf("calibrations = %d, want 4", len(cals))
	}
	for _, c := range cals {
		if !c.Result.Converged {
			t.Errorf("calibration %q did not converge", c.Param)
		}
	}

	// Attack readback: modeled curve is 2000*v^2 ms
	inst := s.Instruments()[0]
	index, _ := host.FindParam(inst, "attack")
	gotMs := 2000 * inst.Param(index) * inst.Param(index)
	if math.Abs(gotMs-250) > 2 {
		t.Errorf("attack readback = %v ms, want 250 within 2", gotMs)
	}
}

func TestBuildMissingPluginIsFatal(t *testing.T) {
	s := fourSecondSession("C3")
	opts := baseOptions()
	opts.Plugin = "nonexistent"

	if _, err := New().Build(s, opts); err == nil {
		t.Fatal("Build() with unknown plugin should fail")
	}
	if len(s.Instruments()) != 0 {
		t.Errorf("instances = %d, want 0", len(s.Instruments()))
	}
}

func TestLoopToggleSetAndCleared(t *testing.T) {
	s := fourSecondSession("C3")
	opts := baseOptions()
	opts.Loop.Enabled = true
	report, err := New().Build(s, opts)
	if err != nil {
		t.Fatal(err)
	}
	if !report.Mappings[0].LoopActive {
		t.Error("loop not active after enable")
	}
	if report.Mappings[0].LoopEscalated {
		t.Error("escalation used on a cooperative toggle")
	}

	s = fourSecondSession("C3")
	opts.Loop.Enabled = false
	report, err = New().Build(s, opts)
	if err != nil {
		t.Fatal(err)
	}
	if report.Mappings[0].LoopActive {
		t.Error("loop active after disable")
	}
	loopIndex, _ := host.FindLoopToggle(s.Instruments()[0])
	if s.Instruments()[0].Param(loopIndex) >= 0.5 {
		t.Error("loop toggle not explicitly cleared")
	}
}

func TestLoopEscalationOnStickyToggle(t *testing.T) {
	s := fourSecondSession("C3")
	s.Track().(*offline.Track).StickyLoopToggle = true

	opts := baseOptions()
	opts.Loop.Enabled = true
	report, err := New().Build(s, opts)
	if err != nil {
		t.Fatal(err)
	}

	m := report.Mappings[0]
	if !m.LoopEscalated {
		t.Error("sticky toggle should trigger config escalation")
	}
	if !m.LoopActive {
		t.Error("loop should be active after escalation")
	}
	if s.Instruments()[0].Config()["LOOP"] != "1" {
		t.Error("raw LOOP config not issued")
	}
}

func TestSourceWindowPreservesAttack(t *testing.T) {
	// One-second offset into a four-second source
	src := offline.NewMediaSource("/samples/p.wav", 44100, 4*44100)

	loops := []instrument.LoopSpec{
		{Enabled: false},
		{Enabled: true, BPM: 120, StartBeats: 1, LengthBeats: 2},
		{Enabled: true, BPM: 120, StartBeats: 0, LengthBeats: 0.5},
		{Enabled: true, BPM: 60, StartBeats: 4, LengthBeats: 8},
	}

	for _, loop := range loops {
		s2 := offline.NewSession(120)
		s2.AddItem(offline.NewItem(0, 2, 1, "C3", src))
		opts := baseOptions()
		opts.Loop = loop

		report, err := New().Build(s2, opts)
		if err != nil {
			t.Fatal(err)
		}
		window := report.Mappings[0].Window
		if math.Abs(window.Start-0.25) > 1e-9 {
			t.Errorf("loop %+v: window start = %v, want 0.25 (original offset)", loop, window.Start)
		}
	}
}

func TestSourceWindowEndShortenedByLoop(t *testing.T) {
	// offset 0, item 4 s, source 4 s; loop 1 beat start + 2 beats length
	// at 120 bpm = 0.5 s + 1.0 s, so the end shrinks to 1.5/4.
	s := fourSecondSession("C3")
	opts := baseOptions()
	opts.Loop = instrument.LoopSpec{Enabled: true, BPM: 120, StartBeats: 1, LengthBeats: 2}

	report, err := New().Build(s, opts)
	if err != nil {
		t.Fatal(err)
	}
	window := report.Mappings[0].Window
	if math.Abs(window.End-0.375) > 1e-9 {
		t.Errorf("window end = %v, want 0.375", window.End)
	}

	// A longer loop window than the item cannot grow the end
	s = fourSecondSession("C3")
	opts.Loop = instrument.LoopSpec{Enabled: true, BPM: 120, StartBeats: 0, LengthBeats: 64}
	report, err = New().Build(s, opts)
	if err != nil {
		t.Fatal(err)
	}
	if report.Mappings[0].Window.End != 1 {
		t.Errorf("window end = %v, want 1 (clamped)", report.Mappings[0].Window.End)
	}
}

func TestSourceWindowEndMonotonicInLoopLength(t *testing.T) {
	prev := math.Inf(1)
	for _, beats := range []float64{8, 4, 2, 1, 0.5} {
		s := fourSecondSession("C3")
		opts := baseOptions()
		opts.Loop = instrument.LoopSpec{Enabled: true, BPM: 120, StartBeats: 0, LengthBeats: beats}

		report, err := New().Build(s, opts)
		if err != nil {
			t.Fatal(err)
		}
		end := report.Mappings[0].Window.End
		if end > prev {
			t.Errorf("end grew from %v to %v as loop shrank to %v beats", prev, end, beats)
		}
		prev = end
	}
}

func TestTriggerSequence(t *testing.T) {
	s := fourSecondSession("C3", "D3")
	opts := baseOptions()
	opts.Name = "My Kit"

	if _, err := New().Build(s, opts); err != nil {
		t.Fatal(err)
	}

	notes := s.InsertedNotes()
	if len(notes) != 2 {
		t.Fatalf("notes = %d, want 2", len(notes))
	}
	if notes[0].Pitch != 48 || notes[1].Pitch != 50 {
		t.Errorf("pitches = %d, %d, want 48, 50", notes[0].Pitch, notes[1].Pitch)
	}
	if notes[0].Start != 0 || notes[0].End != 4 || notes[1].Start != 4 || notes[1].End != 8 {
		t.Errorf("note positions = %+v", notes)
	}

	regions := s.Regions()
	if len(regions) != 1 || regions[0].Name != "My Kit" || regions[0].End != 8 {
		t.Errorf("regions = %+v", regions)
	}
}

func TestTriggerSequenceNoIncrement(t *testing.T) {
	s := fourSecondSession("one", "two", "three")
	opts := baseOptions()
	opts.BasePitch = 36
	opts.NoIncrement = true

	if _, err := New().Build(s, opts); err != nil {
		t.Fatal(err)
	}
	for _, note := range s.InsertedNotes() {
		if note.Pitch != 36 {
			t.Errorf("note pitch = %d, want shared base 36", note.Pitch)
		}
	}
}

func TestTriggerSMF(t *testing.T) {
	s := fourSecondSession("C3", "D3")
	data, err := TriggerSMF(s.Items(), []int{48, 50}, 120)
	if err != nil {
		t.Fatalf("TriggerSMF() error = %v", err)
	}
	if len(data) < 14 || string(data[:4]) != "MThd" {
		t.Errorf("SMF header missing: % X", data[:4])
	}
}

func TestTriggerSMFRejectsMismatch(t *testing.T) {
	s := fourSecondSession("C3")
	if _, err := TriggerSMF(s.Items(), []int{48, 50}, 120); err == nil {
		t.Error("TriggerSMF() length mismatch should fail")
	}
	if _, err := TriggerSMF(nil, nil, 120); err == nil {
		t.Error("TriggerSMF() with no items should fail")
	}
}

func TestWriteTriggerFile(t *testing.T) {
	s := fourSecondSession("C3")
	opts := baseOptions()
	opts.OutDir = t.TempDir()
	opts.Name = "kit one"

	report, err := New().Build(s, opts)
	if err != nil {
		t.Fatal(err)
	}
	if report.TriggerMID == "" {
		t.Fatal("TriggerMID path empty")
	}
}
