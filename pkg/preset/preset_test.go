package preset

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/james-see/wav2instrument/pkg/host/offline"
	"github.com/james-see/wav2instrument/pkg/instrument"
)

type sample struct {
	name   string
	rate   int
	frames int64
}

func sessionWith(samples ...sample) *offline.Session {
	s := offline.NewSession(120)
	pos := 0.0
	for _, smp := range samples {
		src := offline.NewMediaSource("/lib/"+smp.name+".wav", smp.rate, smp.frames)
		length := float64(smp.frames) / float64(smp.rate)
		s.AddItem(offline.NewItem(pos, length, 0, smp.name, src))
		pos += length
	}
	return s
}

func threeSampleSession() *offline.Session {
	return sessionWith(
		sample{"C3", 44100, 88200},
		sample{"D3", 44100, 88200},
		sample{"unnamed", 48000, 96000},
	)
}

func presetOptions() instrument.Options {
	opts := instrument.DefaultOptions()
	opts.Backend = instrument.BackendPreset
	return opts
}

func TestBuildDocumentPitchResolution(t *testing.T) {
	doc, low, high, err := New().BuildDocument(threeSampleSession(), presetOptions())
	if err != nil {
		t.Fatalf("BuildDocument() error = %v", err)
	}

	if low != 48 || high != 62 {
		t.Errorf("pitch range = [%d,%d], want [48,62]", low, high)
	}
	if len(doc.Waves) != 3 || len(doc.Group.Regions) != 3 {
		t.Fatalf("waves = %d, regions = %d, want 3 each", len(doc.Waves), len(doc.Group.Regions))
	}

	wantRoots := []string{"C3", "D3", "D4"} // 48, 50, 60+2
	for i, region := range doc.Group.Regions {
		if region.Root != wantRoots[i] {
			t.Errorf("region %d root = %q, want %q", i, region.Root, wantRoots[i])
		}
	}
}

func TestBuildDocumentRegionsAreSingleKey(t *testing.T) {
	doc, _, _, err := New().BuildDocument(threeSampleSession(), presetOptions())
	if err != nil {
		t.Fatal(err)
	}

	for _, region := range doc.Group.Regions {
		if region.LowKey != region.HighKey || region.LowKey != region.Root {
			t.Errorf("region %+v: lowkey, highkey and root must all match", region)
		}
	}
	if doc.Group.LowKey != "C-1" || doc.Group.HighKey != "G9" {
		t.Errorf("group bounds = [%s,%s], want [C-1,G9]", doc.Group.LowKey, doc.Group.HighKey)
	}
	if doc.Group.LowVel != 0 || doc.Group.HighVel != 127 {
		t.Errorf("velocity bounds = [%d,%d], want [0,127]", doc.Group.LowVel, doc.Group.HighVel)
	}
}

func TestBuildDocumentSortsByPitch(t *testing.T) {
	// Reverse-ordered input
	s := sessionWith(
		sample{"G4", 44100, 44100},
		sample{"C2", 44100, 44100},
		sample{"E3", 44100, 44100},
	)

	doc, _, _, err := New().BuildDocument(s, presetOptions())
	if err != nil {
		t.Fatal(err)
	}

	wantOrder := []string{"C2", "E3", "G4"}
	for i, region := range doc.Group.Regions {
		if region.Root != wantOrder[i] {
			t.Errorf("region %d root = %q, want %q (ascending pitch)", i, region.Root, wantOrder[i])
		}
	}
	for i, wave := range doc.Waves {
		if !strings.Contains(wave.Path, wantOrder[i]) {
			t.Errorf("wave %d path = %q, want sample %q", i, wave.Path, wantOrder[i])
		}
	}
}

func TestBuildDocumentLoopSampleCounts(t *testing.T) {
	s := threeSampleSession()
	opts := presetOptions()
	opts.Loop = instrument.LoopSpec{Enabled: true, BPM: 120, StartBeats: 1, LengthBeats: 2}

	doc, _, _, err := New().BuildDocument(s, opts)
	if err != nil {
		t.Fatal(err)
	}

	// 1 beat at 120 = 500 ms, 2 beats = 1000 ms. At 44100 Hz that is
	// 22050 and 66150 samples; at 48000 Hz, 24000 and 72000.
	for _, wave := range doc.Waves {
		if wave.LoopStart == nil || wave.LoopEnd == nil {
			t.Fatalf("wave %d missing loop bounds", wave.ID)
		}
		if wave.LoopMode != "forward" {
			t.Errorf("wave %d loopmode = %q, want forward", wave.ID, wave.LoopMode)
		}
	}

	if *doc.Waves[0].LoopStart != 22050 || *doc.Waves[0].LoopEnd != 66150 {
		t.Errorf("44.1k wave loop = [%d,%d], want [22050,66150]",
			*doc.Waves[0].LoopStart, *doc.Waves[0].LoopEnd)
	}
	// The third wave (48 kHz) converts at its own rate
	if *doc.Waves[2].LoopStart != 24000 || *doc.Waves[2].LoopEnd != 72000 {
		t.Errorf("48k wave loop = [%d,%d], want [24000,72000]",
			*doc.Waves[2].LoopStart, *doc.Waves[2].LoopEnd)
	}
}

func TestBuildDocumentLoopClampedToWaveLength(t *testing.T) {
	s := sessionWith(sample{"C3", 44100, 44100}) // one second

	opts := presetOptions()
	opts.Loop = instrument.LoopSpec{Enabled: true, BPM: 120, StartBeats: 0, LengthBeats: 16}

	doc, _, _, err := New().BuildDocument(s, opts)
	if err != nil {
		t.Fatal(err)
	}
	if *doc.Waves[0].LoopEnd != 44100 {
		t.Errorf("loop end = %d, want clamped 44100", *doc.Waves[0].LoopEnd)
	}

	// A loop start beyond the file resets to 0
	opts.Loop = instrument.LoopSpec{Enabled: true, BPM: 120, StartBeats: 64, LengthBeats: 1}
	doc, _, _, err = New().BuildDocument(s, opts)
	if err != nil {
		t.Fatal(err)
	}
	if *doc.Waves[0].LoopStart != 0 {
		t.Errorf("loop start = %d, want reset to 0", *doc.Waves[0].LoopStart)
	}
	if *doc.Waves[0].LoopEnd > 44100 {
		t.Errorf("loop end = %d exceeds wave length", *doc.Waves[0].LoopEnd)
	}
}

func TestBuildDocumentSoundshape(t *testing.T) {
	opts := presetOptions()
	opts.ADSR = instrument.ADSRSpec{AttackMs: 2, DecayMs: 500, SustainDB: -12.5, ReleaseMs: 100}

	doc, _, _, err := New().BuildDocument(threeSampleSession(), opts)
	if err != nil {
		t.Fatal(err)
	}

	ss := doc.Soundshape
	if ss.Attack != "2ms" {
		t.Errorf("attack = %q, want \"2ms\"", ss.Attack)
	}
	if ss.Release != "100ms" {
		t.Errorf("release = %q, want \"100ms\"", ss.Release)
	}
	if ss.Sustain != "-12.5 dB" {
		t.Errorf("sustain = %q, want \"-12.5 dB\"", ss.Sustain)
	}
}

func TestEncodePath(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"/lib/C3.wav", "/lib/C3.wav"},
		{"/my samples/C#3 take 2.wav", "/my%20samples/C%233%20take%202.wav"},
		{"plain.wav", "plain.wav"},
	}
	for _, tt := range tests {
		if got := EncodePath(tt.in); got != tt.want {
			t.Errorf("EncodePath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestAttrFormats(t *testing.T) {
	if got := MillisecondsAttr(0.5); got != "0.5ms" {
		t.Errorf("MillisecondsAttr(0.5) = %q", got)
	}
	if got := MillisecondsAttr(2); got != "2ms" {
		t.Errorf("MillisecondsAttr(2) = %q", got)
	}
	if got := DecibelAttr(0); got != "0 dB" {
		t.Errorf("DecibelAttr(0) = %q", got)
	}
}

func TestSourceInfoFallback(t *testing.T) {
	s := offline.NewSession(120)
	src := offline.NewUnknownMediaSource("/nowhere/x.wav")
	s.AddItem(offline.NewItem(0, 1, 0, "C3", src))

	ser := New()
	ser.Probe = nil // no header probe either

	info := ser.sourceInfo(s.Items()[0])
	if info.SampleRate != FallbackSampleRate || info.Frames != FallbackFrames {
		t.Errorf("fallback info = %+v", info)
	}
}

func TestBuildWritesPreset(t *testing.T) {
	dir := t.TempDir()
	opts := presetOptions()
	opts.Name = "My Piano"
	opts.OutDir = dir

	report, err := New().Build(threeSampleSession(), opts)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	want := filepath.Join(dir, "My_Piano"+FileExt)
	if report.PresetPath != want {
		t.Errorf("PresetPath = %q, want %q", report.PresetPath, want)
	}

	data, err := os.ReadFile(report.PresetPath)
	if err != nil {
		t.Fatalf("preset not written: %v", err)
	}
	text := string(data)
	for _, frag := range []string{"<program", "<wave", "<soundshape", "<region", `root="C3"`} {
		if !strings.Contains(text, frag) {
			t.Errorf("preset missing %q:\n%s", frag, text)
		}
	}
}

func TestBuildWriteFailureLeavesNoArtifact(t *testing.T) {
	opts := presetOptions()
	opts.OutDir = filepath.Join(t.TempDir(), "does", "not", "exist")

	if _, err := New().Build(threeSampleSession(), opts); err == nil {
		t.Fatal("Build() into a missing directory should fail")
	}
	if _, err := os.Stat(opts.OutDir); !os.IsNotExist(err) {
		t.Error("output directory should not have been created")
	}
}

func TestProbeWAV(t *testing.T) {
	path := writeFixtureWAV(t, 22050, 1, 16, 11025)

	info, err := ProbeWAV(path)
	if err != nil {
		t.Fatalf("ProbeWAV() error = %v", err)
	}
	if info.SampleRate != 22050 {
		t.Errorf("SampleRate = %d, want 22050", info.SampleRate)
	}
	if info.Frames != 11025 {
		t.Errorf("Frames = %d, want 11025", info.Frames)
	}
}

func TestProbeWAVInvalid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "not-a-wav.wav")
	if err := os.WriteFile(path, []byte("definitely not riff"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := ProbeWAV(path); err == nil {
		t.Error("ProbeWAV() on junk should fail")
	}
	if _, err := ProbeWAV(filepath.Join(dir, "missing.wav")); err == nil {
		t.Error("ProbeWAV() on a missing file should fail")
	}
}

// writeFixtureWAV renders a short sine into a temp WAV and returns its path
func writeFixtureWAV(t *testing.T, rate, channels, bitDepth, frames int) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "fixture.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	enc := wav.NewEncoder(f, rate, bitDepth, channels, 1)
	data := make([]int, frames*channels)
	for i := range data {
		data[i] = int(3000 * math.Sin(2*math.Pi*440*float64(i/channels)/float64(rate)))
	}
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: channels, SampleRate: rate},
		Data:           data,
		SourceBitDepth: bitDepth,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatal(err)
	}
	if err := enc.Close(); err != nil {
		t.Fatal(err)
	}
	return path
}
