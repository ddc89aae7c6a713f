// Package main is the entry point for the wav2instrument CLI
package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/james-see/wav2instrument/pkg/api"
	"github.com/james-see/wav2instrument/pkg/assembler"
	"github.com/james-see/wav2instrument/pkg/host"
	"github.com/james-see/wav2instrument/pkg/host/offline"
	"github.com/james-see/wav2instrument/pkg/instrument"
	"github.com/james-see/wav2instrument/pkg/notename"
	"github.com/james-see/wav2instrument/pkg/preset"
	"github.com/james-see/wav2instrument/pkg/tui"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	instrumentName string
	baseNote       string
	noIncrement    bool
	obeyNoteOff    bool
	attackMs       float64
	decayMs        float64
	sustainDB      float64
	releaseMs      float64
	loopStartBeats float64
	loopLenBeats   float64
	loopBPM        float64
	tempo          float64
	outDir         string
	pluginName     string
	assumeYes      bool
	serverPort     int
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "wav2instrument",
	Short: "Turn recorded WAV samples into a playable sampler instrument",
	Long: `wav2instrument maps a folder of recorded samples onto the keyboard.

Each sample whose name contains a note name (C4, F#2, Bb3...) lands on
that key; unnamed samples fill in chromatically from a base note. Two
back-ends are available: one sampler plugin instance per note with
black-box-calibrated envelopes, or a single multi-region .txprog preset.

Examples:
  wav2instrument preset samples/*.wav -n "My Piano"
  wav2instrument instrument samples/*.wav --attack 5 --release 200
  wav2instrument tui
  wav2instrument serve --port 8080`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
}

var presetCmd = &cobra.Command{
	Use:   "preset <sample.wav>...",
	Short: "Build a multi-region .txprog preset from WAV samples",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runPreset,
}

var instrumentCmd = &cobra.Command{
	Use:   "instrument <sample.wav>...",
	Short: "Assemble per-note sampler instances with calibrated envelopes",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runInstrument,
}

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch interactive terminal UI",
	RunE:  runTUI,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server",
	RunE:  runServe,
}

func init() {
	// Shared build flags
	for _, cmd := range []*cobra.Command{presetCmd, instrumentCmd} {
		cmd.Flags().StringVarP(&instrumentName, "name", "n", "instrument", "Instrument name")
		cmd.Flags().StringVarP(&baseNote, "base-note", "b", "C4", "Base note for samples without a note name")
		cmd.Flags().BoolVar(&noIncrement, "no-increment", false, "Put every unnamed sample on the base note instead of counting up")
		cmd.Flags().Float64Var(&attackMs, "attack", 2, "Envelope attack (ms)")
		cmd.Flags().Float64Var(&decayMs, "decay", 500, "Envelope decay (ms)")
		cmd.Flags().Float64Var(&sustainDB, "sustain", 0, "Envelope sustain (dB)")
		cmd.Flags().Float64Var(&releaseMs, "release", 100, "Envelope release (ms)")
		cmd.Flags().Float64Var(&loopStartBeats, "loop-start", 0, "Loop start (beats)")
		cmd.Flags().Float64Var(&loopLenBeats, "loop-length", 0, "Loop length in beats (0 = no loop)")
		cmd.Flags().Float64Var(&loopBPM, "loop-bpm", 0, "Tempo for beat-to-time conversion (0 = project tempo)")
		cmd.Flags().Float64Var(&tempo, "tempo", 0, "Project tempo (0 = 120)")
		cmd.Flags().StringVarP(&outDir, "out", "o", ".", "Output directory")
		cmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Skip the confirmation prompt")
	}
	instrumentCmd.Flags().BoolVar(&obeyNoteOff, "obey-note-off", false, "Make each sampler instance obey note-off")
	instrumentCmd.Flags().StringVar(&pluginName, "plugin", offline.DefaultPlugin, "Sampler plugin name to instantiate")

	serveCmd.Flags().IntVarP(&serverPort, "port", "p", 8080, "Server port")

	rootCmd.AddCommand(presetCmd)
	rootCmd.AddCommand(instrumentCmd)
	rootCmd.AddCommand(tuiCmd)
	rootCmd.AddCommand(serveCmd)
}

func buildOptions(backend instrument.BackendKind) instrument.Options {
	opts := instrument.DefaultOptions()
	opts.Backend = backend
	opts.Name = instrumentName
	opts.NoIncrement = noIncrement
	opts.ObeyNoteOff = obeyNoteOff
	opts.OutDir = outDir
	if pluginName != "" {
		opts.Plugin = pluginName
	}
	if pitch, ok := notename.New().Parse(baseNote); ok {
		opts.BasePitch = pitch
	}
	opts.ADSR = instrument.ADSRSpec{
		AttackMs:  attackMs,
		DecayMs:   decayMs,
		SustainDB: sustainDB,
		ReleaseMs: releaseMs,
	}
	if loopLenBeats > 0 {
		opts.Loop = instrument.LoopSpec{
			Enabled:     true,
			BPM:         loopBPM,
			StartBeats:  loopStartBeats,
			LengthBeats: loopLenBeats,
		}
	}
	return opts
}

func newSession(paths []string) *offline.Session {
	return offline.NewSessionFromFiles(paths, tempo, func(path string) (int, int64, error) {
		info, err := preset.ProbeWAV(path)
		if err != nil {
			return 0, 0, err
		}
		return info.SampleRate, info.Frames, nil
	})
}

// stdinPrompter asks yes/no questions on the terminal
type stdinPrompter struct{}

func (stdinPrompter) Confirm(title, msg string) host.Answer {
	fmt.Printf("%s: %s [y/N] ", title, msg)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return host.AnswerCancel
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return host.AnswerYes
	default:
		return host.AnswerNo
	}
}

func runBuild(backend instrument.BackendKind, args []string) error {
	session := newSession(args)
	driver := instrument.New(assembler.New(), preset.New())
	if !assumeYes {
		driver.SetPrompter(stdinPrompter{})
	}

	report, err := driver.Run(session, buildOptions(backend))
	if err != nil {
		return err
	}

	fmt.Printf("Built %q covering %s – %s\n", instrumentName,
		notename.Name(report.PitchLow), notename.Name(report.PitchHigh))
	for _, m := range report.Mappings {
		loop := ""
		if m.LoopActive {
			loop = " (looped)"
		}
		fmt.Printf("  %-24s -> %s%s\n", m.Item, notename.Name(m.Pitch), loop)
	}
	if report.PresetPath != "" {
		fmt.Printf("Preset written to %s\n", report.PresetPath)
	}
	if report.TriggerMID != "" {
		fmt.Printf("Trigger MIDI written to %s\n", report.TriggerMID)
	}
	if backend == instrument.BackendInstances {
		path, err := writeReport(report)
		if err != nil {
			return fmt.Errorf("failed to write session report: %w", err)
		}
		fmt.Printf("Session report written to %s\n", path)
	}
	return nil
}

// writeReport saves a JSON summary of an instance build next to the
// trigger file.
func writeReport(report *instrument.Report) (string, error) {
	type mappingView struct {
		Sample       string             `json:"sample"`
		Note         string             `json:"note"`
		Pitch        int                `json:"pitch"`
		LoopActive   bool               `json:"loop_active"`
		WindowStart  float64            `json:"window_start"`
		WindowEnd    float64            `json:"window_end"`
		Calibrations map[string]float64 `json:"calibrations"`
	}
	view := struct {
		Backend  string        `json:"backend"`
		Low      string        `json:"pitch_low"`
		High     string        `json:"pitch_high"`
		Mappings []mappingView `json:"mappings"`
	}{
		Backend: string(report.Backend),
		Low:     notename.Name(report.PitchLow),
		High:    notename.Name(report.PitchHigh),
	}
	for _, m := range report.Mappings {
		cals := make(map[string]float64, len(m.Calibrations))
		for _, cal := range m.Calibrations {
			cals[cal.Param] = cal.Result.Value
		}
		view.Mappings = append(view.Mappings, mappingView{
			Sample:       m.Item,
			Note:         notename.Name(m.Pitch),
			Pitch:        m.Pitch,
			LoopActive:   m.LoopActive,
			WindowStart:  m.Window.Start,
			WindowEnd:    m.Window.End,
			Calibrations: cals,
		})
	}

	data, err := json.MarshalIndent(view, "", "  ")
	if err != nil {
		return "", err
	}
	path := filepath.Join(outDir, instrument.SanitizeName(instrumentName)+"-report.json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", err
	}
	return path, nil
}

func runPreset(cmd *cobra.Command, args []string) error {
	return runBuild(instrument.BackendPreset, args)
}

func runInstrument(cmd *cobra.Command, args []string) error {
	return runBuild(instrument.BackendInstances, args)
}

func runTUI(cmd *cobra.Command, args []string) error {
	return tui.Run()
}

func runServe(cmd *cobra.Command, args []string) error {
	fmt.Printf("Starting wav2instrument API server on port %d...\n", serverPort)
	fmt.Printf("Swagger docs available at http://localhost:%d/swagger/index.html\n", serverPort)
	return api.StartServer(serverPort)
}
