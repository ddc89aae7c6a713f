// Package tui provides a terminal user interface for wav2instrument
package tui

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/james-see/wav2instrument/pkg/assembler"
	"github.com/james-see/wav2instrument/pkg/host/offline"
	"github.com/james-see/wav2instrument/pkg/instrument"
	"github.com/james-see/wav2instrument/pkg/notename"
	"github.com/james-see/wav2instrument/pkg/preset"
)

// Acid-inspired color scheme (303/acid aesthetic)
var (
	// Primary colors - acid green and silver
	acidGreen  = lipgloss.Color("#39FF14")
	acidYellow = lipgloss.Color("#FFFF00")
	silverGray = lipgloss.Color("#C0C0C0")
	darkGray   = lipgloss.Color("#333333")

	// Styles
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(acidGreen).
			Background(darkGray).
			Padding(0, 2).
			MarginBottom(1)

	menuStyle = lipgloss.NewStyle().
			Foreground(silverGray).
			PaddingLeft(2)

	selectedStyle = lipgloss.NewStyle().
			Foreground(acidGreen).
			Bold(true).
			PaddingLeft(2)

	statusStyle = lipgloss.NewStyle().
			Foreground(acidYellow).
			PaddingTop(1)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF0000")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(acidGreen).
			Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666")).
			MarginTop(1)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(acidGreen).
			Padding(1, 2)
)

// State represents the current TUI state
type State int

const (
	StateMenu State = iota
	StateFilePicker
	StateForm
	StateConfirm
	StateBuilding
	StateResult
)

// MenuItem represents a back-end choice
type MenuItem struct {
	Title       string
	Description string
	Backend     instrument.BackendKind
}

var menuItems = []MenuItem{
	{Title: "Per-note instances", Description: "One sampler plugin instance per sample, calibrated envelopes", Backend: instrument.BackendInstances},
	{Title: "Preset document", Description: "Single multi-region .txprog program referencing the samples", Backend: instrument.BackendPreset},
	{Title: "Exit", Description: "Exit the application"},
}

// Form field order
const (
	fieldName = iota
	fieldBaseNote
	fieldAttack
	fieldDecay
	fieldSustain
	fieldRelease
	fieldLoopStart
	fieldLoopLength
	fieldOutDir
	fieldCount
)

var fieldLabels = [fieldCount]string{
	"Instrument name",
	"Base note (for unnamed samples)",
	"Attack (ms)",
	"Decay (ms)",
	"Sustain (dB)",
	"Release (ms)",
	"Loop start (beats)",
	"Loop length (beats, 0 = no loop)",
	"Output directory",
}

// Model represents the TUI model
type Model struct {
	state      State
	menuIndex  int
	filePicker filepicker.Model
	spinner    spinner.Model
	inputs     [fieldCount]textinput.Model
	focus      int
	files      []string
	backend    instrument.BackendKind
	report     *instrument.Report
	err        error
	width      int
	height     int
}

// buildDoneMsg signals build completion
type buildDoneMsg struct {
	report *instrument.Report
	err    error
}

// New creates a new TUI model
func New() Model {
	fp := filepicker.New()
	fp.AllowedTypes = []string{".wav"}
	fp.CurrentDirectory, _ = os.Getwd()

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(acidGreen)

	defaults := [fieldCount]string{
		"instrument", "C4", "2", "500", "0", "100", "0", "0", ".",
	}
	var inputs [fieldCount]textinput.Model
	for i := range inputs {
		ti := textinput.New()
		ti.Placeholder = defaults[i]
		ti.CharLimit = 64
		inputs[i] = ti
	}
	inputs[0].Focus()

	return Model{
		state:      StateMenu,
		filePicker: fp,
		spinner:    s,
		inputs:     inputs,
	}
}

// Init initializes the TUI model
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick)
}

// Update handles TUI updates
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	// The file picker needs to receive all messages while active
	if m.state == StateFilePicker {
		if keyMsg, ok := msg.(tea.KeyMsg); ok {
			switch keyMsg.String() {
			case "esc":
				m.state = StateMenu
				m.files = nil
				return m, nil
			case "c":
				if len(m.files) > 0 {
					m.state = StateForm
					return m, textinput.Blink
				}
				return m, nil
			case "q", "ctrl+c":
				return m, tea.Quit
			}
		}

		var cmd tea.Cmd
		m.filePicker, cmd = m.filePicker.Update(msg)

		// Each selected file is appended to the take list
		if didSelect, path := m.filePicker.DidSelectFile(msg); didSelect {
			m.files = append(m.files, path)
			return m, cmd
		}

		return m, cmd
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.filePicker.SetHeight(msg.Height - 12)
		return m, nil

	case tea.KeyMsg:
		switch m.state {
		case StateMenu:
			return m.updateMenu(msg)
		case StateForm:
			return m.updateForm(msg)
		case StateConfirm:
			return m.updateConfirm(msg)
		case StateResult:
			return m.updateResult(msg)
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case buildDoneMsg:
		m.state = StateResult
		m.report = msg.report
		m.err = msg.err
		return m, nil
	}

	return m, nil
}

func (m Model) updateMenu(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if m.menuIndex > 0 {
			m.menuIndex--
		}
	case "down", "j":
		if m.menuIndex < len(menuItems)-1 {
			m.menuIndex++
		}
	case "enter":
		if m.menuIndex == len(menuItems)-1 {
			return m, tea.Quit
		}
		m.backend = menuItems[m.menuIndex].Backend
		m.state = StateFilePicker
		return m, m.filePicker.Init()
	case "q", "ctrl+c":
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) updateForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.state = StateFilePicker
		return m, nil
	case "ctrl+c":
		return m, tea.Quit
	case "enter":
		if m.focus == fieldCount-1 {
			m.state = StateConfirm
			return m, nil
		}
		fallthrough
	case "tab", "down":
		m.inputs[m.focus].Blur()
		m.focus = (m.focus + 1) % fieldCount
		return m, m.inputs[m.focus].Focus()
	case "shift+tab", "up":
		m.inputs[m.focus].Blur()
		m.focus = (m.focus + fieldCount - 1) % fieldCount
		return m, m.inputs[m.focus].Focus()
	}

	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd
}

func (m Model) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "enter":
		m.state = StateBuilding
		return m, tea.Batch(m.spinner.Tick, m.performBuild())
	case "n", "esc":
		m.state = StateForm
		return m, textinput.Blink
	case "q", "ctrl+c":
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) updateResult(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter", "esc":
		m.state = StateMenu
		m.err = nil
		m.report = nil
		m.files = nil
		return m, nil
	case "q", "ctrl+c":
		return m, tea.Quit
	}
	return m, nil
}

// fieldValue returns the entered text or the field's placeholder default
func (m Model) fieldValue(i int) string {
	if v := strings.TrimSpace(m.inputs[i].Value()); v != "" {
		return v
	}
	return m.inputs[i].Placeholder
}

func (m Model) fieldFloat(i int) float64 {
	v, err := strconv.ParseFloat(m.fieldValue(i), 64)
	if err != nil {
		v, _ = strconv.ParseFloat(m.inputs[i].Placeholder, 64)
	}
	return v
}

// options collects the form into build options
func (m Model) options() instrument.Options {
	opts := instrument.DefaultOptions()
	opts.Backend = m.backend
	opts.Name = m.fieldValue(fieldName)
	opts.OutDir = m.fieldValue(fieldOutDir)
	if pitch, ok := notename.New().Parse(m.fieldValue(fieldBaseNote)); ok {
		opts.BasePitch = pitch
	}
	opts.ADSR = instrument.ADSRSpec{
		AttackMs:  m.fieldFloat(fieldAttack),
		DecayMs:   m.fieldFloat(fieldDecay),
		SustainDB: m.fieldFloat(fieldSustain),
		ReleaseMs: m.fieldFloat(fieldRelease),
	}
	if length := m.fieldFloat(fieldLoopLength); length > 0 {
		opts.Loop = instrument.LoopSpec{
			Enabled:     true,
			StartBeats:  m.fieldFloat(fieldLoopStart),
			LengthBeats: length,
		}
	}
	return opts
}

func (m Model) performBuild() tea.Cmd {
	files := m.files
	opts := m.options()
	return func() tea.Msg {
		session := offline.NewSessionFromFiles(files, 0, func(path string) (int, int64, error) {
			info, err := preset.ProbeWAV(path)
			if err != nil {
				return 0, 0, err
			}
			return info.SampleRate, info.Frames, nil
		})

		driver := instrument.New(assembler.New(), preset.New())
		report, err := driver.Run(session, opts)
		return buildDoneMsg{report: report, err: err}
	}
}

// View renders the TUI
func (m Model) View() string {
	var s strings.Builder

	s.WriteString(asciiLogo())
	s.WriteString("\n")

	switch m.state {
	case StateMenu:
		s.WriteString(m.viewMenu())
	case StateFilePicker:
		s.WriteString(m.viewFilePicker())
	case StateForm:
		s.WriteString(m.viewForm())
	case StateConfirm:
		s.WriteString(m.viewConfirm())
	case StateBuilding:
		s.WriteString(m.viewBuilding())
	case StateResult:
		s.WriteString(m.viewResult())
	}

	s.WriteString("\n")
	s.WriteString(helpStyle.Render("↑/↓: navigate • enter: select • q: quit"))

	return s.String()
}

func (m Model) viewMenu() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render(" SELECT BACK-END "))
	s.WriteString("\n\n")

	for i, item := range menuItems {
		if i == m.menuIndex {
			s.WriteString(selectedStyle.Render(fmt.Sprintf("▸ %s", item.Title)))
			s.WriteString("\n")
			s.WriteString(lipgloss.NewStyle().Foreground(acidYellow).PaddingLeft(4).Render(item.Description))
		} else {
			s.WriteString(menuStyle.Render(fmt.Sprintf("  %s", item.Title)))
		}
		s.WriteString("\n")
	}

	return boxStyle.Render(s.String())
}

func (m Model) viewFilePicker() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render(" SELECT WAV SAMPLES "))
	s.WriteString("\n\n")
	s.WriteString(m.filePicker.View())
	s.WriteString("\n")
	if len(m.files) > 0 {
		names := make([]string, len(m.files))
		for i, f := range m.files {
			names[i] = filepath.Base(f)
		}
		s.WriteString(statusStyle.Render(fmt.Sprintf("  %d selected: %s", len(m.files), strings.Join(names, ", "))))
		s.WriteString("\n")
	}
	s.WriteString(helpStyle.Render("enter: add file • c: continue • esc: back to menu"))

	return s.String()
}

func (m Model) viewForm() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render(" INSTRUMENT OPTIONS "))
	s.WriteString("\n\n")

	for i := range m.inputs {
		label := fieldLabels[i]
		if i == m.focus {
			s.WriteString(selectedStyle.Render(fmt.Sprintf("▸ %-34s", label)))
		} else {
			s.WriteString(menuStyle.Render(fmt.Sprintf("  %-34s", label)))
		}
		s.WriteString(m.inputs[i].View())
		s.WriteString("\n")
	}

	s.WriteString("\n")
	s.WriteString(helpStyle.Render("tab: next field • enter on last field: continue • esc: back"))

	return boxStyle.Render(s.String())
}

func (m Model) viewConfirm() string {
	var s strings.Builder

	opts := m.options()
	s.WriteString(titleStyle.Render(" CONFIRM "))
	s.WriteString("\n\n")
	s.WriteString(fmt.Sprintf("Build %q from %d sample(s)?\n", opts.Name, len(m.files)))
	s.WriteString(statusStyle.Render(fmt.Sprintf("  back-end: %s", opts.Backend)))
	s.WriteString("\n\n")
	s.WriteString(helpStyle.Render("y: build • n: back to options"))

	return boxStyle.Render(s.String())
}

func (m Model) viewBuilding() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render(" BUILDING "))
	s.WriteString("\n\n")
	s.WriteString(fmt.Sprintf("%s Calibrating and assembling %d sample(s)...\n", m.spinner.View(), len(m.files)))

	return boxStyle.Render(s.String())
}

func (m Model) viewResult() string {
	var s strings.Builder

	if m.err != nil {
		s.WriteString(titleStyle.Render(" ERROR "))
		s.WriteString("\n\n")
		s.WriteString(errorStyle.Render(fmt.Sprintf("✗ Build failed: %s", m.err.Error())))
	} else {
		s.WriteString(titleStyle.Render(" SUCCESS "))
		s.WriteString("\n\n")
		s.WriteString(successStyle.Render("✓ Instrument built!"))
		s.WriteString("\n\n")
		s.WriteString(fmt.Sprintf("Key range: %s – %s\n",
			notename.Name(m.report.PitchLow), notename.Name(m.report.PitchHigh)))
		if m.report.PresetPath != "" {
			s.WriteString(fmt.Sprintf("Preset:    %s\n", m.report.PresetPath))
		}
		if m.report.TriggerMID != "" {
			s.WriteString(fmt.Sprintf("Triggers:  %s\n", m.report.TriggerMID))
		}
		if len(m.report.Mappings) > 0 {
			s.WriteString(fmt.Sprintf("Samples:   %d", len(m.report.Mappings)))
		}
	}

	s.WriteString("\n\n")
	s.WriteString(helpStyle.Render("Press enter to continue"))

	return boxStyle.Render(s.String())
}

func asciiLogo() string {
	logo := `
 __        ___ _     _______ ___ _   _ ____ _____ ____  _   _ __  __ _____ _   _ _____
 \ \      / / \ \   / /___ \|_ _| \ | / ___|_   _|  _ \| | | |  \/  | ____| \ | |_   _|
  \ \ /\ / / _ \ \ / /  __) || ||  \| \___ \ | | | |_) | | | | |\/| |  _| |  \| | | |
   \ V  V / ___ \ V /  / __/ | || |\  |___) || | |  _ <| |_| | |  | | |___| |\  | | |
    \_/\_/_/   \_\_/  |_____|___|_| \_|____/ |_| |_| \_\\___/|_|  |_|_____|_| \_| |_|
`
	return lipgloss.NewStyle().Foreground(acidGreen).Render(logo)
}

// Run starts the TUI application
func Run() error {
	p := tea.NewProgram(New(), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
