// ABOUTME: Bubbletea model for playout TUI
// ABOUTME: Defines application state, key bindings and lipgloss rendering
package ui

import (
	"fmt"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/soundvision/audio-playout/internal/version"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	boxStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(0, 1).
			Width(58)
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(10)
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	helpStyle  = lipgloss.NewStyle().Faint(true)

	stateColors = map[string]lipgloss.Color{
		"uninitialized": lipgloss.Color("245"),
		"configured":    lipgloss.Color("214"),
		"playing":       lipgloss.Color("42"),
		"stopped":       lipgloss.Color("203"),
	}
)

// Model represents the TUI state
type Model struct {
	// Session
	sessionID string
	path      string
	backend   string

	// Format
	sampleRate    int
	channels      int
	quantumFrames int

	// Playback
	state    string
	lastErr  string
	lastCode string

	// Stats
	callbacks  uint64
	frames     uint64
	desyncs    uint64
	fillErrors uint64
	underruns  uint64

	// Runtime
	goroutines int
	memAlloc   uint64
	memSys     uint64

	// Debug
	showDebug bool

	controls *Controls

	// Dimensions
	width  int
	height int
}

// StatusMsg updates TUI state
type StatusMsg struct {
	SessionID     string
	Path          string
	Backend       string
	SampleRate    int
	Channels      int
	QuantumFrames int
	State         string
	LastError     string
	LastCode      string

	// Stats is nil when the message carries no counters
	Stats *Stats

	Goroutines int
	MemAlloc   uint64
	MemSys     uint64
}

// Stats mirrors the engine counters
type Stats struct {
	Callbacks  uint64
	Frames     uint64
	Desyncs    uint64
	FillErrors uint64
	Underruns  uint64
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case StatusMsg:
		m.applyStatus(msg)
	}

	return m, nil
}

// View renders the TUI
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	sections := []string{
		titleStyle.Render(version.Title()),
		m.renderSession(),
		m.renderStats(),
	}
	if m.showDebug {
		sections = append(sections, m.renderDebug())
	}
	sections = append(sections, helpStyle.Render("i:Init  s:Start  t:Stop  d:Debug  q:Quit"))

	return boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, sections...)) + "\n"
}

// renderSession renders the session, format and state
func (m Model) renderSession() string {
	var b strings.Builder

	source := "(none)"
	if m.path != "" {
		source = truncate(filepath.Base(m.path), 44)
	}
	b.WriteString(row("Source", source))
	b.WriteString(row("Backend", orDash(m.backend)))
	if m.sessionID != "" {
		b.WriteString(row("Session", truncate(m.sessionID, 44)))
	}

	format := "-"
	if m.sampleRate > 0 {
		format = fmt.Sprintf("%dHz %s 16-bit, quantum %d frames",
			m.sampleRate, channelName(m.channels), m.quantumFrames)
	}
	b.WriteString(row("Format", format))

	color, ok := stateColors[m.state]
	if !ok {
		color = lipgloss.Color("245")
	}
	b.WriteString(row("State", lipgloss.NewStyle().Bold(true).Foreground(color).Render(m.state)))

	if m.lastErr != "" {
		b.WriteString(row("Error", errorStyle.Render(fmt.Sprintf("[%s] %s", m.lastCode, truncate(m.lastErr, 36)))))
	}
	return b.String()
}

// renderStats renders playout counters
func (m Model) renderStats() string {
	var b strings.Builder
	b.WriteString(row("Callbacks", fmt.Sprintf("%d", m.callbacks)))
	b.WriteString(row("Frames", fmt.Sprintf("%d (%s)", m.frames, m.played())))
	b.WriteString(row("Faults", fmt.Sprintf("desync %d  fill %d  underrun %d", m.desyncs, m.fillErrors, m.underruns)))
	return b.String()
}

// renderDebug renders runtime information
func (m Model) renderDebug() string {
	return row("Runtime", fmt.Sprintf("goroutines %d  alloc %.1fMB  sys %.1fMB",
		m.goroutines, float64(m.memAlloc)/(1<<20), float64(m.memSys)/(1<<20)))
}

// played formats the rendered duration
func (m Model) played() string {
	if m.sampleRate == 0 {
		return "0.0s"
	}
	return fmt.Sprintf("%.1fs", float64(m.frames)/float64(m.sampleRate))
}

// handleKey handles keyboard input
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		if m.controls != nil {
			select {
			case m.controls.Quit <- QuitMsg{}:
			default:
			}
		}
		return m, tea.Quit
	case "i":
		m.send(CommandInit)
	case "s":
		m.send(CommandStart)
	case "t":
		m.send(CommandStop)
	case "d":
		m.showDebug = !m.showDebug
	}

	return m, nil
}

// send forwards a command without blocking the UI
func (m Model) send(cmd Command) {
	if m.controls == nil {
		return
	}
	select {
	case m.controls.Commands <- cmd:
	default:
	}
}

// applyStatus updates model from status message
func (m *Model) applyStatus(msg StatusMsg) {
	if msg.State != "" {
		m.state = msg.State
		m.sessionID = msg.SessionID
		m.lastErr = msg.LastError
		m.lastCode = msg.LastCode
	}
	if msg.Path != "" {
		m.path = msg.Path
		m.backend = msg.Backend
	}
	if msg.SampleRate != 0 {
		m.sampleRate = msg.SampleRate
		m.channels = msg.Channels
		m.quantumFrames = msg.QuantumFrames
	}
	if msg.Stats != nil {
		m.callbacks = msg.Stats.Callbacks
		m.frames = msg.Stats.Frames
		m.desyncs = msg.Stats.Desyncs
		m.fillErrors = msg.Stats.FillErrors
		m.underruns = msg.Stats.Underruns
	}
	if msg.Goroutines != 0 {
		m.goroutines = msg.Goroutines
		m.memAlloc = msg.MemAlloc
		m.memSys = msg.MemSys
	}
}

// Utility functions
func row(label, value string) string {
	return labelStyle.Render(label) + value + "\n"
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func truncate(s string, length int) string {
	if len(s) <= length {
		return s
	}
	return s[:length-3] + "..."
}

func channelName(channels int) string {
	if channels == 1 {
		return "Mono"
	}
	return "Stereo"
}
