// ABOUTME: TUI initialization and control
// ABOUTME: Wraps bubbletea program and the command channels for playout control
package ui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// Command is a playout command issued from the keyboard
type Command int

const (
	CommandInit Command = iota
	CommandStart
	CommandStop
)

func (c Command) String() string {
	switch c {
	case CommandInit:
		return "init"
	case CommandStart:
		return "start"
	case CommandStop:
		return "stop"
	default:
		return "unknown"
	}
}

// QuitMsg signals that the user asked to quit
type QuitMsg struct{}

// Controls holds channels for command communication
type Controls struct {
	Commands chan Command
	Quit     chan QuitMsg
}

// NewControls creates a new command handler
func NewControls() *Controls {
	return &Controls{
		Commands: make(chan Command, 10),
		Quit:     make(chan QuitMsg, 1),
	}
}

// NewModel creates a new TUI model
func NewModel(controls *Controls) Model {
	return Model{
		state:    "uninitialized",
		controls: controls,
	}
}

// Run creates the TUI program
func Run(controls *Controls) (*tea.Program, error) {
	p := tea.NewProgram(NewModel(controls), tea.WithAltScreen())
	return p, nil
}
