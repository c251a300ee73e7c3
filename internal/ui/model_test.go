// ABOUTME: Tests for TUI model and state management
// ABOUTME: Tests status updates, key bindings, and rendering
package ui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func keyMsg(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestNewModel(t *testing.T) {
	model := NewModel(nil) // Controls are optional for testing

	if model.state != "uninitialized" {
		t.Errorf("expected initial state 'uninitialized', got '%s'", model.state)
	}

	if model.showDebug {
		t.Error("expected showDebug to be false initially")
	}

	if model.sessionID != "" {
		t.Errorf("expected no session initially, got '%s'", model.sessionID)
	}
}

func TestStatusMsgSession(t *testing.T) {
	model := NewModel(nil)

	model.applyStatus(StatusMsg{
		SessionID: "6f1c",
		Path:      "/tmp/tone.pcm",
		Backend:   "malgo",
		State:     "configured",
	})

	if model.sessionID != "6f1c" {
		t.Errorf("expected sessionID '6f1c', got '%s'", model.sessionID)
	}
	if model.path != "/tmp/tone.pcm" || model.backend != "malgo" {
		t.Errorf("unexpected source %q via %q", model.path, model.backend)
	}
	if model.state != "configured" {
		t.Errorf("expected state 'configured', got '%s'", model.state)
	}
}

func TestStatusMsgFormat(t *testing.T) {
	model := NewModel(nil)

	model.applyStatus(StatusMsg{
		SampleRate:    44100,
		Channels:      2,
		QuantumFrames: 441,
	})

	if model.sampleRate != 44100 {
		t.Errorf("expected sampleRate 44100, got %d", model.sampleRate)
	}
	if model.channels != 2 {
		t.Errorf("expected channels 2, got %d", model.channels)
	}
	if model.quantumFrames != 441 {
		t.Errorf("expected quantumFrames 441, got %d", model.quantumFrames)
	}
}

func TestStatusMsgStats(t *testing.T) {
	model := NewModel(nil)

	model.applyStatus(StatusMsg{
		Stats: &Stats{Callbacks: 100, Frames: 44100, Desyncs: 1, FillErrors: 2, Underruns: 3},
	})

	if model.callbacks != 100 || model.frames != 44100 {
		t.Errorf("unexpected counters: callbacks %d frames %d", model.callbacks, model.frames)
	}
	if model.desyncs != 1 || model.fillErrors != 2 || model.underruns != 3 {
		t.Errorf("unexpected faults: %d %d %d", model.desyncs, model.fillErrors, model.underruns)
	}
}

func TestStatusMsgClearsError(t *testing.T) {
	model := NewModel(nil)

	model.applyStatus(StatusMsg{State: "stopped", LastError: "device lost", LastCode: "stop-player"})
	if model.lastErr != "device lost" {
		t.Fatalf("expected error to be recorded, got '%s'", model.lastErr)
	}

	model.applyStatus(StatusMsg{State: "configured"})
	if model.lastErr != "" {
		t.Errorf("expected error cleared by a new state, got '%s'", model.lastErr)
	}
}

func TestStatusMsgRuntimeStats(t *testing.T) {
	model := NewModel(nil)

	model.applyStatus(StatusMsg{
		Goroutines: 42,
		MemAlloc:   1024 * 1024,
		MemSys:     2048 * 1024,
	})

	if model.goroutines != 42 {
		t.Errorf("expected goroutines 42, got %d", model.goroutines)
	}
	if model.memAlloc != 1024*1024 {
		t.Errorf("expected memAlloc %d, got %d", 1024*1024, model.memAlloc)
	}
}

func TestPartialUpdateKeepsFields(t *testing.T) {
	model := NewModel(nil)

	model.applyStatus(StatusMsg{State: "playing", Path: "a.pcm", Backend: "oto", SampleRate: 48000, Channels: 1})
	model.applyStatus(StatusMsg{Goroutines: 7})

	if model.state != "playing" || model.path != "a.pcm" || model.sampleRate != 48000 {
		t.Error("runtime-only update clobbered session fields")
	}
}

func TestKeyCommands(t *testing.T) {
	tests := []struct {
		key  string
		want Command
	}{
		{"i", CommandInit},
		{"s", CommandStart},
		{"t", CommandStop},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			controls := NewControls()
			model := NewModel(controls)

			_, cmd := model.Update(keyMsg(tt.key))
			if cmd != nil {
				t.Errorf("expected no tea command for %q", tt.key)
			}

			select {
			case got := <-controls.Commands:
				if got != tt.want {
					t.Errorf("expected %s, got %s", tt.want, got)
				}
			default:
				t.Fatalf("no command sent for key %q", tt.key)
			}
		})
	}
}

func TestKeyQuit(t *testing.T) {
	controls := NewControls()
	model := NewModel(controls)

	_, cmd := model.Update(keyMsg("q"))
	if cmd == nil {
		t.Fatal("expected quit command")
	}

	select {
	case <-controls.Quit:
	default:
		t.Error("quit not signalled on controls")
	}

	// a second quit must not block
	model.Update(keyMsg("q"))
}

func TestKeyWithoutControls(t *testing.T) {
	model := NewModel(nil)
	model.Update(keyMsg("s"))
}

func TestDebugToggle(t *testing.T) {
	model := NewModel(nil)

	updated, _ := model.Update(keyMsg("d"))
	if !updated.(Model).showDebug {
		t.Error("expected debug on after 'd'")
	}
	updated, _ = updated.Update(keyMsg("d"))
	if updated.(Model).showDebug {
		t.Error("expected debug off after second 'd'")
	}
}

func TestView(t *testing.T) {
	model := NewModel(nil)

	if model.View() != "Loading..." {
		t.Errorf("expected loading view before window size, got %q", model.View())
	}

	updated, _ := model.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	model = updated.(Model)
	model.applyStatus(StatusMsg{
		State:         "playing",
		Path:          "/music/tone.pcm",
		Backend:       "headless",
		SampleRate:    16000,
		Channels:      1,
		QuantumFrames: 160,
		Stats:         &Stats{Frames: 32000},
	})

	view := model.View()
	for _, want := range []string{"Audio Playout", "tone.pcm", "headless", "16000Hz Mono", "playing", "2.0s"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("unexpected %q", got)
	}
	if got := truncate("a-very-long-file-name.pcm", 10); got != "a-very-..." {
		t.Errorf("unexpected %q", got)
	}
}
