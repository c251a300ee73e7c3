// ABOUTME: Entry point for the audio playout player
// ABOUTME: Parses CLI flags and drives a playout session from the TUI or the command line
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/soundvision/audio-playout/internal/ui"
	"github.com/soundvision/audio-playout/internal/version"
	"github.com/soundvision/audio-playout/pkg/audio/output"
	"github.com/soundvision/audio-playout/pkg/playout"
	"golang.org/x/term"
)

var (
	file      = flag.String("file", "", "Raw 16-bit PCM (or 16-bit WAV) file to play")
	backend   = flag.String("backend", string(output.KindMalgo), "Audio backend: malgo, oto, portaudio, headless")
	rate      = flag.Int("rate", 44100, "Sample rate in Hz")
	channels  = flag.Int("channels", 2, "Channel count (1 or 2)")
	logFile   = flag.String("log-file", "audio-playout.log", "Log file path")
	noTUI     = flag.Bool("no-tui", false, "Disable TUI, play once and exit")
	renderOut = flag.String("render-out", "", "Headless backend: write rendered PCM to this file")
)

func main() {
	flag.Parse()
	os.Exit(run())
}

// run returns the process exit code
func run() int {
	if *file == "" {
		fmt.Fprintln(os.Stderr, "usage: audio-playout -file <input.pcm> [flags]")
		flag.PrintDefaults()
		return 2
	}

	kind, err := output.ParseKind(*backend)
	if err != nil {
		log.Fatalf("%v", err)
	}

	// The TUI needs a terminal
	useTUI := !*noTUI && term.IsTerminal(int(os.Stdout.Fd()))

	// Set up logging
	f, err := os.OpenFile(*logFile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		log.Fatalf("error opening log file: %v", err)
	}
	defer func() { _ = f.Close() }()

	if useTUI {
		// TUI mode: log only to file
		log.SetOutput(f)
	} else {
		// Streaming logs mode: log to both stdout and file
		log.SetOutput(io.MultiWriter(os.Stdout, f))
	}

	log.Printf("Starting %s (%s backend)", version.Banner(), kind)

	newBackend := output.New
	if *renderOut != "" {
		if kind != output.KindHeadless {
			log.Fatalf("-render-out requires -backend headless")
		}
		sink, err := os.Create(*renderOut)
		if err != nil {
			log.Fatalf("error creating render output: %v", err)
		}
		defer func() { _ = sink.Close() }()
		newBackend = func(output.Kind) (output.Backend, error) {
			return output.NewHeadless(output.HeadlessConfig{Sink: sink}), nil
		}
	}

	// TUI setup
	var tuiProg *tea.Program
	var controls *ui.Controls

	if useTUI {
		controls = ui.NewControls()
		tuiProg, err = ui.Run(controls)
		if err != nil {
			log.Fatalf("Failed to start TUI: %v", err)
		}
		go func() {
			if _, err := tuiProg.Run(); err != nil {
				log.Printf("TUI error: %v", err)
			}
		}()
	}

	// Helper to update TUI
	updateTUI := func(msg ui.StatusMsg) {
		if tuiProg != nil {
			tuiProg.Send(msg)
		}
	}

	ctrl := playout.NewController(playout.Config{
		NewBackend: newBackend,
		OnStateChange: func(st playout.Status) {
			updateTUI(statusMsg(st))
		},
		OnError: func(err error) {
			log.Printf("Playout error: %v", err)
		},
	})

	// Handle shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	if !useTUI {
		return playOnce(ctrl, kind, sigChan)
	}

	if _, err := ctrl.SetSource(*file, kind); err != nil {
		log.Fatalf("Failed to create session: %v", err)
	}
	updateTUI(statusMsg(ctrl.Status()))

	done := make(chan struct{})
	go handleCommands(ctrl, kind, controls, done)
	go statsUpdateLoop(ctrl, updateTUI, done)

	// Wait for quit signal from TUI or OS
	select {
	case <-controls.Quit:
		log.Printf("Received quit signal from TUI")
	case <-sigChan:
		log.Printf("Shutdown signal received")
		tuiProg.Quit()
	}
	close(done)

	if err := ctrl.Stop(); err != nil && !errors.Is(err, playout.ErrState) {
		log.Printf("Error stopping playout: %v", err)
	}
	log.Printf("Player stopped")
	return 0
}

// playOnce runs init, start, wait and stop without the TUI and returns the
// process exit code
func playOnce(ctrl *playout.Controller, kind output.Kind, sigChan <-chan os.Signal) int {
	s, err := ctrl.Configure(*file, kind, *rate, *channels)
	if err != nil {
		log.Printf("Init failed (%s): %v", playout.Code(err), err)
		return 1
	}
	if err := ctrl.Start(); err != nil {
		log.Printf("Start failed (%s): %v", playout.Code(err), err)
		_ = ctrl.Stop()
		return 1
	}

	select {
	case <-s.Engine().Done():
		log.Printf("Playout finished: %v", s.Engine().Err())
	case <-sigChan:
		log.Printf("Shutdown signal received")
	}

	cause := s.Engine().Err()
	stats := s.Engine().Stats()
	if err := ctrl.Stop(); err != nil {
		log.Printf("Stop failed (%s): %v", playout.Code(err), err)
		return 1
	}
	log.Printf("Rendered %d frames in %d callbacks (desyncs %d, fill errors %d, underruns %d)",
		stats.Frames, stats.Callbacks, stats.Desyncs, stats.FillErrors, stats.Underruns)

	if cause != nil && !errors.Is(cause, io.EOF) {
		return 1
	}
	return 0
}

// handleCommands processes init/start/stop commands from the TUI
func handleCommands(ctrl *playout.Controller, kind output.Kind, controls *ui.Controls, done <-chan struct{}) {
	for {
		select {
		case cmd := <-controls.Commands:
			log.Printf("Command: %s", cmd)
			var err error
			switch cmd {
			case ui.CommandInit:
				if ctrl.Session() == nil {
					if _, err = ctrl.SetSource(*file, kind); err != nil {
						break
					}
				}
				err = ctrl.Init(*rate, *channels)
			case ui.CommandStart:
				err = ctrl.Start()
			case ui.CommandStop:
				err = ctrl.Stop()
			}
			if err != nil {
				log.Printf("Command %s failed (%s): %v", cmd, playout.Code(err), err)
			}
		case <-done:
			return
		}
	}
}

// statsUpdateLoop periodically updates TUI with playout statistics
func statsUpdateLoop(ctrl *playout.Controller, updateTUI func(ui.StatusMsg), done <-chan struct{}) {
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	// Use a slower ticker for expensive runtime stats to avoid GC pauses
	runtimeStatsTicker := time.NewTicker(2 * time.Second)
	defer runtimeStatsTicker.Stop()

	for {
		select {
		case <-done:
			return
		case <-runtimeStatsTicker.C:
			var m runtime.MemStats
			runtime.ReadMemStats(&m)
			updateTUI(ui.StatusMsg{
				Goroutines: runtime.NumGoroutine(),
				MemAlloc:   m.Alloc,
				MemSys:     m.Sys,
			})
		case <-ticker.C:
			updateTUI(statusMsg(ctrl.Status()))
		}
	}
}

// statusMsg converts a controller snapshot for the TUI
func statusMsg(st playout.Status) ui.StatusMsg {
	msg := ui.StatusMsg{
		SessionID: st.SessionID,
		Path:      st.Path,
		Backend:   string(st.Backend),
		State:     st.State.String(),
		Stats: &ui.Stats{
			Callbacks:  st.Stats.Callbacks,
			Frames:     st.Stats.Frames,
			Desyncs:    st.Stats.Desyncs,
			FillErrors: st.Stats.FillErrors,
			Underruns:  st.Stats.Underruns,
		},
	}
	if st.Format.SampleRate > 0 {
		msg.SampleRate = st.Format.SampleRate
		msg.Channels = st.Format.Channels
		msg.QuantumFrames = st.Format.QuantumFrames()
	}
	if st.LastError != nil {
		msg.LastError = st.LastError.Error()
		msg.LastCode = playout.Code(st.LastError).String()
	}
	return msg
}
