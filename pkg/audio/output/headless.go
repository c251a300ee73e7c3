// ABOUTME: Headless audio output with no device behind it
// ABOUTME: A ticker-paced goroutine pulls quanta and optionally writes them to a sink
package output

import (
	"fmt"
	"io"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/soundvision/audio-playout/pkg/audio"
)

// HeadlessConfig controls the headless renderer
type HeadlessConfig struct {
	// Sink receives the rendered PCM as 16-bit little-endian bytes.
	// Defaults to io.Discard.
	Sink io.Writer

	// Freewheel renders quanta back to back instead of at the quantum period
	Freewheel bool
}

// Headless output that renders on its own goroutine
type Headless struct {
	stream

	hcfg   HeadlessConfig
	mu     sync.Mutex
	opened bool
	closed atomic.Bool

	buf    []int16
	bytes  []byte
	quanta atomic.Uint64

	quit   chan struct{}
	exited chan struct{}
}

// NewHeadless creates a headless output
func NewHeadless(cfg HeadlessConfig) *Headless {
	if cfg.Sink == nil {
		cfg.Sink = io.Discard
	}
	return &Headless{hcfg: cfg}
}

// Name returns the backend identifier
func (h *Headless) Name() string {
	return string(KindHeadless)
}

// Open preallocates the render buffers
func (h *Headless) Open(cfg Config, cb Callbacks) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed.Load() {
		return ErrClosed
	}
	if h.opened {
		return ErrAlreadyOpen
	}

	h.setup(h.Name(), cfg, cb)
	h.buf = make([]int16, cfg.FramesPerCallback*cfg.Channels)
	h.bytes = make([]byte, len(h.buf)*audio.BytesPerSample)
	h.opened = true
	h.watch(h.halt, nil, 0)

	log.Printf("Audio output opened: %dHz, %d channels, %d frames/callback (headless)",
		cfg.SampleRate, cfg.Channels, cfg.FramesPerCallback)
	return nil
}

// RequestStart launches the render goroutine. The stream reports Started
// once the goroutine is running.
func (h *Headless) RequestStart() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.opened || h.closed.Load() {
		return ErrNotOpen
	}
	if h.quit != nil {
		return nil
	}

	h.stopping.Store(false)
	h.setState(StateStarting)
	h.quit = make(chan struct{})
	h.exited = make(chan struct{})
	go h.run(h.quit, h.exited)
	return nil
}

func (h *Headless) run(quit <-chan struct{}, exited chan<- struct{}) {
	defer close(exited)

	var tick <-chan time.Time
	if !h.hcfg.Freewheel {
		period := time.Duration(h.cfg.FramesPerCallback) * time.Second / time.Duration(h.cfg.SampleRate)
		ticker := time.NewTicker(period)
		defer ticker.Stop()
		tick = ticker.C
	}

	h.setState(StateStarted)
	for {
		if tick != nil {
			select {
			case <-quit:
				return
			case <-tick:
			}
		} else {
			select {
			case <-quit:
				return
			default:
			}
		}

		res := h.render(h.buf)
		n := audio.EncodeInt16LE(h.bytes, h.buf)
		if _, err := h.hcfg.Sink.Write(h.bytes[:n]); err != nil {
			h.setState(StateDisconnected)
			h.notify(fmt.Errorf("headless sink: %w", err))
			return
		}
		h.quanta.Add(1)

		if res == Stop {
			h.setState(StateStopped)
			return
		}
	}
}

// Quanta returns the number of quanta rendered so far
func (h *Headless) Quanta() uint64 {
	return h.quanta.Load()
}

// RequestStop stops the render goroutine and waits for it to exit
func (h *Headless) RequestStop() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.opened {
		return ErrNotOpen
	}
	h.stopLocked()
	return nil
}

func (h *Headless) halt() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.stopLocked()
	return nil
}

func (h *Headless) stopLocked() {
	h.stopping.Store(true)
	if h.quit == nil {
		return
	}
	close(h.quit)
	<-h.exited
	h.quit = nil
	h.exited = nil
	if h.loadState() != StateDisconnected {
		h.setState(StateStopped)
	}
}

// State returns the renderer state
func (h *Headless) State() StreamState {
	return h.loadState()
}

// Close unregisters the callbacks and stops rendering
func (h *Headless) Close() error {
	if !h.closed.CompareAndSwap(false, true) {
		return nil
	}

	h.detach()

	h.mu.Lock()
	defer h.mu.Unlock()

	h.stopLocked()
	h.setState(StateClosed)
	return nil
}
