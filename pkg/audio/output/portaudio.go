//go:build portaudio

// ABOUTME: PortAudio output implementation
// ABOUTME: Callback stream on the default output device with low-latency parameters
package output

import (
	"fmt"
	"log"
	"sync"
	"sync/atomic"

	"github.com/gordonklaus/portaudio"
)

// PortAudio output implementation
type PortAudio struct {
	stream

	mu     sync.Mutex
	pa     *portaudio.Stream
	closed atomic.Bool
}

// NewPortAudio creates a new PortAudio output
func NewPortAudio() Backend {
	return &PortAudio{}
}

// Name returns the backend identifier
func (p *PortAudio) Name() string {
	return string(KindPortAudio)
}

// Open initializes PortAudio and opens a callback stream
func (p *PortAudio) Open(cfg Config, cb Callbacks) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed.Load() {
		return ErrClosed
	}
	if p.pa != nil {
		return ErrAlreadyOpen
	}

	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize portaudio: %w", err)
	}

	dev, err := portaudio.DefaultOutputDevice()
	if err != nil {
		portaudio.Terminate()
		return fmt.Errorf("failed to find output device: %w", err)
	}

	params := portaudio.LowLatencyParameters(nil, dev)
	if cfg.Performance != PerformanceLowLatency {
		params = portaudio.HighLatencyParameters(nil, dev)
	}
	params.Output.Channels = cfg.Channels
	params.SampleRate = float64(cfg.SampleRate)
	params.FramesPerBuffer = cfg.FramesPerCallback

	p.setup(p.Name(), cfg, cb)

	s, err := portaudio.OpenStream(params, p.onAudio)
	if err != nil {
		p.cb.Store(nil)
		portaudio.Terminate()
		return fmt.Errorf("failed to open stream: %w", err)
	}

	p.pa = s
	p.watch(p.halt, nil, 0)

	log.Printf("Audio output opened: %dHz, %d channels, %d frames/callback (portaudio, %s)",
		cfg.SampleRate, cfg.Channels, cfg.FramesPerCallback, dev.Name)
	return nil
}

func (p *PortAudio) onAudio(out []int16, _ portaudio.StreamCallbackTimeInfo, flags portaudio.StreamCallbackFlags) {
	if flags&portaudio.OutputUnderflow != 0 {
		p.underruns.Add(1)
	}
	p.render(out)
}

// RequestStart starts the stream
func (p *PortAudio) RequestStart() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.pa == nil {
		return ErrNotOpen
	}
	p.stopping.Store(false)
	p.setState(StateStarting)
	if err := p.pa.Start(); err != nil {
		p.setState(StateStopped)
		return fmt.Errorf("failed to start stream: %w", err)
	}
	p.setState(StateStarted)
	return nil
}

// RequestStop stops the stream
func (p *PortAudio) RequestStop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.pa == nil {
		return ErrNotOpen
	}
	return p.stopLocked()
}

func (p *PortAudio) halt() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.pa == nil {
		return nil
	}
	return p.stopLocked()
}

func (p *PortAudio) stopLocked() error {
	if p.loadState() != StateStarted {
		return nil
	}
	p.stopping.Store(true)
	p.setState(StateStopping)
	if err := p.pa.Stop(); err != nil {
		return fmt.Errorf("failed to stop stream: %w", err)
	}
	p.setState(StateStopped)
	return nil
}

// State returns the locally tracked stream state
func (p *PortAudio) State() StreamState {
	return p.loadState()
}

// Close unregisters the callbacks, closes the stream and terminates PortAudio
func (p *PortAudio) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}

	p.detach()

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.pa == nil {
		p.setState(StateClosed)
		return nil
	}
	if p.loadState() == StateStarted || p.loadState() == StateStopping {
		if err := p.pa.Stop(); err != nil {
			log.Printf("portaudio: failed to stop stream during close: %v", err)
		}
	}
	if err := p.pa.Close(); err != nil {
		log.Printf("portaudio: failed to close stream: %v", err)
	}
	p.pa = nil
	p.setState(StateClosed)
	return portaudio.Terminate()
}
