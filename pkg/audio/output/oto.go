// ABOUTME: Oto-based audio output implementation
// ABOUTME: The adapter is the oto player's io.Reader and renders one quantum per read
package output

import (
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ebitengine/oto/v3"
	"github.com/soundvision/audio-playout/pkg/audio"
)

const otoPollInterval = 100 * time.Millisecond

// oto allows one context per process, so every Oto output shares it
var (
	otoMu     sync.Mutex
	otoShared *oto.Context
	otoFormat Config
)

// sharedOtoContext returns the process context, creating it on first use.
// A later request for a different format cannot be honored.
func sharedOtoContext(cfg Config) (*oto.Context, error) {
	otoMu.Lock()
	defer otoMu.Unlock()

	if otoShared != nil {
		if otoFormat.SampleRate != cfg.SampleRate || otoFormat.Channels != cfg.Channels {
			return nil, fmt.Errorf("%w: oto context already running at %dHz/%dch, requested %dHz/%dch",
				ErrUnsupportedFormat, otoFormat.SampleRate, otoFormat.Channels, cfg.SampleRate, cfg.Channels)
		}
		if err := otoShared.Resume(); err != nil {
			return nil, fmt.Errorf("failed to resume oto context: %w", err)
		}
		return otoShared, nil
	}

	quantum := time.Duration(cfg.FramesPerCallback) * time.Second / time.Duration(cfg.SampleRate)
	op := &oto.NewContextOptions{
		SampleRate:   cfg.SampleRate,
		ChannelCount: cfg.Channels,
		Format:       oto.FormatSignedInt16LE,
		BufferSize:   2 * quantum,
	}

	ctx, readyChan, err := oto.NewContext(op)
	if err != nil {
		return nil, fmt.Errorf("failed to create oto context: %w", err)
	}
	<-readyChan

	otoShared = ctx
	otoFormat = cfg
	return ctx, nil
}

// Oto output implementation using oto library
type Oto struct {
	stream

	mu     sync.Mutex
	otoCtx *oto.Context
	player *oto.Player
	closed atomic.Bool
}

// NewOto creates a new Oto output
func NewOto() Backend {
	return &Oto{}
}

// Name returns the backend identifier
func (o *Oto) Name() string {
	return string(KindOto)
}

// Open attaches a player to the shared oto context
func (o *Oto) Open(cfg Config, cb Callbacks) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed.Load() {
		return ErrClosed
	}
	if o.player != nil {
		return ErrAlreadyOpen
	}

	ctx, err := sharedOtoContext(cfg)
	if err != nil {
		return err
	}

	o.setup(o.Name(), cfg, cb)
	o.otoCtx = ctx
	o.player = ctx.NewPlayer(o)
	o.player.SetBufferSize(2 * cfg.FramesPerCallback * cfg.Channels * audio.BytesPerSample)
	o.watch(o.halt, o.poll, otoPollInterval)

	if cfg.ShareMode == ShareExclusive {
		log.Printf("oto: exclusive mode not supported, using shared device")
	}
	log.Printf("Audio output opened: %dHz, %d channels, %d frames/callback (oto)",
		cfg.SampleRate, cfg.Channels, cfg.FramesPerCallback)
	return nil
}

// Read is called by the oto player; it renders at most one quantum
func (o *Oto) Read(p []byte) (int, error) {
	quantumBytes := len(o.scratch) * audio.BytesPerSample
	if len(p) > quantumBytes {
		p = p[:quantumBytes]
	}
	n, res := o.renderBytes(p)
	if res == Stop {
		return n, io.EOF
	}
	return n, nil
}

// RequestStart resumes the player
func (o *Oto) RequestStart() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.player == nil {
		return ErrNotOpen
	}
	o.stopping.Store(false)
	o.player.Play()
	o.setState(StateStarted)
	return nil
}

// RequestStop pauses the player
func (o *Oto) RequestStop() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.player == nil {
		return ErrNotOpen
	}
	o.stopLocked()
	return nil
}

func (o *Oto) halt() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.player != nil {
		o.stopLocked()
	}
	return nil
}

func (o *Oto) stopLocked() {
	o.stopping.Store(true)
	o.player.Pause()
	o.setState(StateStopped)
}

// poll surfaces context or player failures to the watcher
func (o *Oto) poll() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.otoCtx != nil {
		if err := o.otoCtx.Err(); err != nil {
			o.setState(StateDisconnected)
			return errors.Join(ErrDeviceLost, err)
		}
	}
	if o.player != nil {
		if err := o.player.Err(); err != nil {
			return fmt.Errorf("oto player: %w", err)
		}
	}
	return nil
}

// State reads back whether the player is running
func (o *Oto) State() StreamState {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.player != nil && o.player.IsPlaying() {
		return StateStarted
	}
	st := o.loadState()
	if st == StateStarted {
		// the player drained and stopped on its own
		return StateStopped
	}
	return st
}

// Close unregisters the callbacks, closes the player and suspends the context
func (o *Oto) Close() error {
	if !o.closed.CompareAndSwap(false, true) {
		return nil
	}

	o.detach()

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.player != nil {
		o.player.Pause()
		if err := o.player.Close(); err != nil {
			log.Printf("oto: failed to close player: %v", err)
		}
		o.player = nil
	}
	if o.otoCtx != nil {
		if err := o.otoCtx.Suspend(); err != nil {
			log.Printf("oto: failed to suspend context: %v", err)
		}
		o.otoCtx = nil
	}
	o.setState(StateClosed)
	return nil
}
