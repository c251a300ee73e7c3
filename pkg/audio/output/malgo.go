// ABOUTME: Malgo-based audio output implementation
// ABOUTME: Drives a miniaudio S16 playback device from its data callback
package output

import (
	"fmt"
	"log"
	"sync"
	"sync/atomic"

	"github.com/gen2brain/malgo"
)

// Malgo output implementation using malgo/miniaudio library
type Malgo struct {
	stream

	mu       sync.Mutex
	malgoCtx *malgo.AllocatedContext
	device   *malgo.Device
	shared   bool
	closed   atomic.Bool
}

// NewMalgo creates a new malgo output
func NewMalgo() Backend {
	return &Malgo{}
}

// Name returns the backend identifier
func (m *Malgo) Name() string {
	return string(KindMalgo)
}

// Open initializes the miniaudio context and playback device
func (m *Malgo) Open(cfg Config, cb Callbacks) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed.Load() {
		return ErrClosed
	}
	if m.device != nil {
		return ErrAlreadyOpen
	}

	malgoCtx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(message string) {
		log.Printf("malgo: %s", message)
	})
	if err != nil {
		return fmt.Errorf("failed to initialize malgo context: %w", err)
	}

	m.setup(m.Name(), cfg, cb)

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Playback)
	deviceConfig.Playback.Format = malgo.FormatS16
	deviceConfig.Playback.Channels = uint32(cfg.Channels)
	deviceConfig.SampleRate = uint32(cfg.SampleRate)
	deviceConfig.PeriodSizeInFrames = uint32(cfg.FramesPerCallback)
	deviceConfig.Alsa.NoMMap = 1
	if cfg.Performance == PerformanceLowLatency {
		deviceConfig.PerformanceProfile = malgo.LowLatency
	} else {
		deviceConfig.PerformanceProfile = malgo.Conservative
	}

	callbacks := malgo.DeviceCallbacks{
		Data: m.onData,
		Stop: m.onStop,
	}

	var device *malgo.Device
	if cfg.ShareMode == ShareExclusive {
		deviceConfig.Playback.ShareMode = malgo.Exclusive
		device, err = malgo.InitDevice(malgoCtx.Context, deviceConfig, callbacks)
		if err != nil {
			log.Printf("malgo: exclusive mode unavailable (%v), falling back to shared", err)
		}
	}
	if device == nil {
		deviceConfig.Playback.ShareMode = malgo.Shared
		device, err = malgo.InitDevice(malgoCtx.Context, deviceConfig, callbacks)
		m.shared = true
	}
	if err != nil {
		m.cb.Store(nil)
		_ = malgoCtx.Uninit()
		malgoCtx.Free()
		return fmt.Errorf("failed to initialize playback device: %w", err)
	}

	m.malgoCtx = malgoCtx
	m.device = device
	m.watch(m.halt, nil, 0)

	log.Printf("Audio output opened: %dHz, %d channels, %d frames/callback (malgo, %s)",
		cfg.SampleRate, cfg.Channels, cfg.FramesPerCallback, m.shareModeName())
	return nil
}

func (m *Malgo) shareModeName() string {
	if m.shared {
		return ShareShared.String()
	}
	return ShareExclusive.String()
}

// RequestStart starts the playback device
func (m *Malgo) RequestStart() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.device == nil {
		return ErrNotOpen
	}
	m.stopping.Store(false)
	m.setState(StateStarting)
	if err := m.device.Start(); err != nil {
		m.setState(StateStopped)
		return fmt.Errorf("failed to start device: %w", err)
	}
	return nil
}

// RequestStop stops the playback device
func (m *Malgo) RequestStop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.device == nil {
		return ErrNotOpen
	}
	return m.stopLocked()
}

func (m *Malgo) halt() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.device == nil {
		return nil
	}
	return m.stopLocked()
}

func (m *Malgo) stopLocked() error {
	m.stopping.Store(true)
	if !m.device.IsStarted() {
		m.setState(StateStopped)
		return nil
	}
	m.setState(StateStopping)
	if err := m.device.Stop(); err != nil {
		return fmt.Errorf("failed to stop device: %w", err)
	}
	m.setState(StateStopped)
	return nil
}

// State reads back the device state
func (m *Malgo) State() StreamState {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.device == nil {
		return m.loadState()
	}
	if m.device.IsStarted() {
		return StateStarted
	}
	return m.loadState()
}

// Close unregisters the callbacks and releases the device and context
func (m *Malgo) Close() error {
	if !m.closed.CompareAndSwap(false, true) {
		return nil
	}

	m.detach()

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.device != nil {
		m.stopping.Store(true)
		if m.device.IsStarted() {
			if err := m.device.Stop(); err != nil {
				log.Printf("malgo: failed to stop device during close: %v", err)
			}
		}
		m.device.Uninit()
		m.device = nil
	}
	if m.malgoCtx != nil {
		_ = m.malgoCtx.Uninit()
		m.malgoCtx.Free()
		m.malgoCtx = nil
	}
	m.setState(StateClosed)
	return nil
}

// onData is the miniaudio data callback
func (m *Malgo) onData(pOutput, _ []byte, frameCount uint32) {
	n := int(frameCount) * m.cfg.Channels * 2
	if n > len(pOutput) {
		n = len(pOutput)
	}
	m.renderBytes(pOutput[:n])
}

// onStop fires whenever the device stops. Without a local request that
// means the device went away underneath us.
func (m *Malgo) onStop() {
	if m.stopping.Load() {
		return
	}
	m.setState(StateDisconnected)
	m.notify(ErrDeviceLost)
}
