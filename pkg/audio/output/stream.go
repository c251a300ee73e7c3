// ABOUTME: Shared stream plumbing for output adapters
// ABOUTME: Callback detach, quantum chunking and the stop/error watcher goroutine
package output

import (
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/soundvision/audio-playout/pkg/audio"
)

// stream holds the state every adapter shares. The real-time side only
// touches the atomic fields and the preallocated scratch buffer.
type stream struct {
	name    string
	cfg     Config
	cb      atomic.Pointer[Callbacks]
	state   atomic.Int32
	scratch []int16

	// set when the caller (or the watcher) asked the device to stop
	stopping atomic.Bool

	underruns atomic.Uint64

	signal chan error
	done   chan struct{}
	wg     sync.WaitGroup
}

func (s *stream) setup(name string, cfg Config, cb Callbacks) {
	s.name = name
	s.cfg = cfg
	s.scratch = make([]int16, cfg.FramesPerCallback*cfg.Channels)
	s.signal = make(chan error, 1)
	s.done = make(chan struct{})
	s.stopping.Store(false)
	s.cb.Store(&cb)
	s.setState(StateOpen)
}

func (s *stream) setState(st StreamState) {
	s.state.Store(int32(st))
}

func (s *stream) loadState() StreamState {
	return StreamState(s.state.Load())
}

// Underruns returns the number of device underruns observed
func (s *stream) Underruns() uint64 {
	return s.underruns.Load()
}

// render fills out in quantum-sized pieces. Once Fill returns Stop the rest
// of out is left silent and the watcher is told to halt the device.
func (s *stream) render(out []int16) Result {
	cb := s.cb.Load()
	if cb == nil || cb.Fill == nil {
		clear(out)
		return Stop
	}

	quantum := len(s.scratch)
	for off := 0; off < len(out); off += quantum {
		end := min(off+quantum, len(out))
		if cb.Fill(out[off:end]) == Stop {
			clear(out[end:])
			s.notify(nil)
			return Stop
		}
	}
	return Continue
}

// renderBytes fills whole frames of p with little-endian PCM and returns
// the number of bytes written.
func (s *stream) renderBytes(p []byte) (int, Result) {
	cb := s.cb.Load()
	if cb == nil || cb.Fill == nil {
		clear(p)
		return 0, Stop
	}

	frameBytes := s.cfg.Channels * audio.BytesPerSample
	total := len(p) / frameBytes * frameBytes
	written := 0
	for written < total {
		n := min(len(s.scratch), (total-written)/audio.BytesPerSample)
		chunk := s.scratch[:n]
		res := cb.Fill(chunk)
		written += audio.EncodeInt16LE(p[written:], chunk)
		if res == Stop {
			clear(p[written:])
			s.notify(nil)
			return written, Stop
		}
	}
	return written, Continue
}

// notify hands a stop (nil) or failure to the watcher without blocking.
// Only the first signal per run is kept.
func (s *stream) notify(err error) {
	select {
	case s.signal <- err:
	default:
	}
}

// watch runs until close. halt stops the device; poll, when set, is called
// every interval to detect failures the device does not report on its own.
func (s *stream) watch(halt func() error, poll func() error, interval time.Duration) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		var tick <-chan time.Time
		if poll != nil {
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			tick = ticker.C
		}

		for {
			select {
			case <-s.done:
				return
			case <-tick:
				if err := poll(); err != nil {
					s.notify(err)
				}
			case err := <-s.signal:
				if err != nil {
					log.Printf("%s: stream error: %v", s.name, err)
					if cb := s.cb.Load(); cb != nil && cb.Error != nil {
						cb.Error(err)
					}
				} else {
					log.Printf("%s: stream drained, stopping device", s.name)
				}
				if herr := halt(); herr != nil {
					log.Printf("%s: failed to halt device: %v", s.name, herr)
				}
			}
		}
	}()
}

// detach unregisters the callbacks and waits for the watcher to exit.
// It must not be called with the adapter mutex held.
func (s *stream) detach() {
	s.cb.Store(nil)
	if s.done == nil {
		return
	}
	select {
	case <-s.done:
	default:
		close(s.done)
	}
	s.wg.Wait()
}
