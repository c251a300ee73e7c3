// ABOUTME: Playout engine state machine and real-time fill path
// ABOUTME: Owns the PCM source, frame buffer and backend for one session
package playout

import (
	"fmt"
	"io"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/soundvision/audio-playout/pkg/audio"
	"github.com/soundvision/audio-playout/pkg/audio/output"
	"github.com/soundvision/audio-playout/pkg/audio/source"
)

// State is the externally visible engine state
type State int32

const (
	StateUninitialized State = iota
	StateConfigured
	StatePlaying
	StateStopped

	// transitional states, reported as one of the above
	stateStarting
	stateStopping
	stateFinished
)

func (s State) String() string {
	switch s.public() {
	case StateUninitialized:
		return "uninitialized"
	case StateConfigured:
		return "configured"
	case StatePlaying:
		return "playing"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

func (s State) public() State {
	switch s {
	case stateStarting:
		return StateConfigured
	case stateStopping:
		return StatePlaying
	case stateFinished:
		return StateStopped
	default:
		return s
	}
}

// FillOutcome is the answer to one fill request
type FillOutcome int

const (
	Continue FillOutcome = iota
	StopRequested
	DesyncError
	FillError
)

func (o FillOutcome) String() string {
	switch o {
	case Continue:
		return "continue"
	case StopRequested:
		return "stop-requested"
	case DesyncError:
		return "desync-error"
	case FillError:
		return "fill-error"
	default:
		return fmt.Sprintf("FillOutcome(%d)", int(o))
	}
}

// Source is the PCM reader an Engine pulls from
type Source interface {
	Read(dst []int16) (int, source.Outcome)
	// Err reports why Read returned IOError
	Err() error
	Close() error
}

// SourceOpener opens the PCM source for a session
type SourceOpener func(path string, format audio.Format) (Source, error)

// OpenFile is the default SourceOpener
func OpenFile(path string, format audio.Format) (Source, error) {
	f, err := source.Open(path, format)
	if err != nil {
		return nil, err
	}
	return f, nil
}

// EngineConfig holds engine configuration
type EngineConfig struct {
	// Path is the PCM file to play
	Path string

	// NewBackend creates the output stream for each Configure
	NewBackend func() (output.Backend, error)

	// OpenSource opens Path (default: OpenFile)
	OpenSource SourceOpener

	// StateTimeout bounds how long Start and Stop wait for the backend
	// to confirm a transition (default: 2s)
	StateTimeout time.Duration

	// PollInterval is the backend state read-back period (default: 5ms)
	PollInterval time.Duration

	ShareMode   output.ShareMode
	Performance output.PerformanceMode
}

// Stats contains engine counters for the current session
type Stats struct {
	Callbacks  uint64
	Frames     uint64
	Desyncs    uint64
	FillErrors uint64
	Underruns  uint64
}

// Engine plays one PCM source through one backend
type Engine struct {
	config EngineConfig

	// mu serializes lifecycle calls; the fill path never takes it
	mu      sync.Mutex
	state   atomic.Int32
	format  audio.Format
	buf     *FrameBuffer
	src     Source
	backend output.Backend

	// closed when the session ends by itself; cause is written before
	done  chan struct{}
	cause error

	callbacks  atomic.Uint64
	frames     atomic.Uint64
	desyncs    atomic.Uint64
	fillErrors atomic.Uint64
}

// NewEngine creates an engine in the Uninitialized state
func NewEngine(config EngineConfig) *Engine {
	if config.OpenSource == nil {
		config.OpenSource = OpenFile
	}
	if config.StateTimeout == 0 {
		config.StateTimeout = 2 * time.Second
	}
	if config.PollInterval == 0 {
		config.PollInterval = 5 * time.Millisecond
	}
	return &Engine{
		config: config,
		buf:    &FrameBuffer{},
		done:   make(chan struct{}),
	}
}

func (e *Engine) load() State {
	return State(e.state.Load())
}

// State returns the current state
func (e *Engine) State() State {
	return e.load().public()
}

// Format returns the configured format
func (e *Engine) Format() audio.Format {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.format
}

// Done is closed when the session ends without a Stop call
func (e *Engine) Done() <-chan struct{} {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.done
}

// Err returns why the session ended by itself: io.EOF when the source
// ran out, the read or backend error otherwise. It is nil until Done
// is closed.
func (e *Engine) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	select {
	case <-e.done:
		return e.cause
	default:
		return nil
	}
}

// Stats returns the counters for the current session
func (e *Engine) Stats() Stats {
	s := Stats{
		Callbacks:  e.callbacks.Load(),
		Frames:     e.frames.Load(),
		Desyncs:    e.desyncs.Load(),
		FillErrors: e.fillErrors.Load(),
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if r, ok := e.backend.(output.UnderrunReporter); ok {
		s.Underruns = r.Underruns()
	}
	return s
}

// Configure opens the source and the backend stream. It is legal from
// Uninitialized and Stopped.
func (e *Engine) Configure(sampleRate, channels int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch st := e.load(); st {
	case StateUninitialized, StateStopped:
	case stateFinished:
		e.release()
		e.state.Store(int32(StateStopped))
	default:
		return fmt.Errorf("%w: configure while %s", ErrState, st)
	}

	format := audio.NewFormat(sampleRate, channels)
	if err := format.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInit, err)
	}
	if e.config.NewBackend == nil {
		return fmt.Errorf("%w: no backend", ErrInit)
	}

	src, err := e.config.OpenSource(e.config.Path, format)
	if err != nil {
		return fmt.Errorf("%w: open source: %w", ErrInit, err)
	}

	backend, err := e.config.NewBackend()
	if err != nil {
		src.Close()
		return fmt.Errorf("%w: create backend: %w", ErrInit, err)
	}

	e.buf.Allocate(format.QuantumSamples())
	e.src = src
	e.format = format
	e.done = make(chan struct{})
	e.cause = nil
	e.resetStats()

	cfg := output.Config{
		SampleRate:        format.SampleRate,
		Channels:          format.Channels,
		FramesPerCallback: format.QuantumFrames(),
		ShareMode:         e.config.ShareMode,
		Performance:       e.config.Performance,
	}
	cb := output.Callbacks{
		Fill:  e.onFill,
		Error: e.onError,
	}
	if err := backend.Open(cfg, cb); err != nil {
		log.Printf("Backend %s open failed (%s): %v", backend.Name(), output.ResultText(err), err)
		backend.Close()
		e.src = nil
		src.Close()
		e.buf.Release()
		return fmt.Errorf("%w: open %s: %w", ErrInit, backend.Name(), err)
	}

	e.backend = backend
	e.state.Store(int32(StateConfigured))
	log.Printf("Playout configured: %s, %s, quantum %d frames (%s)",
		e.config.Path, format, format.QuantumFrames(), backend.Name())
	return nil
}

// Start asks the backend to start and waits for it to report Started.
// It is legal only from Configured.
func (e *Engine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if st := e.load(); st != StateConfigured {
		return fmt.Errorf("%w: start while %s", ErrState, st)
	}

	e.state.Store(int32(stateStarting))
	if err := e.backend.RequestStart(); err != nil {
		log.Printf("Backend %s start rejected (%s): %v", e.backend.Name(), output.ResultText(err), err)
		return e.abortStart(fmt.Errorf("%w: %w", ErrStart, err))
	}

	confirmed := e.await(func(s output.StreamState) bool { return s == output.StateStarted })
	if !confirmed && e.load() != stateFinished {
		log.Printf("Backend %s did not confirm start within %v (state %s)",
			e.backend.Name(), e.config.StateTimeout, e.backend.State())
		if err := e.backend.RequestStop(); err != nil {
			log.Printf("Backend %s stop after failed start: %v", e.backend.Name(), err)
		}
		return e.abortStart(fmt.Errorf("%w: backend reported %s after %v", ErrStart, e.backend.State(), e.config.StateTimeout))
	}

	if !e.state.CompareAndSwap(int32(stateStarting), int32(StatePlaying)) {
		log.Printf("Playout ended while starting: %v", e.endCause())
		return nil
	}
	log.Printf("Playout started (%s)", e.backend.Name())
	return nil
}

// abortStart undoes a failed start. The engine returns to Configured
// only if no source samples were consumed; otherwise the session is
// finished and must be configured again.
func (e *Engine) abortStart(err error) error {
	if e.frames.Load() > 0 && e.finish(err) {
		log.Printf("Start failed after %d frames were played; session ended", e.frames.Load())
		return err
	}
	e.state.CompareAndSwap(int32(stateStarting), int32(StateConfigured))
	return err
}

// Stop stops the backend and releases the session resources.
// A second Stop returns ErrState.
func (e *Engine) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch st := e.load(); st {
	case StateUninitialized, StateStopped:
		return fmt.Errorf("%w: stop while %s", ErrState, st)
	case StateConfigured, stateFinished:
		e.release()
		e.state.Store(int32(StateStopped))
		log.Printf("Playout stopped")
		return nil
	}

	if !e.state.CompareAndSwap(int32(StatePlaying), int32(stateStopping)) {
		// finished underneath us
		e.release()
		e.state.Store(int32(StateStopped))
		log.Printf("Playout stopped after end of stream: %v", e.endCause())
		return nil
	}

	var stopErr error
	if err := e.backend.RequestStop(); err != nil {
		log.Printf("Backend %s stop rejected (%s): %v", e.backend.Name(), output.ResultText(err), err)
		stopErr = fmt.Errorf("%w: %w", ErrStop, err)
	} else if !e.await(func(s output.StreamState) bool { return s != output.StateStarted }) {
		log.Printf("Backend %s did not confirm stop within %v", e.backend.Name(), e.config.StateTimeout)
		stopErr = fmt.Errorf("%w: backend still started after %v", ErrStop, e.config.StateTimeout)
	}

	e.release()
	e.state.Store(int32(StateStopped))
	log.Printf("Playout stopped")
	return stopErr
}

// await polls the backend state until ok returns true, the session
// finishes or the timeout elapses
func (e *Engine) await(ok func(output.StreamState) bool) bool {
	deadline := time.Now().Add(e.config.StateTimeout)
	for {
		if ok(e.backend.State()) {
			return true
		}
		if e.load() == stateFinished || time.Now().After(deadline) {
			return false
		}
		time.Sleep(e.config.PollInterval)
	}
}

// release closes the backend before the source and buffer so no callback
// can observe them after they are gone
func (e *Engine) release() {
	if e.backend != nil {
		if err := e.backend.Close(); err != nil {
			log.Printf("Backend %s close failed: %v", e.backend.Name(), err)
		}
		e.backend = nil
	}
	if e.src != nil {
		if err := e.src.Close(); err != nil {
			log.Printf("Source close failed: %v", err)
		}
		e.src = nil
	}
	e.buf.Release()
}

// endCause waits for finish to publish the cause. Only valid once the
// state is finished.
func (e *Engine) endCause() error {
	<-e.done
	return e.cause
}

func (e *Engine) resetStats() {
	e.callbacks.Store(0)
	e.frames.Store(0)
	e.desyncs.Store(0)
	e.fillErrors.Store(0)
}

// finish moves a running session to finished and records why.
// Only the first caller wins.
func (e *Engine) finish(cause error) bool {
	for {
		cur := e.state.Load()
		if cur != int32(stateStarting) && cur != int32(StatePlaying) {
			return false
		}
		if e.state.CompareAndSwap(cur, int32(stateFinished)) {
			e.cause = cause
			close(e.done)
			return true
		}
	}
}

// onFill bridges the backend callback to fill
func (e *Engine) onFill(out []int16) output.Result {
	if e.fill(out) == Continue {
		return output.Continue
	}
	return output.Stop
}

// onError bridges asynchronous backend errors. It runs on the adapter's
// watcher goroutine and must not take e.mu.
func (e *Engine) onError(err error) {
	log.Printf("Backend error (%s): %v", output.ResultText(err), err)
	e.finish(err)
}

// fill answers one pull request from the real-time thread. dst is
// zeroed first so a short read leaves silence.
func (e *Engine) fill(dst []int16) FillOutcome {
	clear(dst)
	e.callbacks.Add(1)

	switch State(e.state.Load()) {
	case stateStarting, StatePlaying:
	case stateStopping:
		return StopRequested
	default:
		e.desyncs.Add(1)
		return DesyncError
	}

	buf := e.buf.Scratch()
	if len(dst) > len(buf) {
		e.fillErrors.Add(1)
		e.finish(ErrFill)
		return FillError
	}

	scratch := buf[:len(dst)]
	n, outcome := e.src.Read(scratch)
	copy(dst, scratch[:n])
	e.frames.Add(uint64(n / e.format.Channels))

	switch outcome {
	case source.Full:
		return Continue
	case source.End:
		e.finish(io.EOF)
	default:
		cause := e.src.Err()
		if cause == nil {
			cause = ErrSourceRead
		}
		e.finish(cause)
	}
	return StopRequested
}
