// ABOUTME: Audio output interface definition
// ABOUTME: Common Backend capability, stream configuration and callback contract
package output

import (
	"errors"
	"fmt"
)

// Backend is a realized output stream that pulls audio through callbacks
type Backend interface {
	// Name returns the backend identifier
	Name() string

	// Open configures the device and registers the callbacks
	Open(cfg Config, cb Callbacks) error

	// RequestStart asks the device to begin invoking Fill
	RequestStart() error

	// RequestStop asks the device to stop invoking Fill
	RequestStop() error

	// State reads back the device-reported stream state
	State() StreamState

	// Close unregisters the callbacks and releases device handles
	Close() error
}

// UnderrunReporter is implemented by backends that count device underruns
type UnderrunReporter interface {
	Underruns() uint64
}

// Result tells the backend whether to keep pulling
type Result int

const (
	// Continue keeps the stream running
	Continue Result = iota
	// Stop ends the stream; the adapter tears the device down
	Stop
)

// Callbacks are the hooks a backend invokes from its own threads
type Callbacks struct {
	// Fill writes len(out) interleaved samples. It runs on the real-time
	// audio thread and must not block. out is only valid during the call.
	Fill func(out []int16) Result

	// Error reports an asynchronous backend failure. It is never called
	// from the real-time thread.
	Error func(err error)
}

// ShareMode selects exclusive or shared device access
type ShareMode int

const (
	ShareExclusive ShareMode = iota
	ShareShared
)

func (m ShareMode) String() string {
	if m == ShareShared {
		return "shared"
	}
	return "exclusive"
}

// PerformanceMode selects the latency profile
type PerformanceMode int

const (
	PerformanceLowLatency PerformanceMode = iota
	PerformanceNone
)

// Config describes the stream a backend should realize
type Config struct {
	SampleRate        int
	Channels          int
	FramesPerCallback int
	ShareMode         ShareMode
	Performance       PerformanceMode
}

// Validate checks the parameters every backend requires
func (c Config) Validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("%w: sample rate %d", ErrUnsupportedFormat, c.SampleRate)
	}
	if c.Channels < 1 || c.Channels > 2 {
		return fmt.Errorf("%w: %d channels (supported: 1, 2)", ErrUnsupportedFormat, c.Channels)
	}
	if c.FramesPerCallback <= 0 {
		return fmt.Errorf("%w: %d frames per callback", ErrUnsupportedFormat, c.FramesPerCallback)
	}
	return nil
}

// StreamState is the device-reported state of a stream
type StreamState int

const (
	StateUninitialized StreamState = iota
	StateOpen
	StateStarting
	StateStarted
	StateStopping
	StateStopped
	StateClosed
	StateDisconnected
)

func (s StreamState) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateOpen:
		return "open"
	case StateStarting:
		return "starting"
	case StateStarted:
		return "started"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	case StateClosed:
		return "closed"
	case StateDisconnected:
		return "disconnected"
	default:
		return fmt.Sprintf("StreamState(%d)", int(s))
	}
}

var (
	ErrNotOpen            = errors.New("output not opened")
	ErrAlreadyOpen        = errors.New("output already opened")
	ErrClosed             = errors.New("output closed")
	ErrUnsupportedFormat  = errors.New("unsupported stream format")
	ErrDeviceLost         = errors.New("output device lost")
	ErrUnsupportedBackend = errors.New("unsupported backend")
	ErrNotEnabled         = errors.New("backend support not enabled")
)

// ResultText returns a stable symbolic name for a backend error
func ResultText(err error) string {
	switch {
	case err == nil:
		return "OK"
	case errors.Is(err, ErrNotOpen):
		return "ERROR_NOT_OPEN"
	case errors.Is(err, ErrAlreadyOpen):
		return "ERROR_ALREADY_OPEN"
	case errors.Is(err, ErrClosed):
		return "ERROR_CLOSED"
	case errors.Is(err, ErrUnsupportedFormat):
		return "ERROR_UNSUPPORTED_FORMAT"
	case errors.Is(err, ErrDeviceLost):
		return "ERROR_DEVICE_LOST"
	case errors.Is(err, ErrUnsupportedBackend):
		return "ERROR_UNSUPPORTED_BACKEND"
	case errors.Is(err, ErrNotEnabled):
		return "ERROR_NOT_ENABLED"
	default:
		return "ERROR_INTERNAL"
	}
}

// Kind names a backend implementation
type Kind string

const (
	KindMalgo     Kind = "malgo"
	KindOto       Kind = "oto"
	KindPortAudio Kind = "portaudio"
	KindHeadless  Kind = "headless"
)

// Kinds lists every selectable backend
func Kinds() []Kind {
	return []Kind{KindMalgo, KindOto, KindPortAudio, KindHeadless}
}

// ParseKind validates a backend name
func ParseKind(name string) (Kind, error) {
	for _, k := range Kinds() {
		if string(k) == name {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q (supported: malgo, oto, portaudio, headless)", ErrUnsupportedBackend, name)
}

// New constructs a backend by kind. The headless backend created here
// discards its output and runs at real-time pace.
func New(kind Kind) (Backend, error) {
	switch kind {
	case KindMalgo:
		return NewMalgo(), nil
	case KindOto:
		return NewOto(), nil
	case KindPortAudio:
		return NewPortAudio(), nil
	case KindHeadless:
		return NewHeadless(HeadlessConfig{}), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedBackend, kind)
	}
}
