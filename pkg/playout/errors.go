// ABOUTME: Playout error taxonomy
// ABOUTME: Sentinel errors and their mapping onto numeric result codes
package playout

import (
	"errors"
	"fmt"
)

var (
	// ErrInit means the stream could not be built or the format was rejected
	ErrInit = errors.New("playout init failed")
	// ErrState means the operation is not legal in the current state
	ErrState = errors.New("invalid playout state")
	// ErrStart means the backend refused or never confirmed the start
	ErrStart = errors.New("playout start failed")
	// ErrStop means the backend refused or never confirmed the stop
	ErrStop = errors.New("playout stop failed")
	// ErrFill means a fill request exceeded the configured quantum
	ErrFill = errors.New("fill request exceeds quantum")
	// ErrSourceRead is the session cause when a source reports IOError
	// without an error of its own
	ErrSourceRead = errors.New("source read failed")
	// ErrDesync means the backend called back outside of playback
	ErrDesync = errors.New("fill callback outside playback")
	// ErrAlreadyActive means a session is already live
	ErrAlreadyActive = errors.New("playout session already active")
)

// ResultCode is the numeric status reported to command callers
type ResultCode int

const (
	NoError ResultCode = iota
	CreateEngine
	PlayState
	PlayInit
	StartPlay
	FillBuffer
	StopPlayer
	AlreadyActive
)

func (c ResultCode) String() string {
	switch c {
	case NoError:
		return "no-error"
	case CreateEngine:
		return "create-engine"
	case PlayState:
		return "play-state"
	case PlayInit:
		return "play-init"
	case StartPlay:
		return "start-play"
	case FillBuffer:
		return "fill-buffer"
	case StopPlayer:
		return "stop-player"
	case AlreadyActive:
		return "already-active"
	default:
		return fmt.Sprintf("ResultCode(%d)", int(c))
	}
}

// Code maps an error returned by this package onto a ResultCode. Errors
// outside the taxonomy, such as an unknown backend, map to CreateEngine.
func Code(err error) ResultCode {
	switch {
	case err == nil:
		return NoError
	case errors.Is(err, ErrAlreadyActive):
		return AlreadyActive
	case errors.Is(err, ErrState):
		return PlayState
	case errors.Is(err, ErrInit):
		return PlayInit
	case errors.Is(err, ErrStart):
		return StartPlay
	case errors.Is(err, ErrFill), errors.Is(err, ErrSourceRead), errors.Is(err, ErrDesync):
		return FillBuffer
	case errors.Is(err, ErrStop):
		return StopPlayer
	default:
		return CreateEngine
	}
}
