//go:build !portaudio

// ABOUTME: PortAudio stub when library not available
// ABOUTME: Provides compile-time placeholder when PortAudio not installed
package output

import (
	"fmt"
)

// PortAudio output implementation (stub)
type PortAudio struct{}

// NewPortAudio creates a new PortAudio output
func NewPortAudio() Backend {
	return &PortAudio{}
}

// Name returns the backend identifier
func (p *PortAudio) Name() string {
	return string(KindPortAudio)
}

// Open reports that PortAudio was not compiled in
func (p *PortAudio) Open(cfg Config, cb Callbacks) error {
	return fmt.Errorf("%w: PortAudio (build with -tags portaudio)", ErrNotEnabled)
}

// RequestStart always fails on the stub
func (p *PortAudio) RequestStart() error {
	return ErrNotOpen
}

// RequestStop always fails on the stub
func (p *PortAudio) RequestStop() error {
	return ErrNotOpen
}

// State is always uninitialized on the stub
func (p *PortAudio) State() StreamState {
	return StateUninitialized
}

// Close is a no-op on the stub
func (p *PortAudio) Close() error {
	return nil
}
