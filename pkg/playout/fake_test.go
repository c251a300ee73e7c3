// ABOUTME: Test doubles for playout tests
// ABOUTME: Scriptable backend and PCM fixtures shared by engine and controller tests
package playout

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/soundvision/audio-playout/pkg/audio"
	"github.com/soundvision/audio-playout/pkg/audio/output"
	"github.com/soundvision/audio-playout/pkg/audio/source"
)

// fakeBackend records calls and lets the test play the real-time thread
type fakeBackend struct {
	// rt is held by in-flight callbacks; Close waits for them like a device would
	rt       sync.RWMutex
	mu       sync.Mutex
	cfg      output.Config
	cb       output.Callbacks
	state    output.StreamState
	opens    int
	starts   int
	stops    int
	closes   int
	detached bool

	openErr    error
	startErr   error
	stopErr    error
	neverStart bool
}

func (f *fakeBackend) Name() string { return "fake" }

func (f *fakeBackend) Open(cfg output.Config, cb output.Callbacks) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opens++
	if f.openErr != nil {
		return f.openErr
	}
	f.cfg = cfg
	f.cb = cb
	f.state = output.StateOpen
	return nil
}

func (f *fakeBackend) RequestStart() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.starts++
	if f.startErr != nil {
		return f.startErr
	}
	if !f.neverStart {
		f.state = output.StateStarted
	}
	return nil
}

func (f *fakeBackend) RequestStop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
	if f.stopErr != nil {
		return f.stopErr
	}
	f.state = output.StateStopped
	return nil
}

func (f *fakeBackend) State() output.StreamState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *fakeBackend) Close() error {
	f.rt.Lock()
	defer f.rt.Unlock()
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closes++
	f.detached = true
	f.cb = output.Callbacks{}
	f.state = output.StateClosed
	return nil
}

// pull invokes the registered Fill as the audio thread would
func (f *fakeBackend) pull(samples int) ([]int16, output.Result) {
	f.rt.RLock()
	defer f.rt.RUnlock()

	f.mu.Lock()
	fill := f.cb.Fill
	f.mu.Unlock()

	out := make([]int16, samples)
	for i := range out {
		out[i] = -1
	}
	if fill == nil {
		return out, output.Stop
	}
	return out, fill(out)
}

func (f *fakeBackend) raise(err error) {
	f.mu.Lock()
	onErr := f.cb.Error
	f.mu.Unlock()
	onErr(err)
}

func (f *fakeBackend) counts() (opens, starts, stops, closes int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.opens, f.starts, f.stops, f.closes
}

// countingSource wraps a Source and counts reads and closes
type countingSource struct {
	Source
	reads  int
	closes int
}

func (c *countingSource) Read(dst []int16) (int, source.Outcome) {
	c.reads++
	return c.Source.Read(dst)
}

func (c *countingSource) Close() error {
	c.closes++
	return c.Source.Close()
}

// ramp returns n samples with distinct values
func ramp(n int) []int16 {
	s := make([]int16, n)
	for i := range s {
		s[i] = int16(i*37 - 1000)
	}
	return s
}

func pcmBytes(samples []int16) []byte {
	b := make([]byte, len(samples)*2)
	for i, v := range samples {
		binary.LittleEndian.PutUint16(b[i*2:], uint16(v))
	}
	return b
}

func writePCM(t *testing.T, samples []int16) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "input.pcm")
	if err := os.WriteFile(path, pcmBytes(samples), 0o644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}
	return path
}

// memSource builds a SourceOpener over r and keeps the opened source
type memSource struct {
	r      io.Reader
	opened *countingSource
}

func (m *memSource) open(path string, format audio.Format) (Source, error) {
	f, err := source.New(io.NopCloser(m.r), format)
	if err != nil {
		return nil, err
	}
	m.opened = &countingSource{Source: f}
	return m.opened, nil
}

func newMemSource(samples []int16) *memSource {
	return &memSource{r: bytes.NewReader(pcmBytes(samples))}
}

// newTestEngine returns an engine wired to a fake backend and an in-memory source
func newTestEngine(samples []int16) (*Engine, *fakeBackend, *memSource, *int) {
	fb := &fakeBackend{}
	ms := newMemSource(samples)
	created := 0
	e := NewEngine(EngineConfig{
		Path: "memory",
		NewBackend: func() (output.Backend, error) {
			created++
			return fb, nil
		},
		OpenSource:   ms.open,
		StateTimeout: 50 * time.Millisecond,
		PollInterval: time.Millisecond,
	})
	return e, fb, ms, &created
}

var errBoom = errors.New("boom")
