// ABOUTME: Tests for shared stream plumbing
// ABOUTME: Covers quantum chunking, byte rendering, detach and the oto reader
package output

import (
	"encoding/binary"
	"io"
	"testing"
)

// counter fills each request with an increasing sample value
type counter struct {
	next     int16
	sizes    []int
	stopAt   int
	requests int
}

func (c *counter) fill(out []int16) Result {
	c.requests++
	c.sizes = append(c.sizes, len(out))
	for i := range out {
		out[i] = c.next
		c.next++
	}
	if c.stopAt > 0 && c.requests >= c.stopAt {
		return Stop
	}
	return Continue
}

func newTestStream(frames, channels int, cb Callbacks) *stream {
	s := &stream{}
	s.setup("test", Config{SampleRate: 100 * frames, Channels: channels, FramesPerCallback: frames}, cb)
	return s
}

func TestRenderChunksToQuantum(t *testing.T) {
	c := &counter{}
	s := newTestStream(4, 2, Callbacks{Fill: c.fill})

	out := make([]int16, 20)
	if res := s.render(out); res != Continue {
		t.Fatalf("expected Continue, got %v", res)
	}

	want := []int{8, 8, 4}
	if len(c.sizes) != len(want) {
		t.Fatalf("expected %d fills, got %v", len(want), c.sizes)
	}
	for i, n := range want {
		if c.sizes[i] != n {
			t.Errorf("fill %d: expected %d samples, got %d", i, n, c.sizes[i])
		}
	}
	for i, v := range out {
		if v != int16(i) {
			t.Fatalf("sample %d: expected %d, got %d", i, i, v)
		}
	}
}

func TestRenderStopSilencesRemainder(t *testing.T) {
	c := &counter{stopAt: 1}
	s := newTestStream(4, 1, Callbacks{Fill: c.fill})

	out := make([]int16, 12)
	for i := range out {
		out[i] = -1
	}
	if res := s.render(out); res != Stop {
		t.Fatalf("expected Stop, got %v", res)
	}
	if c.requests != 1 {
		t.Errorf("expected one fill after Stop, got %d", c.requests)
	}
	for i := 4; i < len(out); i++ {
		if out[i] != 0 {
			t.Fatalf("sample %d not silenced: %d", i, out[i])
		}
	}

	select {
	case err := <-s.signal:
		if err != nil {
			t.Errorf("expected nil stop signal, got %v", err)
		}
	default:
		t.Error("expected stop signal for watcher")
	}
}

func TestRenderDetached(t *testing.T) {
	c := &counter{}
	s := newTestStream(4, 1, Callbacks{Fill: c.fill})
	s.detach()

	out := []int16{1, 2, 3, 4}
	if res := s.render(out); res != Stop {
		t.Fatalf("expected Stop after detach, got %v", res)
	}
	if c.requests != 0 {
		t.Errorf("detached callback was invoked %d times", c.requests)
	}
	for i, v := range out {
		if v != 0 {
			t.Errorf("sample %d: expected silence, got %d", i, v)
		}
	}
}

func TestNotifyKeepsFirstSignal(t *testing.T) {
	s := newTestStream(4, 1, Callbacks{})
	s.notify(ErrDeviceLost)
	s.notify(nil)

	if err := <-s.signal; err != ErrDeviceLost {
		t.Errorf("expected first signal to win, got %v", err)
	}
}

func TestRenderBytesWholeFrames(t *testing.T) {
	c := &counter{}
	s := newTestStream(2, 2, Callbacks{Fill: c.fill})

	// 11 bytes holds two whole stereo frames
	p := make([]byte, 11)
	n, res := s.renderBytes(p)
	if res != Continue {
		t.Fatalf("expected Continue, got %v", res)
	}
	if n != 8 {
		t.Fatalf("expected 8 bytes, got %d", n)
	}
	for i := 0; i < 4; i++ {
		if v := int16(binary.LittleEndian.Uint16(p[i*2:])); v != int16(i) {
			t.Errorf("sample %d: expected %d, got %d", i, i, v)
		}
	}
}

func TestOtoReadLimitsToQuantum(t *testing.T) {
	c := &counter{stopAt: 2}
	o := &Oto{}
	o.setup(o.Name(), Config{SampleRate: 400, Channels: 1, FramesPerCallback: 4}, Callbacks{Fill: c.fill})

	p := make([]byte, 64)
	n, err := o.Read(p)
	if err != nil {
		t.Fatalf("first read failed: %v", err)
	}
	if n != 8 {
		t.Errorf("expected one quantum (8 bytes), got %d", n)
	}

	n, err = o.Read(p)
	if err != io.EOF {
		t.Fatalf("expected io.EOF once Fill stops, got %v", err)
	}
	if n != 8 {
		t.Errorf("expected final quantum (8 bytes), got %d", n)
	}
}
