// ABOUTME: Fixed-capacity scratch buffer for one quantum of samples
// ABOUTME: Allocated once per session and never resized from the audio thread
package playout

// FrameBuffer holds exactly one quantum of interleaved samples
type FrameBuffer struct {
	samples []int16
}

// NewFrameBuffer allocates a buffer of capacity samples
func NewFrameBuffer(capacity int) *FrameBuffer {
	b := &FrameBuffer{}
	b.Allocate(capacity)
	return b
}

// Allocate replaces the buffer with a zeroed one of capacity samples
func (b *FrameBuffer) Allocate(capacity int) {
	if capacity <= 0 {
		b.samples = nil
		return
	}
	b.samples = make([]int16, capacity)
}

// Scratch returns the writable region, exactly Cap samples long.
// It is only valid for the duration of one fill.
func (b *FrameBuffer) Scratch() []int16 {
	return b.samples
}

// Cap returns the capacity in samples
func (b *FrameBuffer) Cap() int {
	return len(b.samples)
}

// Release drops the backing storage
func (b *FrameBuffer) Release() {
	b.samples = nil
}
