// ABOUTME: Audio type definitions
// ABOUTME: Defines the playout format, quantum sizing and int16 sample codecs
package audio

import (
	"encoding/binary"
	"fmt"
	"time"
)

const (
	// BitDepth is the only sample width the playout path handles
	BitDepth = 16

	// BytesPerSample is the packed size of one 16-bit sample
	BytesPerSample = 2

	// QuantaPerSecond is the number of callbacks per second of audio (10ms each)
	QuantaPerSecond = 100

	// MaxChannels is the widest interleaving supported (stereo)
	MaxChannels = 2
)

// Format describes a PCM stream format
type Format struct {
	SampleRate int
	Channels   int
	BitDepth   int
}

// NewFormat returns a 16-bit format for the given rate and channel count
func NewFormat(sampleRate, channels int) Format {
	return Format{
		SampleRate: sampleRate,
		Channels:   channels,
		BitDepth:   BitDepth,
	}
}

// Validate reports whether the format can be played out
func (f Format) Validate() error {
	if f.SampleRate < QuantaPerSecond {
		return fmt.Errorf("invalid sample rate: %d (minimum %d)", f.SampleRate, QuantaPerSecond)
	}
	if f.Channels < 1 || f.Channels > MaxChannels {
		return fmt.Errorf("unsupported channel count: %d (supported: 1, 2)", f.Channels)
	}
	if f.BitDepth != BitDepth {
		return fmt.Errorf("unsupported bit depth: %d (supported: 16)", f.BitDepth)
	}
	return nil
}

// QuantumFrames returns the number of frames in one 10ms quantum
func (f Format) QuantumFrames() int {
	return f.SampleRate / QuantaPerSecond
}

// QuantumSamples returns the number of interleaved samples in one quantum
func (f Format) QuantumSamples() int {
	return f.QuantumFrames() * f.Channels
}

// QuantumBytes returns the packed size of one quantum
func (f Format) QuantumBytes() int {
	return f.QuantumSamples() * BytesPerSample
}

// BytesPerFrame returns the packed size of one frame
func (f Format) BytesPerFrame() int {
	return f.Channels * BytesPerSample
}

// QuantumDuration returns the wall-clock length of one quantum
func (f Format) QuantumDuration() time.Duration {
	return time.Second / QuantaPerSecond
}

// String returns a short human-readable description
func (f Format) String() string {
	return fmt.Sprintf("%dHz/%dch/%dbit", f.SampleRate, f.Channels, f.BitDepth)
}

// DecodeInt16LE unpacks little-endian bytes into dst and returns the number
// of whole samples written. A trailing odd byte is ignored.
func DecodeInt16LE(dst []int16, src []byte) int {
	n := len(src) / BytesPerSample
	if n > len(dst) {
		n = len(dst)
	}
	for i := 0; i < n; i++ {
		dst[i] = int16(binary.LittleEndian.Uint16(src[i*2:]))
	}
	return n
}

// EncodeInt16LE packs samples into dst as little-endian bytes and returns
// the number of bytes written
func EncodeInt16LE(dst []byte, samples []int16) int {
	n := len(samples)
	if n*BytesPerSample > len(dst) {
		n = len(dst) / BytesPerSample
	}
	for i := 0; i < n; i++ {
		binary.LittleEndian.PutUint16(dst[i*2:], uint16(samples[i]))
	}
	return n * BytesPerSample
}
