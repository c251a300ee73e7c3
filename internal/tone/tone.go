// ABOUTME: Sine tone generator for PCM fixtures
// ABOUTME: Produces interleaved 16-bit samples at a configurable frequency
package tone

import (
	"math"
	"sync"
)

// DefaultFrequency is A4
const DefaultFrequency = 440.0

// Source generates a sine tone duplicated across all channels
type Source struct {
	sampleIndex uint64
	sampleMu    sync.Mutex
	frequency   float64
	sampleRate  int
	channels    int
	amplitude   float64
}

// NewSource creates a new tone generator at half scale
func NewSource(frequency float64, sampleRate, channels int) *Source {
	if frequency <= 0 {
		frequency = DefaultFrequency
	}
	return &Source{
		frequency:  frequency,
		sampleRate: sampleRate,
		channels:   channels,
		amplitude:  0.5,
	}
}

// Read fills whole frames of samples and returns the number of samples written
func (s *Source) Read(samples []int16) int {
	s.sampleMu.Lock()
	defer s.sampleMu.Unlock()

	numFrames := len(samples) / s.channels

	for i := 0; i < numFrames; i++ {
		t := float64(s.sampleIndex+uint64(i)) / float64(s.sampleRate)
		value := int16(math.Sin(2*math.Pi*s.frequency*t) * 32767.0 * s.amplitude)

		for ch := 0; ch < s.channels; ch++ {
			samples[i*s.channels+ch] = value
		}
	}

	s.sampleIndex += uint64(numFrames)

	return numFrames * s.channels
}

// SampleRate returns the generator rate
func (s *Source) SampleRate() int { return s.sampleRate }

// Channels returns the generator channel count
func (s *Source) Channels() int { return s.channels }
