// ABOUTME: Audio fundamentals package providing core types and utilities
// ABOUTME: Defines Format, playout quantum arithmetic and 16-bit sample codecs
// Package audio provides fundamental audio types for 16-bit PCM playout.
//
// This package defines the types shared by the source, output and playout
// packages:
//   - Format: Describes the stream format (sample rate, channels, bit depth)
//   - Quantum: One callback's worth of audio, fixed at 10ms
//
// It also provides little-endian codecs between packed bytes and int16
// samples that never allocate, so they are safe to call from a real-time
// audio callback.
//
// Example:
//
//	format := audio.Format{
//	    SampleRate: 44100,
//	    Channels:   2,
//	    BitDepth:   16,
//	}
//
//	// 441 frames, 882 samples
//	frames := format.QuantumFrames()
//	samples := format.QuantumSamples()
package audio
