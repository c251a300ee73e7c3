// ABOUTME: PCM source package for sequential 16-bit sample reads
// ABOUTME: Provides the File reader used by the playout engine
// Package source reads 16-bit signed little-endian interleaved PCM.
//
// A File is a one-way cursor: once it reports End or IOError it closes its
// handle and every later Read repeats the terminal outcome. Headerless files
// are read as-is; files carrying a RIFF/WAVE header are accepted when they
// hold 16-bit PCM in the configured format, and only their data chunk is
// streamed.
//
// Example:
//
//	src, err := source.Open("/path/to/audio.pcm", audio.NewFormat(44100, 2))
//	n, outcome := src.Read(quantum)
package source
