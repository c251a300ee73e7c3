// ABOUTME: Entry point for the PCM tone generator
// ABOUTME: Writes a sine tone as raw 16-bit PCM or a WAV file for playout testing
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/soundvision/audio-playout/internal/tone"
	"github.com/soundvision/audio-playout/pkg/audio"
)

var (
	out      = flag.String("out", "tone.pcm", "Output path (.wav writes a WAV container, anything else raw PCM)")
	rate     = flag.Int("rate", 44100, "Sample rate in Hz")
	channels = flag.Int("channels", 2, "Channel count (1 or 2)")
	seconds  = flag.Float64("seconds", 5, "Duration in seconds")
	freq     = flag.Float64("freq", tone.DefaultFrequency, "Tone frequency in Hz")
)

func main() {
	flag.Parse()

	format := audio.NewFormat(*rate, *channels)
	if err := format.Validate(); err != nil {
		log.Fatalf("Invalid format: %v", err)
	}
	if *seconds <= 0 {
		log.Fatalf("Invalid duration: %v", *seconds)
	}

	src := tone.NewSource(*freq, format.SampleRate, format.Channels)
	frames := int(*seconds * float64(format.SampleRate))

	var err error
	if strings.EqualFold(filepath.Ext(*out), ".wav") {
		err = writeWAV(*out, src, format, frames)
	} else {
		err = writeRaw(*out, src, format, frames)
	}
	if err != nil {
		log.Fatalf("Failed to write tone: %v", err)
	}

	fmt.Printf("Wrote %s: %.1fs of %.0fHz at %s\n", *out, *seconds, *freq, format)
}

// writeRaw writes headerless little-endian PCM one quantum at a time
func writeRaw(path string, src *tone.Source, format audio.Format, frames int) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	samples := make([]int16, format.QuantumSamples())
	buf := make([]byte, format.QuantumBytes())

	for remaining := frames; remaining > 0; {
		n := min(remaining, format.QuantumFrames())
		chunk := samples[:n*format.Channels]
		src.Read(chunk)
		written := audio.EncodeInt16LE(buf, chunk)
		if _, err := w.Write(buf[:written]); err != nil {
			return fmt.Errorf("failed to write PCM: %w", err)
		}
		remaining -= n
	}

	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to flush PCM: %w", err)
	}
	return f.Close()
}

// writeWAV wraps the tone in a 16-bit PCM WAV container
func writeWAV(path string, src *tone.Source, format audio.Format, frames int) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	enc := wav.NewEncoder(f, format.SampleRate, audio.BitDepth, format.Channels, 1)

	samples := make([]int16, format.QuantumSamples())
	ints := make([]int, format.QuantumSamples())
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: format.Channels, SampleRate: format.SampleRate},
		SourceBitDepth: audio.BitDepth,
	}

	for remaining := frames; remaining > 0; {
		n := min(remaining, format.QuantumFrames())
		chunk := samples[:n*format.Channels]
		src.Read(chunk)
		for i, v := range chunk {
			ints[i] = int(v)
		}
		buf.Data = ints[:len(chunk)]
		if err := enc.Write(buf); err != nil {
			return fmt.Errorf("failed to write WAV: %w", err)
		}
		remaining -= n
	}

	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to finalize WAV: %w", err)
	}
	return f.Close()
}
