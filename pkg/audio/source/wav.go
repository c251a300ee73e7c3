// ABOUTME: WAV container probe for the PCM source
// ABOUTME: Validates 16-bit PCM headers and seeks to the data chunk
package source

import (
	"fmt"
	"io"
	"os"

	"github.com/go-audio/wav"
	"github.com/soundvision/audio-playout/pkg/audio"
)

// wavFormatPCM is the WAVE_FORMAT_PCM tag
const wavFormatPCM = 1

// openWAV parses the header and returns a reader bounded to the data chunk
func openWAV(f *os.File, format audio.Format) (io.Reader, error) {
	d := wav.NewDecoder(f)
	d.ReadInfo()
	if err := d.Err(); err != nil {
		return nil, fmt.Errorf("failed to read wav header: %w", err)
	}

	if d.WavAudioFormat != wavFormatPCM || int(d.BitDepth) != audio.BitDepth {
		return nil, fmt.Errorf("%w: format tag %d, %d-bit (supported: PCM 16-bit)",
			ErrUnsupportedEncoding, d.WavAudioFormat, d.BitDepth)
	}

	if int(d.SampleRate) != format.SampleRate || int(d.NumChans) != format.Channels {
		return nil, fmt.Errorf("%w: file is %dHz/%dch, requested %s",
			ErrFormatMismatch, d.SampleRate, d.NumChans, format)
	}

	if err := d.FwdToPCM(); err != nil {
		return nil, fmt.Errorf("failed to locate wav data chunk: %w", err)
	}

	return io.LimitReader(f, int64(d.PCMSize)), nil
}
