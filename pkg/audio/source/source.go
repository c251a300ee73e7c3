// ABOUTME: PCM file source with explicit read outcomes
// ABOUTME: Reads 16-bit LE interleaved samples without allocating per read
package source

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/soundvision/audio-playout/pkg/audio"
)

// Outcome is the result of a single Read
type Outcome int

const (
	// Full means every requested sample was delivered
	Full Outcome = iota
	// End means fewer samples were available and the source is exhausted
	End
	// IOError means the underlying read failed and the source is closed
	IOError
)

func (o Outcome) String() string {
	switch o {
	case Full:
		return "full"
	case End:
		return "end"
	case IOError:
		return "io-error"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Terminal reports whether no further reads are possible after o
func (o Outcome) Terminal() bool {
	return o != Full
}

// Container names the on-disk layout of a source
type Container string

const (
	ContainerRaw Container = "raw"
	ContainerWAV Container = "wav"
)

// readAhead is the bufio size in front of the file handle
const readAhead = 16 * 1024

var (
	// ErrFormatMismatch is returned when a WAV header disagrees with the requested format
	ErrFormatMismatch = errors.New("source format mismatch")
	// ErrUnsupportedEncoding is returned for WAV files that are not 16-bit PCM
	ErrUnsupportedEncoding = errors.New("unsupported wav encoding")
	// ErrNoBuffer is returned when the format leaves no room for one frame
	ErrNoBuffer = errors.New("source read buffer is empty")
)

// File is a sequential PCM reader
type File struct {
	name      string
	container Container
	format    audio.Format
	closer    io.Closer
	r         io.Reader
	buf       []byte

	terminal Outcome
	done     bool
	err      error

	closeOnce sync.Once
	closeErr  error
}

// Open opens a PCM file for the given format. The packed read buffer is
// sized for one quantum of that format.
func Open(path string, format audio.Format) (*File, error) {
	if err := format.Validate(); err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PCM file: %w", err)
	}

	container, r, err := probe(f, format)
	if err != nil {
		f.Close()
		return nil, err
	}

	s := newFile(path, container, format, r, f)
	return s, nil
}

// New wraps an already-open headerless PCM stream
func New(rc io.ReadCloser, format audio.Format) (*File, error) {
	if err := format.Validate(); err != nil {
		return nil, err
	}
	return newFile("stream", ContainerRaw, format, rc, rc), nil
}

func newFile(name string, container Container, format audio.Format, r io.Reader, c io.Closer) *File {
	return &File{
		name:      name,
		container: container,
		format:    format,
		closer:    c,
		r:         bufio.NewReaderSize(r, readAhead),
		buf:       make([]byte, format.QuantumBytes()),
	}
}

// probe detects a RIFF/WAVE header and positions the reader at the PCM data
func probe(f *os.File, format audio.Format) (Container, io.Reader, error) {
	hdr := make([]byte, 12)
	n, err := f.ReadAt(hdr, 0)
	if err != nil && err != io.EOF {
		return "", nil, fmt.Errorf("failed to read PCM file header: %w", err)
	}

	if n < len(hdr) || !bytes.Equal(hdr[0:4], []byte("RIFF")) || !bytes.Equal(hdr[8:12], []byte("WAVE")) {
		return ContainerRaw, f, nil
	}

	r, err := openWAV(f, format)
	if err != nil {
		return "", nil, err
	}
	return ContainerWAV, r, nil
}

// Read fills dst with the next len(dst) samples. On End or IOError the
// samples read before the failure are in dst[:n] and the handle is closed.
func (s *File) Read(dst []int16) (int, Outcome) {
	if s.done {
		return 0, s.terminal
	}
	if len(s.buf) == 0 && len(dst) > 0 {
		return 0, s.finish(IOError, ErrNoBuffer)
	}

	total := 0
	for total < len(dst) {
		want := len(dst) - total
		if want*audio.BytesPerSample > len(s.buf) {
			want = len(s.buf) / audio.BytesPerSample
		}

		n, err := io.ReadFull(s.r, s.buf[:want*audio.BytesPerSample])
		total += audio.DecodeInt16LE(dst[total:], s.buf[:n])

		if err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				return total, s.finish(End, nil)
			}
			return total, s.finish(IOError, err)
		}
	}

	return total, Full
}

func (s *File) finish(o Outcome, err error) Outcome {
	s.done = true
	s.terminal = o
	s.err = err
	s.Close()
	return o
}

// Exhausted reports whether the source has reached a terminal outcome
func (s *File) Exhausted() bool { return s.done }

// Err returns the read error behind an IOError outcome
func (s *File) Err() error { return s.err }

// Format returns the source format
func (s *File) Format() audio.Format { return s.format }

// Container returns the detected file layout
func (s *File) Container() Container { return s.container }

// Name returns the path the source was opened from
func (s *File) Name() string { return s.name }

// Close releases the file handle. It is safe to call more than once.
func (s *File) Close() error {
	s.closeOnce.Do(func() {
		s.done = true
		if s.terminal == Full {
			s.terminal = End
		}
		if s.closer != nil {
			s.closeErr = s.closer.Close()
		}
	})
	return s.closeErr
}
