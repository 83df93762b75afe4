package process

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/Semphriss/SDL/internal/metrics"
)

// Mode tags a stream with its single allowed transfer direction.
type Mode uint8

const (
	// ReadOnly streams carry the child's stdout or stderr to the parent.
	ReadOnly Mode = iota + 1
	// WriteOnly streams carry parent data to the child's stdin.
	WriteOnly
)

func (m Mode) String() string {
	switch m {
	case ReadOnly:
		return "read-only"
	case WriteOnly:
		return "write-only"
	default:
		return fmt.Sprintf("mode(%d)", uint8(m))
	}
}

// Stream adapts one parent-side pipe end into a byte stream. Each stream is
// bound to exactly one direction at construction; calling the disallowed
// operation fails with ErrCapabilityDenied and performs no I/O.
type Stream struct {
	name   string
	mode   Mode
	file   *os.File
	owner  *Handle
	closed bool
}

func newStream(owner *Handle, name string, mode Mode, file *os.File) *Stream {
	return &Stream{name: name, mode: mode, file: file, owner: owner}
}

// Name returns the stream's property key, such as "process.stdout".
func (s *Stream) Name() string {
	return s.name
}

// Mode returns the stream's allowed transfer direction.
func (s *Stream) Mode() Mode {
	return s.mode
}

// Read transfers bytes from the child into p. It blocks until data is
// available or the child's end reaches EOF, which is reported as io.EOF.
func (s *Stream) Read(p []byte) (int, error) {
	if s.mode != ReadOnly {
		return 0, fmt.Errorf("%w: %s is %s", ErrCapabilityDenied, s.name, s.mode)
	}
	if s.closed {
		return 0, fmt.Errorf("%w: %s", ErrAlreadyClosed, s.name)
	}
	n, err := s.file.Read(p)
	if err != nil && !errors.Is(err, io.EOF) {
		return n, fmt.Errorf("%w: read %s: %v", ErrIO, s.name, err)
	}
	return n, err
}

// Write transfers bytes from p to the child. It blocks while the pipe is
// full until the child drains it or closes its end.
func (s *Stream) Write(p []byte) (int, error) {
	if s.mode != WriteOnly {
		return 0, fmt.Errorf("%w: %s is %s", ErrCapabilityDenied, s.name, s.mode)
	}
	if s.closed {
		return 0, fmt.Errorf("%w: %s", ErrAlreadyClosed, s.name)
	}
	n, err := s.file.Write(p)
	if err != nil {
		return n, fmt.Errorf("%w: write %s: %v", ErrIO, s.name, err)
	}
	return n, nil
}

// Close releases the underlying pipe end and removes the stream from the
// owning handle's property bag, so later lookups report the stream as gone.
// A second close fails with ErrAlreadyClosed.
func (s *Stream) Close() error {
	if s.closed {
		return fmt.Errorf("%w: %s", ErrAlreadyClosed, s.name)
	}
	s.closed = true
	s.owner.bag.Clear(s.name)
	metrics.StreamClosed()
	if err := s.file.Close(); err != nil {
		return fmt.Errorf("%w: close %s: %v", ErrIO, s.name, err)
	}
	return nil
}
