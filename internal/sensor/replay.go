package sensor

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/ayusman/skelid/internal/skeleton"
)

// maxLineSize bounds a single JSON frame; six bodies of 25 joints fit easily.
const maxLineSize = 1 << 20

// ReplaySource plays back a newline-delimited JSON recording.
type ReplaySource struct {
	path string
	fps  int
	loop bool

	mu      sync.Mutex
	file    *os.File
	scanner *bufio.Scanner
	line    int
	ticker  *time.Ticker
	closed  bool
}

// NewReplaySource creates a source reading frames from path.
func NewReplaySource(path string, fps int, loop bool) *ReplaySource {
	return &ReplaySource{path: path, fps: fps, loop: loop}
}

// Open opens the recording.
func (s *ReplaySource) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.rewind(); err != nil {
		return err
	}
	if s.fps > 0 {
		s.ticker = time.NewTicker(time.Second / time.Duration(s.fps))
	}
	s.closed = false
	return nil
}

func (s *ReplaySource) rewind() error {
	if s.file != nil {
		s.file.Close()
	}
	f, err := os.Open(s.path)
	if err != nil {
		return fmt.Errorf("open replay: %w", err)
	}
	s.file = f
	s.scanner = bufio.NewScanner(f)
	s.scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	s.line = 0
	return nil
}

// ReadFrame returns the next frame. Blank lines are skipped; a malformed
// line is reported with its line number and playback continues after it.
func (s *ReplaySource) ReadFrame() (skeleton.Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.file == nil {
		return skeleton.Frame{}, ErrSourceClosed
	}
	if s.ticker != nil {
		<-s.ticker.C
	}

	rewound := false
	for {
		if !s.scanner.Scan() {
			if err := s.scanner.Err(); err != nil {
				return skeleton.Frame{}, fmt.Errorf("read replay: %w", err)
			}
			if !s.loop || rewound {
				return skeleton.Frame{}, io.EOF
			}
			if err := s.rewind(); err != nil {
				return skeleton.Frame{}, err
			}
			rewound = true
			continue
		}
		s.line++

		data := bytes.TrimSpace(s.scanner.Bytes())
		if len(data) == 0 {
			continue
		}
		frame, err := skeleton.DecodeFrame(data)
		if err != nil {
			return skeleton.Frame{}, fmt.Errorf("%s:%d: %w", s.path, s.line, err)
		}
		return frame, nil
	}
}

// Close releases the file.
func (s *ReplaySource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	if s.ticker != nil {
		s.ticker.Stop()
		s.ticker = nil
	}
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}

// WriteRecording writes frames in the replay format.
func WriteRecording(w io.Writer, frames []skeleton.Frame) error {
	for i, f := range frames {
		data, err := skeleton.EncodeFrame(f)
		if err != nil {
			return fmt.Errorf("frame %d: %w", i, err)
		}
		if _, err := w.Write(append(data, '\n')); err != nil {
			return err
		}
	}
	return nil
}
