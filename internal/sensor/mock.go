package sensor

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/ayusman/skelid/internal/skeleton"
)

// MockSource plays back in-memory frames for testing.
type MockSource struct {
	frames []skeleton.Frame
	index  int
	loop   bool
	fps    int
	err    error
	mu     sync.Mutex
	open   bool
	reads  int
}

// NewMockSource creates a source over frames.
func NewMockSource(frames []skeleton.Frame, loop bool) *MockSource {
	return &MockSource{
		frames: frames,
		loop:   loop,
	}
}

func (s *MockSource) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.open = true
	s.index = 0
	return nil
}

func (s *MockSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.open = false
	return nil
}

func (s *MockSource) ReadFrame() (skeleton.Frame, error) {
	s.mu.Lock()
	fps := s.fps
	s.mu.Unlock()
	if fps > 0 {
		time.Sleep(time.Second / time.Duration(fps))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.open {
		return skeleton.Frame{}, ErrSourceClosed
	}
	if s.err != nil {
		return skeleton.Frame{}, s.err
	}
	if len(s.frames) == 0 {
		return skeleton.Frame{}, fmt.Errorf("no frames available")
	}

	if s.index >= len(s.frames) {
		if !s.loop {
			return skeleton.Frame{}, io.EOF
		}
		s.index = 0
	}

	frame := s.frames[s.index]
	frame.Bodies = append([]skeleton.Body(nil), frame.Bodies...)
	if frame.Timestamp.IsZero() {
		frame.Timestamp = time.Now()
	}
	s.index++
	s.reads++

	return frame, nil
}

// SetFPS paces ReadFrame; 0 disables pacing.
func (s *MockSource) SetFPS(fps int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fps = fps
}

// SetFrames replaces the frame sequence.
func (s *MockSource) SetFrames(frames []skeleton.Frame) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames = frames
	s.index = 0
}

// SetError makes every following ReadFrame fail with err.
func (s *MockSource) SetError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// Reads returns how many frames have been delivered.
func (s *MockSource) Reads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reads
}

// IsOpen reports whether Open has been called without a matching Close.
func (s *MockSource) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open
}
