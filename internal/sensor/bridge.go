package sensor

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"

	"github.com/ayusman/skelid/internal/skeleton"
)

// BridgeSource runs an external capture program that writes one JSON frame
// per line on stdout. The program is started by Open and stopped by Close.
type BridgeSource struct {
	name string
	args []string

	mu      sync.Mutex
	cmd     *exec.Cmd
	stdout  io.ReadCloser
	reader  *bufio.Reader
	started bool
}

// NewBridgeSource creates a source for the given command.
func NewBridgeSource(name string, args ...string) *BridgeSource {
	return &BridgeSource{name: name, args: args}
}

// Open starts the bridge process.
func (s *BridgeSource) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	cmd := exec.Command(s.name, s.args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("create stdout pipe: %w", err)
	}
	// Bridge diagnostics go straight to our stderr.
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start capture bridge: %w", err)
	}

	s.cmd = cmd
	s.stdout = stdout
	s.reader = bufio.NewReaderSize(stdout, 64*1024)
	s.started = true
	return nil
}

// ReadFrame blocks for the next line from the bridge. io.EOF means the
// bridge exited.
func (s *BridgeSource) ReadFrame() (skeleton.Frame, error) {
	s.mu.Lock()
	reader := s.reader
	started := s.started
	s.mu.Unlock()

	if !started {
		return skeleton.Frame{}, ErrSourceClosed
	}

	for {
		line, err := reader.ReadBytes('\n')
		line = bytes.TrimSpace(line)
		if len(line) > 0 {
			frame, derr := skeleton.DecodeFrame(line)
			if derr != nil {
				return skeleton.Frame{}, fmt.Errorf("capture bridge: %w", derr)
			}
			return frame, nil
		}
		if err != nil {
			s.mu.Lock()
			closed := !s.started
			s.mu.Unlock()
			if closed {
				return skeleton.Frame{}, ErrSourceClosed
			}
			return skeleton.Frame{}, err
		}
	}
}

// Close stops the bridge and waits for it to exit.
func (s *BridgeSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	s.started = false

	if s.cmd.Process != nil {
		s.cmd.Process.Kill()
	}
	err := s.cmd.Wait()
	s.cmd = nil
	s.stdout = nil

	// A killed bridge is the normal way to stop.
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return nil
	}
	return err
}
