// Package sensor delivers skeleton frames to the pipeline from a recorded
// file, an external capture bridge, or canned test data.
package sensor

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ayusman/skelid/internal/skeleton"
)

// ErrSourceClosed is returned by ReadFrame after Close.
var ErrSourceClosed = errors.New("source closed")

// Source produces skeleton frames. ReadFrame blocks until a frame is
// available and returns io.EOF once a finite source is exhausted.
type Source interface {
	Open() error
	ReadFrame() (skeleton.Frame, error)
	Close() error
}

// Config selects and configures a Source.
type Config struct {
	// Kind is "replay", "exec" or "mock".
	Kind string
	// Target is the replay file path or the bridge command line.
	Target string
	// FPS paces replay and mock sources; 0 delivers as fast as read.
	FPS int
	// Loop restarts replay and mock sources at the end.
	Loop bool
}

// New builds the Source described by cfg.
func New(cfg Config) (Source, error) {
	switch strings.ToLower(cfg.Kind) {
	case "replay":
		if cfg.Target == "" {
			return nil, fmt.Errorf("replay source needs a file path")
		}
		return NewReplaySource(cfg.Target, cfg.FPS, cfg.Loop), nil
	case "exec":
		args := strings.Fields(cfg.Target)
		if len(args) == 0 {
			return nil, fmt.Errorf("exec source needs a command")
		}
		return NewBridgeSource(args[0], args[1:]...), nil
	case "mock", "":
		src := NewMockSource([]skeleton.Frame{skeleton.SingleBodyFrame(skeleton.UniformBody(0.45))}, true)
		src.SetFPS(cfg.FPS)
		return src, nil
	default:
		return nil, fmt.Errorf("unknown source kind %q", cfg.Kind)
	}
}
