// Package app wires a frame source to the session state machine.
package app

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/ayusman/skelid/internal/monitoring"
	"github.com/ayusman/skelid/internal/sensor"
	"github.com/ayusman/skelid/internal/skeleton"
)

// FrameProcessor consumes one frame at a time. session.Machine implements it.
type FrameProcessor interface {
	ProcessFrame(ctx context.Context, f *skeleton.Frame) error
}

// Config holds the application's collaborators.
type Config struct {
	Source    sensor.Source
	Processor FrameProcessor
	// Lossless makes the reader wait for the processor instead of dropping
	// frames. Used for recordings, where nothing is gained by skipping.
	Lossless bool
}

// Stats counts frames seen by the pipeline.
type Stats struct {
	Read      uint64 `json:"read"`
	Processed uint64 `json:"processed"`
	Dropped   uint64 `json:"dropped"`
	Skipped   uint64 `json:"skipped"`
}

// App reads frames from a source and hands them to a single processor.
type App struct {
	config Config

	enabled atomic.Bool
	latest  atomic.Pointer[skeleton.Frame]

	read      atomic.Uint64
	processed atomic.Uint64
	dropped   atomic.Uint64
	skipped   atomic.Uint64

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates an App. Processing starts enabled.
func New(config Config) *App {
	a := &App{config: config}
	a.enabled.Store(true)
	return a
}

// SetEnabled pauses or resumes processing. While paused frames are still
// read, so the latest frame stays current, but none reach the processor.
func (a *App) SetEnabled(enabled bool) {
	a.enabled.Store(enabled)
}

// IsEnabled returns whether frames are being processed.
func (a *App) IsEnabled() bool {
	return a.enabled.Load()
}

// LatestFrame returns the most recently read frame.
func (a *App) LatestFrame() (skeleton.Frame, bool) {
	f := a.latest.Load()
	if f == nil {
		return skeleton.Frame{}, false
	}
	return *f, true
}

// Stats returns the frame counters.
func (a *App) Stats() Stats {
	return Stats{
		Read:      a.read.Load(),
		Processed: a.processed.Load(),
		Dropped:   a.dropped.Load(),
		Skipped:   a.skipped.Load(),
	}
}

// Start opens the source and begins the pipeline. It returns immediately;
// use Done to learn when a finite source has been fully processed.
func (a *App) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.done != nil {
		return nil
	}
	if a.config.Source == nil || a.config.Processor == nil {
		return errors.New("app needs a source and a processor")
	}

	if err := a.config.Source.Open(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	a.done = make(chan struct{})

	go a.runPipeline(ctx, a.done)

	monitoring.Logf("frame pipeline started")
	return nil
}

// Done is closed when the pipeline has stopped, either because the source
// ran out or because Stop was called. It is nil before Start.
func (a *App) Done() <-chan struct{} {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.done
}

// Stop halts the pipeline, closes the source, and waits for in-flight
// processing to finish.
func (a *App) Stop() {
	a.mu.Lock()
	cancel, done := a.cancel, a.done
	a.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	if err := a.config.Source.Close(); err != nil {
		monitoring.Logf("error closing source: %v", err)
	}
	<-done

	a.mu.Lock()
	a.cancel = nil
	a.done = nil
	a.mu.Unlock()

	monitoring.Logf("frame pipeline stopped")
}
