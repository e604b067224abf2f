package app

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/ayusman/skelid/internal/monitoring"
	"github.com/ayusman/skelid/internal/sensor"
	"github.com/ayusman/skelid/internal/skeleton"
)

// dropLogEvery controls how often dropped frames are reported.
const dropLogEvery = 100

// readErrorBackoff keeps a failing source from spinning.
const readErrorBackoff = 100 * time.Millisecond

// runPipeline runs the reader in the calling goroutine and the processor in
// another. The hand-off channel holds one frame: a frame that arrives while
// the processor is busy and the slot is taken is dropped.
func (a *App) runPipeline(ctx context.Context, done chan struct{}) {
	frames := make(chan skeleton.Frame, 1)
	processorDone := make(chan struct{})

	go func() {
		defer close(processorDone)
		for f := range frames {
			if err := a.config.Processor.ProcessFrame(ctx, &f); err != nil {
				if ctx.Err() != nil {
					return
				}
				monitoring.Logf("error processing frame: %v", err)
			}
			a.processed.Add(1)
		}
	}()

	a.readLoop(ctx, frames)
	close(frames)
	<-processorDone
	close(done)
}

func (a *App) readLoop(ctx context.Context, frames chan<- skeleton.Frame) {
	for {
		if ctx.Err() != nil {
			return
		}

		frame, err := a.config.Source.ReadFrame()
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, sensor.ErrSourceClosed) {
				if !errors.Is(err, sensor.ErrSourceClosed) {
					monitoring.Logf("source exhausted after %d frames", a.read.Load())
				}
				return
			}
			monitoring.Logf("error reading frame: %v", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(readErrorBackoff):
			}
			continue
		}

		a.read.Add(1)
		a.latest.Store(&frame)

		if !a.IsEnabled() {
			a.skipped.Add(1)
			continue
		}

		if a.config.Lossless {
			select {
			case frames <- frame:
			case <-ctx.Done():
				return
			}
			continue
		}

		select {
		case frames <- frame:
		default:
			if n := a.dropped.Add(1); n%dropLogEvery == 1 {
				monitoring.Logf("processor busy, %d frames dropped so far", n)
			}
		}
	}
}
