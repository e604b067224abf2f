package hook

import (
	"context"
	"sync"
	"time"

	"github.com/ayusman/skelid/internal/biometric"
	"github.com/ayusman/skelid/internal/monitoring"
	"github.com/ayusman/skelid/internal/presence"
)

// Dispatcher fires events at every subscribed hook in the background so
// the frame loop never waits on an external program.
type Dispatcher struct {
	manager  *Manager
	executor *Executor
	wg       sync.WaitGroup
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(manager *Manager, executor *Executor) *Dispatcher {
	return &Dispatcher{manager: manager, executor: executor}
}

// Fire runs every hook subscribed to ev.Type. Hooks run concurrently;
// failures are logged.
func (d *Dispatcher) Fire(ev Event) {
	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}
	for _, h := range d.manager.For(ev.Type) {
		d.wg.Add(1)
		go func(h *Hook) {
			defer d.wg.Done()
			resp, err := d.executor.Execute(context.Background(), h, ev)
			if err != nil {
				monitoring.Logf("%v", err)
				return
			}
			if !resp.Success {
				monitoring.Logf("hook %s reported failure: %s", h.Manifest.Name, resp.Error)
			}
		}(h)
	}
}

// Wait blocks until every fired hook has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Enrolled fires an enrolled event for t.
func (d *Dispatcher) Enrolled(t biometric.Template) {
	d.Fire(Event{Type: EventEnrolled, Name: t.Name, TemplateID: t.ID, Time: t.CreatedAt})
}

// Identified fires an identified event for a presence change. Changes back
// to nobody are ignored.
func (d *Dispatcher) Identified(c presence.Change) {
	if c.Name == "" {
		return
	}
	d.Fire(Event{Type: EventIdentified, Name: c.Name, Previous: c.Previous, Time: c.Time})
}
