// Package presence tracks the name of the person currently recognized in
// front of the sensor and fans changes out to interested parties.
package presence

import (
	"sync"
	"sync/atomic"
	"time"
)

// Snapshot is the recognized name at a point in time.
type Snapshot struct {
	Name      string    `json:"name"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Change describes a transition of the recognized name.
type Change struct {
	Name     string    `json:"name"`
	Previous string    `json:"previous,omitempty"`
	Time     time.Time `json:"timestamp"`
}

// Tracker holds the recognized name. Reads are lock-free; writes come from
// the frame processor.
type Tracker struct {
	name    atomic.Pointer[string]
	updated atomic.Int64

	mu        sync.Mutex
	listeners []func(Change)

	now func() time.Time
}

// NewTracker creates a Tracker with no one recognized.
func NewTracker() *Tracker {
	t := &Tracker{now: time.Now}
	empty := ""
	t.name.Store(&empty)
	return t
}

// Name returns the currently recognized name, or "" if nobody has been
// recognized yet.
func (t *Tracker) Name() string {
	return *t.name.Load()
}

// Snapshot returns the name together with the time it was last confirmed.
func (t *Tracker) Snapshot() Snapshot {
	s := Snapshot{Name: t.Name()}
	if ns := t.updated.Load(); ns != 0 {
		s.UpdatedAt = time.Unix(0, ns)
	}
	return s
}

// Set records a recognition of name. Listeners run only when the name
// differs from the previous one; they are called synchronously, outside any
// lock. Set reports whether the name changed.
func (t *Tracker) Set(name string) bool {
	now := t.now()
	prev := t.name.Swap(&name)
	t.updated.Store(now.UnixNano())
	if *prev == name {
		return false
	}

	t.mu.Lock()
	listeners := make([]func(Change), len(t.listeners))
	copy(listeners, t.listeners)
	t.mu.Unlock()

	c := Change{Name: name, Previous: *prev, Time: now}
	for _, fn := range listeners {
		fn(c)
	}
	return true
}

// OnChange registers fn to be called after every name change.
func (t *Tracker) OnChange(fn func(Change)) {
	t.mu.Lock()
	t.listeners = append(t.listeners, fn)
	t.mu.Unlock()
}
