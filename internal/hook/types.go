// Package hook runs external programs when a person is enrolled or
// recognized.
package hook

import (
	"encoding/json"
	"slices"
	"time"
)

// Event names hooks can subscribe to.
const (
	EventEnrolled   = "enrolled"
	EventIdentified = "identified"
)

// Manifest describes a hook, read from hook.json in its directory.
type Manifest struct {
	Name        string          `json:"name"`
	Version     string          `json:"version"`
	Description string          `json:"description"`
	Executable  string          `json:"executable"`
	Events      []string        `json:"events"`
	Config      json.RawMessage `json:"config,omitempty"`
}

// Event is written as JSON to the hook's stdin.
type Event struct {
	Type       string          `json:"event"`
	Name       string          `json:"name"`
	Previous   string          `json:"previous,omitempty"`
	TemplateID string          `json:"template_id,omitempty"`
	Time       time.Time       `json:"timestamp"`
	Config     json.RawMessage `json:"config,omitempty"`
}

// Response is read from the hook's stdout.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Hook is a discovered hook and its location on disk.
type Hook struct {
	Manifest   Manifest
	Path       string
	Executable string
}

// Handles reports whether the hook subscribed to event.
func (h *Hook) Handles(event string) bool {
	return slices.Contains(h.Manifest.Events, event)
}
