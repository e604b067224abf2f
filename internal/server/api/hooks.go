package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/ayusman/skelid/internal/hook"
)

// HookHandler lists discovered hooks and runs them on demand.
//
//	GET  /api/hooks              list hooks
//	POST /api/hooks/rescan       rediscover hooks
//	POST /api/hooks/{name}/test  run a hook with a sample event
type HookHandler struct {
	manager  *hook.Manager
	executor *hook.Executor
}

// NewHookHandler creates a HookHandler.
func NewHookHandler(m *hook.Manager, e *hook.Executor) *HookHandler {
	return &HookHandler{manager: m, executor: e}
}

type hookResponse struct {
	Name        string   `json:"name"`
	Version     string   `json:"version,omitempty"`
	Description string   `json:"description,omitempty"`
	Events      []string `json:"events"`
}

type listHooksResponse struct {
	Hooks []hookResponse `json:"hooks"`
}

type testHookRequest struct {
	Event string `json:"event"`
	Name  string `json:"name"`
}

// ServeHTTP implements the http.Handler interface.
func (h *HookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/hooks"), "/")

	switch {
	case path == "":
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.list(w)
	case path == "rescan":
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if err := h.manager.Discover(); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to discover hooks")
			return
		}
		h.list(w)
	case strings.HasSuffix(path, "/test"):
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.test(w, r, strings.TrimSuffix(path, "/test"))
	default:
		writeError(w, http.StatusNotFound, "Not found")
	}
}

func (h *HookHandler) list(w http.ResponseWriter) {
	hooks := h.manager.List()
	resp := listHooksResponse{Hooks: make([]hookResponse, 0, len(hooks))}
	for _, hk := range hooks {
		events := hk.Manifest.Events
		if events == nil {
			events = []string{}
		}
		resp.Hooks = append(resp.Hooks, hookResponse{
			Name:        hk.Manifest.Name,
			Version:     hk.Manifest.Version,
			Description: hk.Manifest.Description,
			Events:      events,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *HookHandler) test(w http.ResponseWriter, r *http.Request, name string) {
	hk, err := h.manager.Get(name)
	if err != nil {
		if errors.Is(err, hook.ErrHookNotFound) {
			writeError(w, http.StatusNotFound, "Hook not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get hook")
		return
	}

	req := testHookRequest{Event: hook.EventIdentified, Name: "test"}
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid JSON")
			return
		}
	}
	if req.Event != hook.EventIdentified && req.Event != hook.EventEnrolled {
		writeError(w, http.StatusBadRequest, "Invalid event")
		return
	}

	resp, err := h.executor.Execute(r.Context(), hk, hook.Event{Type: req.Event, Name: req.Name, Time: time.Now()})
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
