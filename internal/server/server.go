// Package server provides the HTTP API of the skeleton identification
// service.
package server

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ayusman/skelid/internal/app"
	"github.com/ayusman/skelid/internal/hook"
	"github.com/ayusman/skelid/internal/presence"
	"github.com/ayusman/skelid/internal/responder"
	"github.com/ayusman/skelid/internal/server/api"
	"github.com/ayusman/skelid/internal/session"
	"github.com/ayusman/skelid/internal/skeleton"
	"github.com/ayusman/skelid/internal/store"
)

// maxQueryBytes bounds the body of POST /api/query.
const maxQueryBytes = 1 << 10

// StatusSource reports the enrolment state machine status.
type StatusSource interface {
	Status() session.Status
}

// Pipeline is the running frame pipeline.
type Pipeline interface {
	Stats() app.Stats
	IsEnabled() bool
	SetEnabled(bool)
	LatestFrame() (skeleton.Frame, bool)
}

// FrameEncoder renders a frame with a caption into an image.
type FrameEncoder func(f *skeleton.Frame, label string) ([]byte, error)

// Config holds the server configuration. Routes whose collaborators are
// nil are not registered.
type Config struct {
	StaticDir    string
	Store        *store.Store
	Presence     *presence.Tracker
	Machine      StatusSource
	Pipeline     Pipeline
	Hooks        *hook.Manager
	HookExecutor *hook.Executor
	Encoder      FrameEncoder
}

// Server is the HTTP server.
type Server struct {
	config Config
	mux    *http.ServeMux
	hub    *PresenceHub
	start  time.Time
}

// New creates a Server with the given configuration.
func New(config Config) *Server {
	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		start:  time.Now(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)

	if s.config.Presence != nil {
		s.hub = NewPresenceHub(s.config.Presence)
		s.mux.HandleFunc("/api/presence", s.handlePresence)
		s.mux.HandleFunc("/api/query", s.handleQuery)
		s.mux.Handle("/api/presence/stream", s.hub)
	}

	if s.config.Machine != nil || s.config.Pipeline != nil {
		s.mux.HandleFunc("/api/status", s.handleStatus)
	}

	if s.config.Store != nil {
		templates := api.NewTemplateHandler(s.config.Store)
		samples := api.NewSamplesHandler(s.config.Store)

		router := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if strings.HasSuffix(r.URL.Path, "/samples") {
				samples.ServeHTTP(w, r)
				return
			}
			templates.ServeHTTP(w, r)
		})
		s.mux.Handle("/api/templates", router)
		s.mux.Handle("/api/templates/", router)
		s.mux.Handle("/api/sessions/", samples)
	}

	if s.config.Hooks != nil {
		executor := s.config.HookExecutor
		if executor == nil {
			executor = hook.NewExecutor(hook.DefaultTimeout)
		}
		hooks := api.NewHookHandler(s.config.Hooks, executor)
		s.mux.Handle("/api/hooks", hooks)
		s.mux.Handle("/api/hooks/", hooks)
	}

	if s.config.Pipeline != nil && s.config.Encoder != nil {
		s.mux.Handle("/api/skeleton.jpg", NewSnapshotHandler(s.config.Pipeline, s.names(), s.config.Encoder))
		s.mux.Handle("/api/stream", NewStreamHandler(s.config.Pipeline, s.names(), s.config.Encoder))
	}

	if s.config.StaticDir != "" {
		s.mux.Handle("/", http.FileServer(http.Dir(s.config.StaticDir)))
	}
}

// names returns the caption source for rendered frames.
func (s *Server) names() responder.NameSource {
	if s.config.Presence == nil {
		return noNames{}
	}
	return s.config.Presence
}

type noNames struct{}

func (noNames) Name() string { return "" }

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Hub returns the presence stream hub, or nil without a presence tracker.
func (s *Server) Hub() *PresenceHub {
	return s.hub
}

// handleHealth handles GET /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"uptime": time.Since(s.start).String(),
	})
}

// handlePresence handles GET /api/presence.
func (s *Server) handlePresence(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, s.config.Presence.Snapshot())
}

// handleQuery answers the "Who's there?" query over HTTP with the same
// semantics as the ZeroMQ responder: the name for the exact query, an
// empty body for anything else.
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxQueryBytes))
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if err != nil {
		w.WriteHeader(http.StatusOK)
		return
	}
	io.WriteString(w, responder.Reply(s.config.Presence, string(body)))
}

type pipelineStatus struct {
	Enabled bool      `json:"enabled"`
	Stats   app.Stats `json:"stats"`
}

type statusResponse struct {
	Session  *session.Status `json:"session,omitempty"`
	Pipeline *pipelineStatus `json:"pipeline,omitempty"`
}

type updateStatusRequest struct {
	Enabled *bool `json:"enabled"`
}

// handleStatus handles GET and PUT /api/status. PUT toggles frame
// processing.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
	case http.MethodPut:
		if s.config.Pipeline == nil {
			writeError(w, http.StatusConflict, "No pipeline running")
			return
		}
		var req updateStatusRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Enabled == nil {
			writeError(w, http.StatusBadRequest, "Invalid JSON")
			return
		}
		s.config.Pipeline.SetEnabled(*req.Enabled)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var resp statusResponse
	if s.config.Machine != nil {
		st := s.config.Machine.Status()
		resp.Session = &st
	}
	if s.config.Pipeline != nil {
		resp.Pipeline = &pipelineStatus{
			Enabled: s.config.Pipeline.IsEnabled(),
			Stats:   s.config.Pipeline.Stats(),
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// ListenAndServe starts the HTTP server on the given address.
func (s *Server) ListenAndServe(addr string) error {
	return http.ListenAndServe(addr, s)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
