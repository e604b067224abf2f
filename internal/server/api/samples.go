package api

import (
	"net/http"
	"strings"

	"github.com/ayusman/skelid/internal/store"
)

// SamplesHandler serves the raw enrolment samples behind a template,
// /api/templates/{id}/samples, and those of a session,
// /api/sessions/{id}/samples.
type SamplesHandler struct {
	store *store.Store
}

// NewSamplesHandler creates a SamplesHandler backed by s.
func NewSamplesHandler(s *store.Store) *SamplesHandler {
	return &SamplesHandler{store: s}
}

type listSamplesResponse struct {
	Samples []sampleResponse `json:"samples"`
}

type sampleResponse struct {
	ID          int64              `json:"id"`
	SessionID   string             `json:"session_id"`
	TemplateID  string             `json:"template_id,omitempty"`
	Name        string             `json:"name"`
	SampleIndex int                `json:"sample_index"`
	Data        map[string]float64 `json:"data"`
	CreatedAt   string             `json:"created_at"`
}

// ServeHTTP implements the http.Handler interface.
func (h *SamplesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var (
		kind string
		id   string
	)
	switch {
	case strings.HasPrefix(r.URL.Path, "/api/templates/"):
		kind, id = "template", strings.TrimPrefix(r.URL.Path, "/api/templates/")
	case strings.HasPrefix(r.URL.Path, "/api/sessions/"):
		kind, id = "session", strings.TrimPrefix(r.URL.Path, "/api/sessions/")
	}

	parts := strings.Split(id, "/")
	if kind == "" || len(parts) != 2 || parts[0] == "" || parts[1] != "samples" {
		writeError(w, http.StatusNotFound, "Not found")
		return
	}
	id = parts[0]

	switch r.Method {
	case http.MethodGet:
		h.list(w, r, kind, id)
	case http.MethodDelete:
		if kind != "session" {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.deleteSession(w, r, id)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *SamplesHandler) list(w http.ResponseWriter, r *http.Request, kind, id string) {
	var (
		samples []store.Sample
		err     error
	)
	if kind == "template" {
		samples, err = h.store.Samples().GetByPersonID(r.Context(), id)
	} else {
		samples, err = h.store.Samples().GetBySessionID(r.Context(), id)
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list samples")
		return
	}

	resp := listSamplesResponse{
		Samples: make([]sampleResponse, 0, len(samples)),
	}
	for _, s := range samples {
		resp.Samples = append(resp.Samples, sampleResponse{
			ID:          s.ID,
			SessionID:   s.SessionID,
			TemplateID:  s.PersonID,
			Name:        s.Name,
			SampleIndex: s.SampleIndex,
			Data:        s.Data,
			CreatedAt:   formatTime(s.CreatedAt),
		})
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *SamplesHandler) deleteSession(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.store.Samples().DeleteBySessionID(r.Context(), id); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete samples")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
