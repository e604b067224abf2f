package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/ayusman/skelid/internal/biometric"
	"github.com/ayusman/skelid/internal/store"
)

// TemplateHandler serves /api/templates and /api/templates/{id}.
type TemplateHandler struct {
	store *store.Store
}

// NewTemplateHandler creates a TemplateHandler backed by s.
func NewTemplateHandler(s *store.Store) *TemplateHandler {
	return &TemplateHandler{store: s}
}

// ServeHTTP routes collection and item requests.
func (h *TemplateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/templates"), "/")

	if id == "" {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.list(w, r)
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.get(w, r, id)
	case http.MethodDelete:
		h.delete(w, r, id)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

type templateResponse struct {
	ID        string             `json:"id"`
	Name      string             `json:"name"`
	Segments  map[string]float64 `json:"segments"`
	CreatedAt string             `json:"created_at"`
}

type listTemplatesResponse struct {
	Templates []templateResponse `json:"templates"`
	People    map[string]int     `json:"people"`
}

// toTemplateResponse lists only the segments the template has a value for.
func toTemplateResponse(t biometric.Template) templateResponse {
	segments := make(map[string]float64)
	for _, s := range biometric.Segments() {
		if v, ok := t.Value(s); ok {
			segments[s.String()] = v
		}
	}
	return templateResponse{
		ID:        t.ID,
		Name:      t.Name,
		Segments:  segments,
		CreatedAt: formatTime(t.CreatedAt),
	}
}

func (h *TemplateHandler) list(w http.ResponseWriter, r *http.Request) {
	templates, err := h.store.Templates().List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list templates")
		return
	}
	counts, err := h.store.Templates().CountByName(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to count templates")
		return
	}

	resp := listTemplatesResponse{
		Templates: make([]templateResponse, 0, len(templates)),
		People:    counts,
	}
	for _, t := range templates {
		resp.Templates = append(resp.Templates, toTemplateResponse(t))
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *TemplateHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	t, err := h.store.Templates().GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Template not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get template")
		return
	}

	writeJSON(w, http.StatusOK, toTemplateResponse(t))
}

func (h *TemplateHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.store.Templates().Delete(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Template not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete template")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
