package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/skelid/internal/app"
	"github.com/ayusman/skelid/internal/presence"
	"github.com/ayusman/skelid/internal/responder"
	"github.com/ayusman/skelid/internal/session"
	"github.com/ayusman/skelid/internal/skeleton"
)

type fakeMachine struct {
	status session.Status
}

func (m fakeMachine) Status() session.Status { return m.status }

type fakePipeline struct {
	mu      sync.Mutex
	enabled bool
	stats   app.Stats
	frame   *skeleton.Frame
}

func (p *fakePipeline) Stats() app.Stats { return p.stats }

func (p *fakePipeline) IsEnabled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.enabled
}

func (p *fakePipeline) SetEnabled(v bool) {
	p.mu.Lock()
	p.enabled = v
	p.mu.Unlock()
}

func (p *fakePipeline) LatestFrame() (skeleton.Frame, bool) {
	if p.frame == nil {
		return skeleton.Frame{}, false
	}
	return *p.frame, true
}

// textEncoder stands in for the JPEG renderer.
func textEncoder(f *skeleton.Frame, label string) ([]byte, error) {
	return []byte(label + ":" + string(rune('0'+len(f.Bodies)))), nil
}

func do(s http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func TestServer_Health(t *testing.T) {
	s := New(Config{})

	t.Run("returns 200 with JSON response", func(t *testing.T) {
		rec := do(s, http.MethodGet, "/api/health", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

		var response map[string]any
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
		assert.Equal(t, "ok", response["status"])
		assert.Contains(t, response, "uptime")
	})

	t.Run("only allows GET method", func(t *testing.T) {
		for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch} {
			assert.Equal(t, http.StatusMethodNotAllowed, do(s, method, "/api/health", "").Code, method)
		}
	})
}

func TestServer_NotFound(t *testing.T) {
	s := New(Config{})

	assert.Equal(t, http.StatusNotFound, do(s, http.MethodGet, "/api/nonexistent", "").Code)
	assert.Equal(t, http.StatusNotFound, do(s, http.MethodGet, "/api/presence", "").Code,
		"presence routes need a tracker")
	assert.Equal(t, http.StatusNotFound, do(s, http.MethodGet, "/", "").Code,
		"root needs a static dir")
}

func TestServer_StaticFiles(t *testing.T) {
	dir := t.TempDir()
	index := "<html><body>Who's there?</body></html>"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte(index), 0o644))

	s := New(Config{StaticDir: dir})

	rec := do(s, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, index, rec.Body.String())

	assert.Equal(t, http.StatusNotFound, do(s, http.MethodGet, "/missing.html", "").Code)
}

func TestServer_Presence(t *testing.T) {
	tracker := presence.NewTracker()
	s := New(Config{Presence: tracker})

	rec := do(s, http.MethodGet, "/api/presence", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var snap presence.Snapshot
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&snap))
	assert.Equal(t, "", snap.Name)
	assert.True(t, snap.UpdatedAt.IsZero())

	tracker.Set("alice")

	rec = do(s, http.MethodGet, "/api/presence", "")
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&snap))
	assert.Equal(t, "alice", snap.Name)
	assert.False(t, snap.UpdatedAt.IsZero())

	assert.Equal(t, http.StatusMethodNotAllowed, do(s, http.MethodPost, "/api/presence", "").Code)
}

func TestServer_Query(t *testing.T) {
	tracker := presence.NewTracker()
	tracker.Set("alice")
	s := New(Config{Presence: tracker})

	tests := []struct {
		name string
		body string
		want string
	}{
		{"exact query", responder.Query, "alice"},
		{"other payload", "Who is there?", ""},
		{"trailing newline", responder.Query + "\n", ""},
		{"empty body", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(s, http.MethodPost, "/api/query", tt.body)
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, "text/plain; charset=utf-8", rec.Header().Get("Content-Type"))
			assert.Equal(t, tt.want, rec.Body.String())
		})
	}

	assert.Equal(t, http.StatusMethodNotAllowed, do(s, http.MethodGet, "/api/query", "").Code)
}

func TestServer_Status(t *testing.T) {
	machine := fakeMachine{status: session.Status{
		State:        session.CollectingData,
		Enrolling:    "bob",
		Samples:      3,
		SampleTarget: 50,
	}}
	pipeline := &fakePipeline{enabled: true, stats: app.Stats{Read: 10, Processed: 8, Dropped: 2}}
	s := New(Config{Machine: machine, Pipeline: pipeline})

	rec := do(s, http.MethodGet, "/api/status", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "collecting_data", resp["session"]["state"])
	assert.Equal(t, "bob", resp["session"]["enrolling"])
	assert.Equal(t, true, resp["pipeline"]["enabled"])
	assert.Equal(t, map[string]any{"read": 10.0, "processed": 8.0, "dropped": 2.0, "skipped": 0.0}, resp["pipeline"]["stats"])

	t.Run("toggle processing", func(t *testing.T) {
		rec := do(s, http.MethodPut, "/api/status", `{"enabled": false}`)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.False(t, pipeline.IsEnabled())

		assert.Equal(t, http.StatusBadRequest, do(s, http.MethodPut, "/api/status", `{}`).Code)
		assert.Equal(t, http.StatusBadRequest, do(s, http.MethodPut, "/api/status", `nope`).Code)
		assert.False(t, pipeline.IsEnabled())
	})

	t.Run("toggle without pipeline", func(t *testing.T) {
		s := New(Config{Machine: machine})
		assert.Equal(t, http.StatusConflict, do(s, http.MethodPut, "/api/status", `{"enabled": true}`).Code)
	})
}

func TestServer_Skeleton(t *testing.T) {
	tracker := presence.NewTracker()
	pipeline := &fakePipeline{}
	s := New(Config{Presence: tracker, Pipeline: pipeline, Encoder: textEncoder})

	rec := do(s, http.MethodGet, "/api/skeleton.jpg", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/jpeg", rec.Header().Get("Content-Type"))
	assert.Equal(t, ":0", rec.Body.String(), "no frame yet renders an empty canvas")

	frame := skeleton.SingleBodyFrame(skeleton.UniformBody(0.4))
	pipeline.frame = &frame
	tracker.Set("alice")

	rec = do(s, http.MethodGet, "/api/skeleton.jpg", "")
	assert.Equal(t, "alice:1", rec.Body.String())
}
