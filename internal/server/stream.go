package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/ayusman/skelid/internal/monitoring"
	"github.com/ayusman/skelid/internal/responder"
	"github.com/ayusman/skelid/internal/skeleton"
)

// streamInterval paces the MJPEG stream at about 15 FPS.
const streamInterval = 66 * time.Millisecond

// FrameSource provides the most recent frame.
type FrameSource interface {
	LatestFrame() (skeleton.Frame, bool)
}

// render draws the latest frame, or an empty one before the first frame
// arrives, captioned with the recognized name.
func render(frames FrameSource, names responder.NameSource, encode FrameEncoder) ([]byte, error) {
	frame, _ := frames.LatestFrame()
	return encode(&frame, names.Name())
}

// SnapshotHandler serves the latest frame as a single JPEG.
type SnapshotHandler struct {
	frames FrameSource
	names  responder.NameSource
	encode FrameEncoder
}

// NewSnapshotHandler creates a SnapshotHandler.
func NewSnapshotHandler(frames FrameSource, names responder.NameSource, encode FrameEncoder) *SnapshotHandler {
	return &SnapshotHandler{frames: frames, names: names, encode: encode}
}

// ServeHTTP implements the http.Handler interface.
func (h *SnapshotHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	data, err := render(h.frames, h.names, h.encode)
	if err != nil {
		monitoring.Logf("render skeleton: %v", err)
		http.Error(w, "Failed to render skeleton", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "no-cache")
	w.Write(data)
}

// StreamHandler serves rendered frames as MJPEG.
type StreamHandler struct {
	frames FrameSource
	names  responder.NameSource
	encode FrameEncoder
}

// NewStreamHandler creates a StreamHandler.
func NewStreamHandler(frames FrameSource, names responder.NameSource, encode FrameEncoder) *StreamHandler {
	return &StreamHandler{frames: frames, names: names, encode: encode}
}

// ServeHTTP streams MJPEG frames until the client goes away.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ticker := time.NewTicker(streamInterval)
	defer ticker.Stop()

	for {
		data, err := render(h.frames, h.names, h.encode)
		if err == nil {
			fmt.Fprintf(w, "--frame\r\n")
			fmt.Fprintf(w, "Content-Type: image/jpeg\r\n")
			fmt.Fprintf(w, "Content-Length: %d\r\n\r\n", len(data))
			w.Write(data)
			fmt.Fprintf(w, "\r\n")

			if f, ok := w.(http.Flusher); ok {
				f.Flush()
			}
		}

		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}
	}
}
