package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ayusman/glance/internal/framestore"
	"github.com/ayusman/glance/internal/store"
)

// DefaultStreamInterval is how long each frame stays on screen.
const DefaultStreamInterval = time.Second

// RunFinder looks up recorded runs.
type RunFinder interface {
	GetByID(ctx context.Context, id string) (*store.Run, error)
}

// StreamHandler replays the frames selected by a run as MJPEG at
// GET /api/stream/{runID}.
type StreamHandler struct {
	runs     RunFinder
	frames   framestore.FrameStore
	Interval time.Duration
}

// NewStreamHandler creates a new StreamHandler.
func NewStreamHandler(runs RunFinder, frames framestore.FrameStore) *StreamHandler {
	return &StreamHandler{runs: runs, frames: frames, Interval: DefaultStreamInterval}
}

// ServeHTTP streams MJPEG frames to connected clients.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	runID := strings.TrimPrefix(r.URL.Path, "/api/stream/")
	if runID == "" {
		http.Error(w, "Run not found", http.StatusNotFound)
		return
	}

	run, err := h.runs.GetByID(r.Context(), runID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, "Run not found", http.StatusNotFound)
			return
		}
		http.Error(w, "Failed to get run", http.StatusInternalServerError)
		return
	}
	if len(run.FrameIDs) == 0 {
		http.Error(w, "Run has no frames", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	for i, id := range run.FrameIDs {
		if i > 0 {
			select {
			case <-r.Context().Done():
				return
			case <-time.After(h.Interval):
			}
		}

		data, err := h.frames.Fetch(r.Context(), id)
		if err != nil {
			continue
		}

		// Write MJPEG frame
		fmt.Fprintf(w, "--frame\r\n")
		fmt.Fprintf(w, "Content-Type: image/jpeg\r\n")
		fmt.Fprintf(w, "Content-Length: %d\r\n\r\n", len(data))
		w.Write(data)
		fmt.Fprintf(w, "\r\n")

		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
	}
	fmt.Fprintf(w, "--frame--\r\n")
}
