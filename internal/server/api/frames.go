package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/ayusman/glance/internal/framestore"
)

// FramesHandler serves stored annotated frames at GET /api/frames/{id}.
type FramesHandler struct {
	frames framestore.FrameStore
}

// NewFramesHandler creates a new FramesHandler.
func NewFramesHandler(frames framestore.FrameStore) *FramesHandler {
	return &FramesHandler{frames: frames}
}

func (h *FramesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/api/frames/")
	id = strings.TrimSuffix(id, ".jpg")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusNotFound, "Frame not found")
		return
	}

	data, err := h.frames.Fetch(r.Context(), id)
	if err != nil {
		if errors.Is(err, framestore.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Frame not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to fetch frame")
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", "public, max-age=86400, immutable")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
