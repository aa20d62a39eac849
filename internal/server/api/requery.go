package api

import (
	"encoding/json"
	"net/http"

	"github.com/ayusman/glance/internal/reasoning"
)

// Requerier selects frames from the retained video without re-running
// detection. *app.App implements it.
type Requerier interface {
	Requery(category string, k int) []string
	RequeryCategories(categories []string, maxFrames int) []string
	DetectedCategories() []string
}

// RequeryHandler handles /api/requery.
//
//	GET  /api/requery  lists the categories seen in the retained video
//	POST /api/requery  selects frame ids, either the top k of one category
//	                   or one frame per category
type RequeryHandler struct {
	requerier Requerier
	defaultK  int
}

// NewRequeryHandler creates a new RequeryHandler. defaultK is used when a
// request leaves k or max_frames unset.
func NewRequeryHandler(r Requerier, defaultK int) *RequeryHandler {
	if defaultK < 1 {
		defaultK = 1
	}
	return &RequeryHandler{requerier: r, defaultK: defaultK}
}

type requeryRequest struct {
	Category   string   `json:"category"`
	K          int      `json:"k"`
	Categories []string `json:"categories"`
	MaxFrames  int      `json:"max_frames"`
}

type requeryResponse struct {
	FrameIDs []string `json:"frame_ids"`
}

type categoriesResponse struct {
	Categories []string `json:"categories"`
}

func (h *RequeryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, categoriesResponse{Categories: h.requerier.DetectedCategories()})
	case http.MethodPost:
		h.requery(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *RequeryHandler) requery(w http.ResponseWriter, r *http.Request) {
	var req requeryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	// Names go through the same label mapping as classified questions.
	category := reasoning.NormalizeCategory(req.Category)
	categories := make([]string, 0, len(req.Categories))
	for _, c := range req.Categories {
		if label := reasoning.NormalizeCategory(c); label != "" {
			categories = append(categories, label)
		}
	}

	switch {
	case category != "" && len(categories) > 0:
		writeError(w, http.StatusBadRequest, "Use either category or categories")
		return
	case category != "":
		if req.K < 0 {
			writeError(w, http.StatusBadRequest, "k must not be negative")
			return
		}
		k := req.K
		if k == 0 {
			k = h.defaultK
		}
		writeJSON(w, http.StatusOK, requeryResponse{FrameIDs: h.requerier.Requery(category, k)})
	case len(categories) > 0:
		if req.MaxFrames < 0 {
			writeError(w, http.StatusBadRequest, "max_frames must not be negative")
			return
		}
		maxFrames := req.MaxFrames
		if maxFrames == 0 {
			maxFrames = h.defaultK
		}
		writeJSON(w, http.StatusOK, requeryResponse{
			FrameIDs: h.requerier.RequeryCategories(categories, maxFrames),
		})
	default:
		writeError(w, http.StatusBadRequest, "Category is required")
	}
}
