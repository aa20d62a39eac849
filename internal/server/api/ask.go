package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/ayusman/glance/internal/app"
)

// Asker answers follow-up questions against the retained video.
// *app.App implements it.
type Asker interface {
	Ask(ctx context.Context, question string) (*app.Result, error)
}

// AskHandler handles POST /api/ask.
type AskHandler struct {
	asker  Asker
	logger *zap.Logger
}

// NewAskHandler creates a new AskHandler.
func NewAskHandler(asker Asker, logger *zap.Logger) *AskHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AskHandler{asker: asker, logger: logger}
}

type askRequest struct {
	Question string `json:"question"`
}

func (h *AskHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	question := strings.TrimSpace(req.Question)
	if question == "" {
		writeError(w, http.StatusBadRequest, "Question is required")
		return
	}

	res, err := h.asker.Ask(r.Context(), question)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			writeError(w, http.StatusServiceUnavailable, app.TextCanceled)
			return
		}
		h.logger.Error("ask failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to answer question")
		return
	}

	writeJSON(w, http.StatusOK, res)
}
