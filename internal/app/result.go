package app

import (
	"time"

	"github.com/ayusman/glance/internal/store"
)

// Status is the outcome class of a run.
type Status string

const (
	StatusAnswered         Status = "answered"
	StatusDirect           Status = "direct"
	StatusNoRelevantFrames Status = "no_relevant_frames"
	StatusVideoFailed      Status = "video_failed"
	StatusClassifyFailed   Status = "classify_failed"
	StatusAnswerFailed     Status = "answer_failed"
	StatusCanceled         Status = "canceled"
)

// User-facing texts for runs that produce no synthesized answer.
const (
	TextVideoFailed      = "video analysis failed"
	TextNoRelevantFrames = "no relevant frames found"
	TextClassifyFailed   = "could not classify question"
	TextAnswerFailed     = "could not produce an answer"
	TextCanceled         = "request canceled"
)

// Result is what one run produces.
type Result struct {
	RunID            string    `json:"run_id"`
	Question         string    `json:"question"`
	NeedsVisual      bool      `json:"needs_visual"`
	Categories       []string  `json:"categories"`
	SelectedFrameIDs []string  `json:"selected_frame_ids"`
	Answer           string    `json:"answer"`
	Status           Status    `json:"status"`
	FramesSampled    int       `json:"frames_sampled"`
	StartedAt        time.Time `json:"started_at"`
	FinishedAt       time.Time `json:"finished_at"`

	// Err is the internal cause behind a failure status. It is logged and
	// persisted but never shown as the answer.
	Err error `json:"-"`
}

// Failed reports whether the run ended without a usable answer.
func (r *Result) Failed() bool {
	switch r.Status {
	case StatusAnswered, StatusDirect, StatusNoRelevantFrames:
		return false
	}
	return true
}

func (r *Result) fail(status Status, text string, err error) {
	r.Status = status
	r.Answer = text
	r.Err = err
}

// record converts the result into its persisted form.
func (r *Result) record() *store.Run {
	run := &store.Run{
		ID:          r.RunID,
		Question:    r.Question,
		NeedsVisual: r.NeedsVisual,
		Categories:  r.Categories,
		FrameIDs:    r.SelectedFrameIDs,
		Answer:      r.Answer,
		Status:      string(r.Status),
		StartedAt:   r.StartedAt,
		FinishedAt:  r.FinishedAt,
	}
	if r.Err != nil {
		run.Error = r.Err.Error()
	}
	return run
}
