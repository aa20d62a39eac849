package app

import (
	"context"
	"time"

	"github.com/ayusman/glance/internal/store"
)

// Event types published while a run progresses.
const (
	EventRunStarted     = "run_started"
	EventVideoDone      = "video_done"
	EventVideoFailed    = "video_failed"
	EventQuestionDone   = "question_done"
	EventQuestionFailed = "question_failed"
	EventFramesSelected = "frames_selected"
	EventRunFinished    = "run_finished"
)

// Event is a progress notification for live observers.
type Event struct {
	Type  string    `json:"type"`
	RunID string    `json:"run_id"`
	Time  time.Time `json:"time"`
	Data  any       `json:"data,omitempty"`
}

// EventSink receives pipeline events. Publish must not block for long.
type EventSink interface {
	Publish(Event)
}

// RunRecorder persists finished runs. store.RunRepository implements it.
type RunRecorder interface {
	Create(ctx context.Context, run *store.Run) error
}

func (a *App) publish(eventType, runID string, data any) {
	if a.events == nil {
		return
	}
	a.events.Publish(Event{
		Type:  eventType,
		RunID: runID,
		Time:  time.Now(),
		Data:  data,
	})
}
