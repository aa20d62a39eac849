// Package app coordinates the glance pipeline: video ingestion and question
// classification run side by side, then frames are selected and the final
// answer is synthesized.
package app

import (
	"errors"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/ayusman/glance/internal/detector"
	"github.com/ayusman/glance/internal/framestore"
	"github.com/ayusman/glance/internal/reasoning"
	"github.com/ayusman/glance/internal/selector"
	"github.com/ayusman/glance/internal/tracker"
)

// ErrNoTrackers is the video outcome of a follow-up question asked before
// any video has been processed.
var ErrNoTrackers = errors.New("no video has been processed")

// Config holds configuration options for the application.
type Config struct {
	// TargetFPS is the rate sampled frames are kept at.
	TargetFPS float64
	// UploadWorkers bounds concurrent frame uploads and fetches.
	UploadWorkers int
	// UploadQueue is how many encoded frames may wait for a worker.
	UploadQueue int
	// MaxFrames is the most frames handed to the describer.
	MaxFrames int
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		TargetFPS:     10,
		UploadWorkers: 3,
		UploadQueue:   64,
		MaxFrames:     3,
	}
}

// App is the pipeline coordinator. It owns the tracker list of the last
// successfully processed video and serves follow-up queries against it.
type App struct {
	config   Config
	detector detector.Detector
	frames   framestore.FrameStore
	reasoner reasoning.Reasoner
	selector *selector.Selector
	recorder RunRecorder
	events   EventSink
	logger   *zap.Logger

	mu       sync.RWMutex
	trackers []*tracker.Tracker
	detected map[string]struct{}
	hasVideo bool
}

// Option configures an App.
type Option func(*App)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(a *App) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithSelector replaces the default frame selector.
func WithSelector(s *selector.Selector) Option {
	return func(a *App) {
		if s != nil {
			a.selector = s
		}
	}
}

// WithRecorder persists every finished run.
func WithRecorder(r RunRecorder) Option {
	return func(a *App) {
		a.recorder = r
	}
}

// WithEvents publishes progress events to sink.
func WithEvents(sink EventSink) Option {
	return func(a *App) {
		a.events = sink
	}
}

// New creates a new App. Zero config fields fall back to DefaultConfig.
func New(config Config, det detector.Detector, frames framestore.FrameStore, reasoner reasoning.Reasoner, opts ...Option) *App {
	defaults := DefaultConfig()
	if config.TargetFPS <= 0 {
		config.TargetFPS = defaults.TargetFPS
	}
	if config.UploadWorkers <= 0 {
		config.UploadWorkers = defaults.UploadWorkers
	}
	if config.UploadQueue <= 0 {
		config.UploadQueue = defaults.UploadQueue
	}
	if config.MaxFrames <= 0 {
		config.MaxFrames = defaults.MaxFrames
	}

	a := &App{
		config:   config,
		detector: det,
		frames:   frames,
		reasoner: reasoner,
		logger:   zap.NewNop(),
		detected: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.selector == nil {
		a.selector = selector.New(selector.WithLogger(a.logger))
	}
	return a
}

// Config returns the effective configuration.
func (a *App) Config() Config {
	return a.config
}

// Frames returns the frame store.
func (a *App) Frames() framestore.FrameStore {
	return a.frames
}

// retain replaces the master tracker list and the detected-category set.
func (a *App) retain(trackers []*tracker.Tracker) {
	detected := make(map[string]struct{})
	for _, t := range trackers {
		for _, c := range t.Categories() {
			detected[c] = struct{}{}
		}
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.trackers = trackers
	a.detected = detected
	a.hasVideo = true
}

// snapshot returns a deep copy of the retained trackers and whether any
// video has been processed.
func (a *App) snapshot() ([]*tracker.Tracker, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return tracker.CloneAll(a.trackers), a.hasVideo
}

// Snapshot returns a deep copy of the retained tracker list.
func (a *App) Snapshot() []*tracker.Tracker {
	trackers, _ := a.snapshot()
	return trackers
}

// DetectedCategories returns every category seen in the retained video,
// sorted.
func (a *App) DetectedCategories() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()

	categories := make([]string, 0, len(a.detected))
	for c := range a.detected {
		categories = append(categories, c)
	}
	sort.Strings(categories)
	return categories
}

// Requery returns the top k frame ids for category from the retained
// video without re-running detection.
func (a *App) Requery(category string, k int) []string {
	return a.selector.SelectTopK(a.Snapshot(), category, k)
}

// RequeryCategories selects one frame per category from the retained video.
func (a *App) RequeryCategories(categories []string, maxFrames int) []string {
	return a.selector.SelectForCategories(a.Snapshot(), categories, maxFrames)
}

// Close releases the detector.
func (a *App) Close() error {
	if a.detector == nil {
		return nil
	}
	return a.detector.Close()
}
