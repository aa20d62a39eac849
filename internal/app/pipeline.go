package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ayusman/glance/internal/capture"
	"github.com/ayusman/glance/internal/framestore"
	"github.com/ayusman/glance/internal/metrics"
	"github.com/ayusman/glance/internal/reasoning"
	"github.com/ayusman/glance/internal/selector"
	"github.com/ayusman/glance/internal/tracker"
)

// questionOutcome is the result of the question branch.
type questionOutcome struct {
	classification reasoning.Classification
	err            error
}

// Run processes src and answers question. The video and question branches
// run concurrently and neither cancels the other; ctx cancels both. The
// returned error is non-nil only when ctx ended, every other failure is
// reported through Result.Status.
func (a *App) Run(ctx context.Context, question string, src capture.Source) (*Result, error) {
	res := a.newResult(question)
	ctx, span := otel.Tracer("app").Start(ctx, "App.Run")
	defer span.End()
	span.SetAttributes(attribute.String("run_id", res.RunID))

	log := a.logger.With(zap.String("run_id", res.RunID))
	log.Info("run started", zap.String("question", question))
	a.publish(EventRunStarted, res.RunID, map[string]string{"question": question})

	var (
		wg       sync.WaitGroup
		trackers []*tracker.Tracker
		videoErr error
		outcome  questionOutcome
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		trackers, videoErr = a.runVideo(ctx, src, log)
	}()
	go func() {
		defer wg.Done()
		outcome = a.classify(ctx, res.RunID, question, log)
	}()
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return a.cancel(ctx, res, err, log)
	}

	if videoErr != nil {
		log.Error("video branch failed", zap.Error(videoErr))
		a.publish(EventVideoFailed, res.RunID, map[string]string{"error": videoErr.Error()})
	} else {
		a.retain(trackers)
		res.FramesSampled = len(trackers)
		a.publish(EventVideoDone, res.RunID, map[string]int{"frames_sampled": len(trackers)})
		trackers = tracker.CloneAll(trackers)
	}

	a.answer(ctx, res, outcome, videoErr, trackers, log)
	if err := ctx.Err(); err != nil {
		return a.cancel(ctx, res, err, log)
	}
	return a.finish(ctx, res, log), nil
}

// Ask answers a follow-up question against the retained video without
// running detection again.
func (a *App) Ask(ctx context.Context, question string) (*Result, error) {
	res := a.newResult(question)
	ctx, span := otel.Tracer("app").Start(ctx, "App.Ask")
	defer span.End()
	span.SetAttributes(attribute.String("run_id", res.RunID))

	log := a.logger.With(zap.String("run_id", res.RunID))
	log.Info("follow-up question", zap.String("question", question))
	a.publish(EventRunStarted, res.RunID, map[string]string{"question": question})

	trackers, hasVideo := a.snapshot()
	var videoErr error
	if !hasVideo {
		videoErr = ErrNoTrackers
	} else {
		res.FramesSampled = len(trackers)
	}

	outcome := a.classify(ctx, res.RunID, question, log)
	if err := ctx.Err(); err != nil {
		return a.cancel(ctx, res, err, log)
	}

	a.answer(ctx, res, outcome, videoErr, trackers, log)
	if err := ctx.Err(); err != nil {
		return a.cancel(ctx, res, err, log)
	}
	return a.finish(ctx, res, log), nil
}

func (a *App) newResult(question string) *Result {
	return &Result{
		RunID:            uuid.NewString(),
		Question:         question,
		Categories:       []string{},
		SelectedFrameIDs: []string{},
		StartedAt:        time.Now(),
	}
}

// classify is the question branch.
func (a *App) classify(ctx context.Context, runID, question string, log *zap.Logger) questionOutcome {
	ctx, span := otel.Tracer("app").Start(ctx, "question")
	defer span.End()
	start := time.Now()

	c, err := a.reasoner.ClassifyQuestion(ctx, question)
	metrics.StageDuration.WithLabelValues("classify").Observe(time.Since(start).Seconds())
	if err != nil {
		span.RecordError(err)
		log.Error("question branch failed", zap.Error(err))
		a.publish(EventQuestionFailed, runID, map[string]string{"error": err.Error()})
		return questionOutcome{err: err}
	}

	log.Info("question classified",
		zap.Bool("needs_visual", c.NeedsVisual),
		zap.Strings("categories", c.Categories))
	a.publish(EventQuestionDone, runID, c)
	return questionOutcome{classification: c}
}

// answer applies the post-join decision table. trackers is a private copy.
func (a *App) answer(ctx context.Context, res *Result, q questionOutcome, videoErr error, trackers []*tracker.Tracker, log *zap.Logger) {
	ctx, span := otel.Tracer("app").Start(ctx, "answer")
	defer span.End()

	if q.err != nil {
		res.fail(StatusClassifyFailed, TextClassifyFailed, q.err)
		return
	}

	c := q.classification
	res.NeedsVisual = c.NeedsVisual
	res.Categories = append([]string{}, c.Categories...)

	if !c.NeedsVisual {
		// A failed video branch does not matter here.
		start := time.Now()
		text, err := a.reasoner.DirectAnswer(ctx, res.Question)
		metrics.StageDuration.WithLabelValues("direct").Observe(time.Since(start).Seconds())
		if err != nil {
			log.Error("direct answer failed", zap.Error(err))
			res.fail(StatusAnswerFailed, TextAnswerFailed, err)
			return
		}
		res.Status = StatusDirect
		res.Answer = text
		return
	}

	if videoErr != nil {
		res.fail(StatusVideoFailed, TextVideoFailed, videoErr)
		return
	}

	if selector.IsOnlySentinel(c.Categories) {
		log.Info("no detectable category in question")
		res.fail(StatusNoRelevantFrames, TextNoRelevantFrames, nil)
		return
	}

	ids := a.selector.SelectForCategories(trackers, c.Categories, a.config.MaxFrames)
	a.publish(EventFramesSelected, res.RunID, map[string][]string{"frame_ids": ids})
	if len(ids) == 0 {
		log.Info("selection produced no frames", zap.Strings("categories", c.Categories))
		res.fail(StatusNoRelevantFrames, TextNoRelevantFrames, nil)
		return
	}

	fetchedIDs, images := a.fetchFrames(ctx, ids, log)
	res.SelectedFrameIDs = fetchedIDs
	if len(images) == 0 {
		res.fail(StatusNoRelevantFrames, TextNoRelevantFrames, nil)
		return
	}

	start := time.Now()
	text, err := a.reasoner.DescribeFrames(ctx, res.Question, images, c.Categories)
	metrics.StageDuration.WithLabelValues("describe").Observe(time.Since(start).Seconds())
	if err != nil {
		log.Error("describe frames failed", zap.Error(err))
		res.fail(StatusAnswerFailed, TextAnswerFailed, err)
		return
	}
	res.Status = StatusAnswered
	res.Answer = text
}

// fetchFrames loads the selected frames concurrently. Frames that cannot
// be fetched are skipped; the order of the rest is kept.
func (a *App) fetchFrames(ctx context.Context, ids []string, log *zap.Logger) ([]string, [][]byte) {
	start := time.Now()
	defer func() {
		metrics.StageDuration.WithLabelValues("fetch").Observe(time.Since(start).Seconds())
	}()

	images := make([][]byte, len(ids))
	var g errgroup.Group
	g.SetLimit(a.config.UploadWorkers)
	for i, id := range ids {
		g.Go(func() error {
			data, err := a.frames.Fetch(ctx, id)
			switch {
			case errors.Is(err, framestore.ErrNotFound):
				log.Warn("selected frame not found", zap.String("frame_id", id))
			case err != nil:
				log.Warn("fetch frame failed", zap.String("frame_id", id), zap.Error(err))
			default:
				images[i] = data
			}
			return nil
		})
	}
	_ = g.Wait()

	var fetchedIDs []string
	var fetched [][]byte
	for i, img := range images {
		if img == nil {
			continue
		}
		fetchedIDs = append(fetchedIDs, ids[i])
		fetched = append(fetched, img)
	}
	if fetchedIDs == nil {
		fetchedIDs = []string{}
	}
	return fetchedIDs, fetched
}

func (a *App) cancel(ctx context.Context, res *Result, err error, log *zap.Logger) (*Result, error) {
	res.fail(StatusCanceled, TextCanceled, err)
	log.Warn("run canceled", zap.Error(err))
	return a.finish(ctx, res, log), err
}

// finish stamps, counts, records and announces a result.
func (a *App) finish(ctx context.Context, res *Result, log *zap.Logger) *Result {
	res.FinishedAt = time.Now()
	metrics.RunsTotal.WithLabelValues(string(res.Status)).Inc()
	metrics.StageDuration.WithLabelValues("total").Observe(res.FinishedAt.Sub(res.StartedAt).Seconds())

	if a.recorder != nil {
		if err := a.recorder.Create(context.WithoutCancel(ctx), res.record()); err != nil {
			log.Error("failed to record run", zap.Error(err))
		}
	}

	fields := []zap.Field{
		zap.String("status", string(res.Status)),
		zap.Strings("frame_ids", res.SelectedFrameIDs),
		zap.Duration("elapsed", res.FinishedAt.Sub(res.StartedAt)),
	}
	if res.Err != nil {
		fields = append(fields, zap.Error(res.Err))
	}
	log.Info("run finished", fields...)
	a.publish(EventRunFinished, res.RunID, res)
	return res
}
