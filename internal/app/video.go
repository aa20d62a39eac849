package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"gocv.io/x/gocv"

	"github.com/ayusman/glance/internal/capture"
	"github.com/ayusman/glance/internal/detector"
	"github.com/ayusman/glance/internal/metrics"
	"github.com/ayusman/glance/internal/tracker"
)

// runVideo is the video branch: it samples src, detects and accumulates on
// this goroutine, hands encoded frames to the upload pool and waits for the
// pool to drain. The returned trackers are not shared with anyone yet.
func (a *App) runVideo(ctx context.Context, src capture.Source, log *zap.Logger) ([]*tracker.Tracker, error) {
	ctx, span := otel.Tracer("app").Start(ctx, "video")
	defer span.End()
	start := time.Now()
	defer func() {
		metrics.StageDuration.WithLabelValues("video").Observe(time.Since(start).Seconds())
	}()

	if src == nil {
		return nil, errors.New("open source: no video source")
	}
	if err := src.Open(); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("open source: %w", err)
	}
	defer src.Close()

	sampler := capture.NewSampler(src.FPS(), a.config.TargetFPS)
	log.Info("video opened",
		zap.Float64("source_fps", src.FPS()),
		zap.Int("interval", sampler.Interval()))

	pool := newUploadPool(ctx, a.frames, a.config.UploadWorkers, a.config.UploadQueue, log)
	trackers, err := a.sample(ctx, src, sampler, pool, log)
	pool.drain()

	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	span.SetAttributes(attribute.Int("frames_sampled", len(trackers)))
	log.Info("video processed",
		zap.Int("frames_sampled", len(trackers)),
		zap.Duration("elapsed", time.Since(start)))
	return trackers, nil
}

func (a *App) sample(ctx context.Context, src capture.Source, sampler *capture.Sampler, pool *uploadPool, log *zap.Logger) ([]*tracker.Tracker, error) {
	var trackers []*tracker.Tracker

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		frame, err := src.ReadFrame()
		if errors.Is(err, io.EOF) {
			return trackers, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read frame: %w", err)
		}

		index, keep := sampler.Next()
		if !keep {
			frame.Close()
			continue
		}

		t, jpeg, ok := a.processFrame(index, frame, log)
		frame.Close()
		if !ok {
			continue
		}

		trackers = append(trackers, t)
		if !pool.submit(ctx, jpeg, t) {
			return nil, ctx.Err()
		}
	}
}

// processFrame detects objects in one sampled frame, builds its tracker and
// returns the annotated frame as JPEG. ok is false when the frame must be
// skipped.
func (a *App) processFrame(index int, frame *gocv.Mat, log *zap.Logger) (*tracker.Tracker, []byte, bool) {
	metrics.FramesSampledTotal.Inc()

	detections, err := a.detector.Detect(frame)
	if err != nil {
		log.Warn("detection failed, skipping frame", zap.Int("frame_index", index), zap.Error(err))
		return nil, nil, false
	}

	t := tracker.New(index)
	for _, d := range detections {
		t.Update(d.Category, d.Confidence)
		metrics.DetectionsTotal.WithLabelValues(d.Category).Inc()
	}

	detector.Annotate(frame, detections)
	jpeg, err := encodeJPEG(frame)
	if err != nil {
		log.Warn("encode failed, skipping frame", zap.Int("frame_index", index), zap.Error(err))
		return nil, nil, false
	}

	log.Debug("frame processed", zap.Int("frame_index", index), zap.Stringer("summary", t))
	return t, jpeg, true
}

func encodeJPEG(frame *gocv.Mat) ([]byte, error) {
	buf, err := gocv.IMEncode(gocv.JPEGFileExt, *frame)
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()

	// The buffer is backed by native memory released on Close.
	return append([]byte(nil), buf.GetBytes()...), nil
}
