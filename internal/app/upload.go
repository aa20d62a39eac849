package app

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/ayusman/glance/internal/framestore"
	"github.com/ayusman/glance/internal/metrics"
	"github.com/ayusman/glance/internal/tracker"
)

type uploadJob struct {
	jpeg    []byte
	tracker *tracker.Tracker
}

// uploadPool stores encoded frames on a fixed set of workers and appends
// each returned id onto the tracker the frame belongs to.
type uploadPool struct {
	jobs   chan uploadJob
	store  framestore.FrameStore
	logger *zap.Logger
	wg     sync.WaitGroup
}

func newUploadPool(ctx context.Context, store framestore.FrameStore, workers, queue int, logger *zap.Logger) *uploadPool {
	p := &uploadPool{
		jobs:   make(chan uploadJob, queue),
		store:  store,
		logger: logger,
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker(ctx)
	}
	return p
}

func (p *uploadPool) worker(ctx context.Context) {
	defer p.wg.Done()

	for job := range p.jobs {
		if ctx.Err() != nil {
			metrics.UploadsTotal.WithLabelValues("canceled").Inc()
			continue
		}

		metrics.UploadsInFlight.Inc()
		id, err := p.store.Store(ctx, job.jpeg)
		metrics.UploadsInFlight.Dec()
		if err != nil {
			p.logger.Warn("frame upload failed",
				zap.Int("frame_index", job.tracker.Index), zap.Error(err))
			metrics.UploadsTotal.WithLabelValues("failed").Inc()
			continue
		}

		job.tracker.AddFrameID(id)
		metrics.UploadsTotal.WithLabelValues("ok").Inc()
	}
}

// submit queues a job, blocking while the queue is full. It gives up when
// ctx ends.
func (p *uploadPool) submit(ctx context.Context, jpeg []byte, t *tracker.Tracker) bool {
	select {
	case p.jobs <- uploadJob{jpeg: jpeg, tracker: t}:
		return true
	case <-ctx.Done():
		return false
	}
}

// drain waits for every queued upload to finish. No submit may follow.
func (p *uploadPool) drain() {
	close(p.jobs)
	p.wg.Wait()
}
