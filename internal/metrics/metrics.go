// Package metrics defines the Prometheus collectors for the pipeline.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "glance_runs_total",
		Help: "Total number of answered questions, by status",
	}, []string{"status"})

	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "glance_stage_duration_seconds",
		Help:    "Duration of pipeline stages",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
	}, []string{"stage"})

	FramesSampledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "glance_frames_sampled_total",
		Help: "Total number of frames passed to the detector",
	})

	DetectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "glance_detections_total",
		Help: "Total number of detections, by category",
	}, []string{"category"})

	UploadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "glance_uploads_total",
		Help: "Total number of frame uploads, by result",
	}, []string{"result"})

	UploadsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "glance_uploads_in_flight",
		Help: "Number of frame uploads currently running",
	})
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
