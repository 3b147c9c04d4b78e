package server

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tikgrab/tikgrab/internal/model"
	"github.com/tikgrab/tikgrab/internal/store"
)

// metrics collects service-level prometheus metrics on a private registry so
// multiple server instances (tests) never collide on registration.
type metrics struct {
	registry *prometheus.Registry

	extractions     *prometheus.CounterVec
	downloads       *prometheus.CounterVec
	downloadSeconds prometheus.Histogram
}

func newMetrics(jobs *store.Jobs) *metrics {
	m := &metrics{
		registry: prometheus.NewRegistry(),
		extractions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tikgrab_extractions_total",
				Help: "Metadata extractions by outcome",
			},
			[]string{"outcome"},
		),
		downloads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tikgrab_downloads_total",
				Help: "Finished download jobs by outcome",
			},
			[]string{"outcome"},
		),
		downloadSeconds: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "tikgrab_download_duration_seconds",
				Help:    "Wall time from job creation to a terminal state",
				Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
			},
		),
	}

	trackedJobs := prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "tikgrab_tracked_jobs",
			Help: "Job records currently held in the store",
		},
		func() float64 { return float64(jobs.Len()) },
	)

	m.registry.MustRegister(m.extractions, m.downloads, m.downloadSeconds, trackedJobs)
	return m
}

// observeJob records terminal transitions. The job store guarantees a job
// reaches a terminal state at most once, so counting here cannot double.
func (m *metrics) observeJob(job model.Job) {
	switch job.Status {
	case model.JobStatusCompleted:
		m.downloads.WithLabelValues("completed").Inc()
	case model.JobStatusFailed:
		m.downloads.WithLabelValues("failed").Inc()
	default:
		return
	}
	m.downloadSeconds.Observe(time.Since(job.CreatedAt).Seconds())
}
