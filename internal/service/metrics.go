package service

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	jobsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "adventure_jobs_created_total",
		Help: "Total number of generation jobs created.",
	})
	jobsFinishedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "adventure_jobs_finished_total",
		Help: "Generation jobs that reached a terminal status.",
	}, []string{"status", "reason"})
	jobDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "adventure_job_duration_seconds",
		Help:    "Time from processing start to terminal status.",
		Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
	}, []string{"status"})
	storyNodesPersisted = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "adventure_story_nodes",
		Help:    "Number of nodes per persisted story.",
		Buckets: prometheus.LinearBuckets(5, 10, 20),
	})
	storyCacheRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "adventure_story_cache_requests_total",
		Help: "Complete story cache lookups.",
	}, []string{"result"})
)

func recordJobFinished(status, reason string, started time.Time) {
	jobsFinishedTotal.WithLabelValues(status, reason).Inc()
	jobDuration.WithLabelValues(status).Observe(time.Since(started).Seconds())
}
