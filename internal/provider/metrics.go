package provider

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	aiRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adventure_ai_requests_total",
			Help: "Total number of requests to the AI provider.",
		},
		[]string{"provider", "model", "status"},
	)
	aiRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "adventure_ai_request_duration_seconds",
			Help:    "AI provider request duration.",
			Buckets: []float64{1, 2.5, 5, 10, 20, 40, 60, 90, 120, 180},
		},
		[]string{"provider", "model"},
	)
	aiTokens = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "adventure_ai_tokens",
			Help:    "Token counts per AI request.",
			Buckets: prometheus.ExponentialBuckets(64, 2, 10),
		},
		[]string{"provider", "model", "kind"},
	)
	retryAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adventure_ai_retries_total",
			Help: "Number of retried AI provider calls.",
		},
		[]string{"model"},
	)
)

func observeTokens(provider, model string, prompt, completion int) {
	if prompt > 0 {
		aiTokens.WithLabelValues(provider, model, "prompt").Observe(float64(prompt))
	}
	if completion > 0 {
		aiTokens.WithLabelValues(provider, model, "completion").Observe(float64(completion))
	}
}
