// Package metrics exposes Prometheus collectors for the CI runner.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	Registry = prometheus.NewRegistry()

	jobsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "extci_jobs_total",
		Help: "Finished jobs by terminal status and failure kind.",
	}, []string{"status", "failure"})

	jobDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "extci_job_duration_seconds",
		Help:    "Wall time of finished jobs.",
		Buckets: prometheus.ExponentialBuckets(5, 2, 10),
	}, []string{"status"})

	stepDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "extci_step_duration_seconds",
		Help:    "Wall time of job steps.",
		Buckets: prometheus.ExponentialBuckets(0.5, 2, 12),
	}, []string{"kind", "status"})

	cacheRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "extci_cache_requests_total",
		Help: "Dependency cache lookups by result.",
	}, []string{"result"})

	webhooks = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "extci_webhooks_total",
		Help: "Received push webhooks by outcome.",
	}, []string{"outcome"})

	queueDepth = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "extci_queue_depth",
		Help: "Jobs waiting for the runner.",
	})
)

func init() {
	Registry.MustRegister(jobsTotal, jobDuration, stepDuration, cacheRequests, webhooks, queueDepth)
}

func JobFinished(status, failure string, d time.Duration) {
	if failure == "" {
		failure = "none"
	}
	jobsTotal.WithLabelValues(status, failure).Inc()
	jobDuration.WithLabelValues(status).Observe(d.Seconds())
}

func StepFinished(kind, status string, d time.Duration) {
	stepDuration.WithLabelValues(kind, status).Observe(d.Seconds())
}

func CacheLookup(hit bool) {
	if hit {
		cacheRequests.WithLabelValues("hit").Inc()
		return
	}
	cacheRequests.WithLabelValues("miss").Inc()
}

func Webhook(outcome string) {
	webhooks.WithLabelValues(outcome).Inc()
}

func QueueDepth(n int) {
	queueDepth.Set(float64(n))
}
