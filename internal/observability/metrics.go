package observability

import (
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registerOnce         sync.Once
	apiRequestsTotal     *prometheus.CounterVec
	apiLatencySeconds    *prometheus.HistogramVec
	apiErrorsTotal       *prometheus.CounterVec
	evaluationsTotal     *prometheus.CounterVec
	feedbackPublishTotal *prometheus.CounterVec
	feedbackQueuedTotal  *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors used by the API and the pipeline services.
func RegisterMetrics() {
	registerOnce.Do(func() {
		apiRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "class",
			Name:      "api_requests_total",
			Help:      "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		apiLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "class",
			Name:      "api_latency_seconds",
			Help:      "Latency distribution for API requests.",
			Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 15.0},
		}, []string{"method", "route"})

		apiErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "class",
			Name:      "api_errors_total",
			Help:      "Total number of error responses returned by the API.",
		}, []string{"method", "route", "status"})

		evaluationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "class",
			Name:      "evaluations_total",
			Help:      "Evaluations attempted, by source and outcome.",
		}, []string{"source", "outcome"})

		feedbackPublishTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "class",
			Name:      "feedback_publish_total",
			Help:      "Feedback publish attempts, by feedback type and outcome.",
		}, []string{"type", "outcome"})

		feedbackQueuedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "class",
			Name:      "feedback_queued_total",
			Help:      "Feedback items queued for review, by feedback type.",
		}, []string{"type"})

		prometheus.MustRegister(apiRequestsTotal, apiLatencySeconds, apiErrorsTotal, evaluationsTotal, feedbackPublishTotal, feedbackQueuedTotal)
	})
}

// APIRequests exposes the counter for API requests.
func APIRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return apiRequestsTotal
}

// APILatency exposes the latency histogram for API requests.
func APILatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return apiLatencySeconds
}

// APIErrors exposes the counter for API error responses.
func APIErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return apiErrorsTotal
}

// Evaluations exposes the evaluation outcome counter.
func Evaluations() *prometheus.CounterVec {
	RegisterMetrics()
	return evaluationsTotal
}

// FeedbackPublishes exposes the feedback publish counter.
func FeedbackPublishes() *prometheus.CounterVec {
	RegisterMetrics()
	return feedbackPublishTotal
}

// FeedbackQueued exposes the counter of queued feedback items.
func FeedbackQueued() *prometheus.CounterVec {
	RegisterMetrics()
	return feedbackQueuedTotal
}

// MetricsHandler serves the default registry in the Prometheus or OpenMetrics exposition format.
func MetricsHandler() fiber.Handler {
	RegisterMetrics()
	return adaptor.HTTPHandler(promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	}))
}
