// Package metrics exposes the Prometheus collectors for ingestion, chat and
// the task queue.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/custodia-labs/brochurebot/internal/core/domain"
	"github.com/custodia-labs/brochurebot/internal/core/ports/driven"
)

const namespace = "brochurebot"

// Ingestion outcomes
const (
	OutcomeReady      = "ready"
	OutcomeFailed     = "error"
	OutcomeSuperseded = "superseded"
	OutcomeRetry      = "retry"
)

// Chat outcomes
const (
	ChatAnswered = "answered"
	ChatFallback = "fallback"
	ChatError    = "error"
)

// Metrics holds the service collectors. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	registry *prometheus.Registry

	Ingestions        *prometheus.CounterVec
	IngestionDuration prometheus.Histogram
	ChatAnswers       *prometheus.CounterVec
	EmbeddingRetries  prometheus.Counter
	QueueTasks        *prometheus.GaugeVec
	HTTPRequests      *prometheus.CounterVec
}

// New registers the collectors on a fresh registry together with the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		Ingestions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ingestions_total",
				Help:      "Ingest tasks processed, by outcome",
			},
			[]string{"outcome"},
		),
		IngestionDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "ingestion_duration_seconds",
				Help:      "Wall time of completed ingestions",
				Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300},
			},
		),
		ChatAnswers: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "chat_answers_total",
				Help:      "Chat requests, by outcome and caller kind",
			},
			[]string{"outcome", "caller"},
		),
		EmbeddingRetries: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "embedding_retries_total",
				Help:      "Embedding batch attempts that failed and were retried",
			},
		),
		QueueTasks: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "queue_tasks",
				Help:      "Tasks in the queue, by state",
			},
			[]string{"state"},
		),
		HTTPRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "HTTP requests, by route and status class",
			},
			[]string{"route", "code"},
		),
	}
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveIngestion records the outcome of one ingest task. err is the
// retryable error returned by the processor, if any.
func (m *Metrics) ObserveIngestion(result *domain.TaskResult, err error) {
	if m == nil {
		return
	}
	switch {
	case err != nil || result == nil:
		m.Ingestions.WithLabelValues(OutcomeRetry).Inc()
	case result.Success && result.Error == domain.ErrSuperseded.Error():
		m.Ingestions.WithLabelValues(OutcomeSuperseded).Inc()
	case result.Success:
		m.Ingestions.WithLabelValues(OutcomeReady).Inc()
		m.IngestionDuration.Observe(result.Duration.Seconds())
	default:
		m.Ingestions.WithLabelValues(OutcomeFailed).Inc()
	}
}

// ObserveChat records one chat request.
func (m *Metrics) ObserveChat(answer *domain.Answer, err error, public bool) {
	if m == nil {
		return
	}
	caller := "admin"
	if public {
		caller = "public"
	}
	outcome := ChatAnswered
	switch {
	case err != nil || answer == nil:
		outcome = ChatError
	case answer.Fallback:
		outcome = ChatFallback
	}
	m.ChatAnswers.WithLabelValues(outcome, caller).Inc()
}

// EmbeddingRetry matches the embedder retry hook signature.
func (m *Metrics) EmbeddingRetry(attempt int, err error) {
	if m == nil {
		return
	}
	m.EmbeddingRetries.Inc()
}

// SetQueueStats publishes a queue depth snapshot.
func (m *Metrics) SetQueueStats(stats *driven.QueueStats) {
	if m == nil || stats == nil {
		return
	}
	m.QueueTasks.WithLabelValues("pending").Set(float64(stats.PendingCount))
	m.QueueTasks.WithLabelValues("processing").Set(float64(stats.ProcessingCount))
	m.QueueTasks.WithLabelValues("failed").Set(float64(stats.FailedCount))
}

// ObserveRequest counts one HTTP response.
func (m *Metrics) ObserveRequest(route string, status int) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(route, statusClass(status)).Inc()
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
