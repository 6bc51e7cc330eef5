package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/brochurebot/internal/core/domain"
	"github.com/custodia-labs/brochurebot/internal/core/ports/driven"
)

func TestObserveIngestion(t *testing.T) {
	m := New()

	m.ObserveIngestion(&domain.TaskResult{Success: true, Duration: 2 * time.Second, Chunks: 4}, nil)
	m.ObserveIngestion(&domain.TaskResult{Success: true, Error: domain.ErrSuperseded.Error()}, nil)
	m.ObserveIngestion(&domain.TaskResult{Error: "the PDF could not be read"}, nil)
	m.ObserveIngestion(nil, domain.ErrLockHeld)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Ingestions.WithLabelValues(OutcomeReady)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Ingestions.WithLabelValues(OutcomeSuperseded)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Ingestions.WithLabelValues(OutcomeFailed)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Ingestions.WithLabelValues(OutcomeRetry)))
	assert.Equal(t, 1, testutil.CollectAndCount(m.IngestionDuration))
}

func TestObserveChat(t *testing.T) {
	m := New()

	m.ObserveChat(&domain.Answer{Text: "200 guests", Citations: []int{1}}, nil, true)
	m.ObserveChat(domain.NewFallbackAnswer(), nil, true)
	m.ObserveChat(nil, errors.New("boom"), false)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ChatAnswers.WithLabelValues(ChatAnswered, "public")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ChatAnswers.WithLabelValues(ChatFallback, "public")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ChatAnswers.WithLabelValues(ChatError, "admin")))
}

func TestQueueStatsAndRetries(t *testing.T) {
	m := New()
	m.SetQueueStats(&driven.QueueStats{PendingCount: 3, ProcessingCount: 1, FailedCount: 2})
	m.EmbeddingRetry(1, errors.New("timeout"))
	m.EmbeddingRetry(2, errors.New("timeout"))

	assert.Equal(t, 3.0, testutil.ToFloat64(m.QueueTasks.WithLabelValues("pending")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.QueueTasks.WithLabelValues("processing")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.QueueTasks.WithLabelValues("failed")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.EmbeddingRetries))
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveIngestion(nil, nil)
		m.ObserveChat(nil, nil, false)
		m.EmbeddingRetry(1, nil)
		m.SetQueueStats(&driven.QueueStats{})
		m.ObserveRequest("/chat", 200)
	})
}

func TestHandler(t *testing.T) {
	m := New()
	m.ObserveRequest("/chat", http.StatusTooManyRequests)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `brochurebot_http_requests_total{code="4xx",route="/chat"} 1`))
	assert.True(t, strings.Contains(body, "go_goroutines"))
}
