// Package metrics provides Prometheus metrics instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration tracks HTTP request duration.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	// RequestsTotal tracks total HTTP requests.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// LLMCompletionDuration tracks completion call duration by outcome.
	LLMCompletionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "llm_completion_duration_seconds",
			Help:    "LLM completion call duration",
			Buckets: []float64{.25, .5, 1, 2, 5, 10, 20, 30, 45, 60},
		},
		[]string{"model", "status"},
	)

	// LLMTokensTotal tracks total LLM tokens processed.
	LLMTokensTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llm_tokens_total",
			Help: "Total LLM tokens processed",
		},
		[]string{"model", "direction"},
	)

	// LLMFallbacksTotal counts turns answered with the scripted fallback
	// because the completion API failed.
	LLMFallbacksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "llm_fallbacks_total",
			Help: "Turns answered with the scripted fallback reply",
		},
	)

	// PhaseClassificationsTotal counts classifier outcomes.
	PhaseClassificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "conversation_phase_classifications_total",
			Help: "Conversation phase classifier outcomes",
		},
		[]string{"phase"},
	)

	// ConversationsTotal tracks total conversations created.
	ConversationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "conversations_total",
			Help: "Total conversations created",
		},
		[]string{"tenant_id"},
	)

	// MessagesTotal tracks total messages appended to the log.
	MessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "messages_total",
			Help: "Total messages appended",
		},
		[]string{"tenant_id", "sender"},
	)

	// LeadsCreatedTotal tracks leads captured by the flow engine.
	LeadsCreatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leads_created_total",
			Help: "Leads captured from conversations",
		},
		[]string{"tenant_id"},
	)

	// LeadPersistenceErrorsTotal tracks failed lead insert/link attempts.
	LeadPersistenceErrorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "lead_persistence_errors_total",
			Help: "Failed lead insert or link attempts",
		},
	)
)

// RecordRequest records metrics for an HTTP request.
func RecordRequest(method, path, status string, duration float64) {
	RequestDuration.WithLabelValues(method, path, status).Observe(duration)
	RequestsTotal.WithLabelValues(method, path, status).Inc()
}

// RecordCompletion records metrics for an LLM completion call.
func RecordCompletion(model, status string, duration float64, tokensIn, tokensOut int) {
	LLMCompletionDuration.WithLabelValues(model, status).Observe(duration)
	LLMTokensTotal.WithLabelValues(model, "in").Add(float64(tokensIn))
	LLMTokensTotal.WithLabelValues(model, "out").Add(float64(tokensOut))
}

// RecordPhase records a classifier outcome.
func RecordPhase(phase string) {
	PhaseClassificationsTotal.WithLabelValues(phase).Inc()
}
