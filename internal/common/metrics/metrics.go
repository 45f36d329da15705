// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OnboardingSessionsStarted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "onboarding_sessions_started_total",
			Help: "Total number of onboarding sessions started",
		},
	)

	OnboardingSessionsCompleted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "onboarding_sessions_completed_total",
			Help: "Total number of onboarding sessions that reached the end of the flow",
		},
	)

	OnboardingFinalizes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "onboarding_finalizes_total",
			Help: "Finalize operations by mode and outcome",
		},
		[]string{"mode", "outcome"},
	)

	PersistenceFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "persistence_failures_total",
			Help: "Durable write failures by operation",
		},
		[]string{"operation"},
	)

	CheckInsRecorded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "checkins_recorded_total",
			Help: "Total number of daily check-ins recorded",
		},
	)

	ChatCompletions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_completions_total",
			Help: "Chat completion requests by outcome",
		},
		[]string{"outcome"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "http_request_duration_seconds",
			Help: "Duration of HTTP requests in seconds",
		},
		[]string{"route", "method", "status"},
	)
)
