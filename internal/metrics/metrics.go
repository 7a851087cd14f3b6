package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Triage service metrics
var (
	// Classifier gateway metrics
	ClassifierCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "guildcare_classifier_calls_total",
			Help: "Total number of classifier calls by task and outcome",
		},
		[]string{"task", "outcome"}, // outcome: direct/extracted/anchored/fallback/unavailable/cached
	)

	ClassifierDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "guildcare_classifier_duration_seconds",
			Help:    "Classifier call duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms to ~25s
		},
		[]string{"task"},
	)

	// Decision core metrics
	AnalysesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "guildcare_analyses_total",
			Help: "Total number of completed analyses",
		},
		[]string{"issue_type", "tier"},
	)

	ContradictionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "guildcare_contradictions_total",
			Help: "Total number of detected claim contradictions",
		},
		[]string{"outcome"}, // outcome: denied/specialist
	)

	// Escalation metrics
	CaseRoutesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "guildcare_case_routes_total",
			Help: "Total number of case state transitions",
		},
		[]string{"state"},
	)

	// Ledger metrics
	LedgerTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "guildcare_ledger_transitions_total",
			Help: "Total number of compensation request transition attempts",
		},
		[]string{"status", "result"}, // result: applied/ignored
	)

	// API metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "guildcare_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "method", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "guildcare_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)

	// Health metrics
	DependencyUp = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "guildcare_dependency_up",
			Help: "Whether a dependency passed its last health check (1) or not (0)",
		},
		[]string{"dependency"},
	)
)
