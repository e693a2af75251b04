package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequests counts served API requests by route and status.
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "together",
		Subsystem: "agent_http",
		Name:      "requests_total",
		Help:      "Total number of agent API requests served.",
	}, []string{"method", "route", "status"})

	// HTTPLatency tracks the latency distribution of API requests.
	HTTPLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "together",
		Subsystem: "agent_http",
		Name:      "latency_seconds",
		Help:      "Latency distribution for agent API requests.",
		Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
	}, []string{"method", "route"})

	// DecisionEventsProcessed counts activity events consumed by decision passes.
	DecisionEventsProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "together",
		Subsystem: "agent_decision",
		Name:      "events_processed_total",
		Help:      "Total number of activity events evaluated by the decision engine.",
	})

	// DecisionPlansGenerated counts action plans produced by decision passes.
	DecisionPlansGenerated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "together",
		Subsystem: "agent_decision",
		Name:      "plans_generated_total",
		Help:      "Total number of action plans generated by the decision engine.",
	})

	// ActionExecutions counts executed actions by type and terminal status.
	ActionExecutions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "together",
		Subsystem: "agent_execution",
		Name:      "actions_total",
		Help:      "Total number of action executions by outcome.",
	}, []string{"action_type", "status"})

	// SuggestionReads counts suggestion reads by how they were served.
	SuggestionReads = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "together",
		Subsystem: "agent_suggestions",
		Name:      "reads_total",
		Help:      "Total number of suggestion bundle reads by serving path.",
	}, []string{"outcome"})

	// HarvestedEvents counts events recorded by the harvesters.
	HarvestedEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "together",
		Subsystem: "agent_harvest",
		Name:      "events_total",
		Help:      "Total number of activity events recorded by harvesters.",
	}, []string{"harvester"})
)
