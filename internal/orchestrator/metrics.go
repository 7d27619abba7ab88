package orchestrator

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricsOnce sync.Once

	stageExecutions  *prometheus.CounterVec
	workflowDuration prometheus.Histogram
	routingOutcomes  *prometheus.CounterVec
	escalationsTotal prometheus.Counter
)

// initMetrics registers orchestrator metrics once, on first use.
func initMetrics() {
	metricsOnce.Do(func() {
		stageExecutions = promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "crewkit",
			Subsystem: "orchestrator",
			Name:      "stage_executions_total",
			Help:      "Stage executions by stage and terminal status.",
		}, []string{"stage", "status"})

		workflowDuration = promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: "crewkit",
			Subsystem: "orchestrator",
			Name:      "workflow_duration_seconds",
			Help:      "End-to-end workflow run duration.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
		})

		routingOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "crewkit",
			Subsystem: "orchestrator",
			Name:      "failure_routing_total",
			Help:      "Failure routing attempts by source stage and outcome.",
		}, []string{"from", "outcome"})

		escalationsTotal = promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "crewkit",
			Subsystem: "orchestrator",
			Name:      "escalations_total",
			Help:      "Conflicts escalated for resolution.",
		})
	})
}

func observeStage(stage Stage, status TaskStatus) {
	if stageExecutions != nil {
		stageExecutions.WithLabelValues(string(stage), string(status)).Inc()
	}
}

func observeWorkflow(seconds float64) {
	if workflowDuration != nil {
		workflowDuration.Observe(seconds)
	}
}

func observeRouting(from Stage, outcome string) {
	if routingOutcomes != nil {
		routingOutcomes.WithLabelValues(string(from), outcome).Inc()
	}
}

func observeEscalation() {
	if escalationsTotal != nil {
		escalationsTotal.Inc()
	}
}
