package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "ohacker"

var (
	metricActions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "computer_actions_total",
		Help:      "Computer capability calls by action and outcome.",
	}, []string{"action", "outcome"})

	metricSearchUnits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "search_units_total",
		Help:      "Research search units by outcome.",
	}, []string{"outcome"})

	metricAgentTurns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "agent_turns_total",
		Help:      "Decision-engine turns taken, by agent.",
	}, []string{"agent"})

	metricRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "agent_runs_total",
		Help:      "Agent runs by agent and outcome (success, error, exhausted).",
	}, []string{"agent", "outcome"})

	metricRunDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "agent_run_duration_seconds",
		Help:      "Wall-clock duration of agent runs.",
		Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
	}, []string{"agent"})
)

// Outcome labels.
const (
	OutcomeSuccess   = "success"
	OutcomeError     = "error"
	OutcomeExhausted = "exhausted"
)

// RecordAction counts one computer capability call.
func RecordAction(action string, err error) {
	metricActions.WithLabelValues(action, outcome(err)).Inc()
}

// RecordSearchUnit counts one completed fan-out search unit.
func RecordSearchUnit(err error) {
	metricSearchUnits.WithLabelValues(outcome(err)).Inc()
}

// RecordTurn counts one decision-engine request/response cycle.
func RecordTurn(agent string) {
	metricAgentTurns.WithLabelValues(agent).Inc()
}

// RecordRun counts a finished run and observes its duration in seconds.
func RecordRun(agent, result string, seconds float64) {
	metricRuns.WithLabelValues(agent, result).Inc()
	metricRunDuration.WithLabelValues(agent).Observe(seconds)
}

func outcome(err error) string {
	if err != nil {
		return OutcomeError
	}
	return OutcomeSuccess
}
