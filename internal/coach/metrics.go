package coach

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/abhisek/stepwise/internal/tutor"
)

var (
	// turnsTotal counts handled turns by the phase the session ended in.
	turnsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stepwise_turns_total",
		Help: "Tutoring turns handled, by resulting phase",
	}, []string{"phase"})

	// turnDuration tracks end-to-end turn latency including oracle calls.
	turnDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "stepwise_turn_duration_seconds",
		Help:    "Tutoring turn duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.005, 2, 14), // 5ms to ~40s
	})

	phaseTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stepwise_phase_transitions_total",
		Help: "State machine transitions by source and target phase",
	}, []string{"from", "to"})

	masteryCommits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stepwise_mastery_commits_total",
		Help: "Mastery commits applied, by trigger",
	}, []string{"trigger"})

	oracleFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stepwise_oracle_failures_total",
		Help: "Oracle failures turned into retry replies, by kind",
	}, []string{"kind"})
)

func observeTurn(res tutor.Result, elapsed time.Duration) {
	turnsTotal.WithLabelValues(res.Session.Phase.String()).Inc()
	turnDuration.Observe(elapsed.Seconds())
	for i := 1; i < len(res.Path); i++ {
		phaseTransitions.WithLabelValues(res.Path[i-1].String(), res.Path[i].String()).Inc()
	}
	if res.OracleErr != nil {
		oracleFailures.WithLabelValues(oracleFailureKind(res.OracleErr)).Inc()
	}
}
