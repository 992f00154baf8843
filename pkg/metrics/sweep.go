package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	SweepRunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "sweep",
		Name:      "runs_total",
		Help:      "Suppression sweeps, by trigger and status.",
	}, []string{"trigger", "status"})

	SweepTasksTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "sweep",
		Name:      "tasks_total",
		Help:      "Tasks visited by sweeps, by result.",
	}, []string{"result"})

	sweepDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "sweep",
		Name:      "duration_seconds",
		Help:      "Suppression sweep duration.",
		Buckets:   prometheus.ExponentialBuckets(0.01, 3, 10),
	})
)

var Sweep = Group{SweepRunsTotal, SweepTasksTotal, sweepDuration, matcherDecisions}

func ObserveSweepDuration(d time.Duration) {
	sweepDuration.Observe(d.Seconds())
}
