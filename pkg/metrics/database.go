package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	dbQueries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "db",
		Name:      "queries_total",
		Help:      "Store operations, by service, database, operation and status.",
	}, []string{"service", "database", "operation", "status"})

	dbDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "db",
		Name:      "query_duration_seconds",
		Help:      "Store operation latency.",
		Buckets:   prometheus.ExponentialBuckets(0.0005, 3, 10),
	}, []string{"service", "database", "operation"})
)

var Database = Group{dbQueries, dbDuration}

// ObserveDatabaseQuery records one operation outcome and its latency since start.
func ObserveDatabaseQuery(service, database, operation string, start time.Time, err error) {
	dbQueries.WithLabelValues(service, database, operation, outcome(err)).Inc()
	dbDuration.WithLabelValues(service, database, operation).Observe(time.Since(start).Seconds())
}
