package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	auditEvents = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "audit",
		Name:      "events_total",
		Help:      "Audit events, by action and outcome (written, failed, dropped).",
	}, []string{"action", "status"})

	auditQueue = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "audit",
		Name:      "queue_length",
		Help:      "Audit events waiting to be written.",
	})
)

var Audit = Group{auditEvents, auditQueue}

func IncAuditEvent(action, status string) {
	auditEvents.WithLabelValues(action, status).Inc()
}

func SetAuditQueueSize(n int) {
	auditQueue.Set(float64(n))
}
