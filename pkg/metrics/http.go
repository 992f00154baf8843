package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests, by method, route and status code.",
	}, []string{"method", "route", "code"})

	httpDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency, by method and route.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})

	RateLimitRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "rate_limit_total",
		Help:      "Requests checked against the per-client limit, by decision.",
	}, []string{"decision"})

	circuitBreakerState = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "circuit_breaker",
		Name:      "state",
		Help:      "Breaker state: 0 closed, 1 half-open, 2 open.",
	}, []string{"name"})

	circuitBreakerRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "circuit_breaker",
		Name:      "requests_total",
		Help:      "Calls through a breaker, by outcome (success, failure, rejected).",
	}, []string{"name", "outcome"})
)

var (
	HTTP       = Group{httpRequests, httpDuration, RateLimitRequestsTotal}
	Resilience = Group{circuitBreakerState, circuitBreakerRequests}
)

// ObserveHTTPRequest records one served request. route is the matched
// pattern, never the raw path.
func ObserveHTTPRequest(method, route string, code int, d time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	httpRequests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func SetCircuitBreakerState(name string, state float64) {
	circuitBreakerState.WithLabelValues(name).Set(state)
}

func IncCircuitBreakerRequest(name, outcome string) {
	circuitBreakerRequests.WithLabelValues(name, outcome).Inc()
}
