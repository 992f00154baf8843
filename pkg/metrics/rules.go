package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	RulesCreatedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "rules",
		Name:      "created_total",
		Help:      "Rules created, by source (single or import) and action.",
	}, []string{"source", "action"})

	RulesDeletedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "rules",
		Name:      "deleted_total",
		Help:      "Rules deleted, by action.",
	}, []string{"action"})

	RulesImportDuplicatesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "rules",
		Name:      "import_duplicates_total",
		Help:      "Import records dropped as duplicates.",
	})

	activeRules = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "rules",
		Name:      "active",
		Help:      "Stored rules at the last full listing, by action.",
	}, []string{"action"})

	parserRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "parser",
		Name:      "requests_total",
		Help:      "Rule parse attempts, by strategy and status.",
	}, []string{"strategy", "status"})

	parserDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "parser",
		Name:      "duration_seconds",
		Help:      "Rule parse latency, by strategy.",
		Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
	}, []string{"strategy"})

	// FallbackUsageTotal counts falls from one parse strategy to the next.
	FallbackUsageTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "parser",
		Name:      "fallback_total",
		Help:      "Parser fallbacks, by component, target strategy and reason.",
	}, []string{"component", "strategy", "reason"})

	extractorRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "extractor",
		Name:      "requests_total",
		Help:      "Text-to-rule extractor calls, by extractor and status.",
	}, []string{"extractor", "status"})

	extractorDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "extractor",
		Name:      "duration_seconds",
		Help:      "Text-to-rule extractor latency.",
		Buckets:   prometheus.ExponentialBuckets(0.01, 2.5, 8),
	}, []string{"extractor"})

	matcherDecisions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "matcher",
		Name:      "decisions_total",
		Help:      "Suppression decisions, by caller and result.",
	}, []string{"caller", "result"})
)

// Rules is registered by the rules service.
var Rules = Group{
	RulesCreatedTotal,
	RulesDeletedTotal,
	RulesImportDuplicatesTotal,
	activeRules,
	parserRequests,
	parserDuration,
	FallbackUsageTotal,
	extractorRequests,
	extractorDuration,
	matcherDecisions,
}

func SetActiveRules(action string, count int) {
	activeRules.WithLabelValues(action).Set(float64(count))
}

func IncParserRequest(strategy, status string) {
	parserRequests.WithLabelValues(strategy, status).Inc()
}

func ObserveParserDuration(strategy string, d time.Duration) {
	parserDuration.WithLabelValues(strategy).Observe(d.Seconds())
}

func IncExtractorRequest(extractor, status string) {
	extractorRequests.WithLabelValues(extractor, status).Inc()
}

func ObserveExtractorDuration(extractor string, d time.Duration) {
	extractorDuration.WithLabelValues(extractor).Observe(d.Seconds())
}

func IncMatcherDecision(caller string, suppressed bool) {
	result := "kept"
	if suppressed {
		result = "suppressed"
	}
	matcherDecisions.WithLabelValues(caller, result).Inc()
}
