package constants

import "time"

const (
	CacheKeyPrefixExtractor = "triage:extract:"
	LockKeySweep            = "triage:lock:sweep"
)

const (
	DefaultRuleEventsTopic = "rule_events"
	DefaultSweepGroupID    = "sweep-service"
)

const (
	DefaultMongoDBName         = "triage"
	AuditEventsCollection      = "audit_events"
	DefaultAuditStore          = AuditStorePostgres
	DefaultAuditQueueSize      = 1024
	DefaultAuditWorkers        = 2
	DefaultAuditWriteTimeout   = 5 * time.Second
	DefaultExtractorTimeout    = 15 * time.Second
	DefaultExtractorCacheTTL   = 24 * time.Hour
	DefaultSweepInterval       = 5 * time.Minute
	DefaultSweepWorkers        = 8
	DefaultSweepLockTTL        = 10 * time.Minute
	DefaultSweepDeleteTimeout  = 5 * time.Second
	DefaultParserDefaultAction = "SUPPRESS"

	MaxExtractorResponseBytes = 1 << 20
)

const (
	ShutdownTimeout = 5 * time.Second
)

const (
	DefaultLimit = 100
	MaxLimit     = 1000
)

const (
	HTTPStatusOKMin = 200
	HTTPStatusOKMax = 300
)

const (
	AuditStorePostgres = "postgres"
	AuditStoreMongoDB  = "mongodb"
)

const (
	StrategyHeuristic = "heuristic"
	StrategyAI        = "ai"
)

const (
	ExtractorNameHTTP  = "http"
	ExtractorNameCache = "cache"
)

const (
	SweepTriggerSchedule = "schedule"
	SweepTriggerEvent    = "rule_event"
	SweepTriggerManual   = "manual"
)
