package parser

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/redis/go-redis/v9"

	"triage/internal/constants"
	"triage/internal/logger"
	"triage/internal/rules"
	"triage/pkg/metrics"
)

type cacheClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// CachingExtractor serves extractor output from Redis. Extract only reads the
// cache; the Parser calls Remember once the output has passed validation, so a
// rejected reply is never replayed. Cache failures fall through to the inner extractor.
type CachingExtractor struct {
	inner  TextToRule
	client cacheClient
	ttl    time.Duration
	logger logger.Logger
}

func NewCachingExtractor(inner TextToRule, client cacheClient, ttl time.Duration, log logger.Logger) *CachingExtractor {
	if ttl <= 0 {
		ttl = constants.DefaultExtractorCacheTTL
	}
	return &CachingExtractor{
		inner:  inner,
		client: client,
		ttl:    ttl,
		logger: log,
	}
}

func (e *CachingExtractor) Extract(ctx context.Context, text string, defaultAction rules.Action) (string, error) {
	key := CacheKey(text, defaultAction)

	cached, err := e.client.Get(ctx, key).Result()
	switch {
	case err == nil:
		metrics.IncExtractorRequest(constants.ExtractorNameCache, "hit")
		return cached, nil
	case err == redis.Nil:
		metrics.IncExtractorRequest(constants.ExtractorNameCache, "miss")
	default:
		metrics.IncExtractorRequest(constants.ExtractorNameCache, "error")
		e.logger.WarnwCtx(ctx, "Extractor cache read failed", "error", err)
	}

	return e.inner.Extract(ctx, text, defaultAction)
}

// Remember caches output for text. Writing a hit again refreshes its TTL.
func (e *CachingExtractor) Remember(ctx context.Context, text string, defaultAction rules.Action, output string) {
	if err := e.client.Set(ctx, CacheKey(text, defaultAction), output, e.ttl).Err(); err != nil {
		e.logger.WarnwCtx(ctx, "Extractor cache write failed", "error", err)
	}
}

func CacheKey(text string, defaultAction rules.Action) string {
	sum := sha256.Sum256([]byte(string(defaultAction) + "|" + text))
	return constants.CacheKeyPrefixExtractor + hex.EncodeToString(sum[:])
}
