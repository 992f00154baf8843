// Package ratelimit throttles API callers with one token bucket per client.
package ratelimit

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"triage/internal/config"
	"triage/pkg/metrics"
)

type Settings struct {
	RPS   float64
	Burst int
	// Idle buckets older than MaxAge are dropped every CleanupInterval.
	CleanupInterval time.Duration
	MaxAge          time.Duration
}

func SettingsFrom(cfg config.RateLimitConfig) Settings {
	s := Settings{
		RPS:             cfg.RPS,
		Burst:           cfg.Burst,
		CleanupInterval: time.Duration(cfg.CleanupInterval) * time.Second,
		MaxAge:          time.Duration(cfg.MaxAge) * time.Second,
	}
	if s.RPS <= 0 {
		s.RPS = 10
	}
	if s.Burst <= 0 {
		s.Burst = int(math.Ceil(s.RPS))
	}
	if s.CleanupInterval <= 0 {
		s.CleanupInterval = 5 * time.Minute
	}
	if s.MaxAge <= 0 {
		s.MaxAge = 2 * s.CleanupInterval
	}
	return s
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type Limiter struct {
	settings Settings
	now      func() time.Time

	mu      sync.Mutex
	buckets map[string]*bucket
}

func New(s Settings) *Limiter {
	return &Limiter{
		settings: s,
		now:      time.Now,
		buckets:  make(map[string]*bucket),
	}
}

// Allow takes a token from key's bucket.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(rate.Limit(l.settings.RPS), l.settings.Burst)}
		l.buckets[key] = b
	}
	now := l.now()
	b.lastSeen = now
	l.mu.Unlock()

	return b.limiter.AllowN(now, 1)
}

// Run evicts idle buckets until ctx is done.
func (l *Limiter) Run(ctx context.Context) {
	ticker := time.NewTicker(l.settings.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.evict()
		}
	}
}

func (l *Limiter) evict() {
	cutoff := l.now().Add(-l.settings.MaxAge)
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, b := range l.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(l.buckets, key)
		}
	}
}

// Middleware keys buckets by client IP and answers 429 when one is empty.
func (l *Limiter) Middleware() gin.HandlerFunc {
	retryAfter := strconv.Itoa(int(math.Ceil(1 / l.settings.RPS)))
	limit := strconv.FormatFloat(l.settings.RPS, 'f', -1, 64)

	return func(c *gin.Context) {
		c.Header("X-RateLimit-Limit", limit)
		if !l.Allow(c.ClientIP()) {
			metrics.RateLimitRequestsTotal.WithLabelValues("limited").Inc()
			c.Header("Retry-After", retryAfter)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":      "rate limit exceeded",
				"error_code": "RATE_LIMIT_EXCEEDED",
			})
			return
		}
		metrics.RateLimitRequestsTotal.WithLabelValues("allowed").Inc()
		c.Next()
	}
}
