package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"triage/internal/config"
)

func TestSettingsFrom_Defaults(t *testing.T) {
	s := SettingsFrom(config.RateLimitConfig{RPS: 2.5})

	assert.Equal(t, 2.5, s.RPS)
	assert.Equal(t, 3, s.Burst)
	assert.Equal(t, 5*time.Minute, s.CleanupInterval)
	assert.Equal(t, 10*time.Minute, s.MaxAge)
}

func TestLimiter_AllowPerKey(t *testing.T) {
	l := New(Settings{RPS: 1, Burst: 2, CleanupInterval: time.Minute, MaxAge: time.Minute})
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	assert.True(t, l.Allow("a"))
	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))
	assert.True(t, l.Allow("b"))

	now = now.Add(time.Second)
	assert.True(t, l.Allow("a"))
}

func TestLimiter_EvictsIdleBuckets(t *testing.T) {
	l := New(Settings{RPS: 1, Burst: 1, CleanupInterval: time.Minute, MaxAge: time.Minute})
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	l.Allow("old")
	now = now.Add(30 * time.Second)
	l.Allow("recent")
	now = now.Add(45 * time.Second)

	l.evict()
	assert.NotContains(t, l.buckets, "old")
	assert.Contains(t, l.buckets, "recent")
}

func TestLimiter_Middleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	l := New(Settings{RPS: 1, Burst: 1, CleanupInterval: time.Minute, MaxAge: time.Minute})

	router := gin.New()
	router.Use(l.Middleware())
	router.GET("/", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	codes := make([]int, 0, 2)
	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		codes = append(codes, w.Code)
		if w.Code == http.StatusTooManyRequests {
			assert.Equal(t, "1", w.Header().Get("Retry-After"))
		}
	}
	assert.Equal(t, []int{http.StatusNoContent, http.StatusTooManyRequests}, codes)
}
