package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

type requestLimiter interface {
	Allow() bool
}

// fixedWindowLimiter admits up to limit requests per wall-clock minute,
// shared across every route it guards.
type fixedWindowLimiter struct {
	mu          sync.Mutex
	limit       int
	windowStart time.Time
	count       int
	now         func() time.Time
}

func newFixedWindowLimiter(limit int, now func() time.Time) *fixedWindowLimiter {
	if now == nil {
		now = time.Now
	}

	return &fixedWindowLimiter{
		limit: limit,
		now:   now,
	}
}

func (l *fixedWindowLimiter) Allow() bool {
	currentWindow := l.now().UTC().Truncate(time.Minute)

	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.windowStart.Equal(currentWindow) {
		l.windowStart = currentWindow
		l.count = 0
	}

	if l.count >= l.limit {
		return false
	}

	l.count++
	return true
}

func newAdvisoryRateLimiter(perMinute int, now func() time.Time) requestLimiter {
	if perMinute <= 0 {
		return nil
	}
	return newFixedWindowLimiter(perMinute, now)
}

func rateLimit(limiter requestLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil || limiter.Allow() {
			c.Next()
			return
		}
		c.Header("Retry-After", "60")
		writeError(c, http.StatusTooManyRequests, "Rate limit exceeded", "", "rate_limited")
	}
}
