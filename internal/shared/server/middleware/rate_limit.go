package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const maxTrackedClients = 10000

// RateLimitRule is a token bucket refilled PerHour times an hour.
type RateLimitRule struct {
	PerHour int
	Burst   int
}

// RateLimiter keeps one token bucket per key.
type RateLimiter struct {
	mu       sync.Mutex
	rule     RateLimitRule
	limiters map[string]*rate.Limiter
	now      func() time.Time
}

func NewRateLimiter(rule RateLimitRule, now func() time.Time) *RateLimiter {
	if now == nil {
		now = time.Now
	}
	return &RateLimiter{
		rule:     rule,
		limiters: make(map[string]*rate.Limiter),
		now:      now,
	}
}

// Allow consumes a token for key. When none is available it returns the wait
// until the next token.
func (l *RateLimiter) Allow(key string) (bool, time.Duration) {
	if l == nil || l.rule.PerHour <= 0 || l.rule.Burst <= 0 {
		return true, 0
	}
	now := l.now()

	l.mu.Lock()
	lim, ok := l.limiters[key]
	if !ok {
		if len(l.limiters) >= maxTrackedClients {
			l.limiters = make(map[string]*rate.Limiter)
		}
		lim = rate.NewLimiter(rate.Limit(float64(l.rule.PerHour)/3600.0), l.rule.Burst)
		l.limiters[key] = lim
	}
	l.mu.Unlock()

	res := lim.ReserveN(now, 1)
	if !res.OK() {
		return false, time.Hour
	}
	delay := res.DelayFrom(now)
	if delay <= 0 {
		return true, 0
	}
	res.CancelAt(now)
	return false, delay
}

// AnonymousRateLimit throttles callers without a session by client IP.
// Authenticated callers pass through; their quota is enforced elsewhere.
func AnonymousRateLimit(l *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if UserIDFromContext(c) != "" {
			c.Next()
			return
		}
		allowed, retryAfter := l.Allow("anon|" + c.ClientIP())
		if allowed {
			c.Next()
			return
		}
		retryAfterMs := int(retryAfter / time.Millisecond)
		if retryAfterMs <= 0 {
			retryAfterMs = 1000
		}
		retryAfterSeconds := int(math.Ceil(float64(retryAfterMs) / 1000.0))
		c.Header("Retry-After", strconv.Itoa(retryAfterSeconds))
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"error":        "rate_limited",
			"message":      "Too many requests without an account. Sign in or try again later.",
			"retryAfterMs": retryAfterMs,
		})
	}
}
