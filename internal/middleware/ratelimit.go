package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ipsentry/ipsentry/internal/pkg/metrics"
	"golang.org/x/time/rate"
)

// keyedLimiter hands out one token bucket per key. Entries idle longer
// than pruneAfter are dropped once the map grows past pruneThreshold.
type keyedLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	rate    rate.Limit
	burst   int
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

const (
	pruneThreshold = 10000
	pruneAfter     = 10 * time.Minute
)

func newKeyedLimiter(r rate.Limit, burst int) *keyedLimiter {
	return &keyedLimiter{
		buckets: make(map[string]*bucket),
		rate:    r,
		burst:   burst,
	}
}

func (l *keyedLimiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key]
	if !ok {
		if len(l.buckets) >= pruneThreshold {
			l.prune()
		}
		b = &bucket{limiter: rate.NewLimiter(l.rate, l.burst)}
		l.buckets[key] = b
	}
	b.lastSeen = time.Now()
	return b.limiter.Allow()
}

func (l *keyedLimiter) prune() {
	cutoff := time.Now().Add(-pruneAfter)
	for key, b := range l.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(l.buckets, key)
		}
	}
}

func perMinute(n int) rate.Limit {
	if n <= 0 {
		n = 1
	}
	return rate.Every(time.Minute / time.Duration(n))
}

// RateLimit throttles per (address, route, role). Requests carrying an
// Authorization header count against the authenticated budget,
// everything else against the anonymous one.
func RateLimit(anonPerMinute, authPerMinute int) gin.HandlerFunc {
	anon := newKeyedLimiter(perMinute(anonPerMinute), anonPerMinute)
	authed := newKeyedLimiter(perMinute(authPerMinute), authPerMinute)

	return func(c *gin.Context) {
		key := ClientIP(c) + ":" + c.FullPath()

		limiter := anon
		if c.GetHeader("Authorization") != "" {
			limiter = authed
		}

		if !limiter.Allow(key) {
			metrics.RateLimitedTotal.WithLabelValues(c.FullPath()).Inc()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "rate limit exceeded",
				"retry_after": "60s",
			})
			return
		}

		c.Next()
	}
}
