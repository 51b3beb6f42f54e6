package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimit throttles requests per authenticated user, falling back to the
// client IP. A non-positive limit disables throttling.
func RateLimit(limit float64, burst int) gin.HandlerFunc {
	if limit <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	if burst <= 0 {
		burst = 1
	}

	limiters := newKeyedLimiters(rate.Limit(limit), burst)
	return func(c *gin.Context) {
		if !limiters.allow(limiterKey(c)) {
			c.Header("Retry-After", "1")
			c.AbortWithStatus(http.StatusTooManyRequests)
			return
		}
		c.Next()
	}
}

func limiterKey(c *gin.Context) string {
	if v, ok := c.Get(UserIDContextKey); ok {
		if id, ok := v.(int64); ok {
			return "user:" + strconv.FormatInt(id, 10)
		}
	}
	return "ip:" + c.ClientIP()
}

// minSweepSize is the map size that triggers the first idle sweep.
const minSweepSize = 1024

type keyedLimiters struct {
	mu      sync.Mutex
	limit   rate.Limit
	burst   int
	byKey   map[string]*rate.Limiter
	sweepAt int
	now     func() time.Time
}

func newKeyedLimiters(limit rate.Limit, burst int) *keyedLimiters {
	return &keyedLimiters{
		limit:   limit,
		burst:   burst,
		byKey:   make(map[string]*rate.Limiter),
		sweepAt: minSweepSize,
		now:     time.Now,
	}
}

func (l *keyedLimiters) allow(key string) bool {
	now := l.now()
	l.mu.Lock()
	lim, ok := l.byKey[key]
	if !ok {
		if len(l.byKey) >= l.sweepAt {
			l.evictIdle(now)
		}
		lim = rate.NewLimiter(l.limit, l.burst)
		l.byKey[key] = lim
	}
	l.mu.Unlock()
	return lim.AllowN(now, 1)
}

// evictIdle drops limiters that have refilled to burst. A fresh limiter is
// indistinguishable from those, so eviction never grants extra requests.
// The next sweep waits until the map doubles.
func (l *keyedLimiters) evictIdle(now time.Time) {
	for key, lim := range l.byKey {
		if lim.TokensAt(now) >= float64(l.burst) {
			delete(l.byKey, key)
		}
	}
	l.sweepAt = max(minSweepSize, 2*len(l.byKey))
}
