package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/simp-lee/userdesk/internal/pkg"
)

// RateLimit applies a token bucket per client IP. Buckets idle for longer
// than idleTTL are dropped on the next sweep.
func RateLimit(rps float64, burst int) gin.HandlerFunc {
	l := newIPLimiter(rate.Limit(rps), burst, 10*time.Minute, time.Now)
	return func(c *gin.Context) {
		if l.allow(c.ClientIP()) {
			c.Next()
			return
		}
		c.Header("Retry-After", "1")
		pkg.Abort(c, http.StatusTooManyRequests, "Too many requests")
	}
}

type bucket struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

type ipLimiter struct {
	mu        sync.Mutex
	buckets   map[string]*bucket
	rps       rate.Limit
	burst     int
	idleTTL   time.Duration
	now       func() time.Time
	lastSweep time.Time
}

func newIPLimiter(rps rate.Limit, burst int, idleTTL time.Duration, now func() time.Time) *ipLimiter {
	return &ipLimiter{
		buckets:   make(map[string]*bucket),
		rps:       rps,
		burst:     burst,
		idleTTL:   idleTTL,
		now:       now,
		lastSweep: now(),
	}
}

func (l *ipLimiter) allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) > l.idleTTL {
		for key, b := range l.buckets {
			if now.Sub(b.lastSeen) > l.idleTTL {
				delete(l.buckets, key)
			}
		}
		l.lastSweep = now
	}

	b, ok := l.buckets[ip]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(l.rps, l.burst)}
		l.buckets[ip] = b
	}
	b.lastSeen = now
	return b.lim.AllowN(now, 1)
}
