package middleware

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

type clientInfo struct {
	start time.Time
	count int
}

// memoryLimiter is a per-process fixed-window counter keyed by client IP.
type memoryLimiter struct {
	maxRequests int
	window      time.Duration
	now         func() time.Time

	mu        sync.Mutex
	clients   map[string]*clientInfo
	lastSweep time.Time
}

func newMemoryLimiter(maxRequests int, window time.Duration) *memoryLimiter {
	return &memoryLimiter{
		maxRequests: maxRequests,
		window:      window,
		now:         time.Now,
		clients:     make(map[string]*clientInfo),
	}
}

// allow counts one request from ip and reports whether it is within budget.
func (l *memoryLimiter) allow(ip string) bool {
	t := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	if t.Sub(l.lastSweep) > l.window {
		l.sweep(t)
	}

	ci, ok := l.clients[ip]
	if !ok || t.Sub(ci.start) > l.window {
		ci = &clientInfo{start: t}
		l.clients[ip] = ci
	}
	ci.count++
	return ci.count <= l.maxRequests
}

// sweep drops clients whose window has ended. Callers hold mu.
func (l *memoryLimiter) sweep(t time.Time) {
	for ip, ci := range l.clients {
		if t.Sub(ci.start) > l.window {
			delete(l.clients, ip)
		}
	}
	l.lastSweep = t
}

func (l *memoryLimiter) handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.allow(c.ClientIP()) {
			RLBlocked.WithLabelValues(routeLabel(c)).Inc()
			abortRateLimited(c)
			return
		}

		RLRequests.WithLabelValues(routeLabel(c)).Inc()
		c.Next()
	}
}

// SimpleRateLimit blocks clients that send more than maxRequests per window.
// State is per process; use RedisRateLimit when running several replicas.
func SimpleRateLimit(maxRequests int, window time.Duration) gin.HandlerFunc {
	return newMemoryLimiter(maxRequests, window).handler()
}
