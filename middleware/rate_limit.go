package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// submission throttle defaults: the API is consumer-facing but low volume
const (
	submitRate       = rate.Limit(1) // sustained requests per second per IP
	submitBurst      = 5
	limiterIdleTTL   = 15 * time.Minute
	limiterCleanupAt = 10 * time.Minute
)

type ipLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// SubmissionLimiter throttles submission requests per client IP
type SubmissionLimiter struct {
	mu       sync.Mutex
	limiters map[string]*ipLimiter
}

// NewSubmissionLimiter creates the limiter and starts its cleanup loop
func NewSubmissionLimiter() *SubmissionLimiter {
	sl := &SubmissionLimiter{limiters: make(map[string]*ipLimiter)}
	go sl.startCleanup()
	return sl
}

func (sl *SubmissionLimiter) get(ip string) *rate.Limiter {
	sl.mu.Lock()
	defer sl.mu.Unlock()

	entry, ok := sl.limiters[ip]
	if !ok {
		entry = &ipLimiter{limiter: rate.NewLimiter(submitRate, submitBurst)}
		sl.limiters[ip] = entry
	}
	entry.lastSeen = time.Now()
	return entry.limiter
}

// startCleanup periodically drops limiters for idle IPs
func (sl *SubmissionLimiter) startCleanup() {
	ticker := time.NewTicker(limiterCleanupAt)
	for range ticker.C {
		sl.mu.Lock()
		for ip, entry := range sl.limiters {
			if time.Since(entry.lastSeen) > limiterIdleTTL {
				delete(sl.limiters, ip)
			}
		}
		sl.mu.Unlock()
	}
}

// Middleware rejects requests over the per-IP budget with 429
func (sl *SubmissionLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !sl.get(c.ClientIP()).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"status":  "error",
				"message": "Too many requests, slow down.",
			})
			return
		}
		c.Next()
	}
}
