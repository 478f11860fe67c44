package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const limiterIdle = 10 * time.Minute

type uidLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// rateLimiter keeps one token bucket per player.
type rateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*uidLimiter
	rate     rate.Limit
	burst    int
}

func newRateLimiter(perMinute int) *rateLimiter {
	if perMinute <= 0 {
		perMinute = 10
	}
	return &rateLimiter{
		limiters: make(map[string]*uidLimiter),
		rate:     rate.Every(time.Minute / time.Duration(perMinute)),
		burst:    perMinute,
	}
}

func (rl *rateLimiter) allow(uid string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	entry, ok := rl.limiters[uid]
	if !ok {
		entry = &uidLimiter{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.limiters[uid] = entry
	}
	entry.lastSeen = time.Now()
	return entry.limiter.Allow()
}

func (rl *rateLimiter) cleanupLoop(ctx context.Context) {
	ticker := time.NewTicker(limiterIdle)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.prune(time.Now().Add(-limiterIdle))
		}
	}
}

func (rl *rateLimiter) prune(cutoff time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for uid, entry := range rl.limiters {
		if entry.lastSeen.Before(cutoff) {
			delete(rl.limiters, uid)
		}
	}
}

// limit must run after requireAuth.
func (s *Server) limit(c *gin.Context) {
	id := currentIdentity(c)
	if !s.limiter.allow(id.UID) {
		writeError(c, http.StatusTooManyRequests, "too many requests, try again later")
		return
	}
	c.Next()
}
