package utils

import (
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/dustin/movie-recommender/config"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const limiterIdleTTL = time.Hour

// RateLimiter applies a token bucket per client IP
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*limiterEntry
	rate     rate.Limit
	burst    int
	now      func() time.Time
}

type limiterEntry struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// NewRateLimiter allows rps requests per second per client with the given burst
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	return &RateLimiter{
		limiters: make(map[string]*limiterEntry),
		rate:     rate.Limit(rps),
		burst:    burst,
		now:      time.Now,
	}
}

// NewRateLimiterFromConfig returns nil when no limit is configured
func NewRateLimiterFromConfig(cfg *config.ServerConfig) (*RateLimiter, error) {
	if cfg.RateLimit == "" {
		return nil, nil
	}
	rps, err := strconv.ParseFloat(cfg.RateLimit, 64)
	if err != nil || rps <= 0 {
		return nil, fmt.Errorf("invalid rate limit '%s': must be a positive number", cfg.RateLimit)
	}

	burst := int(rps)
	if burst < 1 {
		burst = 1
	}
	if cfg.RateBurst != "" {
		burst, err = strconv.Atoi(cfg.RateBurst)
		if err != nil || burst < 1 {
			return nil, fmt.Errorf("invalid rate burst '%s': must be a positive integer", cfg.RateBurst)
		}
	}
	return NewRateLimiter(rps, burst), nil
}

// Allow reports whether the client may make a request now
func (rl *RateLimiter) Allow(client string) bool {
	now := rl.now()

	rl.mu.Lock()
	entry, ok := rl.limiters[client]
	if !ok {
		entry = &limiterEntry{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.limiters[client] = entry
	}
	entry.lastAccess = now
	limiter := entry.limiter
	rl.mu.Unlock()

	return limiter.AllowN(now, 1)
}

// Cleanup drops limiters idle for longer than an hour
func (rl *RateLimiter) Cleanup() {
	threshold := rl.now().Add(-limiterIdleTTL)

	rl.mu.Lock()
	defer rl.mu.Unlock()
	for client, entry := range rl.limiters {
		if entry.lastAccess.Before(threshold) {
			delete(rl.limiters, client)
		}
	}
}

// Middleware rejects requests over the limit with 429
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.Allow(c.ClientIP()) {
			c.Header("Retry-After", "1")
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests", "code": "rate_limited"})
			c.Abort()
			return
		}
		c.Next()
	}
}
