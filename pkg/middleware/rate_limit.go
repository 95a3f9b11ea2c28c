package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type RateLimiterConfig struct {
	RequestsPerSecond int
	Burst             int
	CleanupInterval   time.Duration
	TTL               time.Duration
}

type rateLimiter struct {
	cfg RateLimiterConfig

	mu       sync.Mutex
	visitors map[string]*visitor
}

func (r *rateLimiter) get(ip string) *rate.Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()

	v, exists := r.visitors[ip]
	if !exists {
		limiter := rate.NewLimiter(rate.Limit(r.cfg.RequestsPerSecond), r.cfg.Burst)
		r.visitors[ip] = &visitor{limiter, time.Now()}
		return limiter
	}

	v.lastSeen = time.Now()
	return v.limiter
}

func (r *rateLimiter) cleanup() {
	for {
		time.Sleep(r.cfg.CleanupInterval)

		r.mu.Lock()
		for ip, v := range r.visitors {
			if time.Since(v.lastSeen) > r.cfg.TTL {
				delete(r.visitors, ip)
			}
		}
		r.mu.Unlock()
	}
}

// RateLimiterMiddleware limits requests per client IP. A non positive
// rate disables limiting.
func RateLimiterMiddleware(config RateLimiterConfig) gin.HandlerFunc {
	if config.RequestsPerSecond <= 0 {
		return func(c *gin.Context) { c.Next() }
	}

	if config.Burst <= 0 {
		config.Burst = config.RequestsPerSecond
	}
	if config.CleanupInterval == 0 {
		config.CleanupInterval = time.Minute
	}
	if config.TTL == 0 {
		config.TTL = 3 * time.Minute
	}

	rl := &rateLimiter{cfg: config, visitors: make(map[string]*visitor)}
	go rl.cleanup()

	return func(c *gin.Context) {
		if !rl.get(c.ClientIP()).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":     "Too many requests",
				"code":      "rate_limited",
				"requestID": c.GetString("requestID"),
			})
			return
		}

		c.Next()
	}
}
