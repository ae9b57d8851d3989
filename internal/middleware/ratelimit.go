package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/maypok86/otter/v2"
	"golang.org/x/time/rate"
)

// RateLimitConfig holds configuration for rate limiting
type RateLimitConfig struct {
	RequestsPerSecond float64       // Sustained requests per second per client IP
	BurstSize         int           // Maximum burst size
	IdleTTL           time.Duration // Limiters unused for this long are dropped
	MaxClients        int           // Upper bound on tracked client IPs
}

// IPRateLimiter keeps one token bucket per client IP in an expiring cache.
type IPRateLimiter struct {
	limiters *otter.Cache[string, *rate.Limiter]
	config   RateLimitConfig
}

func NewIPRateLimiter(config RateLimitConfig) *IPRateLimiter {
	if config.IdleTTL <= 0 {
		config.IdleTTL = 5 * time.Minute
	}
	if config.MaxClients <= 0 {
		config.MaxClients = 10_000
	}

	return &IPRateLimiter{
		limiters: otter.Must(&otter.Options[string, *rate.Limiter]{
			MaximumSize:      config.MaxClients,
			ExpiryCalculator: otter.ExpiryAccessing[string, *rate.Limiter](config.IdleTTL),
		}),
		config: config,
	}
}

// Enabled reports whether requests are limited at all.
func (i *IPRateLimiter) Enabled() bool {
	return i.config.RequestsPerSecond > 0 && i.config.BurstSize > 0
}

// GetLimiter returns the rate limiter for a specific IP
func (i *IPRateLimiter) GetLimiter(ip string) *rate.Limiter {
	if limiter, ok := i.limiters.GetIfPresent(ip); ok {
		return limiter
	}

	limiter, _ := i.limiters.SetIfAbsent(ip, rate.NewLimiter(rate.Limit(i.config.RequestsPerSecond), i.config.BurstSize))
	return limiter
}

// RateLimitMiddleware rejects requests from a client IP that exceeded its budget.
func RateLimitMiddleware(limiter *IPRateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Enabled() {
			c.Next()
			return
		}

		if !limiter.GetLimiter(c.ClientIP()).Allow() {
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"status":  "error",
				"message": "Too many requests",
			})
			return
		}

		c.Next()
	}
}
