package middleware

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"swisswheels/app/internal/config"
)

// clientLimiter holds the rate limiters for one client.
type clientLimiter struct {
	softLimiter *rate.Limiter
	hardLimiter *rate.Limiter
	lastSeen    time.Time
}

// RateLimiterMiddleware applies a two-tier limit per client: the soft tier
// pushes unattested clients towards device attestation, the hard tier caps
// everyone.
type RateLimiterMiddleware struct {
	mu      sync.Mutex
	clients map[string]*clientLimiter
	cfg     *config.Config
}

// NewRateLimiterMiddleware creates a RateLimiterMiddleware and starts its
// cleanup loop.
func NewRateLimiterMiddleware(cfg *config.Config) *RateLimiterMiddleware {
	rm := &RateLimiterMiddleware{
		clients: make(map[string]*clientLimiter),
		cfg:     cfg,
	}
	go rm.cleanupClients()
	return rm
}

func (rm *RateLimiterMiddleware) getClientLimiter(identifier string) *clientLimiter {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	limiter, exists := rm.clients[identifier]
	if !exists {
		limiter = &clientLimiter{
			softLimiter: rate.NewLimiter(rate.Limit(rm.cfg.RateLimitSoftRefillRate), rm.cfg.RateLimitSoftBucketSize),
			hardLimiter: rate.NewLimiter(rate.Limit(rm.cfg.RateLimitHardRefillRate), rm.cfg.RateLimitHardBucketSize),
		}
		rm.clients[identifier] = limiter
	}
	limiter.lastSeen = time.Now()
	return limiter
}

func (rm *RateLimiterMiddleware) cleanupClients() {
	for {
		time.Sleep(10 * time.Minute)
		rm.mu.Lock()
		count := 0
		for id, client := range rm.clients {
			if time.Since(client.lastSeen) > 30*time.Minute {
				delete(rm.clients, id)
				count++
			}
		}
		rm.mu.Unlock()
		if count > 0 {
			log.Printf("Rate limiter cleanup removed %d old client entries.", count)
		}
	}
}

// Limit creates the Gin middleware handler. Assumes AttestMiddleware runs
// first so the soft tier can exempt trusted devices.
func (rm *RateLimiterMiddleware) Limit() gin.HandlerFunc {
	return func(c *gin.Context) {
		limiter := rm.getClientLimiter(clientID(c))

		if !limiter.hardLimiter.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Rate limit exceeded"})
			return
		}

		trusted := c.GetBool(ContextKeyDeviceTrusted)
		if !trusted && !limiter.softLimiter.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Rate limit exceeded, device attestation required"})
			return
		}

		c.Next()
	}
}
