package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const visitorIdle = 3 * time.Minute

type visitor struct {
	limiter *rate.Limiter

	mu       sync.Mutex
	lastSeen time.Time
}

func (v *visitor) touch(now time.Time) {
	v.mu.Lock()
	v.lastSeen = now
	v.mu.Unlock()
}

func (v *visitor) idleSince(now time.Time) time.Duration {
	v.mu.Lock()
	defer v.mu.Unlock()
	return now.Sub(v.lastSeen)
}

// RateLimiter tracks per-IP token bucket limiters.
type RateLimiter struct {
	visitors sync.Map
	rps      rate.Limit
	burst    int
}

// NewRateLimiter returns a gin middleware applying per-IP rate limiting.
// Idle visitors are swept until ctx is done.
func NewRateLimiter(ctx context.Context, rps rate.Limit, burst int) gin.HandlerFunc {
	rl := &RateLimiter{rps: rps, burst: burst}
	go rl.cleanupLoop(ctx)
	return rl.handle
}

func (rl *RateLimiter) getVisitor(ip string) *rate.Limiter {
	now := time.Now()
	if val, ok := rl.visitors.Load(ip); ok {
		v := val.(*visitor)
		v.touch(now)
		return v.limiter
	}

	v := &visitor{limiter: rate.NewLimiter(rl.rps, rl.burst), lastSeen: now}
	actual, _ := rl.visitors.LoadOrStore(ip, v)
	return actual.(*visitor).limiter
}

func (rl *RateLimiter) handle(c *gin.Context) {
	if !rl.getVisitor(c.ClientIP()).Allow() {
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"message": "Demasiadas solicitudes, intenta nuevamente en unos segundos.",
		})
		return
	}
	c.Next()
}

func (rl *RateLimiter) cleanupLoop(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			rl.visitors.Range(func(key, value any) bool {
				if value.(*visitor).idleSince(now) > visitorIdle {
					rl.visitors.Delete(key)
				}
				return true
			})
		}
	}
}
