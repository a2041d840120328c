package middleware

import (
	"fmt"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/tor-rent/backend/internal/chain"
)

// RateLimitMiddleware is a fixed-window counter in Redis keyed by path and IP.
// It fails open when Redis is unavailable.
func RateLimitMiddleware(rdb *redis.Client, limit int, window time.Duration, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := fmt.Sprintf("rl:%s:%s", c.Route().Path, c.IP())

		ctx := c.UserContext()
		count, err := rdb.Incr(ctx, key).Result()
		if err != nil {
			log.Warn("rate limit check failed", zap.Error(err))
			return c.Next()
		}

		if count == 1 {
			rdb.Expire(ctx, key, window)
		}

		if count > int64(limit) {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "rate limit exceeded",
			})
		}

		return c.Next()
	}
}

// SubmitLimiter throttles transaction submission per account with a token
// bucket. Limiters of idle accounts are dropped by Sweep.
type SubmitLimiter struct {
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	limiters map[chain.Address]*accountLimiter
}

type accountLimiter struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

func NewSubmitLimiter(perSecond float64, burst int) *SubmitLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &SubmitLimiter{
		limit:    rate.Limit(perSecond),
		burst:    burst,
		limiters: make(map[chain.Address]*accountLimiter),
	}
}

func (l *SubmitLimiter) Allow(a chain.Address) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	al, ok := l.limiters[a]
	if !ok {
		al = &accountLimiter{lim: rate.NewLimiter(l.limit, l.burst)}
		l.limiters[a] = al
	}
	al.lastSeen = time.Now()
	return al.lim.Allow()
}

// Sweep forgets accounts not seen for idle.
func (l *SubmitLimiter) Sweep(idle time.Duration) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := time.Now().Add(-idle)
	removed := 0
	for a, al := range l.limiters {
		if al.lastSeen.Before(cutoff) {
			delete(l.limiters, a)
			removed++
		}
	}
	return removed
}

// Handler must run after AuthMiddleware.
func (l *SubmitLimiter) Handler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !l.Allow(GetAddress(c)) {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "too many transactions, slow down",
			})
		}
		return c.Next()
	}
}
