package middleware

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type RateLimiter struct {
	requests map[string][]time.Time
	mutex    sync.Mutex
	limit    int
	window   time.Duration
	now      func() time.Time
}

// NewRateLimiter - скользящее окно на клиента. Очистка старых записей
// работает, пока жив ctx.
func NewRateLimiter(ctx context.Context, limit int, window time.Duration) *RateLimiter {
	if limit < 1 {
		limit = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	rl := &RateLimiter{
		requests: make(map[string][]time.Time),
		limit:    limit,
		window:   window,
		now:      time.Now,
	}

	// Очистка старых записей каждые 5 минут
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				rl.cleanup()
			}
		}
	}()

	return rl
}

// clientKey: авторизованный пользователь считается по ID, остальные по IP.
func clientKey(c *gin.Context) string {
	if v, ok := c.Get(ContextUserID); ok {
		if id, ok := v.(primitive.ObjectID); ok && !id.IsZero() {
			return "user:" + id.Hex()
		}
	}
	return "ip:" + c.ClientIP()
}

func (rl *RateLimiter) RateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := clientKey(c)

		rl.mutex.Lock()
		now := rl.now()
		validRequests := rl.recent(rl.requests[key], now)

		// Проверяем лимит
		if len(validRequests) >= rl.limit {
			retryAfter := validRequests[0].Add(rl.window).Sub(now)
			rl.requests[key] = validRequests
			rl.mutex.Unlock()

			c.Header("Retry-After", strconv.Itoa(int(retryAfter.Seconds())+1))
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error": "Rate limit exceeded. Please try again later.",
			})
			c.Abort()
			return
		}

		rl.requests[key] = append(validRequests, now)
		rl.mutex.Unlock()

		c.Next()
	}
}

func (rl *RateLimiter) recent(requests []time.Time, now time.Time) []time.Time {
	cutoff := now.Add(-rl.window)
	var valid []time.Time
	for _, reqTime := range requests {
		if reqTime.After(cutoff) {
			valid = append(valid, reqTime)
		}
	}
	return valid
}

func (rl *RateLimiter) cleanup() {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	now := rl.now()
	for key, requests := range rl.requests {
		if valid := rl.recent(requests, now); len(valid) == 0 {
			delete(rl.requests, key)
		} else {
			rl.requests[key] = valid
		}
	}
}
