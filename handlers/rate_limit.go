package handlers

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"llm-chat-platform/models"

	"github.com/gin-gonic/gin"
)

// RateLimiter скользящее окно запросов по ключу (IP клиента)
type RateLimiter struct {
	mu        sync.Mutex
	requests  map[string][]time.Time
	limit     int
	window    time.Duration
	lastSweep time.Time
	now       func() time.Time
}

// NewRateLimiter создает rate limiter на limit запросов за window
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		requests: make(map[string][]time.Time),
		limit:    limit,
		window:   window,
		now:      time.Now,
	}
}

// RateLimitMiddleware ограничивает частоту запросов с одного IP.
// limit <= 0 отключает ограничение.
func RateLimitMiddleware(limit int, window time.Duration) gin.HandlerFunc {
	if limit <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	return NewRateLimiter(limit, window).Middleware()
}

// Middleware возвращает gin middleware для этого лимитера
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	retryAfter := strconv.Itoa(int(rl.window.Seconds()))

	return func(c *gin.Context) {
		if !rl.Allow(c.ClientIP()) {
			c.Header("Retry-After", retryAfter)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, models.ErrorResponse{
				Error:  models.ErrorRateLimited,
				Detail: "rate limit exceeded, retry in " + retryAfter + "s",
			})
			return
		}
		c.Next()
	}
}

// Allow проверяет, можно ли пропустить запрос с ключом key
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	windowStart := now.Add(-rl.window)

	if now.Sub(rl.lastSweep) >= rl.window {
		rl.sweep(windowStart)
		rl.lastSweep = now
	}

	valid := inWindow(rl.requests[key], windowStart)
	if len(valid) >= rl.limit {
		rl.requests[key] = valid
		return false
	}

	rl.requests[key] = append(valid, now)
	return true
}

// sweep удаляет ключи без запросов в текущем окне
func (rl *RateLimiter) sweep(windowStart time.Time) {
	for key, times := range rl.requests {
		valid := inWindow(times, windowStart)
		if len(valid) == 0 {
			delete(rl.requests, key)
		} else {
			rl.requests[key] = valid
		}
	}
}

// inWindow оставляет отметки позже windowStart. Отметки упорядочены по времени.
func inWindow(times []time.Time, windowStart time.Time) []time.Time {
	i := 0
	for i < len(times) && !times[i].After(windowStart) {
		i++
	}
	return times[i:]
}
