package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/your-org/jewelry-backend/internal/config"
	"github.com/your-org/jewelry-backend/internal/interfaces/http/response"
	"golang.org/x/time/rate"
)

const maxLocalLimiters = 10000

// localLimiter is a per-IP token bucket used when Redis is unavailable
type localLimiter struct {
	mu    sync.Mutex
	ips   map[string]*rate.Limiter
	rate  rate.Limit
	burst int
}

func newLocalLimiter(perMinute, burst int) *localLimiter {
	return &localLimiter{
		ips:   make(map[string]*rate.Limiter),
		rate:  rate.Every(time.Minute / time.Duration(perMinute)),
		burst: burst,
	}
}

func (l *localLimiter) allow(ip string) bool {
	l.mu.Lock()
	limiter, ok := l.ips[ip]
	if !ok {
		if len(l.ips) >= maxLocalLimiters {
			l.ips = make(map[string]*rate.Limiter)
		}
		limiter = rate.NewLimiter(l.rate, l.burst)
		l.ips[ip] = limiter
	}
	l.mu.Unlock()
	return limiter.Allow()
}

// RateLimit counts requests per client IP in a one minute Redis window.
// With no Redis client, or when Redis errors, it falls back to an in-process
// token bucket.
func RateLimit(cfg *config.Config, redisClient *redis.Client, log logrus.FieldLogger) gin.HandlerFunc {
	limit := cfg.Security.RateLimitPerMinute
	if limit <= 0 {
		limit = 100
	}
	burst := cfg.Security.RateLimitBurst
	if burst <= 0 {
		burst = limit
	}
	local := newLocalLimiter(limit, burst)

	return func(c *gin.Context) {
		clientIP := c.ClientIP()

		if redisClient != nil {
			count, reset, err := incrWindow(c.Request.Context(), redisClient, clientIP)
			if err == nil {
				c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
				c.Header("X-RateLimit-Remaining", strconv.Itoa(max(limit-int(count), 0)))
				c.Header("X-RateLimit-Reset", strconv.FormatInt(reset.Unix(), 10))
				if int(count) > limit {
					c.Header("Retry-After", strconv.Itoa(int(time.Until(reset).Seconds())+1))
					response.Abort(c, http.StatusTooManyRequests, "Rate limit exceeded")
					return
				}
				c.Next()
				return
			}
			log.WithError(err).Warn("redis rate limit unavailable, using local limiter")
		}

		if !local.allow(clientIP) {
			response.Abort(c, http.StatusTooManyRequests, "Rate limit exceeded")
			return
		}
		c.Next()
	}
}

func incrWindow(ctx context.Context, client *redis.Client, ip string) (int64, time.Time, error) {
	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()

	now := time.Now()
	window := now.Truncate(time.Minute)
	key := fmt.Sprintf("rate_limit:%s:%d", ip, window.Unix())

	pipe := client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, time.Minute+5*time.Second)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, time.Time{}, err
	}
	return incr.Val(), window.Add(time.Minute), nil
}
