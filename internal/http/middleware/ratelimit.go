package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/yungbote/aula-backend/internal/http/response"
	"github.com/yungbote/aula-backend/internal/pkg/logger"
)

// Limiter decides whether one more request from key fits in the current window.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, time.Duration, error)
}

// RateLimit answers 429 once a client IP exceeds its allowance. Limiter
// failures are logged and the request is let through.
func RateLimit(log *logger.Logger, limiter Limiter) gin.HandlerFunc {
	if limiter == nil {
		return func(c *gin.Context) { c.Next() }
	}
	log = log.With("middleware", "RateLimit")
	return func(c *gin.Context) {
		ok, retryAfter, err := limiter.Allow(c.Request.Context(), c.ClientIP())
		if err != nil {
			log.Warn("rate limiter unavailable", "error", err)
			c.Next()
			return
		}
		if !ok {
			if retryAfter > 0 {
				c.Header("Retry-After", strconv.Itoa(int(retryAfter.Round(time.Second)/time.Second)))
			}
			c.Set(response.ErrorCodeKey, "rate_limited")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, response.ErrorEnvelope{
				Error: response.APIError{
					Message: "too many requests, please try again later",
					Code:    "rate_limited",
				},
			})
			return
		}
		c.Next()
	}
}

// RedisLimiter is a fixed-window counter shared by every instance.
type RedisLimiter struct {
	rdb    goredis.UniversalClient
	max    int
	window time.Duration
	prefix string
	now    func() time.Time
}

func NewRedisLimiter(rdb goredis.UniversalClient, max int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{rdb: rdb, max: max, window: window, prefix: "aula:ratelimit:", now: time.Now}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	bucket := l.now().UnixNano() / int64(l.window)
	k := fmt.Sprintf("%s%s:%d", l.prefix, key, bucket)

	pipe := l.rdb.TxPipeline()
	incr := pipe.Incr(ctx, k)
	pipe.Expire(ctx, k, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, err
	}
	if incr.Val() > int64(l.max) {
		end := time.Unix(0, (bucket+1)*int64(l.window))
		return false, end.Sub(l.now()), nil
	}
	return true, 0, nil
}

// MemoryLimiter keeps one token bucket per client, refilled at max/window.
type MemoryLimiter struct {
	mu      sync.Mutex
	max     int
	every   rate.Limit
	idleTTL time.Duration
	clients map[string]*memClient
	now     func() time.Time
}

type memClient struct {
	lim  *rate.Limiter
	seen time.Time
}

func NewMemoryLimiter(max int, window time.Duration) *MemoryLimiter {
	if max < 1 {
		max = 1
	}
	return &MemoryLimiter{
		max:     max,
		every:   rate.Every(window / time.Duration(max)),
		idleTTL: 2 * window,
		clients: map[string]*memClient{},
		now:     time.Now,
	}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (bool, time.Duration, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.evict(now)
	cl, ok := l.clients[key]
	if !ok {
		cl = &memClient{lim: rate.NewLimiter(l.every, l.max)}
		l.clients[key] = cl
	}
	cl.seen = now
	r := cl.lim.ReserveN(now, 1)
	if !r.OK() {
		return false, 0, nil
	}
	if d := r.DelayFrom(now); d > 0 {
		r.CancelAt(now)
		return false, d, nil
	}
	return true, 0, nil
}

func (l *MemoryLimiter) evict(now time.Time) {
	for k, cl := range l.clients {
		if now.Sub(cl.seen) > l.idleTTL {
			delete(l.clients, k)
		}
	}
}
