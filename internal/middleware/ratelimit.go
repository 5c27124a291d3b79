package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RateStore keeps fixed-window counters and block flags.
type RateStore interface {
	// Blocked returns the remaining block time, zero when not blocked.
	Blocked(ctx context.Context, key string) (time.Duration, error)
	// Hit counts one request and returns the count and the window time left.
	Hit(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
	Block(ctx context.Context, key string, d time.Duration) error
}

type redisRateStore struct {
	rdb *redis.Client
}

func NewRedisRateStore(rdb *redis.Client) RateStore {
	return &redisRateStore{rdb: rdb}
}

func (s *redisRateStore) Blocked(ctx context.Context, key string) (time.Duration, error) {
	ttl, err := s.rdb.TTL(ctx, key+":blocked").Result()
	if err != nil {
		return 0, err
	}
	if ttl < 0 {
		return 0, nil
	}
	return ttl, nil
}

func (s *redisRateStore) Hit(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	count, err := s.rdb.Incr(ctx, key).Result()
	if err != nil {
		return 0, 0, err
	}
	if count == 1 {
		s.rdb.Expire(ctx, key, window)
		return count, window, nil
	}
	ttl, err := s.rdb.TTL(ctx, key).Result()
	if err != nil || ttl < 0 {
		// ключ без TTL остался бы навсегда
		s.rdb.Expire(ctx, key, window)
		ttl = window
	}
	return count, ttl, nil
}

func (s *redisRateStore) Block(ctx context.Context, key string, d time.Duration) error {
	return s.rdb.Set(ctx, key+":blocked", "1", d).Err()
}

type RateLimitOptions struct {
	Limit  int
	Window time.Duration
	Block  time.Duration
	Prefix string
}

// RateLimit counts requests per account (after auth) or per client IP.
// When the store is unavailable requests go through.
func RateLimit(store RateStore, opts RateLimitOptions, log *zap.Logger) gin.HandlerFunc {
	log = log.Named("ratelimit")
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		clientID := "ip:" + c.ClientIP()
		if id, ok := AccountID(c); ok {
			clientID = "uid:" + id.String()
		}
		key := opts.Prefix + ":" + clientID

		ttl, err := store.Blocked(ctx, key)
		if err != nil {
			log.Warn("rate store unavailable, failing open", zap.Error(err))
			c.Next()
			return
		}
		if ttl > 0 {
			c.Header("Retry-After", strconv.Itoa(int(ttl.Seconds())))
			abort(c, http.StatusTooManyRequests, fmt.Sprintf("Too Many Requests. Try again in %s", ttl.Round(time.Second)))
			return
		}

		count, reset, err := store.Hit(ctx, key, opts.Window)
		if err != nil {
			log.Warn("rate store unavailable, failing open", zap.Error(err))
			c.Next()
			return
		}
		if count > int64(opts.Limit) {
			if err := store.Block(ctx, key, opts.Block); err != nil {
				log.Warn("rate block not stored", zap.Error(err))
			}
			c.Header("Retry-After", strconv.Itoa(int(opts.Block.Seconds())))
			abort(c, http.StatusTooManyRequests, fmt.Sprintf("Too Many Requests. Blocked for %s", opts.Block))
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(opts.Limit))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(int64(opts.Limit)-count, 10))
		c.Header("X-RateLimit-Reset", strconv.Itoa(int(reset.Seconds())))
		c.Next()
	}
}
