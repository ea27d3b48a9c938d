package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/towerly/building-service/internal/domain"
)

const statsKey = "stats:admin"

type Cache struct {
	Client *redis.Client
}

func New(addr, pass string, db int) *Cache {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr, Password: pass, DB: db,
	})
	return &Cache{Client: rdb}
}

func (c *Cache) GetStats(ctx context.Context) (domain.AdminStats, error) {
	val, err := c.Client.Get(ctx, statsKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.AdminStats{}, domain.ErrCacheMiss
		}
		return domain.AdminStats{}, err
	}

	var s domain.AdminStats
	if err := json.Unmarshal(val, &s); err != nil {
		// Treat a corrupt entry as a miss so it gets rewritten.
		return domain.AdminStats{}, domain.ErrCacheMiss
	}
	return s, nil
}

func (c *Cache) SetStats(ctx context.Context, s domain.AdminStats, ttl time.Duration) error {
	val, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return c.Client.Set(ctx, statsKey, val, ttl).Err()
}

// AllowRequest: Simple Fixed Window Rate Limit
func (c *Cache) AllowRequest(ctx context.Context, ip string, limit int, window time.Duration) (bool, error) {
	key := "ratelimit:" + ip
	count, err := c.Client.Incr(ctx, key).Result()
	if err != nil {
		return true, nil // fail open
	}
	if count == 1 {
		_ = c.Client.Expire(ctx, key, window).Err()
	}
	return count <= int64(limit), nil
}
