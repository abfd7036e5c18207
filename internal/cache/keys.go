package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"techatlas/internal/middleware"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	ListingKeyPrefix = "listing:%s:%s"
	UserKeyPrefix    = "user:%d"
	StatsKey         = "stats:counts"
)

const (
	ListingTTL = 5 * time.Minute
	UserTTL    = 5 * time.Minute
	StatsTTL   = time.Minute
)

// ListingKey addresses one listing of kind by slug.
func ListingKey(kind, slug string) string {
	return fmt.Sprintf(ListingKeyPrefix, kind, slug)
}

func UserKey(userID uint) string {
	return fmt.Sprintf(UserKeyPrefix, userID)
}

// Aside reads key into dest. On a miss it calls fetch, which must fill dest,
// and stores the result for ttl. A fetch error is returned as-is and nothing is cached.
func Aside(ctx context.Context, key string, dest any, ttl time.Duration, fetch func() error) error {
	if client == nil {
		return fetch()
	}

	raw, err := client.Get(ctx, key).Bytes()
	if err == nil {
		if jsonErr := json.Unmarshal(raw, dest); jsonErr == nil {
			return nil
		}
		client.Del(ctx, key)
	} else if !errors.Is(err, redis.Nil) {
		middleware.LoggerFromContext(ctx).Debug("cache read failed", zap.String("key", key), zap.Error(err))
	}

	if err := fetch(); err != nil {
		return err
	}

	payload, err := json.Marshal(dest)
	if err != nil {
		return nil
	}
	if err := client.Set(ctx, key, payload, ttl).Err(); err != nil {
		middleware.LoggerFromContext(ctx).Debug("cache write failed", zap.String("key", key), zap.Error(err))
	}
	return nil
}

// Invalidate deletes keys. It is a no-op without Redis.
func Invalidate(ctx context.Context, keys ...string) {
	if client == nil || len(keys) == 0 {
		return
	}
	client.Del(ctx, keys...)
}

func InvalidateListing(ctx context.Context, kind, slug string) {
	Invalidate(ctx, ListingKey(kind, slug), StatsKey)
}

func InvalidateUser(ctx context.Context, userID uint) {
	Invalidate(ctx, UserKey(userID))
}
