package agent

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/redis/go-redis/v9"
)

// HistoryStore remembers which agent results were already returned.
type HistoryStore interface {
	Seen(ctx context.Context, key string) (bool, error)
	Remember(ctx context.Context, key string) error
}

// HistoryKey hashes a normalized (title, url) pair.
func HistoryKey(title, url string) string {
	title = strings.Join(strings.Fields(strings.ToLower(title)), " ")
	url = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(url)), "/")
	return strconv.FormatUint(xxhash.Sum64String(title+"\x00"+url), 16)
}

// MemoryHistory is a process-local HistoryStore.
type MemoryHistory struct {
	mu   sync.RWMutex
	keys map[string]struct{}
}

func NewMemoryHistory() *MemoryHistory {
	return &MemoryHistory{keys: make(map[string]struct{})}
}

func (h *MemoryHistory) Seen(_ context.Context, key string) (bool, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.keys[key]
	return ok, nil
}

func (h *MemoryHistory) Remember(_ context.Context, key string) error {
	h.mu.Lock()
	h.keys[key] = struct{}{}
	h.mu.Unlock()
	return nil
}

const historySetKey = "agent:history"

// RedisHistory shares the history between instances through a Redis set.
type RedisHistory struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisHistory returns a RedisHistory. A positive ttl expires the whole
// set after the last write.
func NewRedisHistory(client *redis.Client, ttl time.Duration) *RedisHistory {
	return &RedisHistory{client: client, ttl: ttl}
}

func (h *RedisHistory) Seen(ctx context.Context, key string) (bool, error) {
	return h.client.SIsMember(ctx, historySetKey, key).Result()
}

func (h *RedisHistory) Remember(ctx context.Context, key string) error {
	pipe := h.client.TxPipeline()
	pipe.SAdd(ctx, historySetKey, key)
	if h.ttl > 0 {
		pipe.Expire(ctx, historySetKey, h.ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}
