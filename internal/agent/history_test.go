package agent

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistoryKey_Normalizes(t *testing.T) {
	a := HistoryKey("  Outbox   Hub ", "https://OUTBOX.co.ug/")
	b := HistoryKey("outbox hub", "https://outbox.co.ug")
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, HistoryKey("outbox hub", "https://other.ug"))
	assert.NotEqual(t, HistoryKey("ab", "c"), HistoryKey("a", "bc"))
}

func testHistory(t *testing.T, h HistoryStore) {
	t.Helper()
	ctx := context.Background()
	key := HistoryKey("Innovation Village", "https://innovationvillage.co.ug")

	seen, err := h.Seen(ctx, key)
	require.NoError(t, err)
	assert.False(t, seen)

	require.NoError(t, h.Remember(ctx, key))
	seen, err = h.Seen(ctx, key)
	require.NoError(t, err)
	assert.True(t, seen)
}

func TestMemoryHistory(t *testing.T) {
	testHistory(t, NewMemoryHistory())
}

func TestRedisHistory(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	testHistory(t, NewRedisHistory(client, time.Hour))
	assert.True(t, mr.Exists(historySetKey))
	assert.Equal(t, time.Hour, mr.TTL(historySetKey))
}
