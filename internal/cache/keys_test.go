package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cachedHub struct {
	Slug string `json:"slug"`
	Name string `json:"name"`
}

func withMiniredis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	SetClient(rdb)
	t.Cleanup(func() {
		SetClient(nil)
		_ = rdb.Close()
	})
	return mr
}

func TestAside_CachesAfterFirstFetch(t *testing.T) {
	mr := withMiniredis(t)
	ctx := context.Background()
	key := ListingKey("hubs", "outbox")

	calls := 0
	fetch := func(dest *cachedHub) func() error {
		return func() error {
			calls++
			*dest = cachedHub{Slug: "outbox", Name: "Outbox Hub"}
			return nil
		}
	}

	var first cachedHub
	require.NoError(t, Aside(ctx, key, &first, ListingTTL, fetch(&first)))
	var second cachedHub
	require.NoError(t, Aside(ctx, key, &second, ListingTTL, fetch(&second)))

	assert.Equal(t, 1, calls)
	assert.Equal(t, "Outbox Hub", second.Name)
	assert.True(t, mr.Exists(key))

	mr.FastForward(ListingTTL + time.Second)
	var third cachedHub
	require.NoError(t, Aside(ctx, key, &third, ListingTTL, fetch(&third)))
	assert.Equal(t, 2, calls)
}

func TestAside_FetchErrorIsNotCached(t *testing.T) {
	mr := withMiniredis(t)
	boom := errors.New("boom")

	var dest cachedHub
	err := Aside(context.Background(), "k", &dest, time.Minute, func() error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.False(t, mr.Exists("k"))
}

func TestAside_WithoutRedisCallsFetch(t *testing.T) {
	SetClient(nil)
	calls := 0
	var dest cachedHub
	require.NoError(t, Aside(context.Background(), "k", &dest, time.Minute, func() error {
		calls++
		return nil
	}))
	assert.Equal(t, 1, calls)
}

func TestInvalidateListing(t *testing.T) {
	mr := withMiniredis(t)
	require.NoError(t, mr.Set(ListingKey("jobs", "backend-engineer-acme"), "{}"))
	require.NoError(t, mr.Set(StatsKey, "{}"))

	InvalidateListing(context.Background(), "jobs", "backend-engineer-acme")

	assert.False(t, mr.Exists(ListingKey("jobs", "backend-engineer-acme")))
	assert.False(t, mr.Exists(StatsKey))
}
