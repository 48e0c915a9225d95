package pagesync

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/booking-page-studio/internal/bookingpage"
)

func newRedisCache(t *testing.T, ttl time.Duration) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisCache(client, ttl), mr
}

func TestRedisCacheRoundTrip(t *testing.T) {
	cache, mr := newRedisCache(t, 0)
	ctx := context.Background()

	_, ok, err := cache.Get(ctx, "biz-1")
	require.NoError(t, err)
	assert.False(t, ok)

	rec, err := EncodeRecord(bookingpage.DefaultSettings("biz-1"))
	require.NoError(t, err)
	require.NoError(t, cache.Set(ctx, rec))
	assert.True(t, mr.Exists("bookingpage:cache:biz-1"))

	got, ok, err := cache.Get(ctx, "biz-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, rec.Steps, got.Steps)
	assert.Equal(t, rec.CustomTexts, got.CustomTexts)
}

func TestRedisCacheIsKeyedPerBusiness(t *testing.T) {
	cache, _ := newRedisCache(t, 0)
	ctx := context.Background()

	a := bookingpage.DefaultSettings("biz-a")
	a.BusinessName = "Alpha"
	b := bookingpage.DefaultSettings("biz-b")
	b.BusinessName = "Beta"
	for _, s := range []bookingpage.Settings{a, b} {
		rec, err := EncodeRecord(s)
		require.NoError(t, err)
		require.NoError(t, cache.Set(ctx, rec))
	}

	got, ok, err := cache.Get(ctx, "biz-a")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Alpha", got.BusinessName)
}

func TestRedisCacheTTL(t *testing.T) {
	cache, mr := newRedisCache(t, time.Minute)
	ctx := context.Background()

	rec, err := EncodeRecord(bookingpage.DefaultSettings("biz-1"))
	require.NoError(t, err)
	require.NoError(t, cache.Set(ctx, rec))
	assert.Equal(t, time.Minute, mr.TTL("bookingpage:cache:biz-1"))

	mr.FastForward(2 * time.Minute)
	_, ok, err := cache.Get(ctx, "biz-1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisCacheCorruptBlob(t *testing.T) {
	cache, mr := newRedisCache(t, 0)
	require.NoError(t, mr.Set("bookingpage:cache:biz-1", "{garbage"))

	_, ok, err := cache.Get(context.Background(), "biz-1")
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestMemoryCache(t *testing.T) {
	cache := NewMemoryCache()
	ctx := context.Background()

	_, ok, err := cache.Get(ctx, "biz-1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, cache.Set(ctx, Record{BusinessID: "biz-1", BusinessName: "One"}))
	got, ok, err := cache.Get(ctx, "biz-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "One", got.BusinessName)
}
