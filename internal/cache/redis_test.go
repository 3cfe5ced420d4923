package cache

import (
	"context"
	"strconv"
	"testing"
	"time"

	"example.com/pacific/relief/config"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedis(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	c, err := NewRedisCache(config.RedisConfig{
		Enabled: true,
		Host:    mr.Host(),
		Port:    atoi(t, mr.Port()),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func atoi(t *testing.T, s string) int {
	t.Helper()
	n, err := strconv.Atoi(s)
	require.NoError(t, err)
	return n
}

type entry struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func TestRedisCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	c, mr := setupRedis(t)
	key := GetEventsCacheKey(0)

	var got []entry
	assert.ErrorIs(t, c.Get(ctx, key, &got), ErrCacheMiss)

	want := []entry{{ID: "1", Name: "Cyclone Lola"}}
	require.NoError(t, c.SetIfVersion(ctx, GetEventsVersionKey(), 0, key, want, time.Minute))
	require.NoError(t, c.Get(ctx, key, &got))
	assert.Equal(t, want, got)

	mr.FastForward(2 * time.Minute)
	assert.ErrorIs(t, c.Get(ctx, key, &got), ErrCacheMiss)
}

func TestRedisCacheSetIfVersion(t *testing.T) {
	ctx := context.Background()
	c, mr := setupRedis(t)
	versionKey := GetRequestsVersionKey()

	version, err := c.Version(ctx, versionKey)
	require.NoError(t, err)
	assert.Zero(t, version)

	require.NoError(t, c.SetIfVersion(ctx, versionKey, version, GetRequestsCacheKey("", version), []entry{{ID: "1"}}, time.Minute))
	assert.True(t, mr.Exists("requests:all:v0"))

	// a writer invalidates after the reader sampled the version
	require.NoError(t, c.Invalidate(ctx, versionKey))

	err = c.SetIfVersion(ctx, versionKey, version, GetRequestsCacheKey("e1", version), []entry{{ID: "stale"}}, time.Minute)
	assert.ErrorIs(t, err, ErrStaleVersion)
	assert.False(t, mr.Exists("requests:event:e1:v0"))

	version, err = c.Version(ctx, versionKey)
	require.NoError(t, err)
	assert.EqualValues(t, 1, version)

	var got []entry
	assert.ErrorIs(t, c.Get(ctx, GetRequestsCacheKey("", version), &got), ErrCacheMiss)

	require.NoError(t, c.SetIfVersion(ctx, versionKey, version, GetRequestsCacheKey("", version), []entry{{ID: "fresh"}}, time.Minute))
	require.NoError(t, c.Get(ctx, GetRequestsCacheKey("", version), &got))
	assert.Equal(t, []entry{{ID: "fresh"}}, got)
}

func TestDisabledCache(t *testing.T) {
	ctx := context.Background()
	c, err := NewRedisCache(config.RedisConfig{Enabled: false})
	require.NoError(t, err)
	assert.False(t, c.Enabled())

	var v []entry
	assert.ErrorIs(t, c.Get(ctx, "k", &v), ErrCacheDisabled)
	assert.ErrorIs(t, c.SetIfVersion(ctx, GetEventsVersionKey(), 0, "k", v, 0), ErrCacheDisabled)
	_, err = c.Version(ctx, GetEventsVersionKey())
	assert.ErrorIs(t, err, ErrCacheDisabled)
	assert.NoError(t, c.Invalidate(ctx, GetEventsVersionKey()))
	assert.NoError(t, c.Close())

	var nilCache *RedisCache
	assert.False(t, nilCache.Enabled())
	assert.NoError(t, nilCache.Invalidate(ctx, GetEventsVersionKey()))
}

func TestNewRedisCacheUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	port := atoi(t, mr.Port())
	mr.Close()

	_, err := NewRedisCache(config.RedisConfig{Enabled: true, Host: "127.0.0.1", Port: port})
	assert.Error(t, err)
}

func TestCacheKeys(t *testing.T) {
	assert.Equal(t, "events:all:v0", GetEventsCacheKey(0))
	assert.Equal(t, "requests:all:v3", GetRequestsCacheKey("", 3))
	assert.Equal(t, "requests:event:abc:v3", GetRequestsCacheKey("abc", 3))
	assert.Equal(t, "events:version", GetEventsVersionKey())
	assert.Equal(t, "requests:version", GetRequestsVersionKey())
}
