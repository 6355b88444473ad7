package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	store, err := NewRedis(mr.Addr(), "", 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store, mr
}

func TestRedisPutGetDelete(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store, mr := newTestRedis(t)

	_, ok, err := store.Get(ctx, "missing")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, store.Put(ctx, "quality:metrics", []byte("m"), nil))
	require.True(t, mr.Exists("ringside:quality:metrics"))

	got, ok, err := store.Get(ctx, "quality:metrics")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "m", string(got))

	require.NoError(t, store.Delete(ctx, "quality:metrics"))
	_, ok, err = store.Get(ctx, "quality:metrics")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRedisExpiry(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store, mr := newTestRedis(t)

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	exp := now.Add(time.Hour)
	require.NoError(t, store.Put(ctx, "snapshot:merch", []byte("s"), &exp))
	require.Equal(t, time.Hour, mr.TTL("ringside:snapshot:merch"))

	mr.FastForward(time.Hour)
	_, ok, err := store.Get(ctx, "snapshot:merch")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRedisPutAlreadyExpiredRemovesKey(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store, _ := newTestRedis(t)

	require.NoError(t, store.Put(ctx, "k", []byte("old"), nil))
	past := time.Now().Add(-time.Minute)
	require.NoError(t, store.Put(ctx, "k", []byte("new"), &past))

	_, ok, err := store.Get(ctx, "k")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRedisUnreachable(t *testing.T) {
	t.Parallel()
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := NewRedis(addr, "", 0)
	require.Error(t, err)
	require.True(t, Error.Has(err))
}
