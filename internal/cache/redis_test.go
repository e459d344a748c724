package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type row struct {
	Name  string `json:"name"`
	Total string `json:"total"`
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisCache_RoundTrip(t *testing.T) {
	ctx := context.Background()
	mr, client := newTestRedis(t)
	c := NewRedisCache[[]row](client, "insight:table:", time.Minute, nil)

	_, ok := c.Get(ctx, "warehouse")
	assert.False(t, ok)

	want := []row{{Name: "Laptop", Total: "1200.00"}}
	c.Set(ctx, "warehouse", want)
	assert.True(t, mr.Exists("insight:table:warehouse"))
	assert.Equal(t, time.Minute, mr.TTL("insight:table:warehouse"))

	got, ok := c.Get(ctx, "warehouse")
	require.True(t, ok)
	assert.Equal(t, want, got)

	mr.FastForward(2 * time.Minute)
	_, ok = c.Get(ctx, "warehouse")
	assert.False(t, ok)
}

func TestRedisCache_UndecodableEntryIsMiss(t *testing.T) {
	ctx := context.Background()
	mr, client := newTestRedis(t)
	c := NewRedisCache[[]row](client, "insight:", time.Minute, nil)

	require.NoError(t, mr.Set("insight:crm", "not json"))
	_, ok := c.Get(ctx, "crm")
	assert.False(t, ok)
	assert.False(t, mr.Exists("insight:crm"))
}

func TestRedisCache_ClearOnlyOwnPrefix(t *testing.T) {
	ctx := context.Background()
	mr, client := newTestRedis(t)
	c := NewRedisCache[string](client, "insight:", 0, nil)

	c.Set(ctx, "crm", "a")
	c.Set(ctx, "erp", "b")
	require.NoError(t, mr.Set("other:key", "keep"))

	c.Clear(ctx)
	assert.False(t, mr.Exists("insight:crm"))
	assert.False(t, mr.Exists("insight:erp"))
	assert.True(t, mr.Exists("other:key"))
}

func TestRedisCache_ServerDownIsMiss(t *testing.T) {
	ctx := context.Background()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer client.Close()
	c := NewRedisCache[string](client, "insight:", time.Minute, nil)
	mr.Close()

	c.Set(ctx, "crm", "a")
	_, ok := c.Get(ctx, "crm")
	assert.False(t, ok)
}

func TestRedisCache_WithMemo(t *testing.T) {
	ctx := context.Background()
	_, client := newTestRedis(t)
	memo := NewMemo[string](NewRedisCache[string](client, "insight:", time.Minute, nil))

	var calls int
	load := func(context.Context) (string, error) {
		calls++
		return "loaded", nil
	}
	for i := 0; i < 2; i++ {
		v, err := memo.Do(ctx, "warehouse", load)
		require.NoError(t, err)
		assert.Equal(t, "loaded", v)
	}
	assert.Equal(t, 1, calls)
}
