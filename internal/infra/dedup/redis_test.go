package dedup

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memorySetNX emulates SET NX EX without expiry handling.
type memorySetNX struct {
	mu   sync.Mutex
	keys map[string]time.Duration
	err  error
}

func (m *memorySetNX) SetNX(_ context.Context, key string, _ interface{}, exp time.Duration) *redis.BoolCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return redis.NewBoolResult(false, m.err)
	}
	if m.keys == nil {
		m.keys = make(map[string]time.Duration)
	}
	if _, ok := m.keys[key]; ok {
		return redis.NewBoolResult(false, nil)
	}
	m.keys[key] = exp
	return redis.NewBoolResult(true, nil)
}

func (m *memorySetNX) Del(_ context.Context, keys ...string) *redis.IntCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return redis.NewIntResult(0, m.err)
	}
	var n int64
	for _, k := range keys {
		if _, ok := m.keys[k]; ok {
			delete(m.keys, k)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func TestRedisDeduper_Claim(t *testing.T) {
	store := &memorySetNX{}
	d := NewRedisDeduper(store)

	first, err := d.Claim(context.Background(), "k", time.Minute)
	require.NoError(t, err)
	assert.True(t, first)

	second, err := d.Claim(context.Background(), "k", time.Minute)
	require.NoError(t, err)
	assert.False(t, second)

	assert.Equal(t, time.Minute, store.keys["k"])
}

func TestRedisDeduper_Claim_ZeroTTLDisables(t *testing.T) {
	store := &memorySetNX{}
	d := NewRedisDeduper(store)

	for i := 0; i < 2; i++ {
		ok, err := d.Claim(context.Background(), "k", 0)
		require.NoError(t, err)
		assert.True(t, ok)
	}
	assert.Empty(t, store.keys)
}

func TestRedisDeduper_Claim_Error(t *testing.T) {
	d := NewRedisDeduper(&memorySetNX{err: errors.New("READONLY")})

	ok, err := d.Claim(context.Background(), "k", time.Minute)
	assert.False(t, ok)
	assert.ErrorContains(t, err, "READONLY")
}

func TestRedisDeduper_Unreachable(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 100 * time.Millisecond, MaxRetries: -1})
	defer func() { _ = client.Close() }()

	_, err := NewRedisDeduper(client).Claim(context.Background(), "k", time.Minute)
	assert.Error(t, err)
}

func TestRedisDeduper_ReleaseAllowsNewClaim(t *testing.T) {
	store := &memorySetNX{}
	d := NewRedisDeduper(store)
	ctx := context.Background()

	ok, err := d.Claim(ctx, "k", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, d.Release(ctx, "k"))
	require.NoError(t, d.Release(ctx, "missing"))

	ok, err = d.Claim(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisDeduper_Release_Error(t *testing.T) {
	d := NewRedisDeduper(&memorySetNX{err: errors.New("LOADING")})

	assert.ErrorContains(t, d.Release(context.Background(), "k"), "LOADING")
}
