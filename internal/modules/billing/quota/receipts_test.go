package quota

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/ctenarsky-denik/journal/internal/pkg/redis"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryReceipts_Expire(t *testing.T) {
	t.Parallel()
	store := NewMemoryReceipts()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "r1", "u1", time.Minute))
	assert.Error(t, store.Save(ctx, "r1", "u2", time.Minute))

	owner, ok, err := store.Owner(ctx, "r1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "u1", owner)

	now = now.Add(time.Minute)
	_, ok, err = store.Owner(ctx, "r1")
	require.NoError(t, err)
	assert.False(t, ok)
	_, ok, err = store.Take(ctx, "r1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisReceipts(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.New(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}))
	store := NewRedisReceipts(client)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "r1", "u1", DefaultReceiptTTL))
	assert.Error(t, store.Save(ctx, "r1", "u2", DefaultReceiptTTL))
	assert.Equal(t, DefaultReceiptTTL, mr.TTL(receiptKeyPrefix+"r1"))

	owner, ok, err := store.Owner(ctx, "r1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "u1", owner)

	owner, ok, err = store.Take(ctx, "r1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "u1", owner)

	_, ok, err = store.Take(ctx, "r1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Save(ctx, "r2", "u1", time.Minute))
	mr.FastForward(2 * time.Minute)
	_, ok, err = store.Owner(ctx, "r2")
	require.NoError(t, err)
	assert.False(t, ok)
}
