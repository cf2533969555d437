package activity

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntryKey(t *testing.T) {
	assert.Equal(t, "activity:user:3", entryKey(3))
}

// TestRedisStoreIntegration は TEST_REDIS_URL が設定されている場合のみ実行します。
func TestRedisStoreIntegration(t *testing.T) {
	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		t.Skip("TEST_REDIS_URL is not set")
	}

	opt, err := redis.ParseURL(url)
	require.NoError(t, err)
	rdb := redis.NewClient(opt)
	t.Cleanup(func() { _ = rdb.Close() })

	ctx := context.Background()
	const userID = 424242
	require.NoError(t, rdb.Del(ctx, entryKey(userID)).Err())
	t.Cleanup(func() { rdb.Del(ctx, entryKey(userID)) })

	store := NewRedisStore(rdb, time.Minute)

	entry, err := store.Get(ctx, userID)
	require.NoError(t, err)
	assert.Nil(t, entry)

	first, err := store.RecordLogin(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 1, first.LoginCount)

	second, err := store.RecordLogin(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 2, second.LoginCount)
	require.NotNil(t, second.PreviousLoginAt)
	assert.True(t, first.LastLoginAt.Equal(*second.PreviousLoginAt))

	require.NoError(t, store.RecordLogout(ctx, userID))
	stored, err := store.Get(ctx, userID)
	require.NoError(t, err)
	require.NotNil(t, stored.LastLogoutAt)

	ttl, err := rdb.TTL(ctx, entryKey(userID)).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
}
