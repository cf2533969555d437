package activity

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock(times ...time.Time) func() time.Time {
	i := 0
	return func() time.Time {
		t := times[i]
		if i < len(times)-1 {
			i++
		}
		return t
	}
}

func TestMemoryStoreRecordLogin(t *testing.T) {
	ctx := context.Background()
	first := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	second := first.Add(2 * time.Hour)

	store := NewMemoryStore()
	store.now = fixedClock(first, second)

	entry, err := store.RecordLogin(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, entry.UserID)
	assert.Equal(t, 1, entry.LoginCount)
	assert.Equal(t, first, entry.LastLoginAt)
	assert.Nil(t, entry.PreviousLoginAt)

	entry, err = store.RecordLogin(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, 2, entry.LoginCount)
	assert.Equal(t, second, entry.LastLoginAt)
	require.NotNil(t, entry.PreviousLoginAt)
	assert.Equal(t, first, *entry.PreviousLoginAt)
}

func TestMemoryStoreRecordLogout(t *testing.T) {
	ctx := context.Background()
	at := time.Date(2026, 4, 1, 18, 0, 0, 0, time.UTC)

	store := NewMemoryStore()
	store.now = fixedClock(at)

	require.NoError(t, store.RecordLogout(ctx, 2))

	entry, err := store.Get(ctx, 2)
	require.NoError(t, err)
	require.NotNil(t, entry.LastLogoutAt)
	assert.Equal(t, at, *entry.LastLogoutAt)
	assert.Equal(t, 0, entry.LoginCount)
}

func TestMemoryStoreGetMissing(t *testing.T) {
	entry, err := NewMemoryStore().Get(context.Background(), 1)
	require.NoError(t, err)
	assert.Nil(t, entry)
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	entry, err := store.RecordLogin(ctx, 1)
	require.NoError(t, err)
	entry.LoginCount = 100

	stored, err := store.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.LoginCount)
}
