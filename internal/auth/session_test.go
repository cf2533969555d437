package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/stock-manager/internal/config"
)

func TestSessionKeys(t *testing.T) {
	authKey, encKey, err := SessionKeys("secret")
	require.NoError(t, err)
	assert.Len(t, authKey, 32)
	assert.Len(t, encKey, 32)
	assert.NotEqual(t, authKey, encKey)

	authKey2, encKey2, err := SessionKeys("secret")
	require.NoError(t, err)
	assert.Equal(t, authKey, authKey2)
	assert.Equal(t, encKey, encKey2)

	otherAuth, _, err := SessionKeys("another")
	require.NoError(t, err)
	assert.NotEqual(t, authKey, otherAuth)
}

func TestNewStore(t *testing.T) {
	store, err := NewStore(&config.Config{
		GinMode:                "debug",
		SessionLifetimeMinutes: 120,
	})
	require.NoError(t, err)
	assert.NotNil(t, store)
}

func TestCurrentUserWithoutSession(t *testing.T) {
	_, ok := CurrentUser(nil)
	assert.False(t, ok)
}
