package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCredential_PutThenGet_IsCacheCoherent(t *testing.T) {
	s := newTestStore(t)

	present, err := s.HasCredential("forex")
	require.NoError(t, err)
	assert.False(t, present)

	require.NoError(t, s.PutCredential("forex", "key1", "secret1"))

	key, secret, ok, err := s.GetCredential("forex")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "key1", key)
	assert.Equal(t, "secret1", secret)

	present, err = s.HasCredential("forex")
	require.NoError(t, err)
	assert.True(t, present)
}

func TestCredential_ReplaceOverwritesBothCacheAndRow(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.PutCredential("equities", "old-key", "old-secret"))

	// Warm the cache.
	_, _, _, err := s.GetCredential("equities")
	require.NoError(t, err)

	require.NoError(t, s.PutCredential("equities", "new-key", "new-secret"))

	key, secret, ok, err := s.GetCredential("equities")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "new-key", key)
	assert.Equal(t, "new-secret", secret)
}

func TestCredential_UnknownProviderNotFound(t *testing.T) {
	s := newTestStore(t)
	_, _, ok, err := s.GetCredential("nonexistent")
	require.NoError(t, err)
	assert.False(t, ok)
}
