package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_Expiry(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.Set(ctx, "fare:source:a:1", []byte("x"), 50*time.Millisecond))
	require.NoError(t, s.Set(ctx, "fare:source:b:1", []byte("y"), 0))

	data, found, err := s.Get(ctx, "fare:source:a:1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []byte("x"), data)

	time.Sleep(100 * time.Millisecond)
	_, found, err = s.Get(ctx, "fare:source:a:1")
	require.NoError(t, err)
	assert.False(t, found)

	keys, err := s.Keys(ctx, SourcePattern)
	require.NoError(t, err)
	assert.Equal(t, []string{"fare:source:b:1"}, keys, "entries without a ttl never expire")
}

func TestMemoryStore_CopiesValues(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	value := []byte("abc")
	require.NoError(t, s.Set(ctx, "k", value, time.Minute))
	value[0] = 'z'

	data, found, err := s.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []byte("abc"), data)

	data[1] = 'z'
	again, _, _ := s.Get(ctx, "k")
	assert.Equal(t, []byte("abc"), again)

	require.NoError(t, s.Close())
	_, found, _ = s.Get(ctx, "k")
	assert.False(t, found, "close drops everything")
}

func TestMemoryStore_KeysPattern(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.Set(ctx, "fare:source:a:1", []byte("1"), 0))
	require.NoError(t, s.Set(ctx, "fare:enhanced:2", []byte("2"), 0))

	keys, err := s.Keys(ctx, SourcePattern)
	require.NoError(t, err)
	assert.Equal(t, []string{"fare:source:a:1"}, keys)

	require.NoError(t, s.Delete(ctx, "fare:source:a:1"))
	keys, err = s.Keys(ctx, SourcePattern)
	require.NoError(t, err)
	assert.Empty(t, keys)
}
