package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "verdict:1", []byte(`{"is_valid":true}`), time.Minute))

	got, err := store.Get(ctx, "verdict:1")
	require.NoError(t, err)
	assert.Equal(t, `{"is_valid":true}`, string(got))

	got[0] = 'X'
	again, err := store.Get(ctx, "verdict:1")
	require.NoError(t, err)
	assert.Equal(t, byte('{'), again[0])

	require.NoError(t, store.Delete(ctx, "verdict:1"))
	_, err = store.Get(ctx, "verdict:1")
	assert.True(t, errors.Is(err, ErrMiss))
}

func TestMemoryStoreExpiry(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "short", []byte("x"), 10*time.Millisecond))
	time.Sleep(30 * time.Millisecond)

	_, err := store.Get(ctx, "short")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestMemoryStoresAreIndependent(t *testing.T) {
	a := NewMemoryStore(time.Minute)
	b := NewMemoryStore(time.Minute)
	ctx := context.Background()

	require.NoError(t, a.Set(ctx, "k", []byte("v"), 0))
	_, err := b.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrMiss)
	assert.Equal(t, 1, a.Len())
}
