package save

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	store := NewRedisStore(mr.Addr(), testLogger())
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store, mr
}

func TestRedisStoreSaveLoadDelete(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestRedisStore(t)

	require.NoError(t, store.Ping(ctx))

	gs := sampleState()
	require.NoError(t, store.Save(ctx, "slot1", gs))

	loaded, err := store.Load(ctx, "slot1")
	require.NoError(t, err)
	assert.Equal(t, gs, loaded)

	require.NoError(t, store.Delete(ctx, "slot1"))
	loaded, err = store.Load(ctx, "slot1")
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestRedisStoreEmptySlot(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestRedisStore(t)

	loaded, err := store.Load(ctx, "never_saved")
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestRedisStoreKeysAreNamespaced(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestRedisStore(t)

	require.NoError(t, store.Save(ctx, "slot1", sampleState()))
	assert.True(t, mr.Exists("save:slot1"))
}

func TestRedisStoreCorruptSlot(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestRedisStore(t)

	require.NoError(t, mr.Set("save:slot1", "garbage"))

	_, err := store.Load(ctx, "slot1")
	var corrupt *CorruptSaveError
	assert.ErrorAs(t, err, &corrupt)
}

func TestRedisStoreConnectionFailure(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestRedisStore(t)
	mr.Close()

	assert.Error(t, store.Ping(ctx))
	_, err := store.Load(ctx, "slot1")
	assert.Error(t, err)
}

func TestRedisStoreWaitForConnection(t *testing.T) {
	store, _ := newTestRedisStore(t)
	assert.NoError(t, store.WaitForConnection(context.Background()))
}

func TestRedisStoreWaitForConnectionGivesUpOnCancel(t *testing.T) {
	store, mr := newTestRedisStore(t)
	mr.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := store.WaitForConnection(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
