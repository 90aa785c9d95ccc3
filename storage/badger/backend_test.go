package badger

import (
	"context"
	"fmt"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/strata/index"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenBackend_InMemory(t *testing.T) {
	backend, err := OpenBackend("", true)
	require.NoError(t, err)
	require.NotNil(t, backend)
	defer backend.Close()

	assert.False(t, backend.IsClosed())
}

func TestOpenBackend_FileSystem(t *testing.T) {
	tmpDir := t.TempDir()
	backend, err := OpenBackend(tmpDir, false)
	require.NoError(t, err)
	require.NotNil(t, backend)
	defer backend.Close()

	assert.False(t, backend.IsClosed())
}

func TestBackendClose(t *testing.T) {
	backend, err := OpenBackend("", true)
	require.NoError(t, err)
	require.NotNil(t, backend)

	assert.False(t, backend.IsClosed())

	err = backend.Close()
	require.NoError(t, err)

	assert.True(t, backend.IsClosed())
}

func TestWithTransaction(t *testing.T) {
	backend, err := OpenBackend("", true)
	require.NoError(t, err)
	defer backend.Close()

	ctx := context.Background()

	t.Run("successful transaction", func(t *testing.T) {
		err := backend.WithTransaction(ctx, func(ctx context.Context, tx *badger.Txn) error {
			return tx.Set([]byte("k"), []byte("v"))
		})
		require.NoError(t, err)
	})

	t.Run("failed transaction", func(t *testing.T) {
		testErr := assert.AnError
		err := backend.WithTransaction(ctx, func(ctx context.Context, tx *badger.Txn) error {
			return testErr
		})
		assert.Equal(t, testErr, err)
	})
}

func TestGetSequence(t *testing.T) {
	backend, err := OpenBackend("", true)
	require.NoError(t, err)
	defer backend.Close()

	seq, err := backend.GetSequence("test_sequence")
	require.NoError(t, err)
	require.NotNil(t, seq)
	defer seq.Release()

	id1, err := seq.Next()
	require.NoError(t, err)

	id2, err := seq.Next()
	require.NoError(t, err)

	assert.Greater(t, id2, id1)
}

func newTestIndexStore(t *testing.T) *IndexStore {
	t.Helper()
	store, backend, err := NewMemoryIndexStore()
	require.NoError(t, err)
	t.Cleanup(func() {
		store.Close()
		backend.Close()
	})
	return store
}

func TestIndexStore_AddMembers(t *testing.T) {
	store := newTestIndexStore(t)
	ctx := context.Background()

	members, err := store.Members(ctx, "WordCampaignIndex/94/m94/Zm94/Campaigns")
	require.NoError(t, err)
	assert.NotNil(t, members)
	assert.Empty(t, members)

	container := "UserCampaignIndex/ab0/ab/Campaigns"
	for _, id := range []string{"c3", "c1", "c2"} {
		require.NoError(t, store.Add(ctx, container, id))
	}

	members, err = store.Members(ctx, container)
	require.NoError(t, err)
	assert.Equal(t, []string{"c3", "c1", "c2"}, members)

	// re-adding keeps the original position
	require.NoError(t, store.Add(ctx, container, "c3"))
	members, err = store.Members(ctx, container)
	require.NoError(t, err)
	assert.Equal(t, []string{"c3", "c1", "c2"}, members)
}

func TestIndexStore_DottedMembers(t *testing.T) {
	store := newTestIndexStore(t)
	ctx := context.Background()

	container := "CategoryCampaignIndex/v2/Campaigns"
	require.NoError(t, store.Add(ctx, container, "release.1.2"))
	members, err := store.Members(ctx, container)
	require.NoError(t, err)
	assert.Equal(t, []string{"release.1.2"}, members)
}

func TestIndexStore_ContainersAreIsolated(t *testing.T) {
	store := newTestIndexStore(t)
	ctx := context.Background()

	require.NoError(t, store.Add(ctx, "A/x", "1"))
	require.NoError(t, store.Add(ctx, "A/xy", "2"))

	members, err := store.Members(ctx, "A/x")
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, members)
}

func TestIndexStore_Remove(t *testing.T) {
	store := newTestIndexStore(t)
	ctx := context.Background()

	require.NoError(t, store.Add(ctx, "C", "a"))
	require.NoError(t, store.Add(ctx, "C", "b"))
	require.NoError(t, store.Remove(ctx, "C", "a"))
	require.NoError(t, store.Remove(ctx, "C", "missing"))

	members, err := store.Members(ctx, "C")
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, members)
}

func TestIndexStore_WithLock(t *testing.T) {
	store := newTestIndexStore(t)

	called := false
	err := store.WithLock(context.Background(), "C", func(ctx context.Context) error {
		called = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, called)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = store.WithLock(ctx, "C", func(ctx context.Context) error {
		t.Fatal("fn should not run with a cancelled context")
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestIndexStore_Separator(t *testing.T) {
	store, backend, err := NewMemoryIndexStore()
	require.NoError(t, err)
	defer backend.Close()
	defer store.Close()
	assert.Equal(t, "/", store.Separator())

	custom, err := NewIndexStore(backend, WithSeparator("|"))
	require.NoError(t, err)
	defer custom.Close()
	assert.Equal(t, "|", custom.Separator())
}

func TestIndexStore_Persistence(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	backend, err := OpenBackend(dir, false)
	require.NoError(t, err)
	store, err := NewIndexStore(backend)
	require.NoError(t, err)
	for i := range 5 {
		require.NoError(t, store.Add(ctx, "C", fmt.Sprintf("m%d", 4-i)))
	}
	require.NoError(t, store.Close())
	require.NoError(t, backend.Close())

	backend, err = OpenBackend(dir, false)
	require.NoError(t, err)
	defer backend.Close()
	store, err = NewIndexStore(backend)
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Add(ctx, "C", "new"))
	members, err := store.Members(ctx, "C")
	require.NoError(t, err)
	assert.Equal(t, []string{"m4", "m3", "m2", "m1", "m0", "new"}, members)
}

func TestIndexStore_EngineLatestBound(t *testing.T) {
	store := newTestIndexStore(t)
	ctx := context.Background()

	engine, err := index.NewEngine(store, index.WithMaxLatest(3))
	require.NoError(t, err)

	for _, id := range []string{"c1", "c2", "c3", "c4", "c5"} {
		require.NoError(t, engine.AddLatest(ctx, index.LatestCampaigns, index.LatestRef, id, 0))
	}

	ids, err := engine.LatestIDs(ctx, index.LatestCampaigns, index.LatestRef)
	require.NoError(t, err)
	assert.Equal(t, []string{"c3", "c4", "c5"}, ids)
}

func TestIndexStore_EngineWords(t *testing.T) {
	store := newTestIndexStore(t)
	ctx := context.Background()

	engine, err := index.NewEngine(store)
	require.NoError(t, err)

	require.NoError(t, engine.IndexWords(ctx, index.WordCampaigns, "Fresh Water for the village", "c1"))
	require.NoError(t, engine.IndexWords(ctx, index.WordCampaigns, "Water pumps", "c2"))

	ids, err := engine.WordIDs(ctx, index.WordCampaigns, "water")
	require.NoError(t, err)
	assert.Equal(t, []string{"c1", "c2"}, ids)

	require.NoError(t, engine.UpdateWords(ctx, index.WordCampaigns, "Water pumps", "Solar pumps", "c2"))
	ids, err = engine.WordIDs(ctx, index.WordCampaigns, "water")
	require.NoError(t, err)
	assert.Equal(t, []string{"c1"}, ids)
}
