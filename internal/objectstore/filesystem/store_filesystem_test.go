package filesystem

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brokerage/internal/objectstore"
	"brokerage/pkg/platform/sentinel"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(t.TempDir(), "http://files.test")
	require.NoError(t, err)
	return store
}

func TestPutWritesIntoExistingBucket(t *testing.T) {
	store := newStore(t)
	require.NoError(t, store.CreateBucket("documents"))

	err := store.Put(context.Background(), "documents", "id-1/photo/1_me.png", []byte("png"), "image/png")
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(store.Root(), "documents", "id-1", "photo", "1_me.png"))
	require.NoError(t, err)
	assert.Equal(t, "png", string(data))
	assert.Equal(t, "http://files.test/documents/id-1/photo/1_me.png", store.PublicURL("documents", "id-1/photo/1_me.png"))
}

func TestPutUnknownBucketLeavesNoResidue(t *testing.T) {
	store := newStore(t)

	err := store.Put(context.Background(), "kyc-documents", "id-1/photo/1_me.png", []byte("png"), "image/png")
	assert.ErrorIs(t, err, objectstore.ErrBucketNotFound)
	assert.ErrorIs(t, err, sentinel.ErrNotFound)

	entries, err := os.ReadDir(store.Root())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestPutRejectsEscapingPaths(t *testing.T) {
	store := newStore(t)
	require.NoError(t, store.CreateBucket("documents"))

	assert.ErrorIs(t, store.Put(context.Background(), "documents", "../../x", []byte("x"), ""), objectstore.ErrInvalidPath)
	assert.ErrorIs(t, store.Put(context.Background(), "..", "x", []byte("x"), ""), objectstore.ErrBucketNotFound)
	assert.Error(t, store.CreateBucket("a/b"))
}

func TestPutHonorsCancellation(t *testing.T) {
	store := newStore(t)
	require.NoError(t, store.CreateBucket("documents"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, store.Put(ctx, "documents", "a.txt", []byte("x"), ""), context.Canceled)
}
