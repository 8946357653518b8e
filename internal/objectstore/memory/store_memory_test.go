package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brokerage/internal/objectstore"
)

func TestInMemoryStore(t *testing.T) {
	store := New("mem://objects", "documents")
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "documents", "id-1/photo/1_a.png", []byte("a"), "image/png"))
	assert.ErrorIs(t, store.Put(ctx, "kyc-documents", "id-1/photo/1_a.png", []byte("a"), "image/png"), objectstore.ErrBucketNotFound)

	obj, ok := store.Object("documents", "id-1/photo/1_a.png")
	require.True(t, ok)
	assert.Equal(t, "image/png", obj.ContentType)
	assert.Equal(t, 1, store.Len())
	assert.Equal(t, "mem://objects/documents/id-1/photo/1_a.png", store.PublicURL("documents", "id-1/photo/1_a.png"))
}
