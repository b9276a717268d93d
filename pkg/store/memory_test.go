package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docuchat/docuchat/internal/models"
	"github.com/docuchat/docuchat/pkg/store"
)

func seedStore(t *testing.T) *store.MemoryStore {
	t.Helper()
	ctx := context.Background()
	s := store.NewMemoryStore()

	require.NoError(t, s.EnsureProfile(ctx, "p1", "docs"))
	require.NoError(t, s.InsertDocument(ctx, models.Document{
		ID: "doc1", ProfileID: "p1", Filename: "guide.md",
	}))

	chunks := []models.StoredChunk{
		{ID: "c1", DocumentID: "doc1", ProfileID: "p1", Index: 0, Content: "alpha vector content", Embedding: []float32{1, 0, 0}},
		{ID: "c2", DocumentID: "doc1", ProfileID: "p1", Index: 1, Content: "beta keyword content", Embedding: []float32{0, 1, 0}},
		{ID: "c3", DocumentID: "doc1", ProfileID: "p1", Index: 2, Content: "gamma without embedding", Embedding: nil},
	}
	for _, chunk := range chunks {
		_, err := s.InsertChunk(ctx, chunk)
		require.NoError(t, err)
	}
	return s
}

func TestMemoryStoreProfiles(t *testing.T) {
	ctx := context.Background()
	s := seedStore(t)

	name, err := s.ProfileName(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "docs", name)

	_, err = s.ProfileName(ctx, "absent")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestMemoryStoreNearest(t *testing.T) {
	ctx := context.Background()
	s := seedStore(t)

	chunks, distances, err := s.Nearest(ctx, "p1", []float32{1, 0, 0}, 10)
	require.NoError(t, err)

	// The unembedded chunk never appears; remaining chunks are ordered by
	// cosine distance from the query.
	require.Len(t, chunks, 2)
	assert.Equal(t, "c1", chunks[0].ID)
	assert.InDelta(t, 0.0, distances[0], 1e-6)
	assert.Equal(t, "c2", chunks[1].ID)
	assert.InDelta(t, 1.0, distances[1], 1e-6)
}

func TestMemoryStoreNearestScopedToProfile(t *testing.T) {
	ctx := context.Background()
	s := seedStore(t)

	require.NoError(t, s.EnsureProfile(ctx, "p2", "other"))
	_, err := s.InsertChunk(ctx, models.StoredChunk{
		ID: "other1", DocumentID: "doc9", ProfileID: "p2", Content: "isolated", Embedding: []float32{1, 0, 0},
	})
	require.NoError(t, err)

	chunks, _, err := s.Nearest(ctx, "p2", []float32{1, 0, 0}, 10)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "other1", chunks[0].ID)
}

func TestMemoryStoreNearestLimit(t *testing.T) {
	ctx := context.Background()
	s := seedStore(t)

	chunks, _, err := s.Nearest(ctx, "p1", []float32{1, 0, 0}, 1)
	require.NoError(t, err)
	assert.Len(t, chunks, 1)
}

func TestMemoryStoreKeywordSearch(t *testing.T) {
	ctx := context.Background()
	s := seedStore(t)

	chunks, err := s.KeywordSearch(ctx, "p1", []string{"BETA"}, 10)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "c2", chunks[0].ID)

	chunks, err = s.KeywordSearch(ctx, "p1", nil, 10)
	require.NoError(t, err)
	assert.Empty(t, chunks)

	chunks, err = s.KeywordSearch(ctx, "p1", []string{"content"}, 1)
	require.NoError(t, err)
	assert.Len(t, chunks, 1)
}

func TestMemoryStoreGetByDocument(t *testing.T) {
	ctx := context.Background()
	s := seedStore(t)

	chunks, err := s.GetByDocument(ctx, "doc1")
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	for i, chunk := range chunks {
		assert.Equal(t, i, chunk.Index)
	}
}

func TestMemoryStoreCounts(t *testing.T) {
	ctx := context.Background()
	s := seedStore(t)

	total, err := s.CountChunks(ctx, "p1", false)
	require.NoError(t, err)
	assert.Equal(t, 3, total)

	embedded, err := s.CountChunks(ctx, "p1", true)
	require.NoError(t, err)
	assert.Equal(t, 2, embedded)

	docs, err := s.CountDocuments(ctx, "p1", false)
	require.NoError(t, err)
	assert.Equal(t, 1, docs)

	processed, err := s.CountDocuments(ctx, "p1", true)
	require.NoError(t, err)
	assert.Equal(t, 0, processed)

	require.NoError(t, s.MarkProcessed(ctx, "doc1"))
	processed, err = s.CountDocuments(ctx, "p1", true)
	require.NoError(t, err)
	assert.Equal(t, 1, processed)
}

func TestMemoryStoreDeleteDocument(t *testing.T) {
	ctx := context.Background()
	s := seedStore(t)

	require.NoError(t, s.DeleteDocument(ctx, "doc1"))

	count, err := s.CountChunks(ctx, "p1", false)
	require.NoError(t, err)
	assert.Zero(t, count)

	_, err = s.DocumentFilename(ctx, "doc1")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestMemoryStoreDeleteProfile(t *testing.T) {
	ctx := context.Background()
	s := seedStore(t)

	require.NoError(t, s.DeleteProfile(ctx, "p1"))

	_, err := s.ProfileName(ctx, "p1")
	assert.ErrorIs(t, err, store.ErrNotFound)

	count, err := s.CountChunks(ctx, "p1", false)
	require.NoError(t, err)
	assert.Zero(t, count)

	docs, err := s.CountDocuments(ctx, "p1", false)
	require.NoError(t, err)
	assert.Zero(t, docs)
}
