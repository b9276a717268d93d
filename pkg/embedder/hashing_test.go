package embedder_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docuchat/docuchat/pkg/embedder"
)

func TestHashingEmbedderDeterministic(t *testing.T) {
	e := embedder.NewHashingEmbedder(64)

	first, err := e.Encode([]string{"Postgres stores the vectors"})
	require.NoError(t, err)
	second, err := e.Encode([]string{"Postgres stores the vectors"})
	require.NoError(t, err)

	assert.Equal(t, first[0], second[0])
}

func TestHashingEmbedderUnitNorm(t *testing.T) {
	e := embedder.NewHashingEmbedder(64)

	vectors, err := e.Encode([]string{"cosine similarity works best on unit vectors"})
	require.NoError(t, err)

	var norm float64
	for _, v := range vectors[0] {
		norm += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-5)
}

func TestHashingEmbedderNoTokens(t *testing.T) {
	e := embedder.NewHashingEmbedder(32)

	vectors, err := e.Encode([]string{"", "123 456", "the and of"})
	require.NoError(t, err)

	require.Len(t, vectors, 3)
	for _, vec := range vectors {
		assert.Len(t, vec, 32)
		assert.True(t, embedder.IsZero(vec))
	}
}

func TestHashingEmbedderDistinguishesTexts(t *testing.T) {
	e := embedder.NewHashingEmbedder(128)

	vectors, err := e.Encode([]string{
		"kubernetes cluster networking",
		"sourdough bread hydration",
	})
	require.NoError(t, err)

	sim := embedder.CosineSimilarity(vectors[0], vectors[1])
	assert.Less(t, sim, 0.5, "unrelated texts should be near-orthogonal")
}

func TestHashingEmbedderDefaults(t *testing.T) {
	e := embedder.NewHashingEmbedder(0)

	assert.Equal(t, 384, e.Dimensions())
	assert.Equal(t, "hashing-384", e.Name())
}
