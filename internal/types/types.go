package types

import (
	"context"

	"github.com/docuchat/docuchat/internal/models"
)

// Provider is a named AI backend able to embed text and generate
// completions. The retrieval core is provider-agnostic beyond this
// interface.
type Provider interface {
	Name() string
	Embed(ctx context.Context, text, model string) ([]float32, error)
	Generate(ctx context.Context, prompt, model string, temperature float64, maxTokens int) (string, error)
	Stream(ctx context.Context, prompt, model string, temperature float64, maxTokens int, fn func(chunk string) error) error
	Dimensions(model string) int
}

// LocalEmbedder is a process-wide embedding model used when every provider
// call fails. Implementations must be safe for concurrent Encode calls
// after construction.
type LocalEmbedder interface {
	Name() string
	Dimensions() int
	Encode(texts []string) ([][]float32, error)
}

// VectorStore owns chunk records and their vectors. Each chunk insert is
// atomic; profile IDs partition every query.
type VectorStore interface {
	EnsureProfile(ctx context.Context, profileID, name string) error
	ProfileName(ctx context.Context, profileID string) (string, error)
	InsertDocument(ctx context.Context, doc models.Document) error
	MarkProcessed(ctx context.Context, documentID string) error
	InsertChunk(ctx context.Context, chunk models.StoredChunk) (string, error)
	GetChunk(ctx context.Context, id string) (models.StoredChunk, error)
	GetByDocument(ctx context.Context, documentID string) ([]models.StoredChunk, error)
	// Nearest returns up to k embedded chunks ordered by cosine distance
	// from the query vector, scoped to the profile, with their distances.
	Nearest(ctx context.Context, profileID string, query []float32, k int) ([]models.StoredChunk, []float64, error)
	// KeywordSearch returns chunks whose content contains any of the
	// keywords, case-insensitively, scoped to the profile.
	KeywordSearch(ctx context.Context, profileID string, keywords []string, limit int) ([]models.StoredChunk, error)
	CountChunks(ctx context.Context, profileID string, embeddedOnly bool) (int, error)
	CountDocuments(ctx context.Context, profileID string, processedOnly bool) (int, error)
	DocumentFilename(ctx context.Context, documentID string) (string, error)
	DeleteDocument(ctx context.Context, documentID string) error
	DeleteProfile(ctx context.Context, profileID string) error
	Close()
}

// Chunker splits cleaned text into ordered chunks.
type Chunker interface {
	ChunkText(text string, metadata map[string]interface{}) []models.TextChunk
}

// EmbeddingGenerator turns batches of text into vectors.
type EmbeddingGenerator interface {
	GenerateEmbeddings(ctx context.Context, texts []string) models.EmbeddingResult
	GenerateSingleEmbedding(ctx context.Context, text string) ([]float32, bool)
	GetEmbeddingDimensions(provider, model string) int
}
