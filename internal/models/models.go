package models

import "time"

// TextChunk is a bounded segment of extracted document text. Chunks are
// immutable once produced by the chunker; Index is assigned after final
// filtering so indices are dense and ordered within a document.
type TextChunk struct {
	Content   string
	Index     int
	StartChar int
	EndChar   int
	Metadata  map[string]interface{}
}

// DocumentMetadata holds metadata extracted during document processing.
// All fields are optional except MimeType after extraction. Caller-supplied
// metadata is layered into Custom, never into the typed fields.
type DocumentMetadata struct {
	Title        string
	Author       string
	Pages        int
	WordCount    int
	MimeType     string
	Language     string
	CreatedDate  string
	ModifiedDate string
	Custom       map[string]interface{}
}

// StoredChunk is the persisted form of a TextChunk. A nil Embedding means
// the chunk has not been embedded yet and is excluded from similarity
// search. Every stored chunk belongs to exactly one document and one
// profile.
type StoredChunk struct {
	ID         string
	DocumentID string
	ProfileID  string
	Index      int
	Content    string
	StartChar  int
	EndChar    int
	Embedding  []float32
	Metadata   map[string]interface{}
	CreatedAt  time.Time
}

// SearchResult pairs a stored chunk with its relevance score for one query.
// SimilarityScore is cosine similarity in [0,1] for vector search; hybrid
// search may produce fused scores outside that range.
type SearchResult struct {
	Chunk           StoredChunk
	SimilarityScore float64
	Rank            int
	Metadata        map[string]interface{}
}

// SearchResponse is the full result of a retrieval call.
type SearchResponse struct {
	Results        []SearchResult
	TotalResults   int
	QueryEmbedding []float32
	SearchTime     time.Duration
	Metadata       map[string]interface{}
}

// EmbeddingResult reports the outcome of a batch embedding run. Embeddings
// always has the same length and order as the input texts; failed items
// hold zero vectors and contribute an entry to Errors.
type EmbeddingResult struct {
	Embeddings [][]float32
	Model      string
	Provider   string
	// TotalTokens stays zero with the built-in providers; their embedding
	// clients do not report usage counts.
	TotalTokens int
	Errors      []string
}

// ContextChunk is the flattened projection of a search result used to
// assemble LLM prompt context.
type ContextChunk struct {
	ID               string
	Content          string
	Similarity       float64
	DocumentFilename string
	DocumentID       string
	ChunkIndex       int
	Metadata         map[string]interface{}
}

// ProfileStats summarizes a profile's ingested data. Coverage ratios are
// defined as 0 when their denominators are 0.
type ProfileStats struct {
	TotalChunks        int
	EmbeddedChunks     int
	TotalDocuments     int
	ProcessedDocuments int
	EmbeddingCoverage  float64
	ProcessingCoverage float64
}

// Document is a stored document record owned by a profile.
type Document struct {
	ID        string
	ProfileID string
	Filename  string
	MimeType  string
	Processed bool
	CreatedAt time.Time
}
