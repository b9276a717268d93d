package ingest

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/docuchat/docuchat/internal/models"
	"github.com/docuchat/docuchat/internal/types"
	"github.com/docuchat/docuchat/pkg/embedder"
	"github.com/docuchat/docuchat/pkg/processor"
)

// Ingestor drives the write path: extract, chunk, embed, store.
type Ingestor struct {
	processor *processor.Processor
	generator types.EmbeddingGenerator
	store     types.VectorStore
}

// Result reports one document's ingestion. EmbeddedChunks may be lower
// than ChunkCount when some embeddings failed; those chunks are stored
// without a vector and never surface in similarity search.
type Result struct {
	DocumentID     string
	Filename       string
	Title          string
	ChunkCount     int
	EmbeddedChunks int
	WordCount      int
	Errors         []string
}

func New(proc *processor.Processor, generator types.EmbeddingGenerator, store types.VectorStore) *Ingestor {
	return &Ingestor{
		processor: proc,
		generator: generator,
		store:     store,
	}
}

// IngestFile processes one document into the profile's chunk index.
// Embedding failures are per-chunk and never drop chunks; extraction and
// store failures are fatal for the document.
func (ing *Ingestor) IngestFile(ctx context.Context, filePath, mimeType, profileID string, metadata map[string]interface{}) (Result, error) {
	_, docMeta, chunks, err := ing.processor.ProcessDocument(filePath, mimeType, metadata)
	if err != nil {
		return Result{}, err
	}

	doc := models.Document{
		ID:        uuid.New().String(),
		ProfileID: profileID,
		Filename:  filepath.Base(filePath),
		MimeType:  docMeta.MimeType,
	}
	if err := ing.store.InsertDocument(ctx, doc); err != nil {
		return Result{}, fmt.Errorf("failed to store document: %w", err)
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Content
	}
	embeddingResult := ing.generator.GenerateEmbeddings(ctx, texts)

	result := Result{
		DocumentID: doc.ID,
		Filename:   doc.Filename,
		Title:      docMeta.Title,
		ChunkCount: len(chunks),
		WordCount:  docMeta.WordCount,
		Errors:     embeddingResult.Errors,
	}

	for i, chunk := range chunks {
		stored := models.StoredChunk{
			ID:         uuid.New().String(),
			DocumentID: doc.ID,
			ProfileID:  profileID,
			Index:      chunk.Index,
			Content:    chunk.Content,
			StartChar:  chunk.StartChar,
			EndChar:    chunk.EndChar,
			Metadata:   chunk.Metadata,
		}

		// A zero vector is the per-item failure placeholder; persist the
		// chunk without a vector so similarity search skips it instead of
		// choking on a zero-norm distance.
		if i < len(embeddingResult.Embeddings) && !embedder.IsZero(embeddingResult.Embeddings[i]) {
			stored.Embedding = embeddingResult.Embeddings[i]
			result.EmbeddedChunks++
		}

		if _, err := ing.store.InsertChunk(ctx, stored); err != nil {
			return result, fmt.Errorf("failed to store chunk %d: %w", chunk.Index, err)
		}
	}

	if err := ing.store.MarkProcessed(ctx, doc.ID); err != nil {
		return result, err
	}

	return result, nil
}
