package retriever

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/docuchat/docuchat/internal/models"
	"github.com/docuchat/docuchat/internal/types"
	"github.com/docuchat/docuchat/pkg/embedder"
)

// VectorRetriever answers queries by embedding them and ranking the
// nearest stored chunks by cosine similarity.
type VectorRetriever struct {
	store     types.VectorStore
	generator types.EmbeddingGenerator
}

func NewVectorRetriever(store types.VectorStore, generator types.EmbeddingGenerator) *VectorRetriever {
	return &VectorRetriever{
		store:     store,
		generator: generator,
	}
}

// SearchSimilarChunks embeds the query and returns chunks whose similarity
// meets the threshold, ranked descending and truncated to limit. A query
// that cannot be embedded yields an empty response with an explanatory
// metadata entry, not an error; store failures are fatal for the request.
func (r *VectorRetriever) SearchSimilarChunks(ctx context.Context, query, profileID string, limit int, similarityThreshold float64, includeMetadata bool) (models.SearchResponse, error) {
	start := time.Now()

	queryEmbedding, ok := r.generator.GenerateSingleEmbedding(ctx, query)
	if !ok {
		log.Printf("failed to generate query embedding")
		return models.SearchResponse{
			Results:    []models.SearchResult{},
			SearchTime: time.Since(start),
			Metadata:   map[string]interface{}{"error": "failed to generate query embedding"},
		}, nil
	}

	// Over-fetch 2x so the threshold cut usually still leaves enough
	// results without a second round-trip.
	chunks, distances, err := r.store.Nearest(ctx, profileID, queryEmbedding, limit*2)
	if err != nil {
		return models.SearchResponse{}, fmt.Errorf("vector search failed: %w", err)
	}

	var results []models.SearchResult
	for i, chunk := range chunks {
		similarity := 1 - distances[i]
		if similarity < similarityThreshold {
			continue
		}

		metadata := map[string]interface{}{}
		if includeMetadata {
			metadata = r.chunkMetadata(ctx, chunk)
		}

		results = append(results, models.SearchResult{
			Chunk:           chunk,
			SimilarityScore: similarity,
			Rank:            len(results) + 1,
			Metadata:        metadata,
		})
	}
	if len(results) > limit {
		results = results[:limit]
	}

	searchTime := time.Since(start)
	log.Printf("found %d results in %s", len(results), searchTime)

	return models.SearchResponse{
		Results:        results,
		TotalResults:   len(results),
		QueryEmbedding: queryEmbedding,
		SearchTime:     searchTime,
		Metadata: map[string]interface{}{
			"profile_id":           profileID,
			"similarity_threshold": similarityThreshold,
			"limit":                limit,
		},
	}, nil
}

func (r *VectorRetriever) chunkMetadata(ctx context.Context, chunk models.StoredChunk) map[string]interface{} {
	metadata := map[string]interface{}{
		"document_id": chunk.DocumentID,
		"chunk_index": chunk.Index,
	}
	if filename, err := r.store.DocumentFilename(ctx, chunk.DocumentID); err == nil {
		metadata["document_filename"] = filename
	}
	if name, err := r.store.ProfileName(ctx, chunk.ProfileID); err == nil {
		metadata["profile_name"] = name
	}
	return metadata
}

// GetContextChunks projects search results into plain content records for
// LLM prompt assembly. No additional ranking happens here.
func (r *VectorRetriever) GetContextChunks(ctx context.Context, query, profileID string, maxChunks int, similarityThreshold float64) ([]models.ContextChunk, error) {
	response, err := r.SearchSimilarChunks(ctx, query, profileID, maxChunks, similarityThreshold, true)
	if err != nil {
		return nil, err
	}

	contextChunks := make([]models.ContextChunk, 0, len(response.Results))
	for _, result := range response.Results {
		cc := models.ContextChunk{
			ID:         result.Chunk.ID,
			Content:    result.Chunk.Content,
			Similarity: result.SimilarityScore,
			DocumentID: result.Chunk.DocumentID,
			ChunkIndex: result.Chunk.Index,
			Metadata:   result.Chunk.Metadata,
		}
		if filename, ok := result.Metadata["document_filename"].(string); ok {
			cc.DocumentFilename = filename
		}
		contextChunks = append(contextChunks, cc)
	}

	return contextChunks, nil
}

// SearchByDocument ranks the chunks of one document against the query.
func (r *VectorRetriever) SearchByDocument(ctx context.Context, documentID, query string, limit int) ([]models.SearchResult, error) {
	queryEmbedding, ok := r.generator.GenerateSingleEmbedding(ctx, query)
	if !ok {
		return nil, nil
	}

	chunks, err := r.store.GetByDocument(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("document search failed: %w", err)
	}

	var results []models.SearchResult
	for _, chunk := range chunks {
		if chunk.Embedding == nil {
			continue
		}
		results = append(results, models.SearchResult{
			Chunk:           chunk,
			SimilarityScore: embedder.CosineSimilarity(chunk.Embedding, queryEmbedding),
			Metadata: map[string]interface{}{
				"chunk_index": chunk.Index,
			},
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].SimilarityScore > results[j].SimilarityScore
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	for i := range results {
		results[i].Rank = i + 1
	}

	return results, nil
}

// GetRelatedChunks finds chunks in the same profile most similar to the
// given chunk.
func (r *VectorRetriever) GetRelatedChunks(ctx context.Context, chunkID string, limit int) ([]models.SearchResult, error) {
	source, err := r.store.GetChunk(ctx, chunkID)
	if err != nil {
		return nil, fmt.Errorf("related chunk lookup failed: %w", err)
	}
	if source.Embedding == nil {
		return nil, nil
	}

	// Fetch one extra so dropping the source chunk still leaves limit.
	chunks, distances, err := r.store.Nearest(ctx, source.ProfileID, source.Embedding, limit+1)
	if err != nil {
		return nil, fmt.Errorf("related chunk search failed: %w", err)
	}

	var results []models.SearchResult
	for i, chunk := range chunks {
		if chunk.ID == chunkID {
			continue
		}
		results = append(results, models.SearchResult{
			Chunk:           chunk,
			SimilarityScore: 1 - distances[i],
			Rank:            len(results) + 1,
			Metadata: map[string]interface{}{
				"chunk_index": chunk.Index,
			},
		})
		if len(results) == limit {
			break
		}
	}

	return results, nil
}

// GetProfileStatistics summarizes a profile's ingested data. Coverage
// ratios are 0 when their denominators are 0.
func (r *VectorRetriever) GetProfileStatistics(ctx context.Context, profileID string) (models.ProfileStats, error) {
	totalChunks, err := r.store.CountChunks(ctx, profileID, false)
	if err != nil {
		return models.ProfileStats{}, fmt.Errorf("failed to count chunks: %w", err)
	}
	embeddedChunks, err := r.store.CountChunks(ctx, profileID, true)
	if err != nil {
		return models.ProfileStats{}, fmt.Errorf("failed to count embedded chunks: %w", err)
	}
	totalDocuments, err := r.store.CountDocuments(ctx, profileID, false)
	if err != nil {
		return models.ProfileStats{}, fmt.Errorf("failed to count documents: %w", err)
	}
	processedDocuments, err := r.store.CountDocuments(ctx, profileID, true)
	if err != nil {
		return models.ProfileStats{}, fmt.Errorf("failed to count processed documents: %w", err)
	}

	stats := models.ProfileStats{
		TotalChunks:        totalChunks,
		EmbeddedChunks:     embeddedChunks,
		TotalDocuments:     totalDocuments,
		ProcessedDocuments: processedDocuments,
	}
	if totalChunks > 0 {
		stats.EmbeddingCoverage = float64(embeddedChunks) / float64(totalChunks)
	}
	if totalDocuments > 0 {
		stats.ProcessingCoverage = float64(processedDocuments) / float64(totalDocuments)
	}

	return stats, nil
}
