package retriever

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/docuchat/docuchat/internal/models"
	"github.com/docuchat/docuchat/internal/types"
)

// hybridVectorThreshold relaxes the similarity cut for the vector pass so
// keyword fusion has candidates to work with.
const hybridVectorThreshold = 0.5

// HybridRetriever fuses vector similarity with literal keyword matching.
type HybridRetriever struct {
	vector *VectorRetriever
	store  types.VectorStore
}

func NewHybridRetriever(vector *VectorRetriever, store types.VectorStore) *HybridRetriever {
	return &HybridRetriever{
		vector: vector,
		store:  store,
	}
}

// HybridSearch runs the vector and keyword passes independently, fuses
// their scores per chunk, and re-ranks.
//
// A chunk found by both passes scores vector*vectorWeight +
// keyword*keywordWeight; a keyword-only chunk scores keyword*keywordWeight.
// A vector-only chunk keeps its raw similarity unscaled. That asymmetry is
// long-standing behavior that ranking consumers depend on, so it is kept.
func (h *HybridRetriever) HybridSearch(ctx context.Context, query, profileID string, limit int, vectorWeight, keywordWeight float64) (models.SearchResponse, error) {
	start := time.Now()

	vectorResponse, err := h.vector.SearchSimilarChunks(ctx, query, profileID, limit*2, hybridVectorThreshold, true)
	if err != nil {
		return models.SearchResponse{}, err
	}

	keywordResults, err := h.keywordSearch(ctx, query, profileID, limit*2)
	if err != nil {
		return models.SearchResponse{}, err
	}

	combined := h.combineResults(vectorResponse.Results, keywordResults, vectorWeight, keywordWeight)

	sort.SliceStable(combined, func(i, j int) bool {
		return combined[i].SimilarityScore > combined[j].SimilarityScore
	})
	if len(combined) > limit {
		combined = combined[:limit]
	}
	for i := range combined {
		combined[i].Rank = i + 1
	}

	return models.SearchResponse{
		Results:      combined,
		TotalResults: len(combined),
		SearchTime:   time.Since(start),
		Metadata: map[string]interface{}{
			"search_type":     "hybrid",
			"vector_weight":   vectorWeight,
			"keyword_weight":  keywordWeight,
			"vector_results":  len(vectorResponse.Results),
			"keyword_results": len(keywordResults),
		},
	}, nil
}

// keywordSearch matches chunks containing any query token and scores each
// match by weighted occurrence counts.
func (h *HybridRetriever) keywordSearch(ctx context.Context, query, profileID string, limit int) ([]models.SearchResult, error) {
	keywords := strings.Fields(strings.ToLower(query))
	if len(keywords) == 0 {
		return nil, nil
	}

	chunks, err := h.store.KeywordSearch(ctx, profileID, keywords, limit)
	if err != nil {
		return nil, fmt.Errorf("keyword search failed: %w", err)
	}

	results := make([]models.SearchResult, 0, len(chunks))
	for _, chunk := range chunks {
		results = append(results, models.SearchResult{
			Chunk:           chunk,
			SimilarityScore: keywordScore(chunk.Content, keywords),
			Metadata: map[string]interface{}{
				"chunk_index": chunk.Index,
				"search_type": "keyword",
			},
		})
	}
	return results, nil
}

// keywordScore sums occurrence counts weighted by keyword length (longer
// keywords are more specific), normalizes by content length, and clamps to
// [0,1]. Long chunks dilute their own matches.
func keywordScore(content string, keywords []string) float64 {
	if len(content) == 0 {
		return 0
	}

	contentLower := strings.ToLower(content)
	total := 0.0
	for _, keyword := range keywords {
		count := strings.Count(contentLower, keyword)
		weight := float64(len(keyword)) / 10
		total += float64(count) * weight
	}

	score := total / float64(len(content)) * 1000
	if score > 1 {
		return 1
	}
	return score
}

// combineResults fuses the two passes into one list keyed by chunk
// identity. Insertion order (vector results first, then keyword-only) makes
// tie-breaking deterministic under the stable final sort.
func (h *HybridRetriever) combineResults(vectorResults, keywordResults []models.SearchResult, vectorWeight, keywordWeight float64) []models.SearchResult {
	index := make(map[string]int, len(vectorResults))
	combined := make([]models.SearchResult, 0, len(vectorResults)+len(keywordResults))

	for _, result := range vectorResults {
		if result.Metadata == nil {
			result.Metadata = map[string]interface{}{}
		}
		result.Metadata["vector_score"] = result.SimilarityScore
		index[result.Chunk.ID] = len(combined)
		combined = append(combined, result)
	}

	for _, result := range keywordResults {
		if i, ok := index[result.Chunk.ID]; ok {
			existing := &combined[i]
			existing.Metadata["keyword_score"] = result.SimilarityScore
			existing.SimilarityScore = existing.SimilarityScore*vectorWeight + result.SimilarityScore*keywordWeight
		} else {
			result.SimilarityScore *= keywordWeight
			result.Metadata["keyword_score"] = result.SimilarityScore
			index[result.Chunk.ID] = len(combined)
			combined = append(combined, result)
		}
	}

	return combined
}
