package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/docuchat/docuchat/internal/models"
	"github.com/docuchat/docuchat/pkg/embedder"
)

// MemoryStore is a brute-force in-memory vector store with the same
// contract as the pgvector store. It backs tests and dependency-free dev
// runs.
type MemoryStore struct {
	mu        sync.RWMutex
	profiles  map[string]string
	documents map[string]models.Document
	chunks    []models.StoredChunk
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		profiles:  make(map[string]string),
		documents: make(map[string]models.Document),
	}
}

func (s *MemoryStore) EnsureProfile(_ context.Context, profileID, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[profileID] = name
	return nil
}

func (s *MemoryStore) ProfileName(_ context.Context, profileID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	name, ok := s.profiles[profileID]
	if !ok {
		return "", fmt.Errorf("%w: profile %s", ErrNotFound, profileID)
	}
	return name, nil
}

func (s *MemoryStore) InsertDocument(_ context.Context, doc models.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now()
	}
	s.documents[doc.ID] = doc
	return nil
}

func (s *MemoryStore) MarkProcessed(_ context.Context, documentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.documents[documentID]
	if !ok {
		return fmt.Errorf("%w: document %s", ErrNotFound, documentID)
	}
	doc.Processed = true
	s.documents[documentID] = doc
	return nil
}

func (s *MemoryStore) InsertChunk(_ context.Context, chunk models.StoredChunk) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if chunk.CreatedAt.IsZero() {
		chunk.CreatedAt = time.Now()
	}
	s.chunks = append(s.chunks, chunk)
	return chunk.ID, nil
}

func (s *MemoryStore) GetChunk(_ context.Context, id string) (models.StoredChunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, chunk := range s.chunks {
		if chunk.ID == id {
			return chunk, nil
		}
	}
	return models.StoredChunk{}, fmt.Errorf("%w: chunk %s", ErrNotFound, id)
}

func (s *MemoryStore) GetByDocument(_ context.Context, documentID string) ([]models.StoredChunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.StoredChunk
	for _, chunk := range s.chunks {
		if chunk.DocumentID == documentID {
			out = append(out, chunk)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out, nil
}

func (s *MemoryStore) Nearest(_ context.Context, profileID string, query []float32, k int) ([]models.StoredChunk, []float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type scored struct {
		chunk    models.StoredChunk
		distance float64
	}

	var candidates []scored
	for _, chunk := range s.chunks {
		if chunk.ProfileID != profileID || chunk.Embedding == nil {
			continue
		}
		candidates = append(candidates, scored{
			chunk:    chunk,
			distance: embedder.CosineDistance(chunk.Embedding, query),
		})
	}

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].distance < candidates[j].distance })
	if k > 0 && len(candidates) > k {
		candidates = candidates[:k]
	}

	chunks := make([]models.StoredChunk, len(candidates))
	distances := make([]float64, len(candidates))
	for i, c := range candidates {
		chunks[i] = c.chunk
		distances[i] = c.distance
	}
	return chunks, distances, nil
}

func (s *MemoryStore) KeywordSearch(_ context.Context, profileID string, keywords []string, limit int) ([]models.StoredChunk, error) {
	if len(keywords) == 0 {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.StoredChunk
	for _, chunk := range s.chunks {
		if chunk.ProfileID != profileID {
			continue
		}
		content := strings.ToLower(chunk.Content)
		for _, keyword := range keywords {
			if strings.Contains(content, strings.ToLower(keyword)) {
				out = append(out, chunk)
				break
			}
		}
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (s *MemoryStore) CountChunks(_ context.Context, profileID string, embeddedOnly bool) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, chunk := range s.chunks {
		if chunk.ProfileID != profileID {
			continue
		}
		if embeddedOnly && chunk.Embedding == nil {
			continue
		}
		count++
	}
	return count, nil
}

func (s *MemoryStore) CountDocuments(_ context.Context, profileID string, processedOnly bool) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, doc := range s.documents {
		if doc.ProfileID != profileID {
			continue
		}
		if processedOnly && !doc.Processed {
			continue
		}
		count++
	}
	return count, nil
}

func (s *MemoryStore) DocumentFilename(_ context.Context, documentID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.documents[documentID]
	if !ok {
		return "", fmt.Errorf("%w: document %s", ErrNotFound, documentID)
	}
	return doc.Filename, nil
}

func (s *MemoryStore) DeleteDocument(_ context.Context, documentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.documents, documentID)
	kept := s.chunks[:0]
	for _, chunk := range s.chunks {
		if chunk.DocumentID != documentID {
			kept = append(kept, chunk)
		}
	}
	s.chunks = kept
	return nil
}

func (s *MemoryStore) DeleteProfile(_ context.Context, profileID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.profiles, profileID)
	for id, doc := range s.documents {
		if doc.ProfileID == profileID {
			delete(s.documents, id)
		}
	}
	kept := s.chunks[:0]
	for _, chunk := range s.chunks {
		if chunk.ProfileID != profileID {
			kept = append(kept, chunk)
		}
	}
	s.chunks = kept
	return nil
}

func (s *MemoryStore) Close() {}
