package config

import "fmt"

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks the configuration for inconsistencies and returns every
// problem found rather than stopping at the first one.
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	switch c.LLM.Provider {
	case "ollama", "openai":
	default:
		errors = append(errors, ValidationError{
			Field:   "llm.provider",
			Message: fmt.Sprintf("unknown provider %q (expected ollama or openai)", c.LLM.Provider),
		})
	}

	if c.LLM.Provider == "openai" && c.LLM.APIKey == "" {
		errors = append(errors, ValidationError{
			Field:   "llm.api_key",
			Message: "api key is required for the openai provider",
		})
	}

	if c.LLM.Temperature < 0 || c.LLM.Temperature > 1 {
		errors = append(errors, ValidationError{
			Field:   "llm.temperature",
			Message: "temperature must be between 0 and 1",
		})
	}

	if c.LLM.MaxTokens < 0 {
		errors = append(errors, ValidationError{
			Field:   "llm.max_tokens",
			Message: "max_tokens cannot be negative",
		})
	}

	if c.Embedding.Dimensions <= 0 {
		errors = append(errors, ValidationError{
			Field:   "embedding.dimensions",
			Message: "dimensions must be positive",
		})
	}

	if c.Embedding.BatchSize <= 0 {
		errors = append(errors, ValidationError{
			Field:   "embedding.batch_size",
			Message: "batch_size must be positive",
		})
	}

	if c.Embedding.RateLimit < 0 {
		errors = append(errors, ValidationError{
			Field:   "embedding.rate_limit",
			Message: "rate_limit cannot be negative",
		})
	}

	if c.Chunker.ChunkSize <= 0 {
		errors = append(errors, ValidationError{
			Field:   "chunker.chunk_size",
			Message: "chunk_size must be positive",
		})
	}

	if c.Chunker.ChunkOverlap < 0 || c.Chunker.ChunkOverlap >= c.Chunker.ChunkSize {
		errors = append(errors, ValidationError{
			Field:   "chunker.chunk_overlap",
			Message: "chunk_overlap must be non-negative and smaller than chunk_size",
		})
	}

	if c.Chunker.MinChunkSize > c.Chunker.ChunkSize {
		errors = append(errors, ValidationError{
			Field:   "chunker.min_chunk_size",
			Message: "min_chunk_size cannot exceed chunk_size",
		})
	}

	if c.Chunker.MaxChunkSize < c.Chunker.ChunkSize {
		errors = append(errors, ValidationError{
			Field:   "chunker.max_chunk_size",
			Message: "max_chunk_size cannot be smaller than chunk_size",
		})
	}

	if c.Retrieval.Limit <= 0 {
		errors = append(errors, ValidationError{
			Field:   "retrieval.limit",
			Message: "limit must be positive",
		})
	}

	if c.Retrieval.SimilarityThreshold < 0 || c.Retrieval.SimilarityThreshold > 1 {
		errors = append(errors, ValidationError{
			Field:   "retrieval.similarity_threshold",
			Message: "similarity_threshold must be between 0 and 1",
		})
	}

	if c.Retrieval.VectorWeight < 0 || c.Retrieval.VectorWeight > 1 {
		errors = append(errors, ValidationError{
			Field:   "retrieval.vector_weight",
			Message: "vector_weight must be between 0 and 1",
		})
	}

	if c.Retrieval.KeywordWeight < 0 || c.Retrieval.KeywordWeight > 1 {
		errors = append(errors, ValidationError{
			Field:   "retrieval.keyword_weight",
			Message: "keyword_weight must be between 0 and 1",
		})
	}

	return errors
}
