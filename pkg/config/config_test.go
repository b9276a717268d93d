package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configData := `
llm:
  provider: "ollama"
  base_url: "http://localhost:11434"
  model: "mistral"
  max_tokens: 1000
  temperature: 0.5

embedding:
  provider: "ollama"
  model: "nomic-embed-text"
  dimensions: 768
  batch_size: 50

database:
  url: "postgres://localhost:5432/test"
  vector_dim: 768

chunker:
  chunk_size: 500
  chunk_overlap: 100
  preserve_paragraphs: false

retrieval:
  limit: 5
  similarity_threshold: 0.8

ui:
  streaming: false
`
	err := os.WriteFile(configPath, []byte(configData), 0644)
	require.NoError(t, err)

	config, err := LoadConfig(configPath)
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:11434", config.LLM.BaseURL)
	assert.Equal(t, "mistral", config.LLM.Model)
	assert.Equal(t, 1000, config.LLM.MaxTokens)
	assert.Equal(t, 0.5, config.LLM.Temperature)
	assert.Equal(t, "postgres://localhost:5432/test", config.Database.URL)
	assert.Equal(t, 768, config.Database.VectorDim)
	assert.Equal(t, 500, config.Chunker.ChunkSize)
	assert.Equal(t, 5, config.Retrieval.Limit)
	assert.False(t, config.UI.Streaming)

	// Explicit false survives defaulting; the unset sibling defaults true.
	require.NotNil(t, config.Chunker.PreserveParagraphs)
	assert.False(t, *config.Chunker.PreserveParagraphs)
	require.NotNil(t, config.Chunker.PreserveSentences)
	assert.True(t, *config.Chunker.PreserveSentences)
}

func TestLoadConfigDefaults(t *testing.T) {
	config, err := getDefaultConfig()
	require.NoError(t, err)

	assert.Equal(t, "ollama", config.LLM.Provider)
	assert.Equal(t, "http://localhost:11434", config.LLM.BaseURL)
	assert.Equal(t, 2000, config.LLM.MaxTokens)
	assert.Equal(t, "nomic-embed-text", config.Embedding.Model)
	assert.Equal(t, 768, config.Embedding.Dimensions)
	assert.Equal(t, 100, config.Embedding.BatchSize)
	assert.Equal(t, config.Embedding.Dimensions, config.Database.VectorDim)
	assert.Equal(t, 1000, config.Chunker.ChunkSize)
	assert.Equal(t, 200, config.Chunker.ChunkOverlap)
	assert.Equal(t, 10, config.Retrieval.Limit)
	assert.Equal(t, 0.7, config.Retrieval.SimilarityThreshold)
	assert.Equal(t, ":8080", config.Server.Addr)
}

func TestEmbeddingProviderFollowsLLM(t *testing.T) {
	config := &Config{}
	config.LLM.Provider = "openai"
	applyDefaults(config)

	assert.Equal(t, "openai", config.Embedding.Provider)
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name         string
		mutate       func(*Config)
		expectedErrs []string
	}{
		{
			name:   "valid defaults",
			mutate: func(c *Config) {},
		},
		{
			name: "unknown provider",
			mutate: func(c *Config) {
				c.LLM.Provider = "anthropic"
			},
			expectedErrs: []string{"llm.provider"},
		},
		{
			name: "openai without key",
			mutate: func(c *Config) {
				c.LLM.Provider = "openai"
			},
			expectedErrs: []string{"llm.api_key"},
		},
		{
			name: "overlap at least chunk size",
			mutate: func(c *Config) {
				c.Chunker.ChunkSize = 100
				c.Chunker.ChunkOverlap = 100
			},
			expectedErrs: []string{"chunker.chunk_overlap"},
		},
		{
			name: "weights out of range",
			mutate: func(c *Config) {
				c.Retrieval.VectorWeight = 1.5
				c.Retrieval.KeywordWeight = -0.1
			},
			expectedErrs: []string{"retrieval.vector_weight", "retrieval.keyword_weight"},
		},
		{
			name: "threshold out of range",
			mutate: func(c *Config) {
				c.Retrieval.SimilarityThreshold = 2
			},
			expectedErrs: []string{"retrieval.similarity_threshold"},
		},
		{
			name: "bad chunker bounds",
			mutate: func(c *Config) {
				c.Chunker.MinChunkSize = 5000
				c.Chunker.MaxChunkSize = 500
			},
			expectedErrs: []string{"chunker.min_chunk_size", "chunker.max_chunk_size"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config, err := getDefaultConfig()
			require.NoError(t, err)
			tt.mutate(config)

			errors := config.Validate()
			require.Len(t, errors, len(tt.expectedErrs))
			for i, field := range tt.expectedErrs {
				assert.Equal(t, field, errors[i].Field)
			}
		})
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	os.Setenv("OLLAMA_BASE_URL", "http://env-ollama:11434")
	os.Setenv("DATABASE_URL", "postgres://env-db:5432/test")
	os.Setenv("OPENAI_API_KEY", "sk-env")
	defer func() {
		os.Unsetenv("OLLAMA_BASE_URL")
		os.Unsetenv("DATABASE_URL")
		os.Unsetenv("OPENAI_API_KEY")
	}()

	config := &Config{}
	mergeWithEnv(config)

	assert.Equal(t, "http://env-ollama:11434", config.LLM.BaseURL)
	assert.Equal(t, "postgres://env-db:5432/test", config.Database.URL)
	assert.Equal(t, "sk-env", config.LLM.APIKey)
}
