package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type Config struct {
	LLM struct {
		Provider    string  `yaml:"provider"`
		BaseURL     string  `yaml:"base_url"`
		APIKey      string  `yaml:"api_key"`
		Model       string  `yaml:"model"`
		MaxTokens   int     `yaml:"max_tokens"`
		Temperature float64 `yaml:"temperature"`
	} `yaml:"llm"`

	Embedding struct {
		Provider       string  `yaml:"provider"`
		Model          string  `yaml:"model"`
		Dimensions     int     `yaml:"dimensions"`
		BatchSize      int     `yaml:"batch_size"`
		TimeoutSeconds int     `yaml:"timeout_seconds"`
		RateLimit      float64 `yaml:"rate_limit"`
		LocalFallback  *bool   `yaml:"local_fallback"`
		LocalDim       int     `yaml:"local_dimensions"`
	} `yaml:"embedding"`

	Database struct {
		URL       string `yaml:"url"`
		VectorDim int    `yaml:"vector_dim"`
	} `yaml:"database"`

	Chunker struct {
		ChunkSize          int   `yaml:"chunk_size"`
		ChunkOverlap       int   `yaml:"chunk_overlap"`
		MinChunkSize       int   `yaml:"min_chunk_size"`
		MaxChunkSize       int   `yaml:"max_chunk_size"`
		PreserveParagraphs *bool `yaml:"preserve_paragraphs"`
		PreserveSentences  *bool `yaml:"preserve_sentences"`
	} `yaml:"chunker"`

	Retrieval struct {
		Limit               int     `yaml:"limit"`
		SimilarityThreshold float64 `yaml:"similarity_threshold"`
		VectorWeight        float64 `yaml:"vector_weight"`
		KeywordWeight       float64 `yaml:"keyword_weight"`
	} `yaml:"retrieval"`

	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`

	UI struct {
		Streaming bool `yaml:"streaming"`
	} `yaml:"ui"`
}

func LoadConfig(path string) (*Config, error) {
	// If no path provided, try default locations
	if path == "" {
		locations := []string{
			"config.yaml",
			"config.yml",
			filepath.Join(os.Getenv("HOME"), ".config/docuchat/config.yaml"),
			"/etc/docuchat/config.yaml",
		}

		for _, loc := range locations {
			if _, err := os.Stat(loc); err == nil {
				path = loc
				break
			}
		}
	}

	if path == "" {
		return getDefaultConfig()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	mergeWithEnv(&config)
	applyDefaults(&config)

	return &config, nil
}

func getDefaultConfig() (*Config, error) {
	config := &Config{}
	mergeWithEnv(config)
	applyDefaults(config)
	return config, nil
}

func applyDefaults(config *Config) {
	if config.LLM.Provider == "" {
		config.LLM.Provider = "ollama"
	}
	if config.LLM.BaseURL == "" {
		config.LLM.BaseURL = "http://localhost:11434"
	}
	if config.LLM.Model == "" {
		config.LLM.Model = "mistral"
	}
	if config.LLM.MaxTokens == 0 {
		config.LLM.MaxTokens = 2000
	}
	if config.LLM.Temperature == 0 {
		config.LLM.Temperature = 0.7
	}

	if config.Embedding.Provider == "" {
		config.Embedding.Provider = config.LLM.Provider
	}
	if config.Embedding.Model == "" {
		config.Embedding.Model = "nomic-embed-text"
	}
	if config.Embedding.Dimensions == 0 {
		config.Embedding.Dimensions = 768
	}
	if config.Embedding.BatchSize == 0 {
		config.Embedding.BatchSize = 100
	}
	if config.Embedding.TimeoutSeconds == 0 {
		config.Embedding.TimeoutSeconds = 30
	}
	if config.Embedding.LocalFallback == nil {
		enabled := true
		config.Embedding.LocalFallback = &enabled
	}
	if config.Embedding.LocalDim == 0 {
		config.Embedding.LocalDim = 384
	}

	if config.Database.VectorDim == 0 {
		config.Database.VectorDim = config.Embedding.Dimensions
	}

	if config.Chunker.ChunkSize == 0 {
		config.Chunker.ChunkSize = 1000
	}
	if config.Chunker.ChunkOverlap == 0 {
		config.Chunker.ChunkOverlap = 200
	}
	if config.Chunker.MinChunkSize == 0 {
		config.Chunker.MinChunkSize = 100
	}
	if config.Chunker.MaxChunkSize == 0 {
		config.Chunker.MaxChunkSize = 2000
	}
	if config.Chunker.PreserveParagraphs == nil {
		enabled := true
		config.Chunker.PreserveParagraphs = &enabled
	}
	if config.Chunker.PreserveSentences == nil {
		enabled := true
		config.Chunker.PreserveSentences = &enabled
	}

	if config.Retrieval.Limit == 0 {
		config.Retrieval.Limit = 10
	}
	if config.Retrieval.SimilarityThreshold == 0 {
		config.Retrieval.SimilarityThreshold = 0.7
	}
	if config.Retrieval.VectorWeight == 0 {
		config.Retrieval.VectorWeight = 0.7
	}
	if config.Retrieval.KeywordWeight == 0 {
		config.Retrieval.KeywordWeight = 0.3
	}

	if config.Server.Addr == "" {
		config.Server.Addr = ":8080"
	}
}

func mergeWithEnv(config *Config) {
	if baseURL := os.Getenv("OLLAMA_BASE_URL"); baseURL != "" {
		config.LLM.BaseURL = baseURL
	}
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		config.Database.URL = dbURL
	}
	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		config.LLM.APIKey = apiKey
	}
}
