package llm

import (
	"context"
	"fmt"
	"sync"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// OpenAIConfig represents the configuration for the OpenAI provider.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string
}

// OpenAIProvider serves embeddings and completions from the OpenAI API or
// any compatible endpoint.
type OpenAIProvider struct {
	config OpenAIConfig

	mu      sync.Mutex
	clients map[string]*openai.LLM
}

var openaiDimensions = map[string]int{
	"text-embedding-ada-002": 1536,
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
}

func NewOpenAIProvider(config OpenAIConfig) (*OpenAIProvider, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}
	return &OpenAIProvider{
		config:  config,
		clients: make(map[string]*openai.LLM),
	}, nil
}

func (p *OpenAIProvider) Name() string { return "openai" }

func (p *OpenAIProvider) client(model string) (*openai.LLM, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if c, ok := p.clients[model]; ok {
		return c, nil
	}

	opts := []openai.Option{
		openai.WithToken(p.config.APIKey),
		openai.WithModel(model),
		openai.WithEmbeddingModel(model),
	}
	if p.config.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(p.config.BaseURL))
	}

	c, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize openai client: %w", err)
	}

	p.clients[model] = c
	return c, nil
}

func (p *OpenAIProvider) Embed(ctx context.Context, text, model string) ([]float32, error) {
	c, err := p.client(model)
	if err != nil {
		return nil, err
	}

	vectors, err := c.CreateEmbedding(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("openai embedding error: %w", err)
	}
	if len(vectors) == 0 || len(vectors[0]) == 0 {
		return nil, fmt.Errorf("openai returned an empty embedding")
	}

	return vectors[0], nil
}

func (p *OpenAIProvider) Generate(ctx context.Context, prompt, model string, temperature float64, maxTokens int) (string, error) {
	c, err := p.client(model)
	if err != nil {
		return "", err
	}

	response, err := llms.GenerateFromSinglePrompt(ctx, c, prompt,
		llms.WithTemperature(temperature),
		llms.WithMaxTokens(maxTokens),
	)
	if err != nil {
		return "", fmt.Errorf("openai generation error: %w", err)
	}
	return response, nil
}

func (p *OpenAIProvider) Stream(ctx context.Context, prompt, model string, temperature float64, maxTokens int, fn func(chunk string) error) error {
	c, err := p.client(model)
	if err != nil {
		return err
	}

	_, err = llms.GenerateFromSinglePrompt(ctx, c, prompt,
		llms.WithTemperature(temperature),
		llms.WithMaxTokens(maxTokens),
		llms.WithStreamingFunc(func(_ context.Context, chunk []byte) error {
			return fn(string(chunk))
		}),
	)
	if err != nil {
		return fmt.Errorf("openai streaming error: %w", err)
	}
	return nil
}

func (p *OpenAIProvider) Dimensions(model string) int {
	if dim, ok := openaiDimensions[model]; ok {
		return dim
	}
	return 1536
}
