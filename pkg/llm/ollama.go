package llm

import (
	"context"
	"fmt"
	"sync"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
)

// OllamaConfig represents the configuration for the Ollama provider.
type OllamaConfig struct {
	BaseURL string
}

// OllamaProvider serves embeddings and completions from a local Ollama
// server. One client is built per model and reused.
type OllamaProvider struct {
	config OllamaConfig

	mu      sync.Mutex
	clients map[string]*ollama.LLM
}

var ollamaDimensions = map[string]int{
	"nomic-embed-text":        768,
	"nomic-embed-text:latest": 768,
	"mxbai-embed-large":       1024,
	"all-minilm":              384,
}

func NewOllamaProvider(config OllamaConfig) *OllamaProvider {
	if config.BaseURL == "" {
		config.BaseURL = "http://localhost:11434"
	}
	return &OllamaProvider{
		config:  config,
		clients: make(map[string]*ollama.LLM),
	}
}

func (p *OllamaProvider) Name() string { return "ollama" }

func (p *OllamaProvider) client(model string) (*ollama.LLM, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if c, ok := p.clients[model]; ok {
		return c, nil
	}

	c, err := ollama.New(
		ollama.WithModel(model),
		ollama.WithServerURL(p.config.BaseURL),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize ollama client: %w", err)
	}

	p.clients[model] = c
	return c, nil
}

func (p *OllamaProvider) Embed(ctx context.Context, text, model string) ([]float32, error) {
	c, err := p.client(model)
	if err != nil {
		return nil, err
	}

	vectors, err := c.CreateEmbedding(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("ollama embedding error: %w", err)
	}
	if len(vectors) == 0 || len(vectors[0]) == 0 {
		return nil, fmt.Errorf("ollama returned an empty embedding")
	}

	return vectors[0], nil
}

func (p *OllamaProvider) Generate(ctx context.Context, prompt, model string, temperature float64, maxTokens int) (string, error) {
	c, err := p.client(model)
	if err != nil {
		return "", err
	}

	response, err := llms.GenerateFromSinglePrompt(ctx, c, prompt,
		llms.WithTemperature(temperature),
		llms.WithMaxTokens(maxTokens),
	)
	if err != nil {
		return "", fmt.Errorf("ollama generation error: %w", err)
	}
	return response, nil
}

func (p *OllamaProvider) Stream(ctx context.Context, prompt, model string, temperature float64, maxTokens int, fn func(chunk string) error) error {
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
		return fmt.Errorf("ollama streaming error: %w", err)
	}
	return nil
}

func (p *OllamaProvider) Dimensions(model string) int {
	if dim, ok := ollamaDimensions[model]; ok {
		return dim
	}
	return 768
}
