package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/docuchat/docuchat/internal/models"
	"github.com/docuchat/docuchat/internal/types"
)

// ChatConfig represents the configuration for a chat engine.
type ChatConfig struct {
	Model           string
	Temperature     float64
	MaxTokens       int
	SystemTemplate  string
	ContextTemplate string
}

// ChatEngine generates grounded answers from retrieved context chunks
// through a registered provider.
type ChatEngine struct {
	config   ChatConfig
	provider types.Provider
}

// NewChatEngine creates a chat engine backed by the given provider.
func NewChatEngine(provider types.Provider, config ChatConfig) (*ChatEngine, error) {
	if config.Model == "" {
		return nil, fmt.Errorf("chat model is required")
	}
	if config.Temperature <= 0 || config.Temperature > 1 {
		return nil, fmt.Errorf("temperature must be between 0 and 1")
	}
	if config.MaxTokens < 0 {
		return nil, fmt.Errorf("max tokens cannot be negative")
	} else if config.MaxTokens == 0 {
		config.MaxTokens = 2000
	}
	if config.SystemTemplate == "" {
		config.SystemTemplate = "You are a helpful assistant with access to the following documentation. Answer questions based on this context."
	}
	if config.ContextTemplate == "" {
		config.ContextTemplate = "%s\n\nRelevant documentation:\n%s\n\nQuestion: %s"
	}

	return &ChatEngine{
		config:   config,
		provider: provider,
	}, nil
}

// Chat generates a response grounded in the provided context chunks.
func (ce *ChatEngine) Chat(ctx context.Context, query string, contextChunks []models.ContextChunk) (string, error) {
	prompt := ce.buildPrompt(query, contextChunks)

	response, err := ce.provider.Generate(ctx, prompt, ce.config.Model, ce.config.Temperature, ce.config.MaxTokens)
	if err != nil {
		return "", fmt.Errorf("chat error: %w", err)
	}
	return response, nil
}

// ChatStream streams the grounded response fragment by fragment into fn.
// The fragment sequence is finite and not restartable.
func (ce *ChatEngine) ChatStream(ctx context.Context, query string, contextChunks []models.ContextChunk, fn func(chunk string) error) error {
	prompt := ce.buildPrompt(query, contextChunks)

	if err := ce.provider.Stream(ctx, prompt, ce.config.Model, ce.config.Temperature, ce.config.MaxTokens, fn); err != nil {
		return fmt.Errorf("chat stream error: %w", err)
	}
	return nil
}

func (ce *ChatEngine) buildPrompt(query string, contextChunks []models.ContextChunk) string {
	var contextBuilder strings.Builder
	for _, chunk := range contextChunks {
		contextBuilder.WriteString(fmt.Sprintf("Source: %s\n%s\n\n", chunk.DocumentFilename, chunk.Content))
	}

	return fmt.Sprintf(ce.config.ContextTemplate, ce.config.SystemTemplate, contextBuilder.String(), query)
}

// FormatSources lists the distinct source filenames for citation.
func FormatSources(contextChunks []models.ContextChunk) string {
	var sources []string
	seen := make(map[string]bool)

	for _, chunk := range contextChunks {
		if chunk.DocumentFilename != "" && !seen[chunk.DocumentFilename] {
			sources = append(sources, chunk.DocumentFilename)
			seen[chunk.DocumentFilename] = true
		}
	}

	if len(sources) == 0 {
		return ""
	}

	return fmt.Sprintf("\nSources:\n%s", strings.Join(sources, "\n"))
}
