package llm_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docuchat/docuchat/pkg/llm"
)

func TestRegistry(t *testing.T) {
	registry := llm.NewRegistry()

	_, err := registry.Get("ollama")
	assert.ErrorIs(t, err, llm.ErrProviderNotFound)

	registry.Register(&scriptedProvider{name: "ollama"})
	registry.Register(&scriptedProvider{name: "openai"})

	p, err := registry.Get("ollama")
	require.NoError(t, err)
	assert.Equal(t, "ollama", p.Name())

	assert.Equal(t, []string{"ollama", "openai"}, registry.Names())
}

func TestRegistryReplacesProvider(t *testing.T) {
	registry := llm.NewRegistry()

	first := &scriptedProvider{name: "ollama", response: "first"}
	second := &scriptedProvider{name: "ollama", response: "second"}
	registry.Register(first)
	registry.Register(second)

	p, err := registry.Get("ollama")
	require.NoError(t, err)
	assert.Same(t, second, p, "later registration wins")
	assert.Len(t, registry.Names(), 1)
}

func TestOllamaProviderDimensions(t *testing.T) {
	p := llm.NewOllamaProvider(llm.OllamaConfig{})

	assert.Equal(t, 768, p.Dimensions("nomic-embed-text"))
	assert.Equal(t, 1024, p.Dimensions("mxbai-embed-large"))
	assert.Equal(t, 768, p.Dimensions("something-unknown"))
}

func TestOpenAIProviderRequiresKey(t *testing.T) {
	_, err := llm.NewOpenAIProvider(llm.OpenAIConfig{})
	assert.Error(t, err)

	p, err := llm.NewOpenAIProvider(llm.OpenAIConfig{APIKey: "sk-test"})
	require.NoError(t, err)
	assert.Equal(t, 1536, p.Dimensions("text-embedding-3-small"))
	assert.Equal(t, 3072, p.Dimensions("text-embedding-3-large"))
	assert.Equal(t, 1536, p.Dimensions("unknown-model"))
}
