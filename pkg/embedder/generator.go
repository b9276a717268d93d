package embedder

import (
	"context"
	"fmt"
	"log"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/docuchat/docuchat/internal/models"
	"github.com/docuchat/docuchat/internal/types"
	"github.com/docuchat/docuchat/pkg/llm"
)

// GeneratorConfig represents the configuration for an embedding generator.
type GeneratorConfig struct {
	Provider    string
	Model       string
	BatchSize   int
	Dimensions  int
	CallTimeout time.Duration
	RateLimit   float64 // provider calls per second, 0 disables pacing
}

// Generator turns batches of text into vectors through a registered
// provider, with per-item failure isolation and an optional local fallback
// model. Partial success is the normal contract: the batch API never
// returns an error.
type Generator struct {
	config   GeneratorConfig
	registry *llm.Registry
	local    types.LocalEmbedder
	limiter  *rate.Limiter
}

// NewGenerator creates an embedding generator. local may be nil, which
// disables the fallback path without affecting provider embedding.
func NewGenerator(registry *llm.Registry, local types.LocalEmbedder, config GeneratorConfig) *Generator {
	if config.BatchSize == 0 {
		config.BatchSize = 100
	}
	if config.Dimensions == 0 {
		config.Dimensions = 1536
	}
	if config.CallTimeout == 0 {
		config.CallTimeout = 30 * time.Second
	}

	var limiter *rate.Limiter
	if config.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(config.RateLimit), 1)
	}

	return &Generator{
		config:   config,
		registry: registry,
		local:    local,
		limiter:  limiter,
	}
}

// GenerateEmbeddings embeds texts with the configured provider and model.
func (g *Generator) GenerateEmbeddings(ctx context.Context, texts []string) models.EmbeddingResult {
	return g.GenerateEmbeddingsWith(ctx, texts, g.config.Provider, g.config.Model)
}

// GenerateEmbeddingsWith embeds texts with an explicit provider and model.
// The returned embeddings always match the input in length and order; a
// failed item holds a zero vector and contributes an entry to Errors.
func (g *Generator) GenerateEmbeddingsWith(ctx context.Context, texts []string, providerName, model string) models.EmbeddingResult {
	result := models.EmbeddingResult{
		Embeddings: [][]float32{},
		Model:      model,
		Provider:   providerName,
	}
	if len(texts) == 0 {
		return result
	}

	log.Printf("generating embeddings for %d texts using %s/%s", len(texts), providerName, model)

	embeddings, errs, provErr := g.generateWithProvider(ctx, texts, providerName, model)
	if provErr != nil {
		log.Printf("provider embedding failed: %v", provErr)
		errs = append(errs, fmt.Sprintf("provider embedding failed: %v", provErr))
		embeddings = nil
	}

	if embeddings == nil && g.local != nil {
		log.Printf("falling back to local embedding model %s", g.local.Name())
		local, err := g.generateLocal(ctx, texts)
		if err != nil {
			errs = append(errs, fmt.Sprintf("local embedding failed: %v", err))
		} else {
			embeddings = local
			result.Provider = "local"
			result.Model = g.local.Name()
		}
	}

	if embeddings == nil {
		dim := g.GetEmbeddingDimensions(providerName, model)
		embeddings = make([][]float32, len(texts))
		for i := range embeddings {
			embeddings[i] = make([]float32, dim)
		}
	}

	result.Embeddings = embeddings
	result.Errors = errs
	return result
}

// generateWithProvider embeds texts batch by batch. Batches run strictly
// sequentially to bound rate-limit exposure; items within a batch fan out
// concurrently and land in index-addressed slots, so output order matches
// input order regardless of completion order. A non-nil error means the
// provider path produced nothing at all.
func (g *Generator) generateWithProvider(ctx context.Context, texts []string, providerName, model string) ([][]float32, []string, error) {
	provider, err := g.registry.Get(providerName)
	if err != nil {
		return nil, nil, err
	}

	dim := provider.Dimensions(model)
	embeddings := make([][]float32, len(texts))
	var errs []string

	for start := 0; start < len(texts); start += g.config.BatchSize {
		end := start + g.config.BatchSize
		if end > len(texts) {
			end = len(texts)
		}

		slotErrs := make([]string, end-start)
		var eg errgroup.Group

		for i := start; i < end; i++ {
			i := i
			eg.Go(func() error {
				if g.limiter != nil {
					if err := g.limiter.Wait(ctx); err != nil {
						slotErrs[i-start] = err.Error()
						return nil
					}
				}

				callCtx, cancel := context.WithTimeout(ctx, g.config.CallTimeout)
				defer cancel()

				vec, err := provider.Embed(callCtx, texts[i], model)
				if err != nil {
					slotErrs[i-start] = err.Error()
					return nil
				}
				embeddings[i] = vec
				return nil
			})
		}
		eg.Wait()

		for j, msg := range slotErrs {
			if msg != "" {
				errs = append(errs, fmt.Sprintf("index %d: %s", start+j, msg))
				embeddings[start+j] = make([]float32, dim)
			}
		}
	}

	return embeddings, errs, nil
}

// generateLocal re-embeds the whole input with the local model, in batches
// spread across a bounded worker pool so the CPU-bound encode cannot stall
// concurrent request handling.
func (g *Generator) generateLocal(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))

	var eg errgroup.Group
	eg.SetLimit(runtime.NumCPU())

	for start := 0; start < len(texts); start += g.config.BatchSize {
		start := start
		end := start + g.config.BatchSize
		if end > len(texts) {
			end = len(texts)
		}

		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			vectors, err := g.local.Encode(texts[start:end])
			if err != nil {
				return err
			}
			copy(out[start:end], vectors)
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// GenerateSingleEmbedding embeds one text, reporting ok=false when the
// item produced an error.
func (g *Generator) GenerateSingleEmbedding(ctx context.Context, text string) ([]float32, bool) {
	result := g.GenerateEmbeddings(ctx, []string{text})
	if len(result.Embeddings) == 1 && len(result.Errors) == 0 {
		return result.Embeddings[0], true
	}
	return nil, false
}

// GetEmbeddingDimensions reports the vector dimensionality for a
// (provider, model) pair, falling back to the configured default. Callers
// use it to size zero-vector placeholders.
func (g *Generator) GetEmbeddingDimensions(providerName, model string) int {
	if provider, err := g.registry.Get(providerName); err == nil {
		if dim := provider.Dimensions(model); dim > 0 {
			return dim
		}
	}
	return g.config.Dimensions
}

// ProviderTestResult reports the outcome of a provider/model probe.
type ProviderTestResult struct {
	Success      bool
	Dimensions   int
	ResponseTime time.Duration
	Provider     string
	Model        string
	Error        string
}

// TestProvider embeds a fixed probe text to verify a provider/model pair.
func (g *Generator) TestProvider(ctx context.Context, providerName, model string) ProviderTestResult {
	const probe = "This is a test text for embedding generation."

	start := time.Now()
	result := g.GenerateEmbeddingsWith(ctx, []string{probe}, providerName, model)
	elapsed := time.Since(start)

	if len(result.Errors) > 0 {
		return ProviderTestResult{
			Provider: providerName,
			Model:    model,
			Error:    result.Errors[0],
		}
	}

	return ProviderTestResult{
		Success:      true,
		Dimensions:   len(result.Embeddings[0]),
		ResponseTime: elapsed,
		Provider:     result.Provider,
		Model:        result.Model,
	}
}
