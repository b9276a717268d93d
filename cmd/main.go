package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"

	"github.com/docuchat/docuchat/internal/models"
	"github.com/docuchat/docuchat/internal/types"
	"github.com/docuchat/docuchat/pkg/chunker"
	cfgPkg "github.com/docuchat/docuchat/pkg/config"
	"github.com/docuchat/docuchat/pkg/embedder"
	"github.com/docuchat/docuchat/pkg/ingest"
	"github.com/docuchat/docuchat/pkg/llm"
	"github.com/docuchat/docuchat/pkg/processor"
	"github.com/docuchat/docuchat/pkg/retriever"
	"github.com/docuchat/docuchat/pkg/store"
	"github.com/docuchat/docuchat/server"
)

type options struct {
	configPath string
	profile    string
	serve      bool
	hybrid     bool
	testOnly   bool
}

func main() {
	opts, config := parseFlags()

	if errs := config.Validate(); len(errs) > 0 {
		for _, e := range errs {
			color.Red("config: %v", e)
		}
		os.Exit(1)
	}

	if err := run(opts, config); err != nil {
		log.Fatal(err)
	}
}

func parseFlags() (options, *cfgPkg.Config) {
	var opts options

	var ollamaURL, dbURL, model, embedModel string
	var stream bool

	flag.StringVar(&opts.configPath, "config", "", "Path to config file")
	flag.StringVar(&opts.profile, "profile", "default", "Knowledge base profile")
	flag.BoolVar(&opts.serve, "serve", false, "Run the WebSocket server instead of the interactive loop")
	flag.BoolVar(&opts.hybrid, "hybrid", false, "Use hybrid (vector + keyword) retrieval for queries")
	flag.BoolVar(&opts.testOnly, "test-provider", false, "Probe the embedding provider and exit")
	flag.StringVar(&ollamaURL, "ollama-url", "", "Ollama server URL")
	flag.StringVar(&dbURL, "db-url", "", "PostgreSQL connection string")
	flag.StringVar(&model, "model", "", "Chat model to use")
	flag.StringVar(&embedModel, "embed-model", "", "Embedding model to use")
	flag.BoolVar(&stream, "stream", true, "Enable streaming responses")
	flag.Parse()

	config, err := cfgPkg.LoadConfig(opts.configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Command line flags win over file and environment values.
	if ollamaURL != "" {
		config.LLM.BaseURL = ollamaURL
	}
	if dbURL != "" {
		config.Database.URL = dbURL
	}
	if model != "" {
		config.LLM.Model = model
	}
	if embedModel != "" {
		config.Embedding.Model = embedModel
	}
	config.UI.Streaming = stream

	return opts, config
}

func getProgressBar(total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetDescription(color.BlueString(description)),
		progressbar.OptionSetItsString("items"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionFullWidth(),
		progressbar.OptionSetRenderBlankState(true),
	)
}

func getSpinner(description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(-1,
		progressbar.OptionSetDescription(color.CyanString(description)),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetWidth(20),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetRenderBlankState(true),
	)
}

func run(opts options, config *cfgPkg.Config) error {
	ctx := context.Background()

	registry := llm.NewRegistry()
	registry.Register(llm.NewOllamaProvider(llm.OllamaConfig{
		BaseURL: config.LLM.BaseURL,
	}))
	if config.LLM.APIKey != "" {
		openaiProvider, err := llm.NewOpenAIProvider(llm.OpenAIConfig{
			APIKey: config.LLM.APIKey,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize openai provider: %v", err)
		}
		registry.Register(openaiProvider)
	}

	var local types.LocalEmbedder
	if *config.Embedding.LocalFallback {
		local = embedder.NewHashingEmbedder(config.Embedding.LocalDim)
	}

	generator := embedder.NewGenerator(registry, local, embedder.GeneratorConfig{
		Provider:    config.Embedding.Provider,
		Model:       config.Embedding.Model,
		BatchSize:   config.Embedding.BatchSize,
		Dimensions:  config.Embedding.Dimensions,
		CallTimeout: time.Duration(config.Embedding.TimeoutSeconds) * time.Second,
		RateLimit:   config.Embedding.RateLimit,
	})

	if opts.testOnly {
		return testProvider(ctx, generator, config)
	}

	vectorStore, err := buildStore(ctx, config)
	if err != nil {
		return fmt.Errorf("failed to initialize vector store: %v", err)
	}
	defer vectorStore.Close()

	if err := vectorStore.EnsureProfile(ctx, opts.profile, opts.profile); err != nil {
		return fmt.Errorf("failed to ensure profile: %v", err)
	}

	textChunker := chunker.NewWithConfig(chunker.ChunkerConfig{
		ChunkSize:          config.Chunker.ChunkSize,
		ChunkOverlap:       config.Chunker.ChunkOverlap,
		MinChunkSize:       config.Chunker.MinChunkSize,
		MaxChunkSize:       config.Chunker.MaxChunkSize,
		PreserveParagraphs: *config.Chunker.PreserveParagraphs,
		PreserveSentences:  *config.Chunker.PreserveSentences,
	})

	proc := processor.New(textChunker)
	ingestor := ingest.New(proc, generator, vectorStore)
	vectorRetriever := retriever.NewVectorRetriever(vectorStore, generator)
	hybridRetriever := retriever.NewHybridRetriever(vectorRetriever, vectorStore)

	provider, err := registry.Get(config.LLM.Provider)
	if err != nil {
		return fmt.Errorf("failed to resolve chat provider: %v", err)
	}

	chatEngine, err := llm.NewChatEngine(provider, llm.ChatConfig{
		Model:       config.LLM.Model,
		Temperature: config.LLM.Temperature,
		MaxTokens:   config.LLM.MaxTokens,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize chat engine: %v", err)
	}

	if opts.serve {
		ws := server.NewWSServer(server.Config{
			Addr:                config.Server.Addr,
			DefaultProfile:      opts.profile,
			Limit:               config.Retrieval.Limit,
			SimilarityThreshold: config.Retrieval.SimilarityThreshold,
			VectorWeight:        config.Retrieval.VectorWeight,
			KeywordWeight:       config.Retrieval.KeywordWeight,
			Streaming:           config.UI.Streaming,
		}, chatEngine, vectorRetriever, hybridRetriever, ingestor, vectorStore)
		return ws.Run()
	}

	if files := flag.Args(); len(files) > 0 {
		if err := ingestFiles(ctx, ingestor, files, opts.profile); err != nil {
			return err
		}
	}

	return chatLoop(ctx, opts, config, chatEngine, vectorRetriever, hybridRetriever)
}

func buildStore(ctx context.Context, config *cfgPkg.Config) (types.VectorStore, error) {
	if config.Database.URL == "" {
		color.Yellow("No database configured, using in-memory store (nothing will persist)")
		return store.NewMemoryStore(), nil
	}
	return store.NewWithConfig(ctx, store.VectorStoreConfig{
		ConnString:  config.Database.URL,
		VectorDim:   config.Database.VectorDim,
		SearchLimit: config.Retrieval.Limit,
	})
}

func testProvider(ctx context.Context, generator *embedder.Generator, config *cfgPkg.Config) error {
	spinner := getSpinner("🔌 Probing embedding provider...")
	result := generator.TestProvider(ctx, config.Embedding.Provider, config.Embedding.Model)
	spinner.Finish()
	fmt.Print("\r")

	if !result.Success {
		color.Red("✗ %s/%s unavailable: %s", result.Provider, result.Model, result.Error)
		os.Exit(1)
	}

	color.Green("✓ %s/%s responding, %d dimensions in %s",
		result.Provider, result.Model, result.Dimensions, result.ResponseTime)
	return nil
}

func ingestFiles(ctx context.Context, ingestor *ingest.Ingestor, files []string, profileID string) error {
	color.Blue("\nIngesting %d file(s) into profile %q\n", len(files), profileID)

	bar := getProgressBar(len(files), "📄 Ingesting documents...")
	startTime := time.Now()

	var totalChunks, totalEmbedded int
	for i, file := range files {
		result, err := ingestor.IngestFile(ctx, file, detectMimeType(file), profileID, nil)
		if err != nil {
			return fmt.Errorf("failed to ingest %s: %v", file, err)
		}

		totalChunks += result.ChunkCount
		totalEmbedded += result.EmbeddedChunks
		for _, msg := range result.Errors {
			color.Yellow("\n%s: %s", filepath.Base(file), msg)
		}

		bar.Add(1)
		elapsed := time.Since(startTime).Seconds()
		rate := float64(i+1) / elapsed
		bar.Describe(color.BlueString("📄 Ingesting documents... (%.1f docs/sec)", rate))
	}

	color.Green("\n✓ Stored %d chunks (%d embedded)\n", totalChunks, totalEmbedded)
	return nil
}

func chatLoop(ctx context.Context, opts options, config *cfgPkg.Config, chatEngine *llm.ChatEngine, vector *retriever.VectorRetriever, hybrid *retriever.HybridRetriever) error {
	color.Cyan("\nChat with your knowledge base (type 'exit' to quit)")

	scanner := bufio.NewScanner(os.Stdin)
	userPrompt := color.New(color.FgGreen).PrintfFunc()
	assistantPrompt := color.New(color.FgCyan).PrintfFunc()

	for {
		userPrompt("\nYou: ")
		if !scanner.Scan() {
			break
		}

		query := strings.TrimSpace(scanner.Text())
		if query == "" {
			continue
		}
		if strings.ToLower(query) == "exit" {
			break
		}

		querySpinner := getSpinner("🔍 Searching documentation...")
		chunks, err := retrieveContext(ctx, opts, config, vector, hybrid, query)
		querySpinner.Finish()
		fmt.Print("\r")

		if err != nil {
			color.Red("Error querying documents: %v\n", err)
			continue
		}

		if config.UI.Streaming {
			fmt.Print("\n")
			assistantPrompt("Assistant: ")

			err := chatEngine.ChatStream(ctx, query, chunks, func(chunk string) error {
				fmt.Print(chunk)
				return nil
			})
			if err != nil {
				color.Red("\nError: %v\n", err)
				continue
			}
			fmt.Print("\n")
		} else {
			responseSpinner := getSpinner("🤖 Generating response...")
			response, err := chatEngine.Chat(ctx, query, chunks)
			responseSpinner.Finish()
			fmt.Print("\r")

			if err != nil {
				color.Red("Error: %v\n", err)
				continue
			}
			assistantPrompt("Assistant: %s\n", response)
		}

		if sources := llm.FormatSources(chunks); sources != "" {
			color.HiBlack("\nSources: %s", sources)
		}
	}

	return nil
}

func retrieveContext(ctx context.Context, opts options, config *cfgPkg.Config, vector *retriever.VectorRetriever, hybrid *retriever.HybridRetriever, query string) ([]models.ContextChunk, error) {
	if !opts.hybrid {
		return vector.GetContextChunks(ctx, query, opts.profile, config.Retrieval.Limit, config.Retrieval.SimilarityThreshold)
	}

	response, err := hybrid.HybridSearch(ctx, query, opts.profile, config.Retrieval.Limit, config.Retrieval.VectorWeight, config.Retrieval.KeywordWeight)
	if err != nil {
		return nil, err
	}

	chunks := make([]models.ContextChunk, 0, len(response.Results))
	for _, result := range response.Results {
		chunk := models.ContextChunk{
			ID:         result.Chunk.ID,
			Content:    result.Chunk.Content,
			Similarity: result.SimilarityScore,
			DocumentID: result.Chunk.DocumentID,
			ChunkIndex: result.Chunk.Index,
			Metadata:   result.Metadata,
		}
		if filename, ok := result.Metadata["document_filename"].(string); ok {
			chunk.DocumentFilename = filename
		}
		chunks = append(chunks, chunk)
	}
	return chunks, nil
}

func detectMimeType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return processor.MimePDF
	case ".docx":
		return processor.MimeDOCX
	case ".md", ".markdown":
		return processor.MimeMarkdown
	default:
		return processor.MimePlain
	}
}
