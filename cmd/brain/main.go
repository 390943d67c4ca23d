// Command brain is the Murmur Brain CLI: local-first document ingestion,
// semantic search, and grounded chat over a local Ollama server.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	catalogollama "github.com/bruncanepa/murmur-brain/internal/adapters/driven/catalog/ollama"
	"github.com/bruncanepa/murmur-brain/internal/adapters/driven/config/file"
	embedollama "github.com/bruncanepa/murmur-brain/internal/adapters/driven/embedding/ollama"
	llmollama "github.com/bruncanepa/murmur-brain/internal/adapters/driven/llm/ollama"
	"github.com/bruncanepa/murmur-brain/internal/adapters/driven/storage/sqlite"
	"github.com/bruncanepa/murmur-brain/internal/adapters/driven/vectorindex/flat"
	"github.com/bruncanepa/murmur-brain/internal/adapters/driving/cli"
	"github.com/bruncanepa/murmur-brain/internal/chunker"
	"github.com/bruncanepa/murmur-brain/internal/core/services"
	"github.com/bruncanepa/murmur-brain/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	settings, err := file.LoadSettings(os.Getenv("BRAIN_CONFIG"))
	if err != nil {
		return fmt.Errorf("loading settings: %w", err)
	}
	applyEnvOverrides(&settings)

	dataDir := settings.DataDir
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, file.DefaultDirName, "data")
	}

	store, err := sqlite.NewStore(dataDir)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer store.Close()

	index, err := flat.New(filepath.Join(dataDir, "index.gob"), settings.Ollama.EmbedDimension)
	if err != nil {
		return fmt.Errorf("creating index: %w", err)
	}
	defer index.Close()

	embedder := embedollama.NewEmbeddingService(embedollama.Config{
		BaseURL:    settings.Ollama.BaseURL,
		Model:      settings.Ollama.EmbedModel,
		Dimensions: settings.Ollama.EmbedDimension,
	})
	llm := llmollama.NewLLMService(llmollama.LLMConfig{
		BaseURL: settings.Ollama.BaseURL,
		Model:   settings.Ollama.ChatModel,
	})
	defer llm.Close()
	catalog := catalogollama.NewModelCatalog(catalogollama.Config{
		BaseURL: settings.Ollama.BaseURL,
	})

	splitter := chunker.New(
		chunker.WithChunkSize(settings.Ingest.ChunkSize),
		chunker.WithOverlap(settings.Ingest.ChunkOverlap),
	)

	docStore := store.DocumentStore()

	documents := services.NewDocumentService(docStore, embedder, index, splitter)
	documents.SetEmbedRate(settings.Retrieval.EmbedCallsPerSecond)

	search := services.NewSearchService(docStore, index, embedder)

	ranker := services.NewContextRanker(settings.Retrieval.QualityFloor)
	chat := services.NewChatService(store.ChatStore(), search, ranker, llm)
	chat.SetThresholdPolicy(services.ThresholdPolicy{
		ShortWords:      settings.Retrieval.ShortQueryWords,
		MediumWords:     settings.Retrieval.MediumQueryWords,
		ShortThreshold:  settings.Retrieval.ShortThreshold,
		MediumThreshold: settings.Retrieval.MediumThreshold,
		LongThreshold:   settings.Retrieval.LongThreshold,
	})
	chat.SetContextLimit(settings.Retrieval.ChatContextChunks)

	// Recover the index from its snapshot, rebuilding if it diverged
	// from the database.
	if err := documents.EnsureIndex(context.Background()); err != nil {
		logger.Warn("index recovery: %v", err)
	}

	cli.SetVersion(version)
	cli.SetServices(cli.Services{
		Document: documents,
		Search:   search,
		Chat:     chat,
		Catalog:  catalog,
	})
	return cli.Execute()
}

// applyEnvOverrides lets environment variables take precedence over the
// config file, matching 12-factor deployment habits.
func applyEnvOverrides(settings *file.Settings) {
	if v := os.Getenv("BRAIN_DATA_DIR"); v != "" {
		settings.DataDir = v
	}
	if v := os.Getenv("OLLAMA_HOST"); v != "" {
		settings.Ollama.BaseURL = v
	}
	if v := os.Getenv("BRAIN_EMBED_MODEL"); v != "" {
		settings.Ollama.EmbedModel = v
	}
	if v := os.Getenv("BRAIN_CHAT_MODEL"); v != "" {
		settings.Ollama.ChatModel = v
	}
}
