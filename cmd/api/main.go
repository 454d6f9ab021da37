package main

import (
	"context"
	"net/http"
	"path/filepath"
	"time"

	"bookwyrm/internal/agent"
	"bookwyrm/internal/api"
	"bookwyrm/internal/catalog"
	"bookwyrm/internal/config"
	"bookwyrm/internal/index"
	"bookwyrm/internal/library"
	"bookwyrm/internal/logger"
	"bookwyrm/internal/metadata"
	"bookwyrm/internal/providers"
	"bookwyrm/internal/storage"
	"bookwyrm/internal/thumbnail"
	"bookwyrm/internal/vector"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load(".env")
	cfg := config.Load()
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	db, err := storage.NewDB(ctx, cfg.DatabaseURL())
	cancel()
	if err != nil {
		log.Fatal("database connection failed", "error", err)
	}
	defer db.Close()

	chunks := storage.NewChunkStore(db, cfg.EmbedDim)
	if err := chunks.EnsureSchema(context.Background()); err != nil {
		log.Fatal("chunk store schema setup failed", "error", err)
	}

	extractor := metadata.NewExtractor(log)
	thumbs := thumbnail.NewGenerator(filepath.Join(cfg.LibraryPath, "thumbnails"), log)
	lib, err := library.NewStore(cfg.LibraryPath, extractor, thumbs, log)
	if err != nil {
		log.Fatal("library setup failed", "path", cfg.LibraryPath, "error", err)
	}

	llm, embedder := buildProviders(cfg)
	indexer := index.NewIndexer(chunks, embedder, cfg.ChunkSize, cfg.ChunkOverlap, cfg.EmbedDim, log)
	searcher := vector.NewSearcher(db.Pool)
	agents := agent.NewRegistry(llm, embedder, searcher, cfg.RetrievalDocs, cfg.EmbedDim, log)
	reconciler := catalog.NewReconciler(lib, chunks)

	if cfg.ForceReload {
		log.Info("force reload requested, reindexing library")
		if err := indexer.ReindexAll(context.Background(), lib); err != nil {
			log.Error("reindex completed with failures", "error", err)
		}
	}

	s := api.NewServer(cfg, lib, reconciler, indexer, chunks, agents, log)
	log.Info("bookwyrm api listening",
		"addr", cfg.APIAddr,
		"library", cfg.LibraryPath,
		"llm_provider", cfg.LLMProvider,
		"embed_provider", cfg.EmbedProvider,
	)
	if err := http.ListenAndServe(cfg.APIAddr, s.Routes()); err != nil {
		log.Fatal("server stopped", "error", err)
	}
}

func buildProviders(cfg config.Config) (providers.LLMProvider, providers.EmbeddingProvider) {
	mock := providers.NewMockProvider(cfg.EmbedDim)

	var llm providers.LLMProvider = mock
	if cfg.LLMProvider == "ollama" {
		llm = providers.NewOllamaChatProvider(cfg.OllamaHost, cfg.ChatModel)
	}
	var embedder providers.EmbeddingProvider = mock
	if cfg.EmbedProvider == "ollama" {
		embedder = providers.NewOllamaEmbeddingProvider(cfg.OllamaHost, cfg.EmbeddingModel)
	}
	return llm, embedder
}
