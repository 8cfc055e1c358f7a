package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/mux"
	"github.com/serisow/lecahier/config"
	"github.com/serisow/lecahier/db"
	"github.com/serisow/lecahier/logging"
	"github.com/serisow/lecahier/pipeline"
	"github.com/serisow/lecahier/retrieval"
	"github.com/serisow/lecahier/server"
	"github.com/serisow/lecahier/services/embedding_service"
	"github.com/serisow/lecahier/services/enrichment_service"
	"github.com/serisow/lecahier/services/extraction_service"
	"github.com/serisow/lecahier/services/llm_service"
	"github.com/serisow/lecahier/storage"

	"github.com/urfave/negroni"
)

func main() {
	cfg := config.Load()
	logger := initLogger(cfg)

	pool, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v", err)
	}
	defer pool.Close()

	ctx := context.Background()
	if err := db.Migrate(ctx, pool, cfg.EmbeddingDimensions); err != nil {
		log.Fatalf("Unable to run migrations: %v", err)
	}

	llm := llm_service.NewOpenAIService(logger)

	var embedder embedding_service.EmbeddingService
	if cfg.OpenAIAPIKey != "" {
		embedder = embedding_service.NewOpenAIEmbeddingService(logger, cfg.OpenAIEmbeddingURL, cfg.OpenAIAPIKey, cfg.OpenAIEmbeddingModel)
	} else {
		logger.Warn("No OpenAI API key configured, vector search disabled")
	}

	enricher := enrichment_service.NewContentEnricher(llm, enrichment_service.Config{
		APIURL:          cfg.OpenAIChatURL,
		APIKey:          cfg.OpenAIAPIKey,
		Model:           cfg.OpenAIModel,
		MaxSummaryWords: cfg.MaxSummaryWords,
		NumQAPairs:      cfg.NumQAPairs,
		MaxKeyPoints:    cfg.MaxKeyPoints,
		MaxTopics:       cfg.MaxTopics,
		InputLimit:      cfg.EnrichmentInputLimit,
		Timeout:         cfg.LLMTimeout,
	}, logger)

	extractor := extraction_service.NewDocumentExtractor(logger)
	orchestrator := pipeline.NewOrchestrator(extractor, enricher, logger)

	store := storage.NewDocumentStore(pool, embedder, logger, cfg.ChunkSize)
	indexManager := storage.NewIndexManager(pool, logger)
	if embedder != nil {
		if err := indexManager.ReindexIfNeeded(ctx); err != nil {
			logger.Warn("Vector index maintenance failed",
				slog.String("error", err.Error()))
		}
	}

	engine := retrieval.NewEngine(store, embedder, indexManager, retrieval.Config{
		SimilarityThreshold: cfg.SimilarityThreshold,
		TopK:                cfg.TopK,
	}, logger)

	pipeline.StartRunStoreCleanup(cfg.RunRetention, cfg.RunCleanupInterval)
	defer pipeline.StopRunStoreCleanup()

	r := server.SetupRoutes(server.Dependencies{
		Orchestrator: orchestrator,
		Store:        store,
		Collection:   store,
		Engine:       engine,
		Logger:       logger,
		UploadDir:    os.TempDir(),
		Debug:        cfg.Environment != "production",
	})
	n := setupNegroni(r)

	if cfg.Environment == "production" {
		server.ServeProduction(n, server.Config{
			Domains:      cfg.Domains,
			CertCacheDir: cfg.CertCacheDir,
		})
	} else {
		srv := &http.Server{
			Addr:         ":" + cfg.HTTPPort,
			Handler:      n,
			IdleTimeout:  time.Minute,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 120 * time.Second,
		}
		server.ServeDevelopment(srv)
	}
}

func setupNegroni(r *mux.Router) *negroni.Negroni {
	n := negroni.New()

	// Add middleware here
	n.Use(negroni.NewRecovery())
	n.Use(negroni.NewLogger())

	n.UseHandler(r)
	return n
}

func initLogger(cfg config.Config) *slog.Logger {
	if cfg.Environment == "test" {
		return slog.New(slog.NewTextHandler(os.Stderr, nil))
	}

	handler, err := logging.NewDailyFileHandler("logs", &slog.HandlerOptions{Level: slog.LevelInfo})
	if err != nil {
		log.Printf("Falling back to stderr logging: %v", err)
		return slog.New(slog.NewTextHandler(os.Stderr, nil))
	}
	return slog.New(handler)
}
