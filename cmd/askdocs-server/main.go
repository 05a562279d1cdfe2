// Package main provides the askdocs indexing and search server.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/raphaelgruber/askdocs-go/internal/config"
	"github.com/raphaelgruber/askdocs-go/internal/crawler"
	"github.com/raphaelgruber/askdocs-go/internal/db"
	"github.com/raphaelgruber/askdocs-go/internal/embedding"
	"github.com/raphaelgruber/askdocs-go/internal/metrics"
	"github.com/raphaelgruber/askdocs-go/internal/notify"
	"github.com/raphaelgruber/askdocs-go/internal/server"
	"github.com/raphaelgruber/askdocs-go/internal/service"
	"github.com/raphaelgruber/askdocs-go/internal/vector"
)

const version = "0.1.0"

func main() {
	wipeDB := flag.Bool("wipe", false, "wipe all registry data on startup (testing only)")
	flag.Parse()

	cfg := config.Load()

	// Dual output: stderr text + file JSON
	logger, cleanup := config.NewLogger(cfg.LogFile, cfg.LogLevel)
	defer cleanup()

	logger.Info("askdocs-server starting",
		"version", version,
		"addr", cfg.ServerAddr,
		"surrealdb_url", cfg.SurrealDBURL,
		"qdrant_host", cfg.QdrantHost,
		"embedding_provider", cfg.EmbeddingProvider,
		"embedding_model", cfg.EmbeddingModel,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Registry (SurrealDB)
	dbClient, err := db.NewClient(ctx, db.Config{
		URL:       cfg.SurrealDBURL,
		Namespace: cfg.SurrealDBNamespace,
		Database:  cfg.SurrealDBDatabase,
		Username:  cfg.SurrealDBUser,
		Password:  cfg.SurrealDBPass,
	}, logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func() {
		logger.Info("closing database connection")
		_ = dbClient.Close(context.Background())
	}()

	if err := dbClient.InitSchema(ctx); err != nil {
		logger.Error("failed to initialize database schema", "error", err)
		os.Exit(1)
	}

	if *wipeDB || os.Getenv("ASKDOCS_WIPE_DB") == "true" {
		if err := dbClient.WipeData(ctx); err != nil {
			logger.Error("failed to wipe database", "error", err)
			os.Exit(1)
		}
		logger.Warn("registry data wiped")
	}

	// Vector index (Qdrant)
	store, err := vector.New(ctx, vector.Config{
		Host:       cfg.QdrantHost,
		Port:       cfg.QdrantPort,
		APIKey:     cfg.QdrantAPIKey,
		Collection: cfg.QdrantCollection,
		Dimension:  cfg.EmbeddingDimension,
	}, logger)
	if err != nil {
		logger.Error("failed to connect to vector store", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	// Embedding backend
	embedder, err := embedding.New(ctx, embedding.Config{
		Provider:          embedding.ProviderType(cfg.EmbeddingProvider),
		Model:             cfg.EmbeddingModel,
		ExpectedDimension: cfg.EmbeddingDimension,
		OpenAIAPIKey:      cfg.OpenAIAPIKey,
		OllamaHost:        cfg.OllamaHost,
		BedrockRegion:     cfg.BedrockRegion,
		VoyageAPIKey:      cfg.VoyageAPIKey,
	})
	if err != nil {
		logger.Error("failed to create embedder", "error", err)
		os.Exit(1)
	}
	logger.Info("embedder initialized", "model", embedder.Model(), "dimension", embedder.Dimension())

	// Crawler
	httpClient := &http.Client{Timeout: 30 * time.Second}
	discoverer := crawler.NewDiscoverer(httpClient, logger, cfg.MaxPages, cfg.MaxDepth)
	fetcher := crawler.NewFetcher(httpClient, logger, cfg.FirecrawlBaseURL, cfg.FirecrawlAPIKeys, cfg.CrawlRPS)

	// Progress fan-out: structured logs, WebSocket clients, optional Redis
	hub := notify.NewHub(logger)
	notifiers := notify.Multi{notify.NewSlogNotifier(logger), hub}
	if cfg.RedisAddr != "" {
		rn, err := notify.NewRedisNotifier(ctx, notify.RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}, logger)
		if err != nil {
			logger.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		defer rn.Close()
		notifiers = append(notifiers, rn)
	}

	collector := metrics.NewCollector()
	jobs := service.NewJobManager(dbClient, notifiers)
	crawlSvc := service.NewCrawlService(dbClient, jobs, discoverer, fetcher, store, embedder, collector, cfg)
	retriever := service.NewRetriever(store, embedder, collector, cfg.Search)

	// Jobs interrupted by the previous shutdown cannot be resumed; mark
	// them failed so their docs become resubmittable.
	if err := jobs.FailInterruptedJobs(ctx); err != nil {
		logger.Error("failed to clean up interrupted jobs", "error", err)
		os.Exit(1)
	}

	srv := server.New(cfg.ServerAddr, crawlSvc, retriever, dbClient, store, hub, collector, logger)

	if err := srv.Run(ctx); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}

	logger.Info("shutdown complete")
}
