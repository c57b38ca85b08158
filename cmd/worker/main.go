package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/hibiken/asynq"

	"github.com/docquery/docquery/internal/config"
	"github.com/docquery/docquery/internal/database"
	"github.com/docquery/docquery/internal/embedding"
	"github.com/docquery/docquery/internal/ingest"
	"github.com/docquery/docquery/internal/llm"
	"github.com/docquery/docquery/internal/queue"
	"github.com/docquery/docquery/internal/queue/workers"
	"github.com/docquery/docquery/internal/storage"
	"github.com/docquery/docquery/internal/vectorstore"
	"github.com/docquery/docquery/pkg/chunker"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	db, err := database.NewPool(ctx, cfg.Database, nil)
	if err != nil {
		slog.Error("database unavailable", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := database.RunMigrations(ctx, db, cfg.Database.MigrationsPath); err != nil {
		slog.Error("migrations failed", "error", err)
		os.Exit(1)
	}

	gateway := llm.NewGateway(cfg.LLM)
	objects := storage.NewSupabaseStorage(cfg.Storage.SupabaseURL, cfg.Storage.SupabaseKey)
	store := vectorstore.NewPgVectorStore(db)
	embedder := embedding.NewService(gateway, cfg.LLM.EmbeddingModel, cfg.LLM.EmbeddingDim)
	ingestSvc := ingest.NewService(objects, embedder, store, chunker.ChunkOptions{
		ChunkSize:    cfg.Ingest.ChunkSize,
		ChunkOverlap: cfg.Ingest.ChunkOverlap,
	})

	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		},
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
				"low":      1,
			},
		},
	)

	mux := asynq.NewServeMux()
	ingestWorker := workers.NewIngestWorker(ingestSvc)
	mux.Handle(queue.TypeDocumentIngest, asynq.HandlerFunc(ingestWorker.ProcessTask))

	slog.Info("starting worker", "concurrency", 10)
	if err := srv.Run(mux); err != nil {
		slog.Error("worker error", "error", err)
		os.Exit(1)
	}
}
