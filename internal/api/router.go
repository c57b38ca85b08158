package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/docquery/docquery/internal/api/handlers"
	"github.com/docquery/docquery/internal/api/middleware"
	"github.com/docquery/docquery/internal/config"
	"github.com/docquery/docquery/internal/embedding"
	"github.com/docquery/docquery/internal/eval"
	"github.com/docquery/docquery/internal/llm"
	"github.com/docquery/docquery/internal/queue"
	"github.com/docquery/docquery/internal/rag"
	"github.com/docquery/docquery/internal/storage"
	"github.com/docquery/docquery/internal/vectorstore"
)

type Router struct {
	mux   *chi.Mux
	db    *pgxpool.Pool
	redis *redis.Client
	cfg   *config.Config
	llmGW llm.Gateway
}

func NewRouter(db *pgxpool.Pool, rdb *redis.Client, cfg *config.Config) *Router {
	return &Router{
		mux:   chi.NewRouter(),
		db:    db,
		redis: rdb,
		cfg:   cfg,
		llmGW: llm.NewGateway(cfg.LLM),
	}
}

func (rt *Router) Setup() http.Handler {
	r := rt.mux

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS([]string{"*"}))

	rl := middleware.NewRateLimiter(100, 200)
	r.Use(rl.Limit)

	health := handlers.NewHealthHandler(rt.db, rt.redis)
	r.Get("/healthz", health.Healthz)
	r.Get("/readyz", health.Readyz)

	objects := storage.NewSupabaseStorage(rt.cfg.Storage.SupabaseURL, rt.cfg.Storage.SupabaseKey)
	queueClient := queue.NewClient(rt.cfg.Redis)

	store := vectorstore.NewPgVectorStore(rt.db)
	embedder := embedding.NewService(rt.llmGW, rt.cfg.LLM.EmbeddingModel, rt.cfg.LLM.EmbeddingDim)
	retriever := rag.NewRetriever(store, embedder)
	generator := rag.NewGenerator(rt.llmGW, rt.cfg.Generation, rt.cfg.LLM.DefaultModel)
	scorer := eval.NewEvaluator(rt.llmGW, rt.cfg.LLM.DefaultModel)
	pipeline := rag.NewPipeline(retriever, generator, scorer, store)

	r.Route("/api/v1", func(r chi.Router) {
		queryH := handlers.NewQueryHandler(pipeline)
		r.Post("/query", queryH.Query)

		docH := handlers.NewDocumentHandler(store, objects, queueClient, rt.cfg.Storage.Bucket)
		r.Route("/documents", func(r chi.Router) {
			r.Post("/", docH.Upload)
			r.Get("/", docH.List)
			r.Get("/{id}", docH.Get)
			r.Get("/{id}/status", docH.Status)
		})
	})

	return r
}
