package api

import (
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/noema-ai/noema/internal/api/handlers"
	mw "github.com/noema-ai/noema/internal/api/middleware"
	"github.com/noema-ai/noema/internal/cognition"
	"github.com/noema-ai/noema/internal/config"
	"github.com/noema-ai/noema/internal/domain"
	"github.com/noema-ai/noema/internal/embedding"
	"github.com/noema-ai/noema/internal/service"
	"github.com/noema-ai/noema/internal/similarity"
	"github.com/noema-ai/noema/internal/store"
	"go.uber.org/zap"
)

// App holds the router and services assembled at startup. Components are
// wired explicitly; configuration is read once and passed in.
type App struct {
	Router       *chi.Mux
	Ingestion    *service.IngestionService
	startTime    time.Time
	requestCount atomic.Int64
	errorCount   atomic.Int64
}

func NewApp(db *pgxpool.Pool, logger *zap.Logger) *App {
	// Stores
	memoryStore := store.NewMemoryStore(db)
	beliefStore := store.NewBeliefStore(db)
	relationshipStore := store.NewRelationshipStore(db)
	conflictStore := store.NewConflictStore(db)

	// Config
	brcaCfg := config.BRCAFromEnv()
	simCfg := config.SimilarityFromEnv()
	ingestCfg := config.IngestionFromEnv()
	timeouts := config.TimeoutsFromEnv()

	// External clients via provider factories
	var embedder domain.EmbeddingClient
	if config.EmbeddingEnabled() {
		var err error
		embedder, err = embedding.NewClient(config.EmbeddingProvider(), config.OpenAIAPIKey(), config.EmbeddingDimension())
		if err != nil {
			logger.Warn("embedding client initialization failed, falling back to deterministic vectors",
				zap.String("provider", config.EmbeddingProvider()), zap.Error(err))
			embedder = embedding.NewDeterministicClient(config.EmbeddingDimension())
		} else {
			logger.Info("embedding client initialized", zap.String("provider", config.EmbeddingProvider()))
		}
	}

	categorizer, extractor, err := cognition.NewClients(config.CognitionProvider(), config.OpenAIAPIKey())
	if err != nil {
		logger.Warn("cognition client initialization failed, falling back to pattern matching",
			zap.String("provider", config.CognitionProvider()), zap.Error(err))
		categorizer = cognition.NewPatternCategorizer()
		extractor = cognition.NewPatternExtractor()
	} else {
		logger.Info("cognition client initialized", zap.String("provider", config.CognitionProvider()))
	}

	// Similarity strategies, one per store
	memorySearch := similarity.New(memoryStore, embedder, simCfg, logger)
	beliefSearch := similarity.New(beliefStore, embedder, simCfg, logger)

	// Services
	graphSvc := service.NewGraphService(beliefStore, relationshipStore, logger)
	brcaSvc := service.NewBRCAService(beliefStore, conflictStore, extractor, embedder, beliefSearch, graphSvc, brcaCfg, timeouts, logger)
	ingestionSvc := service.NewIngestionService(memoryStore, categorizer, embedder, brcaSvc, ingestCfg, timeouts, logger)
	memorySvc := service.NewMemoryService(memoryStore, memorySearch, logger)
	beliefSvc := service.NewBeliefService(beliefStore, conflictStore, beliefSearch, logger)

	app := &App{Ingestion: ingestionSvc, startTime: time.Now()}

	// Handlers
	ingestHandler := handlers.NewIngestHandler(ingestionSvc)
	memoryHandler := handlers.NewMemoryHandler(memorySvc)
	beliefHandler := handlers.NewBeliefHandler(beliefSvc)
	graphHandler := handlers.NewGraphHandler(graphSvc)
	healthHandler := handlers.NewHealthHandler(ingestionSvc, app.serverStats)

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(mw.RequestID)
	r.Use(mw.Logging(logger))
	r.Use(mw.NewMetricsCollector(&app.requestCount, &app.errorCount).Middleware)
	r.Use(mw.RateLimit(config.RateLimitRPS(), config.RateLimitBurst()))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", healthHandler.Health)
	r.Get("/stats", healthHandler.Stats)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/ingest", ingestHandler.Ingest)
		r.Post("/ingest/dry-run", ingestHandler.DryRun)
		r.Post("/ingest/validate", ingestHandler.Validate)

		r.Get("/memories/{id}", memoryHandler.Get)
		r.Delete("/memories/{id}", memoryHandler.Delete)
		r.Post("/memories/search", memoryHandler.Search)

		r.Get("/beliefs/{id}", beliefHandler.Get)
		r.Post("/beliefs/search", beliefHandler.Search)
		r.Get("/beliefs/{id}/deprecation-chain", graphHandler.DeprecationChain)
		r.Get("/beliefs/{id}/related", graphHandler.Related)

		r.Get("/agents/{agentID}/memories", memoryHandler.ListByAgent)
		r.Get("/agents/{agentID}/beliefs", beliefHandler.ListByAgent)
		r.Get("/agents/{agentID}/conflicts", beliefHandler.ListConflicts)
		r.Get("/agents/{agentID}/graph/clusters", graphHandler.Clusters)
		r.Get("/agents/{agentID}/graph/deprecated", graphHandler.Deprecated)
		r.Get("/agents/{agentID}/graph/validate", graphHandler.Validate)

		r.Post("/conflicts/{id}/resolve", beliefHandler.ResolveConflict)
		r.Post("/relationships/{id}/deactivate", graphHandler.DeactivateEdge)
	})

	app.Router = r
	return app
}

// serverStats snapshots the process-level request counters.
func (a *App) serverStats() handlers.ServerStats {
	return handlers.ServerStats{
		UptimeSeconds: int64(time.Since(a.startTime).Seconds()),
		Requests:      a.requestCount.Load(),
		Errors:        a.errorCount.Load(),
	}
}
