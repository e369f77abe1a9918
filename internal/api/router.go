package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/rflorenc/shopify-metadata-migrator/internal/logging"
	"github.com/rflorenc/shopify-metadata-migrator/internal/models"
	"github.com/rflorenc/shopify-metadata-migrator/internal/platform"
)

// Server holds shared state for all API handlers.
type Server struct {
	Stores   *models.StoreRegistry
	Jobs     *models.JobStore
	Previews *PreviewStore
	Metrics  *Collector

	Logger   *zap.SugaredLogger
	LogLevel logging.Level

	// NewPlatform builds the Admin API client for a store. Defaults to
	// platform.NewPlatform with ClientOptions.
	NewPlatform   func(store *models.Store) platform.Platform
	ClientOptions []platform.ClientOption
}

// NewServer creates a server with empty registries.
func NewServer(logger *zap.SugaredLogger, level logging.Level, opts ...platform.ClientOption) *Server {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Server{
		Stores:        models.NewStoreRegistry(),
		Jobs:          models.NewJobStore(),
		Previews:      NewPreviewStore(),
		Metrics:       NewMetricsCollector(),
		Logger:        logger,
		LogLevel:      level,
		ClientOptions: opts,
	}
}

func (s *Server) platformFor(store *models.Store, logger *zap.SugaredLogger) platform.Platform {
	if s.NewPlatform != nil {
		return s.NewPlatform(store)
	}
	opts := append([]platform.ClientOption{}, s.ClientOptions...)
	opts = append(opts, platform.WithLogger(logger), platform.WithTrace(s.LogLevel.TraceGraphQL()))
	return platform.NewPlatform(store, opts...)
}

// NewRouter builds the chi router with all API routes and the metrics endpoint.
func NewRouter(s *Server) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(corsMiddleware)

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Stores
		r.Post("/stores", s.CreateStore)
		r.Get("/stores", s.ListStores)
		r.Delete("/stores/{id}", s.DeleteStore)
		r.Post("/stores/{id}/test", s.TestStore)

		// Definition browsing
		r.Get("/stores/{id}/definitions/metaobjects", s.ListMetaobjectDefinitions)
		r.Get("/stores/{id}/definitions/metafields/{ownerType}", s.ListMetafieldDefinitions)

		// Migration
		r.Post("/migrate/preview", s.MigrationPreviewHandler)
		r.Get("/migrate/preview/{jobId}", s.GetMigrationPreview)
		r.Post("/migrate/run", s.MigrationRunHandler)

		// Jobs
		r.Get("/jobs", s.ListJobs)
		r.Get("/jobs/{id}", s.GetJob)
		r.Post("/jobs/{id}/cancel", s.CancelJob)
	})

	// WebSocket (outside /api to avoid JSON content-type assumptions)
	r.Get("/ws/jobs/{id}/logs", s.StreamJobLogs)

	registry := prometheus.NewRegistry()
	registry.MustRegister(s.Metrics)
	r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	return r
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
