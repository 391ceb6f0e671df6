package app

import (
	"database/sql"
	"net/http"
	"time"

	"testbank/internal/app/observability"
	"testbank/internal/auth"
	"testbank/internal/ingest"
	"testbank/internal/processing"
	"testbank/internal/question"
	"testbank/internal/report"
	"testbank/internal/storage"
	"testbank/internal/tag"
	"testbank/internal/testset"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Deps holds the services the router exposes. Main builds them once and
// shares them with the callback consumer.
type Deps struct {
	DB        *sql.DB
	Questions *question.Service
	Records   *processing.Service
	TestSets  *testset.Service
	Tags      *tag.Service
	Reports   *report.Service
	Store     storage.BlobStore
	Extractor *ingest.ExtractionClient
}

func NewRouter(cfg Config, d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)

	collector := observability.NewCollector(d.DB)
	r.Use(collector.Middleware)

	limiter := NewIPRateLimiter(cfg.RateLimitPerMin, time.Minute)
	verifier := auth.NewTokenVerifier(cfg.ServiceTokenHash)

	questionHandler := question.NewHandler(d.Questions)
	recordHandler := processing.NewHandler(d.Records)
	testSetHandler := testset.NewHandler(d.TestSets)
	tagHandler := tag.NewHandler(d.Tags)
	reportHandler := report.NewHandler(d.Reports)
	uploadHandler := ingest.NewUploadHandler(d.Store, d.Records, d.Extractor)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	})
	r.Get("/metrics", collector.MetricsHandler)

	r.Route("/api/v1", func(api chi.Router) {
		api.Use(RateLimitMiddleware(limiter))
		api.Use(verifier.Middleware)

		api.Post("/groups", questionHandler.CreateGroup)
		api.Put("/groups/{id}", questionHandler.UpdateGroup)
		api.Get("/groups/{id}", questionHandler.GetGroup)
		api.Post("/groups/import", questionHandler.ImportExcel)
		api.Get("/groups/export", questionHandler.ExportExcel)

		api.Post("/uploads", uploadHandler.Upload)

		api.Get("/records", recordHandler.ListRecords)
		api.Get("/records/{id}", recordHandler.GetRecord)
		api.Post("/records/{id}/resolve", recordHandler.MarkResolved)
		api.Post("/records/{id}/cancel", recordHandler.Cancel)
		api.Delete("/records/{id}", recordHandler.Delete)

		api.Post("/test-sets", testSetHandler.Create)
		api.Get("/test-sets", testSetHandler.List)
		api.Get("/test-sets/{id}", testSetHandler.Get)
		api.Put("/test-sets/{id}", testSetHandler.Update)
		api.Delete("/test-sets/{id}", testSetHandler.Delete)
		api.Get("/test-sets/{id}/summary", reportHandler.Summary)

		api.Post("/tags", tagHandler.Create)
		api.Get("/tags", tagHandler.List)
		api.Get("/tags/{id}", tagHandler.Get)
		api.Delete("/tags/{id}", tagHandler.Delete)
	})

	return r
}
