// Package api exposes the pipeline stages over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/sells-group/leadgen-cli/internal/discovery"
	"github.com/sells-group/leadgen-cli/internal/extraction"
	"github.com/sells-group/leadgen-cli/internal/model"
	"github.com/sells-group/leadgen-cli/internal/store"
	"github.com/sells-group/leadgen-cli/internal/synthesis"
)

// Discoverer runs discovery batches.
type Discoverer interface {
	Search(ctx context.Context, req discovery.Request) (*discovery.Result, error)
	Run(ctx context.Context, req discovery.Request) (*discovery.Result, error)
}

// ContactExtractor runs extraction batches.
type ContactExtractor interface {
	Run(ctx context.Context, r model.Range) (*extraction.Summary, error)
}

// EmailSynthesizer runs synthesis batches.
type EmailSynthesizer interface {
	Run(ctx context.Context, r model.Range) (*synthesis.Summary, error)
}

// LedgerInfo reports the ledger size and where to view it.
type LedgerInfo interface {
	Count(ctx context.Context) (int, error)
}

// Deps are the collaborators a Server dispatches to. Runs may be nil.
type Deps struct {
	Ledger     LedgerInfo
	SheetURL   string
	Discovery  Discoverer
	Extraction ContactExtractor
	Synthesis  EmailSynthesizer
	Runs       store.Store
}

// Server routes HTTP requests to the pipeline stages.
type Server struct {
	deps    Deps
	origins []string
	log     *zap.Logger
}

// NewServer creates a Server. An empty origins list allows any origin.
func NewServer(deps Deps, origins []string) *Server {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return &Server{
		deps:    deps,
		origins: origins,
		log:     zap.L().With(zap.String("component", "api")),
	}
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Get("/sheet-count", s.handleSheetCount)
		r.Post("/search", s.handleSearch)
		r.Post("/extract-contacts", s.handleExtract)
		r.Post("/generate-emails", s.handleGenerate)
		r.Get("/runs", s.handleListRuns)
		r.Get("/runs/{id}", s.handleGetRun)
	})
	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
