package server

import (
	"net/http"
	"time"

	"github.com/cloo-solutions/docsrag/internal/api/handlers"
	"github.com/cloo-solutions/docsrag/internal/api/middleware"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

const (
	maxBodyBytes          int64 = 1 << 20
	defaultRequestTimeout       = 120 * time.Second
)

type RouterConfig struct {
	// AuthValidator guards the query endpoints. Nil leaves them open.
	AuthValidator       middleware.AuthValidator
	RequestTimeout      time.Duration
	HealthHandler       *handlers.HealthHandler
	SearchHandler       *handlers.SearchHandler
	RAGHandler          *handlers.RAGHandler
	ConversationHandler *handlers.ConversationHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}

	r.Use(middleware.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/", cfg.HealthHandler.Root)
	r.Get("/health", cfg.HealthHandler.Health)

	r.Group(func(r chi.Router) {
		if cfg.AuthValidator != nil {
			r.Use(middleware.APIKeyAuth(cfg.AuthValidator))
		}
		r.Use(chimw.Timeout(timeout))

		r.Get("/search", cfg.SearchHandler.Get)
		r.Post("/search", cfg.SearchHandler.Post)
		r.Post("/rag", cfg.RAGHandler.Answer)

		r.Route("/conversations", func(r chi.Router) {
			r.Get("/{id}", cfg.ConversationHandler.Get)
			r.Delete("/{id}", cfg.ConversationHandler.Delete)
		})
	})

	return r
}
