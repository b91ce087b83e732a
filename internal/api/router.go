// Package api exposes the question-answering service over HTTP.
package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Service and version reported by the index route.
const (
	ServiceName = "Member QA System"
	Version     = "1.0.0"
)

// Asker answers a single question.
type Asker interface {
	Ask(ctx context.Context, question string) (string, error)
}

// Options configures the router middleware.
type Options struct {
	// CORSOrigins lists allowed origins. Empty allows all.
	CORSOrigins []string
	// AllowCredentials lets browsers send cookies and auth headers
	// cross-origin. Off unless set.
	AllowCredentials bool
	// RateLimitQPS is the per-client request rate on /ask. Zero disables
	// rate limiting.
	RateLimitQPS float64
	// RateLimitBurst is the per-client bucket size.
	RateLimitBurst int
}

// NewRouter builds the HTTP handler for svc.
func NewRouter(svc Asker, opts Options) http.Handler {
	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(middleware.RealIP)
	r.Use(accessLog)
	r.Use(recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{requestIDHeader},
		AllowCredentials: opts.AllowCredentials,
		MaxAge:           300,
	}))

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeDetail(w, http.StatusNotFound, "Not Found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeDetail(w, http.StatusMethodNotAllowed, "Method Not Allowed")
	})

	h := &handler{svc: svc}
	r.Get("/", h.index)
	r.Get("/health", h.health)
	r.Group(func(r chi.Router) {
		if opts.RateLimitQPS > 0 {
			r.Use(newIPRateLimiter(opts.RateLimitQPS, opts.RateLimitBurst).middleware)
		}
		r.Post("/ask", h.ask)
	})

	return r
}
