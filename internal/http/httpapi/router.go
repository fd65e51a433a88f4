package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"fluxserver/internal/http/handlers"
	"fluxserver/internal/infra"
	"fluxserver/internal/middleware"
)

func NewRouter(cfg *infra.Config, app *handlers.App, logger infra.Logger) http.Handler {
	r := chi.NewRouter()

	var observe middleware.HTTPObserver
	if app.Metrics != nil {
		observe = app.Metrics.ObserveHTTP
	}

	r.Use(middleware.RequestID(logger))
	if cfg.TrustProxyHeaders {
		r.Use(chimw.RealIP)
	}
	r.Use(
		chimw.Recoverer,
		middleware.AccessLog(observe),
		middleware.CORS(cfg.CORSOrigins),
	)

	r.Get("/health", app.Health)
	r.Get("/models", app.Models)
	r.Get("/openapi.json", app.OpenAPIJSON)
	r.Get("/docs", app.OpenAPIDocs)
	if app.Metrics != nil {
		r.Handle("/metrics", app.Metrics.Handler())
	}

	r.With(middleware.RateLimit(cfg.RateLimitPerMin, time.Minute)).Post("/generate", app.Generate)

	return r
}
