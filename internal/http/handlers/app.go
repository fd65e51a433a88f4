package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/rs/zerolog"

	"fluxserver/internal/imagegen"
	"fluxserver/internal/metrics"
)

// App carries the dependencies shared by the HTTP handlers.
type App struct {
	Generator imagegen.Generator
	Metrics   *metrics.Collector
	Logger    zerolog.Logger

	// life outlives individual requests; Close cancels it.
	life     context.Context
	stop     context.CancelFunc
	inflight sync.WaitGroup
}

func NewApp(gen imagegen.Generator, m *metrics.Collector, logger zerolog.Logger) *App {
	life, stop := context.WithCancel(context.Background())
	return &App{Generator: gen, Metrics: m, Logger: logger, life: life, stop: stop}
}

// generationContext keeps the request's values but not its cancellation;
// the run ends on its own timeout or when the App is closed.
func (a *App) generationContext(r *http.Request) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.WithoutCancel(r.Context()))
	if a.life == nil {
		return ctx, cancel
	}
	detach := context.AfterFunc(a.life, cancel)
	return ctx, func() {
		detach()
		cancel()
	}
}

// Close cancels in-flight generations and waits for their handlers to
// return, so child processes are killed and workspaces removed. Call it
// after the HTTP server stopped accepting requests.
func (a *App) Close() {
	if a.stop != nil {
		a.stop()
	}
	a.inflight.Wait()
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, msg string) {
	a.json(w, code, map[string]string{"error": msg})
}
