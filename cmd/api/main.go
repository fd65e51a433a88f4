package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"fluxserver/internal/http/handlers"
	httpapi "fluxserver/internal/http/httpapi"
	"fluxserver/internal/imagegen"
	"fluxserver/internal/infra"
	"fluxserver/internal/metrics"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	executor := imagegen.NewExecutor(imagegen.Options{
		Command: imagegen.Command{
			Python: cfg.PythonPath,
			Module: cfg.MfluxModule,
			Model:  cfg.MfluxModel,
		},
		Timeout: cfg.GenerateTimeout,
		WorkDir: cfg.WorkDir,
		Logger:  logger,
	})

	app := handlers.NewApp(executor, metrics.NewCollector("mlx_image"), logger)
	router := httpapi.NewRouter(cfg, app, logger)
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().
			Str("model", cfg.MfluxModel).
			Dur("timeout", cfg.GenerateTimeout).
			Msgf("MLX image server listening on %s", server.Addr())
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	// Generations still running past the grace period are killed here, and
	// their workspaces removed, before the process exits.
	app.Close()
	logger.Info().Msg("server stopped")
}
