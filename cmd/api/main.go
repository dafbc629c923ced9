package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpadapter "github.com/kirillkom/plateplanner/internal/adapters/http"
	mcpadapter "github.com/kirillkom/plateplanner/internal/adapters/mcp"
	"github.com/kirillkom/plateplanner/internal/bootstrap"
	"github.com/kirillkom/plateplanner/internal/config"
	"github.com/kirillkom/plateplanner/internal/observability/logging"
	"github.com/kirillkom/plateplanner/internal/observability/metrics"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config_load_failed", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(logging.New("api", cfg.LogLevel, cfg.LogFormat))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpMetrics := metrics.NewHTTPServerMetrics("api")

	app, err := bootstrap.NewAPI(ctx, cfg, httpMetrics)
	if err != nil {
		slog.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()
	httpMetrics.SetRetrievalReady(app.Retrieval.Ready())

	router, err := httpadapter.NewRouter(cfg, httpadapter.Dependencies{
		Recommender:   app.Recommender,
		Assistant:     app.Assistant,
		Substitutions: app.Substitutions,
		Dietary:       app.Dietary,
		Retrieval:     app.Retrieval,
		Metrics:       httpMetrics,
		MCP:           mcpadapter.NewServer(app.Recommender, app.Assistant, app.Substitutions).Handler(),
	})
	if err != nil {
		slog.Error("router_init_failed", "error", err)
		os.Exit(1)
	}

	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      router.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("api_listening", "port", cfg.APIPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("api_server_failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("api_shutdown_failed", "error", err)
	}
}
