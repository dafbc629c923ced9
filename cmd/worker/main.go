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

	"github.com/kirillkom/plateplanner/internal/bootstrap"
	"github.com/kirillkom/plateplanner/internal/config"
	"github.com/kirillkom/plateplanner/internal/core/domain"
	"github.com/kirillkom/plateplanner/internal/observability/logging"
	"github.com/kirillkom/plateplanner/internal/observability/metrics"
)

const serviceName = "worker"

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config_load_failed", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(logging.New(serviceName, cfg.LogLevel, cfg.LogFormat))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.NewWorker(ctx, cfg)
	if err != nil {
		slog.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	workerMetrics := metrics.NewWorkerMetrics(serviceName)
	metricsServer := &http.Server{
		Addr:              ":" + cfg.WorkerMetricsPort,
		Handler:           workerMetrics.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		slog.Info("worker_metrics_listening", "port", cfg.WorkerMetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("worker_metrics_server_failed", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	slog.Info("worker_subscribed", "subject", cfg.NATSSubject)
	err = app.Events.SubscribeRecommendations(ctx, func(handlerCtx context.Context, event domain.RecommendationEvent) error {
		recordCtx, cancel := context.WithTimeout(handlerCtx, 30*time.Second)
		defer cancel()

		if !event.CreatedAt.IsZero() {
			workerMetrics.ObserveEventLag(serviceName, time.Since(event.CreatedAt))
		}
		outcome := string(event.Status)
		if event.Message != "" {
			outcome = event.Message
		}
		workerMetrics.RecordOutcome(serviceName, outcome)

		start := time.Now()
		workerMetrics.StartEvent()
		err := app.Recorder.Record(recordCtx, event)
		workerMetrics.FinishEvent(serviceName, time.Since(start), err)
		if err != nil {
			return err
		}
		slog.Debug("recommendation_event_recorded", "event_id", event.ID, "status", event.Status)
		return nil
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("worker_subscribe_failed", "error", err)
		os.Exit(1)
	}
}
