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

	"github.com/complyguard/inspection-server/internal/bootstrap"
	"github.com/complyguard/inspection-server/internal/config"
	"github.com/complyguard/inspection-server/internal/observability/logging"
	"github.com/complyguard/inspection-server/internal/observability/metrics"
)

const serviceName = "inspection-worker"

func main() {
	cfg := config.Load()
	logger := logging.NewJSONLogger(serviceName, cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	workerMetrics := metrics.NewWorkerMetrics(serviceName)
	metricsServer := &http.Server{
		Addr:    ":" + cfg.WorkerMetricsPort,
		Handler: metricsHandler(workerMetrics),
	}
	go func() {
		logger.Info("worker_metrics_listening", "port", cfg.WorkerMetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("worker_metrics_server_failed", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	logger.Info("worker_subscribed", "subject", cfg.NATSSubject)
	err = app.Queue.SubscribeAnalyzeRequested(ctx, func(handlerCtx context.Context, inspectionID string) error {
		batchCtx, cancel := context.WithTimeout(handlerCtx, cfg.BatchTimeout)
		defer cancel()

		workerMetrics.StartBatch()
		start := time.Now()
		insp, err := app.BatchUC.RunBatch(batchCtx, inspectionID)

		rooms := 0
		if insp != nil {
			rooms = len(insp.Rooms)
			for _, room := range insp.Rooms {
				for _, capture := range room.Captures {
					workerMetrics.RecordCapture(serviceName, capture.Failed())
				}
			}
		}
		workerMetrics.FinishBatch(serviceName, time.Since(start), rooms, err)
		return err
	})
	if err != nil {
		logger.Error("worker_subscribe_failed", "error", err)
		os.Exit(1)
	}
}

func metricsHandler(m *metrics.WorkerMetrics) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", m.Handler())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	return mux
}
