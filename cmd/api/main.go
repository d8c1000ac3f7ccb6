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

	httpadapter "github.com/complyguard/inspection-server/internal/adapters/http"
	"github.com/complyguard/inspection-server/internal/bootstrap"
	"github.com/complyguard/inspection-server/internal/config"
	"github.com/complyguard/inspection-server/internal/observability/logging"
	"github.com/complyguard/inspection-server/internal/observability/metrics"
)

const serviceName = "inspection-api"

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

	validator, err := httpadapter.NewRequestValidator()
	if err != nil {
		logger.Error("request_validator_failed", "error", err)
		os.Exit(1)
	}

	router := httpadapter.NewRouter(httpadapter.Deps{
		Logger:      logger,
		Service:     serviceName,
		Inspections: app.InspectionsUC,
		Reports:     app.Reports,
		Vision:      app.Vision,
		Users:       app.UserRepo,
		Tokens:      app.Tokens,
		Metrics:     metrics.NewHTTPServerMetrics(serviceName),
		Validator:   validator,
		DBPing:      app.DBPing,

		VisionConfigured: cfg.GeminiAPIKey != "",
		RateLimitRPS:     cfg.APIRateLimitRPS,
		RateLimitBurst:   cfg.APIRateLimitBurst,
		MaxInFlight:      cfg.APIMaxInFlight,
	})

	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      router.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("api_listening", "port", cfg.APIPort, "demo_mode", cfg.DemoModeEnabled)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api_server_failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("api_shutdown_failed", "error", err)
	}
}
