package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/complyguard/inspection-server/internal/auth"
	"github.com/complyguard/inspection-server/internal/config"
	"github.com/complyguard/inspection-server/internal/core/ports"
	"github.com/complyguard/inspection-server/internal/core/usecase"
	"github.com/complyguard/inspection-server/internal/infrastructure/llm/gemini"
	"github.com/complyguard/inspection-server/internal/infrastructure/queue/inline"
	"github.com/complyguard/inspection-server/internal/infrastructure/queue/nats"
	"github.com/complyguard/inspection-server/internal/infrastructure/repository/memory"
	"github.com/complyguard/inspection-server/internal/infrastructure/repository/postgres"
	"github.com/complyguard/inspection-server/internal/infrastructure/resilience"
	"github.com/complyguard/inspection-server/internal/infrastructure/storage/localfs"
)

// App carries the wired object graph shared by the api and worker binaries.
// Demo mode swaps postgres for in-memory repositories and NATS for an
// in-process queue, so one binary serves the whole flow.
type App struct {
	Config config.Config
	Logger *slog.Logger

	Queue          ports.MessageQueue
	InspectionRepo ports.InspectionRepository
	UserRepo       ports.UserRepository
	Vision         ports.VisionAnalyzer
	Tokens         *auth.JWTManager

	InspectionsUC *usecase.InspectionUseCase
	BatchUC       *usecase.BatchAnalyzeUseCase
	Reports       *usecase.ReportComposer

	DBPing func(context.Context) error

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if !cfg.DemoModeEnabled && cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required outside demo mode")
	}

	visionExec := resilience.NewExecutor(resilience.VisionConfig(), logger)
	vision := gemini.New(cfg.GeminiBaseURL, cfg.GeminiAPIKey, cfg.GeminiTextModel, cfg.GeminiImageModel, visionExec, logger)

	images, err := localfs.New(cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("init image storage: %w", err)
	}

	tokens := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTExpiration, cfg.DemoModeEnabled)
	analyzer := usecase.NewRoomAnalyzer(vision, cfg.AnalysisMaxConcurrent, logger)

	var (
		inspRepo ports.InspectionRepository
		userRepo ports.UserRepository
		queue    ports.MessageQueue
		dbPing   func(context.Context) error
		closeFn  func()
	)

	if cfg.DemoModeEnabled {
		inspRepo = memory.NewInspectionRepository()
		userRepo = memory.NewUserRepository()

		batchUC := usecase.NewBatchAnalyzeUseCase(inspRepo, analyzer, logger)
		inlineQueue := inline.New(logger)
		inlineQueue.Bind(func(handlerCtx context.Context, inspectionID string) error {
			batchCtx, cancel := context.WithTimeout(handlerCtx, cfg.BatchTimeout)
			defer cancel()
			_, err := batchUC.RunBatch(batchCtx, inspectionID)
			return err
		})
		queue = inlineQueue
	} else {
		db, err := postgres.OpenDB(cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		pgRepo := postgres.NewInspectionRepository(db)
		if err := pgRepo.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
		inspRepo = pgRepo
		userRepo = postgres.NewUserRepository(db)
		dbPing = func(pingCtx context.Context) error { return db.PingContext(pingCtx) }

		natsQueue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
			ResilienceExecutor: resilience.NewExecutor(resilience.DefaultConfig(), logger),
			Logger:             logger,
		})
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("init message queue: %w", err)
		}
		queue = natsQueue
		closeFn = func() {
			natsQueue.Close()
			_ = db.Close()
		}
	}

	return &App{
		Config: cfg,
		Logger: logger,

		Queue:          queue,
		InspectionRepo: inspRepo,
		UserRepo:       userRepo,
		Vision:         vision,
		Tokens:         tokens,

		InspectionsUC: usecase.NewInspectionUseCase(inspRepo, queue, vision, images, logger),
		BatchUC:       usecase.NewBatchAnalyzeUseCase(inspRepo, analyzer, logger),
		Reports:       usecase.NewReportComposer(inspRepo),

		DBPing: dbPing,

		closeFn: closeFn,
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
