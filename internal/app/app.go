package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/lib/pq"

	"BloomFeed/internal/config"
	"BloomFeed/internal/infrastructure/oracle"
	"BloomFeed/internal/infrastructure/scheduler"
	"BloomFeed/internal/infrastructure/sources"
	"BloomFeed/internal/infrastructure/storage"
	"BloomFeed/internal/logging"
	"BloomFeed/internal/source"
	"BloomFeed/internal/usecase"
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg       config.Config
	db        *sql.DB
	pipeline  *usecase.Pipeline
	scheduler *usecase.Scheduler
}

// New builds a runnable application instance: source adapters, the
// classification oracle, storage and the pipeline.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	registry := source.NewRegistry()
	registry.Register(sources.NewRSSAdapter(nil, baseLogger.With("component", "source.rss")))
	registry.Register(sources.NewNewsAPIAdapter(nil, baseLogger.With("component", "source.newsapi")))
	registry.Register(sources.NewWebScanAdapter(nil, baseLogger.With("component", "source.webscan")))

	collector := sources.NewCollector(registry, cfg.Sources, baseLogger.With("component", "collector"))

	geminiClient, err := oracle.NewGeminiClient(ctx, cfg.Oracle)
	if err != nil {
		return nil, fmt.Errorf("create oracle client: %w", err)
	}
	classifier := oracle.NewClassifier(geminiClient, cfg.Oracle, baseLogger.With("component", "classifier"))

	db, err := sql.Open("postgres", cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := storage.EnsureSchema(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	repo := storage.NewPostgresRepository(db)

	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Source:     collector,
		Classifier: classifier,
		Repository: repo,
		Recorder:   repo,
		Logger:     baseLogger.With("component", "pipeline"),
		Pipeline:   cfg.Pipeline,
		Dedup:      cfg.Dedup,
	})

	cronDriver := scheduler.NewCronScheduler(cfg.Scheduler, baseLogger.With("component", "scheduler"))

	return &Application{
		cfg:       cfg,
		db:        db,
		pipeline:  pipeline,
		scheduler: usecase.NewScheduler(cronDriver, pipeline, baseLogger.With("component", "scheduler")),
	}, nil
}

// RunOnce performs a single pipeline execution.
func (a *Application) RunOnce(ctx context.Context) error {
	_, err := a.pipeline.Run(ctx)
	return err
}

// StartDaemon begins recurring runs on the configured cron expression.
func (a *Application) StartDaemon(ctx context.Context) error {
	return a.scheduler.Start(ctx)
}

// StopDaemon halts the scheduler, waiting for an in-flight run.
func (a *Application) StopDaemon(ctx context.Context) error {
	return a.scheduler.Stop(ctx)
}

// Close releases held resources.
func (a *Application) Close() error {
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}
