// -----------------------------------------------------------------------
// Application composition root: opens storage, builds the processing
// services and worker, and wires the HTTP handlers together.
// -----------------------------------------------------------------------

package app

import (
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scrivo/internal/common"
	"github.com/ternarybob/scrivo/internal/handlers"
	"github.com/ternarybob/scrivo/internal/interfaces"
	"github.com/ternarybob/scrivo/internal/services/crawler"
	"github.com/ternarybob/scrivo/internal/services/generator"
	"github.com/ternarybob/scrivo/internal/services/parser"
	"github.com/ternarybob/scrivo/internal/services/scheduler"
	"github.com/ternarybob/scrivo/internal/storage/badger"
	"github.com/ternarybob/scrivo/internal/worker"
)

// App holds all application components and dependencies
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	StorageManager *badger.Manager
	JobStore       interfaces.JobStore

	CrawlerService   interfaces.Crawler
	GeneratorService interfaces.ContentGenerator
	ParserService    interfaces.OutputParser
	Worker           interfaces.Worker
	SchedulerService *scheduler.Service

	// HTTP handlers
	JobHandler    *handlers.JobHandler
	WorkerHandler *handlers.WorkerHandler
	APIHandler    *handlers.APIHandler
}

// New initializes the application with all dependencies
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	app := &App{
		Config: cfg,
		Logger: logger,
	}

	storageManager, err := badger.NewManager(logger, &cfg.Storage.Badger, &cfg.Worker)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	app.StorageManager = storageManager
	app.JobStore = storageManager.JobStore()

	app.CrawlerService = crawler.NewService(cfg.Crawler, logger)

	generatorService, err := generator.NewContentGenerator(cfg.Generator, logger)
	if err != nil {
		storageManager.Close()
		return nil, fmt.Errorf("failed to initialize content generator: %w", err)
	}
	app.GeneratorService = generatorService

	app.ParserService = parser.NewService()

	app.Worker = worker.New(
		app.JobStore,
		app.CrawlerService,
		app.GeneratorService,
		app.ParserService,
		cfg.Worker,
		logger,
	)

	app.SchedulerService = scheduler.NewService(app.Worker, logger)

	app.JobHandler = handlers.NewJobHandler(app.JobStore, app.SchedulerService.TriggerNow, logger)
	app.WorkerHandler = handlers.NewWorkerHandler(app.Worker, logger)
	app.APIHandler = handlers.NewAPIHandler(logger)

	logger.Info().Str("provider", generatorService.Provider()).Msg("Application initialized")

	return app, nil
}

// StartScheduler begins scheduled worker runs if the worker is enabled.
func (a *App) StartScheduler() error {
	if !a.Config.Worker.Enabled {
		a.Logger.Info().Msg("Worker scheduling disabled; jobs run only on explicit triggers")
		return nil
	}
	return a.SchedulerService.Start(a.Config.Worker.Schedule)
}

// Close stops the scheduler and releases storage.
func (a *App) Close() error {
	if a.SchedulerService != nil {
		a.SchedulerService.Stop()
	}
	if a.StorageManager != nil {
		return a.StorageManager.Close()
	}
	return nil
}
