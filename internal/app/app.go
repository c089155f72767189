package app

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/adscope/internal/common"
	"github.com/ternarybob/adscope/internal/handlers"
	"github.com/ternarybob/adscope/internal/interfaces"
	"github.com/ternarybob/adscope/internal/jobs"
	"github.com/ternarybob/adscope/internal/services/ads"
	"github.com/ternarybob/adscope/internal/services/events"
	"github.com/ternarybob/adscope/internal/services/llm"
	"github.com/ternarybob/adscope/internal/services/report"
	"github.com/ternarybob/adscope/internal/services/scheduler"
	"github.com/ternarybob/adscope/internal/services/scrapers"
	"github.com/ternarybob/adscope/internal/storage/badger"
	"github.com/ternarybob/adscope/internal/storage/memory"
)

// App holds all application components and dependencies
type App struct {
	Config    *common.Config
	Logger    arbor.ILogger
	ctx       context.Context
	cancelCtx context.CancelFunc

	// Storage
	Store   interfaces.JobStore
	Archive interfaces.JobArchive // nil unless [storage.badger] enabled

	// Engine
	EventService  interfaces.EventService
	ScrapeChain   *jobs.ScrapeChain
	AnalysisChain *llm.AnalysisChain
	ScrapeManager *jobs.ScrapeManager
	Orchestrator  *jobs.WorkflowOrchestrator

	// Services
	AdsService      *ads.Service
	ReportService   *report.Service
	EvictionService *scheduler.EvictionService

	// HTTP handlers
	APIHandler      *handlers.APIHandler
	JobHandler      *handlers.JobHandler
	WorkflowHandler *handlers.WorkflowHandler
	AnalysisHandler *handlers.AnalysisHandler
	WSHandler       *handlers.WebSocketHandler
}

// New initializes the application with all dependencies
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}
	// Close cancels background work
	app.ctx, app.cancelCtx = context.WithCancel(context.Background())

	if err := app.initStorage(); err != nil {
		app.cancelCtx()
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	app.EventService = events.NewService(app.Logger)

	if err := app.initServices(); err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	app.initHandlers()

	logger.Info().
		Strs("scrape_providers", app.ScrapeChain.Providers()).
		Strs("ai_providers", app.AnalysisChain.Providers()).
		Bool("archive_enabled", app.Archive != nil).
		Msg("Application initialization complete")

	return app, nil
}

// initStorage creates the in-memory store and the optional Badger archive
func (a *App) initStorage() error {
	a.Store = memory.NewJobStore(a.Logger)

	if !a.Config.Storage.Badger.Enabled {
		a.Logger.Debug().Msg("Badger archive disabled, terminal records live in memory only")
		return nil
	}

	db, err := badger.NewBadgerDB(a.Logger, &a.Config.Storage.Badger)
	if err != nil {
		return fmt.Errorf("failed to open badger archive: %w", err)
	}
	a.Archive = badger.NewArchive(db, a.Logger)
	return nil
}

func (a *App) initServices() error {
	p := scrapers.NewPoller(a.Config.Poller, a.Logger)
	providers := scrapers.Providers(a.Config, p, a.Logger)
	if len(providers) == 0 {
		a.Logger.Warn().Msg("No scrape providers are enabled, every job will fail")
	}
	a.ScrapeChain = scrapers.NewScrapeChain(a.Config, a.Logger, providers...)

	attemptTimeout := common.ParseDuration(a.Config.Jobs.AttemptTimeout, 6*time.Minute)
	a.AnalysisChain = llm.NewAnalysisChain(llm.Completers(a.Config, a.Logger), attemptTimeout, a.Logger)

	deps := &jobs.Dependencies{
		Store:    a.Store,
		Archive:  a.Archive,
		Events:   a.EventService,
		Scrape:   a.ScrapeChain,
		Analysis: a.AnalysisChain,
		Logger:   a.Logger,
	}

	deadline := common.ParseDuration(a.Config.Jobs.Deadline, 10*time.Minute)
	a.ScrapeManager = jobs.NewScrapeManager(a.ctx, deps, deadline)
	a.Orchestrator = jobs.NewWorkflowOrchestrator(a.ctx, deps, jobs.WorkflowOptions{
		Deadline:    deadline,
		PageLimit:   a.Config.Jobs.PageLimit,
		Region:      a.Config.Jobs.DefaultRegion,
		Concurrency: a.Config.Jobs.PageConcurrency,
	})

	a.AdsService = ads.NewService(
		a.Store,
		a.Archive,
		a.ScrapeManager,
		a.Orchestrator,
		a.AnalysisChain,
		a.Config.Jobs,
		a.Logger,
	)
	a.ReportService = report.NewService(a.Logger)

	a.EvictionService = scheduler.NewEvictionService(
		a.Store,
		a.Archive,
		common.ParseDuration(a.Config.Jobs.Retention, 24*time.Hour),
		a.Config.Jobs.EvictionSchedule,
		a.Logger,
	)
	if err := a.EvictionService.Start(); err != nil {
		return fmt.Errorf("failed to start eviction scheduler: %w", err)
	}

	return nil
}

func (a *App) initHandlers() {
	a.APIHandler = handlers.NewAPIHandler(a.ScrapeChain.Providers(), a.AnalysisChain.Providers(), a.Logger)
	a.JobHandler = handlers.NewJobHandler(a.AdsService, a.Logger)
	a.WorkflowHandler = handlers.NewWorkflowHandler(a.AdsService, a.ReportService, a.Logger)
	a.AnalysisHandler = handlers.NewAnalysisHandler(a.AdsService, a.Logger)
	a.WSHandler = handlers.NewWebSocketHandler(a.EventService, a.Logger, &a.Config.WebSocket)
}

// Close cancels in-flight work and releases resources
func (a *App) Close() error {
	if a.cancelCtx != nil {
		a.Logger.Info().Msg("Cancelling in-flight jobs and workflows")
		a.cancelCtx()
	}

	if a.EvictionService != nil {
		a.EvictionService.Stop()
	}

	if a.WSHandler != nil {
		a.WSHandler.Close()
	}

	if a.EventService != nil {
		if err := a.EventService.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close event service")
		}
	}

	if a.Archive != nil {
		if err := a.Archive.Close(); err != nil {
			return fmt.Errorf("failed to close archive: %w", err)
		}
		a.Logger.Info().Msg("Archive closed")
	}

	return nil
}
