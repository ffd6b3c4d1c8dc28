// Package internal contains core application functionality
package internal

import (
	"fmt"

	"github.com/karloscodes/cartridge"

	"soundpulse/internal/config"
	"soundpulse/internal/database"
	"soundpulse/internal/jobs"
)

// Application wraps cartridge.Application with soundpulse-specific components
type Application struct {
	*cartridge.Application
	DBManager *database.DBManager
	Scheduler *jobs.Scheduler
}

// NewApp creates a new application instance with default settings
func NewApp() (*Application, error) {
	cfg := config.GetConfig()
	return NewAppWithConfig(cfg)
}

// NewAppWithConfig creates a new application with the provided config
func NewAppWithConfig(cfg *config.Config) (*Application, error) {
	logger := cartridge.NewLogger(cfg, nil)

	// Initialize database manager (soundpulse-specific with migration methods)
	dbManager := database.NewDBManager(cfg, logger)
	if err := dbManager.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	// Initialize the background scheduler. Routes mount against its
	// coordinator so HTTP batch triggers and the periodic score refresh
	// share the same job state.
	scheduler, err := jobs.NewScheduler(dbManager, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize scheduler: %w", err)
	}

	// Player SDKs post events cross-origin, so the global Sec-Fetch-Site
	// allowlist must admit cross-site requests; per-route rate limits
	// and CORS still gate the public surface.
	serverCfg := cartridge.DefaultServerConfig()
	serverCfg.SecFetchSiteAllowedValues = []string{"cross-site", "same-site", "same-origin"}

	app, err := cartridge.NewApplication(cartridge.ApplicationOptions{
		Config:       cfg,
		Logger:       logger,
		DBManager:    dbManager,
		ServerConfig: serverCfg,
		RouteMountFunc: func(srv *cartridge.Server) {
			SetupSession(srv)
			MountAPIRoutes(srv, scheduler.Coordinator())
		},
		BackgroundWorkers: []cartridge.BackgroundWorker{scheduler},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create application: %w", err)
	}

	return &Application{
		Application: app,
		DBManager:   dbManager,
		Scheduler:   scheduler,
	}, nil
}
