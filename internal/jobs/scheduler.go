// Package jobs holds the background workers: the rollup builder, the
// batch score recalculation coordinator, the periodic score refresh,
// and the GeoLite database updater, all driven by one scheduler.
package jobs

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"soundpulse/internal/config"
	"soundpulse/internal/database"
)

// defaultRefreshRanges are the range tokens the daily refresh rescores.
var defaultRefreshRanges = []string{"7d", "30d", "90d", "1y", "all"}

// Scheduler is responsible for running background jobs
type Scheduler struct {
	dbManager *database.DBManager
	logger    *slog.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	enabled   bool
	isRunning bool
	cfg       *config.Config

	// Mutex to prevent concurrent job executions
	processingMutex sync.Mutex
	isProcessing    bool

	// Job instances
	rollupBuilder  *RollupBuilderJob
	coordinator    *Coordinator
	geoLiteUpdater *GeoLiteUpdaterJob

	// Tickers for each job type
	rollupTicker  *time.Ticker
	refreshTicker *time.Ticker
	geoTicker     *time.Ticker
}

func NewScheduler(dbManager *database.DBManager, logger *slog.Logger) (*Scheduler, error) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := config.GetConfig()

	s := &Scheduler{
		dbManager: dbManager,
		logger:    logger,
		ctx:       ctx,
		cancel:    cancel,
		enabled:   true,
		isRunning: false,
		cfg:       cfg,
	}

	s.rollupBuilder = NewRollupBuilderJob(dbManager, logger)
	s.coordinator = NewCoordinator(dbManager, logger, cfg)
	s.geoLiteUpdater = NewGeoLiteUpdaterJob(logger, cfg)

	return s, nil
}

// Coordinator exposes the batch recalculation coordinator so HTTP
// triggers and job-status queries share job state with the scheduler.
func (s *Scheduler) Coordinator() *Coordinator {
	return s.coordinator
}

// executeJobSafely runs a job only if no other job is currently executing
func (s *Scheduler) executeJobSafely(jobName string, jobFunc func() error) {
	s.processingMutex.Lock()
	if s.isProcessing {
		s.logger.Debug("Skipping job execution - previous job still running", slog.String("job", jobName))
		s.processingMutex.Unlock()
		return
	}
	s.isProcessing = true
	s.processingMutex.Unlock()

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Panic recovered in background job",
				slog.String("job", jobName),
				slog.Any("panic", r))
		}

		s.processingMutex.Lock()
		s.isProcessing = false
		s.processingMutex.Unlock()
	}()

	if err := jobFunc(); err != nil {
		s.logger.Error("Error executing job", slog.String("job", jobName), slog.Any("error", err))
	}
}

// Start begins all background jobs
func (s *Scheduler) Start() error {
	if !s.enabled {
		s.logger.Info("Background jobs are disabled.")
		return nil
	}

	if s.isRunning {
		s.logger.Info("Background jobs already running.")
		return nil
	}

	s.logger.Info("Starting background jobs...")

	s.isRunning = true

	s.startRollupBuilderJob()
	s.startScoreRefreshJob()
	s.startGeoLiteUpdaterJob()

	s.logger.Info("Background jobs started",
		slog.Bool("enabled", s.enabled),
		slog.Bool("isRunning", s.isRunning))

	return nil
}

func (s *Scheduler) startRollupBuilderJob() {
	interval := time.Duration(s.cfg.RollupIntervalSeconds) * time.Second
	s.logger.Info("Starting rollup builder job", slog.Duration("interval", interval))
	s.rollupTicker = time.NewTicker(interval)

	go func() {
		// Catch up elapsed buckets on boot before the first tick.
		s.logger.Info("Running initial rollup build...")
		s.executeJobSafely("rollup_builder", s.rollupBuilder.Run)

		for {
			select {
			case <-s.rollupTicker.C:
				s.executeJobSafely("rollup_builder", s.rollupBuilder.Run)
			case <-s.ctx.Done():
				s.logger.Info("Rollup builder job stopped")
				return
			}
		}
	}()
}

func (s *Scheduler) startScoreRefreshJob() {
	interval := 24 * time.Hour
	s.logger.Info("Starting score refresh job", slog.Duration("interval", interval))
	s.refreshTicker = time.NewTicker(interval)

	refresh := func() error {
		for _, token := range defaultRefreshRanges {
			if err := s.coordinator.Run(token); err != nil {
				return err
			}
		}
		return nil
	}

	go func() {
		s.logger.Info("Running initial score refresh...")
		s.executeJobSafely("score_refresh", refresh)

		for {
			select {
			case <-s.refreshTicker.C:
				s.executeJobSafely("score_refresh", refresh)
			case <-s.ctx.Done():
				s.logger.Info("Score refresh job stopped")
				return
			}
		}
	}()
}

func (s *Scheduler) startGeoLiteUpdaterJob() {
	interval := 24 * time.Hour
	s.logger.Info("Starting GeoLite updater job", slog.Duration("interval", interval))
	s.geoTicker = time.NewTicker(interval)

	go func() {
		if err := s.geoLiteUpdater.Run(); err != nil {
			s.logger.Error("Error in initial GeoLite update", slog.Any("error", err))
		}

		for {
			select {
			case <-s.geoTicker.C:
				if err := s.geoLiteUpdater.Run(); err != nil {
					s.logger.Error("Error in GeoLite update job", slog.Any("error", err))
				}
			case <-s.ctx.Done():
				s.logger.Info("GeoLite updater job stopped")
				return
			}
		}
	}()
}

// Stop halts all background jobs.
// Implements cartridge.BackgroundWorker interface.
func (s *Scheduler) Stop() {
	s.logger.Info("Stopping background jobs...")
	s.enabled = false

	if s.rollupTicker != nil {
		s.rollupTicker.Stop()
	}
	if s.refreshTicker != nil {
		s.refreshTicker.Stop()
	}
	if s.geoTicker != nil {
		s.geoTicker.Stop()
	}

	s.cancel()
	s.isRunning = false
	s.logger.Info("Background jobs stopped")
}

// IsRunning returns whether jobs are currently running
func (s *Scheduler) IsRunning() bool {
	return s.isRunning
}

// BuildRollups allows manual triggering of a rollup build.
func (s *Scheduler) BuildRollups() error {
	if !s.enabled {
		return nil
	}
	return s.rollupBuilder.Run()
}
