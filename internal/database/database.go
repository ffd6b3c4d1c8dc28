package database

import (
	"log/slog"

	"github.com/karloscodes/cartridge/cache"
	"github.com/karloscodes/cartridge/sqlite"
	"gorm.io/gorm"

	"soundpulse/internal/catalog"
	"soundpulse/internal/config"
	"soundpulse/internal/events"
	"soundpulse/internal/rollups"
	"soundpulse/internal/scoring"
	"soundpulse/internal/users"
)

// DBManager wraps cartridge's sqlite.Manager with soundpulse-specific migration methods.
type DBManager struct {
	*sqlite.Manager
	logger *slog.Logger
}

// NewDBManager creates a new database manager using cartridge's sqlite.Manager.
func NewDBManager(cfg *config.Config, logger *slog.Logger) *DBManager {
	sqliteCfg := sqlite.Config{
		Path:         cfg.DatabaseName,
		MaxOpenConns: cfg.GetMaxOpenConns(),
		MaxIdleConns: cfg.GetMaxIdleConns(),
		Logger:       logger,
		EnableWAL:    true,
		TxImmediate:  true,
		BusyTimeout:  5000,
	}

	return &DBManager{
		Manager: sqlite.NewManager(sqliteCfg),
		logger:  logger,
	}
}

// Init initializes the database connection.
func (dm *DBManager) Init() error {
	_, err := dm.Manager.Connect()
	return err
}

// AllModels returns every persisted model, in migration order.
func AllModels() []any {
	return []any{
		&cache.CacheRecord{},
		&users.User{},
		&catalog.Artist{},
		&catalog.Track{},
		&catalog.Playlist{},
		&catalog.PlaylistTrack{},
		&events.PlayEvent{},
		&events.LikeEvent{},
		&events.ShareEvent{},
		&events.DownloadEvent{},
		&events.SaveEvent{},
		&events.ProfileVisitEvent{},
		&rollups.WeeklyStat{},
		&rollups.MonthlyStat{},
		&rollups.YearlyStat{},
		&scoring.ArtistScoreRecord{},
	}
}

// MigrateDatabase runs soundpulse-specific migrations.
func (dm *DBManager) MigrateDatabase() error {
	db := dm.GetConnection()
	if db == nil {
		return gorm.ErrInvalidDB
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		return tx.AutoMigrate(AllModels()...)
	})
	if err != nil {
		dm.logger.Error("Failed to auto-migrate database", slog.Any("error", err))
		return err
	}

	if err := dm.CheckpointWAL("FULL"); err != nil {
		dm.logger.Warn("Failed to checkpoint WAL after migration", slog.Any("error", err))
	}

	dm.logger.Info("Database migration completed successfully")
	return nil
}
