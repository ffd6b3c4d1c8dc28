// Package config provides configuration management using Viper
package config

import (
	"fmt"
	"log"
	"path/filepath"
	"sync"

	"github.com/spf13/viper"
)

// Environment types
const (
	Development = "development"
	Production  = "production"
	Test        = "test"
)

// LogLevel represents the logging level for the application
type LogLevel string

// Available log levels
const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// Database types
const (
	SQLiteDatabase = "sqlite"
)

// ScoreWeights holds the relative weight of each sub-score in the
// overall artist strength score. The four weights must sum to 1.0.
type ScoreWeights struct {
	Engagement float64 `mapstructure:"scoreweightengagement"`
	Growth     float64 `mapstructure:"scoreweightgrowth"`
	Quality    float64 `mapstructure:"scoreweightquality"`
	Potential  float64 `mapstructure:"scoreweightpotential"`
}

// ScoreScales holds the reference scales used to squash unbounded
// scoring signals into the 0-100 range.
type ScoreScales struct {
	PlaysPerDay      float64 `mapstructure:"scaleplaysperday"`
	ViralCoefficient float64 `mapstructure:"scaleviralcoefficient"`
	Regions          float64 `mapstructure:"scaleregions"`
	Platforms        float64 `mapstructure:"scaleplatforms"`
}

// ScoreCategories holds the minimum overall score for each tier label.
// Anything below Developing is Emerging. Thresholds must be strictly
// decreasing so every score maps to exactly one tier.
type ScoreCategories struct {
	TopTier    float64 `mapstructure:"categorytoptier"`
	Strong     float64 `mapstructure:"categorystrong"`
	Solid      float64 `mapstructure:"categorysolid"`
	Developing float64 `mapstructure:"categorydeveloping"`
}

// Config holds all configuration parameters for the application
type Config struct {
	// Application settings
	AppName                    string   `mapstructure:"appname"`
	AppPort                    string   `mapstructure:"appport"`
	Environment                string   `mapstructure:"environment"`
	LogLevel                   LogLevel `mapstructure:"loglevel"`
	PrivateKey                 string   `mapstructure:"privatekey"`
	LoginSessionTimeoutSeconds int      `mapstructure:"loginsessiontimeoutseconds"`
	AdminEmail                 string   `mapstructure:"adminemail"`
	Domain                     string   `mapstructure:"domain"`

	// File paths
	DatabasePath          string `mapstructure:"storagepath"`
	DatabaseName          string `mapstructure:"-"` // Derived from other settings
	GeoDBPath             string `mapstructure:"geodbpath"`
	MaxMindLicenseKey     string `mapstructure:"maxmindlicensekey"`
	PublicDirectory       string `mapstructure:"publicdir"`
	PublicAssetsUrlPrefix string `mapstructure:"publicassetsurlprefix"`

	// Logging settings
	LogsDirectory    string `mapstructure:"logsdir"`
	LogsMaxSizeInMb  int    `mapstructure:"logsmaxsizeinmb"`
	LogsMaxBackups   int    `mapstructure:"logsmaxbackups"`
	LogsMaxAgeInDays int    `mapstructure:"logsmaxageindays"`

	// Database settings
	DatabaseType         string `mapstructure:"dbtype"`
	DatabaseMaxOpenConns int    `mapstructure:"dbmaxopenconns"`
	DatabaseMaxIdleConns int    `mapstructure:"dbmaxidleconns"`

	// Job scheduling settings
	RollupIntervalSeconds int `mapstructure:"rollupintervalseconds"`
	RecalcWorkerCount     int `mapstructure:"recalcworkercount"`

	// Scoring configuration. Weights and scales are operator tunables,
	// not code constants, so emphasis can be retuned without a deploy.
	ScoreWeights    ScoreWeights    `mapstructure:",squash"`
	ScoreScales     ScoreScales     `mapstructure:",squash"`
	ScoreCategories ScoreCategories `mapstructure:",squash"`
}

var (
	cfg  *Config
	once sync.Once
)

// GetConfig returns the application configuration
func GetConfig() *Config {
	once.Do(func() {
		v := viper.New()

		// Set defaults
		v.SetDefault("appname", "soundpulse")
		v.SetDefault("appport", "3000")
		v.SetDefault("environment", Development)
		v.SetDefault("loglevel", string(LogLevelDebug))
		v.SetDefault("privatekey", "88888888888888888888888888888888")
		v.SetDefault("loginsessiontimeoutseconds", 604800) // 1 week
		v.SetDefault("storagepath", "storage")
		v.SetDefault("geodbpath", "storage/GeoLite2-City.mmdb")
		v.SetDefault("publicdir", "web/dist/assets")
		v.SetDefault("publicassetsurlprefix", "/")
		v.SetDefault("logsdir", "logs")
		v.SetDefault("logsmaxsizeinmb", 20)
		v.SetDefault("logsmaxbackups", 10)
		v.SetDefault("logsmaxageindays", 30)
		v.SetDefault("dbtype", SQLiteDatabase)
		v.SetDefault("dbmaxopenconns", 0)
		v.SetDefault("dbmaxidleconns", 0)
		v.SetDefault("rollupintervalseconds", 3600)
		v.SetDefault("recalcworkercount", 8)

		// Overall score blend, must sum to 1.0
		v.SetDefault("scoreweightengagement", 0.30)
		v.SetDefault("scoreweightgrowth", 0.25)
		v.SetDefault("scoreweightquality", 0.25)
		v.SetDefault("scoreweightpotential", 0.20)

		// Reference scales for unbounded scoring signals
		v.SetDefault("scaleplaysperday", 1000.0)
		v.SetDefault("scaleviralcoefficient", 1.0)
		v.SetDefault("scaleregions", 20.0)
		v.SetDefault("scaleplatforms", 5.0)

		// Tier thresholds, minimum overall score per category
		v.SetDefault("categorytoptier", 90.0)
		v.SetDefault("categorystrong", 80.0)
		v.SetDefault("categorysolid", 70.0)
		v.SetDefault("categorydeveloping", 60.0)

		// Bind environment variables
		v.BindEnv("appname", "SOUNDPULSE_APP_NAME")
		v.BindEnv("appport", "SOUNDPULSE_APP_PORT")
		v.BindEnv("environment", "SOUNDPULSE_ENV")
		v.BindEnv("loglevel", "SOUNDPULSE_LOG_LEVEL")
		v.BindEnv("privatekey", "SOUNDPULSE_PRIVATE_KEY")
		v.BindEnv("loginsessiontimeoutseconds", "SOUNDPULSE_LOGIN_SESSION_TIMEOUT_SECONDS")
		v.BindEnv("adminemail", "SOUNDPULSE_ADMIN_EMAIL")
		v.BindEnv("domain", "SOUNDPULSE_DOMAIN")
		v.BindEnv("storagepath", "SOUNDPULSE_STORAGE_PATH")
		v.BindEnv("geodbpath", "SOUNDPULSE_GEO_DB_PATH")
		v.BindEnv("maxmindlicensekey", "SOUNDPULSE_MAXMIND_LICENSE_KEY")
		v.BindEnv("publicdir", "SOUNDPULSE_PUBLIC_DIR")
		v.BindEnv("publicassetsurlprefix", "SOUNDPULSE_PUBLIC_ASSETS_URL_PREFIX")
		v.BindEnv("logsdir", "SOUNDPULSE_LOGS_DIR")
		v.BindEnv("logsmaxsizeinmb", "SOUNDPULSE_LOGS_MAX_SIZE_IN_MB")
		v.BindEnv("logsmaxbackups", "SOUNDPULSE_LOGS_MAX_BACKUPS")
		v.BindEnv("logsmaxageindays", "SOUNDPULSE_LOGS_MAX_AGE_IN_DAYS")
		v.BindEnv("dbtype", "SOUNDPULSE_DB_TYPE")
		v.BindEnv("dbmaxopenconns", "SOUNDPULSE_DB_MAX_OPEN_CONNS")
		v.BindEnv("dbmaxidleconns", "SOUNDPULSE_DB_MAX_IDLE_CONNS")
		v.BindEnv("rollupintervalseconds", "SOUNDPULSE_ROLLUP_INTERVAL_SECONDS")
		v.BindEnv("recalcworkercount", "SOUNDPULSE_RECALC_WORKER_COUNT")
		v.BindEnv("scoreweightengagement", "SOUNDPULSE_SCORE_WEIGHT_ENGAGEMENT")
		v.BindEnv("scoreweightgrowth", "SOUNDPULSE_SCORE_WEIGHT_GROWTH")
		v.BindEnv("scoreweightquality", "SOUNDPULSE_SCORE_WEIGHT_QUALITY")
		v.BindEnv("scoreweightpotential", "SOUNDPULSE_SCORE_WEIGHT_POTENTIAL")
		v.BindEnv("scaleplaysperday", "SOUNDPULSE_SCALE_PLAYS_PER_DAY")
		v.BindEnv("scaleviralcoefficient", "SOUNDPULSE_SCALE_VIRAL_COEFFICIENT")
		v.BindEnv("scaleregions", "SOUNDPULSE_SCALE_REGIONS")
		v.BindEnv("scaleplatforms", "SOUNDPULSE_SCALE_PLATFORMS")
		v.BindEnv("categorytoptier", "SOUNDPULSE_CATEGORY_TOP_TIER")
		v.BindEnv("categorystrong", "SOUNDPULSE_CATEGORY_STRONG")
		v.BindEnv("categorysolid", "SOUNDPULSE_CATEGORY_SOLID")
		v.BindEnv("categorydeveloping", "SOUNDPULSE_CATEGORY_DEVELOPING")

		cfg = &Config{}
		if err := v.Unmarshal(cfg); err != nil {
			log.Fatalf("config: failed to unmarshal configuration: %v", err)
		}

		// Validate
		if err := cfg.validate(); err != nil {
			log.Fatalf("config: invalid configuration: %v", err)
		}

		// Set derived values
		cfg.DatabaseName = cfg.GetDatabasePath()

		// Validate private key - in production, must be explicitly set (not empty, not default)
		defaultKey := "88888888888888888888888888888888"
		if cfg.PrivateKey == "" {
			log.Fatal("Private key is required")
		}
		if cfg.IsProduction() && cfg.PrivateKey == defaultKey {
			log.Fatal("Production requires a unique SOUNDPULSE_PRIVATE_KEY (cannot use default)")
		}
	})
	return cfg
}

// validate checks the configuration for errors
func (c *Config) validate() error {
	validEnvs := map[string]bool{
		Development: true,
		Production:  true,
		Test:        true,
	}
	if !validEnvs[c.Environment] {
		return fmt.Errorf("invalid environment: %s", c.Environment)
	}

	validDBTypes := map[string]bool{
		SQLiteDatabase: true,
	}
	if !validDBTypes[c.DatabaseType] {
		return fmt.Errorf("invalid database type: %s", c.DatabaseType)
	}

	if err := c.ScoreWeights.Validate(); err != nil {
		return err
	}
	if err := c.ScoreScales.Validate(); err != nil {
		return err
	}
	return c.ScoreCategories.Validate()
}

// Validate checks that the four weights are non-negative and sum to 1.0.
func (w ScoreWeights) Validate() error {
	if w.Engagement < 0 || w.Growth < 0 || w.Quality < 0 || w.Potential < 0 {
		return fmt.Errorf("score weights must be non-negative")
	}
	sum := w.Engagement + w.Growth + w.Quality + w.Potential
	if sum < 0.999 || sum > 1.001 {
		return fmt.Errorf("score weights must sum to 1.0, got %.3f", sum)
	}
	return nil
}

// Validate checks that all reference scales are positive.
func (s ScoreScales) Validate() error {
	if s.PlaysPerDay <= 0 || s.ViralCoefficient <= 0 || s.Regions <= 0 || s.Platforms <= 0 {
		return fmt.Errorf("score scales must be positive")
	}
	return nil
}

// Validate checks that the tier thresholds are within 0-100 and
// strictly decreasing.
func (c ScoreCategories) Validate() error {
	if c.TopTier > 100 || c.Developing <= 0 {
		return fmt.Errorf("category thresholds must lie in (0, 100]")
	}
	if !(c.TopTier > c.Strong && c.Strong > c.Solid && c.Solid > c.Developing) {
		return fmt.Errorf("category thresholds must be strictly decreasing, got %.1f/%.1f/%.1f/%.1f",
			c.TopTier, c.Strong, c.Solid, c.Developing)
	}
	return nil
}

// GetDatabasePath returns the appropriate database path based on environment
func (c *Config) GetDatabasePath() string {
	if c.DatabaseName == "" {
		c.DatabaseName = filepath.Join(c.DatabasePath,
			fmt.Sprintf("%s-%s.db", c.AppName, c.Environment))
	}
	return c.DatabaseName
}

// IsDevelopment returns true if the environment is development
func (c *Config) IsDevelopment() bool {
	return c.Environment == Development
}

// IsProduction returns true if the environment is production
func (c *Config) IsProduction() bool {
	return c.Environment == Production
}

// IsTest returns true if the environment is test
func (c *Config) IsTest() bool {
	return c.Environment == Test
}

// GetPort returns the HTTP server port (implements cartridge.Config interface).
func (c *Config) GetPort() string {
	return c.AppPort
}

// GetPublicDirectory returns the path to public/static assets (implements cartridge.Config interface).
func (c *Config) GetPublicDirectory() string {
	return c.PublicDirectory
}

// GetAssetsPrefix returns the URL prefix for static assets (implements cartridge.Config interface).
func (c *Config) GetAssetsPrefix() string {
	return c.PublicAssetsUrlPrefix
}

// GetAppName returns the application name (implements cartridge.FactoryConfig interface).
func (c *Config) GetAppName() string {
	return c.AppName
}

// DatabaseDSN returns the database connection string (implements cartridge.FactoryConfig interface).
func (c *Config) DatabaseDSN() string {
	return c.GetDatabasePath()
}

// GetSessionSecret returns the session encryption key (implements cartridge.FactoryConfig interface).
func (c *Config) GetSessionSecret() string {
	return c.PrivateKey
}

// GetLoginSessionTimeout returns the login session timeout in seconds.
// Used for admin login cookie duration.
func (c *Config) GetLoginSessionTimeout() int {
	return c.LoginSessionTimeoutSeconds
}

// GetMaxOpenConns returns the appropriate MaxOpenConns value based on environment
// If explicitly set via env var, uses that value. Otherwise:
// - Test: 1 (required for E2E test stability)
// - Development/Production: 10 (allows concurrent reads for parallel dashboard queries)
func (c *Config) GetMaxOpenConns() int {
	if c.DatabaseMaxOpenConns > 0 {
		return c.DatabaseMaxOpenConns
	}

	if c.Environment == Test {
		return 1 // Required for E2E test stability
	}

	return 10 // Higher concurrency for development and production
}

// GetMaxIdleConns returns the appropriate MaxIdleConns value based on environment
// If explicitly set via env var, uses that value. Otherwise:
// - Test: 1 (matches MaxOpenConns for test stability)
// - Development/Production: 5 (keep half the connections warm for reuse)
func (c *Config) GetMaxIdleConns() int {
	if c.DatabaseMaxIdleConns > 0 {
		return c.DatabaseMaxIdleConns
	}

	if c.Environment == Test {
		return 1 // Matches MaxOpenConns for test stability
	}

	return 5 // Keep half the pool warm for development and production
}

// GetLogLevel returns the log level as a string (implements cartridge.LogConfigProvider).
func (c *Config) GetLogLevel() string {
	return string(c.LogLevel)
}

// GetLogDirectory returns the logs directory (implements cartridge.LogConfigProvider).
func (c *Config) GetLogDirectory() string {
	return c.LogsDirectory
}

// GetLogMaxSizeMB returns the max log file size in MB (implements cartridge.LogConfigProvider).
func (c *Config) GetLogMaxSizeMB() int {
	return c.LogsMaxSizeInMb
}

// GetLogMaxBackups returns the max number of log backups (implements cartridge.LogConfigProvider).
func (c *Config) GetLogMaxBackups() int {
	return c.LogsMaxBackups
}

// GetLogMaxAgeDays returns the max age in days for log files (implements cartridge.LogConfigProvider).
func (c *Config) GetLogMaxAgeDays() int {
	return c.LogsMaxAgeInDays
}

// Reset clears the cached configuration; intended for tests.
func Reset() {
	once = sync.Once{}
	cfg = nil
}
