package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"homecook-api/catalog"
	"homecook-api/store"

	"github.com/glebarez/sqlite"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DefaultJWTSecret is only meant for local development
const DefaultJWTSecret = "homecook_dev_secret_change_me"

type Config struct {
	Port                string        `yaml:"port"`
	GinMode             string        `yaml:"gin_mode"`
	DBPath              string        `yaml:"db_path"`
	JWTSecret           string        `yaml:"jwt_secret"`
	TokenTTL            time.Duration `yaml:"token_ttl"`
	RedisURL            string        `yaml:"redis_url"`
	RedisNamespace      string        `yaml:"redis_namespace"`
	LogLevel            string        `yaml:"log_level"`
	LogFormat           string        `yaml:"log_format"`
	SearchRadiusMeters  float64       `yaml:"search_radius_meters"`
	CatalogMode         catalog.Mode  `yaml:"catalog_mode"`
	CatalogPollInterval time.Duration `yaml:"catalog_poll_interval"`
	SeedSampleData      bool          `yaml:"seed_sample_data"`
}

func Default() Config {
	return Config{
		Port:               "8080",
		GinMode:            "debug",
		DBPath:             "homecook.db",
		JWTSecret:          DefaultJWTSecret,
		TokenTTL:           24 * time.Hour,
		RedisNamespace:     "homecook",
		LogLevel:           "info",
		LogFormat:          "text",
		SearchRadiusMeters: 5000,
		CatalogMode:        catalog.ModePush,
		SeedSampleData:     true,
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// Load reads defaults, then the YAML file named by HOMECOOK_CONFIG if set,
// then environment overrides.
func Load() (Config, error) {
	cfg := Default()
	if path := os.Getenv("HOMECOOK_CONFIG"); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.GinMode = getEnv("GIN_MODE", cfg.GinMode)
	cfg.DBPath = getEnv("DB_PATH", cfg.DBPath)
	cfg.JWTSecret = getEnv("JWT_SECRET", cfg.JWTSecret)
	cfg.RedisURL = getEnv("REDIS_URL", cfg.RedisURL)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = getEnv("LOG_FORMAT", cfg.LogFormat)
	cfg.CatalogMode = catalog.Mode(getEnv("CATALOG_MODE", string(cfg.CatalogMode)))

	var err error
	if v := os.Getenv("SEARCH_RADIUS_METERS"); v != "" {
		if cfg.SearchRadiusMeters, err = strconv.ParseFloat(v, 64); err != nil {
			return cfg, fmt.Errorf("SEARCH_RADIUS_METERS: %w", err)
		}
	}
	if v := os.Getenv("CATALOG_POLL_INTERVAL"); v != "" {
		if cfg.CatalogPollInterval, err = time.ParseDuration(v); err != nil {
			return cfg, fmt.Errorf("CATALOG_POLL_INTERVAL: %w", err)
		}
	}
	if v := os.Getenv("SEED_SAMPLE_DATA"); v != "" {
		if cfg.SeedSampleData, err = strconv.ParseBool(v); err != nil {
			return cfg, fmt.Errorf("SEED_SAMPLE_DATA: %w", err)
		}
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("port is required")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("jwt secret is required")
	}
	if c.SearchRadiusMeters <= 0 {
		return fmt.Errorf("search radius must be positive, got %v", c.SearchRadiusMeters)
	}
	if c.CatalogMode != catalog.ModePush && c.CatalogMode != catalog.ModePull {
		return fmt.Errorf("catalog mode must be push or pull, got %q", c.CatalogMode)
	}
	if c.CatalogPollInterval < 0 {
		return fmt.Errorf("catalog poll interval must not be negative")
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("log format must be text or json, got %q", c.LogFormat)
	}
	return nil
}

// NewLogger builds the process logger
func NewLogger(c Config) *logrus.Logger {
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	var formatter logrus.Formatter = &logrus.TextFormatter{DisableLevelTruncation: true, FullTimestamp: true}
	if c.LogFormat == "json" {
		formatter = &logrus.JSONFormatter{}
	}
	return &logrus.Logger{
		Out:       os.Stdout,
		Formatter: formatter,
		Hooks:     make(logrus.LevelHooks),
		Level:     level,
	}
}

// OpenDB connects to the sqlite database and migrates every model
func OpenDB(c Config, log logrus.FieldLogger) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(c.DBPath), &gorm.Config{
		Logger: logger.New(log.WithField("component", "gorm"), logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := store.AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	log.WithField("path", c.DBPath).Info("Database connected and migrated")
	return db, nil
}
