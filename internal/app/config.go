package app

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/pathlearn/pathlearn-backend/internal/platform/envutil"
	"github.com/pathlearn/pathlearn-backend/internal/platform/logger"
)

type Config struct {
	Environment string
	Version     string
	ListTTL     time.Duration

	StorageMode         string
	GCSBucket           string
	StorageEmulatorHost string
	RedisURL            string
	PostgresURL         string
}

// fileConfig is the YAML shape; durations are strings ("5m").
type fileConfig struct {
	Environment         string `yaml:"environment"`
	Version             string `yaml:"version"`
	ListTTL             string `yaml:"listTTL"`
	StorageMode         string `yaml:"storageMode"`
	GCSBucket           string `yaml:"gcsBucket"`
	StorageEmulatorHost string `yaml:"storageEmulatorHost"`
	RedisURL            string `yaml:"redisURL"`
	PostgresURL         string `yaml:"postgresURL"`
}

// LoadConfig reads configuration from the environment, with an optional YAML
// file (CONFIG_FILE) supplying defaults. Environment variables win.
func LoadConfig(log *logger.Logger) Config {
	cfg := Config{
		Environment: "development",
		ListTTL:     5 * time.Minute,
		StorageMode: "memory",
	}
	if path := envutil.String("CONFIG_FILE", ""); path != "" {
		if err := loadConfigFile(path, &cfg); err != nil {
			log.Warn("config file load failed, using environment only", "path", path, "error", err)
		} else {
			log.Info("loaded config file", "path", path)
		}
	}

	cfg.Environment = envutil.String("APP_ENV", cfg.Environment)
	cfg.Version = envutil.String("APP_VERSION", cfg.Version)
	cfg.ListTTL = envutil.Duration("REPO_LIST_TTL", cfg.ListTTL)
	cfg.StorageMode = envutil.String("STORAGE_MODE", cfg.StorageMode)
	cfg.GCSBucket = envutil.String("GCS_BUCKET", cfg.GCSBucket)
	cfg.StorageEmulatorHost = envutil.String("STORAGE_EMULATOR_HOST", cfg.StorageEmulatorHost)
	cfg.RedisURL = envutil.String("REDIS_URL", cfg.RedisURL)
	cfg.PostgresURL = envutil.String("DATABASE_URL", cfg.PostgresURL)
	return cfg
}

func loadConfigFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	if fc.Environment != "" {
		cfg.Environment = fc.Environment
	}
	if fc.Version != "" {
		cfg.Version = fc.Version
	}
	if fc.ListTTL != "" {
		ttl, err := time.ParseDuration(fc.ListTTL)
		if err != nil {
			return fmt.Errorf("parse listTTL %q: %w", fc.ListTTL, err)
		}
		cfg.ListTTL = ttl
	}
	if fc.StorageMode != "" {
		cfg.StorageMode = fc.StorageMode
	}
	if fc.GCSBucket != "" {
		cfg.GCSBucket = fc.GCSBucket
	}
	if fc.StorageEmulatorHost != "" {
		cfg.StorageEmulatorHost = fc.StorageEmulatorHost
	}
	if fc.RedisURL != "" {
		cfg.RedisURL = fc.RedisURL
	}
	if fc.PostgresURL != "" {
		cfg.PostgresURL = fc.PostgresURL
	}
	return nil
}
