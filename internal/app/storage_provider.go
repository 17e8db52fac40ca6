package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/pathlearn/pathlearn-backend/internal/platform/logger"
	"github.com/pathlearn/pathlearn-backend/internal/storage"
)

// Supported STORAGE_MODE values.
const (
	StorageModeMemory      = "memory"
	StorageModeRedis       = "redis"
	StorageModePostgres    = "postgres"
	StorageModeGCS         = "gcs"
	StorageModeGCSEmulator = "gcs_emulator"
)

type StorageBootstrapErrorCode string

const (
	StorageBootstrapErrorInvalidMode         StorageBootstrapErrorCode = "invalid_mode"
	StorageBootstrapErrorMissingBucket       StorageBootstrapErrorCode = "missing_bucket"
	StorageBootstrapErrorMissingEmulatorHost StorageBootstrapErrorCode = "missing_emulator_host"
	StorageBootstrapErrorMissingURL          StorageBootstrapErrorCode = "missing_url"
	StorageBootstrapErrorConnectFailed       StorageBootstrapErrorCode = "connect_failed"
)

type StorageBootstrapError struct {
	Code  StorageBootstrapErrorCode
	Mode  string
	Cause error
}

func (e *StorageBootstrapError) Error() string {
	if e == nil {
		return "object storage bootstrap failed"
	}
	return fmt.Sprintf("object storage bootstrap failed (code=%s mode=%q): %v", e.Code, e.Mode, e.Cause)
}

func (e *StorageBootstrapError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// resolveObjectStore builds the ObjectStore for the configured mode and wraps
// it with tracing. Bootstrap failures come back as *StorageBootstrapError so
// the caller can log a stable error code.
func resolveObjectStore(ctx context.Context, log *logger.Logger, cfg Config) (storage.ObjectStore, error) {
	mode := strings.TrimSpace(strings.ToLower(cfg.StorageMode))
	log.Info("selecting object storage provider", "mode", mode)

	var (
		inner storage.ObjectStore
		err   error
	)
	switch mode {
	case StorageModeMemory, "":
		mode = StorageModeMemory
		inner = storage.NewMemoryStore()
	case StorageModeRedis:
		if cfg.RedisURL == "" {
			return nil, bootstrapErr(StorageBootstrapErrorMissingURL, mode, fmt.Errorf("REDIS_URL is required for redis mode"))
		}
		inner, err = storage.NewRedisStore(ctx, log, cfg.RedisURL)
	case StorageModePostgres:
		if cfg.PostgresURL == "" {
			return nil, bootstrapErr(StorageBootstrapErrorMissingURL, mode, fmt.Errorf("DATABASE_URL is required for postgres mode"))
		}
		inner, err = storage.NewPostgresStore(ctx, log, cfg.PostgresURL)
	case StorageModeGCS:
		if cfg.GCSBucket == "" {
			return nil, bootstrapErr(StorageBootstrapErrorMissingBucket, mode, fmt.Errorf("GCS_BUCKET is required for gcs mode"))
		}
		inner, err = storage.NewGCSStore(ctx, log, storage.GCSConfig{Bucket: cfg.GCSBucket})
	case StorageModeGCSEmulator:
		if cfg.GCSBucket == "" {
			return nil, bootstrapErr(StorageBootstrapErrorMissingBucket, mode, fmt.Errorf("GCS_BUCKET is required for gcs_emulator mode"))
		}
		if cfg.StorageEmulatorHost == "" {
			return nil, bootstrapErr(StorageBootstrapErrorMissingEmulatorHost, mode, fmt.Errorf("STORAGE_EMULATOR_HOST is required for gcs_emulator mode"))
		}
		inner, err = storage.NewGCSStore(ctx, log, storage.GCSConfig{
			Bucket:       cfg.GCSBucket,
			EmulatorHost: cfg.StorageEmulatorHost,
		})
	default:
		return nil, bootstrapErr(StorageBootstrapErrorInvalidMode, mode, fmt.Errorf("unsupported storage mode %q", mode))
	}
	if err != nil {
		return nil, bootstrapErr(StorageBootstrapErrorConnectFailed, mode, err)
	}

	log.Info("object storage provider ready", "mode", mode)
	return storage.Traced(mode, inner), nil
}

func bootstrapErr(code StorageBootstrapErrorCode, mode string, cause error) *StorageBootstrapError {
	return &StorageBootstrapError{Code: code, Mode: mode, Cause: cause}
}
