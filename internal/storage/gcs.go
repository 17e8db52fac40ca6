package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/pathlearn/pathlearn-backend/internal/platform/gcp"
	"github.com/pathlearn/pathlearn-backend/internal/platform/logger"
)

const (
	gcsWriteTimeout = 2 * time.Minute
	gcsReadTimeout  = 30 * time.Second
)

// GCSStore is the production ObjectStore, one bucket per deployment.
type GCSStore struct {
	log    *logger.Logger
	client *gcs.Client
	bucket string
}

type GCSConfig struct {
	Bucket       string
	EmulatorHost string
}

func NewGCSStore(ctx context.Context, log *logger.Logger, cfg GCSConfig) (*GCSStore, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, fmt.Errorf("missing GCS bucket name")
	}

	var opts []option.ClientOption
	if host := strings.TrimSpace(cfg.EmulatorHost); host != "" {
		_ = os.Setenv("STORAGE_EMULATOR_HOST", strings.TrimRight(host, "/"))
		opts = []option.ClientOption{option.WithoutAuthentication()}
	} else {
		opts = gcp.ClientOptionsFromEnv()
		opts = append(opts, option.WithScopes(gcs.ScopeReadWrite))
	}

	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	return &GCSStore{
		log:    log.With("store", "GCSStore", "bucket", cfg.Bucket),
		client: client,
		bucket: cfg.Bucket,
	}, nil
}

func (s *GCSStore) Put(ctx context.Context, key string, data []byte) error {
	ctx, cancel := context.WithTimeout(ctx, gcsWriteTimeout)
	defer cancel()

	w := s.client.Bucket(s.bucket).Object(key).NewWriter(ctx)
	w.ContentType = "application/json"
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return storeErr("put", key, err)
	}
	if err := w.Close(); err != nil {
		return storeErr("put", key, err)
	}
	return nil
}

func (s *GCSStore) Get(ctx context.Context, key string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, gcsReadTimeout)
	defer cancel()

	r, err := s.client.Bucket(s.bucket).Object(key).NewReader(ctx)
	if err != nil {
		if errors.Is(err, gcs.ErrObjectNotExist) {
			return nil, &NotFoundError{Key: key}
		}
		return nil, storeErr("get", key, err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, storeErr("get", key, err)
	}
	return data, nil
}

func (s *GCSStore) Exists(ctx context.Context, key string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, gcsReadTimeout)
	defer cancel()

	_, err := s.client.Bucket(s.bucket).Object(key).Attrs(ctx)
	if err != nil {
		if errors.Is(err, gcs.ErrObjectNotExist) {
			return false, nil
		}
		return false, storeErr("stat", key, err)
	}
	return true, nil
}

func (s *GCSStore) Delete(ctx context.Context, key string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, gcsReadTimeout)
	defer cancel()

	err := s.client.Bucket(s.bucket).Object(key).Delete(ctx)
	if err != nil {
		if errors.Is(err, gcs.ErrObjectNotExist) {
			return false, nil
		}
		return false, storeErr("delete", key, err)
	}
	return true, nil
}

func (s *GCSStore) ListKeys(ctx context.Context, prefix string) ([]string, error) {
	it := s.client.Bucket(s.bucket).Objects(ctx, &gcs.Query{Prefix: prefix})
	var keys []string
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, storeErr("list", prefix, err)
		}
		keys = append(keys, attrs.Name)
	}
	return keys, nil
}

func (s *GCSStore) Close() error {
	return s.client.Close()
}
