package app

import (
	"context"
	"fmt"
	"os"

	"github.com/pathlearn/pathlearn-backend/internal/observability"
	"github.com/pathlearn/pathlearn-backend/internal/platform/logger"
	"github.com/pathlearn/pathlearn-backend/internal/services"
	"github.com/pathlearn/pathlearn-backend/internal/storage"
)

// App owns the wired backend: the object store, the repositories and the
// services on top of them.
type App struct {
	Log      *logger.Logger
	Cfg      Config
	Store    storage.ObjectStore
	Repos    Repos
	Services Services

	otelShutdown func(context.Context) error
}

func New(ctx context.Context) (*App, error) {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	cfg := LoadConfig(log)

	otelShutdown := observability.InitOTel(ctx, log, observability.OtelConfig{
		ServiceName: "pathlearn-backend",
		Environment: cfg.Environment,
		Version:     cfg.Version,
	})

	store, err := resolveObjectStore(ctx, log, cfg)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	reposet := wireRepos(store, log, cfg)
	source := services.NewRepoQuestionSource(log, reposet.Scenarios)
	serviceset := wireServices(log, reposet, source)

	return &App{
		Log:          log,
		Cfg:          cfg,
		Store:        store,
		Repos:        reposet,
		Services:     serviceset,
		otelShutdown: otelShutdown,
	}, nil
}

func (a *App) Close(ctx context.Context) {
	if a == nil {
		return
	}
	if a.otelShutdown != nil {
		if err := a.otelShutdown(ctx); err != nil {
			a.Log.Warn("otel shutdown failed", "error", err)
		}
	}
	if a.Store != nil {
		if err := a.Store.Close(); err != nil {
			a.Log.Warn("object store close failed", "error", err)
		}
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
