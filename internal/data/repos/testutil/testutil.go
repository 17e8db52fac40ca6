// Package testutil provides the shared fixtures for repo and service
// tests: a quiet logger and a fresh in-memory object store per test.
package testutil

import (
	"sync"
	"testing"

	"github.com/pathlearn/pathlearn-backend/internal/platform/logger"
	"github.com/pathlearn/pathlearn-backend/internal/storage"
)

var (
	logOnce sync.Once
	logg    *logger.Logger
	logErr  error
)

func Logger(tb testing.TB) *logger.Logger {
	tb.Helper()
	logOnce.Do(func() {
		logg, logErr = logger.New("test")
	})
	if logErr != nil {
		tb.Fatalf("failed to init logger: %v", logErr)
	}
	return logg
}

// Store returns an empty in-memory ObjectStore scoped to the test.
func Store(tb testing.TB) *storage.MemoryStore {
	tb.Helper()
	return storage.NewMemoryStore()
}
