// Package storage defines the key/blob object store contract the rest of
// the backend is built on, together with its concrete adapters (GCS, Redis,
// Postgres, in-memory). The contract is deliberately tiny: no queries, no
// transactions, no secondary indices. Anything relational is layered on top
// by internal/data.
package storage

import (
	"context"
	"errors"
	"fmt"

	apperrors "github.com/pathlearn/pathlearn-backend/internal/pkg/errors"
)

// ObjectStore is the flat key/blob contract every adapter implements.
// Keys are opaque slash-separated paths; ListKeys is a prefix scan and the
// only enumeration primitive available.
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte) error
	// Get returns the blob at key, or a *NotFoundError when the key is
	// absent.
	Get(ctx context.Context, key string) ([]byte, error)
	Exists(ctx context.Context, key string) (bool, error)
	// Delete reports whether a blob was actually removed. A missing key is
	// not an error.
	Delete(ctx context.Context, key string) (bool, error)
	ListKeys(ctx context.Context, prefix string) ([]string, error)
	Close() error
}

// NotFoundError reports an absent key. It matches apperrors.ErrNotFound via
// errors.Is so callers never switch on the adapter in use.
type NotFoundError struct {
	Key string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("object %q not found", e.Key)
}

func (e *NotFoundError) Is(target error) bool {
	return target == apperrors.ErrNotFound
}

// IsNotFound reports whether err is an absent-key error from any adapter.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

func storeErr(op, key string, err error) error {
	return fmt.Errorf("%s %q: %w: %w", op, key, apperrors.ErrStoreUnavailable, err)
}
