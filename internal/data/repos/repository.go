// Package repos layers typed CRUD over the flat object store. Each entity
// kind owns exactly one key prefix and never touches another kind's prefix;
// cross-entity consistency belongs to the services on top.
package repos

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"

	apperrors "github.com/pathlearn/pathlearn-backend/internal/pkg/errors"
	"github.com/pathlearn/pathlearn-backend/internal/platform/logger"
	"github.com/pathlearn/pathlearn-backend/internal/storage"
	"github.com/pathlearn/pathlearn-backend/internal/types"
)

// DefaultListTTL bounds staleness of the cached full listing. Writes from
// this process invalidate immediately; writes from other processes become
// visible within the TTL.
const DefaultListTTL = 5 * time.Minute

const listCacheKey = "all"

// Repository implements generic CRUD + listing for one entity kind. The
// store has no query language, so every predicate lookup runs over the
// cached full listing; relationship queries that must be cheaper than that
// belong to the index store.
type Repository[T types.Record] struct {
	store    storage.ObjectStore
	log      *logger.Logger
	kind     string
	basePath string
	newFn    func() T
	// defaults stamps kind-specific initial state on create (e.g. a new
	// Program starts active with an empty task list).
	defaults func(T)

	cache *expirable.LRU[string, []T]
	group singleflight.Group
}

func NewRepository[T types.Record](store storage.ObjectStore, log *logger.Logger, kind, basePath string, ttl time.Duration, newFn func() T, defaults func(T)) *Repository[T] {
	if ttl <= 0 {
		ttl = DefaultListTTL
	}
	return &Repository[T]{
		store:    store,
		log:      log.With("repo", kind),
		kind:     kind,
		basePath: basePath,
		newFn:    newFn,
		defaults: defaults,
		cache:    expirable.NewLRU[string, []T](1, nil, ttl),
	}
}

func (r *Repository[T]) key(id string) string {
	return r.basePath + id + ".json"
}

// Create assigns a fresh id, stamps timestamps and kind defaults, persists
// the record and invalidates the list cache.
func (r *Repository[T]) Create(ctx context.Context, entity T) (T, error) {
	var zero T
	entity.SetRecordID(uuid.NewString())
	entity.StampNew(time.Now().UTC())
	if r.defaults != nil {
		r.defaults(entity)
	}
	if err := r.save(ctx, entity); err != nil {
		return zero, err
	}
	r.cache.Remove(listCacheKey)
	return entity, nil
}

// FindByID returns the zero value (nil for pointer kinds) without an error
// when the id is absent.
func (r *Repository[T]) FindByID(ctx context.Context, id string) (T, error) {
	var zero T
	data, err := r.store.Get(ctx, r.key(id))
	if err != nil {
		if storage.IsNotFound(err) {
			return zero, nil
		}
		return zero, err
	}
	entity := r.newFn()
	if err := json.Unmarshal(data, entity); err != nil {
		return zero, fmt.Errorf("decode %s %q: %w: %w", r.kind, id, apperrors.ErrParseFailure, err)
	}
	return entity, nil
}

// ListAll returns every record of the kind via a read-through cache.
// Concurrent cache misses collapse into a single store scan. A record that
// fails to decode is logged and skipped; it never aborts the listing.
func (r *Repository[T]) ListAll(ctx context.Context) ([]T, error) {
	if cached, ok := r.cache.Get(listCacheKey); ok {
		return cached, nil
	}
	v, err, _ := r.group.Do(listCacheKey, func() (interface{}, error) {
		entities, err := r.scan(ctx)
		if err != nil {
			return nil, err
		}
		r.cache.Add(listCacheKey, entities)
		return entities, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]T), nil
}

func (r *Repository[T]) scan(ctx context.Context) ([]T, error) {
	keys, err := r.store.ListKeys(ctx, r.basePath)
	if err != nil {
		return nil, err
	}
	entities := make([]T, 0, len(keys))
	for _, k := range keys {
		data, err := r.store.Get(ctx, k)
		if err != nil {
			if storage.IsNotFound(err) {
				// Deleted between list and get.
				continue
			}
			return nil, err
		}
		entity := r.newFn()
		if err := json.Unmarshal(data, entity); err != nil {
			r.log.Warn("Skipping undecodable record", "key", k, "error", err)
			continue
		}
		entities = append(entities, entity)
	}
	return entities, nil
}

// FindWhere filters the cached full listing.
func (r *Repository[T]) FindWhere(ctx context.Context, pred func(T) bool) ([]T, error) {
	all, err := r.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	var out []T
	for _, e := range all {
		if pred(e) {
			out = append(out, e)
		}
	}
	return out, nil
}

// Update load-merges the partial into the stored record and saves. The id
// field cannot be overwritten. Fails with ErrNotFound when the id does not
// exist.
func (r *Repository[T]) Update(ctx context.Context, id string, updates map[string]any) (T, error) {
	var zero T
	existing, err := r.FindByID(ctx, id)
	if err != nil {
		return zero, err
	}
	if isNil(existing) {
		return zero, fmt.Errorf("%s %q: %w", r.kind, id, apperrors.ErrNotFound)
	}

	raw, err := json.Marshal(existing)
	if err != nil {
		return zero, fmt.Errorf("encode %s %q: %w", r.kind, id, err)
	}
	var merged map[string]any
	if err := json.Unmarshal(raw, &merged); err != nil {
		return zero, fmt.Errorf("merge %s %q: %w", r.kind, id, err)
	}
	for k, v := range updates {
		if k == "id" {
			continue
		}
		merged[k] = v
	}
	mergedRaw, err := json.Marshal(merged)
	if err != nil {
		return zero, fmt.Errorf("merge %s %q: %w", r.kind, id, err)
	}
	updated := r.newFn()
	if err := json.Unmarshal(mergedRaw, updated); err != nil {
		return zero, fmt.Errorf("merge %s %q: %w: %w", r.kind, id, apperrors.ErrInvalidArgument, err)
	}
	updated.SetRecordID(id)
	updated.StampUpdated(time.Now().UTC())

	if err := r.save(ctx, updated); err != nil {
		return zero, err
	}
	r.cache.Remove(listCacheKey)
	return updated, nil
}

// Delete is best-effort: a missing key returns false, not an error.
func (r *Repository[T]) Delete(ctx context.Context, id string) (bool, error) {
	removed, err := r.store.Delete(ctx, r.key(id))
	if err != nil {
		return false, err
	}
	if removed {
		r.cache.Remove(listCacheKey)
	}
	return removed, nil
}

// LoadMany performs batch point lookups. Misses are dropped, so the result
// may be shorter than ids; callers needing strict presence must check.
func (r *Repository[T]) LoadMany(ctx context.Context, ids []string) ([]T, error) {
	out := make([]T, 0, len(ids))
	for _, id := range ids {
		entity, err := r.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if isNil(entity) {
			continue
		}
		out = append(out, entity)
	}
	return out, nil
}

// isNil reports whether a FindByID result is the "absent" zero value. All
// entity kinds are pointer types, so the zero value is a nil pointer.
func isNil[T types.Record](e T) bool {
	var zero T
	return any(e) == any(zero)
}

func (r *Repository[T]) save(ctx context.Context, entity T) error {
	data, err := json.MarshalIndent(entity, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s %q: %w", r.kind, entity.RecordID(), err)
	}
	return r.store.Put(ctx, r.key(entity.RecordID()), data)
}
