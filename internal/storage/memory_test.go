package storage

import (
	"context"
	"errors"
	"reflect"
	"testing"

	apperrors "github.com/pathlearn/pathlearn-backend/internal/pkg/errors"
)

func TestMemoryStorePutGet(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	if err := store.Put(ctx, "scenarios/a.json", []byte(`{"id":"a"}`)); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	data, err := store.Get(ctx, "scenarios/a.json")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(data) != `{"id":"a"}` {
		t.Fatalf("unexpected blob: %s", data)
	}
}

func TestMemoryStoreGetMissing(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	_, err := store.Get(ctx, "scenarios/missing.json")
	if err == nil {
		t.Fatal("expected error for missing key")
	}
	if !IsNotFound(err) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("NotFoundError should match ErrNotFound, got %v", err)
	}
}

func TestMemoryStoreDelete(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	if err := store.Put(ctx, "tasks/t1.json", []byte("{}")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	removed, err := store.Delete(ctx, "tasks/t1.json")
	if err != nil || !removed {
		t.Fatalf("Delete = (%v, %v), want (true, nil)", removed, err)
	}
	removed, err = store.Delete(ctx, "tasks/t1.json")
	if err != nil || removed {
		t.Fatalf("second Delete = (%v, %v), want (false, nil)", removed, err)
	}
}

func TestMemoryStoreListKeysPrefix(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	for _, key := range []string{"programs/b.json", "programs/a.json", "tasks/c.json"} {
		if err := store.Put(ctx, key, []byte("{}")); err != nil {
			t.Fatalf("Put %q failed: %v", key, err)
		}
	}

	keys, err := store.ListKeys(ctx, "programs/")
	if err != nil {
		t.Fatalf("ListKeys failed: %v", err)
	}
	want := []string{"programs/a.json", "programs/b.json"}
	if !reflect.DeepEqual(keys, want) {
		t.Fatalf("ListKeys = %v, want %v", keys, want)
	}
}

func TestMemoryStorePutCopiesData(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	buf := []byte(`{"id":"x"}`)
	if err := store.Put(ctx, "k", buf); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	buf[0] = '!'

	data, err := store.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(data) != `{"id":"x"}` {
		t.Fatalf("stored blob was mutated: %s", data)
	}
}
