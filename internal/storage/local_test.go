package storage

import (
	"context"
	"os"
	"strings"
	"testing"
)

func newLocalStore(t *testing.T) *LocalStore {
	t.Helper()

	store, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStore returned error: %v", err)
	}
	return store
}

func TestLocalStoreRoundTrip(t *testing.T) {
	store := newLocalStore(t)
	ctx := context.Background()

	url, err := store.Store(ctx, "covers/1_abcd1234.png", []byte("image bytes"), "image/png")
	if err != nil {
		t.Fatalf("Store returned error: %v", err)
	}
	if !strings.HasPrefix(url, localURLPrefix) {
		t.Errorf("url %q missing local prefix", url)
	}

	path := strings.TrimPrefix(url, localURLPrefix)
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading stored object: %v", err)
	}
	if string(data) != "image bytes" {
		t.Errorf("stored data = %q", data)
	}

	if err := store.Delete(ctx, url); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("object still exists after delete")
	}
}

func TestLocalStoreDeleteMissingObjectIsNoop(t *testing.T) {
	store := newLocalStore(t)

	if err := store.Delete(context.Background(), localURLPrefix+store.root+"/missing.png"); err != nil {
		t.Errorf("Delete of missing object returned error: %v", err)
	}
}

func TestLocalStoreRejectsTraversalKey(t *testing.T) {
	store := newLocalStore(t)

	if _, err := store.Store(context.Background(), "../escape.png", []byte("x"), "image/png"); err == nil {
		t.Fatal("expected error for traversal key")
	}
}

func TestLocalStoreRejectsForeignURL(t *testing.T) {
	store := newLocalStore(t)

	if err := store.Delete(context.Background(), "https://example.com/object.png"); err == nil {
		t.Fatal("expected error for non-local url")
	}
}

func TestLocalStoreRejectsEmptyData(t *testing.T) {
	store := newLocalStore(t)

	if _, err := store.Store(context.Background(), "covers/1.png", nil, "image/png"); err == nil {
		t.Fatal("expected error for empty data")
	}
}
