package index

import (
	"context"
	"path/filepath"
	"testing"
)

func TestSQLiteStoreUpsertQueryKeyword(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "index.db")
	store, err := NewSQLiteStore(dbPath, nil)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.Upsert(ctx, CollectionCharacters, "C0", "Elena Thorne archivist restless curiosity", nil); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := store.Upsert(ctx, CollectionCharacters, "C1", "Marcus Vale soldier stoic guarded", nil); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	hits, err := store.Query(ctx, CollectionCharacters, "archivist curiosity", 5)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(hits) == 0 || hits[0].ID != "C0" {
		t.Fatalf("expected C0 to rank first, got %+v", hits)
	}
}

func TestAdapterIndexIsIdempotent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "index.db")
	backing, err := NewSQLiteStore(dbPath, nil)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	defer backing.Close()

	adapter := New(backing)
	ctx := context.Background()
	item := Indexable{Collection: CollectionLocations, ID: "L0", Text: "The Archive, dust and silence"}

	if err := adapter.Index(ctx, item); err != nil {
		t.Fatalf("Index: %v", err)
	}
	if err := adapter.Index(ctx, item); err != nil {
		t.Fatalf("Index (second call): %v", err)
	}

	hits, err := adapter.Search(ctx, CollectionLocations, "Archive", 5, nil)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 1 {
		t.Fatalf("expected exactly one hit after idempotent re-index, got %d: %+v", len(hits), hits)
	}
}

type failingAdapter struct{}

func (failingAdapter) Upsert(ctx context.Context, collection, id, text string, metadata map[string]string) error {
	return nil
}
func (failingAdapter) Query(ctx context.Context, collection, text string, k int) ([]Hit, error) {
	return nil, errQueryFailed
}
func (failingAdapter) Delete(ctx context.Context, collection, id string) error { return nil }

var errQueryFailed = &queryFailedError{}

type queryFailedError struct{}

func (*queryFailedError) Error() string { return "simulated backing query failure" }

func TestSearchFallsBackToRecencyOnFailure(t *testing.T) {
	adapter := New(failingAdapter{})
	fallback := []RecencyItem{
		{ID: "S000", Recency: 0},
		{ID: "S002", Recency: 2},
		{ID: "S001", Recency: 1},
	}
	hits, err := adapter.Search(context.Background(), CollectionScenes, "anything", 2, fallback)
	if err != nil {
		t.Fatalf("Search should tolerate backing failure: %v", err)
	}
	if len(hits) != 2 || hits[0].ID != "S002" || hits[1].ID != "S001" {
		t.Fatalf("expected recency-ordered fallback, got %+v", hits)
	}
}
