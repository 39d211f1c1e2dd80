// Package index implements the Semantic Index Adapter (spec §4.2): a thin
// wrapper over an external vector store that keeps per-entity-kind
// collections synchronized with the Entity Store, tolerating search
// failures by falling back to recency ordering.
package index

import (
	"context"
	"sort"
)

// Collection names — one per indexed entity kind (spec §4.2).
const (
	CollectionCharacters = "characters"
	CollectionLocations  = "locations"
	CollectionScenes     = "scenes"
	CollectionLore       = "lore"
)

// Hit is a single relevance-ordered search result.
type Hit struct {
	ID    string
	Score float64
}

// VectorAdapter is the external vector store contract (spec §6): the core
// never depends on a concrete vector database, only on this interface.
type VectorAdapter interface {
	Upsert(ctx context.Context, collection, id, text string, metadata map[string]string) error
	Query(ctx context.Context, collection, text string, k int) ([]Hit, error)
	Delete(ctx context.Context, collection, id string) error
}

// RecencyItem is a fallback candidate used when a search fails: id plus a
// monotonically increasing recency key (e.g. a tick number).
type RecencyItem struct {
	ID      string
	Recency int
}

// Adapter is the core-facing semantic index: per-kind collections backed
// by a VectorAdapter, with idempotent re-indexing and a recency fallback
// when the backing search fails (spec §4.2).
type Adapter struct {
	backing VectorAdapter
}

// New wraps a VectorAdapter as the core-facing semantic index.
func New(backing VectorAdapter) *Adapter {
	return &Adapter{backing: backing}
}

// Indexable is anything that can be canonically rendered to text for
// indexing along with id-bearing metadata.
type Indexable struct {
	Collection string
	ID         string
	Text       string
	Metadata   map[string]string
}

// Index upserts entity into its collection. Calling Index twice with the
// same Indexable is idempotent: the backing store uses id as the primary
// key, so the second call simply overwrites the first (spec §8 "Semantic
// re-index is idempotent").
func (a *Adapter) Index(ctx context.Context, item Indexable) error {
	return a.backing.Upsert(ctx, item.Collection, item.ID, item.Text, item.Metadata)
}

// Delete removes an entity from its collection's index.
func (a *Adapter) Delete(ctx context.Context, collection, id string) error {
	return a.backing.Delete(ctx, collection, id)
}

// Search returns up to k relevance-ordered ids for query in collection. On
// backing-store failure, it falls back to fallback ordered by recency
// (most recent first) instead of propagating the error — the core
// tolerates search failures (spec §4.2).
func (a *Adapter) Search(ctx context.Context, collection, query string, k int, fallback []RecencyItem) ([]Hit, error) {
	hits, err := a.backing.Query(ctx, collection, query, k)
	if err == nil {
		return hits, nil
	}
	return recencyFallback(fallback, k), nil
}

func recencyFallback(items []RecencyItem, k int) []Hit {
	sorted := append([]RecencyItem(nil), items...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Recency > sorted[j].Recency })
	if k > len(sorted) {
		k = len(sorted)
	}
	out := make([]Hit, 0, k)
	for i := 0; i < k; i++ {
		out = append(out, Hit{ID: sorted[i].ID, Score: 0})
	}
	return out
}
