package tools

import (
	"context"
	"fmt"

	"github.com/storydaemon/storydaemon/index"
	"github.com/storydaemon/storydaemon/memory"
)

// memorySearchTool implements memory.search: a semantic query over one of
// the four indexed collections, falling back to recency ordering when the
// backing vector store fails (spec §4.2).
type memorySearchTool struct{ deps Deps }

func (t *memorySearchTool) Name() string { return "memory.search" }

func (t *memorySearchTool) Execute(ctx context.Context, args map[string]any) (any, error) {
	query, err := argString(args, "query")
	if err != nil {
		return nil, err
	}
	collection := argStringOpt(args, "kind")
	if collection == "" {
		collection = index.CollectionScenes
	}
	k := argIntOpt(args, "k", 5)

	fallback, err := t.recencyFallback(collection)
	if err != nil {
		return nil, err
	}

	hits, err := t.deps.Index.Search(ctx, collection, query, k, fallback)
	if err != nil {
		return nil, fmt.Errorf("tools: memory.search: %w", err)
	}
	return hits, nil
}

// recencyFallback builds a recency ordering from the store's on-disk ids
// for collection, since the store has no notion of "tick" for every kind
// — ids allocate monotonically, so numeric suffix order is recency order.
func (t *memorySearchTool) recencyFallback(collection string) ([]index.RecencyItem, error) {
	var kind memory.Kind
	switch collection {
	case index.CollectionCharacters:
		kind = memory.KindCharacter
	case index.CollectionLocations:
		kind = memory.KindLocation
	case index.CollectionScenes:
		kind = memory.KindScene
	case index.CollectionLore:
		kind = memory.KindLore
	default:
		return nil, fmt.Errorf("tools: memory.search: unknown collection %q", collection)
	}

	ids, err := t.deps.Store.ListIDs(kind)
	if err != nil {
		return nil, err
	}
	items := make([]index.RecencyItem, 0, len(ids))
	for i, id := range ids {
		items = append(items, index.RecencyItem{ID: id, Recency: i})
	}
	return items, nil
}
