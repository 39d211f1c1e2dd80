package tools

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/storydaemon/storydaemon/index"
	"github.com/storydaemon/storydaemon/memory"
)

func newTestDeps(t *testing.T) Deps {
	t.Helper()
	root := t.TempDir()
	store := memory.NewStore(root)
	if err := store.EnsureDirs(); err != nil {
		t.Fatalf("EnsureDirs: %v", err)
	}

	dbPath := filepath.Join(root, "index.db")
	backing, err := index.NewSQLiteStore(dbPath, nil)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { _ = backing.Close() })

	return Deps{Store: store, Index: index.New(backing)}
}

// TestToolExecutionHalt reproduces spec §8 Scenario C: memory.search and
// character.generate succeed, relationship.create referencing a
// nonexistent character halts the tick at action index 2.
func TestToolExecutionHalt(t *testing.T) {
	deps := newTestDeps(t)
	registry := NewRegistry(deps)
	executor := NewExecutor(registry)

	actions := []Action{
		{Tool: "memory.search", Args: map[string]any{"query": "ally"}},
		{Tool: "character.generate", Args: map[string]any{"name": "Dax"}},
		{Tool: "relationship.create", Args: map[string]any{"character_a": "C0", "character_b": "C999"}},
	}

	results, err := executor.Execute(context.Background(), actions)
	if err == nil {
		t.Fatalf("expected a halting error")
	}
	var haltErr *ToolHaltError
	if !errors.As(err, &haltErr) {
		t.Fatalf("expected *ToolHaltError, got %v", err)
	}
	if haltErr.Index != 2 {
		t.Fatalf("expected failing action index 2, got %d", haltErr.Index)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 accumulated results (2 success + 1 failure), got %d", len(results))
	}
	if !results[0].Success || !results[1].Success {
		t.Fatalf("expected first two actions to succeed: %+v", results[:2])
	}
	if results[2].Success {
		t.Fatalf("expected third action to have failed")
	}

	var orphanErr *memory.OrphanRelationshipError
	if !errors.As(err, &orphanErr) {
		t.Fatalf("expected underlying *memory.OrphanRelationshipError, got %v", err)
	}
}

func TestUnknownToolHalts(t *testing.T) {
	deps := newTestDeps(t)
	registry := NewRegistry(deps)
	executor := NewExecutor(registry)

	_, err := executor.Execute(context.Background(), []Action{{Tool: "nonexistent.tool"}})
	if err == nil {
		t.Fatalf("expected unknown-tool error")
	}
	var unknown *UnknownToolError
	if !errors.As(err, &unknown) {
		t.Fatalf("expected *UnknownToolError, got %v", err)
	}
}

func TestCharacterGenerateThenRelationshipCreateSucceeds(t *testing.T) {
	deps := newTestDeps(t)
	registry := NewRegistry(deps)
	executor := NewExecutor(registry)

	actions := []Action{
		{Tool: "character.generate", Args: map[string]any{"name": "Elena Thorne", "role": "protagonist"}},
		{Tool: "character.generate", Args: map[string]any{"name": "Marcus Vale"}},
		{Tool: "relationship.create", Args: map[string]any{
			"character_a": "C0", "character_b": "C1", "relationship_type": "allies",
		}},
	}

	results, err := executor.Execute(context.Background(), actions)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	for i, r := range results {
		if !r.Success {
			t.Fatalf("action %d expected to succeed: %+v", i, r)
		}
	}
}
