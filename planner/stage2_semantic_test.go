package planner

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/storydaemon/storydaemon/index"
	"github.com/storydaemon/storydaemon/memory"
)

func newTestStoreAndIndex(t *testing.T) (*memory.Store, *index.Adapter) {
	t.Helper()
	root := t.TempDir()
	store := memory.NewStore(root)
	if err := store.EnsureDirs(); err != nil {
		t.Fatalf("EnsureDirs: %v", err)
	}
	backing, err := index.NewSQLiteStore(filepath.Join(root, "index.db"), nil)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { _ = backing.Close() })
	return store, index.New(backing)
}

func TestTopKByKeywordOverlapRanksHigherOverlapFirst(t *testing.T) {
	loops := []memory.OpenLoop{
		{Record: memory.Record{ID: "OL0"}, Category: "mystery", Description: "who stole the conduit schematics"},
		{Record: memory.Record{ID: "OL1"}, Category: "romance", Description: "Elena and Marcus unresolved tension"},
	}
	top := topKByKeywordOverlap(loops, "the conduit schematics were stolen", 1)
	if len(top) != 1 || top[0].ID != "OL0" {
		t.Fatalf("expected OL0 to rank first, got %+v", top)
	}
}

func TestGatherSemanticContextLoadsProtagonistRelationships(t *testing.T) {
	store, idx := newTestStoreAndIndex(t)

	now := time.Now()
	c0 := &memory.Character{Record: memory.Record{ID: "C0", Type: memory.KindCharacter, CreatedAt: now, UpdatedAt: now}, FirstName: "Elena"}
	c1 := &memory.Character{Record: memory.Record{ID: "C1", Type: memory.KindCharacter, CreatedAt: now, UpdatedAt: now}, FirstName: "Marcus"}
	if err := store.Save(memory.KindCharacter, "C0", c0); err != nil {
		t.Fatalf("Save C0: %v", err)
	}
	if err := store.Save(memory.KindCharacter, "C1", c1); err != nil {
		t.Fatalf("Save C1: %v", err)
	}
	rels, err := memory.AddRelationship(nil, memory.Relationship{CharacterA: "C0", CharacterB: "C1", RelationshipType: "allies"},
		func(id string) bool { return store.Exists(memory.KindCharacter, id) })
	if err != nil {
		t.Fatalf("AddRelationship: %v", err)
	}
	if err := store.SaveRelationships(rels); err != nil {
		t.Fatalf("SaveRelationships: %v", err)
	}

	result, err := GatherSemanticContext(context.Background(), store, idx, "Elena confronts Marcus", 5, "C0")
	if err != nil {
		t.Fatalf("GatherSemanticContext: %v", err)
	}
	if len(result.ProtagonistRelationships) != 1 {
		t.Fatalf("expected 1 protagonist relationship, got %d", len(result.ProtagonistRelationships))
	}
}
