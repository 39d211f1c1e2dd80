package memory

import (
	"path/filepath"
	"testing"
)

func TestCharacterRoundTrip(t *testing.T) {
	store := NewStore(t.TempDir())

	id, err := store.NextID(KindCharacter)
	if err != nil {
		t.Fatalf("NextID: %v", err)
	}
	if id != "C0" {
		t.Fatalf("expected C0, got %s", id)
	}

	c := &Character{
		Record:      Record{ID: id, Type: KindCharacter},
		FirstName:   "Elena",
		FamilyName:  "Thorne",
		Role:        "protagonist",
		Description: "An archivist with a restless curiosity.",
	}
	if err := store.Save(KindCharacter, id, c); err != nil {
		t.Fatalf("Save: %v", err)
	}

	var loaded Character
	if err := store.Load(KindCharacter, id, &loaded); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.FirstName != c.FirstName || loaded.FamilyName != c.FamilyName {
		t.Fatalf("round trip mismatch: %+v vs %+v", loaded, c)
	}
	if loaded.FullName() != "Elena Thorne" {
		t.Fatalf("unexpected full name: %s", loaded.FullName())
	}
}

func TestNextIDMonotonicAndNeverReused(t *testing.T) {
	store := NewStore(t.TempDir())

	var ids []string
	for i := 0; i < 3; i++ {
		id, err := store.NextID(KindScene)
		if err != nil {
			t.Fatalf("NextID: %v", err)
		}
		ids = append(ids, id)
	}
	want := []string{"S000", "S001", "S002"}
	for i, id := range ids {
		if id != want[i] {
			t.Fatalf("index %d: want %s got %s", i, want[i], id)
		}
	}
}

func TestMaxNumericSuffixTracksDisk(t *testing.T) {
	store := NewStore(t.TempDir())
	id, _ := store.NextID(KindCharacter)
	c := &Character{Record: Record{ID: id, Type: KindCharacter}, FirstName: "Dax"}
	if err := store.Save(KindCharacter, id, c); err != nil {
		t.Fatalf("Save: %v", err)
	}

	max, err := store.MaxNumericSuffix(KindCharacter)
	if err != nil {
		t.Fatalf("MaxNumericSuffix: %v", err)
	}
	if max != 0 {
		t.Fatalf("expected max suffix 0 for C0, got %d", max)
	}
}

func TestLoadMissingReturnsNotFound(t *testing.T) {
	store := NewStore(t.TempDir())
	var c Character
	err := store.Load(KindCharacter, "C99", &c)
	if err == nil {
		t.Fatal("expected error")
	}
	if _, ok := err.(*NotFoundError); !ok {
		t.Fatalf("expected *NotFoundError, got %T", err)
	}
}

func TestRelationshipOrderIndependentLookup(t *testing.T) {
	rels := []Relationship{
		{Record: Record{ID: "R0"}, CharacterA: "C0", CharacterB: "C1", RelationshipType: "allies"},
	}
	r, ok := GetRelationshipBetween(rels, "C1", "C0")
	if !ok {
		t.Fatal("expected to find relationship regardless of argument order")
	}
	if r.RelationshipType != "allies" {
		t.Fatalf("unexpected relationship: %+v", r)
	}
}

func TestAddRelationshipRejectsOrphan(t *testing.T) {
	exists := func(id string) bool { return id == "C0" }
	_, err := AddRelationship(nil, Relationship{CharacterA: "C0", CharacterB: "C999"}, exists)
	if err == nil {
		t.Fatal("expected orphan relationship error")
	}
	if _, ok := err.(*OrphanRelationshipError); !ok {
		t.Fatalf("expected *OrphanRelationshipError, got %T", err)
	}
}

func TestResolveOpenLoopRequiresResolvedInScene(t *testing.T) {
	loops := []OpenLoop{{Record: Record{ID: "OL0"}, Status: OpenLoopOpen}}
	if !ResolveOpenLoop(loops, "OL0", "S003", "The letter was finally read.") {
		t.Fatal("expected resolution to succeed")
	}
	if loops[0].Status != OpenLoopResolved || loops[0].ResolvedInScene != "S003" {
		t.Fatalf("unexpected loop state: %+v", loops[0])
	}
}

func TestUnionMergeIdempotent(t *testing.T) {
	existing := []string{"lantern", "map"}
	merged := UnionMergeStrings(existing, []string{"map", "knife"})
	if len(merged) != 3 {
		t.Fatalf("expected 3 entries, got %d: %v", len(merged), merged)
	}
	mergedAgain := UnionMergeStrings(merged, []string{"map", "knife"})
	if len(mergedAgain) != 3 {
		t.Fatalf("expected idempotent merge, got %v", mergedAgain)
	}
}

func TestAtomicWriteProducesNoTempFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")
	if err := writeJSONAtomic(path, &ProjectState{NovelName: "Test"}); err != nil {
		t.Fatalf("writeJSONAtomic: %v", err)
	}
	if _, err := filepath.Glob(path + ".tmp"); err != nil {
		t.Fatalf("glob: %v", err)
	}
	matches, _ := filepath.Glob(path + ".tmp")
	if len(matches) != 0 {
		t.Fatalf("expected no leftover temp file, found %v", matches)
	}
}
