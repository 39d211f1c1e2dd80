package extract

import (
	"context"
	"testing"

	"github.com/storydaemon/storydaemon/memory"
)

func TestResolvePOVCharacterUpdatesWhenNameMatches(t *testing.T) {
	store := memory.NewStore(t.TempDir())
	id, _ := store.NextID(memory.KindCharacter)
	_ = store.Save(memory.KindCharacter, id, &memory.Character{
		Record: memory.Record{ID: id, Type: memory.KindCharacter}, FirstName: "Elena", FamilyName: "Thorne",
		CurrentState: memory.CharacterState{EmotionalState: "anxious"},
	})

	result, err := ResolvePOVCharacter(context.Background(), store, nil, id, "Elena",
		map[string]any{"emotional_state": "resolute"}, 5, "S002")
	if err != nil {
		t.Fatalf("ResolvePOVCharacter: %v", err)
	}
	if result.Outcome != POVOutcomeUpdated {
		t.Fatalf("expected updated outcome, got %q", result.Outcome)
	}
	if result.Character.CurrentState.EmotionalState != "resolute" {
		t.Fatalf("expected existing record mutated, got %+v", result.Character)
	}

	ids, _ := store.ListIDs(memory.KindCharacter)
	if len(ids) != 1 {
		t.Fatalf("expected no new character allocated, got ids %v", ids)
	}
}

func TestResolvePOVCharacterAllocatesNewCharacterOnNameMismatch(t *testing.T) {
	store := memory.NewStore(t.TempDir())
	id, _ := store.NextID(memory.KindCharacter)
	_ = store.Save(memory.KindCharacter, id, &memory.Character{
		Record: memory.Record{ID: id, Type: memory.KindCharacter}, FirstName: "Elena", FamilyName: "Thorne",
	})

	result, err := ResolvePOVCharacter(context.Background(), store, nil, id, "Marcus Vale",
		map[string]any{"emotional_state": "guarded"}, 6, "S003")
	if err != nil {
		t.Fatalf("ResolvePOVCharacter: %v", err)
	}
	if result.Outcome != POVOutcomeCreated {
		t.Fatalf("expected created outcome on POV switch, got %q", result.Outcome)
	}
	if result.Character.ID == id {
		t.Fatalf("expected a new character id, got the same id %s", id)
	}
	if result.Character.FirstName != "Marcus" || result.Character.FamilyName != "Vale" {
		t.Fatalf("unexpected split name: %+v", result.Character)
	}

	var original memory.Character
	if err := store.Load(memory.KindCharacter, id, &original); err != nil {
		t.Fatalf("Load original: %v", err)
	}
	if original.CurrentState.EmotionalState == "guarded" {
		t.Fatalf("expected original record left unmutated by the POV switch")
	}

	ids, _ := store.ListIDs(memory.KindCharacter)
	if len(ids) != 2 {
		t.Fatalf("expected exactly 2 characters after the switch, got %v", ids)
	}
}
