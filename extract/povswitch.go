package extract

import (
	"context"
	"errors"
	"time"

	"github.com/storydaemon/storydaemon/index"
	"github.com/storydaemon/storydaemon/memory"
	"github.com/storydaemon/storydaemon/tools"
)

// POVSwitchOutcome is "updated" (the existing record was mutated) or
// "created" (a new Character was allocated because the context name no
// longer matches the stored POV character, spec §4.8).
type POVSwitchOutcome string

const (
	POVOutcomeUpdated POVSwitchOutcome = "updated"
	POVOutcomeCreated POVSwitchOutcome = "created"
)

// POVSwitchResult is the result of resolving the POV character's update
// entry.
type POVSwitchResult struct {
	Outcome   POVSwitchOutcome
	Character *memory.Character
}

// ResolvePOVCharacter implements spec §4.8's POV-switch detection: before
// applying update to the character whose id equals povCharacterID, compare
// contextPOVName (the writer context's pov_character_name) against the
// stored character's display_name and full_name. If both differ and
// contextPOVName is non-empty, a new Character is allocated from the name
// (split into first/family), its current_state initialized from changes,
// persisted, and returned as "created" rather than mutating the existing
// record; the caller is expected to set the returned character as
// active_character. Otherwise the existing record is updated in place and
// returned as "updated".
func ResolvePOVCharacter(ctx context.Context, store *memory.Store, idx *index.Adapter, povCharacterID, contextPOVName string,
	changes map[string]any, tick int, sceneID string) (*POVSwitchResult, error) {

	var existing memory.Character
	err := store.Load(memory.KindCharacter, povCharacterID, &existing)
	var notFound *memory.NotFoundError
	switch {
	case err != nil && errors.As(err, &notFound):
		return allocateNewPOVCharacter(ctx, store, idx, contextPOVName, changes, tick, sceneID)
	case err != nil:
		return nil, err
	}

	if contextPOVName != "" && existing.DisplayName() != contextPOVName && existing.FullName() != contextPOVName {
		return allocateNewPOVCharacter(ctx, store, idx, contextPOVName, changes, tick, sceneID)
	}

	tools.ApplyCharacterChanges(&existing, changes, tick, sceneID, "")
	if err := store.Save(memory.KindCharacter, existing.ID, &existing); err != nil {
		return nil, err
	}
	reindexCharacter(ctx, idx, &existing)
	return &POVSwitchResult{Outcome: POVOutcomeUpdated, Character: &existing}, nil
}

func allocateNewPOVCharacter(ctx context.Context, store *memory.Store, idx *index.Adapter, name string, changes map[string]any,
	tick int, sceneID string) (*POVSwitchResult, error) {

	first, family := tools.SplitName(name)
	id, err := store.NextID(memory.KindCharacter)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	c := &memory.Character{
		Record:     memory.Record{ID: id, Type: memory.KindCharacter, CreatedAt: now, UpdatedAt: now},
		FirstName:  first,
		FamilyName: family,
		CurrentState: memory.CharacterState{
			EmotionalState: "neutral",
			PhysicalState:  "unharmed",
		},
	}
	tools.ApplyCharacterChanges(c, changes, tick, sceneID, "")

	if err := store.Save(memory.KindCharacter, id, c); err != nil {
		return nil, err
	}
	reindexCharacter(ctx, idx, c)
	return &POVSwitchResult{Outcome: POVOutcomeCreated, Character: c}, nil
}

func reindexCharacter(ctx context.Context, idx *index.Adapter, c *memory.Character) {
	if idx == nil {
		return
	}
	_ = idx.Index(ctx, index.Indexable{
		Collection: index.CollectionCharacters,
		ID:         c.ID,
		Text:       c.FirstName + " " + c.FamilyName + " " + c.CurrentState.EmotionalState,
	})
}
