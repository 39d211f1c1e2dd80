package tools

import (
	"context"
	"time"

	"github.com/storydaemon/storydaemon/memory"
)

// relationshipCreateTool implements relationship.create. Rejects the
// write with *memory.OrphanRelationshipError if either character does
// not exist (invariant 2, spec §8 Scenario C).
type relationshipCreateTool struct{ deps Deps }

func (t *relationshipCreateTool) Name() string { return "relationship.create" }

func (t *relationshipCreateTool) Execute(ctx context.Context, args map[string]any) (any, error) {
	a, err := argString(args, "character_a")
	if err != nil {
		return nil, err
	}
	b, err := argString(args, "character_b")
	if err != nil {
		return nil, err
	}

	id, err := t.deps.Store.NextID(memory.KindRelationship)
	if err != nil {
		return nil, err
	}

	rels, err := t.deps.Store.LoadRelationships()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	rel := memory.Relationship{
		Record:           memory.Record{ID: id, Type: memory.KindRelationship, CreatedAt: now, UpdatedAt: now},
		CharacterA:       a,
		CharacterB:       b,
		RelationshipType: argStringOpt(args, "relationship_type"),
		Status:           defaultIfEmpty(argStringOpt(args, "status"), "established"),
		PerspectiveA:     argStringOpt(args, "perspective_a"),
		PerspectiveB:     argStringOpt(args, "perspective_b"),
		Intensity:        argIntOpt(args, "intensity", 5),
	}

	rels, err = memory.AddRelationship(rels, rel, func(charID string) bool {
		return t.deps.Store.Exists(memory.KindCharacter, charID)
	})
	if err != nil {
		return nil, err
	}

	if err := t.deps.Store.SaveRelationships(rels); err != nil {
		return nil, err
	}
	return &rel, nil
}

// relationshipUpdateTool implements relationship.update: merge fields,
// append history (spec §4.8).
type relationshipUpdateTool struct{ deps Deps }

func (t *relationshipUpdateTool) Name() string { return "relationship.update" }

func (t *relationshipUpdateTool) Execute(ctx context.Context, args map[string]any) (any, error) {
	a, err := argString(args, "character_a")
	if err != nil {
		return nil, err
	}
	b, err := argString(args, "character_b")
	if err != nil {
		return nil, err
	}
	changes, _ := args["changes"].(map[string]any)

	rels, err := t.deps.Store.LoadRelationships()
	if err != nil {
		return nil, err
	}

	found := memory.UpdateRelationship(rels, a, b, func(r *memory.Relationship) {
		ApplyRelationshipChanges(r, changes)
	}, memory.HistoryEntry{Changes: relationshipChangesString(changes)})
	if !found {
		return nil, &memory.NotFoundError{Kind: memory.KindRelationship, ID: a + "-" + b}
	}

	if err := t.deps.Store.SaveRelationships(rels); err != nil {
		return nil, err
	}
	rel, _ := memory.GetRelationshipBetween(rels, a, b)
	return rel, nil
}

// ApplyRelationshipChanges merges status and intensity changes into r
// (spec §4.8 relationship_changes shape). An "event" key is not applied
// here; callers record the event text in the history entry.
func ApplyRelationshipChanges(r *memory.Relationship, changes map[string]any) {
	if changes == nil {
		return
	}
	if v, ok := changes["status"].(string); ok {
		r.Status = v
	}
	if v, ok := changes["intensity"]; ok {
		if f, ok := v.(float64); ok {
			r.Intensity = int(f)
		}
		if n, ok := v.(int); ok {
			r.Intensity = n
		}
	}
}

func relationshipChangesString(changes map[string]any) string {
	if v, ok := changes["event"].(string); ok {
		return v
	}
	return ""
}

// relationshipQueryTool implements relationship.query: returns either the
// relationship between two named characters, or every relationship
// involving one character.
type relationshipQueryTool struct{ deps Deps }

func (t *relationshipQueryTool) Name() string { return "relationship.query" }

func (t *relationshipQueryTool) Execute(ctx context.Context, args map[string]any) (any, error) {
	rels, err := t.deps.Store.LoadRelationships()
	if err != nil {
		return nil, err
	}

	a := argStringOpt(args, "character_a")
	b := argStringOpt(args, "character_b")
	if a != "" && b != "" {
		rel, ok := memory.GetRelationshipBetween(rels, a, b)
		if !ok {
			return nil, &memory.NotFoundError{Kind: memory.KindRelationship, ID: a + "-" + b}
		}
		return rel, nil
	}
	if a != "" {
		return memory.GetCharacterRelationships(rels, a), nil
	}
	return rels, nil
}
