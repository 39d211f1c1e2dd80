package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/storydaemon/storydaemon/index"
	"github.com/storydaemon/storydaemon/memory"
)

// characterGenerateTool implements character.generate: allocates a new
// Character, persists it, and indexes it semantically.
type characterGenerateTool struct{ deps Deps }

func (t *characterGenerateTool) Name() string { return "character.generate" }

func (t *characterGenerateTool) Execute(ctx context.Context, args map[string]any) (any, error) {
	name, err := argString(args, "name")
	if err != nil {
		return nil, err
	}
	first, family := SplitName(name)

	id, err := t.deps.Store.NextID(memory.KindCharacter)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	c := &memory.Character{
		Record:         memory.Record{ID: id, Type: memory.KindCharacter, CreatedAt: now, UpdatedAt: now},
		FirstName:      first,
		FamilyName:     family,
		Role:           argStringOpt(args, "role"),
		Description:    argStringOpt(args, "description"),
		PhysicalTraits: argStringOpt(args, "physical_traits"),
		Personality: memory.Personality{
			CoreTraits: argStringSlice(args, "core_traits"),
			Fears:      argStringSlice(args, "fears"),
			Desires:    argStringSlice(args, "desires"),
			Flaws:      argStringSlice(args, "flaws"),
		},
		CurrentState: memory.CharacterState{
			LocationID:     argStringOpt(args, "location_id"),
			EmotionalState: defaultIfEmpty(argStringOpt(args, "emotional_state"), "neutral"),
			PhysicalState:  defaultIfEmpty(argStringOpt(args, "physical_state"), "unharmed"),
			Inventory:      argStringSlice(args, "inventory"),
			Goals:          argStringSlice(args, "goals"),
			Beliefs:        argStringSlice(args, "beliefs"),
		},
		ImmediateGoals: argStringSlice(args, "immediate_goals"),
		ArcGoal:        argStringOpt(args, "arc_goal"),
	}

	if err := t.deps.Store.Save(memory.KindCharacter, id, c); err != nil {
		return nil, err
	}
	if t.deps.Index != nil {
		_ = t.deps.Index.Index(ctx, index.Indexable{
			Collection: index.CollectionCharacters,
			ID:         id,
			Text:       characterCanonicalText(c),
		})
	}
	return c, nil
}

// characterUpdateTool implements character.update: list fields
// union-merge, scalar fields overwrite, a history entry is appended
// (spec §4.8).
type characterUpdateTool struct{ deps Deps }

func (t *characterUpdateTool) Name() string { return "character.update" }

func (t *characterUpdateTool) Execute(ctx context.Context, args map[string]any) (any, error) {
	id, err := argString(args, "id")
	if err != nil {
		return nil, err
	}
	changes, _ := args["changes"].(map[string]any)

	var c memory.Character
	if err := t.deps.Store.Load(memory.KindCharacter, id, &c); err != nil {
		return nil, err
	}

	ApplyCharacterChanges(&c, changes, 0, "", "")

	if err := t.deps.Store.Save(memory.KindCharacter, id, &c); err != nil {
		return nil, err
	}
	if t.deps.Index != nil {
		_ = t.deps.Index.Index(ctx, index.Indexable{
			Collection: index.CollectionCharacters,
			ID:         id,
			Text:       characterCanonicalText(&c),
		})
	}
	return &c, nil
}

// ApplyCharacterChanges mutates c in place per the union-merge/scalar-
// overwrite policy (spec §4.8) and appends a history entry recording
// tick, sceneID and the changes (the update tool passes tick=0 and
// sceneID=""). When diffHash is non-empty, an entry with the same
// (tick, sceneID, diffHash) already in the history is not appended again;
// with an empty diffHash, as every caller in this module passes, the
// entry is always appended.
func ApplyCharacterChanges(c *memory.Character, changes map[string]any, tick int, sceneID, diffHash string) {
	if changes == nil {
		return
	}
	if v, ok := changes["emotional_state"].(string); ok {
		c.CurrentState.EmotionalState = v
	}
	if v, ok := changes["physical_state"].(string); ok {
		c.CurrentState.PhysicalState = v
	}
	if v := stringSliceFromAny(changes["inventory"]); v != nil {
		c.CurrentState.Inventory = memory.UnionMergeStrings(c.CurrentState.Inventory, v)
	}
	if v := stringSliceFromAny(changes["goals"]); v != nil {
		c.CurrentState.Goals = memory.UnionMergeStrings(c.CurrentState.Goals, v)
	}
	if v := stringSliceFromAny(changes["beliefs"]); v != nil {
		c.CurrentState.Beliefs = memory.UnionMergeStrings(c.CurrentState.Beliefs, v)
	}
	if v, ok := changes["location_id"].(string); ok {
		c.CurrentState.LocationID = v
	}

	c.UpdatedAt = time.Now()
	entry := memory.HistoryEntry{Tick: tick, SceneID: sceneID, Changes: fmt.Sprintf("%v", changes), DiffHash: diffHash}
	if diffHash == "" || !historyHasHash(c.History, tick, sceneID, diffHash) {
		c.History = append(c.History, entry)
	}
}

func historyHasHash(history []memory.HistoryEntry, tick int, sceneID, hash string) bool {
	for _, h := range history {
		if h.Tick == tick && h.SceneID == sceneID && h.DiffHash == hash {
			return true
		}
	}
	return false
}

func stringSliceFromAny(v any) []string {
	switch vv := v.(type) {
	case []string:
		return vv
	case []any:
		out := make([]string, 0, len(vv))
		for _, e := range vv {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

func defaultIfEmpty(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// SplitName splits a full name into (first, family) on the last space.
func SplitName(name string) (string, string) {
	name = strings.TrimSpace(name)
	idx := strings.LastIndex(name, " ")
	if idx < 0 {
		return name, ""
	}
	return name[:idx], name[idx+1:]
}

// characterCanonicalText renders a Character to the text representation
// indexed for semantic search (spec §4.2 "name/description/state/summary
// depending on kind").
func characterCanonicalText(c *memory.Character) string {
	return fmt.Sprintf("%s %s | %s | %s | %s | goals: %s", c.FirstName, c.FamilyName, c.Role, c.Description,
		c.CurrentState.EmotionalState, strings.Join(c.CurrentState.Goals, ", "))
}
