package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/storydaemon/storydaemon/index"
	"github.com/storydaemon/storydaemon/memory"
)

// locationGenerateTool implements location.generate.
type locationGenerateTool struct{ deps Deps }

func (t *locationGenerateTool) Name() string { return "location.generate" }

func (t *locationGenerateTool) Execute(ctx context.Context, args map[string]any) (any, error) {
	name, err := argString(args, "name")
	if err != nil {
		return nil, err
	}

	id, err := t.deps.Store.NextID(memory.KindLocation)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	l := &memory.Location{
		Record:      memory.Record{ID: id, Type: memory.KindLocation, CreatedAt: now, UpdatedAt: now},
		Name:        name,
		Aliases:     argStringSlice(args, "aliases"),
		Description: argStringOpt(args, "description"),
		Atmosphere:  argStringOpt(args, "atmosphere"),
		SensoryDetails: memory.SensoryDetails{
			Visual:    argStringOpt(args, "visual"),
			Auditory:  argStringOpt(args, "auditory"),
			Olfactory: argStringOpt(args, "olfactory"),
			Tactile:   argStringOpt(args, "tactile"),
		},
		Features:     argStringSlice(args, "features"),
		Connections:  argStringSlice(args, "connections"),
		Significance: argStringOpt(args, "significance"),
		CurrentState: memory.LocationState{
			TensionLevel:   argIntOpt(args, "tension_level", 0),
			TimeOfDay:      defaultIfEmpty(argStringOpt(args, "time_of_day"), "day"),
			Weather:        argStringOpt(args, "weather"),
			Occupants:      argStringSlice(args, "occupants"),
			NotableObjects: argStringSlice(args, "notable_objects"),
		},
	}

	if err := t.deps.Store.Save(memory.KindLocation, id, l); err != nil {
		return nil, err
	}
	if t.deps.Index != nil {
		_ = t.deps.Index.Index(ctx, index.Indexable{
			Collection: index.CollectionLocations,
			ID:         id,
			Text:       locationCanonicalText(l),
		})
	}
	return l, nil
}

// locationUpdateTool implements location.update: scalar overwrite,
// features union-merge, history appended (spec §4.8).
type locationUpdateTool struct{ deps Deps }

func (t *locationUpdateTool) Name() string { return "location.update" }

func (t *locationUpdateTool) Execute(ctx context.Context, args map[string]any) (any, error) {
	id, err := argString(args, "id")
	if err != nil {
		return nil, err
	}
	changes, _ := args["changes"].(map[string]any)

	var l memory.Location
	if err := t.deps.Store.Load(memory.KindLocation, id, &l); err != nil {
		return nil, err
	}

	ApplyLocationChanges(&l, changes, 0, "", "")

	if err := t.deps.Store.Save(memory.KindLocation, id, &l); err != nil {
		return nil, err
	}
	if t.deps.Index != nil {
		_ = t.deps.Index.Index(ctx, index.Indexable{
			Collection: index.CollectionLocations,
			ID:         id,
			Text:       locationCanonicalText(&l),
		})
	}
	return &l, nil
}

// ApplyLocationChanges mutates l in place per spec §4.8's location
// update policy.
func ApplyLocationChanges(l *memory.Location, changes map[string]any, tick int, sceneID, diffHash string) {
	if changes == nil {
		return
	}
	if v, ok := changes["description"].(string); ok {
		l.Description = v
	}
	if v, ok := changes["atmosphere"].(string); ok {
		l.Atmosphere = v
	}
	if v := stringSliceFromAny(changes["features"]); v != nil {
		l.Features = memory.UnionMergeStrings(l.Features, v)
	}

	l.UpdatedAt = time.Now()
	entry := memory.HistoryEntry{Tick: tick, SceneID: sceneID, Changes: fmt.Sprintf("%v", changes), DiffHash: diffHash}
	if diffHash == "" || !historyHasHash(l.History, tick, sceneID, diffHash) {
		l.History = append(l.History, entry)
	}
}

func locationCanonicalText(l *memory.Location) string {
	return fmt.Sprintf("%s | %s | %s | features: %s", l.Name, l.Description, l.Atmosphere, strings.Join(l.Features, ", "))
}
