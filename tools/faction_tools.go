package tools

import (
	"context"
	"time"

	"github.com/storydaemon/storydaemon/memory"
)

// factionGenerateTool implements faction.generate.
type factionGenerateTool struct{ deps Deps }

func (t *factionGenerateTool) Name() string { return "faction.generate" }

func (t *factionGenerateTool) Execute(ctx context.Context, args map[string]any) (any, error) {
	name, err := argString(args, "name")
	if err != nil {
		return nil, err
	}

	id, err := t.deps.Store.NextID(memory.KindFaction)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	f := &memory.Faction{
		Record:            memory.Record{ID: id, Type: memory.KindFaction, CreatedAt: now, UpdatedAt: now},
		Name:              name,
		Type:              argStringOpt(args, "type"),
		Summary:           argStringOpt(args, "summary"),
		MandateObjectives: argStringSlice(args, "mandate_objectives"),
		InfluenceDomains:  argStringSlice(args, "influence_domains"),
		AssetsResources:   argStringSlice(args, "assets_resources"),
		MethodsTactics:    argStringSlice(args, "methods_tactics"),
		Importance:        defaultIfEmpty(argStringOpt(args, "importance"), "medium"),
		Tags:              argStringSlice(args, "tags"),
	}

	if err := t.deps.Store.Save(memory.KindFaction, id, f); err != nil {
		return nil, err
	}
	return f, nil
}

// factionUpdateTool implements faction.update: scalar overwrite plus
// list-field union-merge, mirroring character/location update policy.
type factionUpdateTool struct{ deps Deps }

func (t *factionUpdateTool) Name() string { return "faction.update" }

func (t *factionUpdateTool) Execute(ctx context.Context, args map[string]any) (any, error) {
	id, err := argString(args, "id")
	if err != nil {
		return nil, err
	}
	changes, _ := args["changes"].(map[string]any)

	var f memory.Faction
	if err := t.deps.Store.Load(memory.KindFaction, id, &f); err != nil {
		return nil, err
	}

	if changes != nil {
		if v, ok := changes["summary"].(string); ok {
			f.Summary = v
		}
		if v := stringSliceFromAny(changes["mandate_objectives"]); v != nil {
			f.MandateObjectives = memory.UnionMergeStrings(f.MandateObjectives, v)
		}
		if v := stringSliceFromAny(changes["assets_resources"]); v != nil {
			f.AssetsResources = memory.UnionMergeStrings(f.AssetsResources, v)
		}
		if v, ok := changes["importance"].(string); ok {
			f.Importance = v
		}
	}
	f.UpdatedAt = time.Now()

	if err := t.deps.Store.Save(memory.KindFaction, id, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

// factionQueryTool implements faction.query: load by id, or list every
// faction id when none is supplied.
type factionQueryTool struct{ deps Deps }

func (t *factionQueryTool) Name() string { return "faction.query" }

func (t *factionQueryTool) Execute(ctx context.Context, args map[string]any) (any, error) {
	id := argStringOpt(args, "id")
	if id == "" {
		return t.deps.Store.ListIDs(memory.KindFaction)
	}
	var f memory.Faction
	if err := t.deps.Store.Load(memory.KindFaction, id, &f); err != nil {
		return nil, err
	}
	return &f, nil
}
