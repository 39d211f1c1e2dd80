package extract

import (
	"context"
	"time"

	"github.com/storydaemon/storydaemon/index"
	"github.com/storydaemon/storydaemon/memory"
	"github.com/storydaemon/storydaemon/tools"
)

// Stats is the statistics returned from applying an Extraction (spec
// §4.8).
type Stats struct {
	CharactersUpdated   int
	CharactersCreated   int
	LocationsUpdated    int
	LoopsCreated        int
	LoopsResolved       int
	RelationshipsUpdated int
}

// Updater applies a parsed Extraction to the entity store (spec §4.8).
type Updater struct {
	Store *memory.Store
	Index *index.Adapter
}

// Apply applies every section of ext to the store. povCharacterID and
// contextPOVName drive the POV-switch check on the character_updates
// entry matching povCharacterID (spec §4.8); if a new character is
// allocated, its id is returned as newActiveCharacter so the caller can
// update ProjectState.ActiveCharacter.
func (u *Updater) Apply(ctx context.Context, ext *Extraction, tick int, sceneID, povCharacterID, contextPOVName string) (*Stats, string, error) {
	stats := &Stats{}
	newActiveCharacter := ""

	for _, cu := range ext.CharacterUpdates {
		if cu.ID == povCharacterID {
			result, err := ResolvePOVCharacter(ctx, u.Store, u.Index, povCharacterID, contextPOVName, cu.Changes, tick, sceneID)
			if err != nil {
				return stats, newActiveCharacter, err
			}
			switch result.Outcome {
			case POVOutcomeCreated:
				stats.CharactersCreated++
				newActiveCharacter = result.Character.ID
			case POVOutcomeUpdated:
				stats.CharactersUpdated++
			}
			continue
		}

		var c memory.Character
		if err := u.Store.Load(memory.KindCharacter, cu.ID, &c); err != nil {
			continue // unknown character referenced by extraction: skip, don't abort the tick
		}
		tools.ApplyCharacterChanges(&c, cu.Changes, tick, sceneID, "")
		if err := u.Store.Save(memory.KindCharacter, cu.ID, &c); err != nil {
			return stats, newActiveCharacter, err
		}
		reindexCharacter(ctx, u.Index, &c)
		stats.CharactersUpdated++
	}

	for _, lu := range ext.LocationUpdates {
		var l memory.Location
		if err := u.Store.Load(memory.KindLocation, lu.ID, &l); err != nil {
			continue
		}
		tools.ApplyLocationChanges(&l, lu.Changes, tick, sceneID, "")
		if err := u.Store.Save(memory.KindLocation, lu.ID, &l); err != nil {
			return stats, newActiveCharacter, err
		}
		if u.Index != nil {
			_ = u.Index.Index(ctx, index.Indexable{
				Collection: index.CollectionLocations,
				ID:         lu.ID,
				Text:       l.Name + " " + l.Description + " " + l.Atmosphere,
			})
		}
		stats.LocationsUpdated++
	}

	loops, err := u.Store.LoadOpenLoops()
	if err != nil {
		return stats, newActiveCharacter, err
	}
	loopsChanged := false

	for _, oc := range ext.OpenLoopsCreated {
		id, err := u.Store.NextID(memory.KindOpenLoop)
		if err != nil {
			return stats, newActiveCharacter, err
		}
		now := time.Now()
		loops = append(loops, memory.OpenLoop{
			Record:            memory.Record{ID: id, Type: memory.KindOpenLoop, CreatedAt: now, UpdatedAt: now},
			Description:       oc.Description,
			Importance:        memory.Importance(oc.Importance),
			Category:          oc.Category,
			Status:            memory.OpenLoopOpen,
			CreatedInScene:    sceneID,
			RelatedCharacters: oc.RelatedCharacters,
			RelatedLocations:  oc.RelatedLocations,
		})
		loopsChanged = true
		stats.LoopsCreated++
	}

	for _, loopID := range ext.OpenLoopsResolved {
		if memory.ResolveOpenLoop(loops, loopID, sceneID, "") {
			loopsChanged = true
			stats.LoopsResolved++
		}
	}

	if loopsChanged {
		if err := u.Store.SaveOpenLoops(loops); err != nil {
			return stats, newActiveCharacter, err
		}
	}

	if len(ext.RelationshipChanges) > 0 {
		rels, err := u.Store.LoadRelationships()
		if err != nil {
			return stats, newActiveCharacter, err
		}
		relsChanged := false
		for _, rc := range ext.RelationshipChanges {
			changes := map[string]any{}
			if rc.Status != "" {
				changes["status"] = rc.Status
			}
			if rc.Intensity != nil {
				changes["intensity"] = *rc.Intensity
			}
			found := memory.UpdateRelationship(rels, rc.CharacterA, rc.CharacterB, func(r *memory.Relationship) {
				tools.ApplyRelationshipChanges(r, changes)
			}, memory.HistoryEntry{Tick: tick, SceneID: sceneID, Changes: rc.Event})
			if found {
				relsChanged = true
				stats.RelationshipsUpdated++
			}
			// A change naming a pair with no existing relationship record
			// is skipped without error: no relationship is created from it
			// and no warning is emitted.
		}
		if relsChanged {
			if err := u.Store.SaveRelationships(rels); err != nil {
				return stats, newActiveCharacter, err
			}
		}
	}

	for _, lf := range ext.Lore {
		id, err := u.Store.NextID(memory.KindLore)
		if err != nil {
			return stats, newActiveCharacter, err
		}
		now := time.Now()
		lore := &memory.Lore{
			Record:      memory.Record{ID: id, Type: memory.KindLore, CreatedAt: now, UpdatedAt: now},
			Fact:        lf.Fact,
			Category:    lf.Category,
			Importance:  lf.Importance,
			SourceScene: sceneID,
			Tags:        lf.Tags,
		}
		if err := u.Store.Save(memory.KindLore, id, lore); err != nil {
			return stats, newActiveCharacter, err
		}
		if u.Index != nil {
			_ = u.Index.Index(ctx, index.Indexable{
				Collection: index.CollectionLore,
				ID:         id,
				Text:       lore.Fact + " " + lore.Category,
			})
		}
	}

	return stats, newActiveCharacter, nil
}
