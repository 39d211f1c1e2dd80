package memory

import "time"

// GetRelationshipBetween returns the relationship between a and b
// regardless of argument order (spec §4.1 "order-independent relationship
// lookup normalizes the pair (min,max) at query time").
func GetRelationshipBetween(rels []Relationship, a, b string) (*Relationship, bool) {
	lo, hi := OrderedPair(a, b)
	for i := range rels {
		if rels[i].CharacterA == lo && rels[i].CharacterB == hi {
			return &rels[i], true
		}
	}
	return nil, false
}

// GetCharacterRelationships returns every relationship involving
// character c.
func GetCharacterRelationships(rels []Relationship, c string) []Relationship {
	var out []Relationship
	for _, r := range rels {
		if r.CharacterA == c || r.CharacterB == c {
			out = append(out, r)
		}
	}
	return out
}

// AddRelationship appends a new relationship after normalizing the pair
// order, rejecting the write if either character does not exist
// (invariant 2). characterExists is supplied by the caller (the Store
// doesn't know about Characters directly to keep this package's entity
// kinds decoupled).
func AddRelationship(rels []Relationship, rel Relationship, characterExists func(id string) bool) ([]Relationship, error) {
	if !characterExists(rel.CharacterA) {
		return rels, &OrphanRelationshipError{CharacterID: rel.CharacterA}
	}
	if !characterExists(rel.CharacterB) {
		return rels, &OrphanRelationshipError{CharacterID: rel.CharacterB}
	}
	rel.CharacterA, rel.CharacterB = OrderedPair(rel.CharacterA, rel.CharacterB)
	now := time.Now()
	rel.CreatedAt = now
	rel.UpdatedAt = now
	rel.Type = KindRelationship
	return append(rels, rel), nil
}

// UpdateRelationship finds the relationship between a and b and applies
// mutate to it in place, refreshing UpdatedAt and appending a history
// entry. Returns false if no such relationship exists.
func UpdateRelationship(rels []Relationship, a, b string, mutate func(*Relationship), hist HistoryEntry) bool {
	lo, hi := OrderedPair(a, b)
	for i := range rels {
		if rels[i].CharacterA == lo && rels[i].CharacterB == hi {
			mutate(&rels[i])
			rels[i].UpdatedAt = time.Now()
			if !hasHistoryEntry(rels[i].History, hist) {
				rels[i].History = append(rels[i].History, hist)
			}
			return true
		}
	}
	return false
}

// hasHistoryEntry reports whether an entry with the same
// (tick, scene_id, diff-hash) is already present, so applying the same
// extracted facts twice does not duplicate history entries when a hash is
// supplied (idempotence law in spec §8). When DiffHash is empty the entry
// is always considered new (callers that don't hash skip dedup).
func hasHistoryEntry(history []HistoryEntry, entry HistoryEntry) bool {
	if entry.DiffHash == "" {
		return false
	}
	for _, h := range history {
		if h.Tick == entry.Tick && h.SceneID == entry.SceneID && h.DiffHash == entry.DiffHash {
			return true
		}
	}
	return false
}
