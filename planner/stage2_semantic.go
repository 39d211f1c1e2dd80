package planner

import (
	"context"
	"sort"
	"strings"

	"github.com/storydaemon/storydaemon/index"
	"github.com/storydaemon/storydaemon/memory"
)

// SemanticGatherResult is Stage 2's output: no LLM call, just retrieval
// (spec §4.5 "Stage 2 — Semantic Gather").
type SemanticGatherResult struct {
	RelevantScenes           []memory.Scene
	RelevantOpenLoops        []memory.OpenLoop
	RelevantLore             []memory.Lore
	ProtagonistRelationships []memory.Relationship
}

// GatherSemanticContext retrieves top-k relevant scenes and lore via the
// semantic index, top-k relevant open loops by keyword overlap, and
// unconditionally loads protagonist relationships.
func GatherSemanticContext(ctx context.Context, store *memory.Store, idx *index.Adapter, sceneIntention string, k int, protagonistID string) (*SemanticGatherResult, error) {
	if k <= 0 {
		k = 5
	}

	sceneFallback, err := recencyFromIDs(store, memory.KindScene)
	if err != nil {
		return nil, err
	}
	sceneHits, err := idx.Search(ctx, index.CollectionScenes, sceneIntention, k, sceneFallback)
	if err != nil {
		return nil, err
	}
	var scenes []memory.Scene
	for _, h := range sceneHits {
		var sc memory.Scene
		if err := store.Load(memory.KindScene, h.ID, &sc); err == nil {
			scenes = append(scenes, sc)
		}
	}

	loreFallback, err := recencyFromIDs(store, memory.KindLore)
	if err != nil {
		return nil, err
	}
	loreHits, err := idx.Search(ctx, index.CollectionLore, sceneIntention, k, loreFallback)
	if err != nil {
		return nil, err
	}
	var lore []memory.Lore
	for _, h := range loreHits {
		var l memory.Lore
		if err := store.Load(memory.KindLore, h.ID, &l); err == nil {
			lore = append(lore, l)
		}
	}

	openLoops, err := store.LoadOpenLoops()
	if err != nil {
		return nil, err
	}
	var open []memory.OpenLoop
	for _, l := range openLoops {
		if l.Status == memory.OpenLoopOpen {
			open = append(open, l)
		}
	}
	relevantLoops := topKByKeywordOverlap(open, sceneIntention, k)

	rels, err := store.LoadRelationships()
	if err != nil {
		return nil, err
	}
	var protagonistRels []memory.Relationship
	if protagonistID != "" {
		protagonistRels = memory.GetCharacterRelationships(rels, protagonistID)
	}

	return &SemanticGatherResult{
		RelevantScenes:           scenes,
		RelevantOpenLoops:        relevantLoops,
		RelevantLore:             lore,
		ProtagonistRelationships: protagonistRels,
	}, nil
}

func recencyFromIDs(store *memory.Store, kind memory.Kind) ([]index.RecencyItem, error) {
	ids, err := store.ListIDs(kind)
	if err != nil {
		return nil, err
	}
	items := make([]index.RecencyItem, 0, len(ids))
	for i, id := range ids {
		items = append(items, index.RecencyItem{ID: id, Recency: i})
	}
	return items, nil
}

// topKByKeywordOverlap scores each loop's category+description against
// query's tokens (case-insensitive word overlap count) and returns the
// top k, ties broken by importance then most recent mention (spec §4.5
// "keyword-overlap score over category+description").
func topKByKeywordOverlap(loops []memory.OpenLoop, query string, k int) []memory.OpenLoop {
	queryTokens := tokenSet(query)
	loops = memory.SortByPriority(loops)

	type scored struct {
		loop  memory.OpenLoop
		score int
	}
	scoredLoops := make([]scored, 0, len(loops))
	for _, l := range loops {
		text := l.Category + " " + l.Description
		scoredLoops = append(scoredLoops, scored{loop: l, score: overlapCount(queryTokens, tokenSet(text))})
	}

	sort.SliceStable(scoredLoops, func(i, j int) bool { return scoredLoops[i].score > scoredLoops[j].score })
	if k > len(scoredLoops) {
		k = len(scoredLoops)
	}
	out := make([]memory.OpenLoop, 0, k)
	for i := 0; i < k; i++ {
		out = append(out, scoredLoops[i].loop)
	}
	return out
}

func tokenSet(s string) map[string]bool {
	fields := strings.Fields(strings.ToLower(s))
	set := make(map[string]bool, len(fields))
	for _, f := range fields {
		set[strings.Trim(f, ".,;:!?\"'()")] = true
	}
	return set
}

func overlapCount(a, b map[string]bool) int {
	count := 0
	for t := range a {
		if b[t] {
			count++
		}
	}
	return count
}
