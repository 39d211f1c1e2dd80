// Package extract implements the Fact Extractor & Entity Updater (spec
// §4.8): strict-JSON fact extraction from committed scene prose, with a
// retry-once-then-skip degrade, and application of the extracted facts to
// the entity store under union-merge/overwrite rules plus POV-switch
// detection. Grounded on `orchestrator_prd.go`'s response-parsing helpers
// (`parsePMFacilitatorResponse`, `countActualResponses`) for the
// parse-with-fallback shape.
package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/storydaemon/storydaemon/llm"
	"github.com/storydaemon/storydaemon/planner"
)

// CharacterUpdate is one entry of the extraction's character_updates.
type CharacterUpdate struct {
	ID      string         `json:"id"`
	Changes map[string]any `json:"changes"`
}

// LocationUpdate is one entry of the extraction's location_updates.
type LocationUpdate struct {
	ID      string         `json:"id"`
	Changes map[string]any `json:"changes"`
}

// OpenLoopCreate is one entry of the extraction's open_loops_created.
type OpenLoopCreate struct {
	Description       string   `json:"description"`
	Importance        string   `json:"importance"`
	Category          string   `json:"category"`
	RelatedCharacters []string `json:"related_characters"`
	RelatedLocations  []string `json:"related_locations"`
}

// RelationshipChange is one entry of the extraction's relationship_changes.
type RelationshipChange struct {
	CharacterA string `json:"character_a"`
	CharacterB string `json:"character_b"`
	Status     string `json:"status,omitempty"`
	Event      string `json:"event,omitempty"`
	Intensity  *int   `json:"intensity,omitempty"`
}

// LoreFact is one entry of the extraction's lore list.
type LoreFact struct {
	Fact       string   `json:"fact"`
	Category   string   `json:"category"`
	Importance string   `json:"importance"`
	Tags       []string `json:"tags,omitempty"`
}

// Extraction is the strict JSON object the LLM must return (spec §4.8).
type Extraction struct {
	CharacterUpdates    []CharacterUpdate     `json:"character_updates"`
	LocationUpdates     []LocationUpdate      `json:"location_updates"`
	OpenLoopsCreated    []OpenLoopCreate      `json:"open_loops_created"`
	OpenLoopsResolved   []string              `json:"open_loops_resolved"`
	RelationshipChanges []RelationshipChange  `json:"relationship_changes"`
	Lore                []LoreFact            `json:"lore"`
}

// FailedError marks a fact extraction that failed to parse on both the
// initial attempt and the single retry (spec §4.8 "on second failure,
// skip extraction — the scene remains committed").
type FailedError struct {
	Err error
}

func (e *FailedError) Error() string {
	return fmt.Sprintf("extract: extraction failed after retry: %v", e.Err)
}
func (e *FailedError) Unwrap() error { return e.Err }

// Extract prompts adapter with the scene prose, POV id, and location id,
// parses the strict JSON response, and retries once on parse failure. A
// second failure returns *FailedError (caller degrades by skipping
// extraction rather than aborting the tick).
func Extract(ctx context.Context, adapter llm.Adapter, sceneText, povCharacterID, locationID string, timeout time.Duration) (*Extraction, error) {
	prompt := buildExtractionPrompt(sceneText, povCharacterID, locationID)

	ext, firstErr := attemptExtract(ctx, adapter, prompt, timeout)
	if firstErr == nil {
		return ext, nil
	}

	ext, secondErr := attemptExtract(ctx, adapter, prompt, timeout)
	if secondErr == nil {
		return ext, nil
	}
	return nil, &FailedError{Err: secondErr}
}

func attemptExtract(ctx context.Context, adapter llm.Adapter, prompt string, timeout time.Duration) (*Extraction, error) {
	raw, err := adapter.Generate(ctx, prompt, 600, timeout)
	if err != nil {
		return nil, fmt.Errorf("generate: %w", err)
	}
	cleaned := planner.ExtractJSON(raw)
	var ext Extraction
	if err := json.Unmarshal([]byte(cleaned), &ext); err != nil {
		return nil, fmt.Errorf("invalid extraction json: %w", err)
	}
	return &ext, nil
}

func buildExtractionPrompt(sceneText, povCharacterID, locationID string) string {
	return fmt.Sprintf(`Extract only facts explicit or strongly implied by the scene below. Do not
invent details. POV character id: %s. Location id: %s.

Scene:
%s

Respond with a single JSON object with exactly these fields:
{
  "character_updates": [{"id": string, "changes": {"emotional_state"?: string, "physical_state"?: string, "inventory"?: [string], "goals"?: [string], "beliefs"?: [string]}}],
  "location_updates": [{"id": string, "changes": {"description"?: string, "atmosphere"?: string, "features"?: [string]}}],
  "open_loops_created": [{"description": string, "importance": string, "category": string, "related_characters": [string], "related_locations": [string]}],
  "open_loops_resolved": [string],
  "relationship_changes": [{"character_a": string, "character_b": string, "status"?: string, "event"?: string, "intensity"?: number}],
  "lore": [{"fact": string, "category": string, "importance": string, "tags"?: [string]}]
}
Omit a field's entries entirely if the scene supplies none; never fabricate placeholder values.
Respond with only the JSON object.`, povCharacterID, locationID, sceneText)
}
