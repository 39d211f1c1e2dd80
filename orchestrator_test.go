package storydaemon

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/storydaemon/storydaemon/index"
	"github.com/storydaemon/storydaemon/llm"
	"github.com/storydaemon/storydaemon/memory"
)

// fakeVectorAdapter is a no-op in-memory VectorAdapter. index.Adapter has
// no nil-backing guard, so every test exercising character.generate /
// location.generate (which call Index.Index unconditionally) needs one of
// these rather than a literal nil.
type fakeVectorAdapter struct{}

func (fakeVectorAdapter) Upsert(ctx context.Context, collection, id, text string, metadata map[string]string) error {
	return nil
}

func (fakeVectorAdapter) Query(ctx context.Context, collection, text string, k int) ([]index.Hit, error) {
	return nil, nil
}

func (fakeVectorAdapter) Delete(ctx context.Context, collection, id string) error { return nil }

func testConfig() *Config {
	cfg := DefaultConfig()
	cfg.Generation.TargetWordCountMin = 1
	cfg.Generation.TargetWordCountMax = 5000
	cfg.Generation.EnableFactExtraction = false
	cfg.Generation.EnableTensionTracking = false
	cfg.Generation.CheckpointSummaryInterval = 0
	return cfg
}

const firstTickPlanJSON = `{
  "rationale": "Establish Mira and the lighthouse before the story proper begins.",
  "scene_intention": "Mira arrives at the lighthouse seeking the missing keeper's log.",
  "key_change": "Mira commits to staying through the storm.",
  "actions": [
    {"tool": "character.generate", "args": {"name": "Mira Ashgrove", "role": "protagonist"}},
    {"tool": "location.generate", "args": {"name": "Blackrock Lighthouse"}}
  ],
  "expected_outcomes": ["Mira reaches the lighthouse", "the lantern room is explored"]
}`

const firstTickSceneProse = `Lighthouse Watch

Mira climbed the spiral stairs toward the lantern room. Salt wind needled through a cracked pane and she pressed a palm against the cold glass. Below, the tide clawed at black rocks, relentless and patient. She whispered, "I won't let the light go dark again," and turned the brass crank until the gears caught and held.
`

func newTestOrchestrator(t *testing.T, cfg *Config, adapter *llm.MockAdapter) (*TickOrchestrator, string) {
	t.Helper()
	root := t.TempDir()
	orc, err := NewTickOrchestrator(root, adapter, fakeVectorAdapter{}, cfg)
	if err != nil {
		t.Fatalf("NewTickOrchestrator: %v", err)
	}
	return orc, root
}

func TestRunTickFirstTickBootstrapsEntitiesAndWritesScene(t *testing.T) {
	cfg := testConfig()
	adapter := llm.NewMockAdapter().
		OnContains("Mira arrives at the lighthouse seeking the missing keeper's log.", "planning the next scene").
		OnContains(firstTickPlanJSON, "rationale, scene_intention, key_change, actions, and expected_outcomes are required.").
		OnContains(firstTickSceneProse, "Write the scene's prose now.")
	orc, root := newTestOrchestrator(t, cfg, adapter)

	if err := orc.RunTick(context.Background()); err != nil {
		t.Fatalf("RunTick: %v", err)
	}

	state, err := orc.store.LoadState()
	if err != nil {
		t.Fatalf("LoadState: %v", err)
	}
	if state.CurrentTick != 1 {
		t.Fatalf("expected current_tick=1 after the first tick, got %d", state.CurrentTick)
	}
	if state.ActiveCharacter == "" {
		t.Fatalf("expected active_character to be set from the newly generated character")
	}

	sceneIDs, err := orc.store.ListIDs(memory.KindScene)
	if err != nil || len(sceneIDs) != 1 {
		t.Fatalf("expected exactly one scene, got %v (err %v)", sceneIDs, err)
	}
	var scene memory.Scene
	if err := orc.store.Load(memory.KindScene, sceneIDs[0], &scene); err != nil {
		t.Fatalf("load scene: %v", err)
	}
	if len(scene.EntitiesCreated) != 2 {
		t.Fatalf("expected 2 entities_created (character+location), got %v", scene.EntitiesCreated)
	}
	if scene.POVCharacterID == "" || scene.LocationID == "" {
		t.Fatalf("expected pov_character_id/location_id to be rewritten to allocated ids, got %+v", scene)
	}
	if scene.POVCharacterID != state.ActiveCharacter {
		t.Fatalf("expected scene pov to match active_character: pov=%q active=%q", scene.POVCharacterID, state.ActiveCharacter)
	}
	if scene.Title == "" {
		t.Fatalf("expected a non-empty scene title")
	}

	if _, err := os.Stat(orc.store.Layout().SceneMarkdownPath(sceneIDs[0])); err != nil {
		t.Fatalf("expected scene markdown to exist: %v", err)
	}

	planData, err := os.ReadFile(filepath.Join(root, "plans", "plan_000.json"))
	if err != nil {
		t.Fatalf("read plan_000.json: %v", err)
	}
	var rec PlanRecord
	if err := json.Unmarshal(planData, &rec); err != nil {
		t.Fatalf("unmarshal plan record: %v", err)
	}
	if rec.Plan.POVCharacter != scene.POVCharacterID || rec.Plan.TargetLocation != scene.LocationID {
		t.Fatalf("expected plan's pov_character/target_location to be rewritten to the allocated ids, got %+v", rec.Plan)
	}
	if !rec.Execution.Success {
		t.Fatalf("expected execution.success=true, got %+v", rec.Execution)
	}
	if len(rec.Execution.ActionsExecuted) != 2 {
		t.Fatalf("expected 2 actions_executed, got %v", rec.Execution.ActionsExecuted)
	}

	charIDs, err := orc.store.ListIDs(memory.KindCharacter)
	if err != nil || len(charIDs) != 1 {
		t.Fatalf("expected exactly one persisted character, got %v (err %v)", charIDs, err)
	}
	locIDs, err := orc.store.ListIDs(memory.KindLocation)
	if err != nil || len(locIDs) != 1 {
		t.Fatalf("expected exactly one persisted location, got %v (err %v)", locIDs, err)
	}
}

func TestRunTickAbortLeavesCurrentTickUnchanged(t *testing.T) {
	cfg := testConfig()
	// No responses registered at all: the strategic stage's Generate call
	// fails immediately, aborting before any mutation of state.json.
	adapter := llm.NewMockAdapter()
	orc, root := newTestOrchestrator(t, cfg, adapter)

	err := orc.RunTick(context.Background())
	if err == nil {
		t.Fatalf("expected RunTick to fail when the LLM has no scripted plan response")
	}

	state, loadErr := orc.store.LoadState()
	if loadErr != nil {
		t.Fatalf("LoadState: %v", loadErr)
	}
	if state.CurrentTick != 0 {
		t.Fatalf("expected current_tick to remain 0 after an aborted tick, got %d", state.CurrentTick)
	}

	errJSON := orc.store.Layout().ErrorJSONPath(0)
	if _, statErr := os.Stat(errJSON); statErr != nil {
		t.Fatalf("expected an error record at %s: %v", errJSON, statErr)
	}
	errLog := orc.store.Layout().ErrorLogPath(0)
	if _, statErr := os.Stat(errLog); statErr != nil {
		t.Fatalf("expected an error log at %s: %v", errLog, statErr)
	}

	sceneIDs, _ := orc.store.ListIDs(memory.KindScene)
	if len(sceneIDs) != 0 {
		t.Fatalf("expected no scene to be committed on an aborted tick, got %v", sceneIDs)
	}
	if _, statErr := os.Stat(filepath.Join(root, "plans", "plan_000.json")); !os.IsNotExist(statErr) {
		t.Fatalf("expected no plan record when the plan was never generated")
	}
}
