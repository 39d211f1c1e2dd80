package planner

import (
	"context"
	"testing"
	"time"

	"github.com/storydaemon/storydaemon/llm"
	"github.com/storydaemon/storydaemon/memory"
)

func TestMultiStagePlannerPlanRunsAllThreeStages(t *testing.T) {
	store, idx := newTestStoreAndIndex(t)
	if err := store.SaveState(&memory.ProjectState{NovelName: "The Archive", CurrentTick: 3}); err != nil {
		t.Fatalf("SaveState: %v", err)
	}

	tacticalJSON := `{
		"rationale": "keep the pressure on",
		"scene_intention": "Elena investigates the conduit",
		"key_change": "Elena learns who sabotaged the relay",
		"actions": [{"tool":"memory.search","args":{"query":"conduit"}}],
		"expected_outcomes": ["Elena has a lead"],
		"loops_addressed": ["OL0"]
	}`

	mock := llm.NewMockAdapter().
		OnContains(`one sentence`, "planning the next scene").
		OnContains(tacticalJSON, "Respond with a single JSON object")

	p := &MultiStagePlanner{
		LLM:       mock,
		Store:     store,
		Index:     idx,
		ToolNames: []string{"memory.search", "character.generate"},
		Timeout:   time.Second,
		GatherK:   3,
	}

	plan, warnings, err := p.Plan(context.Background(), "")
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if plan.SceneIntention != "Elena investigates the conduit" {
		t.Fatalf("unexpected scene_intention: %q", plan.SceneIntention)
	}
	if len(warnings) != 0 {
		t.Fatalf("expected no warnings, got %v", warnings)
	}
	if len(mock.Calls()) != 2 {
		t.Fatalf("expected exactly 2 LLM calls (strategic + tactical), got %d", len(mock.Calls()))
	}
}
