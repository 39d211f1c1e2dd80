package plot

import (
	"context"
	"testing"
	"time"

	"github.com/storydaemon/storydaemon/llm"
	"github.com/storydaemon/storydaemon/memory"
)

func TestGenerateNextBeatsAssignsSystemFieldsAndIgnoresLLMOverrides(t *testing.T) {
	store := memory.NewStore(t.TempDir())
	mock := llm.NewMockAdapter().OnContains(
		`{"beats": [{"id": "PB999", "status": "executed", "description": "Elena finds the second ledger",
		  "tension_target": 5, "prerequisites": []}]}`,
		"Propose 1 upcoming plot beats",
	)
	m := NewManager(store, mock)

	beats, err := m.GenerateNextBeats(context.Background(), 1, &memory.ProjectState{NovelName: "The Archive"}, time.Second)
	if err != nil {
		t.Fatalf("GenerateNextBeats: %v", err)
	}
	if len(beats) != 1 {
		t.Fatalf("expected 1 beat, got %d", len(beats))
	}
	if beats[0].ID == "PB999" {
		t.Fatalf("expected system-assigned id, not the LLM's proposed id")
	}
	if beats[0].Status != memory.BeatPending {
		t.Fatalf("expected status forced to pending, got %q", beats[0].Status)
	}
	if beats[0].CreatedAt.IsZero() {
		t.Fatalf("expected created_at to be set")
	}
}

func TestAddBeatsRejectsDuplicateDescription(t *testing.T) {
	store := memory.NewStore(t.TempDir())
	m := NewManager(store, nil)

	id1, _ := store.NextID(memory.KindPlotBeat)
	if err := m.AddBeats([]memory.PlotBeat{{ID: id1, Description: "Elena enters the archive", Status: memory.BeatPending}}); err != nil {
		t.Fatalf("AddBeats (first): %v", err)
	}

	id2, _ := store.NextID(memory.KindPlotBeat)
	err := m.AddBeats([]memory.PlotBeat{{ID: id2, Description: "Elena enters the archive", Status: memory.BeatPending}})
	if err == nil {
		t.Fatalf("expected duplicate-description rejection")
	}
	if _, ok := err.(*ValidationError); !ok {
		t.Fatalf("expected *ValidationError, got %T", err)
	}
}

func TestAddBeatsRejectsUnknownPrerequisite(t *testing.T) {
	store := memory.NewStore(t.TempDir())
	m := NewManager(store, nil)

	id, _ := store.NextID(memory.KindPlotBeat)
	err := m.AddBeats([]memory.PlotBeat{{ID: id, Description: "Elena confronts Marcus", Prerequisites: []string{"PB999"}}})
	if err == nil {
		t.Fatalf("expected unknown-prerequisite rejection")
	}
}

func TestAddBeatsAcceptsPrerequisiteEarlierInSameBatch(t *testing.T) {
	store := memory.NewStore(t.TempDir())
	m := NewManager(store, nil)

	id1, _ := store.NextID(memory.KindPlotBeat)
	id2, _ := store.NextID(memory.KindPlotBeat)
	err := m.AddBeats([]memory.PlotBeat{
		{ID: id1, Description: "Elena finds the ledger"},
		{ID: id2, Description: "Elena confronts Marcus", Prerequisites: []string{id1}},
	})
	if err != nil {
		t.Fatalf("AddBeats: %v", err)
	}
}

func TestAddBeatsRejectsOutOfRangeTensionTarget(t *testing.T) {
	store := memory.NewStore(t.TempDir())
	m := NewManager(store, nil)

	id, _ := store.NextID(memory.KindPlotBeat)
	target := 11
	err := m.AddBeats([]memory.PlotBeat{{ID: id, Description: "Climactic confrontation", TensionTarget: &target}})
	if err == nil {
		t.Fatalf("expected tension_target out-of-range rejection")
	}
}

func TestGetNextBeatSkipsUnreadyPrerequisites(t *testing.T) {
	store := memory.NewStore(t.TempDir())
	m := NewManager(store, nil)

	idA, _ := store.NextID(memory.KindPlotBeat)
	idB, _ := store.NextID(memory.KindPlotBeat)
	_ = m.AddBeats([]memory.PlotBeat{
		{ID: idA, Description: "Setup", Status: memory.BeatPending},
		{ID: idB, Description: "Payoff", Status: memory.BeatPending, Prerequisites: []string{idA}},
	})

	next, err := m.GetNextBeat()
	if err != nil {
		t.Fatalf("GetNextBeat: %v", err)
	}
	if next == nil || next.ID != idA {
		t.Fatalf("expected beat %s (no unmet prerequisites) first, got %+v", idA, next)
	}

	if err := m.MarkBeatComplete(idA, "S000", "setup delivered"); err != nil {
		t.Fatalf("MarkBeatComplete: %v", err)
	}

	next, err = m.GetNextBeat()
	if err != nil {
		t.Fatalf("GetNextBeat: %v", err)
	}
	if next == nil || next.ID != idB {
		t.Fatalf("expected beat %s now ready, got %+v", idB, next)
	}
}

func TestNeedsRegenerationBoundary(t *testing.T) {
	store := memory.NewStore(t.TempDir())
	m := NewManager(store, nil)

	id, _ := store.NextID(memory.KindPlotBeat)
	_ = m.AddBeats([]memory.PlotBeat{{ID: id, Description: "One ready beat", Status: memory.BeatPending}})

	needs, err := m.NeedsRegeneration(1)
	if err != nil {
		t.Fatalf("NeedsRegeneration: %v", err)
	}
	if needs {
		t.Fatalf("expected no regeneration needed at exactly the threshold")
	}

	needs, err = m.NeedsRegeneration(2)
	if err != nil {
		t.Fatalf("NeedsRegeneration: %v", err)
	}
	if !needs {
		t.Fatalf("expected regeneration needed below the threshold")
	}
}
