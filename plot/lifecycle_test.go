package plot

import (
	"testing"

	"github.com/storydaemon/storydaemon/memory"
)

func TestChooseForTickThenMarkCompleteFollowsLegalPath(t *testing.T) {
	store := memory.NewStore(t.TempDir())
	m := NewManager(store, nil)

	id, _ := store.NextID(memory.KindPlotBeat)
	_ = m.AddBeats([]memory.PlotBeat{{ID: id, Description: "Elena descends into the vault", Status: memory.BeatPending}})

	if err := m.ChooseForTick(id); err != nil {
		t.Fatalf("ChooseForTick: %v", err)
	}
	if err := m.MarkBeatComplete(id, "S004", "vault descent resolved"); err != nil {
		t.Fatalf("MarkBeatComplete: %v", err)
	}

	outline, _ := store.LoadPlotOutline()
	if outline.Beats[0].Status != memory.BeatExecuted {
		t.Fatalf("expected executed status, got %q", outline.Beats[0].Status)
	}
	if outline.Beats[0].ExecutedInScene != "S004" {
		t.Fatalf("expected executed_in_scene recorded, got %q", outline.Beats[0].ExecutedInScene)
	}
}

func TestMarkBeatCompleteRejectsIllegalTransitionFromSkipped(t *testing.T) {
	store := memory.NewStore(t.TempDir())
	m := NewManager(store, nil)

	id, _ := store.NextID(memory.KindPlotBeat)
	_ = m.AddBeats([]memory.PlotBeat{{ID: id, Description: "Abandoned subplot", Status: memory.BeatPending}})
	if err := m.MarkBeatSkipped(id, "dropped per strategy"); err != nil {
		t.Fatalf("MarkBeatSkipped: %v", err)
	}

	err := m.MarkBeatComplete(id, "S005", "should not apply")
	if err == nil {
		t.Fatalf("expected illegal-transition rejection from skipped to executed")
	}
	if _, ok := err.(*IllegalTransitionError); !ok {
		t.Fatalf("expected *IllegalTransitionError, got %T", err)
	}
}

func TestMarkBeatCompleteDirectlyFromPendingIsLegal(t *testing.T) {
	store := memory.NewStore(t.TempDir())
	m := NewManager(store, nil)

	id, _ := store.NextID(memory.KindPlotBeat)
	_ = m.AddBeats([]memory.PlotBeat{{ID: id, Description: "Quick resolution", Status: memory.BeatPending}})

	if err := m.MarkBeatComplete(id, "S006", "resolved without explicit in_progress step"); err != nil {
		t.Fatalf("expected pending -> executed to be legal, got %v", err)
	}
}
