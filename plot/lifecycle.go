package plot

import (
	"fmt"
	"time"

	"github.com/storydaemon/storydaemon/memory"
)

// IllegalTransitionError is returned when a beat-status transition is not
// permitted by spec §4.9's lifecycle (`pending → in_progress → executed |
// skipped`).
type IllegalTransitionError struct {
	BeatID string
	From   memory.BeatStatus
	To     memory.BeatStatus
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("plot: beat %s: illegal transition %s -> %s", e.BeatID, e.From, e.To)
}

var legalTransitions = map[memory.BeatStatus]map[memory.BeatStatus]bool{
	memory.BeatPending:    {memory.BeatInProgress: true, memory.BeatSkipped: true, memory.BeatExecuted: true},
	memory.BeatInProgress: {memory.BeatExecuted: true, memory.BeatSkipped: true},
}

func transition(b *memory.PlotBeat, to memory.BeatStatus) error {
	allowed := legalTransitions[b.Status]
	if allowed == nil || !allowed[to] {
		return &IllegalTransitionError{BeatID: b.ID, From: b.Status, To: to}
	}
	b.Status = to
	return nil
}

// ChooseForTick transitions beatID from pending to in_progress (spec
// §4.9 "pending → in_progress when chosen for a tick").
func (m *Manager) ChooseForTick(beatID string) error {
	outline, err := m.Store.LoadPlotOutline()
	if err != nil {
		return err
	}
	for i := range outline.Beats {
		if outline.Beats[i].ID == beatID {
			if err := transition(&outline.Beats[i], memory.BeatInProgress); err != nil {
				return err
			}
			return m.Store.SavePlotOutline(outline)
		}
	}
	return fmt.Errorf("plot: beat %s not found", beatID)
}

// MarkBeatComplete transitions beatID to executed, recording sceneID and
// notes (spec §4.9). Legal from pending or in_progress.
func (m *Manager) MarkBeatComplete(beatID, sceneID, notes string) error {
	outline, err := m.Store.LoadPlotOutline()
	if err != nil {
		return err
	}
	for i := range outline.Beats {
		if outline.Beats[i].ID != beatID {
			continue
		}
		if err := transition(&outline.Beats[i], memory.BeatExecuted); err != nil {
			return err
		}
		outline.Beats[i].ExecutedInScene = sceneID
		outline.Beats[i].ExecutionNotes = notes
		outline.LastUpdated = time.Now()
		return m.Store.SavePlotOutline(outline)
	}
	return fmt.Errorf("plot: beat %s not found", beatID)
}

// MarkBeatSkipped transitions beatID to skipped (an explicit strategy
// decision, spec §4.9), leaving it out of future GetNextBeat results.
func (m *Manager) MarkBeatSkipped(beatID, notes string) error {
	outline, err := m.Store.LoadPlotOutline()
	if err != nil {
		return err
	}
	for i := range outline.Beats {
		if outline.Beats[i].ID != beatID {
			continue
		}
		if err := transition(&outline.Beats[i], memory.BeatSkipped); err != nil {
			return err
		}
		outline.Beats[i].ExecutionNotes = notes
		outline.LastUpdated = time.Now()
		return m.Store.SavePlotOutline(outline)
	}
	return fmt.Errorf("plot: beat %s not found", beatID)
}
