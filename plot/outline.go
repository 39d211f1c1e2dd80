// Package plot implements the Plot Outline Manager (spec §4.9):
// generation, validation, and lifecycle tracking of the plot beats that
// steer the Multi-Stage Planner toward a long-range arc. Grounded on
// `kanban.Status`'s ticket-status lifecycle + `UpdateTicketStatus`'s
// audit-trail pattern, generalized from ticket statuses to beat statuses,
// and on `PRDConversation`'s round/consensus bookkeeping for prerequisite
// tracking.
package plot

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/storydaemon/storydaemon/llm"
	"github.com/storydaemon/storydaemon/memory"
	"github.com/storydaemon/storydaemon/planner"
)

// Manager maintains plot_outline.json (spec §4.9).
type Manager struct {
	Store *memory.Store
	LLM   llm.Adapter
}

// NewManager returns a Manager bound to store and adapter.
func NewManager(store *memory.Store, adapter llm.Adapter) *Manager {
	return &Manager{Store: store, LLM: adapter}
}

// rawBeat is the LLM-proposed beat shape before system fields are
// assigned; any id/status/created_at/executed_in_scene/execution_notes
// the LLM attempts to set is stripped (spec §4.9).
type rawBeat struct {
	Description           string   `json:"description"`
	CharactersInvolved    []string `json:"characters_involved"`
	Location              string   `json:"location"`
	PlotThreads           []string `json:"plot_threads"`
	TensionTarget         *int     `json:"tension_target"`
	Prerequisites         []string `json:"prerequisites"`
	AdvancesCharacterArcs []string `json:"advances_character_arcs"`
	ResolvesLoops         []string `json:"resolves_loops"`
	CreatesLoops          []string `json:"creates_loops"`
}

// ValidationError is returned by AddBeats when a proposed beat violates
// spec §4.9's validation rules.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return fmt.Sprintf("plot: invalid beat: %s", e.Reason) }

// GenerateNextBeats calls the LLM for n new beats describing storyState,
// assigns system fields (id, status=pending, created_at), and returns
// them without yet adding them to the outline (the caller decides whether
// to call AddBeats, per the orchestrator's MaybeRegenerateBeats step).
func (m *Manager) GenerateNextBeats(ctx context.Context, n int, storyState *memory.ProjectState, timeout time.Duration) ([]memory.PlotBeat, error) {
	prompt := buildBeatsPrompt(n, storyState)
	raw, err := m.LLM.Generate(ctx, prompt, 500, timeout)
	if err != nil {
		return nil, fmt.Errorf("plot: generate_next_beats: %w", err)
	}

	cleaned := planner.ExtractJSON(raw)
	var parsed struct {
		Beats []rawBeat `json:"beats"`
	}
	if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
		return nil, fmt.Errorf("plot: invalid beats json: %w", err)
	}

	beats := make([]memory.PlotBeat, 0, len(parsed.Beats))
	for _, rb := range parsed.Beats {
		id, err := m.Store.NextID(memory.KindPlotBeat)
		if err != nil {
			return nil, err
		}
		beats = append(beats, memory.PlotBeat{
			ID:                    id,
			Description:           rb.Description,
			CharactersInvolved:    rb.CharactersInvolved,
			Location:              rb.Location,
			PlotThreads:           rb.PlotThreads,
			TensionTarget:         rb.TensionTarget,
			Prerequisites:         rb.Prerequisites,
			Status:                memory.BeatPending,
			CreatedAt:             time.Now(),
			AdvancesCharacterArcs: rb.AdvancesCharacterArcs,
			ResolvesLoops:         rb.ResolvesLoops,
			CreatesLoops:          rb.CreatesLoops,
		})
	}
	return beats, nil
}

func buildBeatsPrompt(n int, state *memory.ProjectState) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Propose %d upcoming plot beats for %q (current tick %d).\n", n, state.NovelName, state.CurrentTick)
	if state.StoryFoundation != nil {
		fmt.Fprintf(&b, "Genre: %s. Premise: %s. Tone: %s.\n", state.StoryFoundation.Genre, state.StoryFoundation.Premise, state.StoryFoundation.Tone)
	}
	b.WriteString(`Respond with a single JSON object: {"beats": [{"description": string, "characters_involved": [string], "location": string, "plot_threads": [string], "tension_target": number, "prerequisites": [string], "advances_character_arcs": [string], "resolves_loops": [string], "creates_loops": [string]}]}` + "\n")
	b.WriteString("Do not set id, status, created_at, executed_in_scene, or execution_notes — those are assigned by the system.\n")
	return b.String()
}

// AddBeats validates and appends beats to the outline, persisting it.
// Validation (spec §4.9): non-empty description; prerequisites reference
// an existing outline beat or an earlier beat within this batch; tension
// target in [0,10] when set; no duplicate descriptions within the
// resulting outline.
func (m *Manager) AddBeats(beats []memory.PlotBeat) error {
	outline, err := m.Store.LoadPlotOutline()
	if err != nil {
		return err
	}

	known := make(map[string]bool, len(outline.Beats))
	descriptions := make(map[string]bool, len(outline.Beats))
	for _, b := range outline.Beats {
		known[b.ID] = true
		descriptions[strings.ToLower(strings.TrimSpace(b.Description))] = true
	}

	for _, b := range beats {
		if strings.TrimSpace(b.Description) == "" {
			return &ValidationError{Reason: "empty description"}
		}
		key := strings.ToLower(strings.TrimSpace(b.Description))
		if descriptions[key] {
			return &ValidationError{Reason: fmt.Sprintf("duplicate description %q", b.Description)}
		}
		descriptions[key] = true

		if b.TensionTarget != nil && (*b.TensionTarget < 0 || *b.TensionTarget > 10) {
			return &ValidationError{Reason: fmt.Sprintf("tension_target %d out of range [0,10]", *b.TensionTarget)}
		}
		for _, prereq := range b.Prerequisites {
			if !known[prereq] {
				return &ValidationError{Reason: fmt.Sprintf("prerequisite %q references an unknown beat", prereq)}
			}
		}
		known[b.ID] = true
	}

	outline.Beats = append(outline.Beats, beats...)
	outline.LastUpdated = time.Now()
	if outline.CreatedAt.IsZero() {
		outline.CreatedAt = outline.LastUpdated
	}
	return m.Store.SavePlotOutline(outline)
}

// GetNextBeat returns the first pending beat whose prerequisites are all
// executed, or nil if none qualifies.
func (m *Manager) GetNextBeat() (*memory.PlotBeat, error) {
	outline, err := m.Store.LoadPlotOutline()
	if err != nil {
		return nil, err
	}

	executed := make(map[string]bool, len(outline.Beats))
	for _, b := range outline.Beats {
		if b.Status == memory.BeatExecuted {
			executed[b.ID] = true
		}
	}

	for i := range outline.Beats {
		b := &outline.Beats[i]
		if b.Status != memory.BeatPending {
			continue
		}
		ready := true
		for _, prereq := range b.Prerequisites {
			if !executed[prereq] {
				ready = false
				break
			}
		}
		if ready {
			beat := *b
			return &beat, nil
		}
	}
	return nil, nil
}

// NeedsRegeneration reports whether the count of pending beats whose
// prerequisites are all executed falls strictly below threshold (spec
// §4.9 — exactly at threshold does not trigger regeneration).
func (m *Manager) NeedsRegeneration(threshold int) (bool, error) {
	outline, err := m.Store.LoadPlotOutline()
	if err != nil {
		return false, err
	}

	executed := make(map[string]bool, len(outline.Beats))
	for _, b := range outline.Beats {
		if b.Status == memory.BeatExecuted {
			executed[b.ID] = true
		}
	}

	ready := 0
	for _, b := range outline.Beats {
		if b.Status != memory.BeatPending {
			continue
		}
		allReady := true
		for _, prereq := range b.Prerequisites {
			if !executed[prereq] {
				allReady = false
				break
			}
		}
		if allReady {
			ready++
		}
	}
	return ready < threshold, nil
}
