package planner

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/storydaemon/storydaemon/memory"
	"github.com/storydaemon/storydaemon/tokens"
)

// PlannerContextBudget is the soft token cap applied across the rendered
// planner context sections (spec §4.4 "soft budget").
const PlannerContextBudget = 1200

// PlannerContext is the assembled context for the single-stage fallback
// (spec §4.4 "Planner context"); Stage 3 builds its prompt from a
// SemanticGatherResult instead. Grounded on `agents.PromptData`
// — one struct aggregating everything a prompt template needs.
type PlannerContext struct {
	NovelName               string
	CurrentTick             int
	ActiveCharacterSummary  string
	OverallSummary          []string
	RecentSceneSummaries    []string
	OpenLoops               []memory.OpenLoop
	ProtagonistRelationships []memory.Relationship
	TensionHistory          []memory.TensionPoint
	FactionSummaries        []string
	AvailableTools          []string
	BeatTargetID            string
	BeatTargetDescription   string
	QAFeedback              *QAFeedback
}

// QAFeedback is the subset of eval.Record surfaced back into the next
// tick's planner context (spec §4.7 "surfaced in the next tick's planner
// context as qa_feedback"). Defined locally with matching json tags
// rather than importing the eval package, which itself imports planner
// (for ExtractJSON) and would otherwise create an import cycle.
type QAFeedback struct {
	AchievedChange       bool     `json:"achieved_change"`
	TransitionClarity    string   `json:"transition_clarity"`
	NoveltyScore         float64  `json:"novelty_score"`
	ModeDiversityWarning bool     `json:"mode_diversity_warning"`
	ContinuityFlags      []string `json:"continuity_flags"`
	BeatHintAlignment    string   `json:"beat_hint_alignment"`
}

// qaRecordFile mirrors the shape persistQARecord writes in orchestrator.go:
// {"tick": N, "qa": {...}}.
type qaRecordFile struct {
	Tick int         `json:"tick"`
	QA   *QAFeedback `json:"qa"`
}

// loadQAFeedback reads the QA record persisted for tick (spec §4.7).
// Returns nil, nil when no record exists for that tick — no QA was run
// that tick, or there is no previous tick yet — which callers treat as
// "nothing to surface" rather than an error.
func loadQAFeedback(store *memory.Store, tick int) (*QAFeedback, error) {
	if tick < 0 {
		return nil, nil
	}
	data, err := os.ReadFile(store.Layout().QAPath(tick))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var rec qaRecordFile
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	return rec.QA, nil
}

// BuildPlannerContext assembles a PlannerContext from the current project
// state (spec §4.4). recentScenesCount defaults to 3 when 0 is passed.
func BuildPlannerContext(store *memory.Store, toolNames []string, recentScenesCount int, beatID, beatDescription string) (*PlannerContext, error) {
	if recentScenesCount <= 0 {
		recentScenesCount = 3
	}

	state, err := store.LoadState()
	if err != nil {
		return nil, err
	}

	sceneIDs, err := store.ListIDs(memory.KindScene)
	if err != nil {
		return nil, err
	}

	var overall []string
	var recentDetailed []string
	for i, id := range sceneIDs {
		var sc memory.Scene
		if err := store.Load(memory.KindScene, id, &sc); err != nil {
			continue
		}
		if len(sc.Summary) > 0 {
			overall = append(overall, fmt.Sprintf("%s: %s", id, sc.Summary[0]))
		}
		if i >= len(sceneIDs)-recentScenesCount {
			recentDetailed = append(recentDetailed, fmt.Sprintf("%s (tick %d): %s", id, sc.Tick, strings.Join(sc.Summary, "; ")))
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
	open = memory.SortByPriority(open)

	rels, err := store.LoadRelationships()
	if err != nil {
		return nil, err
	}
	var protagonistRels []memory.Relationship
	if state.ActiveCharacter != "" {
		protagonistRels = memory.GetCharacterRelationships(rels, state.ActiveCharacter)
	}

	tensionHistory := state.TensionHistory
	if len(tensionHistory) > 5 {
		tensionHistory = tensionHistory[len(tensionHistory)-5:]
	}

	factionIDs, err := store.ListIDs(memory.KindFaction)
	if err != nil {
		return nil, err
	}
	var factionSummaries []string
	for _, id := range factionIDs {
		var f memory.Faction
		if err := store.Load(memory.KindFaction, id, &f); err == nil {
			factionSummaries = append(factionSummaries, fmt.Sprintf("%s (%s): %s", f.Name, f.Type, f.Summary))
		}
	}

	activeSummary := ""
	if state.ActiveCharacter != "" {
		var c memory.Character
		if err := store.Load(memory.KindCharacter, state.ActiveCharacter, &c); err == nil {
			activeSummary = fmt.Sprintf("%s — %s, feeling %s, currently at %s", c.FullName(), c.Role, c.CurrentState.EmotionalState, c.CurrentState.LocationID)
		}
	}

	qaFeedback, err := loadQAFeedback(store, state.CurrentTick-1)
	if err != nil {
		return nil, err
	}

	return &PlannerContext{
		NovelName:                state.NovelName,
		CurrentTick:              state.CurrentTick,
		ActiveCharacterSummary:   activeSummary,
		OverallSummary:           overall,
		RecentSceneSummaries:     recentDetailed,
		OpenLoops:                open,
		ProtagonistRelationships: protagonistRels,
		TensionHistory:           tensionHistory,
		FactionSummaries:         factionSummaries,
		AvailableTools:           toolNames,
		BeatTargetID:             beatID,
		BeatTargetDescription:    beatDescription,
		QAFeedback:               qaFeedback,
	}, nil
}

// renderQAFeedback formats the previous scene's QA record for the
// planner prompt. Returns "" when no QA record is available, which
// Render drops from the section list.
func renderQAFeedback(qa *QAFeedback) string {
	if qa == nil {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Previous scene: achieved_change=%v, transition_clarity=%s, novelty_score=%.2f, beat_hint_alignment=%s\n",
		qa.AchievedChange, qa.TransitionClarity, qa.NoveltyScore, qa.BeatHintAlignment)
	if qa.ModeDiversityWarning {
		b.WriteString("Warning: the last two scenes repeated the same scene mode — vary it this time.\n")
	}
	if len(qa.ContinuityFlags) > 0 {
		fmt.Fprintf(&b, "Unresolved continuity flags: %s\n", strings.Join(qa.ContinuityFlags, "; "))
	}
	return b.String()
}

// Render flattens the context into labeled sections and applies the soft
// token budget (longest-section-first truncation, spec §4.4).
func (c *PlannerContext) Render() string {
	var loops strings.Builder
	for _, l := range c.OpenLoops {
		fmt.Fprintf(&loops, "- [%s] %s (%s)\n", l.Importance, l.Description, l.Category)
	}

	var rels strings.Builder
	for _, r := range c.ProtagonistRelationships {
		fmt.Fprintf(&rels, "- %s<->%s: %s, intensity %d\n", r.CharacterA, r.CharacterB, r.RelationshipType, r.Intensity)
	}

	var tension strings.Builder
	for _, t := range c.TensionHistory {
		fmt.Fprintf(&tension, "- tick %d: %d (%s)\n", t.Tick, t.Level, t.Category)
	}

	beat := "none"
	if c.BeatTargetID != "" {
		beat = fmt.Sprintf("%s: %s", c.BeatTargetID, c.BeatTargetDescription)
	}

	sections := []tokens.Section{
		{Name: "novel", Text: fmt.Sprintf("Novel: %s | Tick: %d", c.NovelName, c.CurrentTick)},
		{Name: "active_character", Text: c.ActiveCharacterSummary},
		{Name: "overall_summary", Text: strings.Join(c.OverallSummary, "\n")},
		{Name: "recent_scenes", Text: strings.Join(c.RecentSceneSummaries, "\n")},
		{Name: "open_loops", Text: loops.String()},
		{Name: "relationships", Text: rels.String()},
		{Name: "tension_history", Text: tension.String()},
		{Name: "factions", Text: strings.Join(c.FactionSummaries, "\n")},
		{Name: "tools", Text: strings.Join(c.AvailableTools, ", ")},
		{Name: "beat_target", Text: beat},
		{Name: "qa_feedback", Text: renderQAFeedback(c.QAFeedback)},
	}
	sections = tokens.TruncateToBudget(sections, PlannerContextBudget)

	var out strings.Builder
	for _, s := range sections {
		if s.Text == "" {
			continue
		}
		fmt.Fprintf(&out, "## %s\n%s\n\n", s.Name, s.Text)
	}
	return out.String()
}
