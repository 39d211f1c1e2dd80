package eval

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/storydaemon/storydaemon/llm"
	"github.com/storydaemon/storydaemon/planner"
)

// Record is the per-scene QA record (spec §4.7).
type Record struct {
	AchievedChange       bool     `json:"achieved_change"`
	DialogueCount        int      `json:"dialogue_count"`
	MetTarget            bool     `json:"met_target"`
	TransitionClarity    string   `json:"transition_clarity"`
	ModeUsed             string   `json:"mode_used"`
	ModeDiversityWarning bool     `json:"mode_diversity_warning"`
	NoveltyScore         float64  `json:"novelty_score"`
	ContinuityFlags      []string `json:"continuity_flags"`
	BeatHintAlignment    string   `json:"beat_hint_alignment"`
}

// SceneEvaluationFailed marks a QA record that fell into the fatal band:
// the scene failed to achieve its stated key_change and the transition
// is judged unclear (spec §4.7 — an aborted-tick trigger, not a soft
// warning).
type SceneEvaluationFailed struct {
	Record *Record
}

func (e *SceneEvaluationFailed) Error() string {
	return fmt.Sprintf("qa: scene failed evaluation (achieved_change=%v, transition_clarity=%q)",
		e.Record.AchievedChange, e.Record.TransitionClarity)
}

// qaSchemaPrompt instructs the LLM to return the Record fields as JSON.
const qaSchemaPrompt = `Evaluate the scene against its stated intent. Respond with a single JSON
object with exactly these fields:
{
  "achieved_change": boolean,       // did the scene deliver its key_change?
  "dialogue_count": integer,        // number of distinct dialogue exchanges
  "transition_clarity": "clear" | "ambiguous" | "unclear",
  "novelty_score": number,          // 0.0-1.0, how fresh vs repetitive the scene felt
  "continuity_flags": [string],     // any contradictions with established facts, else []
  "beat_hint_alignment": "aligned" | "partial" | "off-target" | "n/a"
}
Respond with only the JSON object.`

// RunQA calls the LLM to judge the scene, merges in deterministic fields
// computed locally (dialogue count via quoted-speech heuristic, mode
// diversity vs recent scene modes), and returns the assembled Record.
// Returns *SceneEvaluationFailed when the scene lands in the fatal band:
// achieved_change is false AND transition_clarity is "unclear".
func RunQA(ctx context.Context, adapter llm.Adapter, text, sceneIntention, keyChange, sceneMode string,
	recentModes []string, beatHint string, timeout time.Duration) (*Record, error) {

	prompt := buildQAPrompt(text, sceneIntention, keyChange, beatHint)
	raw, err := adapter.Generate(ctx, prompt, 300, timeout)
	if err != nil {
		return nil, fmt.Errorf("eval: qa generate: %w", err)
	}

	rec, err := parseQAResponse(raw)
	if err != nil {
		return nil, fmt.Errorf("eval: qa parse: %w", err)
	}

	rec.DialogueCount = countDialogueExchanges(text)
	rec.ModeUsed = sceneMode
	rec.ModeDiversityWarning = isRepeatedMode(sceneMode, recentModes)
	rec.MetTarget = rec.AchievedChange

	if !rec.AchievedChange && rec.TransitionClarity == "unclear" {
		return rec, &SceneEvaluationFailed{Record: rec}
	}
	return rec, nil
}

func buildQAPrompt(text, sceneIntention, keyChange, beatHint string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Scene intention: %s\nIntended key change: %s\n", sceneIntention, keyChange)
	if beatHint != "" {
		fmt.Fprintf(&b, "Active plot beat: %s\n", beatHint)
	}
	b.WriteString("\nScene text:\n")
	b.WriteString(text)
	b.WriteString("\n\n")
	b.WriteString(qaSchemaPrompt)
	return b.String()
}

func parseQAResponse(raw string) (*Record, error) {
	cleaned := planner.ExtractJSON(raw)
	var rec Record
	if err := json.Unmarshal([]byte(cleaned), &rec); err != nil {
		return nil, fmt.Errorf("invalid qa json: %w", err)
	}
	if rec.ContinuityFlags == nil {
		rec.ContinuityFlags = []string{}
	}
	return &rec, nil
}

// countDialogueExchanges counts quoted-speech spans as a proxy for
// dialogue turns.
func countDialogueExchanges(text string) int {
	return strings.Count(text, "\"") / 2
}

// isRepeatedMode flags when sceneMode matches every mode in the last two
// recent scenes (spec §4.7 mode-diversity warning).
func isRepeatedMode(sceneMode string, recentModes []string) bool {
	if len(recentModes) < 2 {
		return false
	}
	window := recentModes
	if len(window) > 2 {
		window = window[len(window)-2:]
	}
	for _, m := range window {
		if m != sceneMode {
			return false
		}
	}
	return true
}
