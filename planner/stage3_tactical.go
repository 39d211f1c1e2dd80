package planner

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/storydaemon/storydaemon/llm"
)

const tacticalSchemaPrompt = `Respond with a single JSON object (no prose, fenced code blocks are tolerated) with these fields:
{
  "rationale": string,
  "scene_intention": string,
  "key_change": string,
  "actions": [{"tool": string, "args": object}],
  "expected_outcomes": [string],
  "progress_milestone": string (optional),
  "progress_step": string (optional),
  "pov_character": string (optional),
  "target_location": string (optional),
  "loops_addressed": [string] (optional),
  "scene_mode": "dialogue"|"political"|"action"|"technical"|"introspective" (optional),
  "palette_shift": [string] (optional),
  "transition_path": string (optional),
  "dialogue_targets": {"min_exchanges": int, "conflict_axis": string, "participants": [string]} (optional),
  "beat_target": {"beat_id": string, "strategy": "direct"|"setup"|"followup"|"skip", "notes": string} (optional),
  "metadata": {"scene_length": "brief"|"short"|"long"|"extended"} (optional)
}
rationale, scene_intention, key_change, actions, and expected_outcomes are required.`

// RunTacticalStage produces the plan object (spec §4.5 "Stage 3 —
// Tactical"). Prompt = scene_intention + selected context + tool
// catalogue + prior QA feedback (spec §4.7) + strict JSON schema.
func RunTacticalStage(ctx context.Context, adapter llm.Adapter, sceneIntention string, gathered *SemanticGatherResult, toolNames []string, beatID, beatDescription, previousSceneMode string, qaFeedback *QAFeedback, timeout time.Duration) (*Plan, []string, error) {
	prompt := buildTacticalPrompt(sceneIntention, gathered, toolNames, beatID, beatDescription, qaFeedback)
	text, err := adapter.Generate(ctx, prompt, Stage3MaxOutputTokens, timeout)
	if err != nil {
		return nil, nil, fmt.Errorf("planner: tactical stage: %w", err)
	}
	return ParsePlan(text, previousSceneMode)
}

func buildTacticalPrompt(sceneIntention string, gathered *SemanticGatherResult, toolNames []string, beatID, beatDescription string, qaFeedback *QAFeedback) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Scene intention: %s\n\n", sceneIntention)

	if gathered != nil {
		if len(gathered.RelevantScenes) > 0 {
			b.WriteString("Relevant past scenes:\n")
			for _, sc := range gathered.RelevantScenes {
				fmt.Fprintf(&b, "- %s: %s\n", sc.ID, strings.Join(sc.Summary, "; "))
			}
		}
		if len(gathered.RelevantOpenLoops) > 0 {
			b.WriteString("Relevant open loops:\n")
			for _, l := range gathered.RelevantOpenLoops {
				fmt.Fprintf(&b, "- %s [%s]: %s\n", l.ID, l.Importance, l.Description)
			}
		}
		if len(gathered.RelevantLore) > 0 {
			b.WriteString("Relevant lore:\n")
			for _, l := range gathered.RelevantLore {
				fmt.Fprintf(&b, "- %s: %s\n", l.ID, l.Fact)
			}
		}
		if len(gathered.ProtagonistRelationships) > 0 {
			b.WriteString("Protagonist relationships:\n")
			for _, r := range gathered.ProtagonistRelationships {
				fmt.Fprintf(&b, "- %s<->%s: %s\n", r.CharacterA, r.CharacterB, r.RelationshipType)
			}
		}
	}

	fmt.Fprintf(&b, "\nAvailable tools: %s\n", strings.Join(toolNames, ", "))
	if beatID != "" {
		fmt.Fprintf(&b, "\nActive beat target: %s — %s\n", beatID, beatDescription)
	}
	if fb := renderQAFeedback(qaFeedback); fb != "" {
		b.WriteString("\n" + fb)
	}

	b.WriteString("\n" + tacticalSchemaPrompt)
	return b.String()
}
