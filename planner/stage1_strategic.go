package planner

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/storydaemon/storydaemon/llm"
	"github.com/storydaemon/storydaemon/memory"
)

// RunStrategicStage produces a one-sentence scene_intention (spec §4.5
// "Stage 1 — Strategic"). The prompt carries the novel name and tick, the
// foundation, the latest tension reading, the primary story goal (or that
// none is promoted yet) and the prior scene's QA feedback (spec §4.7
// "surfaced in the next tick's planner context"). It includes no pacing
// hint.
func RunStrategicStage(ctx context.Context, adapter llm.Adapter, state *memory.ProjectState, qaFeedback *QAFeedback, timeout time.Duration) (string, error) {
	prompt := buildStrategicPrompt(state, qaFeedback)
	text, err := adapter.Generate(ctx, prompt, Stage1MaxOutputTokens, timeout)
	if err != nil {
		return "", fmt.Errorf("planner: strategic stage: %w", err)
	}
	return strings.TrimSpace(text), nil
}

func buildStrategicPrompt(state *memory.ProjectState, qaFeedback *QAFeedback) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are planning the next scene of %q (tick %d).\n", state.NovelName, state.CurrentTick)

	if state.StoryFoundation != nil {
		f := state.StoryFoundation
		fmt.Fprintf(&b, "Foundation: genre=%s, premise=%s, setting=%s, tone=%s\n", f.Genre, f.Premise, f.Setting, f.Tone)
	}

	if len(state.TensionHistory) > 0 {
		last := state.TensionHistory[len(state.TensionHistory)-1]
		fmt.Fprintf(&b, "Tension pattern: most recent scene was %q at level %d.\n", last.Category, last.Level)
	}

	if state.StoryGoals.Primary != nil {
		fmt.Fprintf(&b, "Primary story goal: %s\n", state.StoryGoals.Primary.Description)
	} else {
		b.WriteString("No primary story goal has been promoted yet.\n")
	}

	if fb := renderQAFeedback(qaFeedback); fb != "" {
		b.WriteString(fb)
	}

	b.WriteString("Respond with exactly one sentence describing the next scene's intention. No preamble, no quotes.\n")
	return b.String()
}
