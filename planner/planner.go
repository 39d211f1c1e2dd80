package planner

import (
	"context"
	"time"

	"github.com/storydaemon/storydaemon/index"
	"github.com/storydaemon/storydaemon/llm"
	"github.com/storydaemon/storydaemon/memory"
)

// MultiStagePlanner runs the three-stage pipeline (spec §4.5), or a
// single-stage fallback when `generation.use_multi_stage_planner=false`.
// Grounded on the teacher's PRD pipeline (`startPRDRound` →
// `spawnAllExperts` → `runPMSynthesis`), generalized from a multi-agent
// round structure to three sequential stages within one tick.
type MultiStagePlanner struct {
	LLM       llm.Adapter
	Store     *memory.Store
	Index     *index.Adapter
	ToolNames []string
	Timeout   time.Duration
	GatherK   int
}

// Plan runs the full pipeline: Stage 1 strategic intention, Stage 2
// semantic gather, Stage 3 tactical plan. No beat target is passed to the
// tactical stage; PlanWithBeat supplies one. previousSceneMode is the
// prior tick's plan.SceneMode, used for the soft repeat-mode warning.
func (p *MultiStagePlanner) Plan(ctx context.Context, previousSceneMode string) (*Plan, []string, error) {
	state, err := p.Store.LoadState()
	if err != nil {
		return nil, nil, err
	}
	qaFeedback, err := loadQAFeedback(p.Store, state.CurrentTick-1)
	if err != nil {
		return nil, nil, err
	}

	intention, err := RunStrategicStage(ctx, p.LLM, state, qaFeedback, p.Timeout)
	if err != nil {
		return nil, nil, err
	}

	gathered, err := GatherSemanticContext(ctx, p.Store, p.Index, intention, p.GatherK, state.ActiveCharacter)
	if err != nil {
		return nil, nil, err
	}

	return RunTacticalStage(ctx, p.LLM, intention, gathered, p.ToolNames, "", "", previousSceneMode, qaFeedback, p.Timeout)
}

// PlanWithBeat is like Plan but injects an active beat target into the
// tactical stage's prompt (spec §4.10.1 state 2's beat selection feeding
// into state 3's planning).
func (p *MultiStagePlanner) PlanWithBeat(ctx context.Context, previousSceneMode, beatID, beatDescription string) (*Plan, []string, error) {
	state, err := p.Store.LoadState()
	if err != nil {
		return nil, nil, err
	}
	qaFeedback, err := loadQAFeedback(p.Store, state.CurrentTick-1)
	if err != nil {
		return nil, nil, err
	}

	intention, err := RunStrategicStage(ctx, p.LLM, state, qaFeedback, p.Timeout)
	if err != nil {
		return nil, nil, err
	}

	gathered, err := GatherSemanticContext(ctx, p.Store, p.Index, intention, p.GatherK, state.ActiveCharacter)
	if err != nil {
		return nil, nil, err
	}

	return RunTacticalStage(ctx, p.LLM, intention, gathered, p.ToolNames, beatID, beatDescription, previousSceneMode, qaFeedback, p.Timeout)
}

// PlanSingleStage is the fallback used when
// `generation.use_multi_stage_planner=false`: one LLM call against the
// full PlannerContext instead of the three-stage pipeline (spec §4.4
// "used by the single-stage fallback").
func (p *MultiStagePlanner) PlanSingleStage(ctx context.Context, recentScenesCount int, previousSceneMode, beatID, beatDescription string) (*Plan, []string, error) {
	plannerCtx, err := BuildPlannerContext(p.Store, p.ToolNames, recentScenesCount, beatID, beatDescription)
	if err != nil {
		return nil, nil, err
	}

	prompt := plannerCtx.Render() + "\n" + tacticalSchemaPrompt
	text, err := p.LLM.Generate(ctx, prompt, Stage3MaxOutputTokens, p.Timeout)
	if err != nil {
		return nil, nil, err
	}
	return ParsePlan(text, previousSceneMode)
}
