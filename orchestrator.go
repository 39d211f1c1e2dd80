package storydaemon

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/storydaemon/storydaemon/checkpoint"
	"github.com/storydaemon/storydaemon/eval"
	"github.com/storydaemon/storydaemon/extract"
	"github.com/storydaemon/storydaemon/index"
	"github.com/storydaemon/storydaemon/llm"
	"github.com/storydaemon/storydaemon/memory"
	"github.com/storydaemon/storydaemon/planner"
	"github.com/storydaemon/storydaemon/plot"
	"github.com/storydaemon/storydaemon/tools"
	"github.com/storydaemon/storydaemon/writer"
)

// TickOrchestrator runs the tick state machine (spec §4.10): the
// 13-state normal tick and the two-phase first tick, wiring together
// every subsystem package. Grounded on the teacher's
// `Orchestrator.runCycle`/`NewOrchestrator`: one constructor assembling
// all collaborators, one mutex guarding against concurrent runs of the
// same instance (spec §5 "the project directory is the only shared
// resource"; cross-process exclusion is `AcquireProjectLock`'s job, this
// mutex only guards one process's single `TickOrchestrator`).
type TickOrchestrator struct {
	mu sync.Mutex

	projectRoot string
	store       *memory.Store
	index       *index.Adapter
	llm         llm.Adapter
	registry    *tools.Registry
	executor    *tools.Executor
	planner     *planner.MultiStagePlanner
	writer      *writer.Writer
	plotManager *plot.Manager
	config      *Config
	logger      *slog.Logger
}

// NewTickOrchestrator assembles a TickOrchestrator rooted at projectRoot,
// wiring the configured collaborators to every subsystem package.
func NewTickOrchestrator(projectRoot string, adapter llm.Adapter, vector index.VectorAdapter, cfg *Config) (*TickOrchestrator, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	store := memory.NewStore(projectRoot)
	if err := store.EnsureDirs(); err != nil {
		return nil, err
	}

	idx := index.New(vector)
	wrapped := llm.WithTimeout(adapter)
	registry := tools.NewRegistry(tools.Deps{Store: store, Index: idx})
	executor := tools.NewExecutor(registry)

	mp := &planner.MultiStagePlanner{
		LLM:       wrapped,
		Store:     store,
		Index:     idx,
		ToolNames: registry.Names(),
		Timeout:   timeoutFromSeconds(cfg.LLM.TimeoutSeconds),
		GatherK:   5,
	}

	logger.Info("tick orchestrator initialized", "project_root", projectRoot, "llm_backend", cfg.LLM.Backend)

	return &TickOrchestrator{
		projectRoot: projectRoot,
		store:       store,
		index:       idx,
		llm:         wrapped,
		registry:    registry,
		executor:    executor,
		planner:     mp,
		writer:      writer.New(wrapped),
		plotManager: plot.NewManager(store, wrapped),
		config:      cfg,
		logger:      logger,
	}, nil
}

func timeoutFromSeconds(s float64) time.Duration {
	if s <= 0 {
		return 60 * time.Second
	}
	return time.Duration(s * float64(time.Second))
}

// RunTick executes exactly one tick: the first-tick two-phase variant
// when current_tick==0, the normal 13-state variant otherwise. A failed
// tick leaves current_tick unchanged (spec §5 "a failed tick leaves it
// unchanged").
func (o *TickOrchestrator) RunTick(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	state, err := o.store.LoadState()
	if err != nil {
		return &IOError{Op: "load state", Err: err}
	}

	o.logger.Info("tick starting", "tick", state.CurrentTick)
	if state.CurrentTick == 0 {
		return o.runFirstTick(ctx, state)
	}
	return o.runNormalTick(ctx, state)
}

// tickContext carries the values threaded through states 5-13, common to
// both tick variants.
type tickContext struct {
	tick            int
	state           *memory.ProjectState
	plan            *planner.Plan
	results         []tools.Result
	isFirstTick     bool
	beatID          string
	beatDescription string
}

// --- normal tick (spec §4.10.1) ---------------------------------------

func (o *TickOrchestrator) runNormalTick(ctx context.Context, state *memory.ProjectState) error {
	tick := state.CurrentTick

	if err := o.maybeRegenerateBeats(ctx, state); err != nil {
		return o.abort(tick, err, "MaybeRegenerateBeats")
	}

	beatID, beatDescription, err := o.selectBeat()
	if err != nil {
		return o.abort(tick, err, "MaybeRegenerateBeats")
	}

	plan, err := o.generatePlan(ctx, tick, beatID, beatDescription)
	if err != nil {
		return o.abort(tick, err, "Plan")
	}
	o.logger.Info("plan generated", "tick", tick, "scene_intention", plan.SceneIntention, "actions", len(plan.Actions))

	results, execErr := o.executor.Execute(ctx, plan.Actions)
	if execErr != nil {
		wrapped := &ToolExecutionError{FailingIndex: haltIndex(execErr), Err: execErr}
		_ = o.writeScenePlanRecord(tick, plan, results, wrapped, state)
		return o.abort(tick, wrapped, "Execute")
	}
	o.logger.Info("actions executed", "tick", tick, "count", len(results))

	if err := o.writeScenePlanRecord(tick, plan, results, nil, state); err != nil {
		return o.abort(tick, err, "PersistPlan")
	}

	tc := &tickContext{tick: tick, state: state, plan: plan, results: results, isFirstTick: false, beatID: beatID, beatDescription: beatDescription}
	return o.runScenePipeline(ctx, tc)
}

// --- first tick (spec §4.10.2) ----------------------------------------

func (o *TickOrchestrator) runFirstTick(ctx context.Context, state *memory.ProjectState) error {
	const tick = 0

	if err := o.maybeRegenerateBeats(ctx, state); err != nil {
		return o.abort(tick, err, "MaybeRegenerateBeats")
	}

	beatID, beatDescription, err := o.selectBeat()
	if err != nil {
		return o.abort(tick, err, "MaybeRegenerateBeats")
	}

	plan, err := o.generatePlan(ctx, tick, beatID, beatDescription)
	if err != nil {
		return o.abort(tick, err, "Plan")
	}
	o.logger.Info("first-tick plan generated", "scene_intention", plan.SceneIntention, "actions", len(plan.Actions))

	// Phase 1 — Entity Setup: execute only the entity-generator actions.
	generatorActions, restActions := filterEntityGeneratorActions(plan.Actions)
	genResults, execErr := o.executor.Execute(ctx, generatorActions)
	if execErr != nil {
		wrapped := &ToolExecutionError{FailingIndex: haltIndex(execErr), Err: execErr}
		_ = o.writeScenePlanRecord(tick, plan, genResults, wrapped, state)
		return o.abort(tick, wrapped, "Execute(Phase1)")
	}

	var firstCharacterID, firstLocationID string
	for _, r := range genResults {
		if !r.Success {
			continue
		}
		switch v := r.Output.(type) {
		case *memory.Character:
			if firstCharacterID == "" {
				firstCharacterID = v.ID
			}
		case *memory.Location:
			if firstLocationID == "" {
				firstLocationID = v.ID
			}
		}
	}
	if firstCharacterID != "" {
		plan.POVCharacter = firstCharacterID
	}
	if firstLocationID != "" {
		plan.TargetLocation = firstLocationID
	}
	if state.ActiveCharacter == "" {
		state.ActiveCharacter = firstCharacterID
	}
	o.logger.Info("entity setup complete", "character", firstCharacterID, "location", firstLocationID)

	// Phase 2 — Scene Writing: execute the remaining actions.
	restResults, execErr := o.executor.Execute(ctx, restActions)
	allResults := append(append([]tools.Result{}, genResults...), restResults...)
	if execErr != nil {
		wrapped := &ToolExecutionError{FailingIndex: haltIndex(execErr), Err: execErr}
		_ = o.writeScenePlanRecord(tick, plan, allResults, wrapped, state)
		return o.abort(tick, wrapped, "Execute(Phase2)")
	}

	if err := o.writeScenePlanRecord(tick, plan, allResults, nil, state); err != nil {
		return o.abort(tick, err, "PersistPlan")
	}

	tc := &tickContext{tick: tick, state: state, plan: plan, results: allResults, isFirstTick: true, beatID: beatID, beatDescription: beatDescription}
	return o.runScenePipeline(ctx, tc)
}

// runScenePipeline implements states 6-13, shared by both tick variants.
func (o *TickOrchestrator) runScenePipeline(ctx context.Context, tc *tickContext) error {
	timeout := timeoutFromSeconds(o.config.LLM.TimeoutSeconds)

	// State 6: WriteScene.
	wctx, err := planner.BuildWriterContext(o.store, tc.plan, tc.results, tc.isFirstTick,
		o.config.Generation.FullTextScenesCount, o.config.Generation.SummaryScenesCount)
	if err != nil {
		return o.abort(tc.tick, &IOError{Op: "build writer context", Err: err}, "WriteScene")
	}
	output, err := o.writer.Write(ctx, wctx, o.config.LLM.WriterMaxTokens, timeout)
	if err != nil {
		return o.abort(tc.tick, &ModelError{Stage: "writer", Err: err}, "WriteScene")
	}
	o.logger.Info("scene written", "tick", tc.tick, "title", output.Title, "word_count", output.WordCount)

	// State 7: Evaluate (deterministic checks).
	sceneLength := tc.plan.Metadata.SceneLength
	detResult := eval.RunDeterministicChecks(output.Text, output.WordCount,
		o.config.Generation.TargetWordCountMin, o.config.Generation.TargetWordCountMax, sceneLength)
	if detResult.Fatal != nil {
		return o.abort(tc.tick, detResult.Fatal, "Evaluate")
	}

	// State 8: CommitScene.
	sceneID, err := o.store.NextID(memory.KindScene)
	if err != nil {
		return o.abort(tc.tick, &IOError{Op: "allocate scene id", Err: err}, "CommitScene")
	}
	mdPath := o.store.Layout().SceneMarkdownPath(sceneID)
	if err := writeTextAtomic(mdPath, renderSceneMarkdown(output.Title, sceneID, output.Text)); err != nil {
		return o.abort(tc.tick, err, "CommitScene")
	}
	summary := summarizeScene(ctx, o.llm, output.Text, timeout)

	created, updated := classifyEntityResults(tc.results)
	created, updated = dedupe(created), dedupe(updated)

	var charactersPresent []string
	if tc.plan.POVCharacter != "" {
		charactersPresent = append(charactersPresent, tc.plan.POVCharacter)
	}

	now := time.Now()
	scene := &memory.Scene{
		Record:            memory.Record{ID: sceneID, Type: memory.KindScene, CreatedAt: now, UpdatedAt: now},
		Tick:              tc.tick,
		Title:             output.Title,
		POVCharacterID:    tc.plan.POVCharacter,
		LocationID:        tc.plan.TargetLocation,
		MarkdownFile:      mdPath,
		WordCount:         output.WordCount,
		Summary:           summary,
		CharactersPresent: charactersPresent,
		KeyEvents:         tc.plan.ExpectedOutcomes,
		EntitiesCreated:   created,
		EntitiesUpdated:   updated,
	}
	if err := o.store.Save(memory.KindScene, sceneID, scene); err != nil {
		return o.abort(tc.tick, err, "CommitScene")
	}
	if o.index != nil {
		_ = o.index.Index(ctx, index.Indexable{
			Collection: index.CollectionScenes,
			ID:         sceneID,
			Text:       strings.Join(summary, " "),
		})
	}
	o.logger.Info("scene committed", "tick", tc.tick, "scene_id", sceneID)

	// State 9: EvaluateTensionAndQA. The loop-delta component of the
	// tension formula is only known after state 10's extraction, so QA
	// runs here (it does not depend on loop counts) but the tension score
	// itself is finalized immediately after extraction, below.
	var qaRecord *eval.Record
	if o.config.Generation.EnableTensionTracking {
		recentModes := o.recentSceneModes(tc.tick, 2)
		qaRecord, err = eval.RunQA(ctx, o.llm, output.Text, tc.plan.SceneIntention, tc.plan.KeyChange,
			tc.plan.SceneMode, recentModes, tc.beatDescription, timeout)
		if err != nil {
			if _, ok := err.(*eval.SceneEvaluationFailed); ok {
				return o.abort(tc.tick, &SceneEvaluationFailed{Err: err}, "EvaluateTensionAndQA")
			}
			// A transport/parse failure on the QA pass itself is treated
			// as a soft degrade: the scene is already committed, so QA is
			// skipped rather than the whole tick aborted.
			o.logger.Warn("qa pass degraded to skipped", "tick", tc.tick, "error", err)
			qaRecord = nil
		} else {
			o.logger.Info("qa complete", "tick", tc.tick, "transition_clarity", qaRecord.TransitionClarity, "novelty_score", qaRecord.NoveltyScore)
		}
	}

	// State 10: ExtractAndUpdate.
	openLoopsCreated, openLoopsResolved := []string{}, []string{}
	if o.config.Generation.EnableFactExtraction {
		ext, extractErr := extract.Extract(ctx, o.llm, output.Text, tc.plan.POVCharacter, tc.plan.TargetLocation, timeout)
		if extractErr != nil {
			// extract.Extract already retried once internally; degrade by
			// logging and continuing with empty extraction (spec
			// §4.10.3 FactExtractionError).
			_ = o.persistFailure(tc.tick, "FactExtractionError", &FactExtractionError{Err: extractErr},
				"fact extraction degraded to empty after retry")
		} else if o.config.Generation.EnableEntityUpdates {
			updater := &extract.Updater{Store: o.store, Index: o.index}
			contextPOVName := ""
			if wctx.POVCharacter != nil {
				contextPOVName = wctx.POVCharacter.DisplayName()
			}
			_, newActiveCharacter, applyErr := updater.Apply(ctx, ext, tc.tick, sceneID, tc.plan.POVCharacter, contextPOVName)
			if applyErr != nil {
				return o.abort(tc.tick, &IOError{Op: "apply extraction", Err: applyErr}, "ExtractAndUpdate")
			}
			if newActiveCharacter != "" {
				tc.state.ActiveCharacter = newActiveCharacter
			}
			for range ext.OpenLoopsCreated {
				openLoopsCreated = append(openLoopsCreated, "")
			}
			openLoopsResolved = append(openLoopsResolved, ext.OpenLoopsResolved...)
		}
	}

	if o.config.Generation.EnableTensionTracking {
		loopDelta := len(openLoopsCreated) - len(openLoopsResolved)
		tension := eval.Score(output.Text, loopDelta)
		level := tension.Level
		category := memory.TensionCategory(tension.Category)
		scene.TensionLevel = &level
		scene.TensionCategory = category
		scene.OpenLoopsCreated = openLoopsCreated
		scene.OpenLoopsResolved = openLoopsResolved
		if err := o.store.Save(memory.KindScene, sceneID, scene); err != nil {
			return o.abort(tc.tick, err, "EvaluateTensionAndQA")
		}
		tc.state.TensionHistory = pushTensionPoint(tc.state.TensionHistory, tc.tick, level, category)
		o.logger.Info("tension scored", "tick", tc.tick, "level", level, "category", category)
		if qaRecord != nil {
			if err := o.persistQARecord(tc.tick, qaRecord); err != nil {
				return o.abort(tc.tick, err, "EvaluateTensionAndQA")
			}
		}
	}

	// State 11: VerifyBeat.
	if tc.beatID != "" && o.config.Generation.VerifyBeatExecution {
		aligned := qaRecord != nil && (qaRecord.BeatHintAlignment == "aligned" || qaRecord.BeatHintAlignment == "partial")
		if aligned {
			if err := o.plotManager.MarkBeatComplete(tc.beatID, sceneID, "verified via QA beat_hint_alignment"); err != nil {
				return o.abort(tc.tick, &IOError{Op: "mark beat complete", Err: err}, "VerifyBeat")
			}
			o.logger.Info("beat marked complete", "tick", tc.tick, "beat", tc.beatID)
		} else if o.config.Generation.AllowBeatSkip {
			if err := o.plotManager.MarkBeatSkipped(tc.beatID, "beat target not verified this tick"); err != nil {
				return o.abort(tc.tick, &IOError{Op: "mark beat skipped", Err: err}, "VerifyBeat")
			}
			o.logger.Info("beat marked skipped", "tick", tc.tick, "beat", tc.beatID)
		}
		// allow_beat_skip=false and not aligned: leave the beat pending
		// for a future tick (spec §4.10.1 state 11).
	}

	// State 12: Checkpoint (periodic).
	if checkpoint.ShouldCheckpoint(tc.tick, o.config.Generation.CheckpointSummaryInterval) {
		if err := checkpoint.Snapshot(o.projectRoot, tc.tick); err != nil {
			return o.abort(tc.tick, &IOError{Op: "checkpoint snapshot", Err: err}, "Checkpoint")
		}
		o.logger.Info("checkpoint taken", "tick", tc.tick)
	}

	// State 13: AdvanceState.
	tc.state.CurrentTick = tc.tick + 1
	tc.state.LastUpdated = time.Now()
	if err := o.store.SaveState(tc.state); err != nil {
		return o.abort(tc.tick, &IOError{Op: "advance state", Err: err}, "AdvanceState")
	}

	o.logger.Info("tick complete", "tick", tc.tick, "current_tick", tc.state.CurrentTick)
	return nil
}

// abort persists the error record for tick and returns it, never having
// mutated current_tick (spec §4.10.3, §5 "a failed tick leaves it
// unchanged").
func (o *TickOrchestrator) abort(tick int, err error, stage string) error {
	kind := classifyErrorKind(err)
	log := RenderErrorLog(tick, stage, err, kind)
	o.logger.Error("tick aborted", "tick", tick, "stage", stage, "kind", kind, "error", err)
	if writeErr := WriteErrorRecord(o.store.Layout(), tick, kind, err, log); writeErr != nil {
		return writeErr
	}
	return err
}

// persistFailure writes an error record for a degradable failure (spec
// §4.10.3 FactExtractionError) without aborting the tick: the caller
// continues the pipeline after this returns.
func (o *TickOrchestrator) persistFailure(tick int, kind string, cause error, context string) error {
	log := RenderErrorLog(tick, kind, cause, context)
	return WriteErrorRecord(o.store.Layout(), tick, kind, cause, log)
}

func (o *TickOrchestrator) generatePlan(ctx context.Context, tick int, beatID, beatDescription string) (*planner.Plan, error) {
	previousSceneMode := o.previousSceneMode(tick)
	var plan *planner.Plan
	var err error
	if o.config.Generation.UseMultiStagePlanner {
		plan, _, err = o.planner.PlanWithBeat(ctx, previousSceneMode, beatID, beatDescription)
	} else {
		plan, _, err = o.planner.PlanSingleStage(ctx, o.config.Generation.RecentScenesCount, previousSceneMode, beatID, beatDescription)
	}
	return plan, err
}

func haltIndex(err error) int {
	if h, ok := err.(*tools.ToolHaltError); ok {
		return h.Index
	}
	return -1
}

func renderSceneMarkdown(title, sceneID, body string) string {
	if title == "" {
		title = "Untitled"
	}
	return fmt.Sprintf("# %s\n*Scene ID: %s*\n---\n%s\n", title, sceneID, body)
}

// qaRecordFile is the persisted shape for a scene's QA record, keyed by
// tick (spec §4.7 "persist QA").
type qaRecordFile struct {
	Tick int         `json:"tick"`
	QA   *eval.Record `json:"qa"`
}

func (o *TickOrchestrator) persistQARecord(tick int, rec *eval.Record) error {
	return writeJSONAtomic(o.store.Layout().QAPath(tick), &qaRecordFile{Tick: tick, QA: rec})
}

// --- shared steps -----------------------------------------------------

// maybeRegenerateBeats is state 2 of both tick variants.
func (o *TickOrchestrator) maybeRegenerateBeats(ctx context.Context, state *memory.ProjectState) error {
	if !o.config.Generation.UsePlotFirst {
		return nil
	}
	needs, err := o.plotManager.NeedsRegeneration(o.config.Generation.PlotRegenerationThreshold)
	if err != nil {
		return &IOError{Op: "check beat regeneration", Err: err}
	}
	if !needs {
		return nil
	}

	beats, err := o.plotManager.GenerateNextBeats(ctx, o.config.Generation.PlotBeatsAhead, state, timeoutFromSeconds(o.config.LLM.TimeoutSeconds))
	if err != nil {
		if o.config.Generation.FallbackToReactive {
			return nil
		}
		return &BeatGenerationError{Err: err}
	}
	if err := o.plotManager.AddBeats(beats); err != nil {
		if o.config.Generation.FallbackToReactive {
			return nil
		}
		return &BeatGenerationError{Err: err}
	}
	return nil
}

// selectBeat picks the next ready beat under plot_first and marks it
// in_progress, returning its id/description (both empty when no beat is
// targeted).
func (o *TickOrchestrator) selectBeat() (beatID, beatDescription string, err error) {
	if !o.config.Generation.UsePlotFirst {
		return "", "", nil
	}
	beat, err := o.plotManager.GetNextBeat()
	if err != nil {
		return "", "", &IOError{Op: "select next beat", Err: err}
	}
	if beat == nil {
		return "", "", nil
	}
	if err := o.plotManager.ChooseForTick(beat.ID); err != nil {
		return "", "", &IOError{Op: "choose beat for tick", Err: err}
	}
	return beat.ID, beat.Description, nil
}

func (o *TickOrchestrator) previousSceneMode(tick int) string {
	if tick <= 0 {
		return ""
	}
	rec, err := loadPlanRecord(o.store.Layout().PlanPath(tick - 1))
	if err != nil || rec == nil || rec.Plan == nil {
		return ""
	}
	return rec.Plan.SceneMode
}

func (o *TickOrchestrator) recentSceneModes(tick int, n int) []string {
	var modes []string
	for t := tick - 1; t >= 0 && len(modes) < n; t-- {
		rec, err := loadPlanRecord(o.store.Layout().PlanPath(t))
		if err != nil || rec == nil || rec.Plan == nil {
			continue
		}
		modes = append(modes, rec.Plan.SceneMode)
	}
	return modes
}

func loadPlanRecord(path string) (*PlanRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var rec PlanRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// classifyErrorKind maps a failure from Plan/Execute/Evaluate to the
// spec §7 error-kind label recorded in the error JSON.
func classifyErrorKind(err error) string {
	switch err.(type) {
	case *planner.PlanParseError:
		return "PlanParseError"
	case *planner.SchemaError:
		return "SchemaError"
	case *ToolExecutionError:
		return "ToolExecutionError"
	case *eval.WordCountError, *eval.POVViolationError:
		return "SceneEvaluationFailed"
	case *SceneEvaluationFailed:
		return "SceneEvaluationFailed"
	case *BeatGenerationError:
		return "BeatGenerationError"
	case *FactExtractionError:
		return "FactExtractionError"
	default:
		return "IOError"
	}
}

// writeScenePlanRecord persists plans/plan_NNN.json (state 5). Called
// both on the success path and, with partial results, on an aborted
// tick ("plan and partial results are retained for human inspection").
func (o *TickOrchestrator) writeScenePlanRecord(tick int, plan *planner.Plan, results []tools.Result, execErr error, state *memory.ProjectState) error {
	loops, err := o.store.LoadOpenLoops()
	openCount := 0
	if err == nil {
		for _, l := range loops {
			if l.Status == memory.OpenLoopOpen {
				openCount++
			}
		}
	}
	rec := PlanRecord{
		Tick:      tick,
		Timestamp: time.Now().UTC(),
		Plan:      plan,
		Execution: buildExecutionRecord(results, execErr),
		ContextUsed: ContextUsedRecord{
			ActiveCharacter: state.ActiveCharacter,
			RecentScenes:    o.config.Generation.RecentScenesCount,
			OpenLoopsCount:  openCount,
		},
	}
	return writeJSONAtomic(o.store.Layout().PlanPath(tick), &rec)
}

// classifyEntityResults splits successful generator/update tool results
// into the Scene record's entities_created/entities_updated id lists
// (spec §6 Scene fields).
func classifyEntityResults(results []tools.Result) (created, updated []string) {
	for _, r := range results {
		if !r.Success {
			continue
		}
		id := resultEntityID(r.Output)
		if id == "" {
			continue
		}
		switch r.Tool {
		case "character.generate", "location.generate", "faction.generate":
			created = append(created, id)
		case "character.update", "location.update", "faction.update":
			updated = append(updated, id)
		}
	}
	return created, updated
}

func resultEntityID(output any) string {
	switch v := output.(type) {
	case *memory.Character:
		return v.ID
	case *memory.Location:
		return v.ID
	case *memory.Faction:
		return v.ID
	}
	return ""
}

func dedupe(items []string) []string {
	seen := make(map[string]bool, len(items))
	out := make([]string, 0, len(items))
	for _, it := range items {
		if it == "" || seen[it] {
			continue
		}
		seen[it] = true
		out = append(out, it)
	}
	return out
}

func filterEntityGeneratorActions(actions []tools.Action) (generators, rest []tools.Action) {
	for _, a := range actions {
		if a.Tool == "character.generate" || a.Tool == "location.generate" {
			generators = append(generators, a)
		} else {
			rest = append(rest, a)
		}
	}
	return generators, rest
}

// pushTensionPoint appends a tension reading, keeping only the most
// recent 5 entries (spec §4.4 "tension history (list of last 5 levels
// and categories)").
func pushTensionPoint(history []memory.TensionPoint, tick, level int, category memory.TensionCategory) []memory.TensionPoint {
	history = append(history, memory.TensionPoint{Tick: tick, Level: level, Category: category})
	if len(history) > 5 {
		history = history[len(history)-5:]
	}
	return history
}
