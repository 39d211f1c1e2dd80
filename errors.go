// Package storydaemon implements the tick-orchestration core of the
// StoryDaemon autonomous fiction generator: the state machine that
// composes planning, tool execution, prose generation, evaluation,
// commit, fact extraction, entity update, and plot-beat verification into
// one tick, under strict ordering and failure-handling constraints.
package storydaemon

import (
	"errors"
	"fmt"
)

// Error kinds (spec §7). Each is a distinct type so callers can branch
// with errors.As instead of string matching — grounded on
// provider.ErrProviderNotAvailable's typed-error shape.

// InputError covers malformed plan JSON, schema violations, unknown
// tools, and invalid beat references. The tick aborts.
type InputError struct {
	Stage string
	Err   error
}

func (e *InputError) Error() string { return fmt.Sprintf("input error at %s: %v", e.Stage, e.Err) }
func (e *InputError) Unwrap() error  { return e.Err }

// ToolError is raised when a tool invocation fails or returns a failure
// payload. The Executor halts on first occurrence.
type ToolError struct {
	ActionIndex int
	Tool        string
	Err         error
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("tool %q failed at action %d: %v", e.Tool, e.ActionIndex, e.Err)
}
func (e *ToolError) Unwrap() error { return e.Err }

// ModelError wraps an LLM transport failure or timeout.
type ModelError struct {
	Stage string
	Err   error
}

func (e *ModelError) Error() string { return fmt.Sprintf("model error at %s: %v", e.Stage, e.Err) }
func (e *ModelError) Unwrap() error  { return e.Err }

// EvaluationError is a fatal scene-quality check failure; the tick
// aborts and the scene file is not written.
type EvaluationError struct {
	Reason string
}

func (e *EvaluationError) Error() string { return fmt.Sprintf("evaluation failed: %s", e.Reason) }

// ConsistencyWarning is non-fatal: POV warning, continuity flag, orphan
// relationship reference, oversized plan. Logged, not aborting.
type ConsistencyWarning struct {
	Reason string
}

func (e *ConsistencyWarning) Error() string { return fmt.Sprintf("consistency warning: %s", e.Reason) }

// IOError wraps a filesystem/serialization failure. The tick aborts; no
// partial state is committed.
type IOError struct {
	Op  string
	Err error
}

func (e *IOError) Error() string { return fmt.Sprintf("io error during %s: %v", e.Op, e.Err) }
func (e *IOError) Unwrap() error  { return e.Err }

// PlanParseError is raised when the tactical stage's JSON cannot be
// extracted/parsed (spec §4.5).
type PlanParseError struct {
	Err error
}

func (e *PlanParseError) Error() string { return fmt.Sprintf("plan parse error: %v", e.Err) }
func (e *PlanParseError) Unwrap() error  { return e.Err }

// SchemaError is raised when a parsed plan is missing required fields
// (spec §4.5 "Validation").
type SchemaError struct {
	MissingFields []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("plan schema error: missing fields %v", e.MissingFields)
}

// ToolExecutionError wraps a halted tool execution for the orchestrator's
// failure handling (spec §4.10.3), carrying the index of the failing
// action. The partial results are not held here; the orchestrator writes
// them to the tick's plan record.
type ToolExecutionError struct {
	FailingIndex int
	Err          error
}

func (e *ToolExecutionError) Error() string {
	return fmt.Sprintf("tool execution halted at action %d: %v", e.FailingIndex, e.Err)
}
func (e *ToolExecutionError) Unwrap() error { return e.Err }

// SceneEvaluationFailed is the orchestrator-level wrapping of a fatal
// evaluation band failure (spec §4.10.3).
type SceneEvaluationFailed struct {
	Err error
}

func (e *SceneEvaluationFailed) Error() string {
	return fmt.Sprintf("scene evaluation failed: %v", e.Err)
}
func (e *SceneEvaluationFailed) Unwrap() error { return e.Err }

// FactExtractionError is raised after both the original and the one
// retry attempt fail to produce parseable extraction JSON. The
// orchestrator degrades (logs and continues with empty extraction)
// rather than aborting.
type FactExtractionError struct {
	Err error
}

func (e *FactExtractionError) Error() string {
	return fmt.Sprintf("fact extraction failed after retry: %v", e.Err)
}
func (e *FactExtractionError) Unwrap() error { return e.Err }

// BeatGenerationError is raised when plot beat generation fails. The
// orchestrator either falls back to reactive mode or aborts, depending
// on configuration.
type BeatGenerationError struct {
	Err error
}

func (e *BeatGenerationError) Error() string {
	return fmt.Sprintf("beat generation failed: %v", e.Err)
}
func (e *BeatGenerationError) Unwrap() error { return e.Err }

// IsFatal reports whether err should abort the current tick without
// advancing current_tick (spec §7 propagation policy). Degradable errors
// (FactExtractionError, BeatGenerationError when configured to fall back)
// are handled by their callers before reaching this point.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	var (
		inputErr   *InputError
		toolErr    *ToolExecutionError
		evalErr    *SceneEvaluationFailed
		ioErr      *IOError
		schemaErr  *SchemaError
		parseErr   *PlanParseError
	)
	return errors.As(err, &inputErr) || errors.As(err, &toolErr) || errors.As(err, &evalErr) ||
		errors.As(err, &ioErr) || errors.As(err, &schemaErr) || errors.As(err, &parseErr)
}
