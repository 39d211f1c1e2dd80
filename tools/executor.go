package tools

import (
	"context"
)

// Action is one entry of a plan's actions[] array.
type Action struct {
	Tool string         `json:"tool"`
	Args map[string]any `json:"args"`
}

// Result is one accumulated execution outcome (spec §4.3).
type Result struct {
	ActionIndex int            `json:"action_index"`
	Tool        string         `json:"tool"`
	Args        map[string]any `json:"args"`
	Output      any            `json:"result"`
	Success     bool           `json:"success"`
}

// Executor runs a plan's actions in order against a Registry. Failure
// policy: halt-on-first-error (spec §4.3). Grounded on the teacher's
// AgentSpawner.SpawnAgent dispatch, generalized to synchronous in-process
// calls instead of subprocess spawns.
type Executor struct {
	registry *Registry
}

// NewExecutor builds an Executor bound to registry.
func NewExecutor(registry *Registry) *Executor {
	return &Executor{registry: registry}
}

// Execute runs actions in order. On the first failing action it stops,
// returning the results accumulated so far (including the failing one,
// with Success=false) alongside a non-nil error describing the failure.
// Callers (the orchestrator) are responsible for persisting an error
// record and aborting the tick.
func (e *Executor) Execute(ctx context.Context, actions []Action) ([]Result, error) {
	results := make([]Result, 0, len(actions))
	for i, action := range actions {
		tool, ok := e.registry.Lookup(action.Tool)
		if !ok {
			results = append(results, Result{ActionIndex: i, Tool: action.Tool, Args: action.Args, Success: false})
			return results, &ToolHaltError{Index: i, Err: &UnknownToolError{Tool: action.Tool}}
		}

		out, err := tool.Execute(ctx, action.Args)
		if err != nil {
			results = append(results, Result{ActionIndex: i, Tool: action.Tool, Args: action.Args, Success: false})
			return results, &ToolHaltError{Index: i, Err: err}
		}
		results = append(results, Result{ActionIndex: i, Tool: action.Tool, Args: action.Args, Output: out, Success: true})
	}
	return results, nil
}

// ToolHaltError carries the index of the first action that failed, for
// the orchestrator's error record (spec §8 Scenario C: "failing action
// index=2").
type ToolHaltError struct {
	Index int
	Err   error
}

func (e *ToolHaltError) Error() string { return e.Err.Error() }
func (e *ToolHaltError) Unwrap() error  { return e.Err }
