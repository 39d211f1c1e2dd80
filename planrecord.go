package storydaemon

import (
	"time"

	"github.com/storydaemon/storydaemon/planner"
	"github.com/storydaemon/storydaemon/tools"
)

// ExecutionRecord is the plan JSON's "execution" section (spec §6).
type ExecutionRecord struct {
	Success         bool     `json:"success"`
	ActionsExecuted []string `json:"actions_executed"`
	Errors          []string `json:"errors"`
}

// ContextUsedRecord is the plan JSON's "context_used" section (spec §6).
type ContextUsedRecord struct {
	ActiveCharacter string `json:"active_character"`
	RecentScenes    int    `json:"recent_scenes"`
	OpenLoopsCount  int    `json:"open_loops_count"`
}

// PlanRecord is the persisted plans/plan_NNN.json document (spec §6).
type PlanRecord struct {
	Tick        int               `json:"tick"`
	Timestamp   time.Time         `json:"timestamp"`
	Plan        *planner.Plan     `json:"plan"`
	Execution   ExecutionRecord   `json:"execution"`
	ContextUsed ContextUsedRecord `json:"context_used"`
}

// buildExecutionRecord summarizes exec results into the plan record's
// execution section.
func buildExecutionRecord(results []tools.Result, execErr error) ExecutionRecord {
	rec := ExecutionRecord{Success: execErr == nil}
	for _, r := range results {
		rec.ActionsExecuted = append(rec.ActionsExecuted, r.Tool)
		if !r.Success {
			rec.Errors = append(rec.Errors, r.Tool)
		}
	}
	if rec.ActionsExecuted == nil {
		rec.ActionsExecuted = []string{}
	}
	if rec.Errors == nil {
		rec.Errors = []string{}
	}
	return rec
}
