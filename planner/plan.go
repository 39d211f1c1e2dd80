// Package planner implements the Context Builders (spec §4.4) and the
// Multi-Stage Planner (spec §4.5): strategic intention, semantic gather,
// and tactical plan generation, producing a validated Plan for the
// orchestrator's Execute state.
package planner

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/storydaemon/storydaemon/tools"
)

// DialogueTargets is the optional plan field constraining the writer's
// dialogue requirements.
type DialogueTargets struct {
	MinExchanges int      `json:"min_exchanges,omitempty"`
	ConflictAxis string   `json:"conflict_axis,omitempty"`
	Participants []string `json:"participants,omitempty"`
}

// BeatTarget is the optional plan field tying a tick to a plot beat.
type BeatTarget struct {
	BeatID   string `json:"beat_id,omitempty"`
	Strategy string `json:"strategy,omitempty"` // direct|setup|followup|skip
	Notes    string `json:"notes,omitempty"`
}

// PlanMetadata carries auxiliary plan hints.
type PlanMetadata struct {
	SceneLength string `json:"scene_length,omitempty"` // brief|short|long|extended
}

// Plan is the tactical stage's output (spec §4.5 "Plan schema").
type Plan struct {
	Rationale        string           `json:"rationale"`
	SceneIntention   string           `json:"scene_intention"`
	KeyChange        string           `json:"key_change"`
	Actions          []tools.Action   `json:"actions"`
	ExpectedOutcomes []string         `json:"expected_outcomes"`
	ProgressMilestone string          `json:"progress_milestone,omitempty"`
	ProgressStep     string           `json:"progress_step,omitempty"`
	POVCharacter     string           `json:"pov_character,omitempty"`
	TargetLocation   string           `json:"target_location,omitempty"`
	LoopsAddressed   []string         `json:"loops_addressed,omitempty"`
	SceneMode        string           `json:"scene_mode,omitempty"` // dialogue|political|action|technical|introspective
	PaletteShift     []string         `json:"palette_shift,omitempty"`
	TransitionPath   string           `json:"transition_path,omitempty"`
	DialogueTargets  *DialogueTargets `json:"dialogue_targets,omitempty"`
	BeatTarget       *BeatTarget      `json:"beat_target,omitempty"`
	Metadata         PlanMetadata     `json:"metadata,omitempty"`
}

// ExtractJSON strips a fenced-code wrapper (```json ... ``` or ``` ...
// ```) around a JSON object, if present, returning the raw JSON text
// (spec §4.5 "JSON extraction tolerates fenced-code wrappers").
func ExtractJSON(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		firstLine := strings.TrimSpace(s[:nl])
		if firstLine == "json" || firstLine == "" {
			s = s[nl+1:]
		}
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// PlanParseError is raised when the tactical stage's JSON cannot be
// extracted/parsed (spec §4.5).
type PlanParseError struct {
	Err error
}

func (e *PlanParseError) Error() string { return fmt.Sprintf("planner: plan parse error: %v", e.Err) }
func (e *PlanParseError) Unwrap() error  { return e.Err }

// SchemaError is raised when a parsed plan is missing required fields.
type SchemaError struct {
	MissingFields []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("planner: plan schema error: missing fields %v", e.MissingFields)
}

// ParsePlan extracts and unmarshals raw into a Plan, then validates it.
// Warnings (spec §4.5 "soft rules") are returned alongside a valid plan;
// a non-nil error means the plan is unusable.
func ParsePlan(raw string, previousSceneMode string) (*Plan, []string, error) {
	jsonText := ExtractJSON(raw)
	var p Plan
	if err := json.Unmarshal([]byte(jsonText), &p); err != nil {
		return nil, nil, &PlanParseError{Err: err}
	}
	if err := Validate(&p); err != nil {
		return nil, nil, err
	}
	return &p, softWarnings(&p, previousSceneMode), nil
}

// Validate rejects a plan missing any required field (spec §4.5
// "Validation").
func Validate(p *Plan) error {
	var missing []string
	if p.Rationale == "" {
		missing = append(missing, "rationale")
	}
	if p.SceneIntention == "" {
		missing = append(missing, "scene_intention")
	}
	if p.KeyChange == "" {
		missing = append(missing, "key_change")
	}
	if p.Actions == nil {
		missing = append(missing, "actions")
	}
	if p.ExpectedOutcomes == nil {
		missing = append(missing, "expected_outcomes")
	}
	if len(missing) > 0 {
		return &SchemaError{MissingFields: missing}
	}
	return nil
}

// softWarnings returns spec §4.5's non-fatal consistency warnings: more
// than 4 actions, a repeated scene_mode, or no loops_addressed.
func softWarnings(p *Plan, previousSceneMode string) []string {
	var warnings []string
	if len(p.Actions) > 4 {
		warnings = append(warnings, fmt.Sprintf("plan has %d actions, exceeding the soft cap of 4", len(p.Actions)))
	}
	if p.SceneMode != "" && previousSceneMode != "" && p.SceneMode == previousSceneMode {
		warnings = append(warnings, fmt.Sprintf("scene_mode %q repeats the previous scene", p.SceneMode))
	}
	if len(p.LoopsAddressed) == 0 {
		warnings = append(warnings, "plan addresses no open loops")
	}
	return warnings
}
