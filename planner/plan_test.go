package planner

import (
	"errors"
	"testing"
)

func TestExtractJSONStripsFencedCode(t *testing.T) {
	raw := "```json\n{\"a\":1}\n```"
	got := ExtractJSON(raw)
	if got != `{"a":1}` {
		t.Fatalf("expected stripped JSON, got %q", got)
	}
}

func TestExtractJSONPassesThroughBareJSON(t *testing.T) {
	raw := `{"a":1}`
	if got := ExtractJSON(raw); got != raw {
		t.Fatalf("expected unchanged input, got %q", got)
	}
}

func TestParsePlanRejectsMissingRequiredFields(t *testing.T) {
	raw := `{"rationale": "because", "scene_intention": "advance"}`
	_, _, err := ParsePlan(raw, "")
	var schemaErr *SchemaError
	if !errors.As(err, &schemaErr) {
		t.Fatalf("expected *SchemaError, got %v", err)
	}
	if len(schemaErr.MissingFields) == 0 {
		t.Fatalf("expected missing fields to be listed")
	}
}

func TestParsePlanRejectsMalformedJSON(t *testing.T) {
	_, _, err := ParsePlan("not json at all", "")
	var parseErr *PlanParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected *PlanParseError, got %v", err)
	}
}

func TestParsePlanAcceptsValidPlanAndWarnsOnNoLoops(t *testing.T) {
	raw := `{
		"rationale": "the protagonist needs to act",
		"scene_intention": "Elena confronts Marcus",
		"key_change": "Elena learns the truth",
		"actions": [{"tool":"memory.search","args":{"query":"ally"}}],
		"expected_outcomes": ["Elena is shaken"]
	}`
	plan, warnings, err := ParsePlan(raw, "")
	if err != nil {
		t.Fatalf("ParsePlan: %v", err)
	}
	if plan.SceneIntention != "Elena confronts Marcus" {
		t.Fatalf("unexpected scene_intention: %q", plan.SceneIntention)
	}
	found := false
	for _, w := range warnings {
		if w == "plan addresses no open loops" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a no-loops-addressed warning, got %v", warnings)
	}
}

func TestParsePlanWarnsOnTooManyActionsAndRepeatedMode(t *testing.T) {
	raw := `{
		"rationale": "r", "scene_intention": "s", "key_change": "k",
		"actions": [
			{"tool":"a","args":{}},{"tool":"b","args":{}},{"tool":"c","args":{}},
			{"tool":"d","args":{}},{"tool":"e","args":{}}
		],
		"expected_outcomes": ["o"],
		"scene_mode": "dialogue",
		"loops_addressed": ["OL0"]
	}`
	_, warnings, err := ParsePlan(raw, "dialogue")
	if err != nil {
		t.Fatalf("ParsePlan: %v", err)
	}
	if len(warnings) != 2 {
		t.Fatalf("expected 2 warnings (too many actions + repeated mode), got %v", warnings)
	}
}
