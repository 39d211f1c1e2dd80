package eval

import (
	"context"
	"testing"
	"time"

	"github.com/storydaemon/storydaemon/llm"
)

func TestRunQAReturnsFatalOnUnachievedChangeAndUnclearTransition(t *testing.T) {
	mock := llm.NewMockAdapter().OnContains(
		`{"achieved_change": false, "transition_clarity": "unclear", "novelty_score": 0.2, "continuity_flags": [], "beat_hint_alignment": "off-target"}`,
		"Scene intention:",
	)

	rec, err := RunQA(context.Background(), mock, `Elena said "hello."`, "Elena confronts Marcus", "Marcus admits the betrayal",
		"confrontation", nil, "", time.Second)
	if err == nil {
		t.Fatalf("expected SceneEvaluationFailed")
	}
	if _, ok := err.(*SceneEvaluationFailed); !ok {
		t.Fatalf("expected *SceneEvaluationFailed, got %T", err)
	}
	if rec.AchievedChange {
		t.Fatalf("expected achieved_change false")
	}
}

func TestRunQASucceedsWhenChangeAchieved(t *testing.T) {
	mock := llm.NewMockAdapter().OnContains(
		`{"achieved_change": true, "transition_clarity": "clear", "novelty_score": 0.8, "continuity_flags": [], "beat_hint_alignment": "aligned"}`,
		"Scene intention:",
	)

	rec, err := RunQA(context.Background(), mock, `Elena said "I forgive you."`, "Elena confronts Marcus", "Marcus admits the betrayal",
		"confrontation", []string{"confrontation", "dialogue"}, "beat-1", time.Second)
	if err != nil {
		t.Fatalf("RunQA: %v", err)
	}
	if !rec.MetTarget {
		t.Fatalf("expected met_target true")
	}
	if rec.DialogueCount != 1 {
		t.Fatalf("expected 1 dialogue exchange, got %d", rec.DialogueCount)
	}
}

func TestIsRepeatedModeFlagsTwoConsecutiveSameModeScenes(t *testing.T) {
	if !isRepeatedMode("dialogue", []string{"dialogue", "dialogue"}) {
		t.Fatalf("expected repeated-mode warning")
	}
	if isRepeatedMode("dialogue", []string{"dialogue", "action"}) {
		t.Fatalf("expected no warning when modes differ")
	}
	if isRepeatedMode("dialogue", []string{"dialogue"}) {
		t.Fatalf("expected no warning with fewer than 2 recent scenes")
	}
}
