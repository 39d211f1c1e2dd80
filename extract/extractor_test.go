package extract

import (
	"context"
	"testing"
	"time"

	"github.com/storydaemon/storydaemon/llm"
)

const validExtractionJSON = `{
  "character_updates": [{"id": "C0", "changes": {"emotional_state": "resolved"}}],
  "location_updates": [],
  "open_loops_created": [],
  "open_loops_resolved": [],
  "relationship_changes": [],
  "lore": []
}`

func TestExtractParsesValidJSONOnFirstAttempt(t *testing.T) {
	mock := llm.NewMockAdapter().OnContains(validExtractionJSON, "POV character id: C0")

	ext, err := Extract(context.Background(), mock, "Elena confronted Marcus.", "C0", "L0", time.Second)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(ext.CharacterUpdates) != 1 || ext.CharacterUpdates[0].ID != "C0" {
		t.Fatalf("unexpected extraction: %+v", ext)
	}
	if len(mock.Calls()) != 1 {
		t.Fatalf("expected exactly 1 LLM call on clean success, got %d", len(mock.Calls()))
	}
}

func TestExtractRetriesOnceThenSkipsOnRepeatedParseFailure(t *testing.T) {
	mock := llm.NewMockAdapter().OnContains("not valid json at all", "POV character id: C0")

	_, err := Extract(context.Background(), mock, "Elena confronted Marcus.", "C0", "L0", time.Second)
	if err == nil {
		t.Fatalf("expected a FailedError after two malformed responses")
	}
	if _, ok := err.(*FailedError); !ok {
		t.Fatalf("expected *FailedError, got %T", err)
	}
	if len(mock.Calls()) != 2 {
		t.Fatalf("expected exactly 2 LLM calls (initial + one retry), got %d", len(mock.Calls()))
	}
}
