package writer

import (
	"context"
	"testing"
	"time"

	"github.com/storydaemon/storydaemon/llm"
	"github.com/storydaemon/storydaemon/planner"
)

func TestWriterWriteParsesTitleAndWordCount(t *testing.T) {
	mock := llm.NewMockAdapter().OnContains(
		"Elena's Choice\n\nElena stood at the threshold and chose to enter the dark archive alone.",
		"Write the scene's prose now",
	)
	w := New(mock)

	wctx := &planner.WriterContext{SceneIntention: "Elena enters the archive"}
	out, err := w.Write(context.Background(), wctx, 500, time.Second)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if out.Title != "Elena's Choice" {
		t.Fatalf("expected extracted title, got %q", out.Title)
	}
	if out.WordCount == 0 {
		t.Fatalf("expected a nonzero word count")
	}
}
