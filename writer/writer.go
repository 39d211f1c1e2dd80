// Package writer implements the Scene Writer (spec §4.6): prose
// generation under POV, placeholder-name, omniscience, dialogue,
// transition, palette-shift, and beat-target constraints, with
// {text, word_count, title} parsing. Grounded on `agents.Spawner.Run`'s
// prompt-then-parse-response shape, generalized from "agent produces a
// git diff description" to "agent produces scene prose".
package writer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/storydaemon/storydaemon/llm"
	"github.com/storydaemon/storydaemon/planner"
)

// Output is the writer's parsed result (spec §4.6).
type Output struct {
	Text      string
	WordCount int
	Title     string
}

// Writer produces scene prose from a WriterContext.
type Writer struct {
	LLM llm.Adapter
}

// New returns a Writer bound to adapter.
func New(adapter llm.Adapter) *Writer {
	return &Writer{LLM: adapter}
}

// Write calls the LLM with a prompt enforcing spec §4.6's constraints and
// parses the response.
func (w *Writer) Write(ctx context.Context, wctx *planner.WriterContext, maxTokens int, timeout time.Duration) (*Output, error) {
	prompt := buildWriterPrompt(wctx)
	raw, err := w.LLM.Generate(ctx, prompt, maxTokens, timeout)
	if err != nil {
		return nil, fmt.Errorf("writer: generate: %w", err)
	}

	title, body := ExtractTitle(raw, wctx.SceneIntention)
	return &Output{
		Text:      body,
		WordCount: len(strings.Fields(body)),
		Title:     title,
	}, nil
}

func buildWriterPrompt(wctx *planner.WriterContext) string {
	var b strings.Builder
	b.WriteString(wctx.Render())
	b.WriteString("\nWrite the scene's prose now. Optionally begin with a short title line (not a full " +
		"sentence, at most 60 characters) before the prose. Do not use omniscient narrator markers " +
		"(\"unknown to\", \"little did\", \"would later\", \"meanwhile\", \"at that moment\"). Never invent a " +
		"placeholder name — use only names already established in context.\n")
	return b.String()
}
