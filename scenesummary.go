package storydaemon

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/storydaemon/storydaemon/llm"
)

const summaryMaxOutputTokens = 200

var bulletLinePattern = regexp.MustCompile(`(?m)^\s*[-*•]\s*(.+)$`)
var sentenceSplit = regexp.MustCompile(`[.!?]+\s+`)

// summarizeScene asks the LLM for 3-5 bullet points covering sceneText
// (spec §4.10.1 state 8 "summarize (3-5 bullets)"). Grounded on the
// teacher's `maybeSummarize` LLM-call-then-parse shape, generalized from
// summarizing a tool result to summarizing finished scene prose. On a
// malformed or unparseable response it falls back to the first few
// sentences, so CommitScene never blocks on a single summarization
// retry.
func summarizeScene(ctx context.Context, adapter llm.Adapter, sceneText string, timeout time.Duration) []string {
	prompt := "Summarize the following scene in 3 to 5 bullet points, each a single short sentence " +
		"capturing a key event or change. Respond with only the bullets, one per line, each starting " +
		"with \"- \".\n\n## Scene\n" + sceneText
	raw, err := adapter.Generate(ctx, prompt, summaryMaxOutputTokens, timeout)
	if err == nil {
		if bullets := parseBullets(raw); len(bullets) >= 3 {
			return capBullets(bullets)
		}
	}
	return fallbackSummary(sceneText)
}

func parseBullets(raw string) []string {
	matches := bulletLinePattern.FindAllStringSubmatch(raw, -1)
	bullets := make([]string, 0, len(matches))
	for _, m := range matches {
		b := strings.TrimSpace(m[1])
		if b != "" {
			bullets = append(bullets, b)
		}
	}
	return bullets
}

func capBullets(bullets []string) []string {
	if len(bullets) > 5 {
		return bullets[:5]
	}
	return bullets
}

// fallbackSummary derives up to 5 bullets from the scene's first
// sentences when the LLM response can't be parsed into bullets.
func fallbackSummary(sceneText string) []string {
	sentences := sentenceSplit.Split(strings.TrimSpace(sceneText), -1)
	var bullets []string
	for _, s := range sentences {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		bullets = append(bullets, s)
		if len(bullets) == 5 {
			break
		}
	}
	if len(bullets) == 0 {
		return []string{"Scene recorded with no extractable summary."}
	}
	return bullets
}
