package writer

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// maxTitleChars is the title length cap (spec §4.6, testable property 7).
const maxTitleChars = 60

// ExtractTitle implements spec §4.6's title rule / testable property 7:
// if the first non-empty line of raw is ≤60 chars and not
// sentence-terminated, the title is that line (leading '#' and trailing
// punctuation stripped); otherwise the title is sceneIntention truncated
// at a word boundary within 60 chars. Returns (title, body) where body is
// raw with the consumed title line removed, if any. Grounded on the
// teacher's `goldmark.Convert` usage in `internal/web/server.go`,
// repurposed from Markdown→HTML rendering to block-level parsing of the
// writer's own output.
func ExtractTitle(raw, sceneIntention string) (title, body string) {
	source := []byte(raw)
	doc := goldmark.DefaultParser().Parse(text.NewReader(source))

	first := firstNonEmptyLine(raw)
	if first.line != "" && len(first.line) <= maxTitleChars && !sentenceTerminated(first.line) {
		candidate := stripHeadingMarker(first.line)
		if headingText := firstHeadingPlainText(doc, source); headingText != "" {
			candidate = headingText
		}
		title = stripTrailingPunctuation(strings.TrimSpace(candidate))
		body = strings.TrimSpace(raw[first.end:])
		return title, body
	}

	return truncateAtWordBoundary(sceneIntention, maxTitleChars), strings.TrimSpace(raw)
}

type lineSpan struct {
	line string
	end  int
}

func firstNonEmptyLine(s string) lineSpan {
	start := 0
	for {
		nl := strings.IndexByte(s[start:], '\n')
		var line string
		var end int
		if nl < 0 {
			line = s[start:]
			end = len(s)
		} else {
			line = s[start : start+nl]
			end = start + nl + 1
		}
		if strings.TrimSpace(line) != "" {
			return lineSpan{line: strings.TrimSpace(line), end: end}
		}
		if nl < 0 {
			return lineSpan{}
		}
		start = end
	}
}

func sentenceTerminated(line string) bool {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return false
	}
	last := trimmed[len(trimmed)-1]
	return last == '.' || last == '!' || last == '?'
}

func stripHeadingMarker(line string) string {
	s := strings.TrimSpace(line)
	for strings.HasPrefix(s, "#") {
		s = strings.TrimPrefix(s, "#")
	}
	return strings.TrimSpace(s)
}

func stripTrailingPunctuation(s string) string {
	return strings.TrimRight(s, ".,;:!?\"'")
}

// truncateAtWordBoundary truncates s to at most maxChars, never splitting
// a word, then strips trailing punctuation.
func truncateAtWordBoundary(s string, maxChars int) string {
	s = strings.TrimSpace(s)
	if len(s) <= maxChars {
		return stripTrailingPunctuation(s)
	}
	cut := s[:maxChars]
	if sp := strings.LastIndexByte(cut, ' '); sp > 0 {
		cut = cut[:sp]
	}
	return stripTrailingPunctuation(strings.TrimSpace(cut))
}

// firstHeadingPlainText returns the plain text of doc's first child if it
// is a Markdown heading, or "" otherwise.
func firstHeadingPlainText(doc ast.Node, source []byte) string {
	first := doc.FirstChild()
	if first == nil || first.Kind() != ast.KindHeading {
		return ""
	}
	var buf bytes.Buffer
	for c := first.FirstChild(); c != nil; c = c.NextSibling() {
		if txt, ok := c.(*ast.Text); ok {
			buf.Write(txt.Segment.Value(source))
		}
	}
	return buf.String()
}
