// Package eval implements the Evaluator, Tension scorer, and QA record
// builder (spec §4.7): synchronous deterministic checks (word count, POV
// heuristics), the tension scoring formula and banding, and the optional
// LLM-assisted QA pass. Grounded on the teacher's `kanban.Signoffs`/`Bug`
// multi-gate review pattern, generalized from human-named review stages
// to deterministic + LLM-assisted scene checks.
package eval

import (
	"fmt"
	"regexp"
	"strings"
)

// omniscientPhrases are narrator markers that break deep POV (spec §4.7).
var omniscientPhrases = []string{
	"unknown to", "little did", "would later", "meanwhile", "at that moment",
}

var quotedSpeechPattern = regexp.MustCompile(`"[^"]*"`)
var firstPersonPattern = regexp.MustCompile(`(?i)\b(i|me|my|mine|we|us|our|ours)\b`)

// WordCountError is a fatal deterministic-check failure (spec §4.7,
// §8 boundary behaviors: exactly min/max passes, min-1/max+1 fails).
type WordCountError struct {
	WordCount, Min, Max int
}

func (e *WordCountError) Error() string {
	return fmt.Sprintf("eval: word count %d outside range [%d,%d]", e.WordCount, e.Min, e.Max)
}

// POVViolationError is a fatal deterministic-check failure: an
// omniscient marker or a stray first-person pronoun outside quoted
// speech.
type POVViolationError struct {
	Reason string
}

func (e *POVViolationError) Error() string { return fmt.Sprintf("eval: POV violation: %s", e.Reason) }

// isSoftLength reports whether a metadata.scene_length value is one for
// which the word-count range is advisory only (spec §4.7 "soft for
// brief/extended modes").
func isSoftLength(sceneLength string) bool {
	return sceneLength == "brief" || sceneLength == "extended"
}

// CheckWordCount validates wordCount against [min,max]. When sceneLength
// is "brief" or "extended" an out-of-range count is returned as a warning
// instead of a fatal error.
func CheckWordCount(wordCount, min, max int, sceneLength string) (warning string, fatalErr error) {
	if wordCount >= min && wordCount <= max {
		return "", nil
	}
	err := &WordCountError{WordCount: wordCount, Min: min, Max: max}
	if isSoftLength(sceneLength) {
		return err.Error(), nil
	}
	return "", err
}

// CheckPOV rejects omniscient narrator phrases anywhere in text, and
// first-person pronouns that appear outside quoted speech (spec §4.7).
func CheckPOV(text string) error {
	lower := strings.ToLower(text)
	for _, phrase := range omniscientPhrases {
		if strings.Contains(lower, phrase) {
			return &POVViolationError{Reason: fmt.Sprintf("contains omniscient phrase %q", phrase)}
		}
	}

	unquoted := quotedSpeechPattern.ReplaceAllString(text, "")
	if m := firstPersonPattern.FindString(unquoted); m != "" {
		return &POVViolationError{Reason: fmt.Sprintf("first-person pronoun %q found outside quoted speech", m)}
	}
	return nil
}

// DeterministicResult bundles the outcome of the synchronous checks.
type DeterministicResult struct {
	Warnings []string
	Fatal    error
}

// RunDeterministicChecks runs both checks and aggregates warnings; a
// fatal result from either check is returned directly (the tick halts).
func RunDeterministicChecks(text string, wordCount, minWords, maxWords int, sceneLength string) DeterministicResult {
	var result DeterministicResult

	if warning, err := CheckWordCount(wordCount, minWords, maxWords, sceneLength); err != nil {
		result.Fatal = err
		return result
	} else if warning != "" {
		result.Warnings = append(result.Warnings, warning)
	}

	if err := CheckPOV(text); err != nil {
		result.Fatal = err
		return result
	}

	return result
}
