package eval

import "testing"

func TestCheckWordCountBoundaries(t *testing.T) {
	if _, err := CheckWordCount(500, 500, 900, "standard"); err != nil {
		t.Fatalf("expected min boundary to pass, got %v", err)
	}
	if _, err := CheckWordCount(900, 500, 900, "standard"); err != nil {
		t.Fatalf("expected max boundary to pass, got %v", err)
	}
	if _, err := CheckWordCount(499, 500, 900, "standard"); err == nil {
		t.Fatalf("expected min-1 to fail")
	}
	if _, err := CheckWordCount(901, 500, 900, "standard"); err == nil {
		t.Fatalf("expected max+1 to fail")
	}
}

func TestCheckWordCountSoftForBriefAndExtendedModes(t *testing.T) {
	warning, err := CheckWordCount(100, 500, 900, "brief")
	if err != nil {
		t.Fatalf("expected brief mode to downgrade to warning, got fatal %v", err)
	}
	if warning == "" {
		t.Fatalf("expected a warning for out-of-range brief scene")
	}

	warning, err = CheckWordCount(2000, 500, 900, "extended")
	if err != nil {
		t.Fatalf("expected extended mode to downgrade to warning, got fatal %v", err)
	}
	if warning == "" {
		t.Fatalf("expected a warning for out-of-range extended scene")
	}
}

func TestCheckPOVRejectsOmniscientPhrase(t *testing.T) {
	text := "Elena smiled. Little did she know the archive had already changed her."
	if err := CheckPOV(text); err == nil {
		t.Fatalf("expected omniscient phrase to be rejected")
	}
}

func TestCheckPOVRejectsStrayFirstPerson(t *testing.T) {
	text := `Elena stepped forward. I should not be here, she thought grimly, but my feet kept moving.`
	if err := CheckPOV(text); err == nil {
		t.Fatalf("expected stray first-person pronoun outside quotes to be rejected")
	}
}

func TestCheckPOVAllowsFirstPersonInsideQuotedSpeech(t *testing.T) {
	text := `Elena turned to Marcus. "I won't leave without the ledger," she said.`
	if err := CheckPOV(text); err != nil {
		t.Fatalf("expected first-person pronoun inside quoted speech to be allowed, got %v", err)
	}
}

func TestRunDeterministicChecksAggregatesWarningWithoutFatal(t *testing.T) {
	text := `Elena turned to Marcus. "We should go," she said, and they left the archive behind.`
	result := RunDeterministicChecks(text, 50, 500, 900, "brief")
	if result.Fatal != nil {
		t.Fatalf("expected no fatal error for brief mode, got %v", result.Fatal)
	}
	if len(result.Warnings) != 1 {
		t.Fatalf("expected exactly one warning, got %v", result.Warnings)
	}
}
