package scan

import "testing"

func TestSelectPrefersLongerTextWithinEpsilon(t *testing.T) {
	results := []Result{
		{Text: "ok", Confidence: 80},
		{Text: "okay fine", Confidence: 77},
	}
	// "ok" is below the default min length; use a permissive config so both
	// survive and only the tie-break decides.
	best, ok := SelectBest(results, SelectorConfig{MinTextLen: 1, TieEpsilon: 5})
	if !ok {
		t.Fatalf("no winner selected")
	}
	if best.Text != "okay fine" {
		t.Fatalf("expected longer near-tied text to win, got %q", best.Text)
	}
}

func TestSelectSkipsEmptyResults(t *testing.T) {
	results := []Result{
		{Text: "", Confidence: 0},
		{Text: "hello", Confidence: 40},
	}
	best, ok := SelectBest(results, DefaultSelectorConfig())
	if !ok || best.Text != "hello" {
		t.Fatalf("expected %q, got %q (ok=%v)", "hello", best.Text, ok)
	}
}

func TestSelectHighConfidenceWinsOutsideEpsilon(t *testing.T) {
	results := []Result{
		{Text: "short but sure", Confidence: 90},
		{Text: "a much longer but far less certain transcription", Confidence: 60},
	}
	best, _ := SelectBest(results, DefaultSelectorConfig())
	if best.Confidence != 90 {
		t.Fatalf("expected the 90-confidence result, got %+v", best)
	}
}

func TestSelectFallsBackToBestDropped(t *testing.T) {
	results := []Result{
		{Text: "", Confidence: 0},
		{Text: "a", Confidence: 12},
		{Text: "x", Confidence: 7},
	}
	best, ok := SelectBest(results, DefaultSelectorConfig())
	if !ok {
		t.Fatalf("expected a fallback winner")
	}
	if best.Confidence != 12 {
		t.Fatalf("expected highest-confidence dropped result, got %+v", best)
	}
}

func TestSelectEmptyInput(t *testing.T) {
	if _, ok := SelectBest(nil, DefaultSelectorConfig()); ok {
		t.Fatalf("expected no winner for empty ensemble")
	}
}
