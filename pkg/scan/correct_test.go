package scan

import "testing"

func TestEditDistanceIsAMetric(t *testing.T) {
	if d := editDistance("kitten", "kitten"); d != 0 {
		t.Fatalf("distance(a,a) = %d, want 0", d)
	}
	if editDistance("kitten", "sitting") != editDistance("sitting", "kitten") {
		t.Fatalf("distance is not symmetric")
	}
	if d := editDistance("kitten", "sitting"); d != 3 {
		t.Fatalf("distance(kitten,sitting) = %d, want 3", d)
	}
}

func TestCorrectIdempotentOnCleanText(t *testing.T) {
	in := "I slept for 8 hours last night."
	once := CorrectText(in)
	twice := CorrectText(once)
	if once != twice {
		t.Fatalf("corrector not idempotent: %q then %q", once, twice)
	}
	if once != in {
		t.Fatalf("clean text was altered: %q -> %q", in, once)
	}
}

func TestCorrectVocabularySubstitution(t *testing.T) {
	out := CorrectText("I slcpt for 8 hours")
	if out != "I slept for 8 hours" {
		t.Fatalf("vocabulary pass failed: %q", out)
	}
}

func TestCorrectBigramSubstitutionKeepsCapital(t *testing.T) {
	out := CorrectText("Lasst night was calm")
	if out != "Last night was calm" {
		t.Fatalf("bigram pass failed: %q", out)
	}
}

func TestCorrectSpanishByDiacritics(t *testing.T) {
	out := CorrectText("dormí 8 horas esta mañama")
	if out != "Dormí 8 horas esta mañana" {
		t.Fatalf("spanish pass failed: %q", out)
	}
}

func TestCorrectCleanups(t *testing.T) {
	out := CorrectText("a good day..  really !! good")
	if out != "A good day. Really! Good" {
		t.Fatalf("cleanup failed: %q", out)
	}
}

func TestCorrectNeverPanicsOnJunk(t *testing.T) {
	for _, s := range []string{"", "   ", "...", "1234 5678", "!!@@##"} {
		_ = CorrectText(s)
	}
}
