package scan

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"
)

// fixedRecognizer returns the same transcription for every attempt.
type fixedRecognizer struct {
	text string
	conf float64
}

func (f fixedRecognizer) Recognize(context.Context, string, string) (string, float64, error) {
	return f.text, f.conf, nil
}

// blockingRecognizer never returns until the context is cancelled.
type blockingRecognizer struct{}

func (blockingRecognizer) Recognize(ctx context.Context, _, _ string) (string, float64, error) {
	<-ctx.Done()
	return "", 0, ctx.Err()
}

func TestRunEndToEnd(t *testing.T) {
	src := writeTestImage(t)
	ps, err := Run(context.Background(), src, Options{
		Recognizer: fixedRecognizer{text: "Mood: 70/100", conf: 95},
		TempDir:    t.TempDir(),
		Now:        func() time.Time { return testNow },
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	// every attempt ties on identical text, so any winner yields the same
	// extraction
	if ps.Record.Mood == nil || *ps.Record.Mood != 70 {
		t.Fatalf("mood = %v, want 70", ps.Record.Mood)
	}
	if ps.Confidence != 95 {
		t.Fatalf("confidence = %v, want 95", ps.Confidence)
	}
	if ps.Attempts == 0 || ps.Attempts%4 != 0 {
		t.Fatalf("attempts = %d, want a positive multiple of 4", ps.Attempts)
	}
}

func TestRunNoSignalStillReturnsRecord(t *testing.T) {
	src := writeTestImage(t)
	ps, err := Run(context.Background(), src, Options{
		Recognizer: fixedRecognizer{text: "", conf: 0},
		TempDir:    t.TempDir(),
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if ps.Record.FreeText != "" {
		t.Fatalf("expected empty freeText, got %q", ps.Record.FreeText)
	}
	if ps.Record.Date.IsZero() {
		t.Fatalf("date must default even with no signal")
	}
}

func TestRunUndecodableFailsFast(t *testing.T) {
	junk := writeJunkFile(t)
	_, err := Run(context.Background(), junk, Options{
		Recognizer: fixedRecognizer{},
		TempDir:    t.TempDir(),
	})
	if !errors.Is(err, ErrUndecodableImage) {
		t.Fatalf("expected ErrUndecodableImage, got %v", err)
	}
}

func TestRunCancellationLeavesNoTempFiles(t *testing.T) {
	src := writeTestImage(t)
	base := t.TempDir()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	var runErr error
	go func() {
		_, runErr = Run(ctx, src, Options{
			Recognizer:     blockingRecognizer{},
			AttemptTimeout: time.Minute,
			TempDir:        base,
		})
		close(done)
	}()

	time.Sleep(100 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("run did not return after cancellation")
	}
	if runErr == nil {
		t.Fatalf("expected a context error")
	}
	entries, err := os.ReadDir(base)
	if err != nil {
		t.Fatalf("read temp base: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("temp files leaked after cancellation: %v", entries)
	}
}

func writeJunkFile(t *testing.T) string {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "junk-*.png")
	if err != nil {
		t.Fatalf("temp: %v", err)
	}
	if _, err := f.WriteString("not an image"); err != nil {
		t.Fatalf("write: %v", err)
	}
	_ = f.Close()
	return f.Name()
}
