package scan

import (
	"context"
	"fmt"
	"log"
	"os"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"
)

// Options configures one pipeline run. Zero values select the defaults.
type Options struct {
	Recognizer     Recognizer
	Selector       SelectorConfig
	LangHint       string        // tesseract language hint, default "eng+spa"
	AttemptTimeout time.Duration // per recognition attempt, default 30s
	MaxParallel    int           // concurrent recognition calls, default NumCPU
	TempDir        string        // base for the per-run work dir, "" = os.TempDir()
	Now            func() time.Time
}

// PageScan is the pipeline output: the extracted record plus diagnostic
// metadata about which attempt won.
type PageScan struct {
	Record        Record
	WonProfile    string
	WonRotation   int
	Confidence    float64
	RawText       string
	CorrectedText string
	Attempts      int
}

func (o *Options) fillDefaults() {
	if o.Recognizer == nil {
		o.Recognizer = TesseractRecognizer{}
	}
	if o.Selector.MinTextLen <= 0 {
		o.Selector = DefaultSelectorConfig()
	}
	if o.LangHint == "" {
		o.LangHint = "eng+spa"
	}
	if o.AttemptTimeout <= 0 {
		o.AttemptTimeout = 30 * time.Second
	}
	if o.MaxParallel <= 0 {
		o.MaxParallel = runtime.NumCPU()
	}
	if o.Now == nil {
		o.Now = time.Now
	}
}

// Run executes the full pipeline on one photographed page: variant
// generation, orientation probing, the parallel recognition ensemble,
// winner selection, contextual correction and field extraction.
//
// All temporary variant buffers live in a per-run work directory that is
// removed on every exit path, including cancellation. The only error Run
// returns for a decodable image is the caller's context error; "nothing
// legible found" yields a low-confidence, possibly empty record instead.
func Run(ctx context.Context, imagePath string, opts Options) (*PageScan, error) {
	opts.fillDefaults()

	workDir, err := os.MkdirTemp(opts.TempDir, "scan-*")
	if err != nil {
		return nil, fmt.Errorf("create work dir: %w", err)
	}
	defer os.RemoveAll(workDir)

	variants, err := GenerateVariants(imagePath, workDir)
	if err != nil {
		return nil, err
	}

	var attempts []OrientationAttempt
	for _, v := range variants {
		atts, err := ProbeOrientations(v, workDir)
		if err != nil {
			log.Printf("scan: variant %s orientations skipped: %v", v.Profile, err)
			continue
		}
		attempts = append(attempts, atts...)
	}

	results := make([]Result, len(attempts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.MaxParallel)
	for i, att := range attempts {
		i, att := i, att
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = recognizeAttempt(gctx, opts.Recognizer, att, opts.LangHint, opts.AttemptTimeout)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	// in-flight attempts absorb cancellation into empty results; surface it
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	winner, ok := SelectBest(results, opts.Selector)
	if !ok {
		winner = Result{}
	}
	log.Printf("scan: %d attempts, winner profile=%s rotation=%d conf=%.1f text=%q",
		len(results), winner.Profile, winner.Rotation, winner.Confidence, snippet(winner.Text, 120))

	corrected := CorrectText(winner.Text)
	record := ExtractFields(corrected, opts.Now())

	return &PageScan{
		Record:        record,
		WonProfile:    winner.Profile,
		WonRotation:   winner.Rotation,
		Confidence:    winner.Confidence,
		RawText:       winner.Text,
		CorrectedText: corrected,
		Attempts:      len(results),
	}, nil
}
