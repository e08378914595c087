package scan

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/otiai10/gosseract/v2"
)

// neutralConfidence is assumed when the engine returns text but no per-word
// confidence data.
const neutralConfidence = 50.0

// Result is one recognition attempt's outcome. Confidence is 0-100.
type Result struct {
	Text       string
	Confidence float64
	Profile    string
	Rotation   int
}

// Recognizer is the single integration point with the external text
// recognition engine. Implementations must be safe for concurrent calls.
type Recognizer interface {
	Recognize(ctx context.Context, imagePath, langHint string) (text string, confidence float64, err error)
}

// TesseractRecognizer runs local Tesseract through gosseract. A fresh client
// is created per call; gosseract clients are not safe to share.
type TesseractRecognizer struct{}

func (TesseractRecognizer) Recognize(_ context.Context, imagePath, langHint string) (string, float64, error) {
	client := gosseract.NewClient()
	defer client.Close()
	if langHint == "" {
		langHint = "eng"
	}
	_ = client.SetLanguage(strings.Split(langHint, "+")...)
	_ = client.SetPageSegMode(gosseract.PSM_AUTO)
	_ = client.SetVariable("preserve_interword_spaces", "1")
	if err := client.SetImage(imagePath); err != nil {
		return "", 0, err
	}
	text, err := client.Text()
	if err != nil {
		return "", 0, err
	}

	conf := neutralConfidence
	if boxes, berr := client.GetBoundingBoxes(gosseract.RIL_WORD); berr == nil && len(boxes) > 0 {
		sum := 0.0
		for _, b := range boxes {
			sum += b.Confidence
		}
		conf = sum / float64(len(boxes))
	}
	return text, conf, nil
}

// recognizeAttempt invokes the recognizer for one attempt with a hard timeout.
// Failures and timeouts never propagate; they become an empty zero-confidence
// result so a single bad attempt cannot abort the ensemble.
func recognizeAttempt(ctx context.Context, rec Recognizer, att OrientationAttempt, langHint string, timeout time.Duration) Result {
	out := Result{Profile: att.Profile, Rotation: att.Rotation}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type reply struct {
		text string
		conf float64
		err  error
	}
	ch := make(chan reply, 1)
	go func() {
		text, conf, err := rec.Recognize(ctx, att.Path, langHint)
		ch <- reply{text, conf, err}
	}()

	select {
	case <-ctx.Done():
		log.Printf("scan: attempt %s/%d abandoned: %v", att.Profile, att.Rotation, ctx.Err())
		return out
	case r := <-ch:
		if r.err != nil {
			log.Printf("scan: attempt %s/%d failed: %v", att.Profile, att.Rotation, r.err)
			return out
		}
		out.Text = r.text
		out.Confidence = clampConfidence(r.conf)
		return out
	}
}

func clampConfidence(c float64) float64 {
	if c < 0 {
		return 0
	}
	if c > 100 {
		return 100
	}
	return c
}
