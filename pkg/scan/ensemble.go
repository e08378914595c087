package scan

import (
	"sort"
	"strings"
)

// SelectorConfig holds the ensemble tuning knobs. Both values are heuristics,
// not contracts; the defaults came out of trial runs on handwriting photos.
type SelectorConfig struct {
	// MinTextLen is the minimum trimmed text length for a result to count as
	// signal rather than noise.
	MinTextLen int
	// TieEpsilon is the confidence delta under which two results are treated
	// as practically tied, letting text length break the tie.
	TieEpsilon float64
}

// DefaultSelectorConfig returns the tuned defaults.
func DefaultSelectorConfig() SelectorConfig {
	return SelectorConfig{MinTextLen: 3, TieEpsilon: 5.0}
}

// SelectBest picks exactly one winner from the ensemble. Near-empty results
// are dropped first; if everything was dropped the highest-confidence dropped
// result is returned anyway so the pipeline always produces something.
// Within TieEpsilon of the top confidence, longer trimmed text wins: a long
// transcription at marginally lower confidence carries more of the page than
// a short fragment.
func SelectBest(results []Result, cfg SelectorConfig) (Result, bool) {
	if len(results) == 0 {
		return Result{}, false
	}
	if cfg.MinTextLen <= 0 {
		cfg = DefaultSelectorConfig()
	}

	var keep, dropped []Result
	for _, r := range results {
		if len(strings.TrimSpace(r.Text)) < cfg.MinTextLen {
			dropped = append(dropped, r)
			continue
		}
		keep = append(keep, r)
	}
	if len(keep) == 0 {
		best := dropped[0]
		for _, r := range dropped[1:] {
			if r.Confidence > best.Confidence {
				best = r
			}
		}
		return best, true
	}

	sort.SliceStable(keep, func(i, j int) bool {
		return keep[i].Confidence > keep[j].Confidence
	})
	best := keep[0]
	for _, r := range keep[1:] {
		if keep[0].Confidence-r.Confidence >= cfg.TieEpsilon {
			break
		}
		if trimmedLen(r.Text) > trimmedLen(best.Text) {
			best = r
		}
	}
	return best, true
}

func trimmedLen(s string) int {
	return len(strings.TrimSpace(s))
}
