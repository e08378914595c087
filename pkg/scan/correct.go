package scan

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/agext/levenshtein"
)

// editDistance is the classic insert/delete/substitute distance with unit
// costs.
func editDistance(a, b string) int {
	return levenshtein.Distance(a, b, nil)
}

var (
	reSentence   = regexp.MustCompile(`[^.!?]+[.!?]*`)
	rePunctRun   = regexp.MustCompile(`([.!?,;:])[.!?,;:]+`)
	reSpacePunct = regexp.MustCompile(`\s+([.!?,;:])`)
)

// CorrectText applies the statistical post-processing pass to a winning
// transcription: per-sentence trigram, bigram and vocabulary substitution
// against the language model selected by script inspection, followed by
// universal cleanups. It never fails; tokens with no acceptable match are
// left untouched.
func CorrectText(text string) string {
	text = normalizeText(text)
	if text == "" {
		return text
	}
	model := modelForText(text)

	var sentences []string
	for _, s := range reSentence.FindAllString(text, -1) {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		sentences = append(sentences, correctSentence(s, model))
	}
	return cleanupText(strings.Join(sentences, " "))
}

func correctSentence(sentence string, model *CorrectionModel) string {
	words := strings.Fields(sentence)
	words = substitutePhrases(words, model.Trigrams, 3)
	words = substitutePhrases(words, model.Bigrams, 2)
	words = substituteVocabulary(words, model.Vocabulary)
	return strings.Join(words, " ")
}

// substitutePhrases slides an n-word window over the sentence and replaces it
// with the closest known phrase when the edit distance is within tolerance.
// The first word's capitalization and the outer punctuation survive the swap.
func substitutePhrases(words []string, phrases []string, n int) []string {
	if len(words) < n {
		return words
	}
	for i := 0; i+n <= len(words); i++ {
		cores := make([]string, n)
		for j := 0; j < n; j++ {
			_, core, _ := splitToken(words[i+j])
			cores[j] = strings.ToLower(core)
		}
		window := strings.Join(cores, " ")
		if len(window) < n*2 {
			continue
		}
		best := ""
		bestDist := -1
		for _, p := range phrases {
			d := editDistance(window, p)
			if bestDist == -1 || d < bestDist {
				best, bestDist = p, d
			}
		}
		if bestDist < 0 || bestDist > phraseTolerance(window) {
			continue
		}
		if bestDist == 0 {
			i += n - 1
			continue // already canonical
		}
		prefix, _, _ := splitToken(words[i])
		_, _, suffix := splitToken(words[i+n-1])
		repl := strings.Fields(best)
		repl[0] = prefix + matchCase(words[i], repl[0])
		repl[len(repl)-1] += suffix
		copy(words[i:], repl)
		i += n - 1
	}
	return words
}

// substituteVocabulary snaps lone misrecognized words to the nearest known
// vocabulary entry. Short words and words containing digits are skipped; they
// are more likely to be legitimate values than recognition noise.
func substituteVocabulary(words []string, vocab []string) []string {
	for i, w := range words {
		prefix, core, suffix := splitToken(w)
		if len([]rune(core)) < 3 || strings.ContainsAny(core, "0123456789") {
			continue
		}
		low := strings.ToLower(core)
		best := ""
		bestDist := -1
		for _, v := range vocab {
			d := editDistance(low, v)
			if bestDist == -1 || d < bestDist {
				best, bestDist = v, d
			}
		}
		if bestDist <= 0 || bestDist > wordTolerance(low) {
			continue
		}
		words[i] = prefix + matchCase(core, best) + suffix
	}
	return words
}

// phraseTolerance shrinks for short windows so short word pairs are not
// rewritten on a single lucky edit.
func phraseTolerance(window string) int {
	if len(window) < 10 {
		return 1
	}
	return 2
}

// wordTolerance grows with word length.
func wordTolerance(word string) int {
	switch n := len([]rune(word)); {
	case n <= 5:
		return 1
	case n <= 9:
		return 2
	default:
		return 3
	}
}

// splitToken separates leading and trailing punctuation from the word core.
func splitToken(tok string) (prefix, core, suffix string) {
	runes := []rune(tok)
	start, end := 0, len(runes)
	for start < end && !unicode.IsLetter(runes[start]) && !unicode.IsDigit(runes[start]) {
		start++
	}
	for end > start && !unicode.IsLetter(runes[end-1]) && !unicode.IsDigit(runes[end-1]) {
		end--
	}
	return string(runes[:start]), string(runes[start:end]), string(runes[end:])
}

// matchCase upper-cases the replacement's first letter when the original
// started with one.
func matchCase(orig, repl string) string {
	or := []rune(orig)
	rr := []rune(repl)
	if len(or) == 0 || len(rr) == 0 {
		return repl
	}
	if unicode.IsUpper(or[0]) {
		rr[0] = unicode.ToUpper(rr[0])
	}
	return string(rr)
}

// cleanupText applies the universal fixups: collapse repeated punctuation and
// whitespace, re-capitalize sentence starts, ensure a leading capital.
func cleanupText(s string) string {
	s = rePunctRun.ReplaceAllString(s, "$1")
	s = reSpacePunct.ReplaceAllString(s, "$1")
	s = strings.Join(strings.Fields(s), " ")

	runes := []rune(s)
	capNext := true
	afterStop := false
	for i, r := range runes {
		if unicode.IsSpace(r) {
			if afterStop {
				capNext = true
				afterStop = false
			}
			continue
		}
		if capNext && unicode.IsLetter(r) {
			runes[i] = unicode.ToUpper(r)
		}
		capNext = false
		// a period inside a number ("7.5") is not a sentence stop; only a
		// stop followed by whitespace re-arms capitalization
		afterStop = r == '.' || r == '!' || r == '?'
	}
	return string(runes)
}
