package scan

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Record is the structured wellness data mined from one corrected
// transcription. FreeText and Date always carry a value; the other fields are
// present only when a recognizer matched.
type Record struct {
	FreeText   string
	Mood       *int     // normalized to 0-100
	SleepHours *float64 // 0-24
	Activities []string
	Date       time.Time // informational; defaults to "today"
}

var (
	reMood = regexp.MustCompile(`(?i)\b(?:mood|estado\s+de\s+[aá]nimo|[aá]nimo)\s*[:\-]?\s*(\d{1,3}(?:[.,]\d)?)(?:\s*/\s*(5|10|100))?`)

	reSleepOf  = regexp.MustCompile(`(?i)\b(\d{1,2}(?:[.,]\d{1,2})?)\s*(?:hours?|hrs?|horas?)\s+(?:of\s+sleep|de\s+sue[nñ]o)\b`)
	reSleepKey = regexp.MustCompile(`(?i)\b(?:sleep|slept|sue[nñ]o|dorm[ií])\s*[:\-]?\s*(?:for\s+)?(\d{1,2}(?:[.,]\d{1,2})?)\s*(?:h\b|hrs?\b|hours?\b|horas?\b)?`)

	reActivities    = regexp.MustCompile(`(?i)\b(?:activities|activity|actividades)\s*[:\-]\s*([^.!?\n]+)`)
	reActivitySplit = regexp.MustCompile(`[,;•\n]|\s[-–]\s`)

	reLongDate = regexp.MustCompile(`(?i)\b(?:(?:monday|tuesday|wednesday|thursday|friday|saturday|sunday|lunes|martes|mi[eé]rcoles|jueves|viernes|s[aá]bado|domingo),?\s+)?(january|february|march|april|may|june|july|august|september|october|november|december|enero|febrero|marzo|abril|mayo|junio|julio|agosto|septiembre|octubre|noviembre|diciembre)\s+(\d{1,2})(?:st|nd|rd|th)?,?\s+(\d{4})\b`)
	reISODate  = regexp.MustCompile(`\b(\d{4})-(\d{1,2})-(\d{1,2})\b`)
	reNumDate  = regexp.MustCompile(`\b(\d{1,2})[/.](\d{1,2})[/.](\d{4})\b`)
)

var months = map[string]time.Month{
	"january": time.January, "february": time.February, "march": time.March,
	"april": time.April, "may": time.May, "june": time.June, "july": time.July,
	"august": time.August, "september": time.September, "october": time.October,
	"november": time.November, "december": time.December,
	"enero": time.January, "febrero": time.February, "marzo": time.March,
	"abril": time.April, "mayo": time.May, "junio": time.June, "julio": time.July,
	"agosto": time.August, "septiembre": time.September, "octubre": time.October,
	"noviembre": time.November, "diciembre": time.December,
}

// moodEmoji is the fallback scale when no numeric mood is written.
var moodEmoji = map[rune]int{
	'😄': 90, '😊': 80, '🙂': 70, '😌': 65, '😐': 50,
	'😕': 40, '🙁': 30, '😔': 25, '😢': 15, '😞': 15, '😭': 10,
}

// ExtractFields scans corrected text with the layered field recognizers and
// strips every matched span from the free-text remainder. It never fails;
// unmatched fields stay unset and Date falls back to now.
func ExtractFields(text string, now time.Time) Record {
	rec := Record{Date: time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())}
	work := text

	work, rec.Mood = extractMood(work)
	work, rec.SleepHours = extractSleep(work)
	work, rec.Activities = extractActivities(work)
	if d, rest, ok := extractDate(work); ok {
		rec.Date = d
		work = rest
	}

	rec.FreeText = tidyFreeText(work)
	return rec
}

func extractMood(text string) (string, *int) {
	if m := reMood.FindStringSubmatchIndex(text); m != nil {
		valStr := strings.ReplaceAll(text[m[2]:m[3]], ",", ".")
		val, err := strconv.ParseFloat(valStr, 64)
		if err == nil {
			scale := 0
			if m[4] >= 0 {
				scale, _ = strconv.Atoi(text[m[4]:m[5]])
			}
			mood := normalizeMood(val, scale)
			return cutSpan(text, m[0], m[1]), &mood
		}
	}
	// emoji scale fallback
	for i, r := range text {
		if score, ok := moodEmoji[r]; ok {
			mood := score
			return cutSpan(text, i, i+len(string(r))), &mood
		}
	}
	return text, nil
}

// normalizeMood maps a raw value on a 1-5, 1-10 or 1-100 scale to 0-100.
// When the writer omitted the scale it is inferred from the magnitude.
func normalizeMood(val float64, scale int) int {
	if scale == 0 {
		switch {
		case val <= 5:
			scale = 5
		case val <= 10:
			scale = 10
		default:
			scale = 100
		}
	}
	m := int(math.Round(val / float64(scale) * 100))
	if m < 0 {
		m = 0
	}
	if m > 100 {
		m = 100
	}
	return m
}

func extractSleep(text string) (string, *float64) {
	for _, re := range []*regexp.Regexp{reSleepOf, reSleepKey} {
		m := re.FindStringSubmatchIndex(text)
		if m == nil {
			continue
		}
		valStr := strings.ReplaceAll(text[m[2]:m[3]], ",", ".")
		val, err := strconv.ParseFloat(valStr, 64)
		if err != nil || val < 0 || val > 24 {
			continue
		}
		return cutSpan(text, m[0], m[1]), &val
	}
	return text, nil
}

func extractActivities(text string) (string, []string) {
	m := reActivities.FindStringSubmatchIndex(text)
	if m == nil {
		return text, nil
	}
	list := text[m[2]:m[3]]
	var out []string
	for _, item := range reActivitySplit.Split(list, -1) {
		item = strings.TrimSpace(strings.Trim(item, "-•*"))
		item = strings.TrimSpace(item)
		n := len([]rune(item))
		if n < 2 || n > 40 {
			continue
		}
		out = append(out, item)
		if len(out) == 12 {
			break
		}
	}
	if len(out) == 0 {
		return text, nil
	}
	return cutSpan(text, m[0], m[1]), out
}

func extractDate(text string) (time.Time, string, bool) {
	if m := reLongDate.FindStringSubmatchIndex(text); m != nil {
		month := months[strings.ToLower(text[m[2]:m[3]])]
		day, _ := strconv.Atoi(text[m[4]:m[5]])
		year, _ := strconv.Atoi(text[m[6]:m[7]])
		if d, ok := makeDate(year, int(month), day); ok {
			return d, cutSpan(text, m[0], m[1]), true
		}
	}
	if m := reISODate.FindStringSubmatchIndex(text); m != nil {
		year, _ := strconv.Atoi(text[m[2]:m[3]])
		month, _ := strconv.Atoi(text[m[4]:m[5]])
		day, _ := strconv.Atoi(text[m[6]:m[7]])
		if d, ok := makeDate(year, month, day); ok {
			return d, cutSpan(text, m[0], m[1]), true
		}
	}
	if m := reNumDate.FindStringSubmatchIndex(text); m != nil {
		a, _ := strconv.Atoi(text[m[2]:m[3]])
		b, _ := strconv.Atoi(text[m[4]:m[5]])
		year, _ := strconv.Atoi(text[m[6]:m[7]])
		month, day := a, b
		if month > 12 && day <= 12 {
			month, day = day, month
		}
		if d, ok := makeDate(year, month, day); ok {
			return d, cutSpan(text, m[0], m[1]), true
		}
	}
	return time.Time{}, text, false
}

// makeDate validates by round-tripping through time.Date, which normalizes
// overflow (e.g. April 31 becomes May 1) instead of erroring.
func makeDate(year, month, day int) (time.Time, bool) {
	if year < 1900 || year > 2200 || month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}
	d := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if int(d.Month()) != month || d.Day() != day {
		return time.Time{}, false
	}
	return d, true
}

func cutSpan(text string, start, end int) string {
	return text[:start] + " " + text[end:]
}

// tidyFreeText normalizes whatever narrative is left after span stripping.
// A remainder that is nothing but punctuation collapses to the empty string.
func tidyFreeText(s string) string {
	s = reSpacePunct.ReplaceAllString(s, "$1")
	s = rePunctRun.ReplaceAllString(s, "$1")
	s = strings.Join(strings.Fields(s), " ")
	if strings.Trim(s, " .,!?;:-–•*") == "" {
		return ""
	}
	return s
}
