package scan

import (
	"strings"
	"testing"
	"time"
)

var testNow = time.Date(2025, time.June, 10, 14, 30, 0, 0, time.UTC)

func TestExtractRoundTrip(t *testing.T) {
	rec := ExtractFields("Mood: 80/100. Sleep: 7.5 hours. Activities: walk, reading.", testNow)
	if rec.Mood == nil || *rec.Mood != 80 {
		t.Fatalf("mood = %v, want 80", rec.Mood)
	}
	if rec.SleepHours == nil || *rec.SleepHours != 7.5 {
		t.Fatalf("sleepHours = %v, want 7.5", rec.SleepHours)
	}
	if len(rec.Activities) != 2 || rec.Activities[0] != "walk" || rec.Activities[1] != "reading" {
		t.Fatalf("activities = %v", rec.Activities)
	}
	for _, frag := range []string{"80", "7.5", "walk", "reading", "Mood", "Sleep", "Activities"} {
		if strings.Contains(rec.FreeText, frag) {
			t.Fatalf("matched span %q leaked into freeText %q", frag, rec.FreeText)
		}
	}
}

func TestExtractMoodScales(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"Mood: 4/5", 80},
		{"Mood: 7/10", 70},
		{"Mood: 85/100", 85},
		{"Mood 3", 60},   // inferred 1-5 scale
		{"mood: 9", 90},  // inferred 1-10 scale
		{"Mood: 65", 65}, // inferred 1-100 scale
	}
	for _, c := range cases {
		rec := ExtractFields(c.in, testNow)
		if rec.Mood == nil || *rec.Mood != c.want {
			t.Fatalf("%q: mood = %v, want %d", c.in, rec.Mood, c.want)
		}
	}
}

func TestExtractMoodEmoji(t *testing.T) {
	rec := ExtractFields("Long day at work 😔", testNow)
	if rec.Mood == nil || *rec.Mood != 25 {
		t.Fatalf("emoji mood = %v, want 25", rec.Mood)
	}
	if strings.ContainsRune(rec.FreeText, '😔') {
		t.Fatalf("emoji not stripped from freeText %q", rec.FreeText)
	}
}

func TestExtractSleepForms(t *testing.T) {
	cases := []struct {
		in   string
		want float64
	}{
		{"Slept 8 hours", 8},
		{"sleep: 6,5 h", 6.5},
		{"got 7 hours of sleep", 7},
		{"Dormí 9 horas", 9},
	}
	for _, c := range cases {
		rec := ExtractFields(c.in, testNow)
		if rec.SleepHours == nil || *rec.SleepHours != c.want {
			t.Fatalf("%q: sleepHours = %v, want %v", c.in, rec.SleepHours, c.want)
		}
	}
}

func TestExtractSleepOutOfRangeIgnored(t *testing.T) {
	rec := ExtractFields("slept 55 hours", testNow)
	if rec.SleepHours != nil {
		t.Fatalf("implausible sleep accepted: %v", *rec.SleepHours)
	}
}

func TestExtractDateForms(t *testing.T) {
	want := time.Date(2025, time.March, 3, 0, 0, 0, 0, time.UTC)
	for _, in := range []string{
		"Monday, March 3, 2025. A fine day.",
		"March 3rd, 2025 was busy",
		"2025-03-03 journal",
		"3/3/2025 long walk",
	} {
		rec := ExtractFields(in, testNow)
		if !rec.Date.Equal(want) {
			t.Fatalf("%q: date = %v, want %v", in, rec.Date, want)
		}
	}
}

func TestExtractDateDefaultsToToday(t *testing.T) {
	rec := ExtractFields("nothing dated here", testNow)
	want := time.Date(2025, time.June, 10, 0, 0, 0, 0, time.UTC)
	if !rec.Date.Equal(want) {
		t.Fatalf("default date = %v, want %v", rec.Date, want)
	}
}

func TestExtractKeepsNarrative(t *testing.T) {
	rec := ExtractFields("Mood: 60. Went hiking with friends, it rained all day.", testNow)
	if !strings.Contains(rec.FreeText, "hiking with friends") {
		t.Fatalf("narrative lost: %q", rec.FreeText)
	}
}

func TestExtractEmptyInput(t *testing.T) {
	rec := ExtractFields("", testNow)
	if rec.FreeText != "" || rec.Mood != nil || rec.SleepHours != nil || len(rec.Activities) != 0 {
		t.Fatalf("unexpected fields from empty input: %+v", rec)
	}
}
