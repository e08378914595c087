package report

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"wellog/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func mustDBFromEnv() *gorm.DB {
	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		log.Fatal("DB_DSN not set in env")
	}
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	return gdb
}

// RunReport prints a month-bounded wellness report for username (month in
// YYYY-MM) and optionally lists matching journal entries.
func RunReport(username, month string, list bool) {
	gdb := mustDBFromEnv()

	var user models.User
	if err := gdb.Where("username = ?", username).First(&user).Error; err != nil {
		log.Fatalf("user not found: %v", err)
	}

	t, err := time.Parse("2006-01", month)
	if err != nil {
		log.Fatalf("invalid month format, expected YYYY-MM: %v", err)
	}
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)

	var avgMood, avgSleep sql.NullFloat64
	var cnt, scored int64
	row := gdb.Raw(`SELECT AVG(mood), AVG(sleep_hours), COUNT(*), COUNT(mood)
		FROM journal_entries WHERE user_id = ? AND date >= ? AND date < ?`,
		user.ID, start, end).Row()
	if err := row.Scan(&avgMood, &avgSleep, &cnt, &scored); err != nil {
		log.Fatalf("query failed: %v", err)
	}

	fmt.Printf("Report for user=%s month=%s (UTC):\n", user.Username, month)
	fmt.Printf("  entries=%d scored=%d avg_mood=%.1f avg_sleep=%.1fh\n", cnt, scored, avgMood.Float64, avgSleep.Float64)

	if list {
		var rows []models.JournalEntry
		if err := gdb.Where("user_id = ? AND date >= ? AND date < ?", user.ID, start, end).Order("date, id").Find(&rows).Error; err != nil {
			log.Fatalf("fetch rows failed: %v", err)
		}
		for _, r := range rows {
			mood := "-"
			if r.Mood != nil {
				mood = fmt.Sprintf("%d", *r.Mood)
			}
			sleep := "-"
			if r.SleepHours != nil {
				sleep = fmt.Sprintf("%.1f", *r.SleepHours)
			}
			fmt.Printf("%d|%s|mood=%s|sleep=%s|%s|%s\n", r.ID, r.Date.Format("2006-01-02"), mood, sleep, r.Activities, firstLine(r.FreeText))
		}
	}
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if len(s) > 80 {
		s = s[:80] + "..."
	}
	return s
}
