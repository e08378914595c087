package entryupdater

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"wellog/models"
	"wellog/pkg/scan"

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

// Run rescans the pages in dir and updates the matching JournalEntry rows.
// Only rescans that beat the stored upload confidence (and minConf) are
// applied, so a better tesseract build or tuned preprocessing can repair old
// low-quality extractions without clobbering good ones.
// If dry is true, only prints proposed changes.
func Run(dir string, dry bool, minConf float64) error {
	gdb := mustDBFromEnv()

	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read dir: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		full := filepath.Join(dir, name)

		var up models.Upload
		if err := gdb.Where("file_name = ?", name).First(&up).Error; err != nil {
			log.Printf("no upload found for %s: %v", name, err)
			continue
		}

		ps, err := scan.Run(context.Background(), full, scan.Options{})
		if err != nil {
			log.Printf("scan error %s: %v", name, err)
			continue
		}
		if ps.Confidence < minConf || ps.Confidence <= up.Confidence {
			log.Printf("scan skipped %s conf=%.1f (stored=%.1f min=%.1f)", name, ps.Confidence, up.Confidence, minConf)
			continue
		}

		var entry models.JournalEntry
		if err := gdb.Where("file_name = ?", name).First(&entry).Error; err != nil {
			log.Printf("no entry found for %s: %v", name, err)
			continue
		}

		if dry {
			fmt.Printf("DRY: would update entry id=%d file=%s old_conf=%.1f new_conf=%.1f mood=%v sleep=%v\n",
				entry.ID, name, up.Confidence, ps.Confidence, ps.Record.Mood, ps.Record.SleepHours)
			continue
		}

		entry.FreeText = ps.Record.FreeText
		entry.Mood = ps.Record.Mood
		entry.SleepHours = ps.Record.SleepHours
		entry.Activities = strings.Join(ps.Record.Activities, ", ")
		entry.Date = ps.Record.Date
		if err := gdb.Save(&entry).Error; err != nil {
			log.Printf("failed update entry %s: %v", name, err)
			continue
		}
		up.WonProfile = ps.WonProfile
		up.WonRotation = ps.WonRotation
		up.Confidence = ps.Confidence
		if up.EntryID == nil {
			up.EntryID = &entry.ID
		}
		if err := gdb.Save(&up).Error; err != nil {
			log.Printf("failed update upload %s: %v", name, err)
		}
		fmt.Printf("updated entry id=%d file=%s conf=%.1f\n", entry.ID, name, ps.Confidence)
	}
	return nil
}
