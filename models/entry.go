package models

import "time"

// JournalEntry is one scanned (or manually typed) wellness journal page.
// Mood and SleepHours stay nil when the extractor found nothing; Activities
// is stored comma-joined for simple querying.
type JournalEntry struct {
	ID         uint `gorm:"primaryKey"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
	UserID     uint     `gorm:"index;not null;uniqueIndex:idx_user_entry_file"`
	FileName   string   `gorm:"size:255;not null;uniqueIndex:idx_user_entry_file"`
	FreeText   string   `gorm:"type:text"`
	Mood       *int     // 0-100
	SleepHours *float64 // 0-24
	Activities string   `gorm:"size:1024"`
	// Date is the journal date written on the page (or the scan day when the
	// page carried none). Informational, not authoritative.
	Date time.Time `gorm:"not null;index"`
}
