package models

import (
	"time"
)

// Upload represents one photographed journal page stored for a profile,
// together with scan pipeline diagnostics for the attempt that won.
type Upload struct {
	ID          uint `gorm:"primaryKey"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
	FileName    string  `gorm:"size:255;not null"`
	StorePath   string  `gorm:"column:store_path;size:512"` // public relative path (e.g. public/journal/xxx.jpg)
	ProfileID   uint    `gorm:"index;not null"`
	Profile     Profile `gorm:"foreignKey:ProfileID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	ContentType string  `gorm:"size:128"`
	EntryID     *uint   `gorm:"index"` // FK to journal_entries.id (nullable)
	// Pipeline diagnostics: which preprocessing profile and rotation won the
	// ensemble, and at what confidence. Useful for review, not required
	// downstream.
	WonProfile  string  `gorm:"size:32"`
	WonRotation int     `gorm:"default:0"`
	Confidence  float64 `gorm:"default:0"`
	// Mark upload as failed for scan processing (record kept so the
	// front-end/admin can review)
	Failed       bool   `gorm:"default:false;index"`
	FailedReason string `gorm:"size:255"`
}
