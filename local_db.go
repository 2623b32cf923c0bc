package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/swipswaps/DockerOCR/layout"
)

// ReconstructionHistory represents the schema of the reconstruction_history table.
// Only a summary is kept; recognized text is never stored.
type ReconstructionHistory struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	CreatedAt  time.Time `json:"created_at"`
	JobID      string    `gorm:"size:64;index" json:"job_id,omitempty"`
	Filename   string    `gorm:"size:255" json:"filename"`
	Provider   string    `gorm:"size:64" json:"provider"`
	Mode       string    `gorm:"size:16;not null" json:"mode"`
	Blocks     int       `json:"blocks"`
	Dropped    int       `json:"dropped"`
	Columns    int       `json:"columns"`
	Boundaries string    `gorm:"size:4096" json:"boundaries"` // JSON array of x positions
	ImageWidth int       `json:"image_width"`
	DurationMs int64     `json:"duration_ms"`
}

// TableName keeps the table name stable regardless of gorm's pluralization rules.
func (ReconstructionHistory) TableName() string {
	return "reconstruction_history"
}

// InitializeDB opens the SQLite database at dbPath and migrates the schema
func InitializeDB(dbPath string) (*gorm.DB, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, os.ModePerm); err != nil {
			return nil, err
		}
	}

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(&ReconstructionHistory{}); err != nil {
		return nil, err
	}
	return db, nil
}

// newHistoryRecord summarizes one reconstruction.
func newHistoryRecord(jobID, filename, provider string, result layout.Result, imageWidth int, took time.Duration) ReconstructionHistory {
	boundaries, _ := json.Marshal(result.Boundaries)
	columns := 0
	for _, n := range result.Columns {
		if n > 0 {
			columns++
		}
	}
	return ReconstructionHistory{
		JobID:      jobID,
		Filename:   filename,
		Provider:   provider,
		Mode:       string(result.Mode),
		Blocks:     len(result.Blocks),
		Dropped:    result.Dropped,
		Columns:    columns,
		Boundaries: string(boundaries),
		ImageWidth: imageWidth,
		DurationMs: took.Milliseconds(),
	}
}

// InsertHistory inserts a new history record into the database
func InsertHistory(db *gorm.DB, record *ReconstructionHistory) error {
	return db.Create(record).Error
}

// GetRecentHistory returns the newest records first
func GetRecentHistory(db *gorm.DB, limit int) ([]ReconstructionHistory, error) {
	var records []ReconstructionHistory
	result := db.Order("id desc").Limit(limit).Find(&records)
	return records, result.Error
}
