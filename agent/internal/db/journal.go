package db

import (
	"time"
	"unicode/utf8"

	"command-agent/agent/internal/command"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Journal struct {
	db *gorm.DB
}

func NewJournal(gdb *gorm.DB) *Journal { return &Journal{db: gdb} }

// Record stores one report attempt; deliveryErr is nil when the controller accepted it.
func (j *Journal) Record(deviceID string, res command.Result, deliveryErr error) error {
	rec := ResultRecord{
		ID:          uuid.NewString(),
		DeviceID:    deviceID,
		CommandID:   res.CommandID,
		Status:      string(res.Status),
		Outcome:     string(res.Outcome),
		Output:      res.Output,
		Delivered:   deliveryErr == nil,
		CompletedAt: res.Timestamp,
	}
	if deliveryErr != nil {
		rec.DeliveryErr = truncate(deliveryErr.Error(), 1024)
	}
	return j.db.Create(&rec).Error
}

// Recent returns up to limit records, newest first.
func (j *Journal) Recent(limit int) ([]ResultRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	var rows []ResultRecord
	err := j.db.Order("completed_at DESC").Order("created_at DESC").Limit(limit).Find(&rows).Error
	return rows, err
}

// Prune drops records completed before cutoff.
func (j *Journal) Prune(cutoff time.Time) (int64, error) {
	tx := j.db.Where("completed_at < ?", cutoff).Delete(&ResultRecord{})
	return tx.RowsAffected, tx.Error
}

// truncate keeps at most n bytes of s, backing off to a rune boundary.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
