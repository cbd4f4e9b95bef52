package db

import "time"

// ResultRecord is one report attempt kept in the local journal.
type ResultRecord struct {
	ID          string    `gorm:"primaryKey;size:36"`
	DeviceID    string    `gorm:"size:255;index"`
	CommandID   string    `gorm:"size:255;index"`
	Status      string    `gorm:"size:16"`
	Outcome     string    `gorm:"size:16"`
	Output      string    `gorm:"type:text"`
	Delivered   bool      `gorm:"index"`
	DeliveryErr string    `gorm:"size:1024"`
	CompletedAt time.Time `gorm:"index"`
	CreatedAt   time.Time
}
