package models

import (
	"time"
)

// Notification mirrors a server-side notification into the durable
// on-device store. Payload keeps the raw JSON document as received so
// exports can round-trip fields this layer does not model.
type Notification struct {
	ID        string     `gorm:"type:text;primaryKey"`
	BucketID  string     `gorm:"type:text;not null;index"`
	Title     string     `gorm:"type:text;not null"`
	Body      string     `gorm:"type:text"`
	Payload   string     `gorm:"type:text"`
	ReadAt    *time.Time `gorm:""`
	CreatedAt time.Time  `gorm:"not null;index"`
}
