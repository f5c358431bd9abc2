package domain

import "time"

// SessionRecord backs the database session store.
type SessionRecord struct {
	ID        string    `gorm:"type:varchar(64);primaryKey"`
	Data      []byte    `gorm:"not null"`
	ExpiresAt time.Time `gorm:"not null;index"`
}

func (SessionRecord) TableName() string { return "sessions" }
