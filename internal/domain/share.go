package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Share grants read access to one folder until Expiration. The service never
// deletes rows itself; they go with their folder through the foreign key.
// Validity is decided at access time.
type Share struct {
	ID         string    `json:"id" gorm:"type:varchar(36);primaryKey"`
	FolderID   string    `json:"folder_id" gorm:"type:varchar(36);not null;index"`
	Expiration time.Time `json:"expiration" gorm:"not null"`
	CreatedAt  time.Time `json:"created_at"`

	Folder *Folder `json:"-" gorm:"foreignKey:FolderID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

func (Share) TableName() string { return "shares" }

func (s *Share) BeforeCreate(_ *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

// ValidAt reports whether the share still grants access at now.
func (s *Share) ValidAt(now time.Time) bool {
	return now.Before(s.Expiration)
}
