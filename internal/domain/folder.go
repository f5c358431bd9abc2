package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Folder is a flat, single-level container owned by one user.
type Folder struct {
	ID        string    `json:"id" gorm:"type:varchar(36);primaryKey"`
	Name      string    `json:"name" gorm:"type:varchar(255);not null;uniqueIndex:idx_folders_owner_name,priority:2"`
	OwnerID   string    `json:"owner_id" gorm:"type:varchar(36);not null;uniqueIndex:idx_folders_owner_name,priority:1"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Owner *User `json:"-" gorm:"foreignKey:OwnerID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

func (Folder) TableName() string { return "folders" }

func (f *Folder) BeforeCreate(_ *gorm.DB) error {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	return nil
}
