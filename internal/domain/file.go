package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// File is the metadata row of one stored blob. FolderID nil means the
// uploader's root space. Size never changes after creation.
type File struct {
	ID         string    `json:"id" gorm:"type:varchar(36);primaryKey"`
	Name       string    `json:"name" gorm:"type:varchar(255);not null;index:idx_files_scope_name,priority:3"`
	Type       string    `json:"type" gorm:"type:varchar(255);not null"`
	Size       int64     `json:"size" gorm:"not null"`
	BlobKey    string    `json:"-" gorm:"type:varchar(512);not null"`
	UploaderID string    `json:"uploader_id" gorm:"type:varchar(36);not null;index:idx_files_scope_name,priority:1"`
	FolderID   *string   `json:"folder_id" gorm:"type:varchar(36);index:idx_files_scope_name,priority:2"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	Uploader *User   `json:"-" gorm:"foreignKey:UploaderID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	Folder   *Folder `json:"-" gorm:"foreignKey:FolderID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

func (File) TableName() string { return "files" }

func (f *File) BeforeCreate(_ *gorm.DB) error {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	return nil
}
