package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	CleanupReasonDeleteFailed = "delete_failed"
	CleanupReasonOrphaned     = "orphaned"
)

// BlobCleanup is a blob key whose deletion is still owed to the blob store.
type BlobCleanup struct {
	ID        string    `json:"id" gorm:"type:varchar(36);primaryKey"`
	BlobKey   string    `json:"blob_key" gorm:"type:varchar(512);not null;uniqueIndex"`
	Reason    string    `json:"reason" gorm:"type:varchar(32);not null"`
	Attempts  int       `json:"attempts" gorm:"not null;default:0"`
	LastError string    `json:"last_error"`
	CreatedAt time.Time `json:"created_at" gorm:"index"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (BlobCleanup) TableName() string { return "blob_cleanups" }

func (b *BlobCleanup) BeforeCreate(_ *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	return nil
}
