package repository

import (
	"context"

	"gorm.io/gorm"
)

// Repositories groups every repository over one *gorm.DB, which may be a
// transaction handle.
type Repositories struct {
	db *gorm.DB

	Users        *UserRepository
	Folders      *FolderRepository
	Files        *FileRepository
	Shares       *ShareRepository
	BlobCleanups *BlobCleanupRepository
	Sessions     *SessionRepository
}

func New(db *gorm.DB) *Repositories {
	return &Repositories{
		db:           db,
		Users:        NewUserRepository(db),
		Folders:      NewFolderRepository(db),
		Files:        NewFileRepository(db),
		Shares:       NewShareRepository(db),
		BlobCleanups: NewBlobCleanupRepository(db),
		Sessions:     NewSessionRepository(db),
	}
}

func (r *Repositories) DB() *gorm.DB { return r.db }

// Transaction runs fn with repositories bound to a single transaction.
// Returning an error rolls everything back.
func (r *Repositories) Transaction(ctx context.Context, fn func(tx *Repositories) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(New(tx))
	})
}
