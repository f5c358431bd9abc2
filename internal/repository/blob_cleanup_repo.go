package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"filevault/internal/domain"
)

type BlobCleanupRepository struct {
	db *gorm.DB
}

func NewBlobCleanupRepository(db *gorm.DB) *BlobCleanupRepository {
	return &BlobCleanupRepository{db: db}
}

// Enqueue records keys as owed to the blob store. Keys already queued are
// left untouched.
func (r *BlobCleanupRepository) Enqueue(ctx context.Context, keys []string, reason string) error {
	if len(keys) == 0 {
		return nil
	}
	rows := make([]domain.BlobCleanup, 0, len(keys))
	for _, k := range keys {
		rows = append(rows, domain.BlobCleanup{BlobKey: k, Reason: reason})
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "blob_key"}}, DoNothing: true}).
		Create(&rows).Error
}

func (r *BlobCleanupRepository) Oldest(ctx context.Context, limit int) ([]domain.BlobCleanup, error) {
	var rows []domain.BlobCleanup
	err := r.db.WithContext(ctx).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (r *BlobCleanupRepository) DeleteByKeys(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Where("blob_key IN ?", keys).Delete(&domain.BlobCleanup{}).Error
}

func (r *BlobCleanupRepository) MarkFailed(ctx context.Context, key, lastError string) error {
	return r.db.WithContext(ctx).
		Model(&domain.BlobCleanup{}).
		Where("blob_key = ?", key).
		Updates(map[string]any{
			"attempts":   gorm.Expr("attempts + 1"),
			"last_error": lastError,
		}).Error
}

func (r *BlobCleanupRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&domain.BlobCleanup{}).Count(&n).Error
	return n, err
}
