package repository

import (
	"context"

	"gorm.io/gorm"

	"filevault/internal/domain"
)

type ShareRepository struct {
	db *gorm.DB
}

func NewShareRepository(db *gorm.DB) *ShareRepository {
	return &ShareRepository{db: db}
}

func (r *ShareRepository) Create(ctx context.Context, s *domain.Share) error {
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *ShareRepository) GetByID(ctx context.Context, id string) (*domain.Share, error) {
	var s domain.Share
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&s).Error; err != nil {
		return nil, notFound(err)
	}
	return &s, nil
}

func (r *ShareRepository) ListByFolder(ctx context.Context, folderID string) ([]domain.Share, error) {
	var shares []domain.Share
	err := r.db.WithContext(ctx).
		Where("folder_id = ?", folderID).
		Order("created_at DESC").
		Find(&shares).Error
	return shares, err
}
