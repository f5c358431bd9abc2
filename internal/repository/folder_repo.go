package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"filevault/internal/domain"
)

type FolderRepository struct {
	db *gorm.DB
}

func NewFolderRepository(db *gorm.DB) *FolderRepository {
	return &FolderRepository{db: db}
}

func (r *FolderRepository) Create(ctx context.Context, f *domain.Folder) error {
	return r.db.WithContext(ctx).Create(f).Error
}

func (r *FolderRepository) GetByID(ctx context.Context, id string) (*domain.Folder, error) {
	var f domain.Folder
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&f).Error; err != nil {
		return nil, notFound(err)
	}
	return &f, nil
}

// GetByIDForUpdate loads the folder and holds a row lock on it until the
// surrounding transaction ends. SQLite has no row locks; its single writer
// serializes the same transactions.
func (r *FolderRepository) GetByIDForUpdate(ctx context.Context, id string) (*domain.Folder, error) {
	var f domain.Folder
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&f).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &f, nil
}

func (r *FolderRepository) ListByOwner(ctx context.Context, ownerID string) ([]domain.Folder, error) {
	var folders []domain.Folder
	err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("name ASC").
		Find(&folders).Error
	return folders, err
}

// NamesWithPrefix returns the owner's folder names starting with prefix,
// skipping excludeID when set.
func (r *FolderRepository) NamesWithPrefix(ctx context.Context, ownerID, prefix, excludeID string) ([]string, error) {
	q := r.db.WithContext(ctx).
		Model(&domain.Folder{}).
		Where("owner_id = ? AND name LIKE ? ESCAPE '\\'", ownerID, escapeLike(prefix)+"%")
	if excludeID != "" {
		q = q.Where("id <> ?", excludeID)
	}

	var names []string
	if err := q.Pluck("name", &names).Error; err != nil {
		return nil, err
	}
	return keepPrefixed(names, prefix), nil
}

func (r *FolderRepository) Rename(ctx context.Context, id, name string) error {
	res := r.db.WithContext(ctx).
		Model(&domain.Folder{}).
		Where("id = ?", id).
		Update("name", name)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *FolderRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&domain.Folder{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
