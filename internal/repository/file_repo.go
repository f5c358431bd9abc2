package repository

import (
	"context"

	"gorm.io/gorm"

	"filevault/internal/domain"
)

type FileRepository struct {
	db *gorm.DB
}

func NewFileRepository(db *gorm.DB) *FileRepository {
	return &FileRepository{db: db}
}

func (r *FileRepository) Create(ctx context.Context, f *domain.File) error {
	return r.db.WithContext(ctx).Create(f).Error
}

func (r *FileRepository) GetByID(ctx context.Context, id string) (*domain.File, error) {
	var f domain.File
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&f).Error; err != nil {
		return nil, notFound(err)
	}
	return &f, nil
}

// ListRoot returns the uploader's files that are not in any folder.
func (r *FileRepository) ListRoot(ctx context.Context, uploaderID string) ([]domain.File, error) {
	var files []domain.File
	err := r.db.WithContext(ctx).
		Where("uploader_id = ? AND folder_id IS NULL", uploaderID).
		Order("name ASC").
		Find(&files).Error
	return files, err
}

func (r *FileRepository) ListByFolder(ctx context.Context, folderID string) ([]domain.File, error) {
	var files []domain.File
	err := r.db.WithContext(ctx).
		Where("folder_id = ?", folderID).
		Order("name ASC").
		Find(&files).Error
	return files, err
}

// NamesWithPrefix returns sibling file names in the (uploader, folder) scope
// that start with prefix. A nil folderID selects the root space.
func (r *FileRepository) NamesWithPrefix(ctx context.Context, uploaderID string, folderID *string, prefix string) ([]string, error) {
	q := r.db.WithContext(ctx).
		Model(&domain.File{}).
		Where("uploader_id = ? AND name LIKE ? ESCAPE '\\'", uploaderID, escapeLike(prefix)+"%")
	if folderID == nil {
		q = q.Where("folder_id IS NULL")
	} else {
		q = q.Where("folder_id = ?", *folderID)
	}

	var names []string
	if err := q.Pluck("name", &names).Error; err != nil {
		return nil, err
	}
	return keepPrefixed(names, prefix), nil
}

func (r *FileRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&domain.File{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// FolderContents is the aggregate needed to cascade-delete a folder.
type FolderContents struct {
	TotalSize int64
	BlobKeys  []string
}

func (r *FileRepository) ContentsOfFolder(ctx context.Context, folderID string) (FolderContents, error) {
	var rows []struct {
		Size    int64
		BlobKey string
	}
	err := r.db.WithContext(ctx).
		Model(&domain.File{}).
		Select("size, blob_key").
		Where("folder_id = ?", folderID).
		Scan(&rows).Error
	if err != nil {
		return FolderContents{}, err
	}

	out := FolderContents{BlobKeys: make([]string, 0, len(rows))}
	for _, row := range rows {
		out.TotalSize += row.Size
		out.BlobKeys = append(out.BlobKeys, row.BlobKey)
	}
	return out, nil
}

func (r *FileRepository) DeleteByFolder(ctx context.Context, folderID string) (int64, error) {
	res := r.db.WithContext(ctx).Where("folder_id = ?", folderID).Delete(&domain.File{})
	return res.RowsAffected, res.Error
}

// SumSizeByUploader is the authoritative figure used_space must equal.
func (r *FileRepository) SumSizeByUploader(ctx context.Context, uploaderID string) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&domain.File{}).
		Select("COALESCE(SUM(size), 0)").
		Where("uploader_id = ?", uploaderID).
		Scan(&total).Error
	return total, err
}
