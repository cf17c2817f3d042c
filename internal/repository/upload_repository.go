package repository

import (
	"context"
	"fmt"

	"github.com/SergeiKhy/linkdash/internal/models"
)

// Только метаданные загрузок; сами файлы лежат в объектном хранилище
func (r *TenantRepository) CreateUpload(ctx context.Context, input *models.CreateUploadInput) (*models.Upload, error) {
	query := `
		INSERT INTO uploads (user_id, object_key, file_name, file_type, file_size, public_url, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		RETURNING ` + uploadColumns

	rows, err := r.exec.Query(ctx, query,
		r.tenantID,
		input.Key,
		input.FileName,
		input.FileType,
		input.FileSize,
		input.PublicURL,
		toMillis(r.now()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create upload: %w", err)
	}

	upload, err := firstUpload(rows)
	if err != nil {
		return nil, err
	}
	if upload == nil {
		return nil, fmt.Errorf("failed to create upload: no row returned")
	}
	return upload, nil
}

func (r *TenantRepository) GetUploads(ctx context.Context) ([]models.Upload, error) {
	query := `SELECT ` + uploadColumns + ` FROM uploads WHERE user_id = ? ORDER BY created_at DESC, id DESC`

	rows, err := r.exec.Query(ctx, query, r.tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to get uploads: %w", err)
	}
	return decodeUploads(rows)
}

func (r *TenantRepository) GetUploadByID(ctx context.Context, id int64) (*models.Upload, error) {
	query := `SELECT ` + uploadColumns + ` FROM uploads WHERE id = ? AND user_id = ?`

	rows, err := r.exec.Query(ctx, query, id, r.tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to get upload: %w", err)
	}
	return firstUpload(rows)
}

func (r *TenantRepository) DeleteUpload(ctx context.Context, id int64) (bool, error) {
	query := `DELETE FROM uploads WHERE id = ? AND user_id = ? RETURNING id`

	rows, err := r.exec.Query(ctx, query, id, r.tenantID)
	if err != nil {
		return false, fmt.Errorf("failed to delete upload: %w", err)
	}
	return len(rows) > 0, nil
}
