package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/SergeiKhy/linkdash/internal/models"
	"github.com/google/uuid"
)

func (r *TenantRepository) CreateFolder(ctx context.Context, name, icon string) (*models.Folder, error) {
	query := `INSERT INTO folders (id, user_id, name, icon, created_at) VALUES (?, ?, ?, ?, ?) RETURNING ` + folderColumns

	rows, err := r.exec.Query(ctx, query, uuid.NewString(), r.tenantID, name, icon, toMillis(r.now()))
	if err != nil {
		return nil, fmt.Errorf("failed to create folder: %w", err)
	}

	folder, err := firstFolder(rows)
	if err != nil {
		return nil, err
	}
	if folder == nil {
		return nil, fmt.Errorf("failed to create folder: no row returned")
	}
	return folder, nil
}

func (r *TenantRepository) GetFolders(ctx context.Context) ([]models.Folder, error) {
	query := `SELECT ` + folderColumns + ` FROM folders WHERE user_id = ? ORDER BY created_at ASC`

	rows, err := r.exec.Query(ctx, query, r.tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to get folders: %w", err)
	}
	return decodeFolders(rows)
}

func (r *TenantRepository) GetFolderByID(ctx context.Context, id string) (*models.Folder, error) {
	query := `SELECT ` + folderColumns + ` FROM folders WHERE id = ? AND user_id = ?`

	rows, err := r.exec.Query(ctx, query, id, r.tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to get folder: %w", err)
	}
	return firstFolder(rows)
}

func (r *TenantRepository) UpdateFolder(ctx context.Context, id string, patch models.FolderPatch) (*models.Folder, error) {
	if patch.IsEmpty() {
		return r.GetFolderByID(ctx, id)
	}

	var sets []string
	var args []any
	if patch.Name.Set {
		sets = append(sets, "name = ?")
		args = append(args, patch.Name.Value)
	}
	if patch.Icon.Set {
		sets = append(sets, "icon = ?")
		args = append(args, patch.Icon.Value)
	}
	args = append(args, id, r.tenantID)

	query := `UPDATE folders SET ` + strings.Join(sets, ", ") +
		` WHERE id = ? AND user_id = ? RETURNING ` + folderColumns

	rows, err := r.exec.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to update folder: %w", err)
	}
	return firstFolder(rows)
}

// DeleteFolder удаляет папку и обнуляет folder_id у её ссылок в одном пакете
func (r *TenantRepository) DeleteFolder(ctx context.Context, id string) (bool, error) {
	results, err := r.exec.Batch(ctx, []Statement{
		stmt(`UPDATE links SET folder_id = NULL
			WHERE user_id = ? AND folder_id IN (SELECT id FROM folders WHERE id = ? AND user_id = ?)`,
			r.tenantID, id, r.tenantID),
		stmt(`DELETE FROM folders WHERE id = ? AND user_id = ? RETURNING id`, id, r.tenantID),
	})
	if err != nil {
		return false, fmt.Errorf("failed to delete folder: %w", err)
	}
	return len(results) == 2 && len(results[1]) > 0, nil
}
