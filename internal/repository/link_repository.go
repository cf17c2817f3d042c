package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/SergeiKhy/linkdash/internal/models"
)

const linkInsertColumns = `user_id, slug, original_url, is_custom, clicks, folder_id, meta_title,
	meta_description, meta_favicon, screenshot_url, note, expires_at, created_at`

const linkInsertValues = `?, ?, ?, ?, 0, (SELECT id FROM folders WHERE id = ? AND user_id = ?), ?, ?, ?, ?, ?, ?, ?`

func linkInsertParams(tenantID string, input *models.CreateLinkInput, now time.Time) []any {
	return []any{
		tenantID,
		input.Slug,
		input.OriginalURL,
		boolToInt(input.IsCustom),
		strPtr(input.FolderID),
		tenantID,
		strPtr(input.MetaTitle),
		strPtr(input.MetaDescription),
		strPtr(input.MetaFavicon),
		strPtr(input.ScreenshotURL),
		strPtr(input.Note),
		millisPtr(input.ExpiresAt),
		toMillis(now),
	}
}

// insertLink общий INSERT для кабинета и вебхука.
// Чужая папка превращается в NULL подзапросом с проверкой владельца.
func insertLink(ctx context.Context, exec Executor, tenantID string, input *models.CreateLinkInput, now time.Time) (*models.Link, error) {
	query := `INSERT INTO links (` + linkInsertColumns + `)
		VALUES (` + linkInsertValues + `)
		RETURNING ` + linkColumns

	rows, err := exec.Query(ctx, query, linkInsertParams(tenantID, input, now)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create link: %w", err)
	}

	link, err := firstLink(rows)
	if err != nil {
		return nil, err
	}
	if link == nil {
		return nil, fmt.Errorf("failed to create link: no row returned")
	}
	return link, nil
}

// insertLinkIfAbsent вставляет строку, только если у владельца ещё нет ссылки с тем же url.
// nil без ошибки: ссылку уже создал другой запрос.
func insertLinkIfAbsent(ctx context.Context, exec Executor, tenantID string, input *models.CreateLinkInput, now time.Time) (*models.Link, error) {
	query := `INSERT INTO links (` + linkInsertColumns + `)
		SELECT ` + linkInsertValues + `
		WHERE NOT EXISTS (SELECT 1 FROM links WHERE user_id = ? AND original_url = ?)
		RETURNING ` + linkColumns

	params := append(linkInsertParams(tenantID, input, now), tenantID, input.OriginalURL)
	rows, err := exec.Query(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("failed to create link: %w", err)
	}
	return firstLink(rows)
}

func (r *TenantRepository) CreateLink(ctx context.Context, input *models.CreateLinkInput) (*models.Link, error) {
	return insertLink(ctx, r.exec, r.tenantID, input, r.now())
}

func (r *TenantRepository) GetLinks(ctx context.Context) ([]models.Link, error) {
	query := `SELECT ` + linkColumns + ` FROM links WHERE user_id = ? ORDER BY created_at DESC, id DESC`

	rows, err := r.exec.Query(ctx, query, r.tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to get links: %w", err)
	}
	return decodeLinks(rows)
}

func (r *TenantRepository) GetLinkByID(ctx context.Context, id int64) (*models.Link, error) {
	query := `SELECT ` + linkColumns + ` FROM links WHERE id = ? AND user_id = ?`

	rows, err := r.exec.Query(ctx, query, id, r.tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to get link: %w", err)
	}
	return firstLink(rows)
}

// UpdateLink применяет частичный патч. Пустой патч перечитывает строку.
func (r *TenantRepository) UpdateLink(ctx context.Context, id int64, patch models.LinkPatch) (*models.Link, error) {
	if patch.IsEmpty() {
		return r.GetLinkByID(ctx, id)
	}

	var sets []string
	var args []any

	if patch.Slug.Set {
		sets = append(sets, "slug = ?", "is_custom = 1")
		args = append(args, patch.Slug.Value)
	}
	if patch.OriginalURL.Set {
		sets = append(sets, "original_url = ?")
		args = append(args, patch.OriginalURL.Value)
	}
	if patch.FolderID.Set {
		sets = append(sets, "folder_id = (SELECT id FROM folders WHERE id = ? AND user_id = ?)")
		args = append(args, strPtr(patch.FolderID.Value), r.tenantID)
	}
	nullable := []struct {
		column string
		value  models.Optional[*string]
	}{
		{"meta_title", patch.MetaTitle},
		{"meta_description", patch.MetaDescription},
		{"meta_favicon", patch.MetaFavicon},
		{"screenshot_url", patch.ScreenshotURL},
		{"note", patch.Note},
	}
	for _, f := range nullable {
		if f.value.Set {
			sets = append(sets, f.column+" = ?")
			args = append(args, strPtr(f.value.Value))
		}
	}
	if patch.ExpiresAt.Set {
		sets = append(sets, "expires_at = ?")
		args = append(args, millisPtr(patch.ExpiresAt.Value))
	}

	query := `UPDATE links SET ` + strings.Join(sets, ", ") +
		` WHERE id = ? AND user_id = ? RETURNING ` + linkColumns
	args = append(args, id, r.tenantID)

	rows, err := r.exec.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to update link: %w", err)
	}
	return firstLink(rows)
}

// DeleteLink удаляет ссылку вместе с её тегами и аналитикой одним пакетом
func (r *TenantRepository) DeleteLink(ctx context.Context, id int64) (bool, error) {
	owned := `SELECT id FROM links WHERE id = ? AND user_id = ?`

	results, err := r.exec.Batch(ctx, []Statement{
		stmt(`DELETE FROM link_tags WHERE link_id IN (`+owned+`)`, id, r.tenantID),
		stmt(`DELETE FROM analytics WHERE link_id IN (`+owned+`)`, id, r.tenantID),
		stmt(`DELETE FROM links WHERE id = ? AND user_id = ? RETURNING id`, id, r.tenantID),
	})
	if err != nil {
		return false, fmt.Errorf("failed to delete link: %w", err)
	}
	return len(results) == 3 && len(results[2]) > 0, nil
}
