package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/SergeiKhy/linkdash/internal/models"
	"github.com/google/uuid"
)

func (r *TenantRepository) CreateTag(ctx context.Context, name, color string) (*models.Tag, error) {
	query := `INSERT INTO tags (id, user_id, name, color, created_at) VALUES (?, ?, ?, ?, ?) RETURNING ` + tagColumns

	rows, err := r.exec.Query(ctx, query, uuid.NewString(), r.tenantID, name, color, toMillis(r.now()))
	if err != nil {
		return nil, fmt.Errorf("failed to create tag: %w", err)
	}

	tag, err := firstTag(rows)
	if err != nil {
		return nil, err
	}
	if tag == nil {
		return nil, fmt.Errorf("failed to create tag: no row returned")
	}
	return tag, nil
}

func (r *TenantRepository) GetTags(ctx context.Context) ([]models.Tag, error) {
	query := `SELECT ` + tagColumns + ` FROM tags WHERE user_id = ? ORDER BY name ASC`

	rows, err := r.exec.Query(ctx, query, r.tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to get tags: %w", err)
	}
	return decodeTags(rows)
}

func (r *TenantRepository) GetTagByID(ctx context.Context, id string) (*models.Tag, error) {
	query := `SELECT ` + tagColumns + ` FROM tags WHERE id = ? AND user_id = ?`

	rows, err := r.exec.Query(ctx, query, id, r.tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to get tag: %w", err)
	}
	return firstTag(rows)
}

func (r *TenantRepository) UpdateTag(ctx context.Context, id string, patch models.TagPatch) (*models.Tag, error) {
	if patch.IsEmpty() {
		return r.GetTagByID(ctx, id)
	}

	var sets []string
	var args []any
	if patch.Name.Set {
		sets = append(sets, "name = ?")
		args = append(args, patch.Name.Value)
	}
	if patch.Color.Set {
		sets = append(sets, "color = ?")
		args = append(args, patch.Color.Value)
	}
	args = append(args, id, r.tenantID)

	query := `UPDATE tags SET ` + strings.Join(sets, ", ") +
		` WHERE id = ? AND user_id = ? RETURNING ` + tagColumns

	rows, err := r.exec.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to update tag: %w", err)
	}
	return firstTag(rows)
}

// DeleteTag удаляет тег и все его связи со ссылками
func (r *TenantRepository) DeleteTag(ctx context.Context, id string) (bool, error) {
	results, err := r.exec.Batch(ctx, []Statement{
		stmt(`DELETE FROM link_tags WHERE tag_id IN (SELECT id FROM tags WHERE id = ? AND user_id = ?)`, id, r.tenantID),
		stmt(`DELETE FROM tags WHERE id = ? AND user_id = ? RETURNING id`, id, r.tenantID),
	})
	if err != nil {
		return false, fmt.Errorf("failed to delete tag: %w", err)
	}
	return len(results) == 2 && len(results[1]) > 0, nil
}

func (r *TenantRepository) GetLinkTags(ctx context.Context) ([]models.LinkTag, error) {
	query := `
		SELECT lt.link_id, lt.tag_id
		FROM link_tags lt
		JOIN links l ON l.id = lt.link_id
		WHERE l.user_id = ?
	`

	rows, err := r.exec.Query(ctx, query, r.tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to get link tags: %w", err)
	}

	var out []models.LinkTag
	if err := rows.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *TenantRepository) GetTagsForLink(ctx context.Context, linkID int64) ([]models.Tag, error) {
	query := `
		SELECT t.id, t.user_id, t.name, t.color, t.created_at
		FROM tags t
		JOIN link_tags lt ON lt.tag_id = t.id
		JOIN links l ON l.id = lt.link_id
		WHERE lt.link_id = ? AND l.user_id = ? AND t.user_id = ?
		ORDER BY t.name ASC
	`

	rows, err := r.exec.Query(ctx, query, linkID, r.tenantID, r.tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to get tags for link: %w", err)
	}
	return decodeTags(rows)
}

// AddTagToLink связывает ссылку и тег, только если оба принадлежат владельцу.
// Повторный вызов не создаёт дубликат и возвращает true.
func (r *TenantRepository) AddTagToLink(ctx context.Context, linkID int64, tagID string) (bool, error) {
	results, err := r.exec.Batch(ctx, []Statement{
		stmt(`INSERT OR IGNORE INTO link_tags (link_id, tag_id)
			SELECT l.id, t.id FROM links l JOIN tags t ON t.user_id = l.user_id
			WHERE l.id = ? AND l.user_id = ? AND t.id = ?`,
			linkID, r.tenantID, tagID),
		stmt(`SELECT lt.link_id FROM link_tags lt
			JOIN links l ON l.id = lt.link_id
			JOIN tags t ON t.id = lt.tag_id
			WHERE lt.link_id = ? AND lt.tag_id = ? AND l.user_id = ? AND t.user_id = ?`,
			linkID, tagID, r.tenantID, r.tenantID),
	})
	if err != nil {
		return false, fmt.Errorf("failed to add tag to link: %w", err)
	}
	return len(results) == 2 && len(results[1]) > 0, nil
}

func (r *TenantRepository) RemoveTagFromLink(ctx context.Context, linkID int64, tagID string) (bool, error) {
	query := `
		DELETE FROM link_tags
		WHERE link_id = ? AND tag_id = ?
			AND link_id IN (SELECT id FROM links WHERE id = ? AND user_id = ?)
		RETURNING link_id
	`

	rows, err := r.exec.Query(ctx, query, linkID, tagID, linkID, r.tenantID)
	if err != nil {
		return false, fmt.Errorf("failed to remove tag from link: %w", err)
	}
	return len(rows) > 0, nil
}
