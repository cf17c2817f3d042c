package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/SergeiKhy/linkdash/internal/models"
)

// SystemRepository запросы без привязки к владельцу.
// Вызывающий код (вебхук, редирект) сам отвечает за авторизацию.
type SystemRepository interface {
	GetWebhookToken(ctx context.Context, token string) (*models.WebhookToken, error)
	FindLinkByURL(ctx context.Context, tenantID, url string) (*models.Link, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
	FindFolderByName(ctx context.Context, tenantID, name string) (*models.Folder, error)
	CreateLink(ctx context.Context, tenantID string, input *models.CreateLinkInput) (*models.Link, bool, error)
	GetLinkBySlug(ctx context.Context, slug string) (*models.Link, error)
	RecordClick(ctx context.Context, click *models.Click) error
	CountLinks(ctx context.Context, tenantID string) (int64, error)
}

type systemRepository struct {
	exec Executor
}

func NewSystemRepository(exec Executor) SystemRepository {
	return &systemRepository{exec: exec}
}

func (r *systemRepository) GetWebhookToken(ctx context.Context, token string) (*models.WebhookToken, error) {
	if token == "" {
		return nil, nil
	}
	query := `SELECT ` + webhookTokenColumns + ` FROM webhook_tokens WHERE token = ?`

	rows, err := r.exec.Query(ctx, query, token)
	if err != nil {
		return nil, fmt.Errorf("failed to get webhook token: %w", err)
	}
	return firstWebhookToken(rows)
}

func (r *systemRepository) FindLinkByURL(ctx context.Context, tenantID, url string) (*models.Link, error) {
	query := `SELECT ` + linkColumns + ` FROM links WHERE user_id = ? AND original_url = ? ORDER BY id ASC LIMIT 1`

	rows, err := r.exec.Query(ctx, query, tenantID, url)
	if err != nil {
		return nil, fmt.Errorf("failed to find link by url: %w", err)
	}
	return firstLink(rows)
}

func (r *systemRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	rows, err := r.exec.Query(ctx, `SELECT 1 AS found FROM links WHERE slug = ? LIMIT 1`, slug)
	if err != nil {
		return false, fmt.Errorf("failed to check slug: %w", err)
	}
	return len(rows) > 0, nil
}

// FindFolderByName ищет папку без учёта регистра и крайних пробелов
func (r *systemRepository) FindFolderByName(ctx context.Context, tenantID, name string) (*models.Folder, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil
	}
	query := `SELECT ` + folderColumns + ` FROM folders
		WHERE user_id = ? AND name = ? COLLATE NOCASE ORDER BY created_at ASC LIMIT 1`

	rows, err := r.exec.Query(ctx, query, tenantID, name)
	if err != nil {
		return nil, fmt.Errorf("failed to find folder: %w", err)
	}
	return firstFolder(rows)
}

// CreateLink создаёт ссылку вебхука. Если у владельца уже есть ссылка с тем же url
// (параллельный запрос успел раньше), возвращает её и false.
func (r *systemRepository) CreateLink(ctx context.Context, tenantID string, input *models.CreateLinkInput) (*models.Link, bool, error) {
	if tenantID == "" {
		return nil, false, ErrEmptyTenant
	}
	link, err := insertLinkIfAbsent(ctx, r.exec, tenantID, input, time.Now())
	if err != nil {
		return nil, false, err
	}
	if link != nil {
		return link, true, nil
	}

	existing, err := r.FindLinkByURL(ctx, tenantID, input.OriginalURL)
	if err != nil {
		return nil, false, err
	}
	if existing == nil {
		return nil, false, fmt.Errorf("failed to create link: no row returned")
	}
	return existing, false, nil
}

func (r *systemRepository) GetLinkBySlug(ctx context.Context, slug string) (*models.Link, error) {
	rows, err := r.exec.Query(ctx, `SELECT `+linkColumns+` FROM links WHERE slug = ?`, slug)
	if err != nil {
		return nil, fmt.Errorf("failed to get link by slug: %w", err)
	}
	return firstLink(rows)
}

// RecordClick пишет строку аналитики и увеличивает счётчик ссылки в одном пакете
func (r *systemRepository) RecordClick(ctx context.Context, click *models.Click) error {
	ts := click.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	_, err := r.exec.Batch(ctx, []Statement{
		stmt(`INSERT INTO analytics (link_id, device, browser, os, country, city, timestamp)
			SELECT id, ?, ?, ?, ?, ?, ? FROM links WHERE id = ?`,
			orUnknown(click.Device), orUnknown(click.Browser), orUnknown(click.OS),
			nullIfEmpty(click.Country), nullIfEmpty(click.City), toMillis(ts), click.LinkID),
		stmt(`UPDATE links SET clicks = clicks + 1 WHERE id = ?`, click.LinkID),
	})
	if err != nil {
		return fmt.Errorf("failed to record click: %w", err)
	}
	return nil
}

func (r *systemRepository) CountLinks(ctx context.Context, tenantID string) (int64, error) {
	rows, err := r.exec.Query(ctx, `SELECT COUNT(*) AS count FROM links WHERE user_id = ?`, tenantID)
	if err != nil {
		return 0, fmt.Errorf("failed to count links: %w", err)
	}
	var out []countRow
	if err := rows.Decode(&out); err != nil {
		return 0, err
	}
	if len(out) == 0 {
		return 0, nil
	}
	return out[0].Count, nil
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
