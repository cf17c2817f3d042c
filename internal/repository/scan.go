package repository

import (
	"github.com/SergeiKhy/linkdash/internal/models"
)

const linkColumns = `id, user_id, slug, original_url, is_custom, clicks, folder_id, meta_title,
	meta_description, meta_favicon, screenshot_url, note, expires_at, created_at`

const folderColumns = `id, user_id, name, icon, created_at`

const tagColumns = `id, user_id, name, color, created_at`

const uploadColumns = `id, user_id, object_key, file_name, file_type, file_size, public_url, created_at`

const webhookTokenColumns = `id, user_id, token, rate_limit, created_at`

type linkRow struct {
	ID              int64   `json:"id"`
	UserID          string  `json:"user_id"`
	Slug            string  `json:"slug"`
	OriginalURL     string  `json:"original_url"`
	IsCustom        sqlBool `json:"is_custom"`
	Clicks          int64   `json:"clicks"`
	FolderID        *string `json:"folder_id"`
	MetaTitle       *string `json:"meta_title"`
	MetaDescription *string `json:"meta_description"`
	MetaFavicon     *string `json:"meta_favicon"`
	ScreenshotURL   *string `json:"screenshot_url"`
	Note            *string `json:"note"`
	ExpiresAt       *int64  `json:"expires_at"`
	CreatedAt       int64   `json:"created_at"`
}

func (r linkRow) toModel() models.Link {
	return models.Link{
		ID:              r.ID,
		UserID:          r.UserID,
		Slug:            r.Slug,
		OriginalURL:     r.OriginalURL,
		IsCustom:        bool(r.IsCustom),
		Clicks:          r.Clicks,
		FolderID:        r.FolderID,
		MetaTitle:       r.MetaTitle,
		MetaDescription: r.MetaDescription,
		MetaFavicon:     r.MetaFavicon,
		ScreenshotURL:   r.ScreenshotURL,
		Note:            r.Note,
		ExpiresAt:       timePtr(r.ExpiresAt),
		CreatedAt:       fromMillis(r.CreatedAt),
	}
}

type folderRow struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	Name      string `json:"name"`
	Icon      string `json:"icon"`
	CreatedAt int64  `json:"created_at"`
}

func (r folderRow) toModel() models.Folder {
	return models.Folder{
		ID:        r.ID,
		UserID:    r.UserID,
		Name:      r.Name,
		Icon:      r.Icon,
		CreatedAt: fromMillis(r.CreatedAt),
	}
}

type tagRow struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	Name      string `json:"name"`
	Color     string `json:"color"`
	CreatedAt int64  `json:"created_at"`
}

func (r tagRow) toModel() models.Tag {
	return models.Tag{
		ID:        r.ID,
		UserID:    r.UserID,
		Name:      r.Name,
		Color:     r.Color,
		CreatedAt: fromMillis(r.CreatedAt),
	}
}

type uploadRow struct {
	ID        int64  `json:"id"`
	UserID    string `json:"user_id"`
	Key       string `json:"object_key"`
	FileName  string `json:"file_name"`
	FileType  string `json:"file_type"`
	FileSize  int64  `json:"file_size"`
	PublicURL string `json:"public_url"`
	CreatedAt int64  `json:"created_at"`
}

func (r uploadRow) toModel() models.Upload {
	return models.Upload{
		ID:        r.ID,
		UserID:    r.UserID,
		Key:       r.Key,
		FileName:  r.FileName,
		FileType:  r.FileType,
		FileSize:  r.FileSize,
		PublicURL: r.PublicURL,
		CreatedAt: fromMillis(r.CreatedAt),
	}
}

type clickRow struct {
	ID        int64   `json:"id"`
	LinkID    int64   `json:"link_id"`
	Device    string  `json:"device"`
	Browser   string  `json:"browser"`
	OS        string  `json:"os"`
	Country   *string `json:"country"`
	City      *string `json:"city"`
	Timestamp int64   `json:"timestamp"`
}

func (r clickRow) toModel() models.Click {
	c := models.Click{
		ID:        r.ID,
		LinkID:    r.LinkID,
		Device:    r.Device,
		Browser:   r.Browser,
		OS:        r.OS,
		Timestamp: fromMillis(r.Timestamp),
	}
	if r.Country != nil {
		c.Country = *r.Country
	}
	if r.City != nil {
		c.City = *r.City
	}
	return c
}

type webhookTokenRow struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	Token     string `json:"token"`
	RateLimit int    `json:"rate_limit"`
	CreatedAt int64  `json:"created_at"`
}

func (r webhookTokenRow) toModel() models.WebhookToken {
	return models.WebhookToken{
		ID:        r.ID,
		UserID:    r.UserID,
		Token:     r.Token,
		RateLimit: r.RateLimit,
		CreatedAt: fromMillis(r.CreatedAt),
	}
}

type countRow struct {
	Name  *string `json:"name"`
	Count int64   `json:"count"`
}

// decodeLinks и остальные хелперы ниже раскладывают Rows в модели

func decodeLinks(rows Rows) ([]models.Link, error) {
	var raw []linkRow
	if err := rows.Decode(&raw); err != nil {
		return nil, err
	}
	out := make([]models.Link, 0, len(raw))
	for _, r := range raw {
		out = append(out, r.toModel())
	}
	return out, nil
}

func firstLink(rows Rows) (*models.Link, error) {
	links, err := decodeLinks(rows)
	if err != nil || len(links) == 0 {
		return nil, err
	}
	return &links[0], nil
}

func decodeFolders(rows Rows) ([]models.Folder, error) {
	var raw []folderRow
	if err := rows.Decode(&raw); err != nil {
		return nil, err
	}
	out := make([]models.Folder, 0, len(raw))
	for _, r := range raw {
		out = append(out, r.toModel())
	}
	return out, nil
}

func firstFolder(rows Rows) (*models.Folder, error) {
	folders, err := decodeFolders(rows)
	if err != nil || len(folders) == 0 {
		return nil, err
	}
	return &folders[0], nil
}

func decodeTags(rows Rows) ([]models.Tag, error) {
	var raw []tagRow
	if err := rows.Decode(&raw); err != nil {
		return nil, err
	}
	out := make([]models.Tag, 0, len(raw))
	for _, r := range raw {
		out = append(out, r.toModel())
	}
	return out, nil
}

func firstTag(rows Rows) (*models.Tag, error) {
	tags, err := decodeTags(rows)
	if err != nil || len(tags) == 0 {
		return nil, err
	}
	return &tags[0], nil
}

func decodeUploads(rows Rows) ([]models.Upload, error) {
	var raw []uploadRow
	if err := rows.Decode(&raw); err != nil {
		return nil, err
	}
	out := make([]models.Upload, 0, len(raw))
	for _, r := range raw {
		out = append(out, r.toModel())
	}
	return out, nil
}

func firstUpload(rows Rows) (*models.Upload, error) {
	uploads, err := decodeUploads(rows)
	if err != nil || len(uploads) == 0 {
		return nil, err
	}
	return &uploads[0], nil
}

func firstWebhookToken(rows Rows) (*models.WebhookToken, error) {
	var raw []webhookTokenRow
	if err := rows.Decode(&raw); err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, nil
	}
	token := raw[0].toModel()
	return &token, nil
}

// decodeBreakdown строит map категория → количество; пустых категорий в ответе нет
func decodeBreakdown(rows Rows) (map[string]int64, error) {
	var raw []countRow
	if err := rows.Decode(&raw); err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(raw))
	for _, r := range raw {
		if r.Count == 0 {
			continue
		}
		name := "unknown"
		if r.Name != nil && *r.Name != "" {
			name = *r.Name
		}
		out[name] += r.Count
	}
	return out, nil
}
