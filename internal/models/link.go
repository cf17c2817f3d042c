package models

import (
	"time"
)

type Link struct {
	ID              int64      `json:"id"`
	UserID          string     `json:"user_id"`
	Slug            string     `json:"slug"`
	OriginalURL     string     `json:"original_url"`
	IsCustom        bool       `json:"is_custom"`
	Clicks          int64      `json:"clicks"`
	FolderID        *string    `json:"folder_id"`
	MetaTitle       *string    `json:"meta_title"`
	MetaDescription *string    `json:"meta_description"`
	MetaFavicon     *string    `json:"meta_favicon"`
	ScreenshotURL   *string    `json:"screenshot_url"`
	Note            *string    `json:"note"`
	ExpiresAt       *time.Time `json:"expires_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

// IsExpired reports whether the link has an expiry in the past
func (l *Link) IsExpired(now time.Time) bool {
	return l.ExpiresAt != nil && !l.ExpiresAt.After(now)
}

type CreateLinkInput struct {
	Slug            string
	OriginalURL     string
	IsCustom        bool
	FolderID        *string
	MetaTitle       *string
	MetaDescription *string
	MetaFavicon     *string
	ScreenshotURL   *string
	Note            *string
	ExpiresAt       *time.Time
}

// CreateLinkRequest тело запроса создания ссылки из кабинета
type CreateLinkRequest struct {
	URL             string     `json:"url" binding:"required"`
	CustomSlug      *string    `json:"custom_slug"`
	FolderID        *string    `json:"folder_id"`
	MetaTitle       *string    `json:"meta_title"`
	MetaDescription *string    `json:"meta_description"`
	MetaFavicon     *string    `json:"meta_favicon"`
	ScreenshotURL   *string    `json:"screenshot_url"`
	Note            *string    `json:"note"`
	ExpiresAt       *time.Time `json:"expires_at"`
}

type LinkPatch struct {
	Slug            Optional[string]     `json:"slug"`
	OriginalURL     Optional[string]     `json:"original_url"`
	FolderID        Optional[*string]    `json:"folder_id"`
	MetaTitle       Optional[*string]    `json:"meta_title"`
	MetaDescription Optional[*string]    `json:"meta_description"`
	MetaFavicon     Optional[*string]    `json:"meta_favicon"`
	ScreenshotURL   Optional[*string]    `json:"screenshot_url"`
	Note            Optional[*string]    `json:"note"`
	ExpiresAt       Optional[*time.Time] `json:"expires_at"`
}

// IsEmpty сообщает, что патч не меняет ни одного поля
func (p LinkPatch) IsEmpty() bool {
	return !p.Slug.Set && !p.OriginalURL.Set && !p.FolderID.Set &&
		!p.MetaTitle.Set && !p.MetaDescription.Set && !p.MetaFavicon.Set &&
		!p.ScreenshotURL.Set && !p.Note.Set && !p.ExpiresAt.Set
}
