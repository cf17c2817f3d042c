package models

import "time"

type WebhookToken struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Token     string    `json:"token"`
	RateLimit int       `json:"rate_limit"`
	CreatedAt time.Time `json:"created_at"`
}

type WebhookLinkInput struct {
	URL        string  `json:"url"`
	CustomSlug *string `json:"customSlug,omitempty"`
	Folder     *string `json:"folder,omitempty"`
}

// WebhookResult результат вебхука; Created=false означает идемпотентное попадание
type WebhookResult struct {
	Link    *Link
	Created bool
}

type WebhookUsage struct {
	RateLimit      int       `json:"rate_limit"`
	Remaining      int       `json:"remaining"`
	WindowResetsAt time.Time `json:"window_resets_at"`
	TotalLinks     int64     `json:"total_links"`
	TokenCreatedAt time.Time `json:"token_created_at"`
}
