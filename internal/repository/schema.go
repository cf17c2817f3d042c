package repository

import (
	"context"
	"fmt"
)

// schema SQLite-совместимая схема. Внешних ключей и каскадов нет:
// ссылочная целостность поддерживается в TenantRepository.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS links (
		id               INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id          TEXT    NOT NULL,
		slug             TEXT    NOT NULL UNIQUE,
		original_url     TEXT    NOT NULL,
		is_custom        INTEGER NOT NULL DEFAULT 0,
		clicks           INTEGER NOT NULL DEFAULT 0,
		folder_id        TEXT,
		meta_title       TEXT,
		meta_description TEXT,
		meta_favicon     TEXT,
		screenshot_url   TEXT,
		note             TEXT,
		expires_at       INTEGER,
		created_at       INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_links_user_id ON links(user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_links_user_url ON links(user_id, original_url)`,
	`CREATE INDEX IF NOT EXISTS idx_links_folder_id ON links(folder_id)`,
	`CREATE TABLE IF NOT EXISTS folders (
		id         TEXT    PRIMARY KEY,
		user_id    TEXT    NOT NULL,
		name       TEXT    NOT NULL,
		icon       TEXT    NOT NULL DEFAULT 'folder',
		created_at INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_folders_user_id ON folders(user_id)`,
	`CREATE TABLE IF NOT EXISTS tags (
		id         TEXT    PRIMARY KEY,
		user_id    TEXT    NOT NULL,
		name       TEXT    NOT NULL,
		color      TEXT    NOT NULL,
		created_at INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_tags_user_id ON tags(user_id)`,
	`CREATE TABLE IF NOT EXISTS link_tags (
		link_id INTEGER NOT NULL,
		tag_id  TEXT    NOT NULL,
		PRIMARY KEY (link_id, tag_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_link_tags_tag_id ON link_tags(tag_id)`,
	`CREATE TABLE IF NOT EXISTS uploads (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id    TEXT    NOT NULL,
		object_key TEXT    NOT NULL,
		file_name  TEXT    NOT NULL,
		file_type  TEXT    NOT NULL DEFAULT '',
		file_size  INTEGER NOT NULL DEFAULT 0,
		public_url TEXT    NOT NULL,
		created_at INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_uploads_user_id ON uploads(user_id)`,
	`CREATE TABLE IF NOT EXISTS analytics (
		id        INTEGER PRIMARY KEY AUTOINCREMENT,
		link_id   INTEGER NOT NULL,
		device    TEXT    NOT NULL DEFAULT 'unknown',
		browser   TEXT    NOT NULL DEFAULT 'unknown',
		os        TEXT    NOT NULL DEFAULT 'unknown',
		country   TEXT,
		city      TEXT,
		timestamp INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_analytics_link_id ON analytics(link_id)`,
	`CREATE TABLE IF NOT EXISTS webhook_tokens (
		id         TEXT    PRIMARY KEY,
		user_id    TEXT    NOT NULL,
		token      TEXT    NOT NULL UNIQUE,
		rate_limit INTEGER NOT NULL DEFAULT 5,
		created_at INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_webhook_tokens_user_id ON webhook_tokens(user_id)`,
}

// Migrate применяет схему одним пакетом
func Migrate(ctx context.Context, exec Executor) error {
	statements := make([]Statement, 0, len(schema))
	for _, s := range schema {
		statements = append(statements, stmt(s))
	}
	if _, err := exec.Batch(ctx, statements); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}
