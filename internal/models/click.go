package models

import (
	"time"
)

// Click строка аналитики. Владелец определяется через ссылку.
type Click struct {
	ID        int64     `json:"id"`
	LinkID    int64     `json:"link_id"`
	Device    string    `json:"device"`
	Browser   string    `json:"browser"`
	OS        string    `json:"os"`
	Country   string    `json:"country"`
	City      string    `json:"city"`
	Timestamp time.Time `json:"timestamp"`
}

type ClickEvent struct {
	LinkID    int64
	Slug      string
	UserAgent string
	Country   string
	City      string
	ClickedAt time.Time
}

type AnalyticsStats struct {
	TotalClicks int64            `json:"total_clicks"`
	Countries   []string         `json:"countries"`
	Devices     map[string]int64 `json:"devices"`
	Browsers    map[string]int64 `json:"browsers"`
	OS          map[string]int64 `json:"os"`
}

type TopLink struct {
	ID          int64   `json:"id"`
	Slug        string  `json:"slug"`
	OriginalURL string  `json:"original_url"`
	MetaTitle   *string `json:"meta_title"`
	Clicks      int64   `json:"clicks"`
}

type OverviewStats struct {
	TotalLinks       int64            `json:"total_links"`
	TotalClicks      int64            `json:"total_clicks"`
	ClickTimestamps  []time.Time      `json:"click_timestamps"`
	UploadTimestamps []time.Time      `json:"upload_timestamps"`
	TopLinks         []TopLink        `json:"top_links"`
	Devices          map[string]int64 `json:"devices"`
	Browsers         map[string]int64 `json:"browsers"`
	OS               map[string]int64 `json:"os"`
	UploadCount      int64            `json:"upload_count"`
	TotalUploadSize  int64            `json:"total_upload_size"`
	FileTypes        map[string]int64 `json:"file_types"`
}

// LinkAnalytics клики и агрегаты по одной ссылке
type LinkAnalytics struct {
	Link   *Link           `json:"link"`
	Clicks []Click         `json:"clicks"`
	Stats  *AnalyticsStats `json:"stats"`
}
