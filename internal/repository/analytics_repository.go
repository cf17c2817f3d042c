package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/SergeiKhy/linkdash/internal/models"
)

const defaultTopLinks = 5

// ownedClicks ограничивает аналитику ссылками владельца через JOIN
const ownedClicks = `FROM analytics a JOIN links l ON l.id = a.link_id`

func breakdownQuery(column, where string) string {
	return `SELECT COALESCE(NULLIF(a.` + column + `, ''), 'unknown') AS name, COUNT(*) AS count ` +
		ownedClicks + ` WHERE ` + where + ` GROUP BY name`
}

func (r *TenantRepository) GetAnalyticsByLinkID(ctx context.Context, linkID int64) ([]models.Click, error) {
	query := `
		SELECT a.id, a.link_id, a.device, a.browser, a.os, a.country, a.city, a.timestamp
		` + ownedClicks + `
		WHERE a.link_id = ? AND l.user_id = ?
		ORDER BY a.timestamp DESC, a.id DESC
	`

	rows, err := r.exec.Query(ctx, query, linkID, r.tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to get analytics: %w", err)
	}

	var raw []clickRow
	if err := rows.Decode(&raw); err != nil {
		return nil, err
	}
	out := make([]models.Click, 0, len(raw))
	for _, c := range raw {
		out = append(out, c.toModel())
	}
	return out, nil
}

// GetAnalyticsStats агрегаты по одной ссылке; для чужой ссылки возвращает нулевую структуру
func (r *TenantRepository) GetAnalyticsStats(ctx context.Context, linkID int64) (*models.AnalyticsStats, error) {
	where := `a.link_id = ? AND l.user_id = ?`

	results, err := r.exec.Batch(ctx, []Statement{
		stmt(`SELECT COUNT(*) AS count `+ownedClicks+` WHERE `+where, linkID, r.tenantID),
		stmt(`SELECT DISTINCT a.country AS name `+ownedClicks+` WHERE `+where+
			` AND a.country IS NOT NULL AND a.country <> '' ORDER BY a.country`, linkID, r.tenantID),
		stmt(breakdownQuery("device", where), linkID, r.tenantID),
		stmt(breakdownQuery("browser", where), linkID, r.tenantID),
		stmt(breakdownQuery("os", where), linkID, r.tenantID),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get analytics stats: %w", err)
	}
	if len(results) != 5 {
		return nil, fmt.Errorf("failed to get analytics stats: expected 5 result sets, got %d", len(results))
	}

	stats := &models.AnalyticsStats{Countries: []string{}}

	var total []countRow
	if err := results[0].Decode(&total); err != nil {
		return nil, err
	}
	if len(total) > 0 {
		stats.TotalClicks = total[0].Count
	}

	var countries []countRow
	if err := results[1].Decode(&countries); err != nil {
		return nil, err
	}
	for _, c := range countries {
		if c.Name != nil {
			stats.Countries = append(stats.Countries, *c.Name)
		}
	}

	if stats.Devices, err = decodeBreakdown(results[2]); err != nil {
		return nil, err
	}
	if stats.Browsers, err = decodeBreakdown(results[3]); err != nil {
		return nil, err
	}
	if stats.OS, err = decodeBreakdown(results[4]); err != nil {
		return nil, err
	}

	return stats, nil
}

// GetOverviewStats сводка по всем ссылкам и загрузкам владельца.
// total_clicks берётся из счётчика links.clicks, а не из таблицы analytics.
func (r *TenantRepository) GetOverviewStats(ctx context.Context, topN int) (*models.OverviewStats, error) {
	if topN <= 0 {
		topN = defaultTopLinks
	}
	where := `l.user_id = ?`
	t := r.tenantID

	results, err := r.exec.Batch(ctx, []Statement{
		stmt(`SELECT COUNT(*) AS total_links, COALESCE(SUM(clicks), 0) AS total_clicks FROM links WHERE user_id = ?`, t),
		stmt(`SELECT a.timestamp AS ts `+ownedClicks+` WHERE `+where+` ORDER BY a.timestamp ASC`, t),
		stmt(`SELECT id, slug, original_url, meta_title, clicks FROM links
			WHERE user_id = ? ORDER BY clicks DESC, created_at DESC LIMIT ?`, t, topN),
		stmt(breakdownQuery("device", where), t),
		stmt(breakdownQuery("browser", where), t),
		stmt(breakdownQuery("os", where), t),
		stmt(`SELECT COUNT(*) AS upload_count, COALESCE(SUM(file_size), 0) AS total_size FROM uploads WHERE user_id = ?`, t),
		stmt(`SELECT created_at AS ts FROM uploads WHERE user_id = ? ORDER BY created_at ASC`, t),
		stmt(`SELECT COALESCE(NULLIF(file_type, ''), 'unknown') AS name, COUNT(*) AS count
			FROM uploads WHERE user_id = ? GROUP BY name`, t),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get overview stats: %w", err)
	}
	if len(results) != 9 {
		return nil, fmt.Errorf("failed to get overview stats: expected 9 result sets, got %d", len(results))
	}

	stats := &models.OverviewStats{
		ClickTimestamps:  []time.Time{},
		UploadTimestamps: []time.Time{},
		TopLinks:         []models.TopLink{},
	}

	var totals []struct {
		TotalLinks  int64 `json:"total_links"`
		TotalClicks int64 `json:"total_clicks"`
	}
	if err := results[0].Decode(&totals); err != nil {
		return nil, err
	}
	if len(totals) > 0 {
		stats.TotalLinks = totals[0].TotalLinks
		stats.TotalClicks = totals[0].TotalClicks
	}

	if stats.ClickTimestamps, err = decodeTimestamps(results[1]); err != nil {
		return nil, err
	}

	if err := results[2].Decode(&stats.TopLinks); err != nil {
		return nil, err
	}

	if stats.Devices, err = decodeBreakdown(results[3]); err != nil {
		return nil, err
	}
	if stats.Browsers, err = decodeBreakdown(results[4]); err != nil {
		return nil, err
	}
	if stats.OS, err = decodeBreakdown(results[5]); err != nil {
		return nil, err
	}

	var uploads []struct {
		UploadCount int64 `json:"upload_count"`
		TotalSize   int64 `json:"total_size"`
	}
	if err := results[6].Decode(&uploads); err != nil {
		return nil, err
	}
	if len(uploads) > 0 {
		stats.UploadCount = uploads[0].UploadCount
		stats.TotalUploadSize = uploads[0].TotalSize
	}

	if stats.UploadTimestamps, err = decodeTimestamps(results[7]); err != nil {
		return nil, err
	}
	if stats.FileTypes, err = decodeBreakdown(results[8]); err != nil {
		return nil, err
	}

	return stats, nil
}

func decodeTimestamps(rows Rows) ([]time.Time, error) {
	var raw []struct {
		TS int64 `json:"ts"`
	}
	if err := rows.Decode(&raw); err != nil {
		return nil, err
	}
	out := make([]time.Time, 0, len(raw))
	for _, r := range raw {
		out = append(out, fromMillis(r.TS))
	}
	return out, nil
}
