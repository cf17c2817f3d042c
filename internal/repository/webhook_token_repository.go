package repository

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/SergeiKhy/linkdash/internal/models"
	"github.com/google/uuid"
)

const (
	tokenPrefix      = "whk_"
	tokenBytes       = 24
	defaultRateLimit = 5
)

func generateToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return tokenPrefix + hex.EncodeToString(buf), nil
}

func (r *TenantRepository) GetWebhookToken(ctx context.Context) (*models.WebhookToken, error) {
	query := `SELECT ` + webhookTokenColumns + ` FROM webhook_tokens WHERE user_id = ? ORDER BY created_at DESC LIMIT 1`

	rows, err := r.exec.Query(ctx, query, r.tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to get webhook token: %w", err)
	}
	return firstWebhookToken(rows)
}

// RegenerateWebhookToken заменяет токен владельца новым (старый перестаёт работать)
func (r *TenantRepository) RegenerateWebhookToken(ctx context.Context, rateLimit int) (*models.WebhookToken, error) {
	if rateLimit <= 0 {
		rateLimit = defaultRateLimit
	}
	token, err := generateToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	results, err := r.exec.Batch(ctx, []Statement{
		stmt(`DELETE FROM webhook_tokens WHERE user_id = ?`, r.tenantID),
		stmt(`INSERT INTO webhook_tokens (id, user_id, token, rate_limit, created_at)
			VALUES (?, ?, ?, ?, ?) RETURNING `+webhookTokenColumns,
			uuid.NewString(), r.tenantID, token, rateLimit, toMillis(r.now())),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to regenerate webhook token: %w", err)
	}
	if len(results) != 2 {
		return nil, fmt.Errorf("failed to regenerate webhook token: unexpected result count %d", len(results))
	}

	created, err := firstWebhookToken(results[1])
	if err != nil {
		return nil, err
	}
	if created == nil {
		return nil, fmt.Errorf("failed to regenerate webhook token: no row returned")
	}
	return created, nil
}

func (r *TenantRepository) DeleteWebhookToken(ctx context.Context) (bool, error) {
	rows, err := r.exec.Query(ctx, `DELETE FROM webhook_tokens WHERE user_id = ? RETURNING id`, r.tenantID)
	if err != nil {
		return false, fmt.Errorf("failed to delete webhook token: %w", err)
	}
	return len(rows) > 0, nil
}
