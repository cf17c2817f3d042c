package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/SergeiKhy/linkdash/internal/models"
	"github.com/SergeiKhy/linkdash/internal/repository"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const tokenCacheTTL = 5 * time.Minute

// WebhookService создание ссылок через публичный вебхук.
// Токен и лимит проверяет вызывающий до CreateLink.
type WebhookService struct {
	system repository.SystemRepository
	tokens repository.TokenCache
	logger *zap.Logger

	// создание по одному (владелец, url) за раз в пределах процесса
	inflight singleflight.Group
}

func NewWebhookService(system repository.SystemRepository, tokens repository.TokenCache, logger *zap.Logger) *WebhookService {
	return &WebhookService{
		system: system,
		tokens: tokens,
		logger: logger,
	}
}

// ResolveToken находит владельца токена (сначала в кэше, затем в БД)
func (s *WebhookService) ResolveToken(ctx context.Context, token string) (*models.WebhookToken, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}

	if s.tokens != nil {
		cached, err := s.tokens.Get(ctx, token)
		if err == nil {
			return cached, nil
		}
		if !errors.Is(err, repository.ErrCacheMiss) {
			s.logger.Warn("Token cache lookup failed", zap.Error(err))
		}
	}

	wt, err := s.system.GetWebhookToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if wt == nil {
		return nil, ErrInvalidToken
	}

	if s.tokens != nil {
		if err := s.tokens.Set(ctx, wt, tokenCacheTTL); err != nil {
			s.logger.Warn("Failed to cache webhook token", zap.Error(err))
		}
	}
	return wt, nil
}

// CreateLink валидация → идемпотентность по (владелец, url) → папка → slug → создание
func (s *WebhookService) CreateLink(ctx context.Context, wt *models.WebhookToken, input *models.WebhookLinkInput) (*models.WebhookResult, error) {
	originalURL, err := validateURL(input.URL)
	if err != nil {
		return nil, err
	}

	key := wt.UserID + "\x00" + originalURL
	leader := false
	v, err, _ := s.inflight.Do(key, func() (any, error) {
		leader = true
		return s.createLink(ctx, wt, originalURL, input)
	})
	if !leader {
		// Ждали параллельный запрос с тем же url: повторяем проверку со своим payload
		return s.createLink(ctx, wt, originalURL, input)
	}
	if err != nil {
		return nil, err
	}
	return v.(*models.WebhookResult), nil
}

func (s *WebhookService) createLink(ctx context.Context, wt *models.WebhookToken, originalURL string, input *models.WebhookLinkInput) (*models.WebhookResult, error) {
	// Повтор с тем же url возвращает существующую ссылку, customSlug и folder игнорируются
	existing, err := s.system.FindLinkByURL(ctx, wt.UserID, originalURL)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return &models.WebhookResult{Link: existing, Created: false}, nil
	}

	var folderID *string
	if input.Folder != nil && strings.TrimSpace(*input.Folder) != "" {
		folder, err := s.system.FindFolderByName(ctx, wt.UserID, *input.Folder)
		if err != nil {
			return nil, err
		}
		if folder != nil {
			folderID = &folder.ID
		}
	}

	slug, isCustom, err := resolveSlug(ctx, s.system, input.CustomSlug)
	if err != nil {
		return nil, err
	}

	link, created, err := s.system.CreateLink(ctx, wt.UserID, &models.CreateLinkInput{
		Slug:        slug,
		OriginalURL: originalURL,
		IsCustom:    isCustom,
		FolderID:    folderID,
	})
	if err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, ErrSlugTaken
		}
		return nil, err
	}
	if !created {
		return &models.WebhookResult{Link: link, Created: false}, nil
	}

	s.logger.Info("Webhook link created",
		zap.String("tenant_id", wt.UserID),
		zap.Int64("link_id", link.ID),
		zap.String("slug", link.Slug),
	)
	return &models.WebhookResult{Link: link, Created: true}, nil
}

// Usage статистика токена для GET-запроса
func (s *WebhookService) Usage(ctx context.Context, wt *models.WebhookToken, remaining int, resetsAt time.Time) (*models.WebhookUsage, error) {
	total, err := s.system.CountLinks(ctx, wt.UserID)
	if err != nil {
		return nil, err
	}
	return &models.WebhookUsage{
		RateLimit:      wt.RateLimit,
		Remaining:      remaining,
		WindowResetsAt: resetsAt,
		TotalLinks:     total,
		TokenCreatedAt: wt.CreatedAt,
	}, nil
}
