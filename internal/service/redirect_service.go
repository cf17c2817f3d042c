package service

import (
	"context"
	"errors"
	"time"

	"github.com/SergeiKhy/linkdash/internal/models"
	"github.com/SergeiKhy/linkdash/internal/repository"
	"go.uber.org/zap"
)

const (
	linkCacheTTL = time.Hour
	minCacheTTL  = time.Second
)

// ErrLinkExpired ссылка найдена, но срок её действия истёк
var ErrLinkExpired = errors.New("link expired")

type RedirectService struct {
	system repository.SystemRepository
	links  repository.LinkCache
	logger *zap.Logger
	now    func() time.Time
}

func NewRedirectService(system repository.SystemRepository, links repository.LinkCache, logger *zap.Logger) *RedirectService {
	return &RedirectService{
		system: system,
		links:  links,
		logger: logger,
		now:    time.Now,
	}
}

// Resolve получает ссылку по slug (сначала из кэша, затем из БД)
func (s *RedirectService) Resolve(ctx context.Context, slug string) (*models.Link, error) {
	link, err := s.lookup(ctx, slug)
	if err != nil {
		return nil, err
	}
	if link == nil {
		return nil, ErrNotFound
	}
	if link.IsExpired(s.now()) {
		return nil, ErrLinkExpired
	}
	return link, nil
}

func (s *RedirectService) lookup(ctx context.Context, slug string) (*models.Link, error) {
	if s.links != nil {
		link, err := s.links.Get(ctx, slug)
		if err == nil {
			return link, nil
		}
		if !errors.Is(err, repository.ErrCacheMiss) {
			s.logger.Warn("Link cache lookup failed", zap.String("slug", slug), zap.Error(err))
		}
	}

	link, err := s.system.GetLinkBySlug(ctx, slug)
	if err != nil || link == nil {
		return link, err
	}

	if s.links != nil {
		ttl := linkCacheTTL
		if link.ExpiresAt != nil {
			ttl = min(ttl, link.ExpiresAt.Sub(s.now()))
		}
		if ttl >= minCacheTTL {
			if err := s.links.Set(ctx, link, ttl); err != nil {
				s.logger.Warn("Failed to cache link", zap.String("slug", slug), zap.Error(err))
			}
		}
	}
	return link, nil
}
