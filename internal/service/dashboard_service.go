package service

import (
	"context"
	"errors"
	"strings"

	"github.com/SergeiKhy/linkdash/internal/models"
	"github.com/SergeiKhy/linkdash/internal/repository"
	"go.uber.org/zap"
)

const maxWebhookRateLimit = 100

// Caches необязательные кэши (Redis); nil-поля отключают соответствующий кэш
type Caches struct {
	Tokens repository.TokenCache
	Links  repository.LinkCache
}

// DashboardService операции кабинета от имени одного владельца.
// Ввод проверяется до любого запроса к хранилищу.
type DashboardService struct {
	store  repository.TenantStore
	system repository.SystemRepository
	caches Caches
	logger *zap.Logger
}

func NewDashboardService(store repository.TenantStore, system repository.SystemRepository, caches Caches, logger *zap.Logger) *DashboardService {
	return &DashboardService{
		store:  store,
		system: system,
		caches: caches,
		logger: logger.With(zap.String("tenant_id", store.TenantID())),
	}
}

// Dashboards строит DashboardService на каждый запрос
type Dashboards struct {
	exec   repository.Executor
	system repository.SystemRepository
	caches Caches
	logger *zap.Logger
}

func NewDashboards(exec repository.Executor, system repository.SystemRepository, caches Caches, logger *zap.Logger) *Dashboards {
	return &Dashboards{exec: exec, system: system, caches: caches, logger: logger}
}

func (d *Dashboards) For(tenantID string) (*DashboardService, error) {
	store, err := repository.NewTenantRepository(d.exec, tenantID)
	if err != nil {
		return nil, err
	}
	return NewDashboardService(store, d.system, d.caches, d.logger), nil
}

// Links

func (s *DashboardService) CreateLink(ctx context.Context, req *models.CreateLinkRequest) (*models.Link, error) {
	originalURL, err := validateURL(req.URL)
	if err != nil {
		return nil, err
	}
	slug, isCustom, err := resolveSlug(ctx, s.system, req.CustomSlug)
	if err != nil {
		return nil, err
	}

	link, err := s.store.CreateLink(ctx, &models.CreateLinkInput{
		Slug:            slug,
		OriginalURL:     originalURL,
		IsCustom:        isCustom,
		FolderID:        req.FolderID,
		MetaTitle:       req.MetaTitle,
		MetaDescription: req.MetaDescription,
		MetaFavicon:     req.MetaFavicon,
		ScreenshotURL:   req.ScreenshotURL,
		Note:            req.Note,
		ExpiresAt:       req.ExpiresAt,
	})
	if err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, ErrSlugTaken
		}
		return nil, err
	}

	s.logger.Info("Link created", zap.Int64("link_id", link.ID), zap.String("slug", link.Slug))
	return link, nil
}

func (s *DashboardService) GetLinks(ctx context.Context) ([]models.Link, error) {
	return s.store.GetLinks(ctx)
}

func (s *DashboardService) GetLink(ctx context.Context, id int64) (*models.Link, error) {
	link, err := s.store.GetLinkByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if link == nil {
		return nil, ErrNotFound
	}
	return link, nil
}

func (s *DashboardService) UpdateLink(ctx context.Context, id int64, patch models.LinkPatch) (*models.Link, error) {
	if patch.OriginalURL.Set {
		u, err := validateURL(patch.OriginalURL.Value)
		if err != nil {
			return nil, err
		}
		patch.OriginalURL.Value = u
	}

	var previous *models.Link
	if patch.Slug.Set {
		slug, err := SanitizeSlug(patch.Slug.Value)
		if err != nil {
			return nil, err
		}
		patch.Slug.Value = slug

		// Старый slug нужен для инвалидации кэша редиректа
		if previous, err = s.store.GetLinkByID(ctx, id); err != nil {
			return nil, err
		}
		if previous == nil {
			return nil, ErrNotFound
		}
	}

	link, err := s.store.UpdateLink(ctx, id, patch)
	if err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, ErrSlugTaken
		}
		return nil, err
	}
	if link == nil {
		return nil, ErrNotFound
	}

	if !patch.IsEmpty() {
		s.forgetLink(ctx, link.Slug)
		if previous != nil && previous.Slug != link.Slug {
			s.forgetLink(ctx, previous.Slug)
		}
	}
	return link, nil
}

func (s *DashboardService) DeleteLink(ctx context.Context, id int64) error {
	link, err := s.store.GetLinkByID(ctx, id)
	if err != nil {
		return err
	}
	if link == nil {
		return ErrNotFound
	}

	deleted, err := s.store.DeleteLink(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrNotFound
	}

	s.forgetLink(ctx, link.Slug)
	s.logger.Info("Link deleted", zap.Int64("link_id", id))
	return nil
}

// Folders

func (s *DashboardService) CreateFolder(ctx context.Context, name, icon string) (*models.Folder, error) {
	name, err := validateFolderName(name)
	if err != nil {
		return nil, err
	}
	if icon, err = validateFolderIcon(icon); err != nil {
		return nil, err
	}
	return s.store.CreateFolder(ctx, name, icon)
}

func (s *DashboardService) GetFolders(ctx context.Context) ([]models.Folder, error) {
	return s.store.GetFolders(ctx)
}

func (s *DashboardService) UpdateFolder(ctx context.Context, id string, patch models.FolderPatch) (*models.Folder, error) {
	if patch.Name.Set {
		name, err := validateFolderName(patch.Name.Value)
		if err != nil {
			return nil, err
		}
		patch.Name.Value = name
	}
	if patch.Icon.Set {
		if patch.Icon.Value == "" {
			return nil, invalid("folder icon must not be empty")
		}
		if _, err := validateFolderIcon(patch.Icon.Value); err != nil {
			return nil, err
		}
	}

	folder, err := s.store.UpdateFolder(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	if folder == nil {
		return nil, ErrNotFound
	}
	return folder, nil
}

// DeleteFolder удаляет папку; ссылки из неё остаются без папки
func (s *DashboardService) DeleteFolder(ctx context.Context, id string) error {
	deleted, err := s.store.DeleteFolder(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrNotFound
	}
	return nil
}

// Tags

func (s *DashboardService) CreateTag(ctx context.Context, name, color string) (*models.Tag, error) {
	name, err := validateTagName(name)
	if err != nil {
		return nil, err
	}
	if color, err = validateTagColor(color); err != nil {
		return nil, err
	}
	return s.store.CreateTag(ctx, name, color)
}

func (s *DashboardService) GetTags(ctx context.Context) ([]models.Tag, error) {
	return s.store.GetTags(ctx)
}

func (s *DashboardService) UpdateTag(ctx context.Context, id string, patch models.TagPatch) (*models.Tag, error) {
	if patch.Name.Set {
		name, err := validateTagName(patch.Name.Value)
		if err != nil {
			return nil, err
		}
		patch.Name.Value = name
	}
	if patch.Color.Set {
		if patch.Color.Value == "" {
			return nil, invalid("tag color must not be empty")
		}
		if _, err := validateTagColor(patch.Color.Value); err != nil {
			return nil, err
		}
	}

	tag, err := s.store.UpdateTag(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	if tag == nil {
		return nil, ErrNotFound
	}
	return tag, nil
}

func (s *DashboardService) DeleteTag(ctx context.Context, id string) error {
	deleted, err := s.store.DeleteTag(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrNotFound
	}
	return nil
}

func (s *DashboardService) GetLinkTags(ctx context.Context) ([]models.LinkTag, error) {
	return s.store.GetLinkTags(ctx)
}

func (s *DashboardService) GetTagsForLink(ctx context.Context, linkID int64) ([]models.Tag, error) {
	return s.store.GetTagsForLink(ctx, linkID)
}

// AddTagToLink идемпотентно; чужая ссылка или тег: ErrNotFound
func (s *DashboardService) AddTagToLink(ctx context.Context, linkID int64, tagID string) error {
	ok, err := s.store.AddTagToLink(ctx, linkID, tagID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

func (s *DashboardService) RemoveTagFromLink(ctx context.Context, linkID int64, tagID string) error {
	ok, err := s.store.RemoveTagFromLink(ctx, linkID, tagID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

// Uploads

func (s *DashboardService) CreateUpload(ctx context.Context, input *models.CreateUploadInput) (*models.Upload, error) {
	input.Key = strings.TrimSpace(input.Key)
	input.FileName = strings.TrimSpace(input.FileName)
	if input.Key == "" || input.FileName == "" {
		return nil, invalid("key and file_name are required")
	}
	if input.FileSize < 0 {
		return nil, invalid("file_size must not be negative")
	}
	publicURL, err := validateURL(input.PublicURL)
	if err != nil {
		return nil, err
	}
	input.PublicURL = publicURL

	return s.store.CreateUpload(ctx, input)
}

func (s *DashboardService) GetUploads(ctx context.Context) ([]models.Upload, error) {
	return s.store.GetUploads(ctx)
}

func (s *DashboardService) GetUpload(ctx context.Context, id int64) (*models.Upload, error) {
	upload, err := s.store.GetUploadByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if upload == nil {
		return nil, ErrNotFound
	}
	return upload, nil
}

// DeleteUpload удаляет только запись; объект в хранилище удаляет вызывающий
func (s *DashboardService) DeleteUpload(ctx context.Context, id int64) error {
	deleted, err := s.store.DeleteUpload(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrNotFound
	}
	return nil
}

// Analytics

func (s *DashboardService) GetLinkAnalytics(ctx context.Context, linkID int64) (*models.LinkAnalytics, error) {
	link, err := s.GetLink(ctx, linkID)
	if err != nil {
		return nil, err
	}

	clicks, err := s.store.GetAnalyticsByLinkID(ctx, linkID)
	if err != nil {
		return nil, err
	}
	stats, err := s.store.GetAnalyticsStats(ctx, linkID)
	if err != nil {
		return nil, err
	}

	return &models.LinkAnalytics{Link: link, Clicks: clicks, Stats: stats}, nil
}

func (s *DashboardService) GetOverview(ctx context.Context, topN int) (*models.OverviewStats, error) {
	return s.store.GetOverviewStats(ctx, topN)
}

// Webhook token

func (s *DashboardService) GetWebhookToken(ctx context.Context) (*models.WebhookToken, error) {
	token, err := s.store.GetWebhookToken(ctx)
	if err != nil {
		return nil, err
	}
	if token == nil {
		return nil, ErrNotFound
	}
	return token, nil
}

// RegenerateWebhookToken выпускает новый токен; старый сразу перестаёт работать
func (s *DashboardService) RegenerateWebhookToken(ctx context.Context, rateLimit int) (*models.WebhookToken, error) {
	if rateLimit < 0 || rateLimit > maxWebhookRateLimit {
		return nil, invalid("rate_limit must be between 1 and %d", maxWebhookRateLimit)
	}

	previous, err := s.store.GetWebhookToken(ctx)
	if err != nil {
		return nil, err
	}

	token, err := s.store.RegenerateWebhookToken(ctx, rateLimit)
	if err != nil {
		return nil, err
	}

	if previous != nil {
		s.forgetToken(ctx, previous.Token)
	}
	s.logger.Info("Webhook token regenerated", zap.Int("rate_limit", token.RateLimit))
	return token, nil
}

func (s *DashboardService) DeleteWebhookToken(ctx context.Context) error {
	previous, err := s.store.GetWebhookToken(ctx)
	if err != nil {
		return err
	}
	if previous == nil {
		return ErrNotFound
	}

	deleted, err := s.store.DeleteWebhookToken(ctx)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrNotFound
	}

	s.forgetToken(ctx, previous.Token)
	return nil
}

func (s *DashboardService) forgetToken(ctx context.Context, token string) {
	if s.caches.Tokens == nil {
		return
	}
	if err := s.caches.Tokens.Delete(ctx, token); err != nil {
		s.logger.Warn("Failed to invalidate webhook token cache", zap.Error(err))
	}
}

func (s *DashboardService) forgetLink(ctx context.Context, slug string) {
	if s.caches.Links == nil {
		return
	}
	if err := s.caches.Links.Delete(ctx, slug); err != nil && !errors.Is(err, repository.ErrCacheMiss) {
		s.logger.Warn("Failed to invalidate link cache", zap.String("slug", slug), zap.Error(err))
	}
}
