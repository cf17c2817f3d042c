package repository

import (
	"context"
	"time"

	"github.com/SergeiKhy/linkdash/internal/models"
)

// TenantStore доступ к данным одного владельца.
// Чужие и несуществующие id неразличимы: nil для чтения/обновления, false для удаления.
// Ошибки возвращаются только при сбоях транспорта или удалённого хранилища.
type TenantStore interface {
	TenantID() string

	CreateLink(ctx context.Context, input *models.CreateLinkInput) (*models.Link, error)
	GetLinks(ctx context.Context) ([]models.Link, error)
	GetLinkByID(ctx context.Context, id int64) (*models.Link, error)
	UpdateLink(ctx context.Context, id int64, patch models.LinkPatch) (*models.Link, error)
	DeleteLink(ctx context.Context, id int64) (bool, error)

	CreateFolder(ctx context.Context, name, icon string) (*models.Folder, error)
	GetFolders(ctx context.Context) ([]models.Folder, error)
	GetFolderByID(ctx context.Context, id string) (*models.Folder, error)
	UpdateFolder(ctx context.Context, id string, patch models.FolderPatch) (*models.Folder, error)
	DeleteFolder(ctx context.Context, id string) (bool, error)

	CreateTag(ctx context.Context, name, color string) (*models.Tag, error)
	GetTags(ctx context.Context) ([]models.Tag, error)
	GetTagByID(ctx context.Context, id string) (*models.Tag, error)
	UpdateTag(ctx context.Context, id string, patch models.TagPatch) (*models.Tag, error)
	DeleteTag(ctx context.Context, id string) (bool, error)

	GetLinkTags(ctx context.Context) ([]models.LinkTag, error)
	GetTagsForLink(ctx context.Context, linkID int64) ([]models.Tag, error)
	AddTagToLink(ctx context.Context, linkID int64, tagID string) (bool, error)
	RemoveTagFromLink(ctx context.Context, linkID int64, tagID string) (bool, error)

	CreateUpload(ctx context.Context, input *models.CreateUploadInput) (*models.Upload, error)
	GetUploads(ctx context.Context) ([]models.Upload, error)
	GetUploadByID(ctx context.Context, id int64) (*models.Upload, error)
	DeleteUpload(ctx context.Context, id int64) (bool, error)

	GetAnalyticsByLinkID(ctx context.Context, linkID int64) ([]models.Click, error)
	GetAnalyticsStats(ctx context.Context, linkID int64) (*models.AnalyticsStats, error)
	GetOverviewStats(ctx context.Context, topN int) (*models.OverviewStats, error)

	GetWebhookToken(ctx context.Context) (*models.WebhookToken, error)
	RegenerateWebhookToken(ctx context.Context, rateLimit int) (*models.WebhookToken, error)
	DeleteWebhookToken(ctx context.Context) (bool, error)
}

// TenantRepository привязан к одному tenant id на всё время жизни (обычно на один запрос)
type TenantRepository struct {
	exec     Executor
	tenantID string
	now      func() time.Time
}

var _ TenantStore = (*TenantRepository)(nil)

func NewTenantRepository(exec Executor, tenantID string) (*TenantRepository, error) {
	if tenantID == "" {
		return nil, ErrEmptyTenant
	}
	return &TenantRepository{
		exec:     exec,
		tenantID: tenantID,
		now:      time.Now,
	}, nil
}

func (r *TenantRepository) TenantID() string {
	return r.tenantID
}
