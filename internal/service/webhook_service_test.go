package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/SergeiKhy/linkdash/internal/models"
	"github.com/SergeiKhy/linkdash/internal/service"
	"github.com/SergeiKhy/linkdash/internal/service/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func strp(s string) *string { return &s }

func setupWebhookService(t *testing.T) (*service.WebhookService, *mocks.MockSystemRepository, *mocks.MockTokenCache, *models.WebhookToken) {
	system := mocks.NewMockSystemRepository()
	cache := mocks.NewMockTokenCache()
	wt := &models.WebhookToken{
		ID:        "tok-1",
		UserID:    "user-a",
		Token:     "whk_test",
		RateLimit: 5,
		CreatedAt: time.Now(),
	}
	system.AddToken(wt)
	return service.NewWebhookService(system, cache, zaptest.NewLogger(t)), system, cache, wt
}

func TestWebhookService_CreateLink_Generated(t *testing.T) {
	svc, system, _, wt := setupWebhookService(t)

	res, err := svc.CreateLink(context.Background(), wt, &models.WebhookLinkInput{URL: "https://example.com/a"})
	require.NoError(t, err)
	assert.True(t, res.Created)
	assert.Len(t, res.Link.Slug, 7)
	assert.False(t, res.Link.IsCustom)
	assert.Equal(t, "user-a", res.Link.UserID)
	assert.Equal(t, 1, system.Calls().CreateLink)
}

// Повтор с тем же url не генерирует slug и не ищет папку
func TestWebhookService_CreateLink_Idempotent(t *testing.T) {
	svc, system, _, wt := setupWebhookService(t)
	ctx := context.Background()

	first, err := svc.CreateLink(ctx, wt, &models.WebhookLinkInput{URL: "https://example.com/x"})
	require.NoError(t, err)
	require.True(t, first.Created)

	system.ResetCalls()

	second, err := svc.CreateLink(ctx, wt, &models.WebhookLinkInput{
		URL:        "https://example.com/x",
		CustomSlug: strp("ignored-slug"),
		Folder:     strp("Work"),
	})
	require.NoError(t, err)
	assert.False(t, second.Created)
	assert.Equal(t, first.Link.Slug, second.Link.Slug)

	calls := system.Calls()
	assert.Equal(t, 1, calls.FindLinkByURL)
	assert.Zero(t, calls.SlugExists)
	assert.Zero(t, calls.FindFolderByName)
	assert.Zero(t, calls.CreateLink)
	assert.Equal(t, 1, system.LinkCount())
}

// Параллельные запросы с одним url при медленной БД создают одну ссылку
func TestWebhookService_CreateLink_ConcurrentSameURL(t *testing.T) {
	svc, system, _, wt := setupWebhookService(t)
	system.LookupDelay = 20 * time.Millisecond

	const n = 8
	results := make([]*models.WebhookResult, n)
	errs := make([]error, n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = svc.CreateLink(context.Background(), wt, &models.WebhookLinkInput{URL: "https://example.com/x"})
		}(i)
	}
	wg.Wait()

	created := 0
	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		if results[i].Created {
			created++
		}
		assert.Equal(t, results[0].Link.ID, results[i].Link.ID)
	}
	assert.Equal(t, 1, created)
	assert.Equal(t, 1, system.LinkCount())
	assert.Equal(t, 1, system.Calls().CreateLink)
}

// Ссылку вставил другой инстанс между проверкой и INSERT: отдаём её как существующую
func TestWebhookService_CreateLink_InsertedElsewhere(t *testing.T) {
	svc, system, _, wt := setupWebhookService(t)
	system.LookupDelay = 50 * time.Millisecond

	go func() {
		time.Sleep(10 * time.Millisecond)
		system.AddLink(&models.Link{UserID: "user-a", Slug: "other1", OriginalURL: "https://example.com/x"})
	}()

	res, err := svc.CreateLink(context.Background(), wt, &models.WebhookLinkInput{URL: "https://example.com/x"})
	require.NoError(t, err)
	assert.False(t, res.Created)
	assert.Equal(t, "other1", res.Link.Slug)
	assert.Equal(t, 1, system.LinkCount())
}

func TestWebhookService_CreateLink_OtherTenantURLIsNotShared(t *testing.T) {
	svc, system, _, wt := setupWebhookService(t)
	system.AddLink(&models.Link{UserID: "user-b", Slug: "bslug", OriginalURL: "https://example.com/x"})

	res, err := svc.CreateLink(context.Background(), wt, &models.WebhookLinkInput{URL: "https://example.com/x"})
	require.NoError(t, err)
	assert.True(t, res.Created)
	assert.NotEqual(t, "bslug", res.Link.Slug)
}

func TestWebhookService_CreateLink_Folder(t *testing.T) {
	svc, system, _, wt := setupWebhookService(t)
	system.AddFolder(models.Folder{ID: "f-1", UserID: "user-a", Name: "Work"})
	system.AddFolder(models.Folder{ID: "f-2", UserID: "user-b", Name: "Private"})
	ctx := context.Background()

	res, err := svc.CreateLink(ctx, wt, &models.WebhookLinkInput{URL: "https://example.com/1", Folder: strp(" work ")})
	require.NoError(t, err)
	require.NotNil(t, res.Link.FolderID)
	assert.Equal(t, "f-1", *res.Link.FolderID)

	// Неизвестная или чужая папка: без папки, не ошибка
	res, err = svc.CreateLink(ctx, wt, &models.WebhookLinkInput{URL: "https://example.com/2", Folder: strp("Private")})
	require.NoError(t, err)
	assert.Nil(t, res.Link.FolderID)
}

func TestWebhookService_CreateLink_CustomSlug(t *testing.T) {
	svc, system, _, wt := setupWebhookService(t)
	ctx := context.Background()

	res, err := svc.CreateLink(ctx, wt, &models.WebhookLinkInput{URL: "https://example.com/1", CustomSlug: strp("My Promo")})
	require.NoError(t, err)
	assert.Equal(t, "my-promo", res.Link.Slug)
	assert.True(t, res.Link.IsCustom)

	_, err = svc.CreateLink(ctx, wt, &models.WebhookLinkInput{URL: "https://example.com/2", CustomSlug: strp("my-promo")})
	assert.ErrorIs(t, err, service.ErrSlugTaken)

	_, err = svc.CreateLink(ctx, wt, &models.WebhookLinkInput{URL: "https://example.com/3", CustomSlug: strp("!!")})
	assert.ErrorIs(t, err, service.ErrValidation)

	assert.Equal(t, 1, system.LinkCount())
}

func TestWebhookService_CreateLink_InvalidURL(t *testing.T) {
	svc, system, _, wt := setupWebhookService(t)

	for _, u := range []string{"", "not-a-url", "/relative/path", "ftp://example.com/file"} {
		_, err := svc.CreateLink(context.Background(), wt, &models.WebhookLinkInput{URL: u})
		assert.ErrorIs(t, err, service.ErrValidation, "url %q", u)
	}

	// Валидация до любого обращения к хранилищу
	assert.Zero(t, system.Calls().FindLinkByURL)
}

func TestWebhookService_ResolveToken(t *testing.T) {
	svc, system, cache, _ := setupWebhookService(t)
	ctx := context.Background()

	wt, err := svc.ResolveToken(ctx, "whk_test")
	require.NoError(t, err)
	assert.Equal(t, "user-a", wt.UserID)
	assert.True(t, cache.Has("whk_test"))

	// Повторный вызов обслуживается кэшем
	_, err = svc.ResolveToken(ctx, "whk_test")
	require.NoError(t, err)
	assert.Equal(t, 1, system.Calls().GetWebhookToken)

	_, err = svc.ResolveToken(ctx, "whk_unknown")
	assert.ErrorIs(t, err, service.ErrInvalidToken)

	_, err = svc.ResolveToken(ctx, "")
	assert.ErrorIs(t, err, service.ErrInvalidToken)
}

func TestWebhookService_ResolveToken_StoreError(t *testing.T) {
	system := mocks.NewMockSystemRepository()
	system.Err = errors.New("database unavailable")
	svc := service.NewWebhookService(system, nil, zaptest.NewLogger(t))

	_, err := svc.ResolveToken(context.Background(), "whk_test")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, service.ErrInvalidToken)
}

func TestWebhookService_Usage(t *testing.T) {
	svc, system, _, wt := setupWebhookService(t)
	system.AddLink(&models.Link{UserID: "user-a", Slug: "one", OriginalURL: "https://example.com/1"})
	system.AddLink(&models.Link{UserID: "user-b", Slug: "two", OriginalURL: "https://example.com/2"})

	resets := time.Now().Add(time.Minute)
	usage, err := svc.Usage(context.Background(), wt, 3, resets)
	require.NoError(t, err)
	assert.Equal(t, int64(1), usage.TotalLinks)
	assert.Equal(t, 3, usage.Remaining)
	assert.Equal(t, 5, usage.RateLimit)
	assert.Equal(t, resets, usage.WindowResetsAt)
}
