package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/SergeiKhy/linkdash/internal/handler"
	"github.com/SergeiKhy/linkdash/internal/middleware"
	"github.com/SergeiKhy/linkdash/internal/models"
	"github.com/SergeiKhy/linkdash/internal/repository"
	"github.com/SergeiKhy/linkdash/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const (
	testBaseURL = "https://sho.rt"
	testSecret  = "test-secret"
)

type testEnv struct {
	router     *gin.Engine
	exec       *repository.SQLExecutor
	dashboards *service.Dashboards
	auth       *middleware.SessionAuth
}

func setupRouter(t *testing.T, withAuth bool, opts ...func(*handler.RouterDeps)) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := zaptest.NewLogger(t)

	exec, err := repository.NewSQLExecutor(":memory:", 0)
	require.NoError(t, err)
	t.Cleanup(func() { exec.Close() })
	require.NoError(t, repository.Migrate(context.Background(), exec))

	system := repository.NewSystemRepository(exec)
	dashboards := service.NewDashboards(exec, system, service.Caches{}, logger)

	clicks := service.NewClickProcessor(system, logger, service.ClickProcessorConfig{Workers: 1, Buffer: 16})
	clicks.Start()
	t.Cleanup(clicks.Stop)

	limiter := middleware.NewWebhookLimiter(middleware.WebhookLimiterConfig{DefaultLimit: 5, Window: time.Minute})
	t.Cleanup(limiter.Stop)

	env := &testEnv{exec: exec, dashboards: dashboards}
	deps := handler.RouterDeps{
		Exec:           exec,
		Dashboards:     dashboards,
		Webhooks:       service.NewWebhookService(system, nil, logger),
		Redirects:      service.NewRedirectService(system, nil, logger),
		ClickProcessor: clicks,
		WebhookLimiter: limiter,
		BaseURL:        testBaseURL,
		Logger:         logger,
	}
	if withAuth {
		env.auth = middleware.NewSessionAuth(testSecret)
		deps.SessionAuth = env.auth
	}
	for _, opt := range opts {
		opt(&deps)
	}
	env.router = handler.NewRouter(deps)
	return env
}

func (e *testEnv) do(t *testing.T, method, path string, body any, session string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if session != "" {
		req.Header.Set("Authorization", "Bearer "+session)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) session(t *testing.T, tenantID string) string {
	t.Helper()
	token, err := e.auth.Issue(tenantID, time.Hour)
	require.NoError(t, err)
	return token
}

func (e *testEnv) webhookToken(t *testing.T, tenantID string) string {
	t.Helper()
	svc, err := e.dashboards.For(tenantID)
	require.NoError(t, err)
	wt, err := svc.RegenerateWebhookToken(context.Background(), 0)
	require.NoError(t, err)
	return wt.Token
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestHealthCheck(t *testing.T) {
	env := setupRouter(t, false)

	w := env.do(t, http.MethodGet, "/api/v1/health", nil, "")
	require.Equal(t, http.StatusOK, w.Code)

	body := decode[map[string]any](t, w)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "linkdash", body["service"])
	assert.Equal(t, true, body["db_configured"])
	assert.Equal(t, "disabled", body["redis"])
	assert.Contains(t, body, "click_processor")
}

func TestWebhook_UnknownToken(t *testing.T) {
	env := setupRouter(t, false)

	w := env.do(t, http.MethodPost, "/api/webhook/nope", map[string]string{"url": "https://example.com"}, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "invalid_token", decode[handler.ErrorResponse](t, w).Error)

	w = env.do(t, http.MethodHead, "/api/webhook/nope", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Empty(t, w.Body.String())
}

// IP-лимит не действует на вебхук: неизвестный токен всегда 404, а не 429
func TestWebhook_NotBehindIPLimiter(t *testing.T) {
	ipLimiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		RequestsPerSecond: 0.001,
		BurstSize:         1,
		CleanupInterval:   time.Minute,
	})
	t.Cleanup(ipLimiter.Stop)

	env := setupRouter(t, false, func(deps *handler.RouterDeps) {
		deps.RateLimiter = ipLimiter
	})

	w := env.do(t, http.MethodGet, "/missing", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = env.do(t, http.MethodGet, "/missing", nil, "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	for i := 0; i < 3; i++ {
		w = env.do(t, http.MethodPost, "/api/webhook/whk_unknown", map[string]string{"url": "https://example.com"}, "")
		assert.Equal(t, http.StatusNotFound, w.Code)
	}

	token := env.webhookToken(t, "user-a")
	w = env.do(t, http.MethodPost, "/api/webhook/"+token, map[string]string{"url": "https://example.com"}, "")
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestWebhook_CreateAndIdempotent(t *testing.T) {
	env := setupRouter(t, false)
	token := env.webhookToken(t, "user-a")
	path := "/api/webhook/" + token

	w := env.do(t, http.MethodPost, path, map[string]string{"url": "https://example.com/article"}, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	first := decode[handler.WebhookResponse](t, w)
	assert.True(t, first.Success)
	assert.True(t, first.Created)
	assert.Len(t, first.Link.Slug, 7)
	assert.Equal(t, testBaseURL+"/"+first.Link.Slug, first.Link.ShortURL)
	assert.Equal(t, "5", w.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "4", w.Header().Get("X-RateLimit-Remaining"))

	// Повтор с тем же URL возвращает существующую ссылку, даже с другим slug
	w = env.do(t, http.MethodPost, path, map[string]string{"url": "https://example.com/article", "customSlug": "other"}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	second := decode[handler.WebhookResponse](t, w)
	assert.False(t, second.Created)
	assert.Equal(t, first.Link.ID, second.Link.ID)
	assert.Equal(t, first.Link.Slug, second.Link.Slug)

	count, err := repository.NewSystemRepository(env.exec).CountLinks(context.Background(), "user-a")
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

func TestWebhook_RateLimited(t *testing.T) {
	env := setupRouter(t, false)
	token := env.webhookToken(t, "user-a")
	path := "/api/webhook/" + token

	for i := 0; i < 5; i++ {
		w := env.do(t, http.MethodPost, path, map[string]string{"url": fmt.Sprintf("https://example.com/%d", i)}, "")
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	}

	w := env.do(t, http.MethodPost, path, map[string]string{"url": "https://example.com/6"}, "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))

	// Лимит считается по токену, а не по владельцу
	other := env.webhookToken(t, "user-b")
	w = env.do(t, http.MethodPost, "/api/webhook/"+other, map[string]string{"url": "https://example.com/6"}, "")
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestWebhook_Validation(t *testing.T) {
	env := setupRouter(t, false)

	tests := []struct {
		name     string
		body     any
		wantCode int
		wantErr  string
	}{
		{"not json", "{url:", http.StatusBadRequest, "invalid_payload"},
		{"missing url", map[string]string{}, http.StatusBadRequest, "validation_error"},
		{"relative url", map[string]string{"url": "/just/a/path"}, http.StatusBadRequest, "validation_error"},
		{"ftp scheme", map[string]string{"url": "ftp://example.com/file"}, http.StatusBadRequest, "validation_error"},
		{"short slug", map[string]string{"url": "https://example.com/a", "customSlug": "ab"}, http.StatusBadRequest, "validation_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// свежий токен на каждый случай, чтобы не упереться в лимит
			path := "/api/webhook/" + env.webhookToken(t, "user-a")

			w := env.do(t, http.MethodPost, path, tt.body, "")
			assert.Equal(t, tt.wantCode, w.Code, w.Body.String())
			assert.Equal(t, tt.wantErr, decode[handler.ErrorResponse](t, w).Error)
		})
	}
}

func TestWebhook_SlugTakenAndFolder(t *testing.T) {
	env := setupRouter(t, false)

	svc, err := env.dashboards.For("user-a")
	require.NoError(t, err)
	folder, err := svc.CreateFolder(context.Background(), "Reading", "book")
	require.NoError(t, err)

	path := "/api/webhook/" + env.webhookToken(t, "user-a")

	w := env.do(t, http.MethodPost, path, map[string]string{
		"url":        "https://example.com/a",
		"customSlug": "My Slug",
		"folder":     "reading",
	}, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	res := decode[handler.WebhookResponse](t, w)
	assert.Equal(t, "my-slug", res.Link.Slug)
	require.NotNil(t, res.Link.FolderID)
	assert.Equal(t, folder.ID, *res.Link.FolderID)

	// Slug занят другим владельцем
	other := "/api/webhook/" + env.webhookToken(t, "user-b")
	w = env.do(t, http.MethodPost, other, map[string]string{"url": "https://example.com/b", "customSlug": "my-slug"}, "")
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "slug_taken", decode[handler.ErrorResponse](t, w).Error)
}

func TestWebhook_InfoAndHead(t *testing.T) {
	env := setupRouter(t, false)
	token := env.webhookToken(t, "user-a")
	path := "/api/webhook/" + token

	w := env.do(t, http.MethodPost, path, map[string]string{"url": "https://example.com"}, "")
	require.Equal(t, http.StatusCreated, w.Code)

	w = env.do(t, http.MethodGet, path, nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode[struct {
		Status string              `json:"status"`
		Usage  models.WebhookUsage `json:"usage"`
		Docs   map[string]any      `json:"docs"`
	}](t, w)
	assert.Equal(t, "active", body.Status)
	assert.Equal(t, 5, body.Usage.RateLimit)
	assert.Equal(t, 4, body.Usage.Remaining)
	assert.EqualValues(t, 1, body.Usage.TotalLinks)
	assert.Equal(t, http.MethodPost, body.Docs["method"])

	// GET не расходует лимит
	w = env.do(t, http.MethodGet, path, nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 4, decode[struct {
		Usage models.WebhookUsage `json:"usage"`
	}](t, w).Usage.Remaining)

	w = env.do(t, http.MethodHead, path, nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Body.String())
}

func TestRedirect(t *testing.T) {
	env := setupRouter(t, true)
	session := env.session(t, "user-a")

	w := env.do(t, http.MethodPost, "/api/v1/links", map[string]any{
		"url":         "https://example.com/target",
		"custom_slug": "go-here",
	}, session)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	link := decode[handler.LinkResponse](t, w)
	assert.Equal(t, testBaseURL+"/go-here", link.ShortURL)

	req := httptest.NewRequest(http.MethodGet, "/go-here", nil)
	req.Header.Set("User-Agent", "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1")
	req.Header.Set("CF-IPCountry", "DE")
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	assert.Equal(t, "https://example.com/target", rec.Header().Get("Location"))

	path := fmt.Sprintf("/api/v1/links/%d/analytics", link.ID)
	assert.Eventually(t, func() bool {
		w := env.do(t, http.MethodGet, path, nil, session)
		if w.Code != http.StatusOK {
			return false
		}
		return decode[models.LinkAnalytics](t, w).Stats.TotalClicks == 1
	}, 2*time.Second, 20*time.Millisecond)

	w = env.do(t, http.MethodGet, path, nil, session)
	analytics := decode[models.LinkAnalytics](t, w)
	require.Len(t, analytics.Clicks, 1)
	assert.Equal(t, "mobile", analytics.Clicks[0].Device)
	assert.Equal(t, "DE", analytics.Clicks[0].Country)

	rec = httptest.NewRecorder()
	env.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDashboard_DisabledWithoutSecret(t *testing.T) {
	env := setupRouter(t, false)

	w := env.do(t, http.MethodGet, "/api/v1/links", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDashboard_RequiresSession(t *testing.T) {
	env := setupRouter(t, true)

	w := env.do(t, http.MethodGet, "/api/v1/links", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.do(t, http.MethodGet, "/api/v1/links", nil, "garbage")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestDashboard_TenantIsolation(t *testing.T) {
	env := setupRouter(t, true)
	alice := env.session(t, "user-a")
	bob := env.session(t, "user-b")

	w := env.do(t, http.MethodPost, "/api/v1/links", map[string]any{"url": "https://example.com"}, alice)
	require.Equal(t, http.StatusCreated, w.Code)
	link := decode[handler.LinkResponse](t, w)
	path := fmt.Sprintf("/api/v1/links/%d", link.ID)

	w = env.do(t, http.MethodGet, path, nil, bob)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, http.MethodDelete, path, nil, bob)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, http.MethodGet, "/api/v1/links", nil, bob)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[[]handler.LinkResponse](t, w))

	w = env.do(t, http.MethodGet, path, nil, alice)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestDashboard_ErrorMapping(t *testing.T) {
	env := setupRouter(t, true)
	session := env.session(t, "user-a")

	w := env.do(t, http.MethodPost, "/api/v1/links", map[string]any{"url": "https://example.com", "custom_slug": "taken"}, session)
	require.Equal(t, http.StatusCreated, w.Code)

	tests := []struct {
		name     string
		method   string
		path     string
		body     any
		wantCode int
	}{
		{"slug taken", http.MethodPost, "/api/v1/links", map[string]any{"url": "https://example.org", "custom_slug": "taken"}, http.StatusConflict},
		{"bad url", http.MethodPost, "/api/v1/links", map[string]any{"url": "example"}, http.StatusBadRequest},
		{"missing url", http.MethodPost, "/api/v1/links", map[string]any{}, http.StatusBadRequest},
		{"bad id", http.MethodGet, "/api/v1/links/abc", nil, http.StatusBadRequest},
		{"unknown link", http.MethodGet, "/api/v1/links/999", nil, http.StatusNotFound},
		{"bad tag color", http.MethodPost, "/api/v1/tags", map[string]any{"name": "x", "color": "neon"}, http.StatusBadRequest},
		{"unknown folder", http.MethodDelete, "/api/v1/folders/nope", nil, http.StatusNotFound},
		{"no token yet", http.MethodGet, "/api/v1/webhook-token", nil, http.StatusNotFound},
		{"rate limit out of range", http.MethodPost, "/api/v1/webhook-token", map[string]any{"rate_limit": 1000}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, tt.method, tt.path, tt.body, session)
			assert.Equal(t, tt.wantCode, w.Code, w.Body.String())
		})
	}
}

func TestDashboard_TagsFoldersAndToken(t *testing.T) {
	env := setupRouter(t, true)
	session := env.session(t, "user-a")

	w := env.do(t, http.MethodPost, "/api/v1/folders", map[string]any{"name": "Work"}, session)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	folder := decode[models.Folder](t, w)
	assert.Equal(t, "folder", folder.Icon)

	w = env.do(t, http.MethodPost, "/api/v1/tags", map[string]any{"name": "go"}, session)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	tag := decode[models.Tag](t, w)
	assert.Equal(t, "gray", tag.Color)

	w = env.do(t, http.MethodPost, "/api/v1/links", map[string]any{"url": "https://go.dev", "folder_id": folder.ID}, session)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	link := decode[handler.LinkResponse](t, w)

	tagPath := fmt.Sprintf("/api/v1/links/%d/tags/%s", link.ID, tag.ID)
	w = env.do(t, http.MethodPut, tagPath, nil, session)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	// Повторное добавление не ошибка
	w = env.do(t, http.MethodPut, tagPath, nil, session)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.do(t, http.MethodGet, fmt.Sprintf("/api/v1/links/%d/tags", link.ID), nil, session)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]models.Tag](t, w), 1)

	w = env.do(t, http.MethodGet, "/api/v1/link-tags", nil, session)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]models.LinkTag](t, w), 1)

	w = env.do(t, http.MethodPost, "/api/v1/webhook-token", nil, session)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	token := decode[map[string]any](t, w)
	assert.EqualValues(t, 5, token["rate_limit"])
	assert.Equal(t, testBaseURL+"/api/webhook/"+token["token"].(string), token["webhook_url"])

	w = env.do(t, http.MethodHead, "/api/webhook/"+token["token"].(string), nil, "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodDelete, "/api/v1/webhook-token", nil, session)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodHead, "/api/webhook/"+token["token"].(string), nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, http.MethodGet, "/api/v1/overview", nil, session)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, decode[models.OverviewStats](t, w).TotalLinks)
}
