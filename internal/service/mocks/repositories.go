package mocks

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/SergeiKhy/linkdash/internal/models"
	"github.com/SergeiKhy/linkdash/internal/repository"
)

// Calls счётчики вызовов MockSystemRepository
type Calls struct {
	GetWebhookToken  int
	FindLinkByURL    int
	SlugExists       int
	FindFolderByName int
	CreateLink       int
	GetLinkBySlug    int
	RecordClick      int
	CountLinks       int
}

// MockSystemRepository implements repository.SystemRepository for testing
type MockSystemRepository struct {
	mu      sync.Mutex
	tokens  map[string]*models.WebhookToken
	links   map[string]*models.Link // slug -> link
	folders []models.Folder
	clicks  []models.Click
	nextID  int64
	calls   Calls

	// Err, если задан, возвращается из каждого метода
	Err error
	// LookupDelay задержка FindLinkByURL (медленная удалённая БД)
	LookupDelay time.Duration
}

var _ repository.SystemRepository = (*MockSystemRepository)(nil)

func NewMockSystemRepository() *MockSystemRepository {
	return &MockSystemRepository{
		tokens: make(map[string]*models.WebhookToken),
		links:  make(map[string]*models.Link),
		nextID: 1,
	}
}

func (m *MockSystemRepository) AddToken(token *models.WebhookToken) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[token.Token] = token
}

func (m *MockSystemRepository) AddFolder(folder models.Folder) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.folders = append(m.folders, folder)
}

func (m *MockSystemRepository) AddLink(link *models.Link) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if link.ID == 0 {
		link.ID = m.nextID
		m.nextID++
	}
	m.links[link.Slug] = link
}

func (m *MockSystemRepository) Calls() Calls {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *MockSystemRepository) ResetCalls() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = Calls{}
}

func (m *MockSystemRepository) Clicks() []models.Click {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.Click(nil), m.clicks...)
}

func (m *MockSystemRepository) LinkCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.links)
}

func (m *MockSystemRepository) GetWebhookToken(ctx context.Context, token string) (*models.WebhookToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls.GetWebhookToken++
	if m.Err != nil {
		return nil, m.Err
	}
	return m.tokens[token], nil
}

func (m *MockSystemRepository) FindLinkByURL(ctx context.Context, tenantID, url string) (*models.Link, error) {
	link, err := m.findLinkByURL(tenantID, url)
	// ответ приходит с задержкой и может устареть к моменту возврата
	if m.LookupDelay > 0 {
		time.Sleep(m.LookupDelay)
	}
	return link, err
}

func (m *MockSystemRepository) findLinkByURL(tenantID, url string) (*models.Link, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls.FindLinkByURL++
	if m.Err != nil {
		return nil, m.Err
	}
	for _, l := range m.links {
		if l.UserID == tenantID && l.OriginalURL == url {
			return l, nil
		}
	}
	return nil, nil
}

func (m *MockSystemRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls.SlugExists++
	if m.Err != nil {
		return false, m.Err
	}
	_, exists := m.links[slug]
	return exists, nil
}

func (m *MockSystemRepository) FindFolderByName(ctx context.Context, tenantID, name string) (*models.Folder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls.FindFolderByName++
	if m.Err != nil {
		return nil, m.Err
	}
	name = strings.TrimSpace(name)
	for i := range m.folders {
		f := m.folders[i]
		if f.UserID == tenantID && strings.EqualFold(f.Name, name) {
			return &f, nil
		}
	}
	return nil, nil
}

func (m *MockSystemRepository) CreateLink(ctx context.Context, tenantID string, input *models.CreateLinkInput) (*models.Link, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls.CreateLink++
	if m.Err != nil {
		return nil, false, m.Err
	}
	if tenantID == "" {
		return nil, false, repository.ErrEmptyTenant
	}
	for _, l := range m.links {
		if l.UserID == tenantID && l.OriginalURL == input.OriginalURL {
			return l, false, nil
		}
	}
	if _, exists := m.links[input.Slug]; exists {
		return nil, false, &repository.RemoteError{Status: 400, Message: "UNIQUE constraint failed: links.slug"}
	}

	link := &models.Link{
		ID:          m.nextID,
		UserID:      tenantID,
		Slug:        input.Slug,
		OriginalURL: input.OriginalURL,
		IsCustom:    input.IsCustom,
		FolderID:    input.FolderID,
		Note:        input.Note,
		ExpiresAt:   input.ExpiresAt,
		CreatedAt:   time.Now(),
	}
	m.nextID++
	m.links[link.Slug] = link
	return link, true, nil
}

func (m *MockSystemRepository) GetLinkBySlug(ctx context.Context, slug string) (*models.Link, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls.GetLinkBySlug++
	if m.Err != nil {
		return nil, m.Err
	}
	return m.links[slug], nil
}

func (m *MockSystemRepository) RecordClick(ctx context.Context, click *models.Click) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls.RecordClick++
	if m.Err != nil {
		return m.Err
	}
	for _, l := range m.links {
		if l.ID == click.LinkID {
			l.Clicks++
			m.clicks = append(m.clicks, *click)
			return nil
		}
	}
	return nil
}

func (m *MockSystemRepository) CountLinks(ctx context.Context, tenantID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls.CountLinks++
	if m.Err != nil {
		return 0, m.Err
	}
	var n int64
	for _, l := range m.links {
		if l.UserID == tenantID {
			n++
		}
	}
	return n, nil
}

// MockTokenCache implements repository.TokenCache for testing
type MockTokenCache struct {
	mu      sync.Mutex
	cache   map[string]*models.WebhookToken
	Deleted []string
}

var _ repository.TokenCache = (*MockTokenCache)(nil)

func NewMockTokenCache() *MockTokenCache {
	return &MockTokenCache{cache: make(map[string]*models.WebhookToken)}
}

func (m *MockTokenCache) Get(ctx context.Context, token string) (*models.WebhookToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	wt, exists := m.cache[token]
	if !exists {
		return nil, repository.ErrCacheMiss
	}
	return wt, nil
}

func (m *MockTokenCache) Set(ctx context.Context, token *models.WebhookToken, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cache[token.Token] = token
	return nil
}

func (m *MockTokenCache) Delete(ctx context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.cache, token)
	m.Deleted = append(m.Deleted, token)
	return nil
}

func (m *MockTokenCache) Has(token string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, exists := m.cache[token]
	return exists
}

// MockLinkCache implements repository.LinkCache for testing
type MockLinkCache struct {
	mu    sync.Mutex
	cache map[string]*models.Link
}

var _ repository.LinkCache = (*MockLinkCache)(nil)

func NewMockLinkCache() *MockLinkCache {
	return &MockLinkCache{cache: make(map[string]*models.Link)}
}

func (m *MockLinkCache) Get(ctx context.Context, slug string) (*models.Link, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	link, exists := m.cache[slug]
	if !exists {
		return nil, repository.ErrCacheMiss
	}
	return link, nil
}

func (m *MockLinkCache) Set(ctx context.Context, link *models.Link, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cache[link.Slug] = link
	return nil
}

func (m *MockLinkCache) Delete(ctx context.Context, slug string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.cache, slug)
	return nil
}

func (m *MockLinkCache) Has(slug string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, exists := m.cache[slug]
	return exists
}

// CountingExecutor оборачивает Executor и считает обращения к хранилищу
type CountingExecutor struct {
	repository.Executor

	mu      sync.Mutex
	queries int
	batches int
}

func NewCountingExecutor(inner repository.Executor) *CountingExecutor {
	return &CountingExecutor{Executor: inner}
}

func (e *CountingExecutor) Query(ctx context.Context, sql string, params ...any) (repository.Rows, error) {
	e.mu.Lock()
	e.queries++
	e.mu.Unlock()
	if e.Executor == nil {
		return nil, errors.New("no executor")
	}
	return e.Executor.Query(ctx, sql, params...)
}

func (e *CountingExecutor) Batch(ctx context.Context, statements []repository.Statement) ([]repository.Rows, error) {
	e.mu.Lock()
	e.batches++
	e.mu.Unlock()
	if e.Executor == nil {
		return nil, errors.New("no executor")
	}
	return e.Executor.Batch(ctx, statements)
}

// Total общее число обращений
func (e *CountingExecutor) Total() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.queries + e.batches
}
