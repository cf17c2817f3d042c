package repository

import (
	"context"
	"testing"

	"github.com/SergeiKhy/linkdash/internal/config"
	"github.com/SergeiKhy/linkdash/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSystemRepository_FindLinkByURL(t *testing.T) {
	ctx := context.Background()
	exec := newTestExecutor(t)
	system := NewSystemRepository(exec)
	alice := newTenant(t, exec, "user-a")
	bob := newTenant(t, exec, "user-b")

	first := mustLink(t, alice, "first", "https://example.com/x", nil)
	mustLink(t, alice, "second", "https://example.com/x", nil)
	mustLink(t, bob, "bobs", "https://example.com/y", nil)

	found, err := system.FindLinkByURL(ctx, "user-a", "https://example.com/x")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, first.ID, found.ID)

	// Ссылки другого владельца не находятся
	found, err = system.FindLinkByURL(ctx, "user-a", "https://example.com/y")
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestSystemRepository_SlugExists(t *testing.T) {
	ctx := context.Background()
	exec := newTestExecutor(t)
	system := NewSystemRepository(exec)
	mustLink(t, newTenant(t, exec, "user-a"), "taken", "https://example.com", nil)

	exists, err := system.SlugExists(ctx, "taken")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = system.SlugExists(ctx, "free")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestSystemRepository_FindFolderByName(t *testing.T) {
	ctx := context.Background()
	exec := newTestExecutor(t)
	system := NewSystemRepository(exec)
	alice := newTenant(t, exec, "user-a")

	work, err := alice.CreateFolder(ctx, "Work", "folder")
	require.NoError(t, err)

	tests := []struct {
		name   string
		tenant string
		query  string
		want   bool
	}{
		{"exact", "user-a", "Work", true},
		{"case insensitive", "user-a", "wORK", true},
		{"surrounding spaces", "user-a", "  work ", true},
		{"unknown", "user-a", "Home", false},
		{"empty", "user-a", "   ", false},
		{"other tenant", "user-b", "Work", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			folder, err := system.FindFolderByName(ctx, tt.tenant, tt.query)
			require.NoError(t, err)
			if !tt.want {
				assert.Nil(t, folder)
				return
			}
			require.NotNil(t, folder)
			assert.Equal(t, work.ID, folder.ID)
		})
	}
}

func TestSystemRepository_CreateLinkAndCount(t *testing.T) {
	ctx := context.Background()
	exec := newTestExecutor(t)
	system := NewSystemRepository(exec)

	_, _, err := system.CreateLink(ctx, "", &models.CreateLinkInput{Slug: "x1", OriginalURL: "https://example.com"})
	assert.ErrorIs(t, err, ErrEmptyTenant)

	link, created, err := system.CreateLink(ctx, "user-a", &models.CreateLinkInput{Slug: "x1", OriginalURL: "https://example.com"})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "user-a", link.UserID)

	_, _, err = system.CreateLink(ctx, "user-b", &models.CreateLinkInput{Slug: "x1", OriginalURL: "https://example.org"})
	require.Error(t, err)
	assert.True(t, IsUniqueViolation(err))

	bySlug, err := system.GetLinkBySlug(ctx, "x1")
	require.NoError(t, err)
	require.NotNil(t, bySlug)
	assert.Equal(t, link.ID, bySlug.ID)

	count, err := system.CountLinks(ctx, "user-a")
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	count, err = system.CountLinks(ctx, "user-b")
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestSystemRepository_GetWebhookTokenEmpty(t *testing.T) {
	system := NewSystemRepository(NewQueryClient(configForTests()))

	// Пустой токен не доходит до хранилища
	wt, err := system.GetWebhookToken(context.Background(), "")
	require.NoError(t, err)
	assert.Nil(t, wt)
}

func TestSystemRepository_NotConfigured(t *testing.T) {
	system := NewSystemRepository(NewQueryClient(configForTests()))

	_, err := system.SlugExists(context.Background(), "abc")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func configForTests() config.DBConfig {
	return config.DBConfig{APIURL: "http://127.0.0.1:1"}
}

// Вторая вставка того же url владельцем не создаёт строку, а возвращает первую
func TestSystemRepository_CreateLinkSameURL(t *testing.T) {
	ctx := context.Background()
	exec := newTestExecutor(t)
	system := NewSystemRepository(exec)

	first, created, err := system.CreateLink(ctx, "user-a", &models.CreateLinkInput{Slug: "first1", OriginalURL: "https://example.com/x"})
	require.NoError(t, err)
	require.True(t, created)

	again, created, err := system.CreateLink(ctx, "user-a", &models.CreateLinkInput{Slug: "second2", OriginalURL: "https://example.com/x"})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, "first1", again.Slug)

	exists, err := system.SlugExists(ctx, "second2")
	require.NoError(t, err)
	assert.False(t, exists)

	// У другого владельца тот же url создаётся отдельно
	other, created, err := system.CreateLink(ctx, "user-b", &models.CreateLinkInput{Slug: "third3", OriginalURL: "https://example.com/x"})
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEqual(t, first.ID, other.ID)

	count, err := system.CountLinks(ctx, "user-a")
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}
