package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"net/url"
	"regexp"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/SergeiKhy/linkdash/internal/models"
)

// Ошибки сервиса
var (
	ErrValidation   = errors.New("validation failed")
	ErrNotFound     = errors.New("not found")
	ErrSlugTaken    = errors.New("slug already taken")
	ErrInvalidToken = errors.New("invalid webhook token")
)

// Константы генерации и проверки
const (
	slugLength        = 7
	slugMinLength     = 3
	slugMaxLength     = 50
	slugAttempts      = 10
	folderNameMax     = 50
	defaultFolderIcon = "folder"
	defaultTagColor   = "gray"
	charset           = "abcdefghijklmnopqrstuvwxyz0123456789"
)

var (
	slugSeparators = regexp.MustCompile(`[\s.]+`)
	slugAllowed    = regexp.MustCompile(`[^a-z0-9_-]`)
)

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// validateURL принимает только абсолютные http(s) ссылки
func validateURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", invalid("url is required")
	}
	u, err := url.Parse(raw)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return "", invalid("url must be an absolute URL")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", invalid("url must use http or https")
	}
	return raw, nil
}

// SanitizeSlug приводит slug к нижнему регистру и [a-z0-9_-]
func SanitizeSlug(raw string) (string, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = slugSeparators.ReplaceAllString(s, "-")
	s = slugAllowed.ReplaceAllString(s, "")
	s = strings.Trim(s, "-")

	if len(s) < slugMinLength || len(s) > slugMaxLength {
		return "", invalid("slug must be %d-%d characters of a-z, 0-9, '-' or '_'", slugMinLength, slugMaxLength)
	}
	return s, nil
}

// generateSlug генерирует случайный slug длиной 7 символов
func generateSlug() (string, error) {
	result := make([]byte, slugLength)
	for i := 0; i < slugLength; i++ {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		result[i] = charset[num.Int64()]
	}
	return string(result), nil
}

type slugChecker interface {
	SlugExists(ctx context.Context, slug string) (bool, error)
}

// resolveSlug проверяет кастомный slug или подбирает свободный случайный
func resolveSlug(ctx context.Context, repo slugChecker, custom *string) (string, bool, error) {
	if custom != nil && strings.TrimSpace(*custom) != "" {
		slug, err := SanitizeSlug(*custom)
		if err != nil {
			return "", false, err
		}
		taken, err := repo.SlugExists(ctx, slug)
		if err != nil {
			return "", false, err
		}
		if taken {
			return "", false, ErrSlugTaken
		}
		return slug, true, nil
	}

	for i := 0; i < slugAttempts; i++ {
		slug, err := generateSlug()
		if err != nil {
			return "", false, fmt.Errorf("failed to generate slug: %w", err)
		}
		taken, err := repo.SlugExists(ctx, slug)
		if err != nil {
			return "", false, err
		}
		if !taken {
			return slug, false, nil
		}
	}
	return "", false, fmt.Errorf("failed to generate slug: %d attempts exhausted", slugAttempts)
}

func validateTagName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > models.MaxTagNameLength {
		return "", invalid("tag name must be 1-%d characters", models.MaxTagNameLength)
	}
	return name, nil
}

func validateTagColor(color string) (string, error) {
	if color == "" {
		return defaultTagColor, nil
	}
	if !slices.Contains(models.TagColors, color) {
		return "", invalid("unknown tag color %q", color)
	}
	return color, nil
}

func validateFolderName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > folderNameMax {
		return "", invalid("folder name must be 1-%d characters", folderNameMax)
	}
	return name, nil
}

func validateFolderIcon(icon string) (string, error) {
	if icon == "" {
		return defaultFolderIcon, nil
	}
	if !slices.Contains(models.FolderIcons, icon) {
		return "", invalid("unknown folder icon %q", icon)
	}
	return icon, nil
}
