package repository

import (
	"context"
	"errors"
	"strings"
)

var (
	ErrNotConfigured = errors.New("query client is not configured")
	ErrEmptyTenant   = errors.New("tenant id is required")
)

// uniqueSignature признак нарушения уникальности в ответе SQLite/D1
const uniqueSignature = "UNIQUE constraint failed"

// Категории ошибок, которые можно показывать наружу
const (
	categoryQueryFailed = "database query failed"
	categoryAuth        = "database authorization failed"
	categoryUnavailable = "database unavailable"
)

// RemoteError логическая ошибка удалённого эндпоинта.
// Message содержит только категорию, кроме нарушения уникальности.
type RemoteError struct {
	Status  int
	Message string
}

func (e *RemoteError) Error() string {
	return e.Message
}

func newRemoteError(status int, raw string) *RemoteError {
	if strings.Contains(raw, uniqueSignature) {
		return &RemoteError{Status: status, Message: raw}
	}

	category := categoryQueryFailed
	switch {
	case status == 401 || status == 403:
		category = categoryAuth
	case status >= 500:
		category = categoryUnavailable
	}
	return &RemoteError{Status: status, Message: category}
}

// TransportError сетевая ошибка или таймаут
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return "database request timed out"
	}
	return "database request failed"
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsUniqueViolation проверяет, что ошибка вызвана нарушением уникального ключа
func IsUniqueViolation(err error) bool {
	var remote *RemoteError
	if errors.As(err, &remote) {
		return strings.Contains(remote.Message, uniqueSignature)
	}
	return false
}

func errorKind(err error) string {
	var transport *TransportError
	switch {
	case errors.Is(err, ErrNotConfigured):
		return "config"
	case errors.As(err, &transport):
		return "transport"
	case IsUniqueViolation(err):
		return "unique"
	default:
		return "remote"
	}
}
