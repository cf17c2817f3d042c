package handler

import (
	"errors"
	"net/http"

	"github.com/SergeiKhy/linkdash/internal/repository"
	"github.com/SergeiKhy/linkdash/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// respondError переводит ошибки сервиса в HTTP-ответ.
// Детали транспортных и удалённых ошибок наружу не отдаются.
func respondError(c *gin.Context, logger *zap.Logger, err error, action string) {
	switch {
	case errors.Is(err, service.ErrValidation):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: err.Error(),
		})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "not_found",
			Message: "Resource not found",
		})
	case errors.Is(err, service.ErrSlugTaken), repository.IsUniqueViolation(err):
		c.JSON(http.StatusConflict, ErrorResponse{
			Error:   "slug_taken",
			Message: "This slug is already taken",
		})
	case errors.Is(err, repository.ErrNotConfigured):
		logger.Error("Database is not configured", zap.String("action", action))
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Error:   "not_configured",
			Message: "Database is not configured",
		})
	default:
		logger.Error("Request failed", zap.String("action", action), zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to " + action,
		})
	}
}

func badRequest(c *gin.Context, code, message string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: code, Message: message})
}
