package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/SergeiKhy/linkdash/internal/models"
	"github.com/SergeiKhy/linkdash/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type RedirectHandler struct {
	service        *service.RedirectService
	clickProcessor service.ClickProcessor
	logger         *zap.Logger
}

func NewRedirectHandler(service *service.RedirectService, clickProcessor service.ClickProcessor, logger *zap.Logger) *RedirectHandler {
	return &RedirectHandler{
		service:        service,
		clickProcessor: clickProcessor,
		logger:         logger,
	}
}

// Redirect godoc
// @Summary Redirect to original URL
// @Description Redirect to the original URL by slug and record the click asynchronously
// @Tags links
// @Param slug path string true "Slug"
// @Success 307 {object} nil
// @Failure 404 {object} ErrorResponse
// @Router /{slug} [get]
func (h *RedirectHandler) Redirect(c *gin.Context) {
	slug := c.Param("slug")

	link, err := h.service.Resolve(c.Request.Context(), slug)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) || errors.Is(err, service.ErrLinkExpired) {
			c.JSON(http.StatusNotFound, ErrorResponse{
				Error:   "not_found",
				Message: "Link not found or expired",
			})
			return
		}
		h.logger.Error("Failed to resolve link", zap.String("slug", slug), zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to resolve link",
		})
		return
	}

	// Асинхронная запись статистики
	clickEvent := &models.ClickEvent{
		LinkID:    link.ID,
		Slug:      link.Slug,
		UserAgent: c.Request.UserAgent(),
		Country:   firstHeader(c, "CF-IPCountry", "X-Vercel-IP-Country"),
		City:      firstHeader(c, "X-Vercel-IP-City"),
		ClickedAt: time.Now(),
	}
	if err := h.clickProcessor.RecordClick(c.Request.Context(), clickEvent); err != nil {
		h.logger.Debug("Failed to record click (non-blocking)", zap.Error(err))
	}

	c.Redirect(http.StatusTemporaryRedirect, link.OriginalURL)
}

func firstHeader(c *gin.Context, names ...string) string {
	for _, name := range names {
		// XX: страна неизвестна (Cloudflare)
		if v := c.GetHeader(name); v != "" && v != "XX" {
			return v
		}
	}
	return ""
}
