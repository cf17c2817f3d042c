package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/SergeiKhy/linkdash/internal/metrics"
	"github.com/SergeiKhy/linkdash/internal/middleware"
	"github.com/SergeiKhy/linkdash/internal/models"
	"github.com/SergeiKhy/linkdash/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const maxWebhookBody = 64 << 10

type WebhookHandler struct {
	service *service.WebhookService
	limiter *middleware.WebhookLimiter
	baseURL string
	logger  *zap.Logger
}

func NewWebhookHandler(service *service.WebhookService, limiter *middleware.WebhookLimiter, baseURL string, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{
		service: service,
		limiter: limiter,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
	}
}

type WebhookLinkResponse struct {
	ID          int64     `json:"id"`
	Slug        string    `json:"slug"`
	ShortURL    string    `json:"short_url"`
	OriginalURL string    `json:"original_url"`
	FolderID    *string   `json:"folder_id"`
	CreatedAt   time.Time `json:"created_at"`
}

type WebhookResponse struct {
	Success bool                `json:"success"`
	Created bool                `json:"created"`
	Link    WebhookLinkResponse `json:"link"`
}

// respond отдаёт JSON и учитывает ответ в метриках
func (h *WebhookHandler) respond(c *gin.Context, status int, body any) {
	metrics.WebhookRequests.WithLabelValues(c.Request.Method, strconv.Itoa(status)).Inc()
	if body == nil {
		c.Status(status)
		return
	}
	c.JSON(status, body)
}

// resolve проверяет токен; ответ при ошибке уже отправлен
func (h *WebhookHandler) resolve(c *gin.Context, withBody bool) (*models.WebhookToken, bool) {
	wt, err := h.service.ResolveToken(c.Request.Context(), c.Param("token"))
	if err == nil {
		return wt, true
	}

	if errors.Is(err, service.ErrInvalidToken) {
		var body any
		if withBody {
			body = ErrorResponse{Error: "invalid_token", Message: "Webhook token not found"}
		}
		h.respond(c, http.StatusNotFound, body)
		return nil, false
	}

	h.logger.Error("Failed to resolve webhook token", zap.Error(err))
	var body any
	if withBody {
		body = ErrorResponse{Error: "internal_error", Message: "Failed to verify token"}
	}
	h.respond(c, http.StatusInternalServerError, body)
	return nil, false
}

// CreateLink godoc
// @Summary Create a link via webhook
// @Description Token lookup, rate limit, payload validation, idempotency by URL, folder and slug resolution
// @Tags webhook
// @Accept json
// @Produce json
// @Param token path string true "Webhook token"
// @Param request body models.WebhookLinkInput true "Link to create"
// @Success 201 {object} WebhookResponse
// @Success 200 {object} WebhookResponse "Link for this URL already exists"
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 429 {object} ErrorResponse
// @Router /api/webhook/{token} [post]
func (h *WebhookHandler) CreateLink(c *gin.Context) {
	wt, ok := h.resolve(c, true)
	if !ok {
		return
	}

	decision := h.limiter.Check(wt.Token, wt.RateLimit)
	c.Header("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
	c.Header("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
	if !decision.Allowed {
		metrics.WebhookRateLimited.Inc()
		retryAfter := decision.RetryAfterSeconds()
		c.Header("Retry-After", strconv.Itoa(retryAfter))
		h.respond(c, http.StatusTooManyRequests, gin.H{
			"error":       "rate_limited",
			"message":     "Rate limit exceeded, try again later",
			"retry_after": retryAfter,
		})
		return
	}

	var input models.WebhookLinkInput
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody)
	if err := c.ShouldBindJSON(&input); err != nil {
		h.respond(c, http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_payload",
			Message: "Body must be JSON: {\"url\": \"https://...\", \"customSlug\"?: string, \"folder\"?: string}",
		})
		return
	}

	res, err := h.service.CreateLink(c.Request.Context(), wt, &input)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrValidation):
			h.respond(c, http.StatusBadRequest, ErrorResponse{Error: "validation_error", Message: err.Error()})
		case errors.Is(err, service.ErrSlugTaken):
			h.respond(c, http.StatusConflict, ErrorResponse{Error: "slug_taken", Message: "This slug is already taken"})
		default:
			h.logger.Error("Webhook link creation failed", zap.String("tenant_id", wt.UserID), zap.Error(err))
			h.respond(c, http.StatusInternalServerError, ErrorResponse{Error: "internal_error", Message: "Failed to create link"})
		}
		return
	}

	status := http.StatusOK
	if res.Created {
		status = http.StatusCreated
	}
	h.respond(c, status, WebhookResponse{
		Success: true,
		Created: res.Created,
		Link: WebhookLinkResponse{
			ID:          res.Link.ID,
			Slug:        res.Link.Slug,
			ShortURL:    h.baseURL + "/" + res.Link.Slug,
			OriginalURL: res.Link.OriginalURL,
			FolderID:    res.Link.FolderID,
			CreatedAt:   res.Link.CreatedAt,
		},
	})
}

// Info godoc
// @Summary Webhook token status, usage and documentation
// @Tags webhook
// @Produce json
// @Param token path string true "Webhook token"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} ErrorResponse
// @Router /api/webhook/{token} [get]
func (h *WebhookHandler) Info(c *gin.Context) {
	wt, ok := h.resolve(c, true)
	if !ok {
		return
	}

	status := h.limiter.Status(wt.Token, wt.RateLimit)
	usage, err := h.service.Usage(c.Request.Context(), wt, status.Remaining, status.ResetAt)
	if err != nil {
		h.logger.Error("Failed to load webhook usage", zap.Error(err))
		h.respond(c, http.StatusInternalServerError, ErrorResponse{Error: "internal_error", Message: "Failed to load usage"})
		return
	}

	h.respond(c, http.StatusOK, gin.H{
		"status": "active",
		"usage":  usage,
		"docs":   webhookDocs(h.baseURL + c.Request.URL.Path),
	})
}

// Head проверка токена без тела ответа
func (h *WebhookHandler) Head(c *gin.Context) {
	if _, ok := h.resolve(c, false); !ok {
		return
	}
	h.respond(c, http.StatusOK, nil)
}

func webhookDocs(endpoint string) gin.H {
	return gin.H{
		"endpoint": endpoint,
		"method":   http.MethodPost,
		"headers":  gin.H{"Content-Type": "application/json"},
		"body": gin.H{
			"url":        gin.H{"type": "string", "required": true, "description": "Absolute http(s) URL to shorten"},
			"customSlug": gin.H{"type": "string", "required": false, "description": "3-50 characters of a-z, 0-9, '-' or '_'"},
			"folder":     gin.H{"type": "string", "required": false, "description": "Folder name; unknown names are ignored"},
		},
		"responses": gin.H{
			"201": "Link created",
			"200": "A link for this URL already exists and is returned unchanged",
			"400": "Invalid payload, URL or slug",
			"404": "Unknown token",
			"409": "Custom slug is already taken",
			"429": "Rate limit exceeded; see the Retry-After header",
		},
	}
}
