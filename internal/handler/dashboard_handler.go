package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/SergeiKhy/linkdash/internal/middleware"
	"github.com/SergeiKhy/linkdash/internal/models"
	"github.com/SergeiKhy/linkdash/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const defaultTopLinks = 5

// DashboardHandler API кабинета. Сервис создаётся на каждый запрос
// из tenant id, который выставил SessionAuth.
type DashboardHandler struct {
	dashboards *service.Dashboards
	baseURL    string
	logger     *zap.Logger
}

func NewDashboardHandler(dashboards *service.Dashboards, baseURL string, logger *zap.Logger) *DashboardHandler {
	return &DashboardHandler{
		dashboards: dashboards,
		baseURL:    strings.TrimRight(baseURL, "/"),
		logger:     logger,
	}
}

// LinkResponse ссылка с готовым коротким URL
type LinkResponse struct {
	*models.Link
	ShortURL string `json:"short_url"`
}

func (h *DashboardHandler) linkResponse(link *models.Link) LinkResponse {
	return LinkResponse{Link: link, ShortURL: h.baseURL + "/" + link.Slug}
}

func (h *DashboardHandler) tenant(c *gin.Context) (*service.DashboardService, bool) {
	tenantID, ok := middleware.TenantIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "unauthorized",
			Message: "Session is required",
		})
		return nil, false
	}

	svc, err := h.dashboards.For(tenantID)
	if err != nil {
		respondError(c, h.logger, err, "open session")
		return nil, false
	}
	return svc, true
}

func int64Param(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "invalid_id", "Invalid "+name)
		return 0, false
	}
	return id, true
}

// GetOverview godoc
// @Summary Dashboard overview
// @Tags analytics
// @Produce json
// @Param top query int false "Number of top links" default(5)
// @Success 200 {object} models.OverviewStats
// @Router /api/v1/overview [get]
func (h *DashboardHandler) GetOverview(c *gin.Context) {
	svc, ok := h.tenant(c)
	if !ok {
		return
	}

	top := defaultTopLinks
	if v := c.Query("top"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 50 {
			top = n
		}
	}

	stats, err := svc.GetOverview(c.Request.Context(), top)
	if err != nil {
		respondError(c, h.logger, err, "load overview")
		return
	}
	c.JSON(http.StatusOK, stats)
}

// Uploads

// CreateUpload godoc
// @Summary Register an uploaded object
// @Tags uploads
// @Accept json
// @Produce json
// @Param request body models.CreateUploadInput true "Upload metadata"
// @Success 201 {object} models.Upload
// @Failure 400 {object} ErrorResponse
// @Router /api/v1/uploads [post]
func (h *DashboardHandler) CreateUpload(c *gin.Context) {
	svc, ok := h.tenant(c)
	if !ok {
		return
	}

	var input models.CreateUploadInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, "invalid_request", err.Error())
		return
	}

	upload, err := svc.CreateUpload(c.Request.Context(), &input)
	if err != nil {
		respondError(c, h.logger, err, "create upload")
		return
	}
	c.JSON(http.StatusCreated, upload)
}

func (h *DashboardHandler) GetUploads(c *gin.Context) {
	svc, ok := h.tenant(c)
	if !ok {
		return
	}

	uploads, err := svc.GetUploads(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err, "load uploads")
		return
	}
	c.JSON(http.StatusOK, uploads)
}

func (h *DashboardHandler) GetUpload(c *gin.Context) {
	svc, ok := h.tenant(c)
	if !ok {
		return
	}
	id, ok := int64Param(c, "id")
	if !ok {
		return
	}

	upload, err := svc.GetUpload(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err, "load upload")
		return
	}
	c.JSON(http.StatusOK, upload)
}

func (h *DashboardHandler) DeleteUpload(c *gin.Context) {
	svc, ok := h.tenant(c)
	if !ok {
		return
	}
	id, ok := int64Param(c, "id")
	if !ok {
		return
	}

	if err := svc.DeleteUpload(c.Request.Context(), id); err != nil {
		respondError(c, h.logger, err, "delete upload")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Upload deleted successfully"})
}

// Webhook token

type RegenerateTokenRequest struct {
	RateLimit int `json:"rate_limit"`
}

func (h *DashboardHandler) GetWebhookToken(c *gin.Context) {
	svc, ok := h.tenant(c)
	if !ok {
		return
	}

	token, err := svc.GetWebhookToken(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err, "load webhook token")
		return
	}
	c.JSON(http.StatusOK, h.tokenResponse(token))
}

// RegenerateWebhookToken godoc
// @Summary Issue a new webhook token
// @Description The previous token stops working immediately
// @Tags webhook
// @Accept json
// @Produce json
// @Param request body RegenerateTokenRequest false "Rate limit per minute"
// @Success 201 {object} map[string]interface{}
// @Router /api/v1/webhook-token [post]
func (h *DashboardHandler) RegenerateWebhookToken(c *gin.Context) {
	svc, ok := h.tenant(c)
	if !ok {
		return
	}

	var req RegenerateTokenRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "invalid_request", err.Error())
			return
		}
	}

	token, err := svc.RegenerateWebhookToken(c.Request.Context(), req.RateLimit)
	if err != nil {
		respondError(c, h.logger, err, "regenerate webhook token")
		return
	}
	c.JSON(http.StatusCreated, h.tokenResponse(token))
}

func (h *DashboardHandler) DeleteWebhookToken(c *gin.Context) {
	svc, ok := h.tenant(c)
	if !ok {
		return
	}

	if err := svc.DeleteWebhookToken(c.Request.Context()); err != nil {
		respondError(c, h.logger, err, "delete webhook token")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Webhook token deleted successfully"})
}

func (h *DashboardHandler) tokenResponse(token *models.WebhookToken) gin.H {
	return gin.H{
		"token":       token.Token,
		"rate_limit":  token.RateLimit,
		"created_at":  token.CreatedAt,
		"webhook_url": h.baseURL + "/api/webhook/" + token.Token,
	}
}
