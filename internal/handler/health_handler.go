package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/SergeiKhy/linkdash/internal/repository"
	"github.com/SergeiKhy/linkdash/internal/service"
	"github.com/gin-gonic/gin"
)

const healthPingTimeout = time.Second

// Pinger необязательная зависимость, доступность которой видна в health check
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	exec           repository.Executor
	redis          Pinger
	clickProcessor service.ClickProcessor
	startedAt      time.Time
}

func NewHealthHandler(exec repository.Executor, redis Pinger, clickProcessor service.ClickProcessor) *HealthHandler {
	return &HealthHandler{
		exec:           exec,
		redis:          redis,
		clickProcessor: clickProcessor,
		startedAt:      time.Now(),
	}
}

// HealthCheck godoc
// @Summary Health check
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/health [get]
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	body := gin.H{
		"status":        "ok",
		"service":       "linkdash",
		"db_configured": h.exec.IsConfigured(),
		"uptime":        time.Since(h.startedAt).Round(time.Second).String(),
	}

	// Кэш не обязателен, его недоступность не делает сервис нездоровым
	redisStatus := "disabled"
	if h.redis != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthPingTimeout)
		defer cancel()
		redisStatus = "ok"
		if err := h.redis.Ping(ctx); err != nil {
			redisStatus = "unavailable"
		}
	}
	body["redis"] = redisStatus

	if h.clickProcessor != nil {
		body["click_processor"] = h.clickProcessor.Stats()
	}
	c.JSON(http.StatusOK, body)
}
