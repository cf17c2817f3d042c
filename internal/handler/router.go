package handler

import (
	"time"

	"github.com/SergeiKhy/linkdash/internal/middleware"
	"github.com/SergeiKhy/linkdash/internal/repository"
	"github.com/SergeiKhy/linkdash/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// RouterDeps зависимости HTTP-слоя. SessionAuth == nil: дашборд API не поднимается.
type RouterDeps struct {
	Exec           repository.Executor
	Redis          Pinger
	Dashboards     *service.Dashboards
	Webhooks       *service.WebhookService
	Redirects      *service.RedirectService
	ClickProcessor service.ClickProcessor
	RateLimiter    *middleware.RateLimiter
	WebhookLimiter *middleware.WebhookLimiter
	SessionAuth    *middleware.SessionAuth
	BaseURL        string
	Logger         *zap.Logger
}

func NewRouter(deps RouterDeps) *gin.Engine {
	logger := deps.Logger
	router := gin.New()
	router.Use(gin.Recovery())

	// Middleware для логгирования
	router.Use(func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("Request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.String("ip", c.ClientIP()),
			zap.Duration("latency", time.Since(start)),
		)
	})

	// IP-лимит на всё, кроме вебхука: там токен проверяется раньше лимита по токену
	limited := router.Group("")
	if deps.RateLimiter != nil {
		limited.Use(deps.RateLimiter.Middleware())
	}

	limited.GET("/metrics", gin.WrapH(promhttp.Handler()))

	health := NewHealthHandler(deps.Exec, deps.Redis, deps.ClickProcessor)
	webhook := NewWebhookHandler(deps.Webhooks, deps.WebhookLimiter, deps.BaseURL, logger)
	redirect := NewRedirectHandler(deps.Redirects, deps.ClickProcessor, logger)

	// Вебхук: авторизация по токену в пути
	hooks := router.Group("/api/webhook")
	{
		hooks.POST("/:token", webhook.CreateLink)
		hooks.GET("/:token", webhook.Info)
		hooks.HEAD("/:token", webhook.Head)
	}

	// API v.1
	v1 := limited.Group("/api/v1")
	v1.GET("/health", health.HealthCheck)

	if deps.SessionAuth != nil {
		dashboard := NewDashboardHandler(deps.Dashboards, deps.BaseURL, logger)

		protected := v1.Group("", deps.SessionAuth.Middleware())
		{
			protected.POST("/links", dashboard.CreateLink)
			protected.GET("/links", dashboard.GetLinks)
			protected.GET("/links/:id", dashboard.GetLink)
			protected.PATCH("/links/:id", dashboard.UpdateLink)
			protected.DELETE("/links/:id", dashboard.DeleteLink)
			protected.GET("/links/:id/analytics", dashboard.GetLinkAnalytics)
			protected.GET("/links/:id/tags", dashboard.GetTagsForLink)
			protected.PUT("/links/:id/tags/:tagId", dashboard.AddTagToLink)
			protected.DELETE("/links/:id/tags/:tagId", dashboard.RemoveTagFromLink)
			protected.GET("/link-tags", dashboard.GetLinkTags)

			protected.POST("/folders", dashboard.CreateFolder)
			protected.GET("/folders", dashboard.GetFolders)
			protected.PATCH("/folders/:id", dashboard.UpdateFolder)
			protected.DELETE("/folders/:id", dashboard.DeleteFolder)

			protected.POST("/tags", dashboard.CreateTag)
			protected.GET("/tags", dashboard.GetTags)
			protected.PATCH("/tags/:id", dashboard.UpdateTag)
			protected.DELETE("/tags/:id", dashboard.DeleteTag)

			protected.POST("/uploads", dashboard.CreateUpload)
			protected.GET("/uploads", dashboard.GetUploads)
			protected.GET("/uploads/:id", dashboard.GetUpload)
			protected.DELETE("/uploads/:id", dashboard.DeleteUpload)

			protected.GET("/overview", dashboard.GetOverview)

			protected.GET("/webhook-token", dashboard.GetWebhookToken)
			protected.POST("/webhook-token", dashboard.RegenerateWebhookToken)
			protected.DELETE("/webhook-token", dashboard.DeleteWebhookToken)
		}
	} else {
		logger.Warn("AUTH_JWT_SECRET is not set, dashboard API is disabled")
	}

	// Редирект (корневой путь)
	limited.GET("/:slug", redirect.Redirect)

	return router
}
