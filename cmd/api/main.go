package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SergeiKhy/linkdash/internal/config"
	"github.com/SergeiKhy/linkdash/internal/handler"
	"github.com/SergeiKhy/linkdash/internal/middleware"
	"github.com/SergeiKhy/linkdash/internal/repository"
	"github.com/SergeiKhy/linkdash/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var rootCmd = &cobra.Command{
	Use:          "linkdash",
	Short:        "Multi-tenant link shortener with dashboard and webhook API",
	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE:  runServe,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the database schema",
	RunE:  runMigrate,
}

var sessionCmd = &cobra.Command{
	Use:   "session [TENANT_ID]",
	Short: "Issue a dashboard session token for a tenant",
	Args:  cobra.ExactArgs(1),
	RunE:  runSession,
}

func init() {
	serveCmd.Flags().Bool("migrate", false, "Apply the schema before serving")
	sessionCmd.Flags().Duration("ttl", 24*time.Hour, "Session lifetime")

	rootCmd.AddCommand(serveCmd, migrateCmd, sessionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.IsLocal() {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// openExecutor DATABASE_URL (libsql/sqlite) имеет приоритет над HTTP-эндпоинтом
func openExecutor(cfg *config.Config, logger *zap.Logger) (repository.Executor, func(), error) {
	if cfg.DB.URL != "" {
		exec, err := repository.NewSQLExecutor(cfg.DB.URL, cfg.DB.Timeout)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("Connected to SQL database")
		return exec, func() { exec.Close() }, nil
	}

	client := repository.NewQueryClient(cfg.DB, repository.WithLogger(logger))
	if !client.IsConfigured() {
		logger.Warn("Database credentials are missing, data operations will fail")
	}
	return client, func() {}, nil
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Sync()

	exec, closeExec, err := openExecutor(cfg, logger)
	if err != nil {
		return err
	}
	defer closeExec()

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()
	if err := repository.Migrate(ctx, exec); err != nil {
		return err
	}
	logger.Info("Schema applied")
	return nil
}

func runSession(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.Auth.JWTSecret == "" {
		return errors.New("AUTH_JWT_SECRET is not set")
	}
	ttl, _ := cmd.Flags().GetDuration("ttl")

	token, err := middleware.NewSessionAuth(cfg.Auth.JWTSecret).Issue(args[0], ttl)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	// Загрузка конфига
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Инициализация логгера
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if !cfg.IsLocal() {
		gin.SetMode(gin.ReleaseMode)
	}

	exec, closeExec, err := openExecutor(cfg, logger)
	if err != nil {
		logger.Error("Failed to open database", zap.Error(err))
		return err
	}
	defer closeExec()

	if migrate, _ := cmd.Flags().GetBool("migrate"); migrate {
		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		err := repository.Migrate(ctx, exec)
		cancel()
		if err != nil {
			logger.Error("Failed to apply schema", zap.Error(err))
			return err
		}
	}

	// Redis опционален: без него кэши не используются
	var caches service.Caches
	var redisPing handler.Pinger
	if cfg.Redis.Enabled() {
		redis, err := repository.NewRedisClient(cmd.Context(), cfg.Redis)
		if err != nil {
			logger.Warn("Redis is unavailable, caching disabled", zap.Error(err))
		} else {
			defer redis.Close()
			caches.Tokens = repository.NewTokenCache(redis)
			caches.Links = repository.NewLinkCache(redis)
			redisPing = redis
			logger.Info("Connected to Redis")
		}
	}

	system := repository.NewSystemRepository(exec)

	// Инициализация процессора кликов (Worker Pool)
	clickProcessor := service.NewClickProcessor(system, logger, service.ClickProcessorConfig{})
	clickProcessor.Start()
	defer clickProcessor.Stop()

	// Инициализация middleware
	rateLimiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
		BurstSize:         cfg.RateLimit.BurstSize,
		CleanupInterval:   time.Minute,
	})
	defer rateLimiter.Stop()

	webhookLimiter := middleware.NewWebhookLimiter(middleware.WebhookLimiterConfig{
		DefaultLimit:  cfg.Webhook.DefaultLimit,
		Window:        cfg.Webhook.Window,
		SweepInterval: cfg.Webhook.Window,
	})
	defer webhookLimiter.Stop()

	var sessionAuth *middleware.SessionAuth
	if cfg.Auth.JWTSecret != "" {
		sessionAuth = middleware.NewSessionAuth(cfg.Auth.JWTSecret)
		logger.Info("Session authentication enabled")
	}

	// Настройка роутера
	router := handler.NewRouter(handler.RouterDeps{
		Exec:           exec,
		Redis:          redisPing,
		Dashboards:     service.NewDashboards(exec, system, caches, logger),
		Webhooks:       service.NewWebhookService(system, caches.Tokens, logger),
		Redirects:      service.NewRedirectService(system, caches.Links, logger),
		ClickProcessor: clickProcessor,
		RateLimiter:    rateLimiter,
		WebhookLimiter: webhookLimiter,
		SessionAuth:    sessionAuth,
		BaseURL:        cfg.App.BaseURL,
		Logger:         logger,
	})

	// Запуск сервера
	srv := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Server starting", zap.String("port", cfg.App.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-serverErr:
		logger.Error("Failed to start server", zap.Error(err))
		return err
	}

	logger.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
		return err
	}

	logger.Info("Server exited")
	return nil
}
