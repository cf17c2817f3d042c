package config

import (
	"errors"
	"io/fs"
	"time"

	"github.com/spf13/viper"
)

const (
	defaultPort             = "8080"
	defaultBaseURL          = "http://localhost:8080"
	defaultAPIURL           = "https://api.cloudflare.com/client/v4"
	defaultQueryTimeout     = 10 * time.Second
	defaultWebhookRateLimit = 5
	defaultWebhookWindow    = time.Minute
)

type Config struct {
	App       AppConfig
	DB        DBConfig
	Redis     RedisConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Webhook   WebhookConfig
}

type AppConfig struct {
	Port    string
	Env     string
	BaseURL string
}

// DBConfig описывает доступ к удалённому SQL-эндпоинту.
// URL используется только для libsql/sqlite бэкенда и имеет приоритет, если задан.
type DBConfig struct {
	AccountID  string
	DatabaseID string
	APIToken   string
	APIURL     string
	Timeout    time.Duration
	URL        string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// Enabled reports whether the token cache should be used
func (c RedisConfig) Enabled() bool {
	return c.Host != ""
}

type AuthConfig struct {
	JWTSecret string
}

type RateLimitConfig struct {
	RequestsPerSecond float64
	BurstSize         int
}

type WebhookConfig struct {
	DefaultLimit int
	Window       time.Duration
}

// Load читает .env (если есть) и переменные окружения
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	v.SetDefault("APP_PORT", defaultPort)
	v.SetDefault("APP_ENV", "production")
	v.SetDefault("APP_BASE_URL", defaultBaseURL)
	v.SetDefault("D1_API_URL", defaultAPIURL)
	v.SetDefault("D1_TIMEOUT", defaultQueryTimeout)
	v.SetDefault("RATE_LIMIT_RPS", 10)
	v.SetDefault("RATE_LIMIT_BURST", 20)
	v.SetDefault("WEBHOOK_RATE_LIMIT", defaultWebhookRateLimit)
	v.SetDefault("WEBHOOK_WINDOW", defaultWebhookWindow)

	var cfg Config
	cfg.App.Port = v.GetString("APP_PORT")
	cfg.App.Env = v.GetString("APP_ENV")
	cfg.App.BaseURL = v.GetString("APP_BASE_URL")

	cfg.DB.AccountID = v.GetString("D1_ACCOUNT_ID")
	cfg.DB.DatabaseID = v.GetString("D1_DATABASE_ID")
	cfg.DB.APIToken = v.GetString("D1_API_TOKEN")
	cfg.DB.APIURL = v.GetString("D1_API_URL")
	cfg.DB.Timeout = v.GetDuration("D1_TIMEOUT")
	cfg.DB.URL = v.GetString("DATABASE_URL")

	cfg.Redis.Host = v.GetString("REDIS_HOST")
	cfg.Redis.Port = v.GetString("REDIS_PORT")
	cfg.Redis.Password = v.GetString("REDIS_PASSWORD")
	cfg.Redis.DB = v.GetInt("REDIS_DB")

	cfg.Auth.JWTSecret = v.GetString("AUTH_JWT_SECRET")

	cfg.RateLimit.RequestsPerSecond = v.GetFloat64("RATE_LIMIT_RPS")
	if cfg.RateLimit.RequestsPerSecond <= 0 {
		cfg.RateLimit.RequestsPerSecond = 10
	}
	cfg.RateLimit.BurstSize = v.GetInt("RATE_LIMIT_BURST")
	if cfg.RateLimit.BurstSize <= 0 {
		cfg.RateLimit.BurstSize = 20
	}

	cfg.Webhook.DefaultLimit = v.GetInt("WEBHOOK_RATE_LIMIT")
	if cfg.Webhook.DefaultLimit <= 0 {
		cfg.Webhook.DefaultLimit = defaultWebhookRateLimit
	}
	cfg.Webhook.Window = v.GetDuration("WEBHOOK_WINDOW")
	if cfg.Webhook.Window <= 0 {
		cfg.Webhook.Window = defaultWebhookWindow
	}

	if cfg.DB.Timeout <= 0 {
		cfg.DB.Timeout = defaultQueryTimeout
	}
	if cfg.Redis.Enabled() && cfg.Redis.Port == "" {
		cfg.Redis.Port = "6379"
	}

	return &cfg
}

// IsLocal сообщает, запущено ли приложение в режиме разработки
func (c *Config) IsLocal() bool {
	return c.App.Env == "local" || c.App.Env == "development"
}
