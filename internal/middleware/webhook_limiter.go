package middleware

import (
	"math"
	"sync"
	"time"
)

// WebhookLimiterConfig конфигурация лимитера вебхуков
type WebhookLimiterConfig struct {
	DefaultLimit  int           // Лимит, если у токена он не задан
	Window        time.Duration // Длина фиксированного окна
	SweepInterval time.Duration // Интервал очистки истёкших окон (0 отключает фоновую очистку)
}

// DefaultWebhookLimiterConfig 5 запросов в минуту
var DefaultWebhookLimiterConfig = WebhookLimiterConfig{
	DefaultLimit:  5,
	Window:        time.Minute,
	SweepInterval: time.Minute,
}

// Decision результат проверки лимита
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
	ResetAt    time.Time
}

// RetryAfterSeconds значение заголовка Retry-After (округление вверх, минимум 1)
func (d Decision) RetryAfterSeconds() int {
	secs := int(math.Ceil(d.RetryAfter.Seconds()))
	if secs < 1 {
		secs = 1
	}
	return secs
}

type window struct {
	count   int
	resetAt time.Time
}

// WebhookLimiter счётчик запросов по токену в фиксированном окне.
// Один экземпляр на процесс; состояние не разделяется между инстансами.
type WebhookLimiter struct {
	config  WebhookLimiterConfig
	windows map[string]*window
	mu      sync.Mutex
	now     func() time.Time
	stop    chan struct{}
	once    sync.Once
}

func NewWebhookLimiter(config WebhookLimiterConfig) *WebhookLimiter {
	return newWebhookLimiter(config, time.Now)
}

func newWebhookLimiter(config WebhookLimiterConfig, now func() time.Time) *WebhookLimiter {
	if config.DefaultLimit <= 0 {
		config.DefaultLimit = DefaultWebhookLimiterConfig.DefaultLimit
	}
	if config.Window <= 0 {
		config.Window = DefaultWebhookLimiterConfig.Window
	}

	l := &WebhookLimiter{
		config:  config,
		windows: make(map[string]*window),
		now:     now,
		stop:    make(chan struct{}),
	}

	if config.SweepInterval > 0 {
		go l.sweepLoop()
	}

	return l
}

// Check проверяет и, если лимит не исчерпан, засчитывает запрос
func (l *WebhookLimiter) Check(token string, limit int) Decision {
	if limit <= 0 {
		limit = l.config.DefaultLimit
	}
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	w := l.current(token, now)
	if w.count >= limit {
		return Decision{
			Allowed:    false,
			Limit:      limit,
			Remaining:  0,
			RetryAfter: w.resetAt.Sub(now),
			ResetAt:    w.resetAt,
		}
	}

	w.count++
	return Decision{
		Allowed:   true,
		Limit:     limit,
		Remaining: limit - w.count,
		ResetAt:   w.resetAt,
	}
}

// Status возвращает состояние окна без списания запроса
func (l *WebhookLimiter) Status(token string, limit int) Decision {
	if limit <= 0 {
		limit = l.config.DefaultLimit
	}
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[token]
	if !ok || !now.Before(w.resetAt) {
		return Decision{Allowed: true, Limit: limit, Remaining: limit, ResetAt: now.Add(l.config.Window)}
	}

	remaining := limit - w.count
	if remaining < 0 {
		remaining = 0
	}
	d := Decision{Allowed: remaining > 0, Limit: limit, Remaining: remaining, ResetAt: w.resetAt}
	if !d.Allowed {
		d.RetryAfter = w.resetAt.Sub(now)
	}
	return d
}

// current возвращает активное окно, открывая новое при необходимости. Вызывать под mu.
func (l *WebhookLimiter) current(token string, now time.Time) *window {
	w, ok := l.windows[token]
	if !ok || !now.Before(w.resetAt) {
		w = &window{resetAt: now.Add(l.config.Window)}
		l.windows[token] = w
	}
	return w
}

// Reset сбрасывает окно токена (например, после перевыпуска)
func (l *WebhookLimiter) Reset(token string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.windows, token)
}

// Stop останавливает фоновую очистку
func (l *WebhookLimiter) Stop() {
	l.once.Do(func() {
		close(l.stop)
	})
}

func (l *WebhookLimiter) sweepLoop() {
	ticker := time.NewTicker(l.config.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
			l.sweep()
		}
	}
}

// sweep удаляет окна, срок которых истёк
func (l *WebhookLimiter) sweep() {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	for token, w := range l.windows {
		if !now.Before(w.resetAt) {
			delete(l.windows, token)
		}
	}
}

func (l *WebhookLimiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.windows)
}
