package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/SergeiKhy/linkdash/internal/metrics"
	"github.com/SergeiKhy/linkdash/internal/models"
	"github.com/mssola/useragent"
	"go.uber.org/zap"
)

// Константы worker pool
const (
	defaultWorkerCount   = 3    // Количество воркеров
	defaultChannelBuffer = 1000 // Размер буфера канала
	recordTimeout        = 5 * time.Second
)

// ClickRecorder пишет клик в хранилище
type ClickRecorder interface {
	RecordClick(ctx context.Context, click *models.Click) error
}

// ClickProcessor интерфейс для асинхронного отслеживания кликов
type ClickProcessor interface {
	Start()
	Stop()
	RecordClick(ctx context.Context, event *models.ClickEvent) error
	Stats() ChannelStats
}

// ChannelStats статистика канала worker pool
type ChannelStats struct {
	BufferSize  int `json:"buffer_size"`  // Общая ёмкость канала
	BufferUsed  int `json:"buffer_used"`  // Текущее использование
	WorkerCount int `json:"worker_count"` // Количество воркеров
}

// ClickProcessorConfig параметры пула; нулевые значения заменяются значениями по умолчанию
type ClickProcessorConfig struct {
	Workers int
	Buffer  int
}

// clickProcessor реализация процессора кликов с использованием Worker Pool
type clickProcessor struct {
	recorder     ClickRecorder
	logger       *zap.Logger
	clickChannel chan *models.ClickEvent
	workerCount  int
	wg           sync.WaitGroup
	ctx          context.Context
	cancel       context.CancelFunc
}

// NewClickProcessor создаёт новый экземпляр процессора кликов
func NewClickProcessor(recorder ClickRecorder, logger *zap.Logger, cfg ClickProcessorConfig) ClickProcessor {
	if cfg.Workers <= 0 {
		cfg.Workers = defaultWorkerCount
	}
	if cfg.Buffer <= 0 {
		cfg.Buffer = defaultChannelBuffer
	}
	return &clickProcessor{
		recorder:     recorder,
		logger:       logger,
		clickChannel: make(chan *models.ClickEvent, cfg.Buffer),
		workerCount:  cfg.Workers,
	}
}

// Start запускает worker pool
func (p *clickProcessor) Start() {
	p.ctx, p.cancel = context.WithCancel(context.Background())

	p.logger.Info("Запуск воркеров процессора кликов", zap.Int("count", p.workerCount))

	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// Stop останавливает воркеров; события, оставшиеся в буфере, дописываются
func (p *clickProcessor) Stop() {
	p.logger.Info("Остановка процессора кликов...")
	p.cancel()
	p.wg.Wait()
	p.logger.Info("Процессор кликов остановлен")
}

func (p *clickProcessor) worker(id int) {
	defer p.wg.Done()

	p.logger.Debug("Воркер кликов запущен", zap.Int("id", id))

	for {
		select {
		case <-p.ctx.Done():
			p.drain()
			p.logger.Debug("Воркер кликов остановлен", zap.Int("id", id))
			return

		case event := <-p.clickChannel:
			p.processClick(event)
		}
	}
}

func (p *clickProcessor) drain() {
	for {
		select {
		case event := <-p.clickChannel:
			p.processClick(event)
		default:
			return
		}
	}
}

// processClick классифицирует и записывает один клик. Повторов нет.
func (p *clickProcessor) processClick(event *models.ClickEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()

	device, browser, os := ClassifyUserAgent(event.UserAgent)
	click := &models.Click{
		LinkID:    event.LinkID,
		Device:    device,
		Browser:   browser,
		OS:        os,
		Country:   event.Country,
		City:      event.City,
		Timestamp: event.ClickedAt,
	}

	if err := p.recorder.RecordClick(ctx, click); err != nil {
		metrics.ClicksRecorded.WithLabelValues("error").Inc()
		p.logger.Error("Не удалось записать клик",
			zap.String("slug", event.Slug),
			zap.Int64("link_id", event.LinkID),
			zap.Error(err),
		)
		return
	}
	metrics.ClicksRecorded.WithLabelValues("ok").Inc()
}

// RecordClick отправляет событие клика в worker pool (неблокирующая операция)
func (p *clickProcessor) RecordClick(ctx context.Context, event *models.ClickEvent) error {
	if event.ClickedAt.IsZero() {
		event.ClickedAt = time.Now()
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case p.clickChannel <- event:
		return nil
	default:
		// Канал заполнен: редирект важнее статистики
		metrics.ClicksDropped.Inc()
		p.logger.Warn("Буфер канала кликов заполнен, событие потеряно",
			zap.String("slug", event.Slug),
		)
		return nil
	}
}

// Stats возвращает статистику канала для мониторинга
func (p *clickProcessor) Stats() ChannelStats {
	return ChannelStats{
		BufferSize:  cap(p.clickChannel),
		BufferUsed:  len(p.clickChannel),
		WorkerCount: p.workerCount,
	}
}

// ClassifyUserAgent возвращает класс устройства, браузер и ОС
func ClassifyUserAgent(raw string) (device, browser, os string) {
	if strings.TrimSpace(raw) == "" {
		return "unknown", "unknown", "unknown"
	}

	ua := useragent.New(raw)
	lower := strings.ToLower(raw)

	switch {
	case ua.Bot():
		device = "bot"
	case strings.Contains(lower, "ipad") || strings.Contains(lower, "tablet") ||
		(strings.Contains(lower, "android") && !strings.Contains(lower, "mobile")):
		device = "tablet"
	case ua.Mobile():
		device = "mobile"
	default:
		device = "desktop"
	}

	browser, _ = ua.Browser()
	if browser == "" {
		browser = "unknown"
	}

	os = ua.OSInfo().Name
	if os == "" {
		os = "unknown"
	}
	return device, browser, os
}
