// Package metrics содержит Prometheus-метрики сервиса.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// QueryDuration длительность запросов к удалённому SQL-эндпоинту
	QueryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "linkdash",
		Subsystem: "db",
		Name:      "query_duration_seconds",
		Help:      "Duration of remote SQL requests.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"op"})

	// QueryErrors ошибки запросов по категориям: config, transport, remote, unique
	QueryErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "linkdash",
		Subsystem: "db",
		Name:      "query_errors_total",
		Help:      "Failed remote SQL requests by kind.",
	}, []string{"kind"})

	WebhookRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "linkdash",
		Subsystem: "webhook",
		Name:      "requests_total",
		Help:      "Webhook requests by method and response status.",
	}, []string{"method", "status"})

	WebhookRateLimited = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "linkdash",
		Subsystem: "webhook",
		Name:      "rate_limited_total",
		Help:      "Webhook requests rejected by the per-token limiter.",
	})

	IPRateLimited = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "linkdash",
		Subsystem: "http",
		Name:      "ip_rate_limited_total",
		Help:      "Requests rejected by the per-IP token bucket.",
	})

	ClicksDropped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "linkdash",
		Subsystem: "clicks",
		Name:      "dropped_total",
		Help:      "Click events dropped because the processor buffer was full.",
	})

	ClicksRecorded = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "linkdash",
		Subsystem: "clicks",
		Name:      "recorded_total",
		Help:      "Click events written to the analytics table.",
	}, []string{"result"})
)
