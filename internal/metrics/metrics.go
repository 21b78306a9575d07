// Package metrics содержит счётчики Prometheus сервиса бонусных баллов.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics объединяет счётчики обработки вебхуков.
type Metrics struct {
	registry *prometheus.Registry

	WebhooksReceived  *prometheus.CounterVec
	WebhooksDuplicate prometheus.Counter
	PointsApplied     prometheus.Counter
}

// New создаёт и регистрирует счётчики в отдельном реестре.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		WebhooksReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "webhooks_received_total",
			Help: "Number of webhook deliveries received, by event type.",
		}, []string{"event"}),
		WebhooksDuplicate: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "webhooks_duplicate_total",
			Help: "Number of duplicate order webhooks skipped.",
		}),
		PointsApplied: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "points_applied_total",
			Help: "Total reward points written to customer balances.",
		}),
	}

	registry.MustRegister(m.WebhooksReceived, m.WebhooksDuplicate, m.PointsApplied)

	return m
}

// Handler возвращает HTTP-обработчик выдачи метрик.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
