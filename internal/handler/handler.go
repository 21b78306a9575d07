// Package handler содержит HTTP-обработчики сервиса бонусных баллов.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mmeshcher/shopify-points-system/internal/metrics"
	"github.com/mmeshcher/shopify-points-system/internal/middleware"
	"github.com/mmeshcher/shopify-points-system/internal/model"
	"github.com/mmeshcher/shopify-points-system/internal/service"
	"github.com/mmeshcher/shopify-points-system/internal/shopify"
)

// Service определяет контракт бизнес-логики, используемой
// HTTP-обработчиками.
type Service interface {
	ProcessOrderPaid(ctx context.Context, order *model.OrderWebhook) (int64, error)
	ProcessOrderFulfilled(ctx context.Context, order *model.OrderWebhook) (*model.ReconcileResult, error)
	LogEvent(eventType string, payload map[string]any)
	GetCustomerPoints(ctx context.Context, customerID int64) (int64, error)
	SetCustomerPoints(ctx context.Context, customerID, newPoints int64) error
}

// Handler реализует HTTP-обработчики вебхуков и админских запросов.
type Handler struct {
	service Service
	logger  *zap.Logger
	metrics *metrics.Metrics
	hmac    *middleware.HMACVerifier
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Service, logger *zap.Logger, m *metrics.Metrics, hmac *middleware.HMACVerifier) *Handler {
	return &Handler{
		service: s,
		logger:  logger,
		metrics: m,
		hmac:    hmac,
	}
}

// Hello отвечает на проверку живости сервиса.
func (h *Handler) Hello(w http.ResponseWriter, r *http.Request) {
	_, _ = w.Write([]byte("Hello World!"))
}

func (h *Handler) decodeOrder(w http.ResponseWriter, r *http.Request) (*model.OrderWebhook, bool) {
	var order model.OrderWebhook
	if err := json.NewDecoder(r.Body).Decode(&order); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return nil, false
	}
	return &order, true
}

// OrderPaid обрабатывает вебхук оплаты заказа: считает будущие баллы и
// фиксирует их в журнале, не изменяя баланс.
func (h *Handler) OrderPaid(w http.ResponseWriter, r *http.Request) {
	h.metrics.WebhooksReceived.WithLabelValues("orders/paid").Inc()

	order, ok := h.decodeOrder(w, r)
	if !ok {
		return
	}

	_, err := h.service.ProcessOrderPaid(r.Context(), order)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrDuplicateOrder):
			h.metrics.WebhooksDuplicate.Inc()
			_, _ = w.Write([]byte("Duplicate webhook. Skipping."))
		case errors.Is(err, service.ErrNoCustomer):
			http.Error(w, "No customer information available.", http.StatusBadRequest)
		default:
			h.logger.Error("order paid webhook error", zap.Error(err), zap.Int64("orderID", order.ID))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
		return
	}

	_, _ = w.Write([]byte("Order Paid Webhook Logged."))
}

// OrderFulfilled обрабатывает вебхук выполнения заказа и выполняет
// сверку баланса баллов покупателя.
func (h *Handler) OrderFulfilled(w http.ResponseWriter, r *http.Request) {
	h.metrics.WebhooksReceived.WithLabelValues("orders/fulfilled").Inc()

	order, ok := h.decodeOrder(w, r)
	if !ok {
		return
	}

	res, err := h.service.ProcessOrderFulfilled(r.Context(), order)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNoCustomer):
			http.Error(w, "No customer information.", http.StatusBadRequest)
		case errors.Is(err, shopify.ErrMetafieldNotFound):
			http.Error(w, "Metafield not found.", http.StatusNotFound)
		default:
			h.logger.Error("order fulfilled webhook error", zap.Error(err), zap.Int64("orderID", order.ID))
			http.Error(w, "Failed to update reward points.", http.StatusInternalServerError)
		}
		return
	}

	h.metrics.PointsApplied.Add(float64(res.Delta))
	_, _ = w.Write([]byte("Reward points updated successfully."))
}

// GenericEvent возвращает обработчик вебхука, который только
// фиксирует событие в журнале.
func (h *Handler) GenericEvent(eventType string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.metrics.WebhooksReceived.WithLabelValues(eventType).Inc()

		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}

		h.service.LogEvent(eventType, payload)
		fmt.Fprintf(w, "%s Webhook Received", eventType)
	}
}

func customerIDParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "customerID"), 10, 64)
}

type pointsResponse struct {
	CustomerID int64 `json:"customer_id"`
	Points     int64 `json:"points"`
}

// GetPoints возвращает баланс баллов покупателя для админки и
// checkout-расширения.
func (h *Handler) GetPoints(w http.ResponseWriter, r *http.Request) {
	customerID, err := customerIDParam(r)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	points, err := h.service.GetCustomerPoints(r.Context(), customerID)
	if err != nil {
		if errors.Is(err, shopify.ErrCustomerNotFound) {
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
			return
		}
		h.logger.Error("get customer points error", zap.Error(err), zap.Int64("customerID", customerID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(pointsResponse{CustomerID: customerID, Points: points}); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
}

type setPointsRequest struct {
	Points int64 `json:"points"`
}

// SetPoints выставляет баланс баллов покупателя. Метаполе должно
// существовать, автоматическое создание не выполняется.
func (h *Handler) SetPoints(w http.ResponseWriter, r *http.Request) {
	customerID, err := customerIDParam(r)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	var req setPointsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if err := h.service.SetCustomerPoints(r.Context(), customerID, req.Points); err != nil {
		if errors.Is(err, shopify.ErrMetafieldNotFound) {
			http.Error(w, "Metafield not found.", http.StatusNotFound)
			return
		}
		h.logger.Error("set customer points error", zap.Error(err), zap.Int64("customerID", customerID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
}
