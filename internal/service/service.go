// Package service реализует бизнес-логику начисления бонусных баллов.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/mmeshcher/shopify-points-system/internal/audit"
	"github.com/mmeshcher/shopify-points-system/internal/dedup"
	"github.com/mmeshcher/shopify-points-system/internal/model"
	"github.com/mmeshcher/shopify-points-system/internal/points"
	"github.com/mmeshcher/shopify-points-system/internal/shopify"
)

// ErrNoCustomer возвращается, если вебхук заказа не содержит покупателя
// (гостевой заказ). Начислять баллы в этом случае некому.
var (
	ErrNoCustomer = errors.New("no customer information")
	// ErrDuplicateOrder возвращается при повторной доставке вебхука
	// по уже обработанному заказу.
	ErrDuplicateOrder = errors.New("duplicate order webhook")
)

// ShopifyClient описывает контракт доступа к Admin API, используемый
// сервисом.
type ShopifyClient interface {
	GetMetafieldID(ctx context.Context, customerID int64) (int64, error)
	GetRewardPoints(ctx context.Context, customerID int64) (int64, error)
	UpdateRewardPoints(ctx context.Context, metafieldID, newPoints int64) error
	GetCustomer(ctx context.Context, customerID int64) (*model.Customer, error)
}

// Service содержит бизнес-логику обработки вебхуков и сверки баланса.
type Service struct {
	shopify ShopifyClient
	dedup   dedup.Store
	audit   *audit.Logger
	logger  *zap.Logger

	// Сверка делает чтение и запись баланса двумя запросами к Shopify.
	// Конкурентные fulfillment-вебхуки одного покупателя без взаимного
	// исключения теряют обновления, поэтому последовательность
	// "прочитать — посчитать — записать" выполняется под мьютексом
	// покупателя.
	locksMu sync.Mutex
	locks   map[int64]*sync.Mutex
}

// NewService создаёт сервис с указанными клиентом Shopify, хранилищем
// дублей и журналом.
func NewService(client ShopifyClient, dedupStore dedup.Store, auditLog *audit.Logger, logger *zap.Logger) *Service {
	return &Service{
		shopify: client,
		dedup:   dedupStore,
		audit:   auditLog,
		logger:  logger,
		locks:   make(map[int64]*sync.Mutex),
	}
}

func (s *Service) customerLock(customerID int64) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()

	mu, ok := s.locks[customerID]
	if !ok {
		mu = &sync.Mutex{}
		s.locks[customerID] = mu
	}
	return mu
}

// ProcessOrderPaid обрабатывает вебхук оплаты заказа: отсеивает дубли,
// считает будущие баллы и фиксирует их в журнале. Баланс на этом шаге
// намеренно не изменяется — начисление выполняется только по факту
// выполнения заказа, иначе один заказ был бы учтён дважды.
func (s *Service) ProcessOrderPaid(ctx context.Context, order *model.OrderWebhook) (int64, error) {
	added, err := s.dedup.Add(ctx, order.ID)
	if err != nil {
		return 0, fmt.Errorf("dedup check: %w", err)
	}
	if !added {
		s.logger.Info("duplicate order webhook skipped", zap.Int64("orderID", order.ID))
		return 0, ErrDuplicateOrder
	}

	if order.Customer == nil {
		s.audit.Append(fmt.Sprintf("No customer information available for order %d.\n\n", order.ID))
		return 0, ErrNoCustomer
	}

	delta := points.Compute(order.Total())
	s.audit.Append(fmt.Sprintf("Order %d paid for customer %d. Calculated reward points: %d.\n\n",
		order.ID, order.Customer.ID, delta))

	return delta, nil
}

// ProcessOrderFulfilled выполняет сверку баланса по выполненному заказу:
// находит метаполе баллов, читает текущий баланс, прибавляет баллы за
// заказ и записывает результат обратно в Shopify.
func (s *Service) ProcessOrderFulfilled(ctx context.Context, order *model.OrderWebhook) (*model.ReconcileResult, error) {
	if order.Customer == nil {
		s.audit.Append(fmt.Sprintf("No customer information for order %d\n\n", order.ID))
		return nil, ErrNoCustomer
	}

	customerID := order.Customer.ID

	mu := s.customerLock(customerID)
	mu.Lock()
	defer mu.Unlock()

	metafieldID, err := s.shopify.GetMetafieldID(ctx, customerID)
	if err != nil {
		if errors.Is(err, shopify.ErrMetafieldNotFound) {
			s.audit.Append(fmt.Sprintf("Metafield not found for customer %d\n\n", customerID))
			return nil, err
		}
		s.audit.Append(fmt.Sprintf("Failed to update reward points: %s\n\n", err))
		return nil, err
	}

	current, err := s.shopify.GetRewardPoints(ctx, customerID)
	if err != nil {
		s.audit.Append(fmt.Sprintf("Failed to update reward points: %s\n\n", err))
		return nil, err
	}

	delta := points.Compute(order.Total())
	if delta < 0 {
		delta = 0
	}
	total := current + delta

	s.audit.Append(fmt.Sprintf("Customer %d: %d + %d = %d points\n\n", customerID, current, delta, total))

	if err := s.shopify.UpdateRewardPoints(ctx, metafieldID, total); err != nil {
		s.audit.Append(fmt.Sprintf("Failed to update reward points: %s\n\n", err))
		return nil, err
	}

	return &model.ReconcileResult{
		Before: current,
		Delta:  delta,
		After:  total,
	}, nil
}

// LogEvent фиксирует в журнале получение вебхука без обработки.
func (s *Service) LogEvent(eventType string, payload map[string]any) {
	s.audit.Event(eventType, payload)
}

// GetCustomerPoints возвращает текущий баланс баллов покупателя для
// админки и checkout-расширения.
func (s *Service) GetCustomerPoints(ctx context.Context, customerID int64) (int64, error) {
	if _, err := s.shopify.GetCustomer(ctx, customerID); err != nil {
		return 0, err
	}
	return s.shopify.GetRewardPoints(ctx, customerID)
}

// SetCustomerPoints выставляет баланс баллов покупателя в указанное
// значение. Метаполе должно уже существовать.
func (s *Service) SetCustomerPoints(ctx context.Context, customerID, newPoints int64) error {
	mu := s.customerLock(customerID)
	mu.Lock()
	defer mu.Unlock()

	metafieldID, err := s.shopify.GetMetafieldID(ctx, customerID)
	if err != nil {
		return err
	}

	if err := s.shopify.UpdateRewardPoints(ctx, metafieldID, newPoints); err != nil {
		return err
	}

	s.audit.Append(fmt.Sprintf("Customer %d: points set to %d by admin\n\n", customerID, newPoints))
	return nil
}
