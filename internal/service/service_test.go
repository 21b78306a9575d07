package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/shopify-points-system/internal/audit"
	"github.com/mmeshcher/shopify-points-system/internal/dedup"
	"github.com/mmeshcher/shopify-points-system/internal/model"
	"github.com/mmeshcher/shopify-points-system/internal/shopify"
)

type stubShopify struct {
	mu sync.Mutex

	metafieldID  int64
	metafieldErr error

	points    int64
	pointsErr error

	updateErr     error
	updatedID     int64
	updatedPoints int64
	updateCalls   int

	customer    *model.Customer
	customerErr error

	calls int
}

func (s *stubShopify) GetMetafieldID(ctx context.Context, customerID int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.metafieldID, s.metafieldErr
}

func (s *stubShopify) GetRewardPoints(ctx context.Context, customerID int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.points, s.pointsErr
}

func (s *stubShopify) UpdateRewardPoints(ctx context.Context, metafieldID, newPoints int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.updateCalls++
	s.updatedID = metafieldID
	s.updatedPoints = newPoints
	// Следующее чтение видит записанный баланс.
	if s.updateErr == nil {
		s.points = newPoints
	}
	return s.updateErr
}

func (s *stubShopify) GetCustomer(ctx context.Context, customerID int64) (*model.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.customer, s.customerErr
}

func newTestService(t *testing.T, client ShopifyClient) (*Service, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "webhook-log.txt")
	auditLog, err := audit.NewLogger(path, zap.NewNop())
	if err != nil {
		t.Fatalf("new audit logger: %v", err)
	}
	t.Cleanup(func() { _ = auditLog.Close() })

	svc := NewService(client, dedup.NewMemoryStore(time.Hour), auditLog, zap.NewNop())
	return svc, path
}

func readAudit(t *testing.T, path string) string {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read audit log: %v", err)
	}
	return string(data)
}

func TestProcessOrderPaid(t *testing.T) {
	client := &stubShopify{}
	svc, path := newTestService(t, client)

	order := &model.OrderWebhook{
		ID:         100,
		Customer:   &model.Customer{ID: 700},
		TotalPrice: "25.00",
	}

	delta, err := svc.ProcessOrderPaid(context.Background(), order)
	if err != nil {
		t.Fatalf("ProcessOrderPaid error: %v", err)
	}
	if delta != 2 {
		t.Fatalf("delta = %d, want 2", delta)
	}
	if client.calls != 0 {
		t.Fatalf("paid path made %d shopify calls, want 0", client.calls)
	}

	content := readAudit(t, path)
	if !strings.Contains(content, "Order 100 paid for customer 700. Calculated reward points: 2.") {
		t.Fatalf("audit log missing computation record: %q", content)
	}
}

func TestProcessOrderPaid_Duplicate(t *testing.T) {
	client := &stubShopify{}
	svc, path := newTestService(t, client)

	order := &model.OrderWebhook{
		ID:         100,
		Customer:   &model.Customer{ID: 700},
		TotalPrice: "25.00",
	}

	if _, err := svc.ProcessOrderPaid(context.Background(), order); err != nil {
		t.Fatalf("first ProcessOrderPaid error: %v", err)
	}

	_, err := svc.ProcessOrderPaid(context.Background(), order)
	if !errors.Is(err, ErrDuplicateOrder) {
		t.Fatalf("second call error = %v, want ErrDuplicateOrder", err)
	}

	content := readAudit(t, path)
	if strings.Count(content, "Calculated reward points") != 1 {
		t.Fatalf("duplicate produced a second computation record: %q", content)
	}
}

func TestProcessOrderPaid_NoCustomer(t *testing.T) {
	client := &stubShopify{}
	svc, path := newTestService(t, client)

	order := &model.OrderWebhook{ID: 100, TotalPrice: "25.00"}

	_, err := svc.ProcessOrderPaid(context.Background(), order)
	if !errors.Is(err, ErrNoCustomer) {
		t.Fatalf("error = %v, want ErrNoCustomer", err)
	}

	content := readAudit(t, path)
	if !strings.Contains(content, "No customer information available for order 100.") {
		t.Fatalf("audit log missing no-customer record: %q", content)
	}
}

func TestProcessOrderFulfilled_HappyPath(t *testing.T) {
	client := &stubShopify{metafieldID: 42, points: 5}
	svc, path := newTestService(t, client)

	order := &model.OrderWebhook{
		ID:         100,
		Customer:   &model.Customer{ID: 700},
		TotalPrice: "37.00",
	}

	res, err := svc.ProcessOrderFulfilled(context.Background(), order)
	if err != nil {
		t.Fatalf("ProcessOrderFulfilled error: %v", err)
	}
	if res.Before != 5 || res.Delta != 3 || res.After != 8 {
		t.Fatalf("result = %+v, want {5 3 8}", res)
	}
	if client.updatedID != 42 || client.updatedPoints != 8 {
		t.Fatalf("update call = (%d, %d), want (42, 8)", client.updatedID, client.updatedPoints)
	}

	content := readAudit(t, path)
	if !strings.Contains(content, "Customer 700: 5 + 3 = 8 points") {
		t.Fatalf("audit log missing reconciliation triple: %q", content)
	}
}

func TestProcessOrderFulfilled_NoCustomer(t *testing.T) {
	client := &stubShopify{}
	svc, _ := newTestService(t, client)

	order := &model.OrderWebhook{ID: 100, TotalPrice: "37.00"}

	_, err := svc.ProcessOrderFulfilled(context.Background(), order)
	if !errors.Is(err, ErrNoCustomer) {
		t.Fatalf("error = %v, want ErrNoCustomer", err)
	}
	if client.calls != 0 {
		t.Fatalf("made %d shopify calls for a guest order, want 0", client.calls)
	}
}

func TestProcessOrderFulfilled_MetafieldNotFound(t *testing.T) {
	client := &stubShopify{metafieldErr: shopify.ErrMetafieldNotFound}
	svc, path := newTestService(t, client)

	order := &model.OrderWebhook{
		ID:         100,
		Customer:   &model.Customer{ID: 700},
		TotalPrice: "37.00",
	}

	_, err := svc.ProcessOrderFulfilled(context.Background(), order)
	if !errors.Is(err, shopify.ErrMetafieldNotFound) {
		t.Fatalf("error = %v, want ErrMetafieldNotFound", err)
	}
	if client.updateCalls != 0 {
		t.Fatalf("write attempted without a metafield")
	}

	content := readAudit(t, path)
	if !strings.Contains(content, "Metafield not found for customer 700") {
		t.Fatalf("audit log missing not-found record: %q", content)
	}
}

func TestProcessOrderFulfilled_UpstreamError(t *testing.T) {
	upstream := errors.New("shopify api: unexpected status: 500")
	client := &stubShopify{metafieldID: 42, updateErr: upstream}
	svc, path := newTestService(t, client)

	order := &model.OrderWebhook{
		ID:         100,
		Customer:   &model.Customer{ID: 700},
		TotalPrice: "37.00",
	}

	_, err := svc.ProcessOrderFulfilled(context.Background(), order)
	if !errors.Is(err, upstream) {
		t.Fatalf("error = %v, want upstream error", err)
	}

	content := readAudit(t, path)
	if !strings.Contains(content, "Failed to update reward points:") {
		t.Fatalf("audit log missing failure record: %q", content)
	}
}

func TestProcessOrderFulfilled_ConcurrentSameCustomer(t *testing.T) {
	client := &stubShopify{metafieldID: 42, points: 0}
	svc, _ := newTestService(t, client)

	const deliveries = 10

	var wg sync.WaitGroup
	for i := 0; i < deliveries; i++ {
		orderID := int64(100 + i)
		wg.Add(1)
		go func() {
			defer wg.Done()
			order := &model.OrderWebhook{
				ID:         orderID,
				Customer:   &model.Customer{ID: 700},
				TotalPrice: "10.00",
			}
			if _, err := svc.ProcessOrderFulfilled(context.Background(), order); err != nil {
				t.Errorf("ProcessOrderFulfilled error: %v", err)
			}
		}()
	}
	wg.Wait()

	if client.points != deliveries {
		t.Fatalf("final balance = %d, want %d (lost update)", client.points, deliveries)
	}
}

func TestSetCustomerPoints(t *testing.T) {
	client := &stubShopify{metafieldID: 42, points: 5}
	svc, _ := newTestService(t, client)

	if err := svc.SetCustomerPoints(context.Background(), 700, 50); err != nil {
		t.Fatalf("SetCustomerPoints error: %v", err)
	}
	if client.updatedID != 42 || client.updatedPoints != 50 {
		t.Fatalf("update call = (%d, %d), want (42, 50)", client.updatedID, client.updatedPoints)
	}
}

func TestGetCustomerPoints_UnknownCustomer(t *testing.T) {
	client := &stubShopify{customerErr: shopify.ErrCustomerNotFound}
	svc, _ := newTestService(t, client)

	_, err := svc.GetCustomerPoints(context.Background(), 700)
	if !errors.Is(err, shopify.ErrCustomerNotFound) {
		t.Fatalf("error = %v, want ErrCustomerNotFound", err)
	}
}
