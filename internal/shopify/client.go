// Package shopify предоставляет клиент Admin API магазина Shopify.
package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"

	"github.com/mmeshcher/shopify-points-system/internal/model"
)

const (
	apiVersion = "2023-10"

	// Баланс баллов хранится в метаполе покупателя с этими координатами.
	rewardNamespace = "custom"
	rewardKey       = "point"
	rewardFieldType = "number_integer"

	accessTokenHeader = "X-Shopify-Access-Token"
)

// ErrMetafieldNotFound возвращается, если у покупателя нет метаполя
// бонусных баллов. Автоматическое создание метаполя не выполняется.
var ErrMetafieldNotFound = errors.New("reward metafield not found")

// ErrCustomerNotFound возвращается, если покупатель не найден в магазине.
var ErrCustomerNotFound = errors.New("customer not found")

// Client инкапсулирует HTTP-взаимодействие с Admin API Shopify.
// Shopify ограничивает частоту запросов, поэтому клиент повторяет
// запросы при 429 и 5xx с учётом заголовка Retry-After.
type Client struct {
	baseURL     string
	shopName    string
	accessToken string
	httpClient  *retryablehttp.Client
	logger      *zap.Logger
}

// NewClient создаёт клиент Admin API для указанного магазина.
func NewClient(shopName, accessToken string, logger *zap.Logger) *Client {
	httpClient := retryablehttp.NewClient()
	httpClient.RetryMax = 3
	httpClient.RetryWaitMin = 500 * time.Millisecond
	httpClient.RetryWaitMax = 5 * time.Second
	httpClient.HTTPClient.Timeout = 10 * time.Second
	httpClient.Logger = nil

	return &Client{
		baseURL:     fmt.Sprintf("https://%s.myshopify.com/admin/api/%s", shopName, apiVersion),
		shopName:    shopName,
		accessToken: accessToken,
		httpClient:  httpClient,
		logger:      logger,
	}
}

type metafieldPayload struct {
	ID        int64           `json:"id"`
	Namespace string          `json:"namespace"`
	Key       string          `json:"key"`
	Value     json.RawMessage `json:"value"`
	Type      string          `json:"type"`
}

// GetMetafield возвращает метаполе бонусных баллов покупателя.
// Отсутствие метаполя — это ErrMetafieldNotFound.
func (c *Client) GetMetafield(ctx context.Context, customerID int64) (*model.Metafield, error) {
	url := fmt.Sprintf("%s/customers/%d/metafields.json", c.baseURL, customerID)

	var response struct {
		Metafields []metafieldPayload `json:"metafields"`
	}

	if err := c.get(ctx, url, &response); err != nil {
		c.logger.Error("list customer metafields failed",
			zap.String("shop", c.shopName),
			zap.Int64("customerID", customerID),
			zap.Error(err))
		return nil, err
	}

	for _, m := range response.Metafields {
		if m.Namespace == rewardNamespace && m.Key == rewardKey {
			return &model.Metafield{
				ID:        m.ID,
				Namespace: m.Namespace,
				Key:       m.Key,
				Value:     rawValueString(m.Value),
				Type:      m.Type,
			}, nil
		}
	}

	return nil, ErrMetafieldNotFound
}

// GetMetafieldID возвращает внутренний идентификатор метаполя бонусных
// баллов, по которому выполняется запись.
func (c *Client) GetMetafieldID(ctx context.Context, customerID int64) (int64, error) {
	metafield, err := c.GetMetafield(ctx, customerID)
	if err != nil {
		return 0, err
	}
	return metafield.ID, nil
}

// GetRewardPoints возвращает текущий баланс баллов покупателя.
// Отсутствующее метаполе и нечисловое значение трактуются как нулевой
// баланс, чтобы испорченные данные не блокировали начисление.
func (c *Client) GetRewardPoints(ctx context.Context, customerID int64) (int64, error) {
	metafield, err := c.GetMetafield(ctx, customerID)
	if err != nil {
		if errors.Is(err, ErrMetafieldNotFound) {
			return 0, nil
		}
		return 0, err
	}

	value, err := strconv.ParseInt(metafield.Value, 10, 64)
	if err != nil {
		return 0, nil
	}

	return value, nil
}

// UpdateRewardPoints записывает новый баланс баллов в метаполе с
// указанным идентификатором. Значение сериализуется строкой согласно
// типу number_integer.
func (c *Client) UpdateRewardPoints(ctx context.Context, metafieldID, newPoints int64) error {
	url := fmt.Sprintf("%s/metafields/%d.json", c.baseURL, metafieldID)

	body := map[string]any{
		"metafield": map[string]any{
			"value": strconv.FormatInt(newPoints, 10),
			"type":  rewardFieldType,
		},
	}

	if err := c.put(ctx, url, body); err != nil {
		c.logger.Error("update reward points failed",
			zap.String("shop", c.shopName),
			zap.Int64("metafieldID", metafieldID),
			zap.Int64("points", newPoints),
			zap.Error(err))
		return err
	}

	return nil
}

// GetCustomer возвращает данные покупателя по идентификатору.
func (c *Client) GetCustomer(ctx context.Context, customerID int64) (*model.Customer, error) {
	url := fmt.Sprintf("%s/customers/%d.json", c.baseURL, customerID)

	var response struct {
		Customer model.Customer `json:"customer"`
	}

	if err := c.get(ctx, url, &response); err != nil {
		c.logger.Error("get customer failed",
			zap.String("shop", c.shopName),
			zap.Int64("customerID", customerID),
			zap.Error(err))
		return nil, err
	}

	return &response.Customer, nil
}

func (c *Client) get(ctx context.Context, url string, out any) error {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set(accessTokenHeader, c.accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrCustomerNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}

func (c *Client) put(ctx context.Context, url string, body any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set(accessTokenHeader, c.accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	return nil
}

// rawValueString приводит значение метаполя к строке. Admin API может
// вернуть значение числом или строкой в зависимости от версии.
func rawValueString(raw json.RawMessage) string {
	s := strings.TrimSpace(string(raw))

	var unquoted string
	if err := json.Unmarshal(raw, &unquoted); err == nil {
		return unquoted
	}

	return s
}
