// Package model содержит доменные сущности сервиса бонусных баллов.
package model

import "strconv"

// Customer представляет покупателя магазина Shopify.
type Customer struct {
	ID        int64  `json:"id"`
	Email     string `json:"email,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

// OrderWebhook описывает полезную нагрузку вебхука заказа.
// Shopify передаёт сумму заказа строкой в валюте магазина.
type OrderWebhook struct {
	ID         int64     `json:"id"`
	Customer   *Customer `json:"customer,omitempty"`
	TotalPrice string    `json:"total_price"`
}

// Total возвращает сумму заказа числом. Пустая или некорректная
// строка трактуется как 0, чтобы не блокировать обработку вебхука.
func (o *OrderWebhook) Total() float64 {
	if o.TotalPrice == "" {
		return 0
	}
	total, err := strconv.ParseFloat(o.TotalPrice, 64)
	if err != nil {
		return 0
	}
	return total
}

// Metafield описывает метаполе покупателя в Shopify. Баланс баллов
// хранится в метаполе с namespace "custom" и ключом "point"; запись
// выполняется по внутреннему идентификатору метаполя.
type Metafield struct {
	ID        int64  `json:"id"`
	Namespace string `json:"namespace"`
	Key       string `json:"key"`
	Value     string `json:"value"`
	Type      string `json:"type"`
}

// ReconcileResult содержит итог начисления баллов по одному заказу.
type ReconcileResult struct {
	Before int64
	Delta  int64
	After  int64
}
