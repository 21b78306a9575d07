// Package points содержит расчёт бонусных баллов по сумме заказа.
package points

import "math"

// ExchangeRate задаёт курс обмена: единиц валюты магазина за один балл.
const ExchangeRate = 10

// Compute возвращает количество баллов за заказ на указанную сумму.
// Округление всегда вниз: неполные десять единиц балла не дают.
// Для отрицательной суммы результат отрицателен — вызывающая сторона
// обязана не применять такой результат к балансу.
func Compute(totalPrice float64) int64 {
	return int64(math.Floor(totalPrice / ExchangeRate))
}
