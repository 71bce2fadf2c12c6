package domain

import "github.com/shopspring/decimal"

// OrderStatus mirrors the exchange-reported lifecycle of a placed order.
type OrderStatus string

const (
	OrderStatusNew      OrderStatus = "NEW"
	OrderStatusFilled   OrderStatus = "FILLED"
	OrderStatusRejected OrderStatus = "REJECTED"
)

// OrderResult is the exchange's answer to a market order submission.
type OrderResult struct {
	OrderID      string
	Symbol       string
	Side         Side
	FilledAmount decimal.Decimal
	Status       OrderStatus
}

// Filled checks if the order completed on the exchange side.
func (r *OrderResult) Filled() bool {
	return r.Status == OrderStatusFilled
}
