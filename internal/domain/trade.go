package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Side is the direction of a trade or order.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// Valid reports whether the side is one of the recognized directions.
func (s Side) Valid() bool {
	return s == SideBuy || s == SideSell
}

// LeadTrade is a trade reported for the lead account. It is external input:
// the copier never persists it as-is, only the facts derived from it.
type LeadTrade struct {
	OrderID   string
	Symbol    string // unified instrument id, e.g. "BTC/USDT"
	Side      Side
	Price     decimal.Decimal
	Amount    decimal.Decimal
	Timestamp time.Time
}

// Market holds the instrument metadata the classifier needs.
type Market struct {
	Symbol        string
	BaseCurrency  string
	QuoteCurrency string
}
