package engine

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/karpushchenko/ccxt-trades-duplicator/internal/domain"
)

// PositionSizer converts follower balance into a mirrored buy quantity.
// Pure computation, no I/O.
type PositionSizer struct {
	copyFraction decimal.Decimal
}

// NewPositionSizer creates a sizer committing the given fraction of available
// quote balance to each mirrored buy.
func NewPositionSizer(copyFraction decimal.Decimal) *PositionSizer {
	return &PositionSizer{copyFraction: copyFraction}
}

// BuyAmount returns the base-currency quantity to buy: the configured
// fraction of the available quote balance, converted at the lead trade's
// price. Sell sizing is not computed here: the copier mirrors direction, not
// lead quantity, and liquidates the full holding on any lead sell.
func (s *PositionSizer) BuyAmount(availableQuote, price decimal.Decimal) (decimal.Decimal, error) {
	if price.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, fmt.Errorf("%w: %s", domain.ErrInvalidPrice, price)
	}

	quoteToSpend := availableQuote.Mul(s.copyFraction)
	return quoteToSpend.Div(price), nil
}
