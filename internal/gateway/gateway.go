package gateway

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/karpushchenko/ccxt-trades-duplicator/internal/domain"
)

// Gateway abstracts the exchange connection the copier consumes. The real
// implementation talks to OKX; paper mode and tests substitute in-memory ones.
type Gateway interface {
	// FetchAvailableBalance returns the free balance of a currency.
	FetchAvailableBalance(ctx context.Context, currency string) (decimal.Decimal, error)

	// FetchRecentTrades returns up to limit lead trades.
	// Exchanges typically return newest-first; callers must not rely on order.
	FetchRecentTrades(ctx context.Context, limit int) ([]domain.LeadTrade, error)

	// PlaceMarketOrder submits a market order and returns the exchange's result.
	PlaceMarketOrder(ctx context.Context, symbol string, side domain.Side, amount decimal.Decimal) (domain.OrderResult, error)

	// ResolveMarket returns instrument metadata for a symbol.
	ResolveMarket(ctx context.Context, symbol string) (domain.Market, error)
}

