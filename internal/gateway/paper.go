package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/karpushchenko/ccxt-trades-duplicator/internal/domain"
)

// PaperGateway simulates an exchange with virtual balances and instantly
// filled market orders. Used for dry runs and tests: the copy engine drives it
// exactly like the real gateway.
type PaperGateway struct {
	mu       sync.Mutex
	balances map[string]decimal.Decimal // currency -> free balance
	prices   map[string]decimal.Decimal // symbol -> last price
	trades   []domain.LeadTrade         // pending lead trades, newest first
	fills    []domain.OrderResult
}

// NewPaperGateway creates a paper gateway seeded with a quote-currency balance.
func NewPaperGateway(quoteCurrency string, initialBalance decimal.Decimal) *PaperGateway {
	return &PaperGateway{
		balances: map[string]decimal.Decimal{quoteCurrency: initialBalance},
		prices:   make(map[string]decimal.Decimal),
	}
}

// Deposit adds funds to the virtual account.
func (p *PaperGateway) Deposit(currency string, amount decimal.Decimal) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.balances[currency] = p.balance(currency).Add(amount)
}

// SetPrice updates the simulated market price for a symbol.
func (p *PaperGateway) SetPrice(symbol string, price decimal.Decimal) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.prices[symbol] = price
}

// PushLeadTrade queues a lead trade for the next FetchRecentTrades call.
func (p *PaperGateway) PushLeadTrade(trade domain.LeadTrade) {
	p.mu.Lock()
	defer p.mu.Unlock()
	// Newest first, like a real exchange's recent-trades endpoint.
	p.trades = append([]domain.LeadTrade{trade}, p.trades...)
}

// FetchAvailableBalance returns the virtual free balance.
func (p *PaperGateway) FetchAvailableBalance(ctx context.Context, currency string) (decimal.Decimal, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.balance(currency), nil
}

// balance must be called with the mutex held.
func (p *PaperGateway) balance(currency string) decimal.Decimal {
	if b, ok := p.balances[currency]; ok {
		return b
	}
	return decimal.Zero
}

// FetchRecentTrades returns the queued lead trades, newest first.
func (p *PaperGateway) FetchRecentTrades(ctx context.Context, limit int) ([]domain.LeadTrade, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := len(p.trades)
	if limit > 0 && n > limit {
		n = limit
	}
	out := make([]domain.LeadTrade, n)
	copy(out, p.trades[:n])
	return out, nil
}

// PlaceMarketOrder fills the order instantly against virtual balances at the
// configured price.
func (p *PaperGateway) PlaceMarketOrder(ctx context.Context, symbol string, side domain.Side, amount decimal.Decimal) (domain.OrderResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	market, err := splitSymbol(symbol)
	if err != nil {
		return domain.OrderResult{}, err
	}

	price, ok := p.prices[symbol]
	if !ok {
		return domain.OrderResult{}, fmt.Errorf("%w: no price for %s", domain.ErrExchangeRejected, symbol)
	}

	cost := price.Mul(amount)

	if side == domain.SideBuy {
		if p.balance(market.QuoteCurrency).LessThan(cost) {
			return domain.OrderResult{}, fmt.Errorf("%w: need %s %s, have %s",
				domain.ErrInsufficientFunds, cost, market.QuoteCurrency, p.balance(market.QuoteCurrency))
		}
		p.balances[market.QuoteCurrency] = p.balance(market.QuoteCurrency).Sub(cost)
		p.balances[market.BaseCurrency] = p.balance(market.BaseCurrency).Add(amount)
	} else {
		if p.balance(market.BaseCurrency).LessThan(amount) {
			return domain.OrderResult{}, fmt.Errorf("%w: need %s %s, have %s",
				domain.ErrInsufficientFunds, amount, market.BaseCurrency, p.balance(market.BaseCurrency))
		}
		p.balances[market.BaseCurrency] = p.balance(market.BaseCurrency).Sub(amount)
		p.balances[market.QuoteCurrency] = p.balance(market.QuoteCurrency).Add(cost)
	}

	result := domain.OrderResult{
		OrderID:      uuid.NewString(),
		Symbol:       symbol,
		Side:         side,
		FilledAmount: amount,
		Status:       domain.OrderStatusFilled,
	}
	p.fills = append(p.fills, result)

	slog.Info("PAPER: order filled",
		slog.String("id", result.OrderID),
		slog.String("symbol", symbol),
		slog.String("side", string(side)),
		slog.String("amount", amount.String()),
		slog.String("price", price.String()))

	return result, nil
}

// ResolveMarket derives metadata from a "BASE/QUOTE" symbol.
func (p *PaperGateway) ResolveMarket(ctx context.Context, symbol string) (domain.Market, error) {
	return splitSymbol(symbol)
}

// Fills returns every order executed so far.
func (p *PaperGateway) Fills() []domain.OrderResult {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.OrderResult, len(p.fills))
	copy(out, p.fills)
	return out
}

func splitSymbol(symbol string) (domain.Market, error) {
	base, quote, ok := strings.Cut(symbol, "/")
	if !ok || base == "" || quote == "" {
		return domain.Market{}, fmt.Errorf("%w: %s", domain.ErrUnknownMarket, symbol)
	}
	return domain.Market{Symbol: symbol, BaseCurrency: base, QuoteCurrency: quote}, nil
}
