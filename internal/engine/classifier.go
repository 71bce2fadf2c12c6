package engine

import (
	"context"
	"fmt"

	"github.com/karpushchenko/ccxt-trades-duplicator/internal/domain"
)

// Decision is the classifier's verdict on one lead trade.
type Decision int

const (
	DecisionCopy          Decision = iota // eligible, pass to the copier
	DecisionSkipProcessed                 // already handled
	DecisionSkipMarket                    // quote currency not supported
	DecisionSkipSide                      // unrecognized side
)

func (d Decision) String() string {
	switch d {
	case DecisionCopy:
		return "COPY"
	case DecisionSkipProcessed:
		return "SKIP_PROCESSED"
	case DecisionSkipMarket:
		return "SKIP_MARKET"
	case DecisionSkipSide:
		return "SKIP_SIDE"
	default:
		return "UNKNOWN"
	}
}

// ProcessedChecker is the ledger read access the classifier needs.
type ProcessedChecker interface {
	IsProcessed(ctx context.Context, orderID string) (bool, error)
}

// MarketResolver returns instrument metadata for a symbol.
type MarketResolver interface {
	ResolveMarket(ctx context.Context, symbol string) (domain.Market, error)
}

// Classifier decides whether a lead trade is eligible for copying. It is a
// read-only decision: no writes, no order placement, safe to re-evaluate the
// same trade any number of times.
type Classifier struct {
	ledger        ProcessedChecker
	markets       MarketResolver
	quoteCurrency string
}

// NewClassifier creates a classifier filtering for the given quote currency.
func NewClassifier(ledger ProcessedChecker, markets MarketResolver, quoteCurrency string) *Classifier {
	return &Classifier{
		ledger:        ledger,
		markets:       markets,
		quoteCurrency: quoteCurrency,
	}
}

// Classify returns the decision for one lead trade. The error return is for
// infrastructure failures (ledger or market lookup); a definite skip is a
// Decision, not an error.
func (c *Classifier) Classify(ctx context.Context, trade domain.LeadTrade) (Decision, error) {
	processed, err := c.ledger.IsProcessed(ctx, trade.OrderID)
	if err != nil {
		return DecisionSkipProcessed, fmt.Errorf("processed lookup failed: %w", err)
	}
	if processed {
		return DecisionSkipProcessed, nil
	}

	market, err := c.markets.ResolveMarket(ctx, trade.Symbol)
	if err != nil {
		if domain.IsOrderError(err) {
			// Unknown instrument: definite skip, not an infrastructure failure.
			return DecisionSkipMarket, nil
		}
		return DecisionSkipMarket, fmt.Errorf("market lookup failed: %w", err)
	}
	if market.QuoteCurrency != c.quoteCurrency {
		return DecisionSkipMarket, nil
	}

	if !trade.Side.Valid() {
		return DecisionSkipSide, nil
	}

	return DecisionCopy, nil
}
