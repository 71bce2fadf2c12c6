package ledger

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/karpushchenko/ccxt-trades-duplicator/internal/domain"
)

// Replayer rebuilds positions from the append-only processed_trades log.
// The holdings table is a cache of the log; replaying the follower orders in
// commit order must land on the same numbers, and any gap means the ledger
// was edited outside the copier or an old bug left it inconsistent.
type Replayer struct {
	ledger *Ledger
}

// NewReplayer creates a replayer over an open ledger.
func NewReplayer(l *Ledger) *Replayer {
	return &Replayer{ledger: l}
}

// Replay recomputes per-symbol positions from the follower-order rows,
// oldest first. Lead-trade rows carry the lead's amounts and are not part of
// the follower's position.
func (r *Replayer) Replay(ctx context.Context) (map[string]decimal.Decimal, error) {
	rows, err := r.ledger.db.QueryContext(ctx, `
		SELECT symbol, amount, side FROM processed_trades
		WHERE kind = ? ORDER BY processed_at ASC, order_id ASC`,
		string(domain.KindFollowerOrder))
	if err != nil {
		return nil, fmt.Errorf("failed to query processed_trades: %w", err)
	}
	defer rows.Close()

	positions := make(map[string]decimal.Decimal)
	for rows.Next() {
		var symbol, stored, side string
		if err := rows.Scan(&symbol, &stored, &side); err != nil {
			return nil, fmt.Errorf("failed to scan processed trade: %w", err)
		}
		amount, err := decimal.NewFromString(stored)
		if err != nil {
			return nil, fmt.Errorf("corrupt amount for %s: %w", symbol, err)
		}

		if domain.Side(side) == domain.SideBuy {
			positions[symbol] = positions[symbol].Add(amount)
		} else {
			positions[symbol] = positions[symbol].Sub(amount)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return positions, nil
}

// Discrepancy is one symbol where the holdings table disagrees with the log.
type Discrepancy struct {
	Symbol   string
	Stored   decimal.Decimal
	Replayed decimal.Decimal
}

// Verify replays the log and diffs it against the holdings table.
// An empty result means the ledger is internally consistent.
func (r *Replayer) Verify(ctx context.Context) ([]Discrepancy, error) {
	replayed, err := r.Replay(ctx)
	if err != nil {
		return nil, err
	}

	stored, err := r.ledger.Holdings(ctx)
	if err != nil {
		return nil, err
	}

	storedBySymbol := make(map[string]decimal.Decimal, len(stored))
	for _, h := range stored {
		storedBySymbol[h.Symbol] = h.Amount
	}

	var diffs []Discrepancy
	for symbol, want := range replayed {
		got := storedBySymbol[symbol]
		if !got.Equal(want) {
			diffs = append(diffs, Discrepancy{Symbol: symbol, Stored: got, Replayed: want})
		}
		delete(storedBySymbol, symbol)
	}
	// Symbols in the table the log never mentions.
	for symbol, got := range storedBySymbol {
		if !got.IsZero() {
			diffs = append(diffs, Discrepancy{Symbol: symbol, Stored: got, Replayed: decimal.Zero})
		}
	}

	return diffs, nil
}
