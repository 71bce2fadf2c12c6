package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/karpushchenko/ccxt-trades-duplicator/internal/domain"

	_ "github.com/glebarez/go-sqlite"
)

// ErrAlreadyProcessed signals a duplicate order id on insert. Callers treat it
// as idempotent success: the action was already recorded, e.g. on retry after
// a crash between order placement and the ledger write.
var ErrAlreadyProcessed = errors.New("trade already processed")

// Ledger is the durable record of which trades have been acted on and the
// follower's current per-symbol holdings. It is the single shared mutable
// resource of the copier; all mutations go through it.
type Ledger struct {
	db *sql.DB
}

// Open creates a new SQLite-backed ledger with WAL mode enabled.
func Open(dbPath string) (*Ledger, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	// Configure SQLite for a durable single-writer log
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA cache_size=-2000;", // 2MB cache
		"PRAGMA foreign_keys=ON;",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return nil, fmt.Errorf("failed to set pragma %s: %w", pragma, err)
		}
	}

	// processed_trades is append-only: a row means "this order id has been
	// fully handled and must never be acted on again". kind keeps lead trade
	// ids and follower order ids distinguishable.
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS processed_trades (
			order_id TEXT PRIMARY KEY,
			kind TEXT NOT NULL,
			symbol TEXT NOT NULL,
			amount TEXT NOT NULL,
			side TEXT NOT NULL,
			processed_at INTEGER NOT NULL
		);
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to create processed_trades table: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS holdings (
			symbol TEXT PRIMARY KEY,
			amount TEXT NOT NULL
		);
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to create holdings table: %w", err)
	}

	return &Ledger{db: db}, nil
}

// IsProcessed reports whether an order id has already been handled.
// Safe to call concurrently with writes.
func (l *Ledger) IsProcessed(ctx context.Context, orderID string) (bool, error) {
	var one int
	err := l.db.QueryRowContext(ctx,
		"SELECT 1 FROM processed_trades WHERE order_id = ?", orderID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to query processed_trades: %w", err)
	}
	return true, nil
}

// MarkProcessed inserts a processed-trade fact. Returns ErrAlreadyProcessed if
// the order id is already recorded.
func (l *Ledger) MarkProcessed(ctx context.Context, rec domain.ProcessedTrade) error {
	return l.markProcessedTx(ctx, l.db, rec)
}

// execer covers *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (l *Ledger) markProcessedTx(ctx context.Context, ex execer, rec domain.ProcessedTrade) error {
	processedAt := rec.ProcessedAt
	if processedAt == 0 {
		processedAt = time.Now().UnixMicro()
	}

	_, err := ex.ExecContext(ctx,
		"INSERT INTO processed_trades (order_id, kind, symbol, amount, side, processed_at) VALUES (?, ?, ?, ?, ?, ?)",
		rec.OrderID, string(rec.Kind), rec.Symbol, rec.Amount.String(), string(rec.Side), processedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrAlreadyProcessed
		}
		return fmt.Errorf("failed to insert processed trade: %w", err)
	}
	return nil
}

// isUniqueViolation detects a primary-key conflict from the sqlite driver.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint")
}

// ApplyHoldingDelta atomically adjusts the holding for a symbol: buys add the
// amount, sells subtract it. The read-modify-write runs in one transaction so
// concurrent deltas for the same symbol never interleave.
func (l *Ledger) ApplyHoldingDelta(ctx context.Context, symbol string, amount decimal.Decimal, side domain.Side) error {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := applyHoldingDeltaTx(ctx, tx, symbol, amount, side); err != nil {
		return err
	}

	return tx.Commit()
}

func applyHoldingDeltaTx(ctx context.Context, tx *sql.Tx, symbol string, amount decimal.Decimal, side domain.Side) error {
	var current decimal.Decimal
	var stored string
	err := tx.QueryRowContext(ctx,
		"SELECT amount FROM holdings WHERE symbol = ?", symbol).Scan(&stored)
	switch {
	case err == sql.ErrNoRows:
		current = decimal.Zero
	case err != nil:
		return fmt.Errorf("failed to read holding: %w", err)
	default:
		current, err = decimal.NewFromString(stored)
		if err != nil {
			return fmt.Errorf("corrupt holding amount for %s: %w", symbol, err)
		}
	}

	var next decimal.Decimal
	if side == domain.SideBuy {
		next = current.Add(amount)
	} else {
		next = current.Sub(amount)
	}

	_, err = tx.ExecContext(ctx,
		"INSERT INTO holdings (symbol, amount) VALUES (?, ?) ON CONFLICT(symbol) DO UPDATE SET amount=excluded.amount",
		symbol, next.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert holding: %w", err)
	}
	return nil
}

// RecordAction commits the processed-trade fact and its holding delta in a
// single transaction, so a crash can never leave one without the other.
// Returns ErrAlreadyProcessed (with no delta applied) on a duplicate order id.
func (l *Ledger) RecordAction(ctx context.Context, rec domain.ProcessedTrade) error {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := l.markProcessedTx(ctx, tx, rec); err != nil {
		return err
	}
	if err := applyHoldingDeltaTx(ctx, tx, rec.Symbol, rec.Amount, rec.Side); err != nil {
		return err
	}

	return tx.Commit()
}

// Holding returns the current follower position for a symbol, zero if unseen.
func (l *Ledger) Holding(ctx context.Context, symbol string) (decimal.Decimal, error) {
	var stored string
	err := l.db.QueryRowContext(ctx,
		"SELECT amount FROM holdings WHERE symbol = ?", symbol).Scan(&stored)
	if err == sql.ErrNoRows {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to read holding: %w", err)
	}

	amount, err := decimal.NewFromString(stored)
	if err != nil {
		return decimal.Zero, fmt.Errorf("corrupt holding amount for %s: %w", symbol, err)
	}
	return amount, nil
}

// Holdings lists every tracked position, ordered by symbol.
// Used by bootstrap for the startup summary.
func (l *Ledger) Holdings(ctx context.Context) ([]domain.Holding, error) {
	rows, err := l.db.QueryContext(ctx,
		"SELECT symbol, amount FROM holdings ORDER BY symbol ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query holdings: %w", err)
	}
	defer rows.Close()

	var holdings []domain.Holding
	for rows.Next() {
		var symbol, stored string
		if err := rows.Scan(&symbol, &stored); err != nil {
			return nil, fmt.Errorf("failed to scan holding: %w", err)
		}
		amount, err := decimal.NewFromString(stored)
		if err != nil {
			return nil, fmt.Errorf("corrupt holding amount for %s: %w", symbol, err)
		}
		holdings = append(holdings, domain.Holding{Symbol: symbol, Amount: amount})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return holdings, nil
}

// Close closes the database connection.
func (l *Ledger) Close() error {
	return l.db.Close()
}
