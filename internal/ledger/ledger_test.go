package ledger

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/karpushchenko/ccxt-trades-duplicator/internal/domain"
)

func openTestLedger(t *testing.T, dbPath string) *Ledger {
	t.Helper()
	t.Cleanup(func() {
		os.Remove(dbPath)
		os.Remove(dbPath + "-wal")
		os.Remove(dbPath + "-shm")
	})

	l, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Failed to open ledger: %v", err)
	}
	t.Cleanup(func() { l.Close() })
	return l
}

func TestLedger_MarkProcessed(t *testing.T) {
	l := openTestLedger(t, "test_mark.db")
	ctx := context.Background()

	rec := domain.ProcessedTrade{
		OrderID: "ord-1",
		Kind:    domain.KindLeadTrade,
		Symbol:  "BTC/USDT",
		Amount:  decimal.RequireFromString("0.002"),
		Side:    domain.SideBuy,
	}

	processed, err := l.IsProcessed(ctx, "ord-1")
	if err != nil {
		t.Fatalf("IsProcessed failed: %v", err)
	}
	if processed {
		t.Error("expected ord-1 to be unprocessed in a fresh ledger")
	}

	if err := l.MarkProcessed(ctx, rec); err != nil {
		t.Fatalf("MarkProcessed failed: %v", err)
	}

	processed, err = l.IsProcessed(ctx, "ord-1")
	if err != nil {
		t.Fatalf("IsProcessed failed: %v", err)
	}
	if !processed {
		t.Error("expected ord-1 to be processed after MarkProcessed")
	}

	// Second insert must report the duplicate, not silently double-record.
	if err := l.MarkProcessed(ctx, rec); !errors.Is(err, ErrAlreadyProcessed) {
		t.Errorf("expected ErrAlreadyProcessed, got %v", err)
	}
}

func TestLedger_ApplyHoldingDelta(t *testing.T) {
	l := openTestLedger(t, "test_delta.db")
	ctx := context.Background()

	// Unseen symbol starts at zero
	h, err := l.Holding(ctx, "BTC/USDT")
	if err != nil {
		t.Fatalf("Holding failed: %v", err)
	}
	if !h.IsZero() {
		t.Errorf("expected zero holding, got %s", h)
	}

	buy := decimal.RequireFromString("0.002")
	if err := l.ApplyHoldingDelta(ctx, "BTC/USDT", buy, domain.SideBuy); err != nil {
		t.Fatalf("ApplyHoldingDelta buy failed: %v", err)
	}

	h, err = l.Holding(ctx, "BTC/USDT")
	if err != nil {
		t.Fatalf("Holding failed: %v", err)
	}
	if !h.Equal(buy) {
		t.Errorf("expected 0.002, got %s", h)
	}

	// Buy more, then sell everything: holding returns to zero.
	if err := l.ApplyHoldingDelta(ctx, "BTC/USDT", decimal.RequireFromString("0.001"), domain.SideBuy); err != nil {
		t.Fatalf("ApplyHoldingDelta buy failed: %v", err)
	}
	if err := l.ApplyHoldingDelta(ctx, "BTC/USDT", decimal.RequireFromString("0.003"), domain.SideSell); err != nil {
		t.Fatalf("ApplyHoldingDelta sell failed: %v", err)
	}

	h, err = l.Holding(ctx, "BTC/USDT")
	if err != nil {
		t.Fatalf("Holding failed: %v", err)
	}
	if !h.IsZero() {
		t.Errorf("expected zero after full sell, got %s", h)
	}
}

func TestLedger_RecordAction_Atomic(t *testing.T) {
	l := openTestLedger(t, "test_record.db")
	ctx := context.Background()

	rec := domain.ProcessedTrade{
		OrderID: "follower-1",
		Kind:    domain.KindFollowerOrder,
		Symbol:  "ETH/USDT",
		Amount:  decimal.RequireFromString("0.5"),
		Side:    domain.SideBuy,
	}

	if err := l.RecordAction(ctx, rec); err != nil {
		t.Fatalf("RecordAction failed: %v", err)
	}

	h, err := l.Holding(ctx, "ETH/USDT")
	if err != nil {
		t.Fatalf("Holding failed: %v", err)
	}
	if !h.Equal(rec.Amount) {
		t.Errorf("expected 0.5, got %s", h)
	}

	// Replaying the same action must not double-count the holding.
	if err := l.RecordAction(ctx, rec); !errors.Is(err, ErrAlreadyProcessed) {
		t.Fatalf("expected ErrAlreadyProcessed, got %v", err)
	}

	h, err = l.Holding(ctx, "ETH/USDT")
	if err != nil {
		t.Fatalf("Holding failed: %v", err)
	}
	if !h.Equal(rec.Amount) {
		t.Errorf("holding changed on duplicate RecordAction: got %s, want %s", h, rec.Amount)
	}
}

func TestLedger_Holdings(t *testing.T) {
	l := openTestLedger(t, "test_holdings.db")
	ctx := context.Background()

	if err := l.ApplyHoldingDelta(ctx, "ETH/USDT", decimal.RequireFromString("1.5"), domain.SideBuy); err != nil {
		t.Fatalf("ApplyHoldingDelta failed: %v", err)
	}
	if err := l.ApplyHoldingDelta(ctx, "BTC/USDT", decimal.RequireFromString("0.01"), domain.SideBuy); err != nil {
		t.Fatalf("ApplyHoldingDelta failed: %v", err)
	}

	holdings, err := l.Holdings(ctx)
	if err != nil {
		t.Fatalf("Holdings failed: %v", err)
	}

	if len(holdings) != 2 {
		t.Fatalf("expected 2 holdings, got %d", len(holdings))
	}
	// Ordered by symbol
	if holdings[0].Symbol != "BTC/USDT" || holdings[1].Symbol != "ETH/USDT" {
		t.Errorf("unexpected order: %s, %s", holdings[0].Symbol, holdings[1].Symbol)
	}
}

func TestLedger_SurvivesReopen(t *testing.T) {
	dbPath := "test_reopen.db"
	defer os.Remove(dbPath)
	defer os.Remove(dbPath + "-wal")
	defer os.Remove(dbPath + "-shm")

	l, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Failed to open ledger: %v", err)
	}

	ctx := context.Background()
	rec := domain.ProcessedTrade{
		OrderID: "ord-persist",
		Kind:    domain.KindLeadTrade,
		Symbol:  "BTC/USDT",
		Amount:  decimal.RequireFromString("0.002"),
		Side:    domain.SideBuy,
	}
	if err := l.RecordAction(ctx, rec); err != nil {
		t.Fatalf("RecordAction failed: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	// Reopen: the facts must still be there.
	l2, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Failed to reopen ledger: %v", err)
	}
	defer l2.Close()

	processed, err := l2.IsProcessed(ctx, "ord-persist")
	if err != nil {
		t.Fatalf("IsProcessed failed: %v", err)
	}
	if !processed {
		t.Error("processed fact lost across reopen")
	}

	h, err := l2.Holding(ctx, "BTC/USDT")
	if err != nil {
		t.Fatalf("Holding failed: %v", err)
	}
	if !h.Equal(rec.Amount) {
		t.Errorf("holding lost across reopen: got %s, want %s", h, rec.Amount)
	}
}
