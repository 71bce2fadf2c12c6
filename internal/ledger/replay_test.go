package ledger

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/karpushchenko/ccxt-trades-duplicator/internal/domain"
)

func recordFollower(t *testing.T, l *Ledger, id, symbol, amount string, side domain.Side) {
	t.Helper()
	err := l.RecordAction(context.Background(), domain.ProcessedTrade{
		OrderID: id,
		Kind:    domain.KindFollowerOrder,
		Symbol:  symbol,
		Amount:  decimal.RequireFromString(amount),
		Side:    side,
	})
	if err != nil {
		t.Fatalf("RecordAction failed: %v", err)
	}
}

func TestReplayer_ReplayMatchesHoldings(t *testing.T) {
	l := openTestLedger(t, "test_replay.db")
	ctx := context.Background()

	recordFollower(t, l, "f-1", "BTC/USDT", "0.002", domain.SideBuy)
	recordFollower(t, l, "f-2", "BTC/USDT", "0.003", domain.SideBuy)
	recordFollower(t, l, "f-3", "ETH/USDT", "1.5", domain.SideBuy)
	recordFollower(t, l, "f-4", "BTC/USDT", "0.005", domain.SideSell)

	// Lead-trade rows are bookkeeping, not positions; they must not count.
	err := l.MarkProcessed(ctx, domain.ProcessedTrade{
		OrderID: "lead-1",
		Kind:    domain.KindLeadTrade,
		Symbol:  "BTC/USDT",
		Amount:  decimal.RequireFromString("7"),
		Side:    domain.SideBuy,
	})
	if err != nil {
		t.Fatalf("MarkProcessed failed: %v", err)
	}

	positions, err := NewReplayer(l).Replay(ctx)
	if err != nil {
		t.Fatalf("Replay failed: %v", err)
	}

	if !positions["BTC/USDT"].IsZero() {
		t.Errorf("BTC/USDT replayed = %s, want 0", positions["BTC/USDT"])
	}
	if !positions["ETH/USDT"].Equal(decimal.RequireFromString("1.5")) {
		t.Errorf("ETH/USDT replayed = %s, want 1.5", positions["ETH/USDT"])
	}

	diffs, err := NewReplayer(l).Verify(ctx)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if len(diffs) != 0 {
		t.Errorf("expected consistent ledger, got discrepancies: %+v", diffs)
	}
}

func TestReplayer_VerifyDetectsDrift(t *testing.T) {
	l := openTestLedger(t, "test_replay_drift.db")
	ctx := context.Background()

	recordFollower(t, l, "f-1", "BTC/USDT", "0.002", domain.SideBuy)

	// Simulate an out-of-band edit to the holdings cache.
	if err := l.ApplyHoldingDelta(ctx, "BTC/USDT", decimal.RequireFromString("0.001"), domain.SideBuy); err != nil {
		t.Fatalf("ApplyHoldingDelta failed: %v", err)
	}

	diffs, err := NewReplayer(l).Verify(ctx)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if len(diffs) != 1 {
		t.Fatalf("expected 1 discrepancy, got %d", len(diffs))
	}
	if diffs[0].Symbol != "BTC/USDT" {
		t.Errorf("discrepancy symbol = %s, want BTC/USDT", diffs[0].Symbol)
	}
	if !diffs[0].Stored.Equal(decimal.RequireFromString("0.003")) {
		t.Errorf("stored = %s, want 0.003", diffs[0].Stored)
	}
	if !diffs[0].Replayed.Equal(decimal.RequireFromString("0.002")) {
		t.Errorf("replayed = %s, want 0.002", diffs[0].Replayed)
	}
}
