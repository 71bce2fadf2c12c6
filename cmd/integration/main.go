package main

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"

	"github.com/karpushchenko/ccxt-trades-duplicator/internal/domain"
	"github.com/karpushchenko/ccxt-trades-duplicator/internal/engine"
	"github.com/karpushchenko/ccxt-trades-duplicator/internal/gateway"
	"github.com/karpushchenko/ccxt-trades-duplicator/internal/ledger"
)

// integration runs a scripted end-to-end scenario against the paper gateway:
// a lead buy, then a lead sell, through the real engine and a real sqlite
// ledger. No network, no credentials, safe to run anywhere.
func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)
	slog.Info("🚀 Starting paper integration scenario...")

	tmpDir, err := os.MkdirTemp("", "copier-integration-*")
	if err != nil {
		slog.Error("❌ Failed to create temp dir", slog.Any("error", err))
		os.Exit(1)
	}
	defer os.RemoveAll(tmpDir)

	led, err := ledger.Open(filepath.Join(tmpDir, "ledger.db"))
	if err != nil {
		slog.Error("❌ Failed to open ledger", slog.Any("error", err))
		os.Exit(1)
	}
	defer led.Close()

	gw := gateway.NewPaperGateway("USDT", decimal.NewFromInt(10_000))
	gw.SetPrice("BTC/USDT", decimal.NewFromInt(50_000))

	copier := engine.NewCopier(engine.Config{
		QuoteCurrency: "USDT",
		CopyFraction:  decimal.RequireFromString("0.10"),
		PollInterval:  500 * time.Millisecond,
		ErrorBackoff:  time.Second,
		TradePageSize: 10,
	}, gw, led)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		copier.Run(ctx)
		close(done)
	}()

	// STEP 1: lead buys 1 BTC; the follower should mirror 10% of its quote
	// balance, 1000 USDT -> 0.02 BTC at 50,000.
	slog.Info("STEP 1: Lead buys 1 BTC")
	gw.PushLeadTrade(leadTrade("scenario-buy-1", domain.SideBuy, "50000", "1"))
	time.Sleep(1200 * time.Millisecond)

	// STEP 2: lead sells a fraction; the follower liquidates everything.
	slog.Info("STEP 2: Lead sells 0.1 BTC")
	gw.PushLeadTrade(leadTrade("scenario-sell-1", domain.SideSell, "51000", "0.1"))
	time.Sleep(1200 * time.Millisecond)

	cancel()
	<-done

	fills := gw.Fills()
	slog.Info("Scenario finished", slog.Int("fills", len(fills)))
	for _, f := range fills {
		slog.Info("  fill",
			slog.String("side", string(f.Side)),
			slog.String("symbol", f.Symbol),
			slog.String("amount", f.FilledAmount.String()))
	}

	ok := true
	if len(fills) != 2 {
		slog.Error("❌ Expected 2 fills", slog.Int("got", len(fills)))
		ok = false
	}

	holding, err := led.Holding(context.Background(), "BTC/USDT")
	if err != nil {
		slog.Error("❌ Holding lookup failed", slog.Any("error", err))
		ok = false
	} else if !holding.IsZero() {
		slog.Error("❌ Expected flat position after sell", slog.String("holding", holding.String()))
		ok = false
	}

	diffs, err := ledger.NewReplayer(led).Verify(context.Background())
	if err != nil || len(diffs) != 0 {
		slog.Error("❌ Ledger audit failed", slog.Any("error", err), slog.Int("discrepancies", len(diffs)))
		ok = false
	}

	if !ok {
		os.Exit(1)
	}
	slog.Info("🎉 Integration scenario passed!")
}

func leadTrade(id string, side domain.Side, price, amount string) domain.LeadTrade {
	return domain.LeadTrade{
		OrderID:   id,
		Symbol:    "BTC/USDT",
		Side:      side,
		Price:     decimal.RequireFromString(price),
		Amount:    decimal.RequireFromString(amount),
		Timestamp: time.Now(),
	}
}
