package gateway

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/karpushchenko/ccxt-trades-duplicator/internal/domain"
)

func TestPaperGateway_BuyMovesBalances(t *testing.T) {
	gw := NewPaperGateway("USDT", decimal.NewFromInt(1000))
	gw.SetPrice("BTC/USDT", decimal.NewFromInt(50000))
	ctx := context.Background()

	result, err := gw.PlaceMarketOrder(ctx, "BTC/USDT", domain.SideBuy, decimal.RequireFromString("0.002"))
	if err != nil {
		t.Fatalf("PlaceMarketOrder failed: %v", err)
	}
	if result.OrderID == "" {
		t.Error("expected a generated order id")
	}

	usdt, _ := gw.FetchAvailableBalance(ctx, "USDT")
	if !usdt.Equal(decimal.NewFromInt(900)) {
		t.Errorf("USDT balance = %s, want 900", usdt)
	}
	btc, _ := gw.FetchAvailableBalance(ctx, "BTC")
	if !btc.Equal(decimal.RequireFromString("0.002")) {
		t.Errorf("BTC balance = %s, want 0.002", btc)
	}
}

func TestPaperGateway_SellRequiresHolding(t *testing.T) {
	gw := NewPaperGateway("USDT", decimal.NewFromInt(1000))
	gw.SetPrice("BTC/USDT", decimal.NewFromInt(50000))

	_, err := gw.PlaceMarketOrder(context.Background(), "BTC/USDT", domain.SideSell, decimal.NewFromInt(1))
	if !errors.Is(err, domain.ErrInsufficientFunds) {
		t.Errorf("expected ErrInsufficientFunds, got %v", err)
	}
}

func TestPaperGateway_BuyBeyondBalance(t *testing.T) {
	gw := NewPaperGateway("USDT", decimal.NewFromInt(10))
	gw.SetPrice("BTC/USDT", decimal.NewFromInt(50000))

	_, err := gw.PlaceMarketOrder(context.Background(), "BTC/USDT", domain.SideBuy, decimal.NewFromInt(1))
	if !errors.Is(err, domain.ErrInsufficientFunds) {
		t.Errorf("expected ErrInsufficientFunds, got %v", err)
	}
}

func TestPaperGateway_NoPriceRejects(t *testing.T) {
	gw := NewPaperGateway("USDT", decimal.NewFromInt(1000))

	_, err := gw.PlaceMarketOrder(context.Background(), "BTC/USDT", domain.SideBuy, decimal.NewFromInt(1))
	if !errors.Is(err, domain.ErrExchangeRejected) {
		t.Errorf("expected ErrExchangeRejected, got %v", err)
	}
}

func TestPaperGateway_RecentTradesNewestFirst(t *testing.T) {
	gw := NewPaperGateway("USDT", decimal.Zero)
	gw.PushLeadTrade(domain.LeadTrade{OrderID: "old", Symbol: "BTC/USDT", Side: domain.SideBuy})
	gw.PushLeadTrade(domain.LeadTrade{OrderID: "new", Symbol: "BTC/USDT", Side: domain.SideBuy})

	trades, err := gw.FetchRecentTrades(context.Background(), 10)
	if err != nil {
		t.Fatalf("FetchRecentTrades failed: %v", err)
	}
	if len(trades) != 2 {
		t.Fatalf("got %d trades, want 2", len(trades))
	}
	if trades[0].OrderID != "new" || trades[1].OrderID != "old" {
		t.Errorf("order = %s,%s; want new,old", trades[0].OrderID, trades[1].OrderID)
	}

	// Limit truncates to the newest entries.
	trades, err = gw.FetchRecentTrades(context.Background(), 1)
	if err != nil {
		t.Fatalf("FetchRecentTrades failed: %v", err)
	}
	if len(trades) != 1 || trades[0].OrderID != "new" {
		t.Errorf("limited fetch = %+v, want just the newest", trades)
	}
}

func TestPaperGateway_ResolveMarket(t *testing.T) {
	gw := NewPaperGateway("USDT", decimal.Zero)
	ctx := context.Background()

	m, err := gw.ResolveMarket(ctx, "BTC/USDT")
	if err != nil {
		t.Fatalf("ResolveMarket failed: %v", err)
	}
	if m.BaseCurrency != "BTC" || m.QuoteCurrency != "USDT" {
		t.Errorf("unexpected market: %+v", m)
	}

	if _, err := gw.ResolveMarket(ctx, "BTCUSDT"); !errors.Is(err, domain.ErrUnknownMarket) {
		t.Errorf("expected ErrUnknownMarket for symbol without separator, got %v", err)
	}
}
