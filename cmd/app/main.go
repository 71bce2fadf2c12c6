package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/karpushchenko/ccxt-trades-duplicator/internal/app"
	"github.com/karpushchenko/ccxt-trades-duplicator/internal/domain"
	"github.com/karpushchenko/ccxt-trades-duplicator/internal/engine"
	"github.com/karpushchenko/ccxt-trades-duplicator/internal/gateway"
	"github.com/karpushchenko/ccxt-trades-duplicator/internal/gateway/okx"
	"github.com/karpushchenko/ccxt-trades-duplicator/internal/infra"
)

func main() {
	bootstrap := app.NewBootstrap()
	if err := bootstrap.Initialize(); err != nil {
		slog.Error("❌ Bootstrapping failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer bootstrap.Shutdown()

	cfg := bootstrap.Config
	infra.PrintBanner(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bootstrap.LogHoldings(ctx)

	gw, err := gateway.New(cfg)
	if err != nil {
		slog.Error("❌ Gateway initialization failed", slog.Any("error", err))
		os.Exit(1)
	}

	copier := engine.NewCopier(engine.Config{
		QuoteCurrency: cfg.Trading.QuoteCurrency,
		CopyFraction:  cfg.CopyFraction(),
		PollInterval:  cfg.PollInterval(),
		ErrorBackoff:  cfg.ErrorBackoff(),
		TradePageSize: cfg.Trading.TradePageSize,
	}, gw, bootstrap.Ledger)

	// The private orders stream shortens reaction time between polls.
	// Real mode only: paper has no websocket to speak to.
	if cfg.API.OKX.UseFillsStream && strings.ToLower(cfg.Trading.Mode) == "real" {
		fills := make(chan domain.LeadTrade, 64)
		stream := okx.NewOrdersStream(cfg, fills)
		if err := stream.Connect(ctx); err != nil {
			slog.Error("Failed to start OKX orders stream", slog.Any("error", err))
		} else {
			defer stream.Disconnect()
			copier.WithStream(fills)
			slog.InfoContext(ctx, "✅ OKX orders stream started")
		}
	}

	slog.InfoContext(ctx, "✨ Trade copier fully operational. Press Ctrl+C to exit.")

	copier.Run(ctx)

	slog.InfoContext(ctx, "👋 Shutting down gracefully...")
}
