package gateway

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/karpushchenko/ccxt-trades-duplicator/internal/gateway/okx"
	"github.com/karpushchenko/ccxt-trades-duplicator/internal/infra"
)

// Mode represents the gateway mode.
type Mode string

const (
	ModePaper Mode = "paper"
	ModeReal  Mode = "real"
)

// paperInitialBalance seeds the virtual account in paper mode.
var paperInitialBalance = decimal.NewFromInt(10_000)

// New returns the Gateway implementation selected by config.
func New(cfg *infra.Config) (Gateway, error) {
	mode := Mode(strings.ToLower(cfg.Trading.Mode))

	slog.Info("Initializing exchange gateway", "mode", mode)

	switch mode {
	case ModePaper:
		return NewPaperGateway(cfg.Trading.QuoteCurrency, paperInitialBalance), nil

	case ModeReal:
		// SAFETY LATCH: real orders spend real money.
		if os.Getenv("CONFIRM_REAL_MONEY") != "true" {
			return nil, fmt.Errorf("SAFETY_GUARD: real mode requires 'CONFIRM_REAL_MONEY=true' environment variable")
		}

		slog.Warn("🚨 Connecting to OKX with REAL credentials 🚨")
		return okx.NewClient(cfg), nil

	default:
		return nil, fmt.Errorf("unknown gateway mode: %s", cfg.Trading.Mode)
	}
}
