package app

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/karpushchenko/ccxt-trades-duplicator/internal/infra"
	"github.com/karpushchenko/ccxt-trades-duplicator/internal/ledger"
)

// Bootstrap orchestrates the application startup sequence.
type Bootstrap struct {
	Config *infra.Config
	Ledger *ledger.Ledger

	unlock func()
}

// NewBootstrap creates a new Bootstrap instance.
func NewBootstrap() *Bootstrap {
	return &Bootstrap{}
}

// Initialize loads config, sets up logging, acquires the instance lock and
// opens the ledger.
func (b *Bootstrap) Initialize() error {
	slog.Info("🚀 Bootstrapping trade copier...")

	cfg, err := infra.LoadConfig(infra.ResolveConfigPath())
	if err != nil {
		return err
	}
	b.Config = cfg

	logger := infra.NewLogger(cfg)
	slog.SetDefault(logger)

	// Data isolation per mode: a paper run never touches the real ledger.
	mode := strings.ToLower(cfg.Trading.Mode)

	workDir := infra.GetWorkspaceDir()
	dataDir := filepath.Join(workDir, "data", mode)
	if err := infra.EnsureDir(dataDir); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}

	// A second copier process sharing the ledger would break the
	// single-writer assumption and double-execute trades.
	unlock, err := infra.CreateLockFile(workDir)
	if err != nil {
		return err
	}
	b.unlock = unlock

	dbPath := cfg.Storage.DBPath
	if dbPath == "" {
		dbPath = filepath.Join(dataDir, "ledger.db")
	}

	led, err := ledger.Open(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open ledger: %w", err)
	}
	b.Ledger = led
	slog.Info("✅ Ledger opened (WAL-mode)", "path", dbPath, "mode", mode)

	return nil
}

// LogHoldings prints the persisted positions, so a restart shows what the
// copier believes it holds before any new order goes out.
func (b *Bootstrap) LogHoldings(ctx context.Context) {
	holdings, err := b.Ledger.Holdings(ctx)
	if err != nil {
		slog.Warn("Failed to read holdings summary", slog.Any("error", err))
		return
	}

	if len(holdings) == 0 {
		slog.Info("📒 No tracked holdings")
		return
	}

	for _, h := range holdings {
		slog.Info("📒 Holding",
			slog.String("symbol", h.Symbol),
			slog.String("amount", h.Amount.String()))
	}
}

// Shutdown releases resources acquired during Initialize.
func (b *Bootstrap) Shutdown() {
	if b.Ledger != nil {
		if err := b.Ledger.Close(); err != nil {
			slog.Warn("Ledger close failed", slog.Any("error", err))
		}
	}
	if b.unlock != nil {
		b.unlock()
	}
}
