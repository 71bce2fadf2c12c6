package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/karpushchenko/ccxt-trades-duplicator/internal/infra"
	"github.com/karpushchenko/ccxt-trades-duplicator/internal/ledger"
)

// audit replays the processed-trades log and checks it against the holdings
// table. Run it after a crash or before switching to real mode.
//
//	audit [path/to/ledger.db]
func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	dbPath := ""
	if len(os.Args) > 1 {
		dbPath = os.Args[1]
	} else {
		cfg, err := infra.LoadConfig(infra.ResolveConfigPath())
		if err != nil {
			slog.Error("❌ Failed to load config, pass the ledger path as an argument", slog.Any("error", err))
			os.Exit(1)
		}
		dbPath = cfg.Storage.DBPath
		if dbPath == "" {
			mode := strings.ToLower(cfg.Trading.Mode)
			dbPath = filepath.Join(infra.GetWorkspaceDir(), "data", mode, "ledger.db")
		}
	}

	led, err := ledger.Open(dbPath)
	if err != nil {
		slog.Error("❌ Failed to open ledger", slog.Any("error", err))
		os.Exit(1)
	}
	defer led.Close()

	slog.Info("🔍 Auditing ledger", "path", dbPath)

	ctx := context.Background()
	diffs, err := ledger.NewReplayer(led).Verify(ctx)
	if err != nil {
		slog.Error("❌ Replay failed", slog.Any("error", err))
		os.Exit(1)
	}

	if len(diffs) == 0 {
		slog.Info("✅ Ledger is consistent: holdings match the replayed log")
		return
	}

	for _, d := range diffs {
		fmt.Printf("⚠️  %s: holdings table says %s, log replays to %s\n",
			d.Symbol, d.Stored, d.Replayed)
	}
	os.Exit(1)
}
