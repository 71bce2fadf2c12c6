package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/karpushchenko/ccxt-trades-duplicator/internal/domain"
	"github.com/karpushchenko/ccxt-trades-duplicator/internal/gateway"
	"github.com/karpushchenko/ccxt-trades-duplicator/internal/infra"
	"github.com/karpushchenko/ccxt-trades-duplicator/internal/ledger"
)

// Ledger is the durable store the copier records outcomes in.
type Ledger interface {
	ProcessedChecker
	MarkProcessed(ctx context.Context, rec domain.ProcessedTrade) error
	RecordAction(ctx context.Context, rec domain.ProcessedTrade) error
	Holding(ctx context.Context, symbol string) (decimal.Decimal, error)
}

// Config carries the tunables the copier consumes.
type Config struct {
	QuoteCurrency string
	CopyFraction  decimal.Decimal
	PollInterval  time.Duration
	ErrorBackoff  time.Duration
	TradePageSize int
}

// Copier is the reconciliation engine: it polls the gateway for recent lead
// trades, classifies them, sizes and submits mirrored orders, and records
// every outcome in the ledger so a restart never double-executes.
//
// A single worker runs the loop; order submission is sequential on purpose:
// two concurrent buys would both read the same stale balance and over-spend.
type Copier struct {
	cfg        Config
	gw         gateway.Gateway
	ledger     Ledger
	sizer      *PositionSizer
	classifier *Classifier
	breaker    *infra.CircuitBreaker

	// Optional low-latency feed of lead trades (websocket). Drained between
	// cycles; duplicates against polling are harmless by ledger idempotency.
	stream <-chan domain.LeadTrade
}

// NewCopier wires the engine together.
func NewCopier(cfg Config, gw gateway.Gateway, led Ledger) *Copier {
	return &Copier{
		cfg:        cfg,
		gw:         gw,
		ledger:     led,
		sizer:      NewPositionSizer(cfg.CopyFraction),
		classifier: NewClassifier(led, gw, cfg.QuoteCurrency),
		breaker:    infra.NewDefaultCircuitBreaker("exchange"),
	}
}

// WithStream attaches a lead-trade feed drained between polling cycles.
func (c *Copier) WithStream(stream <-chan domain.LeadTrade) *Copier {
	c.stream = stream
	return c
}

// Run executes the polling loop until ctx is cancelled. Cycle-level errors
// are logged and retried with bounded backoff; the loop never terminates on
// them.
func (c *Copier) Run(ctx context.Context) {
	slog.Info("📡 Copy engine started",
		slog.String("quote", c.cfg.QuoteCurrency),
		slog.String("fraction", c.cfg.CopyFraction.String()),
		slog.Duration("interval", c.cfg.PollInterval))

	retryCount := 0
	for {
		delay := c.cfg.PollInterval

		if err := c.runCycle(ctx); err != nil {
			if ctx.Err() != nil {
				break
			}
			delay = infra.CalculateBackoff(c.cfg.ErrorBackoff, retryCount)
			retryCount++
			slog.Error("Cycle failed, backing off",
				slog.Any("error", err),
				slog.Duration("delay", delay))
		} else {
			retryCount = 0
		}

		if !c.sleep(ctx, delay) {
			break
		}
	}

	slog.Info("📡 Copy engine stopped")
}

// sleep waits out the delay while draining the stream, if any.
// Returns false when ctx is cancelled.
func (c *Copier) sleep(ctx context.Context, delay time.Duration) bool {
	timer := time.NewTimer(delay)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return false
		case trade, ok := <-c.stream:
			if !ok {
				c.stream = nil
				continue
			}
			c.handleStreamed(ctx, trade)
		case <-timer.C:
			return true
		}
	}
}

// runCycle performs one poll: balance, recent trades, then each trade in
// chronological order.
func (c *Copier) runCycle(ctx context.Context) error {
	if !c.breaker.Allow() {
		return infra.ErrBreakerOpen
	}

	balance, err := c.gw.FetchAvailableBalance(ctx, c.cfg.QuoteCurrency)
	if err != nil {
		c.breaker.MarkFailure()
		return fmt.Errorf("balance fetch failed: %w", err)
	}

	trades, err := c.gw.FetchRecentTrades(ctx, c.cfg.TradePageSize)
	if err != nil {
		c.breaker.MarkFailure()
		return fmt.Errorf("trade fetch failed: %w", err)
	}
	c.breaker.MarkSuccess()

	slog.Debug("Cycle",
		slog.String("balance", balance.String()),
		slog.Int("trades", len(trades)))

	// Exchanges return newest-first; act on earlier trades before later ones.
	for i := len(trades) - 1; i >= 0; i-- {
		// Shutdown must be observable between trades, not only between cycles.
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := c.processTrade(ctx, trades[i], balance); err != nil {
			return err
		}
	}

	return nil
}

// handleStreamed copies one trade pushed by the websocket feed. Balance is
// fetched per trade since no cycle snapshot exists. Failures are logged and
// left for the next polling cycle to retry.
func (c *Copier) handleStreamed(ctx context.Context, trade domain.LeadTrade) {
	balance, err := c.gw.FetchAvailableBalance(ctx, c.cfg.QuoteCurrency)
	if err != nil {
		slog.Warn("Streamed trade deferred to next cycle: balance fetch failed",
			slog.String("orderId", trade.OrderID),
			slog.Any("error", err))
		return
	}

	if err := c.processTrade(ctx, trade, balance); err != nil {
		slog.Warn("Streamed trade deferred to next cycle",
			slog.String("orderId", trade.OrderID),
			slog.Any("error", err))
	}
}

// processTrade classifies and, when eligible, mirrors one lead trade.
// Order-level failures are contained here (logged, trade left unprocessed for
// retry); only infrastructure errors propagate and abort the cycle.
func (c *Copier) processTrade(ctx context.Context, trade domain.LeadTrade, balance decimal.Decimal) error {
	decision, err := c.classifier.Classify(ctx, trade)
	if err != nil {
		return err
	}

	switch decision {
	case DecisionSkipProcessed:
		// Routine: pages overlap across cycles by design.
		return nil
	case DecisionSkipMarket:
		slog.Warn("Skipping unsupported market",
			slog.String("orderId", trade.OrderID),
			slog.String("symbol", trade.Symbol))
		return nil
	case DecisionSkipSide:
		slog.Warn("Skipping unrecognized side",
			slog.String("orderId", trade.OrderID),
			slog.String("side", string(trade.Side)))
		return nil
	}

	slog.Info("Processing lead trade",
		slog.String("orderId", trade.OrderID),
		slog.String("symbol", trade.Symbol),
		slog.String("side", string(trade.Side)),
		slog.String("price", trade.Price.String()),
		slog.String("amount", trade.Amount.String()))

	var actErr error
	switch trade.Side {
	case domain.SideBuy:
		actErr = c.copyBuy(ctx, trade, balance)
	case domain.SideSell:
		actErr = c.copySell(ctx, trade)
	}

	if actErr != nil {
		if domain.IsOrderError(actErr) {
			// Contained: the lead trade stays unprocessed and is retried
			// next cycle.
			slog.Error("Order placement failed, will retry next cycle",
				slog.String("orderId", trade.OrderID),
				slog.Any("error", actErr))
			return nil
		}
		return actErr
	}

	// Mark the lead trade itself so it is never re-evaluated, even though the
	// mirrored order got its own id.
	err = c.ledger.MarkProcessed(ctx, domain.ProcessedTrade{
		OrderID: trade.OrderID,
		Kind:    domain.KindLeadTrade,
		Symbol:  trade.Symbol,
		Amount:  trade.Amount,
		Side:    trade.Side,
	})
	if err != nil && !errors.Is(err, ledger.ErrAlreadyProcessed) {
		return fmt.Errorf("failed to mark lead trade processed: %w", err)
	}

	return nil
}

// copyBuy sizes and submits the mirrored buy, then records the follower order
// and holding delta atomically.
func (c *Copier) copyBuy(ctx context.Context, trade domain.LeadTrade, balance decimal.Decimal) error {
	amount, err := c.sizer.BuyAmount(balance, trade.Price)
	if err != nil {
		return err
	}

	slog.Info("Placing mirrored buy",
		slog.String("symbol", trade.Symbol),
		slog.String("amount", amount.String()),
		slog.String("spend", balance.Mul(c.cfg.CopyFraction).String()+" "+c.cfg.QuoteCurrency))

	result, err := c.gw.PlaceMarketOrder(ctx, trade.Symbol, domain.SideBuy, amount)
	if err != nil {
		return err
	}

	return c.recordFollowerOrder(ctx, result)
}

// copySell liquidates the entire mirrored holding. The lead trade's own sold
// quantity is deliberately ignored: the copier mirrors direction, not size.
func (c *Copier) copySell(ctx context.Context, trade domain.LeadTrade) error {
	holding, err := c.ledger.Holding(ctx, trade.Symbol)
	if err != nil {
		return fmt.Errorf("holding lookup failed: %w", err)
	}

	if holding.LessThanOrEqual(decimal.Zero) {
		slog.Info("No holdings to sell",
			slog.String("symbol", trade.Symbol),
			slog.String("orderId", trade.OrderID))
		return nil
	}

	slog.Info("Placing mirrored sell (full holding)",
		slog.String("symbol", trade.Symbol),
		slog.String("amount", holding.String()))

	result, err := c.gw.PlaceMarketOrder(ctx, trade.Symbol, domain.SideSell, holding)
	if err != nil {
		return err
	}

	return c.recordFollowerOrder(ctx, result)
}

// recordFollowerOrder commits the follower order fact and its holding delta in
// one transaction. A duplicate id means a retry raced an earlier success: the
// action is already recorded, so it is treated as success.
func (c *Copier) recordFollowerOrder(ctx context.Context, result domain.OrderResult) error {
	// An accepted-but-unfilled order must not move the holdings; the trade
	// stays unprocessed and the next cycle tries again.
	if !result.Filled() {
		return fmt.Errorf("%w: order %s not filled, status %s",
			domain.ErrExchangeRejected, result.OrderID, result.Status)
	}

	err := c.ledger.RecordAction(ctx, domain.ProcessedTrade{
		OrderID: result.OrderID,
		Kind:    domain.KindFollowerOrder,
		Symbol:  result.Symbol,
		Amount:  result.FilledAmount,
		Side:    result.Side,
	})
	if err != nil && !errors.Is(err, ledger.ErrAlreadyProcessed) {
		return fmt.Errorf("failed to record follower order: %w", err)
	}

	slog.Info("Mirrored order recorded",
		slog.String("followerOrderId", result.OrderID),
		slog.String("symbol", result.Symbol),
		slog.String("side", string(result.Side)),
		slog.String("amount", result.FilledAmount.String()))

	return nil
}
