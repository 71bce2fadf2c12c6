package okx

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/karpushchenko/ccxt-trades-duplicator/internal/domain"
	"github.com/karpushchenko/ccxt-trades-duplicator/internal/infra"
)

// OKX error codes the copier cares about.
const (
	codeOK                = "0"
	codeInsufficientFunds = "51008"
)

// Client talks to the OKX V5 REST API for the follower account.
type Client struct {
	cfg        *infra.Config
	baseURL    string
	httpClient *http.Client
	signer     *Signer

	orderLimiter   *infra.RateLimiter
	accountLimiter *infra.RateLimiter

	// Instrument metadata rarely changes; cache it per symbol.
	marketMu sync.RWMutex
	markets  map[string]domain.Market
}

// NewClient creates a new OKX REST client from config.
func NewClient(cfg *infra.Config) *Client {
	return &Client{
		cfg:            cfg,
		baseURL:        strings.TrimRight(cfg.API.OKX.RestURL, "/"),
		httpClient:     &http.Client{Timeout: 10 * time.Second},
		signer:         NewSigner(cfg.API.OKX.AccessKey, cfg.API.OKX.SecretKey, cfg.API.OKX.Passphrase),
		orderLimiter:   infra.GetOKXOrderLimiter(),
		accountLimiter: infra.GetOKXAccountLimiter(),
		markets:        make(map[string]domain.Market),
	}
}

// Close wipes credentials from memory.
func (c *Client) Close() {
	c.signer.Wipe()
}

// FetchAvailableBalance returns the free balance of a currency.
func (c *Client) FetchAvailableBalance(ctx context.Context, currency string) (decimal.Decimal, error) {
	c.accountLimiter.Wait()

	path := "/api/v5/account/balance?ccy=" + currency
	data, err := c.doRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return decimal.Zero, err
	}

	var balances []balanceData
	if err := json.Unmarshal(data, &balances); err != nil {
		return decimal.Zero, fmt.Errorf("failed to parse balance response: %w", err)
	}

	for _, b := range balances {
		for _, d := range b.Details {
			if d.Ccy != currency {
				continue
			}
			avail, err := decimal.NewFromString(d.AvailBal)
			if err != nil {
				return decimal.Zero, fmt.Errorf("bad availBal %q: %w", d.AvailBal, err)
			}
			return avail, nil
		}
	}

	// No detail entry means no funds in that currency.
	return decimal.Zero, nil
}

// FetchRecentTrades returns the most recent spot fills of the lead account,
// newest first as OKX reports them.
func (c *Client) FetchRecentTrades(ctx context.Context, limit int) ([]domain.LeadTrade, error) {
	c.accountLimiter.Wait()

	path := "/api/v5/trade/fills?instType=SPOT&limit=" + strconv.Itoa(limit)
	data, err := c.doRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	var fills []fillData
	if err := json.Unmarshal(data, &fills); err != nil {
		return nil, fmt.Errorf("failed to parse fills response: %w", err)
	}

	trades := make([]domain.LeadTrade, 0, len(fills))
	for _, f := range fills {
		trade, err := fillToTrade(f)
		if err != nil {
			slog.Warn("Skipping unparseable fill", "ordId", f.OrdID, "error", err)
			continue
		}
		trades = append(trades, trade)
	}
	return trades, nil
}

func fillToTrade(f fillData) (domain.LeadTrade, error) {
	price, err := decimal.NewFromString(f.FillPx)
	if err != nil {
		return domain.LeadTrade{}, fmt.Errorf("bad fillPx %q: %w", f.FillPx, err)
	}
	amount, err := decimal.NewFromString(f.FillSz)
	if err != nil {
		return domain.LeadTrade{}, fmt.Errorf("bad fillSz %q: %w", f.FillSz, err)
	}

	var ts time.Time
	if ms, err := strconv.ParseInt(f.Ts, 10, 64); err == nil {
		ts = time.UnixMilli(ms)
	}

	return domain.LeadTrade{
		OrderID:   f.OrdID,
		Symbol:    instIDToSymbol(f.InstID),
		Side:      domain.Side(f.Side),
		Price:     price,
		Amount:    amount,
		Timestamp: ts,
	}, nil
}

// PlaceMarketOrder submits a spot market order. The size is always the base
// currency amount (tgtCcy=base_ccy for buys), matching how the copier sizes.
func (c *Client) PlaceMarketOrder(ctx context.Context, symbol string, side domain.Side, amount decimal.Decimal) (domain.OrderResult, error) {
	c.orderLimiter.Wait()

	req := orderRequest{
		InstID:  symbolToInstID(symbol),
		TdMode:  "cash",
		ClOrdID: clientOrderID(),
		Side:    string(side),
		OrdType: "market",
		Sz:      amount.String(),
	}
	if side == domain.SideBuy {
		// Market buys default to quote-currency sizing; we size in base.
		req.TgtCcy = "base_ccy"
	}

	body, err := json.Marshal(req)
	if err != nil {
		return domain.OrderResult{}, fmt.Errorf("failed to marshal order: %w", err)
	}

	data, err := c.doRequest(ctx, http.MethodPost, "/api/v5/trade/order", body)
	if err != nil {
		return domain.OrderResult{}, err
	}

	var orders []orderData
	if err := json.Unmarshal(data, &orders); err != nil {
		return domain.OrderResult{}, fmt.Errorf("failed to parse order response: %w", err)
	}
	if len(orders) == 0 {
		return domain.OrderResult{}, fmt.Errorf("%w: empty order response", domain.ErrExchangeRejected)
	}

	o := orders[0]
	if o.SCode != codeOK {
		return domain.OrderResult{}, mapOrderError(o.SCode, o.SMsg)
	}

	return domain.OrderResult{
		OrderID:      o.OrdID,
		Symbol:       symbol,
		Side:         side,
		FilledAmount: amount,
		Status:       domain.OrderStatusFilled,
	}, nil
}

// ResolveMarket returns instrument metadata, cached after the first lookup.
func (c *Client) ResolveMarket(ctx context.Context, symbol string) (domain.Market, error) {
	c.marketMu.RLock()
	if m, ok := c.markets[symbol]; ok {
		c.marketMu.RUnlock()
		return m, nil
	}
	c.marketMu.RUnlock()

	c.accountLimiter.Wait()

	path := "/api/v5/public/instruments?instType=SPOT&instId=" + symbolToInstID(symbol)
	data, err := c.doRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return domain.Market{}, err
	}

	var instruments []instrumentData
	if err := json.Unmarshal(data, &instruments); err != nil {
		return domain.Market{}, fmt.Errorf("failed to parse instruments response: %w", err)
	}
	if len(instruments) == 0 {
		return domain.Market{}, fmt.Errorf("%w: %s", domain.ErrUnknownMarket, symbol)
	}

	m := domain.Market{
		Symbol:        symbol,
		BaseCurrency:  instruments[0].BaseCcy,
		QuoteCurrency: instruments[0].QuoteCcy,
	}

	c.marketMu.Lock()
	c.markets[symbol] = m
	c.marketMu.Unlock()

	return m, nil
}

// doRequest signs and executes a request, unwraps the OKX envelope and
// returns the data payload.
func (c *Client) doRequest(ctx context.Context, method, requestPath string, body []byte) (json.RawMessage, error) {
	var reader io.Reader
	bodyStr := ""
	if len(body) > 0 {
		reader = bytes.NewReader(body)
		bodyStr = string(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+requestPath, reader)
	if err != nil {
		return nil, err
	}

	for k, v := range c.signer.GenerateHeaders(method, requestPath, bodyStr) {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("okx request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read okx response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("okx returned status %d: %s", resp.StatusCode, truncate(respBody, 200))
	}

	var envelope apiResponse
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return nil, fmt.Errorf("failed to parse okx envelope: %w", err)
	}
	if envelope.Code != codeOK {
		return nil, fmt.Errorf("okx error %s: %s", envelope.Code, envelope.Msg)
	}

	return envelope.Data, nil
}

func mapOrderError(sCode, sMsg string) error {
	if sCode == codeInsufficientFunds {
		return fmt.Errorf("%w: okx %s: %s", domain.ErrInsufficientFunds, sCode, sMsg)
	}
	return fmt.Errorf("%w: okx %s: %s", domain.ErrExchangeRejected, sCode, sMsg)
}

// clientOrderID mints an idempotency key for order submission. OKX requires
// alphanumeric up to 32 chars, so strip the uuid dashes.
func clientOrderID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// instIDToSymbol converts "BTC-USDT" to the unified "BTC/USDT".
func instIDToSymbol(instID string) string {
	return strings.Replace(instID, "-", "/", 1)
}

// symbolToInstID converts "BTC/USDT" to OKX's "BTC-USDT".
func symbolToInstID(symbol string) string {
	return strings.Replace(symbol, "/", "-", 1)
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
