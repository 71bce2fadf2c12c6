package okx

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"

	"github.com/karpushchenko/ccxt-trades-duplicator/internal/domain"
	"github.com/karpushchenko/ccxt-trades-duplicator/internal/infra"
)

const (
	ordersWSPingInterval = 25 * time.Second
	ordersWSReadTimeout  = 60 * time.Second
)

// OrdersStream pushes the lead account's filled orders over the private
// websocket channel, so the copier reacts between polls instead of waiting a
// full interval. Duplicates against the polled fills are harmless: the ledger
// makes reprocessing a no-op.
type OrdersStream struct {
	wsURL  string
	signer *Signer
	outbox chan<- domain.LeadTrade

	conn    *websocket.Conn
	mu      sync.RWMutex
	writeMu sync.Mutex
	// connCancel stops the goroutines tied to the current connection, so a
	// reconnect never leaves the previous pinger running.
	connCancel context.CancelFunc
	cancel     context.CancelFunc
	wg         sync.WaitGroup

	pingInterval time.Duration
}

// NewOrdersStream creates a stream worker that emits lead trades into outbox.
func NewOrdersStream(cfg *infra.Config, outbox chan<- domain.LeadTrade) *OrdersStream {
	return &OrdersStream{
		wsURL:        cfg.API.OKX.WSURL,
		signer:       NewSigner(cfg.API.OKX.AccessKey, cfg.API.OKX.SecretKey, cfg.API.OKX.Passphrase),
		outbox:       outbox,
		pingInterval: ordersWSPingInterval,
	}
}

// Connect starts the websocket connection with automatic reconnection.
func (w *OrdersStream) Connect(ctx context.Context) error {
	ctx, w.cancel = context.WithCancel(ctx)

	w.wg.Add(1)
	go w.connectionLoop(ctx)

	return nil
}

func (w *OrdersStream) connectionLoop(ctx context.Context) {
	defer w.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			slog.Error("OKX orders stream panic recovered", slog.Any("panic", r))
		}
	}()

	retryCount := 0
	for {
		select {
		case <-ctx.Done():
			slog.Info("OKX orders stream connection loop stopped")
			return
		default:
		}

		err := w.connect(ctx)
		if err != nil {
			slog.Warn("OKX orders stream connection failed",
				slog.Any("error", err),
				slog.Int("retry", retryCount),
			)

			delay := infra.CalculateBackoff(time.Second, retryCount)
			retryCount++

			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
				continue
			}
		}

		retryCount = 0
		w.readLoop(ctx)
	}
}

func (w *OrdersStream) connect(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}

	header := make(http.Header)

	conn, _, err := dialer.DialContext(ctx, w.wsURL, header)
	if err != nil {
		return fmt.Errorf("dial failed: %w", err)
	}

	connCtx, connCancel := context.WithCancel(ctx)

	w.mu.Lock()
	w.conn = conn
	w.connCancel = connCancel
	w.mu.Unlock()

	if err := w.login(); err != nil {
		w.closeConnection()
		return fmt.Errorf("login failed: %w", err)
	}

	go w.pingLoop(connCtx)

	slog.Info("OKX orders stream connected")
	return nil
}

// login authenticates and subscribes to the spot orders channel. The
// subscription is sent right after login; OKX replies with an error event if
// the login has not settled, which the read loop logs and the connection loop
// retries.
func (w *OrdersStream) login() error {
	apiKey, passphrase, timestamp, sign := w.signer.GenerateWSLogin()
	loginReq := wsLoginRequest{
		Op: "login",
		Args: []wsLoginArg{{
			APIKey:     apiKey,
			Passphrase: passphrase,
			Timestamp:  timestamp,
			Sign:       sign,
		}},
	}
	msg, err := json.Marshal(loginReq)
	if err != nil {
		return err
	}
	if err := w.threadSafeWrite(websocket.TextMessage, msg); err != nil {
		return err
	}

	subReq := wsSubscribeRequest{
		Op:   "subscribe",
		Args: []wsSubscribeArg{{Channel: "orders", InstType: "SPOT"}},
	}
	msg, err = json.Marshal(subReq)
	if err != nil {
		return err
	}
	return w.threadSafeWrite(websocket.TextMessage, msg)
}

func (w *OrdersStream) threadSafeWrite(messageType int, data []byte) error {
	w.writeMu.Lock()
	defer w.writeMu.Unlock()

	w.mu.RLock()
	conn := w.conn
	w.mu.RUnlock()

	if conn == nil {
		return fmt.Errorf("connection is nil")
	}

	return conn.WriteMessage(messageType, data)
}

// pingLoop keeps one connection alive. It is tied to that connection: it
// exits when the connection context is cancelled, the conn is gone, or a ping
// fails, never outliving its connection into the next one.
func (w *OrdersStream) pingLoop(ctx context.Context) {
	ticker := time.NewTicker(w.pingInterval)
	defer ticker.Stop()
	defer func() {
		if r := recover(); r != nil {
			slog.Error("OKX orders stream pingLoop panic recovered", slog.Any("panic", r))
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.mu.RLock()
			conn := w.conn
			w.mu.RUnlock()
			if conn == nil {
				return
			}

			if err := w.threadSafeWrite(websocket.TextMessage, []byte("ping")); err != nil {
				slog.Warn("OKX orders stream ping failed", slog.Any("error", err))
				w.closeConnection()
				return
			}
		}
	}
}

func (w *OrdersStream) readLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		w.mu.RLock()
		conn := w.conn
		w.mu.RUnlock()

		if conn == nil {
			return
		}

		conn.SetReadDeadline(time.Now().Add(ordersWSReadTimeout))
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Warn("OKX orders stream read error", slog.Any("error", err))
			}
			w.closeConnection()
			return
		}

		if string(message) == "pong" {
			continue
		}

		w.handleMessage(message)
	}
}

func (w *OrdersStream) handleMessage(message []byte) {
	var resp wsOrdersResponse
	if err := json.Unmarshal(message, &resp); err != nil {
		return
	}

	if resp.Event == "error" {
		slog.Warn("OKX orders stream error event",
			slog.String("code", resp.Code), slog.String("msg", resp.Msg))
		return
	}

	if resp.Arg.Channel != "orders" || len(resp.Data) == 0 {
		return
	}

	for _, o := range resp.Data {
		// Only fully filled orders become lead trades.
		if o.State != "filled" {
			continue
		}

		price, err := decimal.NewFromString(o.AvgPx)
		if err != nil {
			continue
		}
		amount, err := decimal.NewFromString(o.AccFillSz)
		if err != nil {
			continue
		}

		var ts time.Time
		if ms, err := strconv.ParseInt(o.FillTime, 10, 64); err == nil {
			ts = time.UnixMilli(ms)
		}

		trade := domain.LeadTrade{
			OrderID:   o.OrdID,
			Symbol:    instIDToSymbol(o.InstID),
			Side:      domain.Side(o.Side),
			Price:     price,
			Amount:    amount,
			Timestamp: ts,
		}

		select {
		case w.outbox <- trade:
		default:
			slog.Warn("OKX orders stream outbox full, dropping trade",
				slog.String("ordId", o.OrdID))
		}
	}
}

func (w *OrdersStream) closeConnection() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.connCancel != nil {
		w.connCancel()
		w.connCancel = nil
	}
	if w.conn != nil {
		w.conn.Close()
		w.conn = nil
	}
}

// Disconnect closes the connection.
func (w *OrdersStream) Disconnect() {
	if w.cancel != nil {
		w.cancel()
	}
	w.closeConnection()
	w.wg.Wait()
	w.signer.Wipe()
	slog.Info("OKX orders stream disconnected")
}
