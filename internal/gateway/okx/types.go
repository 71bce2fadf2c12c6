package okx

import "encoding/json"

// apiResponse is the envelope every OKX V5 REST endpoint returns.
type apiResponse struct {
	Code string          `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

// balanceData is one entry of GET /api/v5/account/balance.
type balanceData struct {
	Details []struct {
		Ccy      string `json:"ccy"`
		AvailBal string `json:"availBal"`
	} `json:"details"`
}

// fillData is one entry of GET /api/v5/trade/fills.
type fillData struct {
	OrdID  string `json:"ordId"`
	InstID string `json:"instId"`
	Side   string `json:"side"`
	FillPx string `json:"fillPx"`
	FillSz string `json:"fillSz"`
	Ts     string `json:"ts"` // unix millis
}

// orderData is one entry of POST /api/v5/trade/order.
type orderData struct {
	OrdID   string `json:"ordId"`
	ClOrdID string `json:"clOrdId"`
	SCode   string `json:"sCode"`
	SMsg    string `json:"sMsg"`
}

// orderRequest is the body of POST /api/v5/trade/order.
type orderRequest struct {
	InstID  string `json:"instId"`
	TdMode  string `json:"tdMode"`
	ClOrdID string `json:"clOrdId"`
	Side    string `json:"side"`
	OrdType string `json:"ordType"`
	Sz      string `json:"sz"`
	TgtCcy  string `json:"tgtCcy,omitempty"`
}

// instrumentData is one entry of GET /api/v5/public/instruments.
type instrumentData struct {
	InstID   string `json:"instId"`
	BaseCcy  string `json:"baseCcy"`
	QuoteCcy string `json:"quoteCcy"`
}

// wsLoginRequest is the private-channel login op.
type wsLoginRequest struct {
	Op   string       `json:"op"`
	Args []wsLoginArg `json:"args"`
}

type wsLoginArg struct {
	APIKey     string `json:"apiKey"`
	Passphrase string `json:"passphrase"`
	Timestamp  string `json:"timestamp"`
	Sign       string `json:"sign"`
}

// wsSubscribeRequest subscribes to a private channel after login.
type wsSubscribeRequest struct {
	Op   string           `json:"op"`
	Args []wsSubscribeArg `json:"args"`
}

type wsSubscribeArg struct {
	Channel  string `json:"channel"`
	InstType string `json:"instType"`
}

// wsOrdersResponse is a push message from the orders channel.
type wsOrdersResponse struct {
	Event string `json:"event"`
	Code  string `json:"code"`
	Msg   string `json:"msg"`
	Arg   struct {
		Channel string `json:"channel"`
	} `json:"arg"`
	Data []struct {
		OrdID     string `json:"ordId"`
		InstID    string `json:"instId"`
		Side      string `json:"side"`
		State     string `json:"state"`
		AvgPx     string `json:"avgPx"`
		AccFillSz string `json:"accFillSz"`
		FillTime  string `json:"fillTime"`
		UTime     string `json:"uTime"`
	} `json:"data"`
}
