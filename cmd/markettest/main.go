package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
)

// markettest is a connectivity check against OKX public endpoints. No
// credentials involved; if this fails, the copier's REST client will too.
func main() {
	fmt.Println("=== OKX Public API Connectivity Check ===")
	fmt.Println()

	for _, instID := range []string{"BTC-USDT", "ETH-USDT"} {
		ticker := fetchTicker(instID)
		fmt.Printf("📊 %s\n", instID)
		fmt.Printf("   Last price: %s\n", ticker.Last)
		fmt.Printf("   24h volume: %s\n", ticker.Vol24h)
		fmt.Println()
	}

	base, quote := fetchInstrument("BTC-USDT")
	fmt.Printf("🔎 BTC-USDT instrument: base=%s quote=%s\n", base, quote)
	fmt.Println()
	fmt.Println("✅ OKX public API reachable")
}

type tickerResult struct {
	Last   decimal.Decimal
	Vol24h decimal.Decimal
}

var httpClient = &http.Client{Timeout: 10 * time.Second}

func fetchTicker(instID string) tickerResult {
	resp, err := httpClient.Get("https://www.okx.com/api/v5/market/ticker?instId=" + instID)
	if err != nil {
		fmt.Printf("   ERROR: %v\n", err)
		return tickerResult{}
	}
	defer resp.Body.Close()

	var payload struct {
		Data []struct {
			Last   string `json:"last"`
			Vol24h string `json:"vol24h"`
		} `json:"data"`
	}
	json.NewDecoder(resp.Body).Decode(&payload)

	if len(payload.Data) == 0 {
		fmt.Println("   NO_DATA")
		return tickerResult{}
	}

	last, _ := decimal.NewFromString(payload.Data[0].Last)
	vol, _ := decimal.NewFromString(payload.Data[0].Vol24h)
	return tickerResult{Last: last, Vol24h: vol}
}

func fetchInstrument(instID string) (base, quote string) {
	resp, err := httpClient.Get("https://www.okx.com/api/v5/public/instruments?instType=SPOT&instId=" + instID)
	if err != nil {
		fmt.Printf("   ERROR: %v\n", err)
		return "", ""
	}
	defer resp.Body.Close()

	var payload struct {
		Data []struct {
			BaseCcy  string `json:"baseCcy"`
			QuoteCcy string `json:"quoteCcy"`
		} `json:"data"`
	}
	json.NewDecoder(resp.Body).Decode(&payload)

	if len(payload.Data) == 0 {
		return "", ""
	}
	return payload.Data[0].BaseCcy, payload.Data[0].QuoteCcy
}
