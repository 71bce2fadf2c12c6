package okx

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"strconv"
	"testing"
)

func signWith(secret, payload string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(payload))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func TestSigner_GenerateHeaders(t *testing.T) {
	signer := NewSigner("my_key", "my_secret", "my_pass")

	headers := signer.GenerateHeaders("GET", "/api/v5/account/balance?ccy=USDT", "")

	if headers["OK-ACCESS-KEY"] != "my_key" {
		t.Errorf("access key = %s, want my_key", headers["OK-ACCESS-KEY"])
	}
	if headers["OK-ACCESS-PASSPHRASE"] != "my_pass" {
		t.Errorf("passphrase = %s, want my_pass", headers["OK-ACCESS-PASSPHRASE"])
	}
	if headers["Content-Type"] != "application/json" {
		t.Errorf("content type = %s", headers["Content-Type"])
	}

	// The signature must cover timestamp + method + path + body with the
	// timestamp the header carries.
	ts := headers["OK-ACCESS-TIMESTAMP"]
	if ts == "" {
		t.Fatal("missing timestamp header")
	}
	want := signWith("my_secret", ts+"GET"+"/api/v5/account/balance?ccy=USDT")
	if headers["OK-ACCESS-SIGN"] != want {
		t.Errorf("signature mismatch:\n got %s\nwant %s", headers["OK-ACCESS-SIGN"], want)
	}
}

func TestSigner_GenerateHeadersWithBody(t *testing.T) {
	signer := NewSigner("k", "s", "p")
	body := `{"instId":"BTC-USDT"}`

	headers := signer.GenerateHeaders("POST", "/api/v5/trade/order", body)

	ts := headers["OK-ACCESS-TIMESTAMP"]
	want := signWith("s", ts+"POST"+"/api/v5/trade/order"+body)
	if headers["OK-ACCESS-SIGN"] != want {
		t.Errorf("signature does not cover the request body")
	}
}

func TestSigner_GenerateWSLogin(t *testing.T) {
	signer := NewSigner("k", "s", "p")

	apiKey, passphrase, timestamp, sign := signer.GenerateWSLogin()

	if apiKey != "k" || passphrase != "p" {
		t.Errorf("credentials = %s/%s, want k/p", apiKey, passphrase)
	}
	// Websocket login signs unix seconds, not ISO8601.
	if _, err := strconv.ParseInt(timestamp, 10, 64); err != nil {
		t.Errorf("ws timestamp %q is not unix seconds", timestamp)
	}
	want := signWith("s", timestamp+"GET"+"/users/self/verify")
	if sign != want {
		t.Errorf("ws signature mismatch:\n got %s\nwant %s", sign, want)
	}
}

func TestSigner_Wipe(t *testing.T) {
	signer := NewSigner("key", "secret", "pass")
	signer.Wipe()

	for _, b := range [][]byte{signer.accessKey, signer.secretKey, signer.passphrase} {
		for i, c := range b {
			if c != 0 {
				t.Fatalf("byte %d not wiped", i)
			}
		}
	}

	// Wiping a nil signer must not panic.
	var nilSigner *Signer
	nilSigner.Wipe()
}
