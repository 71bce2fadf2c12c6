package okx

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"strconv"
	"time"
)

// Signer handles OKX V5 API authentication.
// It stores keys as []byte to allow memory wiping.
type Signer struct {
	accessKey  []byte
	secretKey  []byte
	passphrase []byte
}

// NewSigner creates a new signer.
// It converts string inputs to []byte for internal safety.
func NewSigner(accessKey, secretKey, passphrase string) *Signer {
	return &Signer{
		accessKey:  []byte(accessKey),
		secretKey:  []byte(secretKey),
		passphrase: []byte(passphrase),
	}
}

// Wipe clears the keys from memory.
func (s *Signer) Wipe() {
	if s == nil {
		return
	}
	s.wipeSlice(s.accessKey)
	s.wipeSlice(s.secretKey)
	s.wipeSlice(s.passphrase)
}

func (s *Signer) wipeSlice(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// GenerateHeaders creates the required headers for OKX V5 REST requests.
// Pre-signature string: timestamp + method + requestPath + body, where
// requestPath includes the query string and timestamp is ISO8601 with millis.
func (s *Signer) GenerateHeaders(method, requestPath, body string) map[string]string {
	timestamp := time.Now().UTC().Format("2006-01-02T15:04:05.000Z")

	payload := timestamp + method + requestPath + body
	signature := s.computeHmacSha256(payload)

	return map[string]string{
		"OK-ACCESS-KEY":        string(s.accessKey),
		"OK-ACCESS-SIGN":       signature,
		"OK-ACCESS-TIMESTAMP":  timestamp,
		"OK-ACCESS-PASSPHRASE": string(s.passphrase),
		"Content-Type":         "application/json",
	}
}

// GenerateWSLogin returns the args for the websocket login op.
// The websocket variant signs unix seconds + "GET" + "/users/self/verify".
func (s *Signer) GenerateWSLogin() (apiKey, passphrase, timestamp, sign string) {
	timestamp = strconv.FormatInt(time.Now().Unix(), 10)
	sign = s.computeHmacSha256(timestamp + "GET" + "/users/self/verify")
	return string(s.accessKey), string(s.passphrase), timestamp, sign
}

func (s *Signer) computeHmacSha256(payload string) string {
	mac := hmac.New(sha256.New, s.secretKey)
	mac.Write([]byte(payload))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
