package woofi

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// Signer handles WOOFi Pro request authentication. Keys are stored as
// []byte so they can be wiped from memory on shutdown.
type Signer struct {
	apiKey    []byte
	apiSecret []byte
}

// NewSigner creates a signer.
func NewSigner(apiKey, apiSecret string) *Signer {
	return &Signer{
		apiKey:    []byte(apiKey),
		apiSecret: []byte(apiSecret),
	}
}

// Wipe clears the keys from memory.
func (s *Signer) Wipe() {
	if s == nil {
		return
	}
	wipeSlice(s.apiKey)
	wipeSlice(s.apiSecret)
}

func wipeSlice(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// GenerateHeaders creates the auth headers for a request.
// Pre-signature string: timestamp + METHOD + path + body.
func (s *Signer) GenerateHeaders(method, path, body string) map[string]string {
	timestamp := fmt.Sprintf("%d", time.Now().UnixMilli())
	return s.headersAt(timestamp, method, path, body)
}

func (s *Signer) headersAt(timestamp, method, path, body string) map[string]string {
	payload := timestamp + method + path + body
	mac := hmac.New(sha256.New, s.apiSecret)
	mac.Write([]byte(payload))
	signature := hex.EncodeToString(mac.Sum(nil))

	return map[string]string{
		"x-api-key":       string(s.apiKey),
		"x-api-signature": signature,
		"x-api-timestamp": timestamp,
		"Content-Type":    "application/json",
	}
}
