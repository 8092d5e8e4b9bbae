package woofi

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"
)

func TestSigner_Headers(t *testing.T) {
	s := NewSigner("key-1", "secret-1")

	headers := s.headersAt("1700000000000", "POST", "/v1/order", `{"symbol":"PERP_BTC_USDC"}`)

	if headers["x-api-key"] != "key-1" {
		t.Errorf("expected api key header, got %q", headers["x-api-key"])
	}
	if headers["x-api-timestamp"] != "1700000000000" {
		t.Errorf("unexpected timestamp header %q", headers["x-api-timestamp"])
	}

	mac := hmac.New(sha256.New, []byte("secret-1"))
	mac.Write([]byte(`1700000000000POST/v1/order{"symbol":"PERP_BTC_USDC"}`))
	want := hex.EncodeToString(mac.Sum(nil))

	if headers["x-api-signature"] != want {
		t.Errorf("signature mismatch:\n got %s\nwant %s", headers["x-api-signature"], want)
	}
}

func TestSigner_Wipe(t *testing.T) {
	s := NewSigner("key", "secret")
	s.Wipe()

	for _, b := range s.apiSecret {
		if b != 0 {
			t.Fatal("secret not wiped")
		}
	}
}

func TestFormatNumber(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{100.5, "100.5"},
		{0.001, "0.001"},
		{42, "42"},
	}
	for _, c := range cases {
		if got := formatNumber(c.in); got != c.want {
			t.Errorf("formatNumber(%v) = %q, want %q", c.in, got, c.want)
		}
	}
}
