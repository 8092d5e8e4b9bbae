package execution

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"perp_patrol/internal/infra"
	"perp_patrol/internal/infra/woofi"
)

// Mode selects the exchange connectivity variant at startup. The
// choice is made once; nothing re-checks credentials per call.
type Mode string

const (
	ModeSim  Mode = "SIM"
	ModeLive Mode = "LIVE"
)

// Factory builds the ExchangeClient for the configured mode.
type Factory struct {
	config *infra.Config
}

// NewFactory creates a factory.
func NewFactory(cfg *infra.Config) *Factory {
	return &Factory{config: cfg}
}

// CreateClient returns the exchange client for the configured mode.
// LIVE mode requires credentials and the CONFIRM_LIVE_TRADING latch.
func (f *Factory) CreateClient() (ExchangeClient, error) {
	mode := Mode(f.config.Trading.Mode)

	slog.Info("initializing exchange client", "mode", mode)

	switch mode {
	case ModeSim:
		return NewSimClient(0.15, time.Now().UnixNano()), nil

	case ModeLive:
		if !f.config.Credentials.Set() {
			return nil, fmt.Errorf("LIVE mode requires WOOFI_API_KEY and WOOFI_API_SECRET")
		}
		// Safety latch: real money needs an explicit opt-in.
		if os.Getenv("CONFIRM_LIVE_TRADING") != "true" {
			return nil, fmt.Errorf("LIVE trading requires CONFIRM_LIVE_TRADING=true")
		}
		slog.Warn("connecting to LIVE exchange, real orders will be sent")
		return woofi.NewClient(f.config.API.WOOFi.RestURL, f.config.Credentials.APIKey, f.config.Credentials.APISecret), nil

	default:
		return nil, fmt.Errorf("unknown trading mode: %s", mode)
	}
}
