package infra

import (
	"fmt"
	"os"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// StrategyConfig holds the quoting parameters.
type StrategyConfig struct {
	Symbols               []string `yaml:"symbols"`
	WidthVolMult          float64  `yaml:"width_vol_mult"`
	InvSkewStrength       float64  `yaml:"inv_skew_strength"`
	ImbalanceSkewStrength float64  `yaml:"imbalance_skew_strength"`
	BaseOrderSize         float64  `yaml:"base_order_size"`
	MinQuoteNotional      float64  `yaml:"min_quote_notional"`
	MaxInventoryUSD       float64  `yaml:"max_inventory_usd"`
	RefreshMinMS          int      `yaml:"refresh_min_ms"`
}

// RiskConfig holds pre-trade risk limits.
type RiskConfig struct {
	MaxSymbolNotional float64 `yaml:"max_symbol_notional"`
	DailyLossLimitUSD float64 `yaml:"daily_loss_limit_usd"`
}

// ComplianceConfig holds anti-loop and amend-rate limits.
type ComplianceConfig struct {
	LoopMinHoldingMS int64 `yaml:"loop_min_holding_ms"`
	MaxAmendsPerSec  int   `yaml:"max_amends_per_sec"`
}

// TIProxyConfig holds the adaptive tuner's transaction impact targets.
type TIProxyConfig struct {
	TargetMakerRatio float64 `yaml:"target_maker_ratio"`
	MaxCancelPerFill float64 `yaml:"max_cancel_per_fill"`
}

// Credentials are exchange API keys, sourced from the environment only.
type Credentials struct {
	APIKey    string `envconfig:"WOOFI_API_KEY"`
	APISecret string `envconfig:"WOOFI_API_SECRET"`
}

// Set reports whether both key and secret are present.
func (c Credentials) Set() bool { return c.APIKey != "" && c.APISecret != "" }

// Config holds all application settings.
type Config struct {
	App struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"app"`

	Trading struct {
		Mode string `yaml:"mode"` // "SIM" or "LIVE"
	} `yaml:"trading"`

	Run struct {
		TickMS int `yaml:"tick_ms"`
	} `yaml:"run"`

	API struct {
		WOOFi struct {
			RestURL string `yaml:"rest_url"`
			WSURL   string `yaml:"ws_url"`
		} `yaml:"woofi"`
	} `yaml:"api"`

	Strategy   StrategyConfig   `yaml:"strategy"`
	Risk       RiskConfig       `yaml:"risk"`
	Compliance ComplianceConfig `yaml:"compliance"`
	TIProxy    TIProxyConfig    `yaml:"ti_proxy"`

	Storage struct {
		JournalPath string `yaml:"journal_path"`
	} `yaml:"storage"`

	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`

	// Populated from the environment, never from yaml.
	Credentials Credentials `yaml:"-"`
}

// LoadConfig reads and validates the yaml configuration, then overlays
// exchange credentials from the environment. Validation failures are
// fatal at load time; nothing re-validates per call.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)

	if err := envconfig.Process("", &cfg.Credentials); err != nil {
		return nil, fmt.Errorf("failed to read credentials from env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Trading.Mode == "" {
		cfg.Trading.Mode = "SIM"
	}
	cfg.Trading.Mode = strings.ToUpper(cfg.Trading.Mode)
	if cfg.Run.TickMS <= 0 {
		cfg.Run.TickMS = 200
	}
	if cfg.Strategy.RefreshMinMS <= 0 {
		cfg.Strategy.RefreshMinMS = 300
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "INFO"
	}
	if cfg.Storage.JournalPath == "" {
		cfg.Storage.JournalPath = "data/fills.db"
	}
}

// Validate checks configuration validity.
func (c *Config) Validate() error {
	if len(c.Strategy.Symbols) == 0 {
		return fmt.Errorf("at least one strategy symbol is required")
	}
	if c.Strategy.WidthVolMult <= 0 {
		return fmt.Errorf("strategy.width_vol_mult must be positive")
	}
	if c.Strategy.BaseOrderSize <= 0 {
		return fmt.Errorf("strategy.base_order_size must be positive")
	}
	if c.Strategy.MinQuoteNotional <= 0 {
		return fmt.Errorf("strategy.min_quote_notional must be positive")
	}
	if c.Strategy.MaxInventoryUSD <= 0 {
		return fmt.Errorf("strategy.max_inventory_usd must be positive")
	}
	if c.Risk.MaxSymbolNotional <= 0 {
		return fmt.Errorf("risk.max_symbol_notional must be positive")
	}
	if c.Risk.DailyLossLimitUSD <= 0 {
		return fmt.Errorf("risk.daily_loss_limit_usd must be positive")
	}
	if c.Compliance.LoopMinHoldingMS < 0 {
		return fmt.Errorf("compliance.loop_min_holding_ms must not be negative")
	}
	if c.Compliance.MaxAmendsPerSec <= 0 {
		return fmt.Errorf("compliance.max_amends_per_sec must be positive")
	}

	switch c.Trading.Mode {
	case "SIM":
	case "LIVE":
		if c.API.WOOFi.RestURL == "" {
			return fmt.Errorf("api.woofi.rest_url is required in LIVE mode")
		}
		if c.API.WOOFi.WSURL == "" || (!strings.HasPrefix(c.API.WOOFi.WSURL, "ws://") && !strings.HasPrefix(c.API.WOOFi.WSURL, "wss://")) {
			return fmt.Errorf("invalid WOOFi WS URL: %s", c.API.WOOFi.WSURL)
		}
	default:
		return fmt.Errorf("unknown trading mode: %s", c.Trading.Mode)
	}

	return nil
}
