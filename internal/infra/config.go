package infra

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Defaults applied when the config file omits a value.
const (
	DefaultCopyFraction    = "0.10"
	DefaultQuoteCurrency   = "USDT"
	DefaultPollIntervalSec = 10
	DefaultErrorBackoffSec = 5
	DefaultTradePageSize   = 10
)

// Config holds every setting the copier consumes. Loaded from YAML, then
// overridden by environment variables for secrets.
type Config struct {
	App struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"app"`

	Trading struct {
		Mode            string `yaml:"mode"`          // "paper" or "real"
		CopyFraction    string `yaml:"copy_fraction"` // decimal string, e.g. "0.10"
		QuoteCurrency   string `yaml:"quote_currency"`
		PollIntervalSec int    `yaml:"poll_interval_sec"`
		ErrorBackoffSec int    `yaml:"error_backoff_sec"`
		TradePageSize   int    `yaml:"trade_page_size"`
	} `yaml:"trading"`

	API struct {
		OKX struct {
			RestURL        string `yaml:"rest_url"`
			WSURL          string `yaml:"ws_url"`
			AccessKey      string `yaml:"access_key"`
			SecretKey      string `yaml:"secret_key"`
			Passphrase     string `yaml:"passphrase"`
			UseFillsStream bool   `yaml:"use_fills_stream"`
		} `yaml:"okx"`
	} `yaml:"api"`

	Storage struct {
		DBPath string `yaml:"db_path"`
	} `yaml:"storage"`

	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`
}

// LoadConfig reads and parses the configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	overrideWithEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Trading.Mode == "" {
		c.Trading.Mode = "paper"
	}
	if c.Trading.CopyFraction == "" {
		c.Trading.CopyFraction = DefaultCopyFraction
	}
	if c.Trading.QuoteCurrency == "" {
		c.Trading.QuoteCurrency = DefaultQuoteCurrency
	}
	if c.Trading.PollIntervalSec <= 0 {
		c.Trading.PollIntervalSec = DefaultPollIntervalSec
	}
	if c.Trading.ErrorBackoffSec <= 0 {
		c.Trading.ErrorBackoffSec = DefaultErrorBackoffSec
	}
	if c.Trading.TradePageSize <= 0 {
		c.Trading.TradePageSize = DefaultTradePageSize
	}
	if c.API.OKX.RestURL == "" {
		c.API.OKX.RestURL = "https://www.okx.com"
	}
	if c.API.OKX.WSURL == "" {
		c.API.OKX.WSURL = "wss://ws.okx.com:8443/ws/v5/private"
	}
}

// Validate checks configuration validity.
func (c *Config) Validate() error {
	mode := strings.ToLower(c.Trading.Mode)
	if mode != "paper" && mode != "real" {
		return fmt.Errorf("unknown trading mode: %s", c.Trading.Mode)
	}

	frac, err := decimal.NewFromString(c.Trading.CopyFraction)
	if err != nil {
		return fmt.Errorf("copy_fraction is not a decimal: %q", c.Trading.CopyFraction)
	}
	if frac.LessThanOrEqual(decimal.Zero) || frac.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("copy_fraction must be in (0, 1], got %s", frac)
	}

	if c.Trading.QuoteCurrency == "" {
		return fmt.Errorf("quote_currency is required")
	}

	if mode == "real" {
		if !strings.HasPrefix(c.API.OKX.RestURL, "https://") {
			return fmt.Errorf("invalid OKX REST URL: %s", c.API.OKX.RestURL)
		}
		if !strings.HasPrefix(c.API.OKX.WSURL, "ws://") && !strings.HasPrefix(c.API.OKX.WSURL, "wss://") {
			return fmt.Errorf("invalid OKX WS URL: %s", c.API.OKX.WSURL)
		}
		if c.API.OKX.AccessKey == "" || c.API.OKX.SecretKey == "" || c.API.OKX.Passphrase == "" {
			return fmt.Errorf("real mode requires OKX access key, secret key and passphrase")
		}
	}

	return nil
}

// CopyFraction returns the configured fraction as a decimal.
// Validate guarantees the string parses.
func (c *Config) CopyFraction() decimal.Decimal {
	frac, _ := decimal.NewFromString(c.Trading.CopyFraction)
	return frac
}

// PollInterval returns the inter-cycle sleep duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Trading.PollIntervalSec) * time.Second
}

// ErrorBackoff returns the base delay applied after a failed cycle.
func (c *Config) ErrorBackoff() time.Duration {
	return time.Duration(c.Trading.ErrorBackoffSec) * time.Second
}

// overrideWithEnv applies environment variables over file values.
// Environment always wins for secrets so keys can stay out of the config file.
func overrideWithEnv(cfg *Config) {
	if cfg.API.OKX.SecretKey != "" {
		fmt.Println("⚠️  SECURITY WARNING: API secrets found in config file.")
		fmt.Println("   Recommendation: use environment variables instead:")
		fmt.Println("   - COPIER_OKX_KEY, COPIER_OKX_SECRET, COPIER_OKX_PASSPHRASE")
	}

	if key := os.Getenv("COPIER_OKX_KEY"); key != "" {
		cfg.API.OKX.AccessKey = key
	}
	if secret := os.Getenv("COPIER_OKX_SECRET"); secret != "" {
		cfg.API.OKX.SecretKey = secret
	}
	if pass := os.Getenv("COPIER_OKX_PASSPHRASE"); pass != "" {
		cfg.API.OKX.Passphrase = pass
	}
}
