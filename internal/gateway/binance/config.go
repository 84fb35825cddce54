package binance

import (
	"net/http"
	"strings"
	"time"

	"github.com/adshao/go-binance/v2/futures"
)

const defaultRESTBaseURL = "https://fapi.binance.com"

type Config struct {
	RESTBaseURL string
	HTTPTimeout time.Duration
	APIKey      string
	SecretKey   string
	Testnet     bool

	Interval string
	Limit    int
}

func (c *Config) withDefaults() Config {
	out := *c
	out.RESTBaseURL = strings.TrimSpace(out.RESTBaseURL)
	if out.RESTBaseURL == "" && !out.Testnet {
		out.RESTBaseURL = defaultRESTBaseURL
	}
	if out.HTTPTimeout <= 0 {
		out.HTTPTimeout = 15 * time.Second
	}
	out.Interval = strings.ToLower(strings.TrimSpace(out.Interval))
	if out.Interval == "" {
		out.Interval = "1h"
	}
	if out.Limit <= 0 {
		out.Limit = 100
	}
	if out.Limit > maxHistoryLimit {
		out.Limit = maxHistoryLimit
	}
	return out
}

// newClient applies the base URL and timeout. An empty base URL on testnet
// keeps the SDK's testnet endpoint.
func newClient(cfg Config) *futures.Client {
	if cfg.Testnet {
		futures.UseTestnet = true
	}
	client := futures.NewClient(cfg.APIKey, cfg.SecretKey)
	if cfg.RESTBaseURL != "" {
		client.BaseURL = cfg.RESTBaseURL
	}
	client.HTTPClient = &http.Client{Timeout: cfg.HTTPTimeout}
	return client
}

func cleanSymbol(symbol string) string {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	s = strings.ReplaceAll(s, "/", "")
	s = strings.ReplaceAll(s, "-", "")
	return strings.TrimSuffix(s, ":USDT")
}
