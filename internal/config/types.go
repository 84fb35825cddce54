package config

import (
	"strings"
	"time"
)

// Config is the root configuration for a quorum engine.
type Config struct {
	App       AppConfig       `toml:"app"`
	Trading   TradingConfig   `toml:"trading"`
	Fusion    FusionConfig    `toml:"fusion"`
	Risk      RiskConfig      `toml:"risk"`
	Advisors  []AdvisorConfig `toml:"advisors"`
	Sentiment SentimentConfig `toml:"sentiment"`
	Market    MarketConfig    `toml:"market"`
	Exchange  ExchangeConfig  `toml:"exchange"`
	Notify    NotifyConfig    `toml:"notify"`
	Store     StoreConfig     `toml:"store"`

	path string
}

// Path is the root file the config was loaded from.
func (c *Config) Path() string {
	if c == nil {
		return ""
	}
	return c.path
}

type AppConfig struct {
	Env             string `toml:"env" yaml:"env"`
	LogLevel        string `toml:"log_level" yaml:"log_level"`
	LogFormat       string `toml:"log_format" yaml:"log_format"`
	LogPath         string `toml:"log_path" yaml:"log_path"`
	HTTPAddr        string `toml:"http_addr" yaml:"http_addr"`
	AdvisoryLogPath string `toml:"advisory_log_path" yaml:"advisory_log_path"`
	AdvisoryDump    bool   `toml:"advisory_dump" yaml:"advisory_dump"`
	WatchConfig     bool   `toml:"watch_config" yaml:"watch_config"`
}

// TradingConfig controls the cycle cadence and the traded instrument.
type TradingConfig struct {
	Symbol           string   `toml:"symbol" yaml:"symbol"`
	SupportedSymbols []string `toml:"supported_symbols" yaml:"supported_symbols"`
	IntervalSeconds  int      `toml:"interval_seconds" yaml:"interval_seconds"`
	RunImmediately   bool     `toml:"run_immediately" yaml:"run_immediately"`
	DefaultLeverage  int      `toml:"default_leverage" yaml:"default_leverage"`
	CycleTimeoutSecs int      `toml:"cycle_timeout_seconds" yaml:"cycle_timeout_seconds"`
}

func (t TradingConfig) Interval() time.Duration {
	return time.Duration(t.IntervalSeconds) * time.Second
}

type FusionConfig struct {
	ConfidenceFloor float64 `toml:"confidence_floor" yaml:"confidence_floor"`
	TieMargin       float64 `toml:"tie_margin" yaml:"tie_margin"`
}

// RiskConfig mirrors the risk gate limits. MaxDailyLoss is expressed in
// quote currency and compared against the realized P&L of the day.
type RiskConfig struct {
	MinConfidence        float64 `toml:"min_confidence" yaml:"min_confidence"`
	MaxDailyLoss         float64 `toml:"max_daily_loss" yaml:"max_daily_loss"`
	MaxPositionSizeScale float64 `toml:"max_position_size" yaml:"max_position_size"`
	MaxRiskLevel         int     `toml:"max_risk_level" yaml:"max_risk_level"`
	MinBalanceThreshold  float64 `toml:"min_balance_threshold" yaml:"min_balance_threshold"`
	StopLossPct          float64 `toml:"stop_loss_percentage" yaml:"stop_loss_percentage"`
	TakeProfitPct        float64 `toml:"take_profit_percentage" yaml:"take_profit_percentage"`
}

// AdvisorConfig describes one directional advisory source.
type AdvisorConfig struct {
	ID             string  `toml:"id" yaml:"id"`
	Kind           string  `toml:"kind" yaml:"kind"`
	Weight         float64 `toml:"weight" yaml:"weight"`
	APIURL         string  `toml:"api_url" yaml:"api_url"`
	APIKey         string  `toml:"api_key" yaml:"-"`
	Model          string  `toml:"model" yaml:"model"`
	Temperature    float64 `toml:"temperature" yaml:"temperature"`
	MaxTokens      int     `toml:"max_tokens" yaml:"max_tokens"`
	TimeoutSeconds int     `toml:"timeout_seconds" yaml:"timeout_seconds"`
	Enabled        *bool   `toml:"enabled" yaml:"enabled,omitempty"`
}

func (a AdvisorConfig) IsEnabled() bool {
	return a.Enabled == nil || *a.Enabled
}

func (a AdvisorConfig) Timeout() time.Duration {
	return time.Duration(a.TimeoutSeconds) * time.Second
}

// SentimentConfig describes the sentiment source. Kind "none" disables it.
type SentimentConfig struct {
	Kind           string  `toml:"kind" yaml:"kind"`
	Weight         float64 `toml:"weight" yaml:"weight"`
	APIURL         string  `toml:"api_url" yaml:"api_url"`
	APIKey         string  `toml:"api_key" yaml:"-"`
	Model          string  `toml:"model" yaml:"model"`
	TimeoutSeconds int     `toml:"timeout_seconds" yaml:"timeout_seconds"`
}

func (s SentimentConfig) Enabled() bool {
	return !strings.EqualFold(strings.TrimSpace(s.Kind), "none")
}

func (s SentimentConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutSeconds) * time.Second
}

type MarketConfig struct {
	Source         string `toml:"source" yaml:"source"`
	RESTBaseURL    string `toml:"rest_base_url" yaml:"rest_base_url"`
	Interval       string `toml:"interval" yaml:"interval"`
	Limit          int    `toml:"limit" yaml:"limit"`
	TimeoutSeconds int    `toml:"timeout_seconds" yaml:"timeout_seconds"`
}

func (m MarketConfig) Timeout() time.Duration {
	return time.Duration(m.TimeoutSeconds) * time.Second
}

// ExchangeConfig selects the order gateway and its constraints.
type ExchangeConfig struct {
	Kind           string  `toml:"kind" yaml:"kind"`
	APIKey         string  `toml:"api_key" yaml:"-"`
	SecretKey      string  `toml:"secret_key" yaml:"-"`
	RESTBaseURL    string  `toml:"rest_base_url" yaml:"rest_base_url"`
	Testnet        bool    `toml:"testnet" yaml:"testnet"`
	MaxLeverage    int     `toml:"max_leverage" yaml:"max_leverage"`
	MinOrderSize   float64 `toml:"min_order_size" yaml:"min_order_size"`
	LotPrecision   int     `toml:"lot_precision" yaml:"lot_precision"`
	TakerFee       float64 `toml:"taker_fee" yaml:"taker_fee"`
	PaperBalance   float64 `toml:"paper_balance" yaml:"paper_balance"`
	TimeoutSeconds int     `toml:"timeout_seconds" yaml:"timeout_seconds"`
}

func (e ExchangeConfig) Timeout() time.Duration {
	return time.Duration(e.TimeoutSeconds) * time.Second
}

type NotifyConfig struct {
	Telegram         TelegramConfig `toml:"telegram" yaml:"telegram"`
	Categories       []string       `toml:"categories" yaml:"categories"`
	HeartbeatMinutes int            `toml:"heartbeat_minutes" yaml:"heartbeat_minutes"`
	DailyReport      bool           `toml:"daily_report" yaml:"daily_report"`
	TimeoutSeconds   int            `toml:"timeout_seconds" yaml:"timeout_seconds"`
}

func (n NotifyConfig) Timeout() time.Duration {
	return time.Duration(n.TimeoutSeconds) * time.Second
}

type TelegramConfig struct {
	Enabled  bool   `toml:"enabled" yaml:"enabled"`
	BotToken string `toml:"bot_token" yaml:"-"`
	ChatID   string `toml:"chat_id" yaml:"chat_id"`
	BaseURL  string `toml:"base_url" yaml:"base_url"`
}

type StoreConfig struct {
	Path string `toml:"path" yaml:"path"`
}

// keySet tracks the config paths that were set explicitly in a file.
type keySet map[string]struct{}

func (k keySet) mark(path string) {
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return
	}
	k[path] = struct{}{}
}

func (k keySet) isSet(path string) bool {
	if len(k) == 0 {
		return false
	}
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return false
	}
	_, ok := k[path]
	return ok
}

// fieldDefault applies one default when the key was not set and need() holds.
type fieldDefault struct {
	key   string
	need  func() bool
	apply func()
}
