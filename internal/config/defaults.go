package config

import (
	"os"
	"strings"
)

const (
	defaultAppEnv            = "dev"
	defaultAppLogLevel       = "info"
	defaultAppLogFormat      = "text"
	defaultAppHTTPAddr       = ":9991"
	defaultAppLogPath        = "data/logs/quorum.log"
	defaultAppAdvisoryLog    = "data/logs/quorum-advisory.log"
	defaultTradingSymbol     = "BTCUSDT"
	defaultTradingInterval   = 60
	defaultTradingLeverage   = 1
	defaultCycleTimeout      = 50
	defaultConfidenceFloor   = 0.6
	defaultTieMargin         = 0.1
	defaultMinConfidence     = 0.3
	defaultMaxDailyLoss      = 100
	defaultMaxPositionScale  = 0.1
	defaultMaxRiskLevel      = 8
	defaultMinBalance        = 100
	defaultStopLossPct       = 0.05
	defaultTakeProfitPct     = 0.1
	defaultAdvisorTimeout    = 30
	defaultAdvisorMaxTokens  = 1000
	defaultSentimentKind     = "fear_greed"
	defaultSentimentWeight   = 0.2
	defaultTechnicalWeight   = 0.8
	defaultMarketSource      = "binance"
	defaultMarketREST        = "https://fapi.binance.com"
	defaultMarketInterval    = "1h"
	defaultMarketLimit       = 100
	defaultMarketTimeout     = 10
	defaultExchangeKind      = "paper"
	defaultExchangeLeverage  = 125
	defaultExchangeMinOrder  = 0.001
	defaultExchangeLotPrec   = 3
	defaultExchangeTakerFee  = 0.0004
	defaultPaperBalance      = 10000
	defaultExchangeTimeout   = 10
	defaultHeartbeatMinutes  = 60
	defaultNotifyTimeout     = 15
	defaultTelegramBaseURL   = "https://api.telegram.org"
	defaultStorePath         = "data/quorum.db"
	defaultAdvisorTemp       = 0.1
)

var defaultSupportedSymbols = []string{"BTCUSDT", "ETHUSDT", "BNBUSDT", "ADAUSDT", "SOLUSDT", "XRPUSDT", "DOTUSDT", "AVAXUSDT"}

var defaultNotifyCategories = []string{"TRADE_EXECUTION", "PROFIT_LOSS", "SYSTEM_STATUS", "RISK_ALERT", "DAILY_REPORT", "PORTFOLIO_STATUS"}

// applyDefaults fills every section that was not set explicitly.
func (c *Config) applyDefaults(keys keySet) {
	c.App.applyDefaults(keys)
	c.Trading.applyDefaults(keys)
	c.Fusion.applyDefaults(keys)
	c.Risk.applyDefaults(keys)
	c.applyAdvisorDefaults(keys)
	c.Sentiment.applyDefaults(keys)
	c.Market.applyDefaults(keys)
	c.Exchange.applyDefaults(keys)
	c.Notify.applyDefaults(keys)
	applyFieldDefaults(keys, stringFieldDefault("store.path", &c.Store.Path, defaultStorePath))
	c.expandSecrets()
}

func (a *AppConfig) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		stringFieldDefault("app.env", &a.Env, defaultAppEnv),
		stringFieldDefault("app.log_level", &a.LogLevel, defaultAppLogLevel),
		stringFieldDefault("app.log_format", &a.LogFormat, defaultAppLogFormat),
		stringFieldDefault("app.http_addr", &a.HTTPAddr, defaultAppHTTPAddr),
		stringFieldDefault("app.log_path", &a.LogPath, defaultAppLogPath),
		stringFieldDefault("app.advisory_log_path", &a.AdvisoryLogPath, defaultAppAdvisoryLog),
	)
}

func (t *TradingConfig) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		stringFieldDefault("trading.symbol", &t.Symbol, defaultTradingSymbol),
		intFieldDefault("trading.interval_seconds", &t.IntervalSeconds, defaultTradingInterval),
		intFieldDefault("trading.default_leverage", &t.DefaultLeverage, defaultTradingLeverage),
		intFieldDefault("trading.cycle_timeout_seconds", &t.CycleTimeoutSecs, defaultCycleTimeout),
		boolFieldDefault("trading.run_immediately", &t.RunImmediately, true),
		fieldDefault{
			key:   "trading.supported_symbols",
			need:  func() bool { return len(t.SupportedSymbols) == 0 },
			apply: func() { t.SupportedSymbols = append([]string(nil), defaultSupportedSymbols...) },
		},
	)
	t.Symbol = strings.ToUpper(strings.TrimSpace(t.Symbol))
}

func (f *FusionConfig) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		floatFieldDefault("fusion.confidence_floor", &f.ConfidenceFloor, defaultConfidenceFloor),
		floatFieldDefault("fusion.tie_margin", &f.TieMargin, defaultTieMargin),
	)
}

func (r *RiskConfig) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		floatFieldDefault("risk.min_confidence", &r.MinConfidence, defaultMinConfidence),
		floatFieldDefault("risk.max_daily_loss", &r.MaxDailyLoss, defaultMaxDailyLoss),
		floatFieldDefault("risk.max_position_size", &r.MaxPositionSizeScale, defaultMaxPositionScale),
		intFieldDefault("risk.max_risk_level", &r.MaxRiskLevel, defaultMaxRiskLevel),
		floatFieldDefault("risk.min_balance_threshold", &r.MinBalanceThreshold, defaultMinBalance),
		floatFieldDefault("risk.stop_loss_percentage", &r.StopLossPct, defaultStopLossPct),
		floatFieldDefault("risk.take_profit_percentage", &r.TakeProfitPct, defaultTakeProfitPct),
	)
}

func (c *Config) applyAdvisorDefaults(keys keySet) {
	if len(c.Advisors) == 0 && !keys.isSet("advisors") {
		c.Advisors = []AdvisorConfig{{ID: "technical", Kind: "technical", Weight: defaultTechnicalWeight}}
	}
	for i := range c.Advisors {
		a := &c.Advisors[i]
		a.ID = strings.TrimSpace(a.ID)
		a.Kind = strings.ToLower(strings.TrimSpace(a.Kind))
		if a.Kind == "" {
			a.Kind = "chat"
		}
		if a.ID == "" {
			a.ID = a.Kind
		}
		if a.TimeoutSeconds <= 0 {
			a.TimeoutSeconds = defaultAdvisorTimeout
		}
		if a.MaxTokens <= 0 {
			a.MaxTokens = defaultAdvisorMaxTokens
		}
		if a.Temperature <= 0 {
			a.Temperature = defaultAdvisorTemp
		}
	}
}

func (s *SentimentConfig) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		stringFieldDefault("sentiment.kind", &s.Kind, defaultSentimentKind),
		floatFieldDefault("sentiment.weight", &s.Weight, defaultSentimentWeight),
		intFieldDefault("sentiment.timeout_seconds", &s.TimeoutSeconds, defaultAdvisorTimeout),
	)
	s.Kind = strings.ToLower(strings.TrimSpace(s.Kind))
}

func (m *MarketConfig) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		stringFieldDefault("market.source", &m.Source, defaultMarketSource),
		stringFieldDefault("market.rest_base_url", &m.RESTBaseURL, defaultMarketREST),
		stringFieldDefault("market.interval", &m.Interval, defaultMarketInterval),
		intFieldDefault("market.limit", &m.Limit, defaultMarketLimit),
		intFieldDefault("market.timeout_seconds", &m.TimeoutSeconds, defaultMarketTimeout),
	)
}

func (e *ExchangeConfig) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		stringFieldDefault("exchange.kind", &e.Kind, defaultExchangeKind),
		intFieldDefault("exchange.max_leverage", &e.MaxLeverage, defaultExchangeLeverage),
		floatFieldDefault("exchange.min_order_size", &e.MinOrderSize, defaultExchangeMinOrder),
		intFieldDefault("exchange.lot_precision", &e.LotPrecision, defaultExchangeLotPrec),
		floatFieldDefault("exchange.taker_fee", &e.TakerFee, defaultExchangeTakerFee),
		floatFieldDefault("exchange.paper_balance", &e.PaperBalance, defaultPaperBalance),
		intFieldDefault("exchange.timeout_seconds", &e.TimeoutSeconds, defaultExchangeTimeout),
	)
	e.Kind = strings.ToLower(strings.TrimSpace(e.Kind))
}

func (n *NotifyConfig) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		intFieldDefault("notify.heartbeat_minutes", &n.HeartbeatMinutes, defaultHeartbeatMinutes),
		intFieldDefault("notify.timeout_seconds", &n.TimeoutSeconds, defaultNotifyTimeout),
		boolFieldDefault("notify.daily_report", &n.DailyReport, true),
		stringFieldDefault("notify.telegram.base_url", &n.Telegram.BaseURL, defaultTelegramBaseURL),
		fieldDefault{
			key:   "notify.categories",
			need:  func() bool { return len(n.Categories) == 0 },
			apply: func() { n.Categories = append([]string(nil), defaultNotifyCategories...) },
		},
	)
	for i, cat := range n.Categories {
		n.Categories[i] = strings.ToUpper(strings.TrimSpace(cat))
	}
}

// expandSecrets resolves ${VAR} references so keys can live in .env.
func (c *Config) expandSecrets() {
	for i := range c.Advisors {
		c.Advisors[i].APIKey = os.ExpandEnv(c.Advisors[i].APIKey)
		c.Advisors[i].APIURL = os.ExpandEnv(c.Advisors[i].APIURL)
	}
	c.Sentiment.APIKey = os.ExpandEnv(c.Sentiment.APIKey)
	c.Exchange.APIKey = os.ExpandEnv(c.Exchange.APIKey)
	c.Exchange.SecretKey = os.ExpandEnv(c.Exchange.SecretKey)
	c.Notify.Telegram.BotToken = os.ExpandEnv(c.Notify.Telegram.BotToken)
	c.Notify.Telegram.ChatID = os.ExpandEnv(c.Notify.Telegram.ChatID)
}

func applyFieldDefaults(keys keySet, defs ...fieldDefault) {
	for _, def := range defs {
		if def.apply == nil {
			continue
		}
		if def.key != "" && keys.isSet(def.key) {
			continue
		}
		if def.need != nil && !def.need() {
			continue
		}
		def.apply()
	}
}

func stringFieldDefault(key string, target *string, def string) fieldDefault {
	return fieldDefault{
		key:   key,
		need:  func() bool { return strings.TrimSpace(*target) == "" },
		apply: func() { *target = def },
	}
}

func intFieldDefault(key string, target *int, def int) fieldDefault {
	return fieldDefault{
		key:   key,
		need:  func() bool { return *target <= 0 },
		apply: func() { *target = def },
	}
}

func floatFieldDefault(key string, target *float64, def float64) fieldDefault {
	return fieldDefault{
		key:   key,
		need:  func() bool { return *target <= 0 },
		apply: func() { *target = def },
	}
}

func boolFieldDefault(key string, target *bool, def bool) fieldDefault {
	return fieldDefault{
		key:   key,
		apply: func() { *target = def },
	}
}
