package config

import (
	"fmt"
	"math"
	"strings"
)

const weightTolerance = 1e-3

// validate runs the per-section checks after defaults are applied.
func validate(c *Config) error {
	if err := c.Trading.validate(); err != nil {
		return err
	}
	if err := c.Fusion.validate(); err != nil {
		return err
	}
	if err := c.Risk.validate(); err != nil {
		return err
	}
	if err := c.validateAdvisors(); err != nil {
		return err
	}
	if err := c.Exchange.validate(); err != nil {
		return err
	}
	if err := c.Notify.validate(); err != nil {
		return err
	}
	if strings.TrimSpace(c.Store.Path) == "" {
		return fmt.Errorf("store.path cannot be empty")
	}
	return nil
}

func (t *TradingConfig) validate() error {
	if t.Symbol == "" {
		return fmt.Errorf("trading.symbol cannot be empty")
	}
	if len(t.SupportedSymbols) > 0 {
		found := false
		for _, s := range t.SupportedSymbols {
			if strings.EqualFold(strings.TrimSpace(s), t.Symbol) {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("trading.symbol %s is not in trading.supported_symbols", t.Symbol)
		}
	}
	if t.IntervalSeconds <= 0 {
		return fmt.Errorf("trading.interval_seconds must be > 0")
	}
	if t.DefaultLeverage < 1 {
		return fmt.Errorf("trading.default_leverage must be >= 1")
	}
	return nil
}

func (f *FusionConfig) validate() error {
	if f.ConfidenceFloor < 0 || f.ConfidenceFloor > 1 {
		return fmt.Errorf("fusion.confidence_floor must be within [0,1]")
	}
	if f.TieMargin < 0 || f.TieMargin > 1 {
		return fmt.Errorf("fusion.tie_margin must be within [0,1]")
	}
	return nil
}

func (r *RiskConfig) validate() error {
	if r.MinConfidence < 0 || r.MinConfidence > 1 {
		return fmt.Errorf("risk.min_confidence must be within [0,1]")
	}
	if r.MaxDailyLoss < 0 {
		return fmt.Errorf("risk.max_daily_loss must be >= 0")
	}
	if r.MaxPositionSizeScale <= 0 || r.MaxPositionSizeScale > 1 {
		return fmt.Errorf("risk.max_position_size must be within (0,1]")
	}
	if r.MaxRiskLevel < 1 || r.MaxRiskLevel > 10 {
		return fmt.Errorf("risk.max_risk_level must be within [1,10]")
	}
	if r.MinBalanceThreshold < 0 {
		return fmt.Errorf("risk.min_balance_threshold must be >= 0")
	}
	return nil
}

func (c *Config) validateAdvisors() error {
	seen := make(map[string]struct{}, len(c.Advisors))
	total := 0.0
	enabled := 0
	for _, a := range c.Advisors {
		if _, dup := seen[a.ID]; dup {
			return fmt.Errorf("advisors contains duplicate id: %s", a.ID)
		}
		seen[a.ID] = struct{}{}
		if !a.IsEnabled() {
			continue
		}
		enabled++
		if a.Weight <= 0 {
			return fmt.Errorf("advisors.%s weight must be > 0", a.ID)
		}
		switch a.Kind {
		case "technical":
		case "chat":
			if strings.TrimSpace(a.APIURL) == "" {
				return fmt.Errorf("advisors.%s missing api_url", a.ID)
			}
			if strings.TrimSpace(a.Model) == "" {
				return fmt.Errorf("advisors.%s missing model", a.ID)
			}
		default:
			return fmt.Errorf("advisors.%s has unknown kind %q", a.ID, a.Kind)
		}
		total += a.Weight
	}
	if enabled == 0 {
		return fmt.Errorf("advisors requires at least one enabled entry")
	}
	switch c.Sentiment.Kind {
	case "none":
	case "fear_greed":
		total += c.Sentiment.Weight
	case "chat":
		if strings.TrimSpace(c.Sentiment.APIURL) == "" || strings.TrimSpace(c.Sentiment.Model) == "" {
			return fmt.Errorf("sentiment chat source requires api_url and model")
		}
		total += c.Sentiment.Weight
	default:
		return fmt.Errorf("sentiment.kind %q is not supported", c.Sentiment.Kind)
	}
	if math.Abs(total-1) > weightTolerance {
		return fmt.Errorf("advisor and sentiment weights must sum to 1 (got %.4f)", total)
	}
	return nil
}

func (e *ExchangeConfig) validate() error {
	switch e.Kind {
	case "paper":
		if e.PaperBalance <= 0 {
			return fmt.Errorf("exchange.paper_balance must be > 0")
		}
	case "binance":
		if strings.TrimSpace(e.APIKey) == "" || strings.TrimSpace(e.SecretKey) == "" {
			return fmt.Errorf("exchange binance requires api_key and secret_key")
		}
	default:
		return fmt.Errorf("exchange.kind %q is not supported", e.Kind)
	}
	if e.MaxLeverage < 1 {
		return fmt.Errorf("exchange.max_leverage must be >= 1")
	}
	if e.MinOrderSize <= 0 {
		return fmt.Errorf("exchange.min_order_size must be > 0")
	}
	if e.LotPrecision < 0 || e.LotPrecision > 8 {
		return fmt.Errorf("exchange.lot_precision must be within [0,8]")
	}
	return nil
}

func (n *NotifyConfig) validate() error {
	if n.Telegram.Enabled {
		if strings.TrimSpace(n.Telegram.BotToken) == "" || strings.TrimSpace(n.Telegram.ChatID) == "" {
			return fmt.Errorf("notify.telegram requires bot_token and chat_id when enabled")
		}
	}
	return nil
}
