package notifier

import "context"

// TextNotifier delivers one rendered message to a channel.
type TextNotifier interface {
	Channel() string
	SendText(ctx context.Context, text string) error
}

// Category classifies a notification. Each can be enabled separately.
type Category string

const (
	TradeExecution  Category = "TRADE_EXECUTION"
	ProfitLoss      Category = "PROFIT_LOSS"
	SystemStatus    Category = "SYSTEM_STATUS"
	RiskAlert       Category = "RISK_ALERT"
	DailyReport     Category = "DAILY_REPORT"
	PortfolioStatus Category = "PORTFOLIO_STATUS"
)

// Delivery is the outcome of one notification attempt.
type Delivery struct {
	Delivered bool   `json:"delivered"`
	Skipped   bool   `json:"skipped,omitempty"`
	Channel   string `json:"channel,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Sink accepts notifications. Implementations never return errors to the
// caller; failures are reported in Delivery and logged.
type Sink interface {
	Notify(ctx context.Context, cat Category, msg StructuredMessage, data any) Delivery
}
