package notifier

import (
	"fmt"
	"sort"
	"strings"
)

type TradeInfo struct {
	Symbol     string
	Action     string
	Side       string
	Quantity   float64
	Price      float64
	Leverage   int
	Confidence float64
	Rationale  string
}

func TradeMessage(t TradeInfo) StructuredMessage {
	lines := []string{
		"Symbol: " + t.Symbol,
		"Action: " + t.Action,
		"Side: " + t.Side,
		fmt.Sprintf("Quantity: %s", trimFloat(t.Quantity)),
		fmt.Sprintf("Price: $%s", money(t.Price)),
		fmt.Sprintf("Leverage: %dx", t.Leverage),
		fmt.Sprintf("Confidence: %.1f%%", t.Confidence*100),
	}
	msg := StructuredMessage{Icon: "🔔", Title: "Trade executed", Sections: []MessageSection{{Lines: lines}}}
	if r := strings.TrimSpace(t.Rationale); r != "" {
		msg.Footer = r
	}
	return msg
}

type PnLInfo struct {
	Symbol     string
	Side       string
	EntryPrice float64
	ExitPrice  float64
	Quantity   float64
	PnL        float64
}

func ProfitLossMessage(p PnLInfo) StructuredMessage {
	icon, status := "📈", "Profit"
	if p.PnL < 0 {
		icon, status = "📉", "Loss"
	}
	pct := 0.0
	if notional := p.EntryPrice * p.Quantity; notional > 0 {
		pct = p.PnL / notional * 100
	}
	return StructuredMessage{
		Icon:  icon,
		Title: status + " realized",
		Sections: []MessageSection{{Lines: []string{
			"Symbol: " + p.Symbol,
			"Position: " + p.Side,
			fmt.Sprintf("Entry: $%s  Exit: $%s", money(p.EntryPrice), money(p.ExitPrice)),
			fmt.Sprintf("%s: $%s", status, money(p.PnL)),
			fmt.Sprintf("Ratio: %.2f%%", pct),
		}}},
	}
}

// Status levels for SystemStatusMessage.
const (
	StatusHealthy = "HEALTHY"
	StatusWarning = "WARNING"
	StatusError   = "ERROR"
)

func SystemStatusMessage(status string, details map[string]string) StructuredMessage {
	icon := "🔴"
	switch status {
	case StatusHealthy:
		icon = "🟢"
	case StatusWarning:
		icon = "🟡"
	}
	return StructuredMessage{
		Icon:     icon,
		Title:    "System status: " + status,
		Sections: []MessageSection{{Title: "Details", Lines: detailLines(details)}},
	}
}

func RiskAlertMessage(level, riskType string, details map[string]string) StructuredMessage {
	icon := "ℹ️"
	switch strings.ToUpper(level) {
	case "HIGH":
		icon = "⚠️"
	case "MEDIUM":
		icon = "⚡"
	}
	return StructuredMessage{
		Icon:  icon,
		Title: "Risk alert",
		Sections: []MessageSection{
			{Lines: []string{"Level: " + level, "Type: " + riskType}},
			{Title: "Details", Lines: detailLines(details)},
		},
	}
}

type ReportInfo struct {
	Date          string
	TotalTrades   int
	WinningTrades int
	LosingTrades  int
	WinRate       float64
	RealizedPnL   float64
	Fees          float64
}

func DailyReportMessage(r ReportInfo) StructuredMessage {
	icon := "📈"
	if r.RealizedPnL < 0 {
		icon = "📉"
	}
	return StructuredMessage{
		Icon:  icon,
		Title: "Daily report " + r.Date,
		Sections: []MessageSection{{Lines: []string{
			fmt.Sprintf("Total trades: %d", r.TotalTrades),
			fmt.Sprintf("Winning: %d", r.WinningTrades),
			fmt.Sprintf("Losing: %d", r.LosingTrades),
			fmt.Sprintf("Win rate: %.1f%%", r.WinRate*100),
			fmt.Sprintf("Realized P&L: $%s", money(r.RealizedPnL)),
			fmt.Sprintf("Fees: $%s", money(r.Fees)),
		}}},
	}
}

type PortfolioInfo struct {
	TotalBalance     float64
	AvailableBalance float64
	UnrealizedPnL    float64
	OpenPositions    int
}

func PortfolioMessage(p PortfolioInfo) StructuredMessage {
	return StructuredMessage{
		Icon:  "📊",
		Title: "Portfolio status",
		Sections: []MessageSection{{Lines: []string{
			fmt.Sprintf("Total balance: $%s", money(p.TotalBalance)),
			fmt.Sprintf("Available: $%s", money(p.AvailableBalance)),
			fmt.Sprintf("Unrealized P&L: $%s", money(p.UnrealizedPnL)),
			fmt.Sprintf("Open positions: %d", p.OpenPositions),
		}}},
	}
}

func detailLines(details map[string]string) []string {
	keys := make([]string, 0, len(details))
	for k := range details {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+": "+details[k])
	}
	return out
}

// money formats with thousands separators and two decimals.
func money(v float64) string {
	neg := v < 0
	if neg {
		v = -v
	}
	s := fmt.Sprintf("%.2f", v)
	intPart, frac := s[:len(s)-3], s[len(s)-3:]
	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	out := b.String() + frac
	if neg {
		return "-" + out
	}
	return out
}

func trimFloat(v float64) string {
	s := fmt.Sprintf("%.8f", v)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}
