package main

import (
	"fmt"
	"strings"
	"time"

	"quorum/internal/store"
	"quorum/internal/store/model"
	"quorum/internal/types"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#3B82F6")).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
)

func newTable(headers []string, rows [][]string) string {
	if len(rows) == 0 {
		return mutedStyle.Render("(none)")
	}
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(mutedStyle).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	return t.String()
}

func renderPositions(open []types.Position) string {
	rows := make([][]string, 0, len(open))
	for _, p := range open {
		rows = append(rows, []string{
			p.Symbol, string(p.Side), num(p.Quantity), num(p.EntryPrice),
			fmt.Sprintf("%dx", p.Leverage), optNum(p.StopLoss), optNum(p.TakeProfit),
			p.OpenedAt.UTC().Format(time.DateTime),
		})
	}
	return titleStyle.Render("Open positions") + "\n" +
		newTable([]string{"Symbol", "Side", "Qty", "Entry", "Lev", "SL", "TP", "Opened (UTC)"}, rows)
}

func renderTrades(trades []types.Trade) string {
	rows := make([][]string, 0, len(trades))
	for _, tr := range trades {
		note := tr.Note
		if tr.Error != "" {
			note = tr.Error
		}
		rows = append(rows, []string{
			tr.CreatedAt.UTC().Format(time.DateTime), tr.Symbol, string(tr.Side), string(tr.Status),
			num(tr.Quantity), optNum(tr.ExecutedPrice), optNum(tr.Fee), truncate(note, 40),
		})
	}
	return titleStyle.Render("Trades") + "\n" +
		newTable([]string{"Time (UTC)", "Symbol", "Side", "Status", "Qty", "Price", "Fee", "Note"}, rows)
}

func renderSignals(signals []model.SignalModel) string {
	rows := make([][]string, 0, len(signals))
	for _, s := range signals {
		verdict := "ACCEPTED"
		if !s.Accepted {
			verdict = s.RejectReason
		}
		rows = append(rows, []string{
			time.UnixMilli(s.CreatedAtUnix).UTC().Format(time.DateTime), s.Symbol, s.Direction,
			fmt.Sprintf("%.2f", s.Confidence), fmt.Sprintf("%d", s.PositionSize), fmt.Sprintf("%d", s.RiskLevel),
			verdict, truncate(s.Rationale, 48),
		})
	}
	return titleStyle.Render("Signals") + "\n" +
		newTable([]string{"Time (UTC)", "Symbol", "Dir", "Conf", "Size", "Risk", "Verdict", "Rationale"}, rows)
}

func renderSummary(sum store.Summary) string {
	rows := [][]string{
		{"Closed trades", fmt.Sprintf("%d", sum.TotalTrades)},
		{"Winning / losing", fmt.Sprintf("%d / %d", sum.WinningTrades, sum.LosingTrades)},
		{"Win rate", fmt.Sprintf("%.1f%%", sum.WinRate*100)},
		{"Realized P&L", fmt.Sprintf("%.2f", sum.RealizedPnL)},
		{"Fees", fmt.Sprintf("%.2f", sum.Fees)},
		{"Fills / rejections", fmt.Sprintf("%d / %d", sum.Fills, sum.Rejections)},
		{"Signals (accepted)", fmt.Sprintf("%d (%d)", sum.Signals, sum.Accepted)},
		{"Open positions", fmt.Sprintf("%d", len(sum.OpenPositions))},
	}
	out := titleStyle.Render("Summary") + "\n" + newTable([]string{"Metric", "Value"}, rows)
	if len(sum.OpenPositions) > 0 {
		out += "\n" + renderPositions(sum.OpenPositions)
	}
	return out
}

func renderSignal(sig types.TradeSignal) string {
	header := fmt.Sprintf("%s %s  confidence %.2f  size %d  risk %d  horizon %s",
		sig.Symbol, sig.Direction, sig.Confidence, sig.PositionSize, sig.RiskLevel, sig.Horizon)
	if sig.Detail.HoldOverride != "" {
		header += "  (hold: " + sig.Detail.HoldOverride + ")"
	}
	rows := make([][]string, 0, len(sig.Detail.Sources))
	for _, src := range sig.Detail.Sources {
		status := "absent"
		if src.Present {
			status = string(src.Direction)
		}
		rows = append(rows, []string{
			src.Source, src.Kind, status, fmt.Sprintf("%.2f", src.Confidence),
			fmt.Sprintf("%.2f", src.ConfiguredWeight), fmt.Sprintf("%.3f", src.EffectiveWeight),
		})
	}
	return titleStyle.Render(header) + "\n" +
		newTable([]string{"Source", "Kind", "Direction", "Conf", "Weight", "Effective"}, rows) + "\n" +
		mutedStyle.Render(truncate(sig.Rationale, 160))
}

func num(v float64) string {
	s := fmt.Sprintf("%.6f", v)
	s = strings.TrimRight(strings.TrimRight(s, "0"), ".")
	if s == "" || s == "-" {
		return "0"
	}
	return s
}

func optNum(v *float64) string {
	if v == nil {
		return "-"
	}
	return num(*v)
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
