package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"quorum/internal/execution"
	"quorum/internal/gateway/notifier"
	"quorum/internal/logger"
	"quorum/internal/risk"
	"quorum/internal/store"
	"quorum/internal/types"
)

func (o *Orchestrator) notify(ctx context.Context, cat notifier.Category, msg notifier.StructuredMessage, data any) {
	if o.deps.Sink == nil {
		return
	}
	o.deps.Sink.Notify(ctx, cat, msg, data)
}

func (o *Orchestrator) alert(ctx context.Context, status string, details map[string]string) {
	o.notify(ctx, notifier.SystemStatus, notifier.SystemStatusMessage(status, details), details)
}

func (o *Orchestrator) notifyRejection(ctx context.Context, sig types.TradeSignal, v risk.Verdict) {
	level := "MEDIUM"
	switch v.Reason {
	case risk.ReasonDailyLossLimit, risk.ReasonInsufficientBalance, risk.ReasonMalformedSignal:
		level = "HIGH"
	case risk.ReasonLowConfidence:
		level = "LOW"
	}
	details := map[string]string{
		"symbol":     sig.Symbol,
		"direction":  string(sig.Direction),
		"confidence": fmt.Sprintf("%.2f", sig.Confidence),
		"detail":     v.Detail,
	}
	o.notify(ctx, notifier.RiskAlert, notifier.RiskAlertMessage(level, string(v.Reason), details), map[string]any{
		"signal_id": sig.ID,
		"verdict":   v,
	})
}

func (o *Orchestrator) notifyExecution(ctx context.Context, sig types.TradeSignal, res execution.TradeResult, account types.AccountSnapshot) {
	if res.Action == execution.ActionNoOp {
		return
	}
	side := string(types.Long)
	if res.Position != nil {
		side = string(res.Position.Side)
	}
	o.notify(ctx, notifier.TradeExecution, notifier.TradeMessage(notifier.TradeInfo{
		Symbol:     sig.Symbol,
		Action:     string(res.Action),
		Side:       side,
		Quantity:   res.Quantity,
		Price:      res.Price,
		Leverage:   res.Leverage,
		Confidence: sig.Confidence,
		Rationale:  firstLine(sig.Rationale),
	}), res.Trade)

	if res.Closed && res.Position != nil {
		o.notify(ctx, notifier.ProfitLoss, notifier.ProfitLossMessage(notifier.PnLInfo{
			Symbol:     res.Position.Symbol,
			Side:       string(res.Position.Side),
			EntryPrice: res.Position.EntryPrice,
			ExitPrice:  res.Price,
			Quantity:   res.Position.Quantity,
			PnL:        res.RealizedPnL,
		}), res.Position)
	}

	state := o.deps.Ledger.Snapshot()
	o.notify(ctx, notifier.PortfolioStatus, notifier.PortfolioMessage(notifier.PortfolioInfo{
		TotalBalance:     account.TotalBalance,
		AvailableBalance: account.AvailableBalance,
		UnrealizedPnL:    state.UnrealizedPnL,
		OpenPositions:    len(state.Open),
	}), nil)
}

// housekeeping sends the heartbeat and, once the UTC day rolls over, the
// report of the day that just ended.
func (o *Orchestrator) housekeeping(ctx context.Context) {
	now := o.opts.Now().UTC()
	if iv := o.opts.HeartbeatInterval; iv > 0 && now.Sub(o.lastHeartbeat) >= iv {
		o.lastHeartbeat = now
		state := o.deps.Ledger.Snapshot()
		o.alert(ctx, notifier.StatusHealthy, map[string]string{
			"symbol":         o.opts.Symbol,
			"open_positions": fmt.Sprintf("%d", len(state.Open)),
			"realized_pnl":   fmt.Sprintf("%.2f", state.RealizedPnL),
		})
	}
	if !o.opts.DailyReport || o.deps.Store == nil {
		return
	}
	today := now.Format("2006-01-02")
	if o.reportDay == "" {
		o.reportDay = today
		return
	}
	if o.reportDay == today {
		return
	}
	day := o.reportDay
	o.reportDay = today
	o.sendDailyReport(ctx, now, day)
}

func (o *Orchestrator) sendDailyReport(ctx context.Context, now time.Time, day string) {
	stats, err := store.CollectDailyStats(context.WithoutCancel(ctx), o.deps.Store, now, 2)
	if err != nil {
		logger.Warnf("daily report %s: %v", day, err)
		return
	}
	info := notifier.ReportInfo{Date: day}
	for _, st := range stats {
		if st.Date != day {
			continue
		}
		info = notifier.ReportInfo{
			Date:          st.Date,
			TotalTrades:   st.TotalTrades,
			WinningTrades: st.WinningTrades,
			LosingTrades:  st.LosingTrades,
			WinRate:       st.WinRate,
			RealizedPnL:   st.RealizedPnL,
			Fees:          st.Fees,
		}
	}
	o.notify(ctx, notifier.DailyReport, notifier.DailyReportMessage(info), info)
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if utf8.RuneCountInString(s) > 280 {
		s = string([]rune(s)[:280]) + "..."
	}
	return s
}
