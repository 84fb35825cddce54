// Package model holds the gorm row types of the record store and their
// mapping to domain types.
package model

import (
	"encoding/json"
	"time"

	"quorum/internal/advisory"
	"quorum/internal/types"

	"gorm.io/datatypes"
)

type PositionEventKind string

const (
	PositionOpened PositionEventKind = "OPEN"
	PositionClosed PositionEventKind = "CLOSE"
)

type SignalModel struct {
	ID             string         `gorm:"column:id;primaryKey"`
	Symbol         string         `gorm:"column:symbol;index"`
	Direction      string         `gorm:"column:direction"`
	Confidence     float64        `gorm:"column:confidence"`
	PositionSize   int            `gorm:"column:position_size"`
	RiskLevel      int            `gorm:"column:risk_level"`
	ExpectedReturn float64        `gorm:"column:expected_return"`
	StopLoss       *float64       `gorm:"column:stop_loss"`
	TakeProfit     *float64       `gorm:"column:take_profit"`
	Horizon        string         `gorm:"column:horizon"`
	Leverage       int            `gorm:"column:leverage"`
	Price          float64        `gorm:"column:price"`
	Rationale      string         `gorm:"column:rationale"`
	Detail         datatypes.JSON `gorm:"column:detail_json;type:TEXT"`
	Accepted       bool           `gorm:"column:accepted"`
	RejectReason   string         `gorm:"column:reject_reason"`
	CreatedAtUnix  int64          `gorm:"column:created_at;index"`
}

func (SignalModel) TableName() string { return "signals" }

type TradeModel struct {
	ID             string   `gorm:"column:id;primaryKey"`
	Symbol         string   `gorm:"column:symbol;index"`
	Side           string   `gorm:"column:side"`
	Quantity       float64  `gorm:"column:quantity"`
	RequestedPrice float64  `gorm:"column:requested_price"`
	ExecutedPrice  *float64 `gorm:"column:executed_price"`
	Status         string   `gorm:"column:status;index"`
	Fee            *float64 `gorm:"column:fee"`
	Leverage       int      `gorm:"column:leverage"`
	OrderID        string   `gorm:"column:order_id"`
	SignalRef      string   `gorm:"column:signal_ref;index"`
	PositionRef    string   `gorm:"column:position_ref"`
	Note           string   `gorm:"column:note"`
	Error          string   `gorm:"column:error"`
	CreatedAtUnix  int64    `gorm:"column:created_at;index"`
	ExecutedAtUnix *int64   `gorm:"column:executed_at"`
}

func (TradeModel) TableName() string { return "trades" }

// PositionEventModel is one lifecycle transition of a position. Snapshot
// holds the full position as of the event.
type PositionEventModel struct {
	ID            int64             `gorm:"column:id;primaryKey;autoIncrement"`
	PositionID    string            `gorm:"column:position_id;index"`
	Symbol        string            `gorm:"column:symbol"`
	Kind          PositionEventKind `gorm:"column:kind;index"`
	Side          string            `gorm:"column:side"`
	Quantity      float64           `gorm:"column:quantity"`
	EntryPrice    float64           `gorm:"column:entry_price"`
	ExitPrice     *float64          `gorm:"column:exit_price"`
	RealizedPnL   float64           `gorm:"column:realized_pnl"`
	TradeRef      string            `gorm:"column:trade_ref"`
	Snapshot      datatypes.JSON    `gorm:"column:snapshot_json;type:TEXT"`
	CreatedAtUnix int64             `gorm:"column:created_at;index"`
}

func (PositionEventModel) TableName() string { return "position_events" }

// AdvisoryCallModel records one advisory source invocation.
type AdvisoryCallModel struct {
	ID            int64          `gorm:"column:id;primaryKey;autoIncrement"`
	CycleID       string         `gorm:"column:cycle_id;index"`
	SignalRef     string         `gorm:"column:signal_ref;index"`
	Source        string         `gorm:"column:source"`
	Kind          string         `gorm:"column:kind"`
	Symbol        string         `gorm:"column:symbol"`
	Present       bool           `gorm:"column:present"`
	Direction     string         `gorm:"column:direction"`
	Confidence    float64        `gorm:"column:confidence"`
	LatencyMs     int64          `gorm:"column:latency_ms"`
	Error         string         `gorm:"column:error"`
	Output        datatypes.JSON `gorm:"column:output_json;type:TEXT"`
	CreatedAtUnix int64          `gorm:"column:created_at;index"`
}

func (AdvisoryCallModel) TableName() string { return "advisory_calls" }

type NotificationModel struct {
	ID            int64          `gorm:"column:id;primaryKey;autoIncrement"`
	Category      string         `gorm:"column:category;index"`
	Channel       string         `gorm:"column:channel"`
	Title         string         `gorm:"column:title"`
	Body          string         `gorm:"column:body"`
	Delivered     bool           `gorm:"column:delivered"`
	Error         string         `gorm:"column:error"`
	Data          datatypes.JSON `gorm:"column:data_json;type:TEXT"`
	CreatedAtUnix int64          `gorm:"column:created_at;index"`
}

func (NotificationModel) TableName() string { return "notifications" }

// All lists every model for AutoMigrate.
func All() []any {
	return []any{
		&SignalModel{},
		&TradeModel{},
		&PositionEventModel{},
		&AdvisoryCallModel{},
		&NotificationModel{},
	}
}

func JSON(v any) datatypes.JSON {
	if v == nil {
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return datatypes.JSON(raw)
}

func FromSignal(sig types.TradeSignal, accepted bool, reason string) SignalModel {
	return SignalModel{
		ID:             sig.ID,
		Symbol:         sig.Symbol,
		Direction:      string(sig.Direction),
		Confidence:     sig.Confidence,
		PositionSize:   sig.PositionSize,
		RiskLevel:      sig.RiskLevel,
		ExpectedReturn: sig.ExpectedReturn,
		StopLoss:       sig.StopLoss,
		TakeProfit:     sig.TakeProfit,
		Horizon:        string(sig.Horizon),
		Leverage:       sig.Leverage,
		Price:          sig.Price,
		Rationale:      sig.Rationale,
		Detail:         JSON(sig.Detail),
		Accepted:       accepted,
		RejectReason:   reason,
		CreatedAtUnix:  sig.CreatedAt.UnixMilli(),
	}
}

func (m SignalModel) ToDomain() types.TradeSignal {
	sig := types.TradeSignal{
		ID:             m.ID,
		Symbol:         m.Symbol,
		Direction:      advisory.Direction(m.Direction),
		Confidence:     m.Confidence,
		PositionSize:   m.PositionSize,
		RiskLevel:      m.RiskLevel,
		ExpectedReturn: m.ExpectedReturn,
		StopLoss:       m.StopLoss,
		TakeProfit:     m.TakeProfit,
		Horizon:        advisory.Horizon(m.Horizon),
		Leverage:       m.Leverage,
		Price:          m.Price,
		Rationale:      m.Rationale,
		CreatedAt:      time.UnixMilli(m.CreatedAtUnix).UTC(),
	}
	if len(m.Detail) > 0 {
		_ = json.Unmarshal(m.Detail, &sig.Detail)
	}
	return sig
}

func FromTrade(t types.Trade) TradeModel {
	out := TradeModel{
		ID:             t.ID,
		Symbol:         t.Symbol,
		Side:           string(t.Side),
		Quantity:       t.Quantity,
		RequestedPrice: t.RequestedPrice,
		ExecutedPrice:  t.ExecutedPrice,
		Status:         string(t.Status),
		Fee:            t.Fee,
		Leverage:       t.Leverage,
		OrderID:        t.OrderID,
		SignalRef:      t.SignalRef,
		PositionRef:    t.PositionRef,
		Note:           t.Note,
		Error:          t.Error,
		CreatedAtUnix:  t.CreatedAt.UnixMilli(),
	}
	if t.ExecutedAt != nil {
		ms := t.ExecutedAt.UnixMilli()
		out.ExecutedAtUnix = &ms
	}
	return out
}

func (m TradeModel) ToDomain() types.Trade {
	out := types.Trade{
		ID:             m.ID,
		Symbol:         m.Symbol,
		Side:           types.OrderSide(m.Side),
		Quantity:       m.Quantity,
		RequestedPrice: m.RequestedPrice,
		ExecutedPrice:  m.ExecutedPrice,
		Status:         types.TradeStatus(m.Status),
		Fee:            m.Fee,
		Leverage:       m.Leverage,
		OrderID:        m.OrderID,
		SignalRef:      m.SignalRef,
		PositionRef:    m.PositionRef,
		Note:           m.Note,
		Error:          m.Error,
		CreatedAt:      time.UnixMilli(m.CreatedAtUnix).UTC(),
	}
	if m.ExecutedAtUnix != nil {
		at := time.UnixMilli(*m.ExecutedAtUnix).UTC()
		out.ExecutedAt = &at
	}
	return out
}

// NewPositionEvent builds the event for a position transition. tradeRef is
// the trade that caused it.
func NewPositionEvent(kind PositionEventKind, p types.Position, tradeRef string, at time.Time) PositionEventModel {
	ev := PositionEventModel{
		PositionID:    p.ID,
		Symbol:        p.Symbol,
		Kind:          kind,
		Side:          string(p.Side),
		Quantity:      p.Quantity,
		EntryPrice:    p.EntryPrice,
		TradeRef:      tradeRef,
		Snapshot:      JSON(p),
		CreatedAtUnix: at.UnixMilli(),
	}
	if kind == PositionClosed {
		exit := p.CurrentPrice
		ev.ExitPrice = &exit
		ev.RealizedPnL = p.RealizedPnL
	}
	return ev
}

// Position decodes the snapshot, falling back to the flat columns.
func (m PositionEventModel) Position() types.Position {
	var p types.Position
	if len(m.Snapshot) > 0 && json.Unmarshal(m.Snapshot, &p) == nil && p.ID != "" {
		return p
	}
	return types.Position{
		ID:          m.PositionID,
		Symbol:      m.Symbol,
		Side:        types.Side(m.Side),
		Quantity:    m.Quantity,
		EntryPrice:  m.EntryPrice,
		RealizedPnL: m.RealizedPnL,
		IsOpen:      m.Kind == PositionOpened,
		OpenedAt:    time.UnixMilli(m.CreatedAtUnix).UTC(),
	}
}
