// Package execution turns admitted signals into orders and ledger
// transitions.
package execution

import (
	"context"
	"errors"
	"fmt"
	"time"

	"quorum/internal/advisory"
	"quorum/internal/gateway/exchange"
	"quorum/internal/ledger"
	"quorum/internal/logger"
	"quorum/internal/risk"
	"quorum/internal/store"
	"quorum/internal/store/model"
	"quorum/internal/types"

	"github.com/google/uuid"
)

type Action string

const (
	ActionOpenLong Action = "OPEN_LONG"
	ActionClose    Action = "CLOSE"
	ActionNoOp     Action = "NOOP"
)

// TradeResult is the outcome of one Execute call.
type TradeResult struct {
	Success     bool            `json:"success"`
	Action      Action          `json:"action"`
	Quantity    float64         `json:"quantity"`
	Price       float64         `json:"price"`
	Leverage    int             `json:"leverage"`
	Error       string          `json:"error,omitempty"`
	Trade       types.Trade     `json:"trade"`
	Position    *types.Position `json:"position,omitempty"`
	Closed      bool            `json:"closed"`
	RealizedPnL float64         `json:"realized_pnl"`
}

type Options struct {
	Constraints exchange.Constraints
	// Protective levels applied when a signal carries none. Zero disables.
	StopLossPct   float64
	TakeProfitPct float64

	Now   func() time.Time
	NewID func() string
}

// Coordinator is the only writer of the ledger.
type Coordinator struct {
	gateway exchange.Gateway
	ledger  *ledger.Ledger
	store   store.Store
	opts    Options
}

func NewCoordinator(gw exchange.Gateway, l *ledger.Ledger, st store.Store, opts Options) *Coordinator {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	if opts.Constraints == (exchange.Constraints{}) {
		opts.Constraints = exchange.DefaultConstraints()
	}
	return &Coordinator{gateway: gw, ledger: l, store: st, opts: opts}
}

func (c *Coordinator) Constraints() exchange.Constraints { return c.opts.Constraints }

// Execute applies an admitted signal. HOLD, SELL without a position and BUY
// on an open long record a NOOP trade and leave the ledger untouched.
func (c *Coordinator) Execute(ctx context.Context, sig types.TradeSignal, account types.AccountSnapshot, limits risk.Limits) TradeResult {
	unlock := c.ledger.Lock(sig.Symbol)
	defer unlock()

	pos, hasPos := c.ledger.OpenPosition(sig.Symbol)
	switch {
	case sig.Direction == advisory.Buy && !hasPos:
		return c.open(ctx, sig, account, limits)
	case sig.Direction == advisory.Sell && hasPos && pos.Side == types.Long,
		sig.Direction == advisory.Buy && hasPos && pos.Side == types.Short:
		return c.close(ctx, sig, pos)
	}
	return c.noop(ctx, sig, noopNote(sig, pos, hasPos))
}

func noopNote(sig types.TradeSignal, pos types.Position, hasPos bool) string {
	switch {
	case sig.Direction == advisory.Hold:
		return "hold"
	case sig.Direction == advisory.Sell && !hasPos:
		return "sell without open position"
	case hasPos:
		return fmt.Sprintf("%s while %s position open", sig.Direction, pos.Side)
	}
	return "no action"
}

func (c *Coordinator) open(ctx context.Context, sig types.TradeSignal, account types.AccountSnapshot, limits risk.Limits) TradeResult {
	qty := OrderQuantity(account.AvailableBalance, sig.PositionSize, limits.MaxPositionSizeScale, sig.Price, c.opts.Constraints)
	lev := EffectiveLeverage(sig.Leverage, c.opts.Constraints)
	trade := c.newTrade(sig, types.OrderBuy, qty, lev)

	fill, err := c.gateway.PlaceOrder(ctx, exchange.OrderRequest{
		ClientID:       trade.ID,
		Symbol:         sig.Symbol,
		Side:           types.OrderBuy,
		Quantity:       qty,
		Leverage:       lev,
		ReferencePrice: sig.Price,
	})
	if err != nil {
		return c.rejected(ctx, trade, ActionOpenLong, err)
	}
	c.markFilled(&trade, fill)

	pos := types.Position{
		ID:           c.opts.NewID(),
		Symbol:       sig.Symbol,
		Side:         types.Long,
		Quantity:     fill.ExecutedQty,
		EntryPrice:   fill.ExecutedPrice,
		CurrentPrice: fill.ExecutedPrice,
		Leverage:     lev,
		StopLoss:     sig.StopLoss,
		TakeProfit:   sig.TakeProfit,
		IsOpen:       true,
		SignalRef:    sig.ID,
		OpenedAt:     fill.FilledAt,
	}
	if pos.StopLoss == nil && c.opts.StopLossPct > 0 {
		sl := pos.EntryPrice * (1 - c.opts.StopLossPct)
		pos.StopLoss = &sl
	}
	if pos.TakeProfit == nil && c.opts.TakeProfitPct > 0 {
		tp := pos.EntryPrice * (1 + c.opts.TakeProfitPct)
		pos.TakeProfit = &tp
	}
	trade.PositionRef = pos.ID
	if err := c.ledger.Open(pos); err != nil {
		logger.Errorf("ledger open %s failed after fill: %v", sig.Symbol, err)
	}
	if opened, ok := c.ledger.OpenPosition(sig.Symbol); ok {
		pos = opened
	}
	c.persist(ctx, trade, model.PositionOpened, &pos)
	logger.Infof("opened LONG %s qty=%.6f price=%.4f lev=%d", sig.Symbol, pos.Quantity, pos.EntryPrice, lev)
	return TradeResult{
		Success:  true,
		Action:   ActionOpenLong,
		Quantity: fill.ExecutedQty,
		Price:    fill.ExecutedPrice,
		Leverage: lev,
		Trade:    trade,
		Position: &pos,
	}
}

func (c *Coordinator) close(ctx context.Context, sig types.TradeSignal, pos types.Position) TradeResult {
	side := types.OrderSell
	if pos.Side == types.Short {
		side = types.OrderBuy
	}
	trade := c.newTrade(sig, side, pos.Quantity, pos.Leverage)
	trade.PositionRef = pos.ID

	fill, err := c.gateway.PlaceOrder(ctx, exchange.OrderRequest{
		ClientID:       trade.ID,
		Symbol:         pos.Symbol,
		Side:           side,
		Quantity:       pos.Quantity,
		Leverage:       pos.Leverage,
		ReduceOnly:     true,
		ReferencePrice: sig.Price,
	})
	if err != nil {
		return c.rejected(ctx, trade, ActionClose, err)
	}
	c.markFilled(&trade, fill)

	closed, err := c.ledger.Close(pos.Symbol, fill.ExecutedPrice, fill.FilledAt)
	if err != nil {
		logger.Errorf("ledger close %s failed after fill: %v", pos.Symbol, err)
		closed = pos
		closed.IsOpen = false
		closed.CurrentPrice = fill.ExecutedPrice
		closed.RealizedPnL = pos.PnLAt(fill.ExecutedPrice)
	}
	c.persist(ctx, trade, model.PositionClosed, &closed)
	logger.Infof("closed %s %s qty=%.6f exit=%.4f pnl=%.4f", closed.Side, closed.Symbol, closed.Quantity, fill.ExecutedPrice, closed.RealizedPnL)
	return TradeResult{
		Success:     true,
		Action:      ActionClose,
		Quantity:    fill.ExecutedQty,
		Price:       fill.ExecutedPrice,
		Leverage:    pos.Leverage,
		Trade:       trade,
		Position:    &closed,
		Closed:      true,
		RealizedPnL: closed.RealizedPnL,
	}
}

func (c *Coordinator) noop(ctx context.Context, sig types.TradeSignal, note string) TradeResult {
	trade := c.newTrade(sig, types.OrderNone, 0, EffectiveLeverage(sig.Leverage, c.opts.Constraints))
	trade.Status = types.TradeNoOp
	trade.Note = note
	c.persist(ctx, trade, "", nil)
	return TradeResult{Success: true, Action: ActionNoOp, Price: sig.Price, Leverage: trade.Leverage, Trade: trade}
}

func (c *Coordinator) rejected(ctx context.Context, trade types.Trade, action Action, err error) TradeResult {
	if !errors.Is(err, exchange.ErrExchange) {
		err = fmt.Errorf("%w: %v", exchange.ErrExchange, err)
	}
	trade.Status = types.TradeRejected
	trade.Error = err.Error()
	c.persist(ctx, trade, "", nil)
	logger.Warnf("order %s %s rejected: %v", trade.Side, trade.Symbol, err)
	return TradeResult{
		Success:  false,
		Action:   action,
		Quantity: trade.Quantity,
		Price:    trade.RequestedPrice,
		Leverage: trade.Leverage,
		Error:    err.Error(),
		Trade:    trade,
	}
}

func (c *Coordinator) newTrade(sig types.TradeSignal, side types.OrderSide, qty float64, lev int) types.Trade {
	return types.Trade{
		ID:             c.opts.NewID(),
		Symbol:         sig.Symbol,
		Side:           side,
		Quantity:       qty,
		RequestedPrice: sig.Price,
		Leverage:       lev,
		SignalRef:      sig.ID,
		CreatedAt:      c.opts.Now().UTC(),
	}
}

func (c *Coordinator) markFilled(trade *types.Trade, fill exchange.Fill) {
	price, fee := fill.ExecutedPrice, fill.Fee
	at := fill.FilledAt
	if at.IsZero() {
		at = c.opts.Now().UTC()
	}
	trade.Status = types.TradeFilled
	trade.ExecutedPrice = &price
	trade.Fee = &fee
	trade.Quantity = fill.ExecutedQty
	trade.OrderID = fill.OrderID
	trade.ExecutedAt = &at
}

// persist writes the trade and, when given, the position event in one unit
// of work. Failures are logged; the in-memory ledger stays authoritative.
func (c *Coordinator) persist(ctx context.Context, trade types.Trade, kind model.PositionEventKind, pos *types.Position) {
	if c.store == nil {
		return
	}
	// Persist even when the cycle context is already cancelled.
	ctx = context.WithoutCancel(ctx)
	err := store.Atomic(ctx, c.store, func(uow store.UnitOfWork) error {
		row := model.FromTrade(trade)
		if err := uow.Trades().Insert(ctx, &row); err != nil {
			return err
		}
		if pos == nil || kind == "" {
			return nil
		}
		at := *trade.ExecutedAt
		ev := model.NewPositionEvent(kind, *pos, trade.ID, at)
		return uow.Positions().Append(ctx, &ev)
	})
	if err != nil {
		logger.Errorf("persist trade %s failed: %v", trade.ID, err)
	}
}
