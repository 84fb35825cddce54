package exchange

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"quorum/internal/types"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type paperPosition struct {
	side     types.Side
	qty      decimal.Decimal
	entry    decimal.Decimal
	margin   decimal.Decimal
	leverage int
}

// Paper is an in-process venue that fills market orders at the reference
// price and charges the taker fee on notional.
type Paper struct {
	mu        sync.Mutex
	cash      decimal.Decimal
	fee       decimal.Decimal
	positions map[string]*paperPosition
	daily     map[string]decimal.Decimal
	nowFn     func() time.Time
}

func NewPaper(initialBalance, takerFee float64) *Paper {
	return &Paper{
		cash:      decimal.NewFromFloat(initialBalance),
		fee:       decimal.NewFromFloat(takerFee),
		positions: make(map[string]*paperPosition),
		daily:     make(map[string]decimal.Decimal),
		nowFn:     time.Now,
	}
}

func (p *Paper) Name() string { return "paper" }

// Seed loads positions recovered at startup so they can be closed later.
// Symbols already held are left alone.
func (p *Paper) Seed(positions []types.Position) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, pos := range positions {
		symbol := strings.ToUpper(strings.TrimSpace(pos.Symbol))
		if symbol == "" || pos.Quantity <= 0 || pos.EntryPrice <= 0 {
			continue
		}
		if _, ok := p.positions[symbol]; ok {
			continue
		}
		lev := pos.Leverage
		if lev < 1 {
			lev = 1
		}
		qty := decimal.NewFromFloat(pos.Quantity)
		entry := decimal.NewFromFloat(pos.EntryPrice)
		p.positions[symbol] = &paperPosition{
			side:     pos.Side,
			qty:      qty,
			entry:    entry,
			margin:   entry.Mul(qty).Div(decimal.NewFromInt(int64(lev))),
			leverage: lev,
		}
	}
}

func (p *Paper) Account(ctx context.Context) (types.AccountSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return types.AccountSnapshot{}, fmt.Errorf("%w: %v", ErrExchange, err)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	used := decimal.Zero
	for _, pos := range p.positions {
		used = used.Add(pos.margin)
	}
	now := p.nowFn().UTC()
	return types.AccountSnapshot{
		AvailableBalance: p.cash.Sub(used).InexactFloat64(),
		TotalBalance:     p.cash.InexactFloat64(),
		DailyRealizedPnL: p.daily[dayKey(now)].InexactFloat64(),
		Currency:         "USDT",
		UpdatedAt:        now,
	}, nil
}

func (p *Paper) PlaceOrder(ctx context.Context, req OrderRequest) (Fill, error) {
	if err := ctx.Err(); err != nil {
		return Fill{}, fmt.Errorf("%w: %v", ErrExchange, err)
	}
	if req.ReferencePrice <= 0 {
		return Fill{}, fmt.Errorf("%w: no reference price for %s", ErrExchange, req.Symbol)
	}
	if req.Quantity <= 0 {
		return Fill{}, fmt.Errorf("%w: quantity must be positive", ErrExchange)
	}
	lev := req.Leverage
	if lev < 1 {
		lev = 1
	}
	symbol := strings.ToUpper(strings.TrimSpace(req.Symbol))
	price := decimal.NewFromFloat(req.ReferencePrice)
	qty := decimal.NewFromFloat(req.Quantity)
	notional := price.Mul(qty)
	fee := notional.Mul(p.fee)
	now := p.nowFn().UTC()

	p.mu.Lock()
	defer p.mu.Unlock()

	pos := p.positions[symbol]
	closing := pos != nil && ((req.Side == types.OrderSell && pos.side == types.Long) || (req.Side == types.OrderBuy && pos.side == types.Short))
	switch {
	case closing:
		if qty.GreaterThan(pos.qty) {
			qty = pos.qty
			notional = price.Mul(qty)
			fee = notional.Mul(p.fee)
		}
		diff := price.Sub(pos.entry)
		if pos.side == types.Short {
			diff = diff.Neg()
		}
		realized := diff.Mul(qty).Sub(fee)
		p.cash = p.cash.Add(realized)
		p.daily[dayKey(now)] = p.daily[dayKey(now)].Add(realized)
		remaining := pos.qty.Sub(qty)
		if remaining.IsZero() {
			delete(p.positions, symbol)
		} else {
			pos.margin = pos.margin.Mul(remaining).Div(pos.qty)
			pos.qty = remaining
		}
	case req.ReduceOnly:
		return Fill{}, fmt.Errorf("%w: reduce-only order with nothing to reduce on %s", ErrExchange, symbol)
	default:
		margin := notional.Div(decimal.NewFromInt(int64(lev)))
		used := decimal.Zero
		for _, other := range p.positions {
			used = used.Add(other.margin)
		}
		if p.cash.Sub(used).LessThan(margin.Add(fee)) {
			return Fill{}, fmt.Errorf("%w: insufficient margin for %s", ErrExchange, symbol)
		}
		side := types.Long
		if req.Side == types.OrderSell {
			side = types.Short
		}
		if pos == nil {
			p.positions[symbol] = &paperPosition{side: side, qty: qty, entry: price, margin: margin, leverage: lev}
		} else {
			total := pos.qty.Add(qty)
			pos.entry = pos.entry.Mul(pos.qty).Add(price.Mul(qty)).Div(total)
			pos.qty = total
			pos.margin = pos.margin.Add(margin)
		}
		p.cash = p.cash.Sub(fee)
		p.daily[dayKey(now)] = p.daily[dayKey(now)].Sub(fee)
	}

	return Fill{
		OrderID:       "paper-" + uuid.NewString(),
		ExecutedPrice: price.InexactFloat64(),
		ExecutedQty:   qty.InexactFloat64(),
		Fee:           fee.InexactFloat64(),
		FilledAt:      now,
	}, nil
}

func dayKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
