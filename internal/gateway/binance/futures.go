package binance

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"quorum/internal/gateway/exchange"
	"quorum/internal/logger"
	"quorum/internal/types"

	"github.com/adshao/go-binance/v2/futures"
	"github.com/shopspring/decimal"
)

// Futures places MARKET orders on USD-M futures.
type Futures struct {
	cfg         Config
	client      *futures.Client
	constraints exchange.Constraints
	now         func() time.Time
}

func NewFutures(cfg Config, constraints exchange.Constraints) (*Futures, error) {
	final := cfg.withDefaults()
	if final.APIKey == "" || final.SecretKey == "" {
		return nil, fmt.Errorf("binance futures requires api key and secret")
	}
	return &Futures{cfg: final, client: newClient(final), constraints: constraints, now: time.Now}, nil
}

func (f *Futures) Name() string {
	if f.cfg.Testnet {
		return "binance-testnet"
	}
	return "binance"
}

func (f *Futures) Account(ctx context.Context) (types.AccountSnapshot, error) {
	acct, err := f.client.NewGetAccountService().Do(ctx)
	if err != nil {
		return types.AccountSnapshot{}, fmt.Errorf("%w: account: %v", exchange.ErrExchange, err)
	}
	daily, err := f.dailyRealized(ctx)
	if err != nil {
		logger.Warnf("binance daily pnl unavailable: %v", err)
	}
	return types.AccountSnapshot{
		AvailableBalance: parseFloat(acct.AvailableBalance),
		TotalBalance:     parseFloat(acct.TotalWalletBalance),
		UnrealizedPnL:    parseFloat(acct.TotalUnrealizedProfit),
		DailyRealizedPnL: daily,
		Currency:         "USDT",
		UpdatedAt:        f.now().UTC(),
	}, nil
}

// dailyRealized sums REALIZED_PNL and COMMISSION income since UTC midnight.
func (f *Futures) dailyRealized(ctx context.Context) (float64, error) {
	now := f.now().UTC()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	total := decimal.Zero
	for _, kind := range []string{"REALIZED_PNL", "COMMISSION"} {
		rows, err := f.client.NewGetIncomeHistoryService().
			IncomeType(kind).
			StartTime(midnight.UnixMilli()).
			Limit(1000).
			Do(ctx)
		if err != nil {
			return 0, err
		}
		for _, row := range rows {
			if row == nil {
				continue
			}
			if v, err := decimal.NewFromString(row.Income); err == nil {
				total = total.Add(v)
			}
		}
	}
	out, _ := total.Float64()
	return out, nil
}

func (f *Futures) PlaceOrder(ctx context.Context, req exchange.OrderRequest) (exchange.Fill, error) {
	sym := cleanSymbol(req.Symbol)
	side, err := orderSide(req.Side)
	if err != nil {
		return exchange.Fill{}, err
	}
	if req.Leverage > 0 && !req.ReduceOnly {
		if _, err := f.client.NewChangeLeverageService().Symbol(sym).Leverage(req.Leverage).Do(ctx); err != nil {
			return exchange.Fill{}, fmt.Errorf("%w: leverage %s x%d: %v", exchange.ErrExchange, sym, req.Leverage, err)
		}
	}
	qty := decimal.NewFromFloat(req.Quantity).Round(f.constraints.LotPrecision)
	svc := f.client.NewCreateOrderService().
		Symbol(sym).
		Side(side).
		Type(futures.OrderTypeMarket).
		Quantity(qty.String()).
		NewOrderResponseType(futures.NewOrderRespTypeRESULT)
	if req.ClientID != "" {
		svc = svc.NewClientOrderID(req.ClientID)
	}
	if req.ReduceOnly {
		svc = svc.ReduceOnly(true)
	}
	resp, err := svc.Do(ctx)
	if err != nil {
		return exchange.Fill{}, fmt.Errorf("%w: order %s %s: %v", exchange.ErrExchange, sym, req.Side, err)
	}
	price := parseFloat(resp.AvgPrice)
	if price <= 0 {
		price = req.ReferencePrice
	}
	executed := parseFloat(resp.ExecutedQuantity)
	if executed <= 0 {
		executed, _ = qty.Float64()
	}
	fee, _ := decimal.NewFromFloat(price).
		Mul(decimal.NewFromFloat(executed)).
		Mul(decimal.NewFromFloat(f.constraints.TakerFee)).
		Round(8).Float64()
	filledAt := f.now().UTC()
	if resp.UpdateTime > 0 {
		filledAt = time.UnixMilli(resp.UpdateTime).UTC()
	}
	return exchange.Fill{
		OrderID:       strconv.FormatInt(resp.OrderID, 10),
		ExecutedPrice: price,
		ExecutedQty:   executed,
		Fee:           fee,
		FilledAt:      filledAt,
	}, nil
}

func orderSide(side types.OrderSide) (futures.SideType, error) {
	switch side {
	case types.OrderBuy:
		return futures.SideTypeBuy, nil
	case types.OrderSell:
		return futures.SideTypeSell, nil
	}
	return "", fmt.Errorf("%w: unsupported order side %q", exchange.ErrExchange, side)
}
