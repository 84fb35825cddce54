package binance

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"quorum/internal/market"
	"quorum/internal/scheduler"

	"github.com/adshao/go-binance/v2/futures"
)

const maxHistoryLimit = 1500

// MarketSource builds snapshots from USD-M futures klines and 24h tickers.
type MarketSource struct {
	cfg    Config
	client *futures.Client
	now    func() time.Time
}

func NewMarketSource(cfg Config) *MarketSource {
	final := cfg.withDefaults()
	// Market data is public; keys are not needed here.
	final.APIKey, final.SecretKey = "", ""
	return &MarketSource{cfg: final, client: newClient(final), now: time.Now}
}

func (s *MarketSource) Latest(ctx context.Context, symbol string) (market.Snapshot, error) {
	sym := cleanSymbol(symbol)
	if sym == "" {
		return market.Snapshot{}, fmt.Errorf("%w: symbol is required", market.ErrNotAvailable)
	}
	candles, err := s.FetchHistory(ctx, sym, s.cfg.Interval, s.cfg.Limit)
	if err != nil {
		return market.Snapshot{}, fmt.Errorf("%w: klines %s: %v", market.ErrNotAvailable, sym, err)
	}
	if len(candles) == 0 {
		return market.Snapshot{}, fmt.Errorf("%w: no klines for %s", market.ErrNotAvailable, sym)
	}
	snap := market.Snapshot{
		Symbol:      sym,
		Price:       candles[len(candles)-1].Close,
		Interval:    s.cfg.Interval,
		Candles:     candles,
		Indicators:  market.ComputeIndicators(candles),
		CollectedAt: s.now().UTC(),
	}
	stats, err := s.client.NewListPriceChangeStatsService().Symbol(sym).Do(ctx)
	if err != nil {
		return market.Snapshot{}, fmt.Errorf("%w: ticker %s: %v", market.ErrNotAvailable, sym, err)
	}
	for _, st := range stats {
		if st == nil || !strings.EqualFold(st.Symbol, sym) {
			continue
		}
		if last := parseFloat(st.LastPrice); last > 0 {
			snap.Price = last
		}
		snap.Change24h = parseFloat(st.PriceChangePercent)
		snap.Volume24h = parseFloat(st.Volume)
		snap.High24h = parseFloat(st.HighPrice)
		snap.Low24h = parseFloat(st.LowPrice)
		break
	}
	if snap.Price <= 0 {
		return market.Snapshot{}, fmt.Errorf("%w: no price for %s", market.ErrNotAvailable, sym)
	}
	return snap, nil
}

// FetchHistory returns closed candles only.
func (s *MarketSource) FetchHistory(ctx context.Context, symbol, interval string, limit int) ([]market.Candle, error) {
	if limit <= 0 {
		limit = 100
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	interval = strings.ToLower(strings.TrimSpace(interval))
	if interval == "" {
		return nil, fmt.Errorf("interval is required")
	}
	kls, err := s.client.NewKlinesService().Symbol(cleanSymbol(symbol)).Interval(interval).Limit(limit).Do(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]market.Candle, 0, len(kls))
	for _, kl := range kls {
		if kl == nil {
			continue
		}
		out = append(out, market.Candle{
			OpenTime:  kl.OpenTime,
			CloseTime: kl.CloseTime,
			Open:      parseFloat(kl.Open),
			High:      parseFloat(kl.High),
			Low:       parseFloat(kl.Low),
			Close:     parseFloat(kl.Close),
			Volume:    parseFloat(kl.Volume),
		})
	}
	if dur, ok := scheduler.ParseIntervalDuration(interval); ok {
		out = scheduler.DropUnclosedKline(out, dur, s.now())
	}
	return out, nil
}

func parseFloat(v string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return 0
	}
	return f
}
