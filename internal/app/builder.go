package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"quorum/internal/advisory"
	"quorum/internal/advisory/provider"
	"quorum/internal/config"
	"quorum/internal/execution"
	"quorum/internal/fusion"
	"quorum/internal/gateway/binance"
	"quorum/internal/gateway/exchange"
	"quorum/internal/gateway/notifier"
	"quorum/internal/ledger"
	"quorum/internal/logger"
	"quorum/internal/market"
	"quorum/internal/orchestrator"
	"quorum/internal/pkg/circuit"
	"quorum/internal/risk"
	"quorum/internal/store"
	"quorum/internal/store/sqlite"
	"quorum/internal/types"
	livehttp "quorum/internal/transport/http/live"
)

const (
	breakerThreshold = 3
	breakerCooldown  = 5 * time.Minute
	chatMaxRetries   = 2
)

// AppBuilder wires the engine from config. The constructor hooks can be
// swapped with options, mainly in tests.
type AppBuilder struct {
	cfg *config.Config

	storeFn     func(string) (store.Store, error)
	marketFn    func(config.MarketConfig) (market.Provider, error)
	exchangeFn  func(config.ExchangeConfig) (exchange.Gateway, error)
	advisorFn   func(config.AdvisorConfig) (advisory.Generator, error)
	sentimentFn func(config.SentimentConfig) (advisory.SentimentGenerator, error)
	notifierFn  func(config.NotifyConfig) notifier.TextNotifier
	withHTTP    bool
}

type AppBuilderOption func(*AppBuilder)

func WithStore(st store.Store) AppBuilderOption {
	return func(b *AppBuilder) { b.storeFn = func(string) (store.Store, error) { return st, nil } }
}

func WithMarket(p market.Provider) AppBuilderOption {
	return func(b *AppBuilder) { b.marketFn = func(config.MarketConfig) (market.Provider, error) { return p, nil } }
}

func WithExchange(gw exchange.Gateway) AppBuilderOption {
	return func(b *AppBuilder) { b.exchangeFn = func(config.ExchangeConfig) (exchange.Gateway, error) { return gw, nil } }
}

func WithoutHTTP() AppBuilderOption {
	return func(b *AppBuilder) { b.withHTTP = false }
}

func NewAppBuilder(cfg *config.Config, opts ...AppBuilderOption) *AppBuilder {
	b := &AppBuilder{
		cfg:         cfg,
		storeFn:     openStore,
		marketFn:    buildMarket,
		exchangeFn:  buildExchange,
		advisorFn:   buildAdvisor,
		sentimentFn: buildSentiment,
		notifierFn:  buildTextNotifier,
		withHTTP:    true,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

func (b *AppBuilder) Build(ctx context.Context) (*App, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if b.cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	cfg := b.cfg
	logger.SetLevel(cfg.App.LogLevel)

	st, err := b.storeFn(cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", cfg.Store.Path, err)
	}
	ok := false
	defer func() {
		if !ok {
			_ = st.Close()
		}
	}()

	led := ledger.New()
	open, err := recoverPositions(ctx, st)
	if err != nil {
		return nil, err
	}
	restored := led.Restore(open)
	if restored > 0 {
		logger.Infof("✓ recovered %d open positions from store", restored)
	}

	mkt, err := b.marketFn(cfg.Market)
	if err != nil {
		return nil, err
	}
	gw, err := b.exchangeFn(cfg.Exchange)
	if err != nil {
		return nil, err
	}
	if paper, isPaper := gw.(*exchange.Paper); isPaper {
		paper.Seed(led.Snapshot().Open)
	}

	summary := &StartupSummary{
		Symbol:    cfg.Trading.Symbol,
		Interval:  cfg.Trading.Interval().String(),
		Exchange:  gw.Name(),
		Store:     cfg.Store.Path,
		Recovered: restored,
	}

	sources := make([]orchestrator.Source, 0, len(cfg.Advisors))
	for _, ac := range cfg.Advisors {
		if !ac.IsEnabled() {
			continue
		}
		gen, err := b.advisorFn(ac)
		if err != nil {
			return nil, fmt.Errorf("advisor %s: %w", ac.ID, err)
		}
		sources = append(sources, orchestrator.Source{
			Name:      ac.ID,
			Kind:      ac.Kind,
			Weight:    ac.Weight,
			Timeout:   ac.Timeout(),
			Generator: gen,
			Breaker:   circuit.New(ac.ID, breakerThreshold, breakerCooldown),
		})
		summary.Sources = append(summary.Sources, SourceSummary{Name: ac.ID, Kind: ac.Kind, Weight: ac.Weight})
	}
	var sentiment *orchestrator.SentimentSource
	if cfg.Sentiment.Enabled() {
		gen, err := b.sentimentFn(cfg.Sentiment)
		if err != nil {
			return nil, fmt.Errorf("sentiment: %w", err)
		}
		sentiment = &orchestrator.SentimentSource{
			Name:      gen.Name(),
			Weight:    cfg.Sentiment.Weight,
			Timeout:   cfg.Sentiment.Timeout(),
			Generator: gen,
			Breaker:   circuit.New(gen.Name(), breakerThreshold, breakerCooldown),
		}
		summary.Sources = append(summary.Sources, SourceSummary{Name: gen.Name(), Kind: "sentiment", Weight: cfg.Sentiment.Weight})
	}

	settings := SettingsFromConfig(cfg)
	engine := fusion.NewEngine(fusion.Options{
		Thresholds:      settings.Thresholds,
		DefaultLeverage: cfg.Trading.DefaultLeverage,
	})
	coord := execution.NewCoordinator(gw, led, st, execution.Options{
		Constraints:   ConstraintsFromConfig(cfg.Exchange),
		StopLossPct:   cfg.Risk.StopLossPct,
		TakeProfitPct: cfg.Risk.TakeProfitPct,
	})

	var channel notifier.TextNotifier
	if b.notifierFn != nil {
		channel = b.notifierFn(cfg.Notify)
	}
	sink := notifier.NewDispatcher(channel, st, cfg.Notify.Categories, cfg.Notify.Timeout())
	summary.Notifications = cfg.Notify.Categories
	if channel == nil {
		summary.Notifications = append([]string{"log only"}, summary.Notifications...)
	}

	orch, err := orchestrator.New(orchestrator.Deps{
		Market:      mkt,
		Sources:     sources,
		Sentiment:   sentiment,
		Fusion:      engine,
		Gate:        risk.NewGate(),
		Coordinator: coord,
		Exchange:    gw,
		Ledger:      led,
		Store:       st,
		Sink:        sink,
	}, orchestrator.Options{
		Symbol:            cfg.Trading.Symbol,
		Interval:          cfg.Trading.Interval(),
		RunImmediately:    cfg.Trading.RunImmediately,
		CycleTimeout:      time.Duration(cfg.Trading.CycleTimeoutSecs) * time.Second,
		HeartbeatInterval: time.Duration(cfg.Notify.HeartbeatMinutes) * time.Minute,
		DailyReport:       cfg.Notify.DailyReport,
		Limits:            settings.Limits,
	})
	if err != nil {
		return nil, err
	}

	var srv *livehttp.Server
	if b.withHTTP && strings.TrimSpace(cfg.App.HTTPAddr) != "" {
		srv, err = livehttp.NewServer(livehttp.ServerConfig{
			Addr: cfg.App.HTTPAddr,
			Deps: livehttp.Deps{Engine: orch, Ledger: led, Store: st, Symbols: cfg.Trading.SupportedSymbols},
		})
		if err != nil {
			return nil, err
		}
		summary.HTTPAddr = srv.Addr()
	}

	ok = true
	return &App{cfg: cfg, store: st, ledger: led, engine: orch, liveHTTP: srv, Summary: summary}, nil
}

func recoverPositions(ctx context.Context, st store.Store) ([]types.Position, error) {
	var open []types.Position
	err := store.Read(ctx, st, func(uow store.UnitOfWork) error {
		var err error
		open, err = uow.Positions().LoadOpen(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("recover open positions: %w", err)
	}
	return open, nil
}

func openStore(path string) (store.Store, error) {
	return sqlite.NewSqliteStore(path)
}

func buildMarket(mc config.MarketConfig) (market.Provider, error) {
	switch mc.Source {
	case "binance", "":
		return binance.NewMarketSource(binance.Config{
			RESTBaseURL: mc.RESTBaseURL,
			HTTPTimeout: mc.Timeout(),
			Interval:    mc.Interval,
			Limit:       mc.Limit,
		}), nil
	default:
		return nil, fmt.Errorf("market.source %q is not supported", mc.Source)
	}
}

func buildExchange(ec config.ExchangeConfig) (exchange.Gateway, error) {
	switch ec.Kind {
	case "paper":
		return exchange.NewPaper(ec.PaperBalance, ec.TakerFee), nil
	case "binance":
		return binance.NewFutures(binance.Config{
			RESTBaseURL: ec.RESTBaseURL,
			HTTPTimeout: ec.Timeout(),
			APIKey:      ec.APIKey,
			SecretKey:   ec.SecretKey,
			Testnet:     ec.Testnet,
		}, ConstraintsFromConfig(ec))
	default:
		return nil, fmt.Errorf("exchange.kind %q is not supported", ec.Kind)
	}
}

func buildAdvisor(ac config.AdvisorConfig) (advisory.Generator, error) {
	switch ac.Kind {
	case "technical":
		return provider.NewTechnical(ac.ID), nil
	case "chat":
		return provider.NewChatAdvisor(ac.ID, provider.NewChatClient(provider.ChatConfig{
			BaseURL:     ac.APIURL,
			APIKey:      ac.APIKey,
			Model:       ac.Model,
			Temperature: ac.Temperature,
			MaxTokens:   ac.MaxTokens,
			Timeout:     ac.Timeout(),
			MaxRetries:  chatMaxRetries,
		})), nil
	default:
		return nil, fmt.Errorf("unknown advisor kind %q", ac.Kind)
	}
}

func buildSentiment(sc config.SentimentConfig) (advisory.SentimentGenerator, error) {
	switch sc.Kind {
	case "fear_greed":
		return provider.NewFearGreed(sc.APIURL, sc.Timeout()), nil
	case "chat":
		return provider.NewChatSentiment("sentiment", provider.NewChatClient(provider.ChatConfig{
			BaseURL:    sc.APIURL,
			APIKey:     sc.APIKey,
			Model:      sc.Model,
			Timeout:    sc.Timeout(),
			MaxRetries: chatMaxRetries,
		})), nil
	default:
		return nil, fmt.Errorf("unknown sentiment kind %q", sc.Kind)
	}
}

func buildTextNotifier(nc config.NotifyConfig) notifier.TextNotifier {
	if !nc.Telegram.Enabled {
		return nil
	}
	return notifier.NewTelegram(nc.Telegram.BotToken, nc.Telegram.ChatID, nc.Telegram.BaseURL, nc.Timeout())
}
