// Package orchestrator runs the trading cycle: market snapshot, advisories,
// fusion, risk gate, execution and notifications.
package orchestrator

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"quorum/internal/advisory"
	"quorum/internal/execution"
	"quorum/internal/fusion"
	"quorum/internal/gateway/exchange"
	"quorum/internal/gateway/notifier"
	"quorum/internal/ledger"
	"quorum/internal/logger"
	"quorum/internal/market"
	"quorum/internal/pkg/circuit"
	"quorum/internal/risk"
	"quorum/internal/scheduler"
	"quorum/internal/store"

	"github.com/google/uuid"
)

var ErrAlreadyRunning = errors.New("orchestrator already running")

const defaultSourceTimeout = 30 * time.Second

// Source is one directional advisory source with its fusion weight.
type Source struct {
	Name      string
	Kind      string
	Weight    float64
	Timeout   time.Duration
	Generator advisory.Generator
	Breaker   *circuit.Breaker
}

type SentimentSource struct {
	Name      string
	Weight    float64
	Timeout   time.Duration
	Generator advisory.SentimentGenerator
	Breaker   *circuit.Breaker
}

// Settings are the knobs that can change between cycles.
type Settings struct {
	Thresholds fusion.Thresholds `json:"thresholds"`
	Limits     risk.Limits       `json:"limits"`
}

type Deps struct {
	Market      market.Provider
	Sources     []Source
	Sentiment   *SentimentSource
	Fusion      *fusion.Engine
	Gate        *risk.Gate
	Coordinator *execution.Coordinator
	Exchange    exchange.Gateway
	Ledger      *ledger.Ledger
	Store       store.Store
	Sink        notifier.Sink
}

type Options struct {
	Symbol            string
	Interval          time.Duration
	RunImmediately    bool
	CycleTimeout      time.Duration
	HeartbeatInterval time.Duration
	DailyReport       bool
	Limits            risk.Limits

	Now   func() time.Time
	NewID func() string
}

type Orchestrator struct {
	deps   Deps
	opts   Options
	limits atomic.Pointer[risk.Limits]
	last   atomic.Pointer[Outcome]

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}

	// housekeeping state, touched only from the cycle goroutine
	lastHeartbeat time.Time
	reportDay     string
}

func New(deps Deps, opts Options) (*Orchestrator, error) {
	switch {
	case deps.Market == nil:
		return nil, errors.New("orchestrator: market provider required")
	case len(deps.Sources) == 0 && deps.Sentiment == nil:
		return nil, errors.New("orchestrator: at least one advisory source required")
	case deps.Coordinator == nil || deps.Exchange == nil || deps.Ledger == nil:
		return nil, errors.New("orchestrator: execution dependencies required")
	}
	if deps.Fusion == nil {
		deps.Fusion = fusion.NewEngine(fusion.Options{})
	}
	if deps.Gate == nil {
		deps.Gate = risk.NewGate()
	}
	opts.Symbol = strings.ToUpper(strings.TrimSpace(opts.Symbol))
	if opts.Symbol == "" {
		return nil, errors.New("orchestrator: symbol required")
	}
	if opts.Interval <= 0 {
		opts.Interval = time.Minute
	}
	if opts.Limits == (risk.Limits{}) {
		opts.Limits = risk.DefaultLimits()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	o := &Orchestrator{deps: deps, opts: opts}
	limits := opts.Limits
	o.limits.Store(&limits)
	return o, nil
}

// Start moves the engine to running and returns immediately. Cycles run
// every Interval until Stop or ctx cancellation.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.mu.Lock()
	if o.running {
		o.mu.Unlock()
		return ErrAlreadyRunning
	}
	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	o.running, o.cancel, o.done = true, cancel, done
	o.mu.Unlock()

	sched := scheduler.New("cycle:"+o.opts.Symbol, o.opts.Interval)
	sched.RunImmediately = o.opts.RunImmediately
	go func() {
		defer close(done)
		// In-flight cycles are detached from cancellation so Stop lets them finish.
		sched.Run(runCtx, func(c context.Context) { o.RunCycle(context.WithoutCancel(c)) })
		o.mu.Lock()
		o.running = false
		o.mu.Unlock()
		logger.Infof("orchestrator %s stopped", o.opts.Symbol)
	}()

	logger.Infof("orchestrator %s started interval=%s sources=%d", o.opts.Symbol, o.opts.Interval, len(o.deps.Sources))
	o.alert(ctx, notifier.StatusHealthy, map[string]string{"event": "engine started", "symbol": o.opts.Symbol})
	return nil
}

// Stop is idempotent. It waits for the in-flight cycle to finish.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	cancel, done := o.cancel, o.done
	o.cancel = nil
	o.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (o *Orchestrator) Running() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.running
}

// Done is closed when the current run loop exits. Nil before Start.
func (o *Orchestrator) Done() <-chan struct{} {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.done
}

// UpdateSettings swaps fusion thresholds and risk limits. The next cycle
// picks them up; a running cycle keeps the values it started with.
func (o *Orchestrator) UpdateSettings(s Settings) {
	o.deps.Fusion.SetThresholds(s.Thresholds)
	limits := s.Limits
	o.limits.Store(&limits)
	logger.Infof("orchestrator settings updated floor=%.2f tie=%.2f min_conf=%.2f max_daily_loss=%.2f",
		s.Thresholds.ConfidenceFloor, s.Thresholds.TieMargin, limits.MinConfidence, limits.MaxDailyLoss)
}

func (o *Orchestrator) Settings() Settings {
	return Settings{Thresholds: o.deps.Fusion.Thresholds(), Limits: *o.limits.Load()}
}

// Status is the read-only view served over HTTP.
type Status struct {
	Running     bool     `json:"running"`
	Symbol      string   `json:"symbol"`
	Interval    string   `json:"interval"`
	Sources     []string `json:"sources"`
	Settings    Settings `json:"settings"`
	LastOutcome *Outcome `json:"last_outcome,omitempty"`
}

func (o *Orchestrator) Status() Status {
	st := Status{
		Running:     o.Running(),
		Symbol:      o.opts.Symbol,
		Interval:    o.opts.Interval.String(),
		Settings:    o.Settings(),
		LastOutcome: o.last.Load(),
	}
	for _, s := range o.deps.Sources {
		st.Sources = append(st.Sources, s.Name)
	}
	if o.deps.Sentiment != nil {
		st.Sources = append(st.Sources, o.deps.Sentiment.Name)
	}
	return st
}

func (o *Orchestrator) Symbol() string { return o.opts.Symbol }
