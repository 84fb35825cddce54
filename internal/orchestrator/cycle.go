package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"quorum/internal/advisory"
	"quorum/internal/execution"
	"quorum/internal/fusion"
	"quorum/internal/gateway/notifier"
	"quorum/internal/logger"
	"quorum/internal/market"
	"quorum/internal/pkg/circuit"
	"quorum/internal/risk"
	"quorum/internal/store"
	"quorum/internal/store/model"
	"quorum/internal/types"

	"golang.org/x/sync/errgroup"
)

// Stage is where a cycle ended.
type Stage string

const (
	StageMarket    Stage = "MARKET"
	StageAccount   Stage = "ACCOUNT"
	StageRisk      Stage = "RISK"
	StageExecution Stage = "EXECUTION"
	StageDone      Stage = "DONE"
	StagePanic     Stage = "PANIC"
)

// ReasonAccountUnavailable is stored on signals that never reached the gate.
const ReasonAccountUnavailable = "ACCOUNT_UNAVAILABLE"

// Outcome is the logged result of one cycle. Failed is set for market,
// account, execution and panic endings; a risk rejection is not a failure.
type Outcome struct {
	CycleID   string                 `json:"cycle_id"`
	Symbol    string                 `json:"symbol"`
	Stage     Stage                  `json:"stage"`
	Failed    bool                   `json:"failed"`
	Error     string                 `json:"error,omitempty"`
	Signal    *types.TradeSignal     `json:"signal,omitempty"`
	Verdict   *risk.Verdict          `json:"verdict,omitempty"`
	Result    *execution.TradeResult `json:"result,omitempty"`
	StartedAt time.Time              `json:"started_at"`
	Duration  time.Duration          `json:"duration"`
}

// sourceCall is one advisory invocation of a cycle.
type sourceCall struct {
	source    string
	kind      string
	set       *advisory.AdvisorySet
	sentiment *advisory.SentimentAdvisory
	err       error
	latency   time.Duration
}

// RunCycle executes one full cycle. It never panics.
func (o *Orchestrator) RunCycle(ctx context.Context) (out Outcome) {
	start := o.opts.Now()
	out = Outcome{CycleID: o.opts.NewID(), Symbol: o.opts.Symbol, StartedAt: start.UTC()}
	parent := ctx
	defer func() {
		if r := recover(); r != nil {
			out.Stage, out.Failed = StagePanic, true
			out.Error = fmt.Sprintf("panic: %v", r)
			logger.Errorf("cycle %s panic: %v\n%s", out.CycleID, r, debug.Stack())
			o.alert(parent, notifier.StatusError, map[string]string{"cycle": out.CycleID, "error": out.Error})
		}
		o.safeHousekeeping(parent)
		out.Duration = o.opts.Now().Sub(start)
		saved := out
		o.last.Store(&saved)
		logger.Infof("cycle %s %s stage=%s failed=%v dur=%s", out.CycleID, out.Symbol, out.Stage, out.Failed, out.Duration.Round(time.Millisecond))
	}()

	if o.opts.CycleTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.opts.CycleTimeout)
		defer cancel()
	}
	limits := *o.limits.Load()

	snap, err := o.deps.Market.Latest(ctx, o.opts.Symbol)
	if err != nil {
		logger.Warnf("cycle %s: market snapshot unavailable: %v", out.CycleID, err)
		out.Stage, out.Failed, out.Error = StageMarket, true, err.Error()
		return out
	}
	o.deps.Ledger.Mark(o.opts.Symbol, snap.Price)

	sig, calls := o.analyze(ctx, snap, true)
	out.Signal = &sig
	logger.Infof("cycle %s signal %s conf=%.2f size=%d risk=%d override=%s",
		out.CycleID, sig.Direction, sig.Confidence, sig.PositionSize, sig.RiskLevel, sig.Detail.HoldOverride)

	account, err := o.deps.Exchange.Account(ctx)
	if err != nil {
		logger.Errorf("cycle %s: account unavailable: %v", out.CycleID, err)
		o.record(ctx, out.CycleID, sig, false, ReasonAccountUnavailable, calls)
		out.Stage, out.Failed, out.Error = StageAccount, true, err.Error()
		o.alert(ctx, notifier.StatusError, map[string]string{"cycle": out.CycleID, "error": "account: " + err.Error()})
		return out
	}

	verdict := o.deps.Gate.Admit(sig, limits, account)
	out.Verdict = &verdict
	o.record(ctx, out.CycleID, sig, verdict.Accepted, string(verdict.Reason), calls)
	if !verdict.Accepted {
		logger.Infof("cycle %s: signal rejected %s", out.CycleID, verdict)
		out.Stage = StageRisk
		o.notifyRejection(ctx, sig, verdict)
		return out
	}

	res := o.deps.Coordinator.Execute(ctx, sig, account, limits)
	out.Result = &res
	if !res.Success {
		logger.Errorf("cycle %s: execution failed: %s", out.CycleID, res.Error)
		out.Stage, out.Failed, out.Error = StageExecution, true, res.Error
		o.alert(ctx, notifier.StatusError, map[string]string{"cycle": out.CycleID, "action": string(res.Action), "error": res.Error})
		return out
	}
	o.notifyExecution(ctx, sig, res, account)
	out.Stage = StageDone
	return out
}

// safeHousekeeping runs after every cycle, whatever stage it ended in.
func (o *Orchestrator) safeHousekeeping(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("housekeeping panic: %v\n%s", r, debug.Stack())
		}
	}()
	o.housekeeping(ctx)
}

// Analyze runs market, advisories and fusion for symbol without gating,
// executing or persisting anything. Source breakers are neither consulted
// nor updated.
func (o *Orchestrator) Analyze(ctx context.Context, symbol string) (types.TradeSignal, error) {
	if symbol == "" {
		symbol = o.opts.Symbol
	}
	snap, err := o.deps.Market.Latest(ctx, symbol)
	if err != nil {
		return types.TradeSignal{}, fmt.Errorf("analyze %s: %w", symbol, err)
	}
	sig, _ := o.analyze(ctx, snap, false)
	return sig, nil
}

func (o *Orchestrator) analyze(ctx context.Context, snap market.Snapshot, live bool) (types.TradeSignal, []sourceCall) {
	calls := o.gather(ctx, snap, live)
	inputs := make([]fusion.Input, 0, len(o.deps.Sources))
	for i, src := range o.deps.Sources {
		inputs = append(inputs, fusion.Input{Source: src.Name, Kind: src.Kind, Weight: src.Weight, Advisory: calls[i].set})
	}
	var sent *fusion.SentimentInput
	if s := o.deps.Sentiment; s != nil {
		sent = &fusion.SentimentInput{Source: s.Name, Weight: s.Weight, Advisory: calls[len(calls)-1].sentiment}
	}
	return o.deps.Fusion.Fuse(snap.Symbol, snap.Price, inputs, sent), calls
}

// gather fans out to every source and waits for all of them. Failed or
// timed-out sources come back with a nil advisory. The sentiment call, when
// configured, is last. Only live cycles go through the source breakers.
func (o *Orchestrator) gather(ctx context.Context, snap market.Snapshot, live bool) []sourceCall {
	n := len(o.deps.Sources)
	if o.deps.Sentiment != nil {
		n++
	}
	calls := make([]sourceCall, n)
	var g errgroup.Group
	for i, src := range o.deps.Sources {
		i, src := i, src
		br := src.Breaker
		if !live {
			br = nil
		}
		g.Go(func() error {
			set, latency, err := invoke(ctx, src.Timeout, br, func(c context.Context) (advisory.AdvisorySet, error) {
				return src.Generator.Advise(c, snap)
			})
			calls[i] = sourceCall{source: src.Name, kind: src.Kind, err: err, latency: latency}
			if err == nil {
				calls[i].set = &set
			} else {
				logger.Warnf("advisory %s absent: %v", src.Name, err)
			}
			return nil
		})
	}
	if s := o.deps.Sentiment; s != nil {
		br := s.Breaker
		if !live {
			br = nil
		}
		g.Go(func() error {
			adv, latency, err := invoke(ctx, s.Timeout, br, func(c context.Context) (advisory.SentimentAdvisory, error) {
				return s.Generator.Advise(c, snap.Symbol, snap.Price)
			})
			c := sourceCall{source: s.Name, kind: "sentiment", err: err, latency: latency}
			if err == nil {
				c.sentiment = &adv
			} else {
				logger.Warnf("sentiment %s absent: %v", s.Name, err)
			}
			calls[n-1] = c
			return nil
		})
	}
	_ = g.Wait()
	return calls
}

type result[T any] struct {
	val T
	err error
}

// invoke calls fn under its own deadline and the source breaker. A source
// that ignores its context is abandoned at the deadline.
func invoke[T any](ctx context.Context, timeout time.Duration, br *circuit.Breaker, fn func(context.Context) (T, error)) (T, time.Duration, error) {
	if timeout <= 0 {
		timeout = defaultSourceTimeout
	}
	start := time.Now()
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var out T
	err := br.Do(func() error {
		ch := make(chan result[T], 1)
		go func() {
			defer func() {
				if r := recover(); r != nil {
					ch <- result[T]{err: fmt.Errorf("%w: panic: %v", advisory.ErrUnavailable, r)}
				}
			}()
			v, err := fn(cctx)
			ch <- result[T]{val: v, err: err}
		}()
		select {
		case r := <-ch:
			if r.err != nil {
				return r.err
			}
			out = r.val
			return nil
		case <-cctx.Done():
			return fmt.Errorf("%w: %v", advisory.ErrTimeout, cctx.Err())
		}
	})
	if errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, advisory.ErrTimeout) {
		err = fmt.Errorf("%w: %v", advisory.ErrTimeout, err)
	}
	return out, time.Since(start), err
}

// record appends the signal and its advisory calls in one unit of work.
func (o *Orchestrator) record(ctx context.Context, cycleID string, sig types.TradeSignal, accepted bool, reason string, calls []sourceCall) {
	if o.deps.Store == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	row := model.FromSignal(sig, accepted, reason)
	at := sig.CreatedAt.UnixMilli()
	rows := make([]model.AdvisoryCallModel, 0, len(calls))
	for _, c := range calls {
		r := model.AdvisoryCallModel{
			CycleID:       cycleID,
			SignalRef:     sig.ID,
			Source:        c.source,
			Kind:          c.kind,
			Symbol:        sig.Symbol,
			LatencyMs:     c.latency.Milliseconds(),
			CreatedAtUnix: at,
		}
		switch {
		case c.set != nil:
			r.Present, r.Direction, r.Confidence = true, string(c.set.Direction), c.set.Confidence
			r.Output = model.JSON(c.set)
		case c.sentiment != nil:
			r.Present, r.Direction, r.Confidence = true, string(c.sentiment.Sentiment), c.sentiment.Confidence
			r.Output = model.JSON(c.sentiment)
		}
		if c.err != nil {
			r.Error = c.err.Error()
		}
		rows = append(rows, r)
	}
	err := store.Atomic(ctx, o.deps.Store, func(uow store.UnitOfWork) error {
		if err := uow.Signals().Insert(ctx, &row); err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		return uow.AdvisoryCalls().InsertBatch(ctx, rows)
	})
	if err != nil {
		logger.Errorf("record signal %s failed: %v", sig.ID, err)
	}
}
