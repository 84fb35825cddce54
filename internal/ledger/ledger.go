// Package ledger keeps the authoritative set of positions.
//
// Only the execution coordinator holds a *Ledger; everything else reads
// through View, which serves an immutable snapshot republished after every
// mutation.
package ledger

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"quorum/internal/types"
)

const maxClosedHistory = 500

var (
	ErrPositionExists = errors.New("position already open")
	ErrNoPosition     = errors.New("no open position")
)

// View is the read-only side of the ledger.
type View interface {
	Snapshot() State
	OpenPosition(symbol string) (types.Position, bool)
}

// State is a point-in-time copy of the ledger.
type State struct {
	Open          []types.Position `json:"open"`
	Closed        []types.Position `json:"closed"`
	UnrealizedPnL float64          `json:"unrealized_pnl"`
	RealizedPnL   float64          `json:"realized_pnl"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

type Ledger struct {
	mu       sync.Mutex
	symbolMu map[string]*sync.Mutex
	open     map[string]types.Position
	closed   []types.Position
	realized float64

	snapshot atomic.Value
	nowFn    func() time.Time
}

func New() *Ledger {
	l := &Ledger{
		symbolMu: make(map[string]*sync.Mutex),
		open:     make(map[string]types.Position),
		nowFn:    time.Now,
	}
	l.mu.Lock()
	l.publishLocked()
	l.mu.Unlock()
	return l
}

// Lock serializes work on one symbol and returns the unlock func. Callers
// hold it across check, order and mutation so a symbol never sees two
// concurrent transitions.
func (l *Ledger) Lock(symbol string) func() {
	key := normSymbol(symbol)
	l.mu.Lock()
	m, ok := l.symbolMu[key]
	if !ok {
		m = &sync.Mutex{}
		l.symbolMu[key] = m
	}
	l.mu.Unlock()
	m.Lock()
	return m.Unlock
}

func (l *Ledger) OpenPosition(symbol string) (types.Position, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	p, ok := l.open[normSymbol(symbol)]
	return p, ok
}

// Open records a new open position for its symbol.
func (l *Ledger) Open(p types.Position) error {
	if p.Quantity <= 0 || p.EntryPrice <= 0 {
		return fmt.Errorf("open %s: quantity and entry price must be positive", p.Symbol)
	}
	key := normSymbol(p.Symbol)
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.open[key]; ok {
		return fmt.Errorf("open %s: %w", key, ErrPositionExists)
	}
	p.Symbol = key
	p.IsOpen = true
	p.ClosedAt = nil
	if p.Leverage < 1 {
		p.Leverage = 1
	}
	if p.CurrentPrice <= 0 {
		p.CurrentPrice = p.EntryPrice
	}
	p.UnrealizedPnL = p.PnLAt(p.CurrentPrice)
	l.open[key] = p
	l.publishLocked()
	return nil
}

// Close settles the open position of symbol at exitPrice and moves it to
// history. The realized P&L is (exit-entry)*qty, negated for shorts.
func (l *Ledger) Close(symbol string, exitPrice float64, at time.Time) (types.Position, error) {
	key := normSymbol(symbol)
	l.mu.Lock()
	defer l.mu.Unlock()
	p, ok := l.open[key]
	if !ok {
		return types.Position{}, fmt.Errorf("close %s: %w", key, ErrNoPosition)
	}
	closedAt := at.UTC()
	p.RealizedPnL = p.PnLAt(exitPrice)
	p.CurrentPrice = exitPrice
	p.UnrealizedPnL = 0
	p.IsOpen = false
	p.ClosedAt = &closedAt
	delete(l.open, key)
	l.closed = append(l.closed, p)
	if len(l.closed) > maxClosedHistory {
		l.closed = append([]types.Position(nil), l.closed[len(l.closed)-maxClosedHistory:]...)
	}
	l.realized += p.RealizedPnL
	l.publishLocked()
	return p, nil
}

// Mark updates the current price and unrealized P&L of an open position.
func (l *Ledger) Mark(symbol string, price float64) (types.Position, bool) {
	if price <= 0 {
		return types.Position{}, false
	}
	key := normSymbol(symbol)
	l.mu.Lock()
	defer l.mu.Unlock()
	p, ok := l.open[key]
	if !ok {
		return types.Position{}, false
	}
	p.CurrentPrice = price
	p.UnrealizedPnL = p.PnLAt(price)
	l.open[key] = p
	l.publishLocked()
	return p, true
}

// Restore loads positions recovered from the record store. Entries for a
// symbol that is already open are skipped.
func (l *Ledger) Restore(positions []types.Position) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, p := range positions {
		key := normSymbol(p.Symbol)
		if !p.IsOpen || key == "" {
			continue
		}
		if _, ok := l.open[key]; ok {
			continue
		}
		p.Symbol = key
		l.open[key] = p
		n++
	}
	l.publishLocked()
	return n
}

func (l *Ledger) Snapshot() State {
	v, ok := l.snapshot.Load().(State)
	if !ok {
		return State{}
	}
	v.Open = append([]types.Position(nil), v.Open...)
	v.Closed = append([]types.Position(nil), v.Closed...)
	return v
}

func (l *Ledger) publishLocked() {
	st := State{
		Open:        make([]types.Position, 0, len(l.open)),
		Closed:      append([]types.Position(nil), l.closed...),
		RealizedPnL: l.realized,
		UpdatedAt:   l.nowFn().UTC(),
	}
	for _, p := range l.open {
		st.Open = append(st.Open, p)
		st.UnrealizedPnL += p.UnrealizedPnL
	}
	sort.Slice(st.Open, func(i, j int) bool { return st.Open[i].Symbol < st.Open[j].Symbol })
	l.snapshot.Store(st)
}

func normSymbol(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
