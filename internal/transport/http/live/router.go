package livehttp

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"quorum/internal/ledger"
	"quorum/internal/market"
	"quorum/internal/orchestrator"
	"quorum/internal/store"
	"quorum/internal/store/model"
	"quorum/internal/types"

	"github.com/gin-gonic/gin"
)

const (
	defaultListLimit = 100
	maxListLimit     = 500
)

// Engine is the part of the orchestrator the API reads.
type Engine interface {
	Status() orchestrator.Status
	Analyze(ctx context.Context, symbol string) (types.TradeSignal, error)
}

type Deps struct {
	Engine Engine
	Ledger ledger.View
	Store  store.Store
	// Symbols restricts /analysis; empty allows any symbol.
	Symbols []string
	Timeout time.Duration
}

type Router struct {
	deps    Deps
	symbols map[string]bool
}

func NewRouter(deps Deps) *Router {
	if deps.Timeout <= 0 {
		deps.Timeout = 60 * time.Second
	}
	r := &Router{deps: deps, symbols: make(map[string]bool, len(deps.Symbols))}
	for _, s := range deps.Symbols {
		r.symbols[strings.ToUpper(strings.TrimSpace(s))] = true
	}
	return r
}

func (r *Router) Register(group *gin.RouterGroup) {
	if group == nil {
		return
	}
	group.GET("/status", r.handleStatus)
	group.GET("/positions", r.handlePositions)
	group.GET("/summary", r.handleSummary)
	group.GET("/trades", r.handleTrades)
	group.GET("/signals", r.handleSignals)
	group.GET("/stats/daily", r.handleDailyStats)
	group.GET("/analysis/:symbol", r.handleAnalysis)
	group.GET("/report/pnl", r.handlePnLReport)
}

func (r *Router) handleStatus(c *gin.Context) {
	if r.deps.Engine == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "engine not running"})
		return
	}
	c.JSON(http.StatusOK, r.deps.Engine.Status())
}

func (r *Router) handlePositions(c *gin.Context) {
	if r.deps.Ledger != nil {
		st := r.deps.Ledger.Snapshot()
		c.JSON(http.StatusOK, gin.H{"positions": st.Open, "unrealized_pnl": st.UnrealizedPnL, "updated_at": st.UpdatedAt})
		return
	}
	if !r.requireStore(c) {
		return
	}
	var open []types.Position
	err := store.Read(c.Request.Context(), r.deps.Store, func(uow store.UnitOfWork) error {
		var err error
		open, err = uow.Positions().LoadOpen(c.Request.Context())
		return err
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"positions": open})
}

func (r *Router) handleSummary(c *gin.Context) {
	if !r.requireStore(c) {
		return
	}
	sum, err := store.Summarize(c.Request.Context(), r.deps.Store)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	// The ledger carries marked prices; the store only has the open snapshot.
	if r.deps.Ledger != nil {
		st := r.deps.Ledger.Snapshot()
		sum.OpenPositions = st.Open
		sum.UnrealizedPnL = st.UnrealizedPnL
	}
	c.JSON(http.StatusOK, sum)
}

func (r *Router) handleTrades(c *gin.Context) {
	if !r.requireStore(c) {
		return
	}
	q := listQuery(c)
	var rows []model.TradeModel
	err := store.Read(c.Request.Context(), r.deps.Store, func(uow store.UnitOfWork) error {
		var err error
		rows, err = uow.Trades().List(c.Request.Context(), q)
		return err
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	trades := make([]types.Trade, 0, len(rows))
	for _, row := range rows {
		trades = append(trades, row.ToDomain())
	}
	c.JSON(http.StatusOK, gin.H{"trades": trades, "count": len(trades)})
}

type signalView struct {
	types.TradeSignal
	Accepted     bool   `json:"accepted"`
	RejectReason string `json:"reject_reason,omitempty"`
}

func (r *Router) handleSignals(c *gin.Context) {
	if !r.requireStore(c) {
		return
	}
	q := listQuery(c)
	var rows []model.SignalModel
	err := store.Read(c.Request.Context(), r.deps.Store, func(uow store.UnitOfWork) error {
		var err error
		rows, err = uow.Signals().List(c.Request.Context(), q)
		return err
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	out := make([]signalView, 0, len(rows))
	for _, row := range rows {
		out = append(out, signalView{TradeSignal: row.ToDomain(), Accepted: row.Accepted, RejectReason: row.RejectReason})
	}
	c.JSON(http.StatusOK, gin.H{"signals": out, "count": len(out)})
}

func (r *Router) handleDailyStats(c *gin.Context) {
	if !r.requireStore(c) {
		return
	}
	days, _ := strconv.Atoi(c.DefaultQuery("days", "7"))
	if days <= 0 || days > 366 {
		days = 7
	}
	stats, err := store.CollectDailyStats(c.Request.Context(), r.deps.Store, time.Now(), days)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"days": days, "stats": stats})
}

func (r *Router) handleAnalysis(c *gin.Context) {
	if r.deps.Engine == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "engine not running"})
		return
	}
	symbol := strings.ToUpper(strings.TrimSpace(c.Param("symbol")))
	if len(r.symbols) > 0 && !r.symbols[symbol] {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported symbol " + symbol})
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), r.deps.Timeout)
	defer cancel()
	sig, err := r.deps.Engine.Analyze(ctx, symbol)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, market.ErrNotAvailable) {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, sig)
}

func (r *Router) requireStore(c *gin.Context) bool {
	if r.deps.Store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "store not configured"})
		return false
	}
	return true
}

func listQuery(c *gin.Context) store.Query {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultListLimit)))
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	q := store.Query{Symbol: c.Query("symbol"), Limit: limit}
	if since := strings.TrimSpace(c.Query("since")); since != "" {
		if ts, err := time.Parse(time.RFC3339, since); err == nil {
			q.Since = ts
		}
	}
	return q
}
