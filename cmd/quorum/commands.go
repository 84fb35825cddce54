package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"quorum/internal/app"
	"quorum/internal/store"
	"quorum/internal/store/model"
	"quorum/internal/store/sqlite"
	"quorum/internal/types"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func (c *cli) runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start the decision cycle loop and the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.run(cmd.Context())
		},
	}
}

func (c *cli) run(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()
	a, err := app.NewApp(c.cfg)
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}
	return a.Run(ctx)
}

func (c *cli) analyzeCmd() *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "analyze [SYMBOL]",
		Short: "Fuse one signal without gating, trading or persisting it",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			symbol := c.cfg.Trading.Symbol
			if len(args) == 1 {
				symbol = strings.ToUpper(strings.TrimSpace(args[0]))
			}
			a, err := app.NewAppBuilder(c.cfg, app.WithoutHTTP()).Build(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			sig, err := a.Engine().Analyze(ctx, symbol)
			if err != nil {
				return err
			}
			fmt.Println(renderSignal(sig))
			return nil
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 90*time.Second, "overall analysis timeout")
	return cmd
}

func (c *cli) positionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "positions",
		Short: "List open positions from the record store",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withStore(cmd.Context(), func(ctx context.Context, st store.Store) error {
				var open []types.Position
				err := store.Read(ctx, st, func(uow store.UnitOfWork) error {
					var err error
					open, err = uow.Positions().LoadOpen(ctx)
					return err
				})
				if err != nil {
					return err
				}
				fmt.Println(renderPositions(open))
				return nil
			})
		},
	}
}

func (c *cli) tradesCmd() *cobra.Command {
	var q historyFlags
	cmd := &cobra.Command{
		Use:   "trades",
		Short: "List recorded trades, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withStore(cmd.Context(), func(ctx context.Context, st store.Store) error {
				var rows []model.TradeModel
				err := store.Read(ctx, st, func(uow store.UnitOfWork) error {
					var err error
					rows, err = uow.Trades().List(ctx, q.query())
					return err
				})
				if err != nil {
					return err
				}
				trades := make([]types.Trade, 0, len(rows))
				for _, row := range rows {
					trades = append(trades, row.ToDomain())
				}
				fmt.Println(renderTrades(trades))
				return nil
			})
		},
	}
	q.bind(cmd)
	return cmd
}

func (c *cli) signalsCmd() *cobra.Command {
	var q historyFlags
	cmd := &cobra.Command{
		Use:   "signals",
		Short: "List fused signals with their risk verdicts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withStore(cmd.Context(), func(ctx context.Context, st store.Store) error {
				var rows []model.SignalModel
				err := store.Read(ctx, st, func(uow store.UnitOfWork) error {
					var err error
					rows, err = uow.Signals().List(ctx, q.query())
					return err
				})
				if err != nil {
					return err
				}
				fmt.Println(renderSignals(rows))
				return nil
			})
		},
	}
	q.bind(cmd)
	return cmd
}

func (c *cli) summaryCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Show trade statistics and realized P&L",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withStore(cmd.Context(), func(ctx context.Context, st store.Store) error {
				sum, err := store.Summarize(ctx, st)
				if err != nil {
					return err
				}
				if asJSON {
					enc := json.NewEncoder(os.Stdout)
					enc.SetIndent("", "  ")
					return enc.Encode(sum)
				}
				fmt.Println(renderSummary(sum))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	return cmd
}

func (c *cli) configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration with defaults applied",
		RunE: func(_ *cobra.Command, _ []string) error {
			out, err := yaml.Marshal(c.cfg)
			if err != nil {
				return err
			}
			fmt.Printf("# %s\n%s", c.cfg.Path(), out)
			return nil
		},
	}
}

func (c *cli) withStore(ctx context.Context, fn func(context.Context, store.Store) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	st, err := sqlite.NewSqliteStore(c.cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("open store %s: %w", c.cfg.Store.Path, err)
	}
	defer st.Close()
	return fn(ctx, st)
}

type historyFlags struct {
	symbol string
	limit  int
	since  time.Duration
}

func (h *historyFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&h.symbol, "symbol", "", "filter by symbol")
	cmd.Flags().IntVar(&h.limit, "limit", 20, "maximum rows")
	cmd.Flags().DurationVar(&h.since, "since", 0, "only rows newer than this (e.g. 24h)")
}

func (h historyFlags) query() store.Query {
	q := store.Query{Symbol: strings.ToUpper(strings.TrimSpace(h.symbol)), Limit: h.limit}
	if h.since > 0 {
		q.Since = time.Now().Add(-h.since)
	}
	return q
}
