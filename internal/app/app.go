package app

import (
	"context"
	"errors"
	"fmt"

	"quorum/internal/config"
	"quorum/internal/ledger"
	"quorum/internal/logger"
	"quorum/internal/orchestrator"
	"quorum/internal/store"
	livehttp "quorum/internal/transport/http/live"

	"golang.org/x/sync/errgroup"
)

// App owns the wired engine: store, ledger, orchestrator and HTTP API.
type App struct {
	cfg      *config.Config
	store    store.Store
	ledger   *ledger.Ledger
	engine   *orchestrator.Orchestrator
	liveHTTP *livehttp.Server
	Summary  *StartupSummary
}

// NewApp builds the application without starting it.
func NewApp(cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	return buildAppWithWire(context.Background(), cfg)
}

// Run starts the cycle loop, the HTTP API and the config watcher and blocks
// until ctx is cancelled or one of them fails.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.engine == nil {
		return fmt.Errorf("app not initialized")
	}
	defer a.Close()
	if a.Summary != nil {
		a.Summary.Print()
	}

	group, ctx := errgroup.WithContext(ctx)
	if a.liveHTTP != nil {
		group.Go(func() error {
			if err := a.liveHTTP.Start(ctx); err != nil {
				return fmt.Errorf("live http server error: %w", err)
			}
			return nil
		})
	}
	if a.cfg.App.WatchConfig && a.cfg.Path() != "" {
		group.Go(func() error {
			return config.Watch(ctx, a.cfg.Path(), a.applyConfig)
		})
	}
	group.Go(func() error {
		if err := a.engine.Start(ctx); err != nil {
			return err
		}
		<-ctx.Done()
		a.engine.Stop()
		return nil
	})
	err := group.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// applyConfig hot-swaps the fusion and risk blocks. Everything else needs a
// restart.
func (a *App) applyConfig(cfg *config.Config) {
	a.engine.UpdateSettings(SettingsFromConfig(cfg))
}

func (a *App) Close() {
	if a == nil || a.store == nil {
		return
	}
	if err := a.store.Close(); err != nil {
		logger.Warnf("close store: %v", err)
	}
	a.store = nil
}

func (a *App) Engine() *orchestrator.Orchestrator {
	if a == nil {
		return nil
	}
	return a.engine
}

func (a *App) Ledger() *ledger.Ledger {
	if a == nil {
		return nil
	}
	return a.ledger
}
