// Package store defines the record store: signals, trades, position
// events, advisory calls and notification attempts.
package store

import (
	"context"
	"time"

	"quorum/internal/store/model"
	"quorum/internal/types"
)

// UnitOfWork defines a transaction scope.
type UnitOfWork interface {
	Commit() error
	Rollback() error

	Signals() SignalRepository
	Trades() TradeRepository
	Positions() PositionRepository
	AdvisoryCalls() AdvisoryCallRepository
	Notifications() NotificationRepository
}

// Store is the entry point for database access.
type Store interface {
	// Begin starts a new UnitOfWork (transaction).
	Begin(ctx context.Context) (UnitOfWork, error)
	Close() error
}

// Query narrows history listings. Zero values mean no filter.
type Query struct {
	Symbol string
	Since  time.Time
	Limit  int
}

type SignalRepository interface {
	Insert(ctx context.Context, sig *model.SignalModel) error
	List(ctx context.Context, q Query) ([]model.SignalModel, error)
}

type TradeRepository interface {
	Insert(ctx context.Context, trade *model.TradeModel) error
	List(ctx context.Context, q Query) ([]model.TradeModel, error)
}

// PositionRepository is append-only; the open set is derived from events.
type PositionRepository interface {
	Append(ctx context.Context, ev *model.PositionEventModel) error
	LoadOpen(ctx context.Context) ([]types.Position, error)
	ListClosed(ctx context.Context, q Query) ([]model.PositionEventModel, error)
}

type AdvisoryCallRepository interface {
	InsertBatch(ctx context.Context, calls []model.AdvisoryCallModel) error
	ListByCycle(ctx context.Context, cycleID string) ([]model.AdvisoryCallModel, error)
}

type NotificationRepository interface {
	Insert(ctx context.Context, n *model.NotificationModel) error
	List(ctx context.Context, q Query) ([]model.NotificationModel, error)
}

// Atomic runs fn in one transaction, committing only when fn succeeds.
func Atomic(ctx context.Context, s Store, fn func(UnitOfWork) error) (err error) {
	uow, err := s.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if p := recover(); p != nil {
			_ = uow.Rollback()
			panic(p)
		}
	}()
	if err := fn(uow); err != nil {
		_ = uow.Rollback()
		return err
	}
	return uow.Commit()
}

// Read runs fn in a transaction that is always rolled back.
func Read(ctx context.Context, s Store, fn func(UnitOfWork) error) error {
	uow, err := s.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = uow.Rollback() }()
	return fn(uow)
}
