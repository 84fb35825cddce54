package sqlite

import (
	"context"
	"errors"

	"quorum/internal/store"
	"quorum/internal/store/model"
	"quorum/internal/types"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type signalRepo struct {
	db *gorm.DB
}

func (r *signalRepo) Insert(ctx context.Context, sig *model.SignalModel) error {
	if sig == nil {
		return errors.New("signal cannot be nil")
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(sig).Error
}

func (r *signalRepo) List(ctx context.Context, q store.Query) ([]model.SignalModel, error) {
	var rows []model.SignalModel
	if err := applyQuery(r.db.WithContext(ctx), q).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

type tradeRepo struct {
	db *gorm.DB
}

func (r *tradeRepo) Insert(ctx context.Context, trade *model.TradeModel) error {
	if trade == nil {
		return errors.New("trade cannot be nil")
	}
	return r.db.WithContext(ctx).Create(trade).Error
}

func (r *tradeRepo) List(ctx context.Context, q store.Query) ([]model.TradeModel, error) {
	var rows []model.TradeModel
	if err := applyQuery(r.db.WithContext(ctx), q).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

type positionRepo struct {
	db *gorm.DB
}

func (r *positionRepo) Append(ctx context.Context, ev *model.PositionEventModel) error {
	if ev == nil {
		return errors.New("position event cannot be nil")
	}
	if ev.PositionID == "" {
		return errors.New("position event requires a position id")
	}
	return r.db.WithContext(ctx).Create(ev).Error
}

// LoadOpen returns positions with an OPEN event and no CLOSE event.
func (r *positionRepo) LoadOpen(ctx context.Context) ([]types.Position, error) {
	closed := r.db.Model(&model.PositionEventModel{}).
		Select("position_id").
		Where("kind = ?", model.PositionClosed)
	var rows []model.PositionEventModel
	if err := r.db.WithContext(ctx).
		Where("kind = ?", model.PositionOpened).
		Where("position_id NOT IN (?)", closed).
		Order("created_at ASC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]types.Position, 0, len(rows))
	for _, row := range rows {
		p := row.Position()
		p.IsOpen = true
		out = append(out, p)
	}
	return out, nil
}

func (r *positionRepo) ListClosed(ctx context.Context, q store.Query) ([]model.PositionEventModel, error) {
	var rows []model.PositionEventModel
	db := r.db.WithContext(ctx).Where("kind = ?", model.PositionClosed)
	if err := applyQuery(db, q).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

type advisoryCallRepo struct {
	db *gorm.DB
}

func (r *advisoryCallRepo) InsertBatch(ctx context.Context, calls []model.AdvisoryCallModel) error {
	if len(calls) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&calls).Error
}

func (r *advisoryCallRepo) ListByCycle(ctx context.Context, cycleID string) ([]model.AdvisoryCallModel, error) {
	var rows []model.AdvisoryCallModel
	if err := r.db.WithContext(ctx).Where("cycle_id = ?", cycleID).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

type notificationRepo struct {
	db *gorm.DB
}

func (r *notificationRepo) Insert(ctx context.Context, n *model.NotificationModel) error {
	if n == nil {
		return errors.New("notification cannot be nil")
	}
	return r.db.WithContext(ctx).Create(n).Error
}

func (r *notificationRepo) List(ctx context.Context, q store.Query) ([]model.NotificationModel, error) {
	var rows []model.NotificationModel
	if err := applyQuery(r.db.WithContext(ctx), q).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
