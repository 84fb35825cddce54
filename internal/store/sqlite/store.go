package sqlite

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"quorum/internal/store"
	"quorum/internal/store/model"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	_ "modernc.org/sqlite"
)

// driverName is the pure-Go driver registered by modernc.org/sqlite.
const driverName = "sqlite"

// SqliteStore is the gorm-backed record store. Every unit of work is one
// SQL transaction.
type SqliteStore struct {
	db *gorm.DB
}

func NewSqliteStore(path string) (*SqliteStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("database path cannot be empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	return OpenDSN(dsn)
}

// OpenDSN opens any modernc sqlite DSN, including "file:name?mode=memory".
func OpenDSN(dsn string) (*SqliteStore, error) {
	db, err := gorm.Open(sqlite.New(sqlite.Config{DriverName: driverName, DSN: dsn}), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	return migrate(db)
}

// migrate creates or extends every record table. SQLite allows a single
// writer, so the pool stays small.
func migrate(db *gorm.DB) (*SqliteStore, error) {
	if err := db.AutoMigrate(model.All()...); err != nil {
		return nil, fmt.Errorf("migrate record tables: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(2)
	sqlDB.SetMaxIdleConns(2)
	return &SqliteStore{db: db}, nil
}

func (s *SqliteStore) Begin(ctx context.Context) (store.UnitOfWork, error) {
	tx := s.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}
	return &gormUnitOfWork{tx: tx}, nil
}

func (s *SqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	s.db = nil
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

type gormUnitOfWork struct {
	tx *gorm.DB
}

func (u *gormUnitOfWork) Signals() store.SignalRepository { return &signalRepo{db: u.tx} }
func (u *gormUnitOfWork) Trades() store.TradeRepository { return &tradeRepo{db: u.tx} }
func (u *gormUnitOfWork) Positions() store.PositionRepository { return &positionRepo{db: u.tx} }
func (u *gormUnitOfWork) AdvisoryCalls() store.AdvisoryCallRepository { return &advisoryCallRepo{db: u.tx} }
func (u *gormUnitOfWork) Notifications() store.NotificationRepository { return &notificationRepo{db: u.tx} }

func (u *gormUnitOfWork) Commit() error {
	return u.tx.Commit().Error
}

func (u *gormUnitOfWork) Rollback() error {
	return u.tx.Rollback().Error
}

// applyQuery adds the common filters; newest rows come first.
func applyQuery(db *gorm.DB, q store.Query) *gorm.DB {
	if sym := strings.ToUpper(strings.TrimSpace(q.Symbol)); sym != "" {
		db = db.Where("symbol = ?", sym)
	}
	if !q.Since.IsZero() {
		db = db.Where("created_at >= ?", q.Since.UnixMilli())
	}
	if q.Limit > 0 {
		db = db.Limit(q.Limit)
	}
	return db.Order("created_at DESC")
}
