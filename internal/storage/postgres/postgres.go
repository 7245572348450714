// internal/storage/postgres/postgres.go
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/asterlaunch/launchpad/internal/storage"
	"github.com/asterlaunch/launchpad/internal/storage/models"
)

// gormLogger bridges GORM's logger.Interface onto zap.
type gormLogger struct {
	zapLogger *zap.Logger
	logLevel  logger.LogLevel
}

func newGormLogger(zapLogger *zap.Logger) logger.Interface {
	return &gormLogger{
		zapLogger: zapLogger,
		logLevel:  logger.Warn,
	}
}

func (l *gormLogger) LogMode(level logger.LogLevel) logger.Interface {
	newLogger := *l
	newLogger.logLevel = level
	return &newLogger
}

func (l *gormLogger) Info(_ context.Context, msg string, data ...interface{}) {
	if l.logLevel >= logger.Info {
		l.zapLogger.Sugar().Infof(msg, data...)
	}
}

func (l *gormLogger) Warn(_ context.Context, msg string, data ...interface{}) {
	if l.logLevel >= logger.Warn {
		l.zapLogger.Sugar().Warnf(msg, data...)
	}
}

func (l *gormLogger) Error(_ context.Context, msg string, data ...interface{}) {
	if l.logLevel >= logger.Error {
		l.zapLogger.Sugar().Errorf(msg, data...)
	}
}

func (l *gormLogger) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.logLevel <= logger.Silent {
		return
	}

	elapsed := time.Since(begin)
	sql, rows := fc()

	fields := []zap.Field{
		zap.Duration("elapsed", elapsed),
		zap.String("sql", sql),
		zap.Int64("rows", rows),
	}

	if err != nil {
		l.zapLogger.Error("trace", append(fields, zap.Error(err))...)
		return
	}

	if l.logLevel >= logger.Info {
		l.zapLogger.Info("trace", fields...)
	}
}

// postgresStorage implements the storage.Storage interface.
type postgresStorage struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewStorage opens a connection pool against dsn, retrying with
// exponential backoff while the database comes up.
func NewStorage(ctx context.Context, dsn string, zapLogger *zap.Logger) (storage.Storage, error) {
	gormLogger := newGormLogger(zapLogger.Named("gorm"))

	open := func() (*gorm.DB, error) {
		return gorm.Open(postgres.Open(dsn), &gorm.Config{
			Logger: gormLogger,
			NowFunc: func() time.Time {
				return time.Now().UTC()
			},
			DisableForeignKeyConstraintWhenMigrating: true,
			SkipDefaultTransaction:                   true,
		})
	}

	backoffPolicy := backoff.NewExponentialBackOff()
	backoffPolicy.InitialInterval = 500 * time.Millisecond
	backoffPolicy.MaxInterval = 10 * time.Second

	notify := func(err error, duration time.Duration) {
		zapLogger.Info("Retrying database connection", zap.Error(err), zap.Duration("backoff", duration))
	}

	db, err := backoff.Retry(ctx, open,
		backoff.WithBackOff(backoffPolicy),
		backoff.WithMaxTries(5),
		backoff.WithNotify(notify))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return &postgresStorage{
		db:     db,
		logger: zapLogger,
	}, nil
}

// RunMigrations applies the schema via GORM AutoMigrate under an
// advisory lock so concurrent instances cannot race.
func (p *postgresStorage) RunMigrations() error {
	var lockObtained bool
	err := p.db.Raw("SELECT pg_try_advisory_lock(101)").Scan(&lockObtained).Error
	if err != nil {
		return fmt.Errorf("failed to acquire migration lock: %w", err)
	}
	if !lockObtained {
		return fmt.Errorf("another migration is in progress")
	}
	defer p.db.Exec("SELECT pg_advisory_unlock(101)")

	err = p.db.AutoMigrate(
		&models.MarketSnapshot{},
		&models.TradeRecord{},
		&models.PricePointRecord{},
	)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// SaveMarketSnapshot upserts the single row for a ticker.
func (p *postgresStorage) SaveMarketSnapshot(ctx context.Context, snap *models.MarketSnapshot) error {
	return p.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "ticker"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"name", "units_sold", "reserve_native", "liquidity_native",
				"treasury_native", "graduated", "graduated_at", "last_trade_at",
				"updated_at",
			}),
		}).
		Create(snap).Error
}

func (p *postgresStorage) GetMarketSnapshot(ctx context.Context, ticker string) (*models.MarketSnapshot, error) {
	var snap models.MarketSnapshot
	err := p.db.WithContext(ctx).Where("ticker = ?", ticker).First(&snap).Error
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

func (p *postgresStorage) ListMarketSnapshots(ctx context.Context) ([]*models.MarketSnapshot, error) {
	var snaps []*models.MarketSnapshot
	err := p.db.WithContext(ctx).Order("market_created_at desc").Find(&snaps).Error
	return snaps, err
}

// SaveTrades inserts settled trades, silently skipping ids that were
// flushed before. The ledger is append-only, so there is nothing to
// update.
func (p *postgresStorage) SaveTrades(ctx context.Context, trades []*models.TradeRecord) error {
	if len(trades) == 0 {
		return nil
	}
	return p.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "trade_id"}},
			DoNothing: true,
		}).
		Create(trades).Error
}

func (p *postgresStorage) ListTrades(ctx context.Context, ticker string, limit int) ([]*models.TradeRecord, error) {
	var trades []*models.TradeRecord
	q := p.db.WithContext(ctx).
		Where("ticker = ?", ticker).
		Order("executed_at asc, id asc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&trades).Error
	return trades, err
}

// ReplacePricePoints swaps a ticker's persisted series for the current
// ring-buffer contents in one transaction.
func (p *postgresStorage) ReplacePricePoints(ctx context.Context, ticker string, points []*models.PricePointRecord) error {
	return p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Unscoped().Where("ticker = ?", ticker).Delete(&models.PricePointRecord{}).Error; err != nil {
			return err
		}
		if len(points) == 0 {
			return nil
		}
		return tx.Create(points).Error
	})
}

func (p *postgresStorage) ListPricePoints(ctx context.Context, ticker string) ([]*models.PricePointRecord, error) {
	var points []*models.PricePointRecord
	err := p.db.WithContext(ctx).
		Where("ticker = ?", ticker).
		Order("sampled_at asc, id asc").
		Find(&points).Error
	return points, err
}

func (p *postgresStorage) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
