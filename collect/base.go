package collect

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/viktsys/stockcollect/config"
	"github.com/viktsys/stockcollect/models"
)

// base carries the pieces every collector shares: the connection provider,
// the watermark store, tuning knobs and the fetch retry policy.
type base struct {
	conn  ConnProvider
	store *WatermarkStore
	cfg   config.CollectionConfig
	retry fetchRetry
	log   *logrus.Logger
	sleep func(ctx context.Context, d time.Duration) error
}

func newBase(conn ConnProvider, cfg config.CollectionConfig, log *logrus.Logger) base {
	return base{
		conn:  conn,
		store: NewWatermarkStore(),
		cfg:   cfg,
		retry: newFetchRetry(cfg, log),
		log:   log,
		sleep: sleepContext,
	}
}

// listedSymbols returns the explicit symbols when given, otherwise every
// listed symbol in ascending order.
func (b *base) listedSymbols(ctx context.Context, db *gorm.DB, explicit []string) ([]string, error) {
	if len(explicit) > 0 {
		return explicit, nil
	}
	var symbols []string
	err := db.WithContext(ctx).
		Model(&models.Listing{}).
		Where("status = ?", "listed").
		Order("symbol").
		Pluck("symbol", &symbols).Error
	return symbols, err
}

// pace sleeps the configured request delay between provider calls.
func (b *base) pace(ctx context.Context) {
	_ = b.sleep(ctx, b.cfg.RequestDelay())
}

// batch is one ascending chunk of rows plus the highest date it covers.
type batch struct {
	maxDate time.Time
	write   func(tx *gorm.DB) (int64, error)
}

// commitBatches writes batches strictly in ascending date order, advancing
// the watermark inside the same transaction as each batch. A mid-run
// failure therefore leaves the watermark at a correct contiguous boundary:
// no gaps, no skipped dates, no partially committed batch.
func (b *base) commitBatches(ctx context.Context, db *gorm.DB, entity EntityType, symbol string, batches []batch) (int64, error) {
	var total int64
	for _, bt := range batches {
		if err := ctx.Err(); err != nil {
			return total, err
		}

		var written int64
		err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			n, err := bt.write(tx)
			if err != nil {
				return err
			}
			written = n
			return b.store.Advance(ctx, tx, entity, symbol, bt.maxDate)
		})
		if err != nil {
			return total, &PersistenceError{Entity: entity, Symbol: symbol, Err: err}
		}
		total += written
	}
	return total, nil
}
