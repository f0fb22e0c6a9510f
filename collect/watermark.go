package collect

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/viktsys/stockcollect/models"
)

// WatermarkStore reads and advances the per-(entity, symbol) watermark.
// Advance must run in the same transaction as the batch it covers so the
// store never reports a watermark beyond what is durably persisted.
type WatermarkStore struct{}

func NewWatermarkStore() *WatermarkStore {
	return &WatermarkStore{}
}

// Get returns the last committed watermark for (entity, symbol), or
// ok=false when the pair has never been collected.
func (*WatermarkStore) Get(ctx context.Context, db *gorm.DB, entity EntityType, symbol string) (time.Time, bool, error) {
	var wm models.Watermark
	err := db.WithContext(ctx).
		Where("entity_type = ? AND symbol = ?", string(entity), symbol).
		First(&wm).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	return dateOf(wm.LastDate), true, nil
}

// Advance moves the watermark forward to day. Advancing to a date at or
// before the current watermark is a no-op: the conflict clause only
// updates when the stored date is strictly older, so the watermark is
// monotonic even under buggy callers.
func (*WatermarkStore) Advance(ctx context.Context, tx *gorm.DB, entity EntityType, symbol string, day time.Time) error {
	day = dateOf(day)
	wm := models.Watermark{
		EntityType: string(entity),
		Symbol:     symbol,
		LastDate:   day,
		UpdatedAt:  time.Now().UTC(),
	}
	return tx.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "entity_type"}, {Name: "symbol"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"last_date":  day,
			"updated_at": wm.UpdatedAt,
		}),
		Where: clause.Where{Exprs: []clause.Expression{
			gorm.Expr("watermarks.last_date < ?", day),
		}},
	}).Create(&wm).Error
}
