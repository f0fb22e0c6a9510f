package collect

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/viktsys/stockcollect/models"
)

// RecentLogs returns the newest collection log entries, most recent first.
func RecentLogs(ctx context.Context, db *gorm.DB, limit int) ([]models.CollectionLog, error) {
	if limit <= 0 {
		limit = 20
	}
	var logs []models.CollectionLog
	err := db.WithContext(ctx).
		Order("started_at DESC, id DESC").
		Limit(limit).
		Find(&logs).Error
	return logs, err
}

// EntitySummary is the stored-data view for one entity type.
type EntitySummary struct {
	Entity    EntityType `json:"entity"`
	Rows      int64      `json:"rows"`
	Watermark *time.Time `json:"watermark,omitempty"`
}

// Summarize reports row counts and the newest watermark per entity type.
func Summarize(ctx context.Context, db *gorm.DB) ([]EntitySummary, error) {
	tables := map[EntityType]interface{}{
		EntityListing:   &models.Listing{},
		EntityPrice:     &models.DailyPrice{},
		EntityIndex:     &models.MarketIndex{},
		EntityFinancial: &models.FinancialStatement{},
	}

	out := make([]EntitySummary, 0, len(tables))
	for _, entity := range AllEntities() {
		var rows int64
		if err := db.WithContext(ctx).Model(tables[entity]).Count(&rows).Error; err != nil {
			return nil, err
		}
		s := EntitySummary{Entity: entity, Rows: rows}

		var wm models.Watermark
		err := db.WithContext(ctx).
			Where("entity_type = ?", string(entity)).
			Order("last_date DESC").
			First(&wm).Error
		switch {
		case err == nil:
			d := wm.LastDate
			s.Watermark = &d
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}
