package collect

import (
	"context"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/viktsys/stockcollect/config"
	"github.com/viktsys/stockcollect/models"
	"github.com/viktsys/stockcollect/provider"
)

// ListingCollector refreshes the full symbol roster. It runs first so the
// other collectors have listings to iterate.
type ListingCollector struct {
	base
	market provider.MarketData
}

var _ Collector = (*ListingCollector)(nil)

func NewListingCollector(conn ConnProvider, market provider.MarketData, cfg config.CollectionConfig, log *logrus.Logger) *ListingCollector {
	return &ListingCollector{base: newBase(conn, cfg, log), market: market}
}

func (c *ListingCollector) Entity() EntityType { return EntityListing }

func (c *ListingCollector) Collect(ctx context.Context, req Request) (Stats, error) {
	var stats Stats

	db, err := c.conn.Acquire(ctx)
	if err != nil {
		return stats, err
	}

	var listings []provider.ListingRecord
	err = c.retry.do(ctx, "listings", func() error {
		var ferr error
		listings, ferr = c.market.Listings(ctx)
		return ferr
	})
	if err != nil {
		return stats, err
	}
	if len(listings) == 0 {
		c.log.Warn("provider returned an empty listing roster")
		return stats, nil
	}

	rows := make([]models.Listing, 0, len(listings))
	for _, l := range listings {
		rows = append(rows, models.Listing{
			Symbol:         l.Symbol,
			OrganName:      l.OrganName,
			OrganShortName: l.OrganShortName,
			Exchange:       l.Exchange,
			Industry:       l.Industry,
			Status:         "listed",
		})
	}

	today := req.today()
	for start := 0; start < len(rows); start += c.cfg.BatchSize {
		chunk := rows[start:min(start+c.cfg.BatchSize, len(rows))]
		n, err := c.commitBatches(ctx, db, EntityListing, "", []batch{{
			maxDate: today,
			write:   func(tx *gorm.DB) (int64, error) { return upsertListings(tx, chunk) },
		}})
		stats.Records += n
		if err != nil {
			return stats, err
		}
	}
	return stats, nil
}

func upsertListings(tx *gorm.DB, rows []models.Listing) (int64, error) {
	res := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "symbol"}},
		DoUpdates: clause.AssignmentColumns([]string{"organ_name", "organ_short_name", "exchange", "industry", "status", "updated_at"}),
	}).Create(&rows)
	return res.RowsAffected, res.Error
}
