package collect

import (
	"context"
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/viktsys/stockcollect/config"
	"github.com/viktsys/stockcollect/models"
	"github.com/viktsys/stockcollect/provider"
)

// IndexCollector collects daily bars for a fixed set of market indices.
// The index codes come from configuration, not from the listings table,
// and the watermark symbol column holds the index code.
type IndexCollector struct {
	base
	market provider.MarketData
	codes  []string
}

var _ Collector = (*IndexCollector)(nil)

func NewIndexCollector(conn ConnProvider, market provider.MarketData, cfg config.CollectionConfig, codes []string, log *logrus.Logger) *IndexCollector {
	return &IndexCollector{base: newBase(conn, cfg, log), market: market, codes: codes}
}

func (c *IndexCollector) Entity() EntityType { return EntityIndex }

func (c *IndexCollector) Collect(ctx context.Context, req Request) (Stats, error) {
	var stats Stats

	db, err := c.conn.Acquire(ctx)
	if err != nil {
		return stats, err
	}
	defaultStart, err := c.cfg.StartDate()
	if err != nil {
		return stats, err
	}
	if len(c.codes) == 0 {
		c.log.Warn("no index codes configured")
		return stats, nil
	}

	end := dateOf(req.End)
	if end.IsZero() {
		end = req.today()
	}

	var lastFetchErr error
	for _, code := range c.codes {
		wm, ok, err := c.store.Get(ctx, db, EntityIndex, code)
		if err != nil {
			return stats, err
		}

		rng := requiredRange(req.Mode, wm, ok, req.Start, defaultStart, end)
		if rng.Empty() {
			c.log.WithField("index", code).Debug("already up to date")
			continue
		}

		var bars []provider.PriceBar
		err = c.retry.do(ctx, "index", func() error {
			var ferr error
			bars, ferr = c.market.Index(ctx, code, rng.Start, rng.End)
			return ferr
		})
		switch {
		case provider.IsNotFound(err):
			stats.SymbolsSkipped++
			c.log.WithField("index", code).Warn("index not found upstream, skipping")
			continue
		case provider.IsAuthFailed(err):
			return stats, err
		case err != nil:
			if cerr := ctx.Err(); cerr != nil {
				return stats, cerr
			}
			stats.SymbolsFailed++
			lastFetchErr = err
			c.log.WithError(err).WithField("index", code).Error("fetch failed after retries, skipping index")
			continue
		}
		if len(bars) == 0 {
			c.pace(ctx)
			continue
		}

		n, err := c.commitBatches(ctx, db, EntityIndex, code, indexBatches(code, bars, c.cfg.BatchSize))
		stats.Records += n
		if err != nil {
			return stats, err
		}
		c.pace(ctx)
	}

	if stats.SymbolsFailed == len(c.codes) && stats.SymbolsFailed > 0 {
		return stats, fmt.Errorf("all %d indices failed to fetch: %w", stats.SymbolsFailed, lastFetchErr)
	}
	return stats, nil
}

func indexBatches(code string, bars []provider.PriceBar, size int) []batch {
	sort.Slice(bars, func(i, j int) bool { return bars[i].TradeDate.Before(bars[j].TradeDate) })

	rows := make([]models.MarketIndex, 0, len(bars))
	for _, bar := range bars {
		rows = append(rows, models.MarketIndex{
			IndexCode: code,
			TradeDate: dateOf(bar.TradeDate),
			Open:      bar.Open,
			High:      bar.High,
			Low:       bar.Low,
			Close:     bar.Close,
			Volume:    bar.Volume,
		})
	}

	var out []batch
	for start := 0; start < len(rows); start += size {
		chunk := rows[start:min(start+size, len(rows))]
		out = append(out, batch{
			maxDate: chunk[len(chunk)-1].TradeDate,
			write:   func(tx *gorm.DB) (int64, error) { return upsertMarketIndices(tx, chunk) },
		})
	}
	return out
}

func upsertMarketIndices(tx *gorm.DB, rows []models.MarketIndex) (int64, error) {
	res := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "index_code"}, {Name: "trade_date"}},
		DoUpdates: clause.AssignmentColumns([]string{"open", "high", "low", "close", "volume"}),
	}).Create(&rows)
	return res.RowsAffected, res.Error
}
