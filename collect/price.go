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

// PriceCollector collects daily OHLCV bars per symbol, resuming from each
// symbol's watermark.
type PriceCollector struct {
	base
	market provider.MarketData
}

var _ Collector = (*PriceCollector)(nil)

func NewPriceCollector(conn ConnProvider, market provider.MarketData, cfg config.CollectionConfig, log *logrus.Logger) *PriceCollector {
	return &PriceCollector{base: newBase(conn, cfg, log), market: market}
}

func (c *PriceCollector) Entity() EntityType { return EntityPrice }

func (c *PriceCollector) Collect(ctx context.Context, req Request) (Stats, error) {
	var stats Stats

	db, err := c.conn.Acquire(ctx)
	if err != nil {
		return stats, err
	}
	defaultStart, err := c.cfg.StartDate()
	if err != nil {
		return stats, err
	}

	symbols, err := c.listedSymbols(ctx, db, req.Symbols)
	if err != nil {
		return stats, err
	}
	if len(symbols) == 0 {
		c.log.Warn("no listed symbols; run the listing collector first")
		return stats, nil
	}

	end := dateOf(req.End)
	if end.IsZero() {
		end = req.today()
	}

	var lastFetchErr error
	for _, symbol := range symbols {
		wm, ok, err := c.store.Get(ctx, db, EntityPrice, symbol)
		if err != nil {
			return stats, err
		}

		rng := requiredRange(req.Mode, wm, ok, req.Start, defaultStart, end)
		if rng.Empty() {
			c.log.WithField("symbol", symbol).Debug("already up to date")
			continue
		}

		var bars []provider.PriceBar
		err = c.retry.do(ctx, "prices", func() error {
			var ferr error
			bars, ferr = c.market.Prices(ctx, symbol, rng.Start, rng.End)
			return ferr
		})
		switch {
		case provider.IsNotFound(err):
			stats.SymbolsSkipped++
			c.log.WithField("symbol", symbol).Debug("symbol not found upstream, skipping")
			continue
		case provider.IsAuthFailed(err):
			return stats, err
		case err != nil:
			if cerr := ctx.Err(); cerr != nil {
				return stats, cerr
			}
			stats.SymbolsFailed++
			lastFetchErr = err
			c.log.WithError(err).WithField("symbol", symbol).Error("fetch failed after retries, skipping symbol")
			continue
		}
		if len(bars) == 0 {
			c.pace(ctx)
			continue
		}

		n, err := c.commitBatches(ctx, db, EntityPrice, symbol, priceBatches(symbol, bars, c.cfg.BatchSize))
		stats.Records += n
		if err != nil {
			// A persistence failure aborts the remaining symbols of this
			// collector; the coordinator records it and moves on.
			return stats, err
		}
		c.pace(ctx)
	}

	if stats.SymbolsFailed == len(symbols) && stats.SymbolsFailed > 0 {
		return stats, fmt.Errorf("all %d symbols failed to fetch: %w", stats.SymbolsFailed, lastFetchErr)
	}
	return stats, nil
}

// priceBatches sorts bars ascending by trade date and chunks them.
func priceBatches(symbol string, bars []provider.PriceBar, size int) []batch {
	sort.Slice(bars, func(i, j int) bool { return bars[i].TradeDate.Before(bars[j].TradeDate) })

	rows := make([]models.DailyPrice, 0, len(bars))
	for _, bar := range bars {
		rows = append(rows, models.DailyPrice{
			Symbol:    symbol,
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
			write:   func(tx *gorm.DB) (int64, error) { return upsertDailyPrices(tx, chunk) },
		})
	}
	return out
}

// upsertDailyPrices overwrites existing bars on the (symbol, trade_date)
// natural key: last write wins, no duplicates.
func upsertDailyPrices(tx *gorm.DB, rows []models.DailyPrice) (int64, error) {
	res := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "symbol"}, {Name: "trade_date"}},
		DoUpdates: clause.AssignmentColumns([]string{"open", "high", "low", "close", "volume"}),
	}).Create(&rows)
	return res.RowsAffected, res.Error
}
