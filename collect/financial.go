package collect

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/viktsys/stockcollect/config"
	"github.com/viktsys/stockcollect/models"
	"github.com/viktsys/stockcollect/provider"
)

// FinancialCollector collects income statements and balance sheets per
// symbol. Reports have no trade date, so the watermark stores the end
// date of the most recent reporting period committed.
type FinancialCollector struct {
	base
	market provider.MarketData
}

var _ Collector = (*FinancialCollector)(nil)

func NewFinancialCollector(conn ConnProvider, market provider.MarketData, cfg config.CollectionConfig, log *logrus.Logger) *FinancialCollector {
	return &FinancialCollector{base: newBase(conn, cfg, log), market: market}
}

func (c *FinancialCollector) Entity() EntityType { return EntityFinancial }

func (c *FinancialCollector) Collect(ctx context.Context, req Request) (Stats, error) {
	var stats Stats

	db, err := c.conn.Acquire(ctx)
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

	period := req.Period
	if period == "" {
		period = provider.PeriodQuarter
	}

	var lastFetchErr error
	for _, symbol := range symbols {
		wm, ok, err := c.store.Get(ctx, db, EntityFinancial, symbol)
		if err != nil {
			return stats, err
		}

		var statements []provider.Statement
		err = c.retry.do(ctx, "financials", func() error {
			var ferr error
			statements, ferr = c.market.Financials(ctx, symbol, period)
			return ferr
		})
		switch {
		case provider.IsNotFound(err):
			stats.SymbolsSkipped++
			c.log.WithField("symbol", symbol).Debug("no financials upstream, skipping")
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

		// Daily runs only commit periods newer than the watermark;
		// backfill re-commits everything and relies on the upsert.
		if req.Mode == ModeDaily && ok {
			statements = newerThan(statements, wm)
		}
		if len(statements) == 0 {
			c.pace(ctx)
			continue
		}

		n, err := c.commitBatches(ctx, db, EntityFinancial, symbol, statementBatches(symbol, period, statements, c.cfg.BatchSize))
		stats.Records += n
		if err != nil {
			return stats, err
		}
		c.pace(ctx)
	}

	if stats.SymbolsFailed == len(symbols) && stats.SymbolsFailed > 0 {
		return stats, fmt.Errorf("all %d symbols failed to fetch: %w", stats.SymbolsFailed, lastFetchErr)
	}
	return stats, nil
}

func newerThan(statements []provider.Statement, wm time.Time) []provider.Statement {
	out := statements[:0]
	for _, s := range statements {
		if periodEnd(s.Year, s.Quarter).After(wm) {
			out = append(out, s)
		}
	}
	return out
}

// periodEnd maps a reporting period to its calendar end date. Quarter 0
// marks an annual report ending December 31.
func periodEnd(year, quarter int) time.Time {
	if quarter == 0 {
		return time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC)
	}
	// Day 0 of the following month normalizes to the quarter's last day.
	return time.Date(year, time.Month(quarter*3)+1, 0, 0, 0, 0, 0, time.UTC)
}

func statementBatches(symbol string, period provider.Period, statements []provider.Statement, size int) []batch {
	sort.Slice(statements, func(i, j int) bool {
		return periodEnd(statements[i].Year, statements[i].Quarter).
			Before(periodEnd(statements[j].Year, statements[j].Quarter))
	})

	rows := make([]models.FinancialStatement, 0, len(statements))
	for _, s := range statements {
		rows = append(rows, statementRow(symbol, string(period), s))
	}

	var out []batch
	for start := 0; start < len(rows); start += size {
		chunk := rows[start:min(start+size, len(rows))]
		last := statements[start+len(chunk)-1]
		out = append(out, batch{
			maxDate: periodEnd(last.Year, last.Quarter),
			write:   func(tx *gorm.DB) (int64, error) { return upsertStatements(tx, chunk) },
		})
	}
	return out
}

func statementRow(symbol, period string, s provider.Statement) models.FinancialStatement {
	items, _ := json.Marshal(s.Items)
	return models.FinancialStatement{
		Symbol:           symbol,
		StatementType:    s.StatementType,
		Period:           period,
		Year:             s.Year,
		Quarter:          s.Quarter,
		Revenue:          itemDecimal(s.Items, "revenue"),
		GrossProfit:      itemDecimal(s.Items, "gross_profit"),
		OperatingProfit:  itemDecimal(s.Items, "operating_profit", "operation_profit"),
		NetIncome:        itemDecimal(s.Items, "net_income", "post_tax_profit"),
		TotalAssets:      itemDecimal(s.Items, "total_assets", "asset"),
		TotalLiabilities: itemDecimal(s.Items, "total_liabilities", "debt"),
		Equity:           itemDecimal(s.Items, "equity"),
		LineItems:        string(items),
	}
}

// itemDecimal pulls the first line item present under any of the given
// keys; providers are not consistent about naming headline figures.
func itemDecimal(items map[string]decimal.Decimal, keys ...string) decimal.NullDecimal {
	for _, k := range keys {
		if v, ok := items[k]; ok {
			return decimal.NullDecimal{Decimal: v, Valid: true}
		}
	}
	return decimal.NullDecimal{}
}

func upsertStatements(tx *gorm.DB, rows []models.FinancialStatement) (int64, error) {
	res := tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "symbol"}, {Name: "statement_type"},
			{Name: "period"}, {Name: "year"}, {Name: "quarter"},
		},
		DoUpdates: clause.AssignmentColumns([]string{
			"revenue", "gross_profit", "operating_profit", "net_income",
			"total_assets", "total_liabilities", "equity", "line_items",
		}),
	}).Create(&rows)
	return res.RowsAffected, res.Error
}
