// Package models defines the persistent schema for collected market data.
// Every table carries a natural key used as the upsert conflict target.
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Listing is one listed security. Natural key: symbol.
type Listing struct {
	Symbol         string `gorm:"primaryKey;size:20" json:"symbol"`
	OrganName      string `gorm:"size:500" json:"organ_name"`
	OrganShortName string `gorm:"size:255" json:"organ_short_name"`
	Exchange       string `gorm:"size:10;index" json:"exchange"`
	Industry       string `gorm:"size:500" json:"industry"`
	Status         string `gorm:"size:20;default:listed" json:"status"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Listing) TableName() string { return "listings" }

// DailyPrice is one OHLCV bar. Natural key: (symbol, trade_date). Historical
// bars are never mutated by the collector; the current-day bar may be
// overwritten intraday, so conflicts resolve last-write-wins.
type DailyPrice struct {
	ID        uint64    `gorm:"primaryKey" json:"id"`
	Symbol    string    `gorm:"size:20;not null;uniqueIndex:uq_daily_prices_symbol_date,priority:1;index:idx_daily_prices_symbol" json:"symbol"`
	TradeDate time.Time `gorm:"type:date;not null;uniqueIndex:uq_daily_prices_symbol_date,priority:2;index:idx_daily_prices_date" json:"trade_date"`

	Open   decimal.Decimal `gorm:"type:numeric(15,2)" json:"open"`
	High   decimal.Decimal `gorm:"type:numeric(15,2)" json:"high"`
	Low    decimal.Decimal `gorm:"type:numeric(15,2)" json:"low"`
	Close  decimal.Decimal `gorm:"type:numeric(15,2)" json:"close"`
	Volume int64           `gorm:"not null;default:0" json:"volume"`
}

func (DailyPrice) TableName() string { return "daily_prices" }

// MarketIndex is one index bar. Natural key: (index_code, trade_date).
type MarketIndex struct {
	ID        uint64    `gorm:"primaryKey" json:"id"`
	IndexCode string    `gorm:"size:30;not null;uniqueIndex:uq_market_indices_code_date,priority:1" json:"index_code"`
	TradeDate time.Time `gorm:"type:date;not null;uniqueIndex:uq_market_indices_code_date,priority:2" json:"trade_date"`

	Open   decimal.Decimal `gorm:"type:numeric(15,2)" json:"open"`
	High   decimal.Decimal `gorm:"type:numeric(15,2)" json:"high"`
	Low    decimal.Decimal `gorm:"type:numeric(15,2)" json:"low"`
	Close  decimal.Decimal `gorm:"type:numeric(15,2)" json:"close"`
	Volume int64           `gorm:"not null;default:0" json:"volume"`
}

func (MarketIndex) TableName() string { return "market_indices" }

// Statement types stored in FinancialStatement.StatementType.
const (
	StatementIncome  = "income"
	StatementBalance = "balance"
)

// FinancialStatement is one reported statement. Natural key:
// (symbol, statement_type, period, year, quarter); quarter 0 marks annual
// reports so the unique index never sees NULL.
type FinancialStatement struct {
	ID            uint64 `gorm:"primaryKey" json:"id"`
	Symbol        string `gorm:"size:20;not null;uniqueIndex:uq_financials_key,priority:1;index:idx_financials_symbol" json:"symbol"`
	StatementType string `gorm:"size:10;not null;uniqueIndex:uq_financials_key,priority:2" json:"statement_type"`
	Period        string `gorm:"size:10;not null;uniqueIndex:uq_financials_key,priority:3" json:"period"`
	Year          int    `gorm:"not null;uniqueIndex:uq_financials_key,priority:4" json:"year"`
	Quarter       int    `gorm:"not null;default:0;uniqueIndex:uq_financials_key,priority:5" json:"quarter"`

	Revenue          decimal.NullDecimal `gorm:"type:numeric(20,2)" json:"revenue"`
	GrossProfit      decimal.NullDecimal `gorm:"type:numeric(20,2)" json:"gross_profit"`
	OperatingProfit  decimal.NullDecimal `gorm:"type:numeric(20,2)" json:"operating_profit"`
	NetIncome        decimal.NullDecimal `gorm:"type:numeric(20,2)" json:"net_income"`
	TotalAssets      decimal.NullDecimal `gorm:"type:numeric(20,2)" json:"total_assets"`
	TotalLiabilities decimal.NullDecimal `gorm:"type:numeric(20,2)" json:"total_liabilities"`
	Equity           decimal.NullDecimal `gorm:"type:numeric(20,2)" json:"equity"`

	// LineItems keeps the full upstream payload as JSON.
	LineItems string `gorm:"type:jsonb" json:"line_items"`

	CreatedAt time.Time `json:"created_at"`
}

func (FinancialStatement) TableName() string { return "financial_statements" }

// Watermark records the last durably committed date per (entity_type,
// symbol). Symbol is "" for entity types without per-symbol granularity.
// A watermark is only written in the same transaction as the batch it
// covers and never regresses.
type Watermark struct {
	ID         uint64    `gorm:"primaryKey" json:"id"`
	EntityType string    `gorm:"size:20;not null;uniqueIndex:uq_watermarks_entity_symbol,priority:1" json:"entity_type"`
	Symbol     string    `gorm:"size:30;not null;default:'';uniqueIndex:uq_watermarks_entity_symbol,priority:2" json:"symbol"`
	LastDate   time.Time `gorm:"type:date;not null" json:"last_date"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (Watermark) TableName() string { return "watermarks" }

// Collection log statuses.
const (
	LogStatusRunning = "running"
	LogStatusSuccess = "success"
	LogStatusPartial = "partial"
	LogStatusFailed  = "failed"
)

// CollectionLog is one append-only row per collector invocation per run.
type CollectionLog struct {
	ID         uint64     `gorm:"primaryKey" json:"id"`
	RunID      string     `gorm:"size:36;not null;index:idx_collection_logs_run" json:"run_id"`
	EntityType string     `gorm:"size:20;not null;index:idx_collection_logs_type" json:"entity_type"`
	Status     string     `gorm:"size:20;not null;default:running" json:"status"`
	Records    int64      `gorm:"not null;default:0" json:"records"`
	StartedAt  time.Time  `gorm:"not null;index:idx_collection_logs_started" json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Error      string     `gorm:"type:text" json:"error,omitempty"`
}

func (CollectionLog) TableName() string { return "collection_logs" }

// All lists every model for schema migration.
func All() []interface{} {
	return []interface{}{
		&Listing{},
		&DailyPrice{},
		&MarketIndex{},
		&FinancialStatement{},
		&Watermark{},
		&CollectionLog{},
	}
}
