// Package provider defines the market-data capability consumed by the
// collectors, along with its error taxonomy. Implementations live in
// subpackages (see provider/vci).
package provider

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ErrorKind partitions provider failures by how the collectors react.
type ErrorKind int

const (
	// KindTransient failures (network hiccups, 5xx, rate limits) are
	// retried a small bounded number of times.
	KindTransient ErrorKind = iota
	// KindNotFound means the symbol has no data; the symbol is skipped.
	KindNotFound
	// KindAuthFailed is fatal for the run; retrying cannot help.
	KindAuthFailed
)

// Error is the typed failure returned by all provider operations.
type Error struct {
	Kind   ErrorKind
	Op     string
	Status int // HTTP status when applicable, 0 otherwise
	Err    error
}

func (e *Error) Error() string {
	kind := "transient"
	switch e.Kind {
	case KindNotFound:
		kind = "not found"
	case KindAuthFailed:
		kind = "auth failed"
	}
	if e.Err != nil {
		return fmt.Sprintf("provider %s: %s: %v", e.Op, kind, e.Err)
	}
	return fmt.Sprintf("provider %s: %s (http %d)", e.Op, kind, e.Status)
}

func (e *Error) Unwrap() error { return e.Err }

func kindIs(err error, kind ErrorKind) bool {
	var perr *Error
	return errors.As(err, &perr) && perr.Kind == kind
}

// IsTransient reports whether err is a retryable provider failure.
func IsTransient(err error) bool { return kindIs(err, KindTransient) }

// IsNotFound reports whether err means the requested symbol has no data.
func IsNotFound(err error) bool { return kindIs(err, KindNotFound) }

// IsAuthFailed reports whether err is an authentication failure.
func IsAuthFailed(err error) bool { return kindIs(err, KindAuthFailed) }

// IsRateLimited reports whether err is a transient failure caused by
// provider-side rate limiting; callers back off longer for these.
func IsRateLimited(err error) bool {
	var perr *Error
	return errors.As(err, &perr) && perr.Kind == KindTransient && perr.Status == 429
}

// ListingRecord is one listed security as reported upstream.
type ListingRecord struct {
	Symbol         string
	OrganName      string
	OrganShortName string
	Exchange       string
	Industry       string
}

// PriceBar is one daily OHLCV bar for a security or an index.
type PriceBar struct {
	TradeDate time.Time
	Open      decimal.Decimal
	High      decimal.Decimal
	Low       decimal.Decimal
	Close     decimal.Decimal
	Volume    int64
}

// Period selects annual or quarterly financial reports.
type Period string

const (
	PeriodYear    Period = "year"
	PeriodQuarter Period = "quarter"
)

// Statement is one financial statement for one reporting period.
type Statement struct {
	StatementType string // models.StatementIncome or models.StatementBalance
	Year          int
	Quarter       int // 0 for annual reports
	Items         map[string]decimal.Decimal
}

// MarketData is the capability the collectors consume. All methods honor
// the context deadline and fail with *Error.
type MarketData interface {
	// Listings returns every listed symbol.
	Listings(ctx context.Context) ([]ListingRecord, error)

	// Prices returns daily bars for symbol within [from, to], inclusive.
	Prices(ctx context.Context, symbol string, from, to time.Time) ([]PriceBar, error)

	// Index returns daily bars for a market index within [from, to].
	Index(ctx context.Context, code string, from, to time.Time) ([]PriceBar, error)

	// Financials returns income statements and balance sheets for symbol
	// at the given reporting period granularity.
	Financials(ctx context.Context, symbol string, period Period) ([]Statement, error)
}
