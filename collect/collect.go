// Package collect implements the collection engine: one collector per
// entity type, a durable watermark store deciding what still needs
// fetching, and a run coordinator that executes collectors sequentially
// and records one collection log entry per invocation.
package collect

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/viktsys/stockcollect/provider"
)

// EntityType tags the four collector variants.
type EntityType string

const (
	EntityListing   EntityType = "listing"
	EntityPrice     EntityType = "price"
	EntityIndex     EntityType = "index"
	EntityFinancial EntityType = "financial"
)

// AllEntities returns the collectors in collection order: listings first
// so the price and financial collectors can see fresh symbols.
func AllEntities() []EntityType {
	return []EntityType{EntityListing, EntityPrice, EntityIndex, EntityFinancial}
}

// Mode selects how the required range is computed.
type Mode string

const (
	// ModeBackfill collects from the requested (or default) start date
	// regardless of the watermark, allowing re-collection.
	ModeBackfill Mode = "backfill"
	// ModeDaily resumes strictly after the stored watermark.
	ModeDaily Mode = "daily"
)

// Request describes one collection run.
type Request struct {
	Mode    Mode
	Symbols []string  // explicit symbols; empty means all listed symbols
	Start   time.Time // backfill floor override; zero uses the configured default
	End     time.Time // zero means today
	Period  provider.Period // financial report granularity; zero value means quarter

	// Today overrides the market-calendar "today" for tests; zero uses
	// the wall clock.
	Today time.Time
}

func (r Request) today() time.Time {
	if r.Today.IsZero() {
		return dateOf(time.Now())
	}
	return dateOf(r.Today)
}

// Stats summarizes one collector invocation.
type Stats struct {
	Records        int64
	SymbolsSkipped int // symbols with no upstream data
	SymbolsFailed  int // symbols whose fetch retry budget was exhausted
}

// Collector is one entity-type variant. A non-nil error means the
// collector aborted; per-symbol fetch failures are reported in Stats
// instead so sibling symbols keep collecting.
type Collector interface {
	Entity() EntityType
	Collect(ctx context.Context, req Request) (Stats, error)
}

// ConnProvider hands out the shared database handle. Implemented by
// database.Supervisor; tests substitute a fixed connection.
type ConnProvider interface {
	Acquire(ctx context.Context) (*gorm.DB, error)
}

// PersistenceError wraps a failed batch write. It aborts the remaining
// batches of the collector that hit it but never sibling collectors.
type PersistenceError struct {
	Entity EntityType
	Symbol string
	Err    error
}

func (e *PersistenceError) Error() string {
	if e.Symbol != "" {
		return fmt.Sprintf("persist %s %s: %v", e.Entity, e.Symbol, e.Err)
	}
	return fmt.Sprintf("persist %s: %v", e.Entity, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// dateOf truncates t to midnight UTC; all watermark and range arithmetic
// happens on whole dates.
func dateOf(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
