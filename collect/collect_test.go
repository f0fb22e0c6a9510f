package collect

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/viktsys/stockcollect/config"
	"github.com/viktsys/stockcollect/models"
	"github.com/viktsys/stockcollect/provider"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// One connection so every session sees the same in-memory database.
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(models.All()...))
	t.Cleanup(func() { sqlDB.Close() })
	return db
}

// fixedConn satisfies ConnProvider with a pre-opened test database.
type fixedConn struct {
	db *gorm.DB
}

func (c *fixedConn) Acquire(context.Context) (*gorm.DB, error) { return c.db, nil }

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(discard{})
	return log
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

func testCollectionConfig() config.CollectionConfig {
	return config.CollectionConfig{
		DefaultStartDate: "2012-01-01",
		BatchSize:        500,
		MaxRetries:       3,
	}
}

func dec(n int64) decimal.Decimal { return decimal.NewFromInt(n) }

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func bar(date string, close int64, volume int64) provider.PriceBar {
	return provider.PriceBar{
		TradeDate: day(date),
		Open:      dec(close - 1),
		High:      dec(close + 1),
		Low:       dec(close - 2),
		Close:     dec(close),
		Volume:    volume,
	}
}

type fetchCall struct {
	symbol   string
	from, to time.Time
}

// fakeMarket serves canned provider responses and records range requests.
type fakeMarket struct {
	listings   []provider.ListingRecord
	listErr    error
	prices     map[string][]provider.PriceBar
	priceErr   map[string]error
	indexBars  map[string][]provider.PriceBar
	indexErr   map[string]error
	statements map[string][]provider.Statement
	finErr     map[string]error

	priceCalls []fetchCall
	indexCalls []fetchCall
	finCalls   []string
}

func (m *fakeMarket) Listings(context.Context) ([]provider.ListingRecord, error) {
	return m.listings, m.listErr
}

func (m *fakeMarket) Prices(_ context.Context, symbol string, from, to time.Time) ([]provider.PriceBar, error) {
	m.priceCalls = append(m.priceCalls, fetchCall{symbol: symbol, from: from, to: to})
	if err := m.priceErr[symbol]; err != nil {
		return nil, err
	}
	return m.prices[symbol], nil
}

func (m *fakeMarket) Index(_ context.Context, code string, from, to time.Time) ([]provider.PriceBar, error) {
	m.indexCalls = append(m.indexCalls, fetchCall{symbol: code, from: from, to: to})
	if err := m.indexErr[code]; err != nil {
		return nil, err
	}
	return m.indexBars[code], nil
}

func (m *fakeMarket) Financials(_ context.Context, symbol string, _ provider.Period) ([]provider.Statement, error) {
	m.finCalls = append(m.finCalls, symbol)
	if err := m.finErr[symbol]; err != nil {
		return nil, err
	}
	return m.statements[symbol], nil
}

func seedListings(t *testing.T, db *gorm.DB, symbols ...string) {
	t.Helper()
	for _, s := range symbols {
		require.NoError(t, db.Create(&models.Listing{Symbol: s, Status: "listed"}).Error)
	}
}
