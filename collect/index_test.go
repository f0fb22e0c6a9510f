package collect

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viktsys/stockcollect/models"
	"github.com/viktsys/stockcollect/provider"
)

func TestIndexCollector_FirstDailyRunCoversFullHistory(t *testing.T) {
	db := newTestDB(t)
	market := &fakeMarket{indexBars: map[string][]provider.PriceBar{
		"VNINDEX": {bar("2024-01-09", 1100, 0), bar("2024-01-10", 1105, 0)},
	}}
	c := NewIndexCollector(&fixedConn{db: db}, market, testCollectionConfig(), []string{"VNINDEX"}, quietLogger())

	// No watermark yet: a daily run still goes back to the default floor.
	stats, err := c.Collect(context.Background(), Request{Mode: ModeDaily, Today: day("2024-01-10")})
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Records)

	require.Len(t, market.indexCalls, 1)
	assert.Equal(t, day("2012-01-01"), market.indexCalls[0].from)
	assert.Equal(t, day("2024-01-10"), market.indexCalls[0].to)

	wm, ok, err := NewWatermarkStore().Get(context.Background(), db, EntityIndex, "VNINDEX")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, day("2024-01-10"), wm)
}

func TestIndexCollector_EachIndexHasItsOwnWatermark(t *testing.T) {
	db := newTestDB(t)
	store := NewWatermarkStore()
	require.NoError(t, store.Advance(context.Background(), db, EntityIndex, "VNINDEX", day("2024-01-09")))

	market := &fakeMarket{indexBars: map[string][]provider.PriceBar{
		"VNINDEX":   {bar("2024-01-10", 1105, 0)},
		"HNX-INDEX": {bar("2024-01-10", 230, 0)},
	}}
	c := NewIndexCollector(&fixedConn{db: db}, market, testCollectionConfig(), []string{"VNINDEX", "HNX-INDEX"}, quietLogger())

	_, err := c.Collect(context.Background(), Request{Mode: ModeDaily, Today: day("2024-01-10")})
	require.NoError(t, err)

	require.Len(t, market.indexCalls, 2)
	assert.Equal(t, day("2024-01-10"), market.indexCalls[0].from)
	assert.Equal(t, day("2012-01-01"), market.indexCalls[1].from)
}

func TestIndexCollector_FailedIndexDoesNotStopOthers(t *testing.T) {
	db := newTestDB(t)
	market := &fakeMarket{
		indexBars: map[string][]provider.PriceBar{"HNX-INDEX": {bar("2024-01-10", 230, 0)}},
		indexErr:  map[string]error{"VNINDEX": transientErr("index")},
	}
	c := NewIndexCollector(&fixedConn{db: db}, market, testCollectionConfig(), []string{"VNINDEX", "HNX-INDEX"}, quietLogger())

	stats, err := c.Collect(context.Background(), Request{Mode: ModeDaily, Today: day("2024-01-10")})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.SymbolsFailed)
	assert.Equal(t, int64(1), stats.Records)

	var count int64
	require.NoError(t, db.Model(&models.MarketIndex{}).Where("index_code = ?", "HNX-INDEX").Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestIndexCollector_IgnoresRequestSymbols(t *testing.T) {
	db := newTestDB(t)
	market := &fakeMarket{indexBars: map[string][]provider.PriceBar{
		"VNINDEX": {bar("2024-01-10", 1105, 0)},
	}}
	c := NewIndexCollector(&fixedConn{db: db}, market, testCollectionConfig(), []string{"VNINDEX"}, quietLogger())

	// Symbol filters apply to securities, not the configured index set.
	_, err := c.Collect(context.Background(), Request{
		Mode:    ModeDaily,
		Symbols: []string{"AAA"},
		Today:   day("2024-01-10"),
	})
	require.NoError(t, err)
	require.Len(t, market.indexCalls, 1)
	assert.Equal(t, "VNINDEX", market.indexCalls[0].symbol)
}
