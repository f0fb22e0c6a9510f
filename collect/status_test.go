package collect

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viktsys/stockcollect/models"
)

func TestRecentLogs_NewestFirst(t *testing.T) {
	db := newTestDB(t)
	base := day("2024-01-01")
	for i := 0; i < 5; i++ {
		require.NoError(t, db.Create(&models.CollectionLog{
			RunID:      "run",
			EntityType: string(EntityPrice),
			Status:     models.LogStatusSuccess,
			StartedAt:  base.Add(time.Duration(i) * time.Hour),
		}).Error)
	}

	logs, err := RecentLogs(context.Background(), db, 3)
	require.NoError(t, err)
	require.Len(t, logs, 3)
	assert.True(t, logs[0].StartedAt.After(logs[1].StartedAt))
	assert.True(t, logs[1].StartedAt.After(logs[2].StartedAt))
}

func TestSummarize(t *testing.T) {
	db := newTestDB(t)
	seedListings(t, db, "AAA", "BBB")
	require.NoError(t, db.Create(&models.DailyPrice{
		Symbol: "AAA", TradeDate: day("2024-01-05"),
		Open: dec(1), High: dec(2), Low: dec(1), Close: dec(2),
	}).Error)
	require.NoError(t, NewWatermarkStore().Advance(context.Background(), db, EntityPrice, "AAA", day("2024-01-05")))

	summaries, err := Summarize(context.Background(), db)
	require.NoError(t, err)
	require.Len(t, summaries, 4)

	byEntity := map[EntityType]EntitySummary{}
	for _, s := range summaries {
		byEntity[s.Entity] = s
	}
	assert.Equal(t, int64(2), byEntity[EntityListing].Rows)
	assert.Equal(t, int64(1), byEntity[EntityPrice].Rows)
	require.NotNil(t, byEntity[EntityPrice].Watermark)
	assert.Nil(t, byEntity[EntityIndex].Watermark)
}
