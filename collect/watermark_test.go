package collect

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatermark_GetMissing(t *testing.T) {
	db := newTestDB(t)
	store := NewWatermarkStore()

	_, ok, err := store.Get(context.Background(), db, EntityPrice, "AAA")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestWatermark_AdvanceAndGet(t *testing.T) {
	db := newTestDB(t)
	store := NewWatermarkStore()
	ctx := context.Background()

	require.NoError(t, store.Advance(ctx, db, EntityPrice, "AAA", day("2024-01-05")))

	got, ok, err := store.Get(ctx, db, EntityPrice, "AAA")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, day("2024-01-05"), got)
}

func TestWatermark_NeverRegresses(t *testing.T) {
	db := newTestDB(t)
	store := NewWatermarkStore()
	ctx := context.Background()

	require.NoError(t, store.Advance(ctx, db, EntityPrice, "AAA", day("2024-01-10")))
	require.NoError(t, store.Advance(ctx, db, EntityPrice, "AAA", day("2024-01-03")))
	require.NoError(t, store.Advance(ctx, db, EntityPrice, "AAA", day("2024-01-10")))

	got, ok, err := store.Get(ctx, db, EntityPrice, "AAA")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, day("2024-01-10"), got)
}

func TestWatermark_PairsAreIndependent(t *testing.T) {
	db := newTestDB(t)
	store := NewWatermarkStore()
	ctx := context.Background()

	require.NoError(t, store.Advance(ctx, db, EntityPrice, "AAA", day("2024-01-10")))
	require.NoError(t, store.Advance(ctx, db, EntityPrice, "BBB", day("2024-01-02")))
	require.NoError(t, store.Advance(ctx, db, EntityIndex, "AAA", day("2024-01-04")))

	got, ok, err := store.Get(ctx, db, EntityPrice, "BBB")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, day("2024-01-02"), got)

	got, ok, err = store.Get(ctx, db, EntityIndex, "AAA")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, day("2024-01-04"), got)
}
