package db

import (
	"testing"

	"github.com/fajargold/fajargold-backend/internal/app/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeed(t *testing.T) {
	testDB, err := SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { CleanupTestDB(testDB) })

	require.NoError(t, Seed(testDB, 0.05))
	require.NoError(t, Seed(testDB, 0.05))

	var prices []model.GoldPrice
	require.NoError(t, testDB.Find(&prices).Error)
	require.Len(t, prices, 1)

	p := prices[0]
	assert.Equal(t, int64(2500000), p.Sell24K)
	assert.Equal(t, int64(2291750), p.Sell22K)
	assert.Equal(t, int64(1875000), p.Sell18K)
	assert.Equal(t, int64(2375000), p.Buy24K)
	assert.Equal(t, model.SourceSystem, p.Source)

	require.NoError(t, TruncateAllTables(testDB))
	var count int64
	testDB.Model(&model.GoldPrice{}).Count(&count)
	assert.Zero(t, count)
}
