package database

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codyseavey/treasury-tracker/internal/models"
)

func TestOpenMigratesLedger(t *testing.T) {
	db, err := Open("file:"+t.Name()+"?mode=memory&cache=shared", nil)
	require.NoError(t, err)
	defer Close(db)

	assert.True(t, db.Migrator().HasTable(&models.LedgerEntry{}))

	ts := time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, db.Create(&models.LedgerEntry{Asset: "BTC", PriceUSD: 115000, ObservedAt: ts}).Error)

	// Same asset and timestamp violates the unique index
	err = db.Create(&models.LedgerEntry{Asset: "BTC", PriceUSD: 116000, ObservedAt: ts}).Error
	assert.Error(t, err)
}

func TestRunMigrationsNormalizesAssets(t *testing.T) {
	db, err := Open("file:"+t.Name()+"?mode=memory&cache=shared", nil)
	require.NoError(t, err)
	defer Close(db)

	require.NoError(t, db.Exec(`INSERT INTO price_ledger (asset, price_usd, observed_at) VALUES (' eth', 3500, '2025-08-01 00:00:00')`).Error)
	require.NoError(t, RunMigrations(db, nil))

	var entry models.LedgerEntry
	require.NoError(t, db.First(&entry).Error)
	assert.Equal(t, "ETH", entry.Asset)
}
