package database

import (
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// cleanupDuplicateLedgerEntries removes duplicate (asset, observed_at) rows before the unique index is added.
// The most recently inserted row wins.
func cleanupDuplicateLedgerEntries(db *gorm.DB, log *zap.Logger) error {
	if !db.Migrator().HasTable("price_ledger") {
		return nil
	}

	result := db.Exec(`
		DELETE FROM price_ledger
		WHERE id NOT IN (
			SELECT MAX(id)
			FROM price_ledger
			GROUP BY asset, observed_at
		)
	`)
	if result.Error != nil {
		return fmt.Errorf("failed to clean up duplicate ledger entries: %w", result.Error)
	}

	if result.RowsAffected > 0 {
		log.Info("cleaned up duplicate ledger entries", zap.Int64("rows", result.RowsAffected))
	}
	return nil
}

// RunMigrations runs data migrations after schema changes. Safe to run repeatedly.
func RunMigrations(db *gorm.DB, log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}
	return normalizeLedgerAssets(db, log)
}

// normalizeLedgerAssets upper-cases asset symbols written by older updaters
func normalizeLedgerAssets(db *gorm.DB, log *zap.Logger) error {
	result := db.Exec(`UPDATE price_ledger SET asset = UPPER(TRIM(asset)) WHERE asset <> UPPER(TRIM(asset))`)
	if result.Error != nil {
		log.Warn("failed to normalize ledger asset symbols", zap.Error(result.Error))
		return nil
	}
	if result.RowsAffected > 0 {
		log.Info("normalized ledger asset symbols", zap.Int64("rows", result.RowsAffected))
	}
	return nil
}
