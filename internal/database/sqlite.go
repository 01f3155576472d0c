package database

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/codyseavey/treasury-tracker/internal/models"
)

// Open connects to the SQLite price ledger at dbPath and brings the schema up to date.
// Use "file::memory:?cache=shared" for an in-memory database.
func Open(dbPath string, log *zap.Logger) (*gorm.DB, error) {
	if log == nil {
		log = zap.NewNop()
	}

	if dir := filepath.Dir(dbPath); dir != "." && dir != "" && !isMemory(dbPath) {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	log.Info("database connected", zap.String("path", dbPath))

	// Duplicates would violate the unique index AutoMigrate is about to add
	if err := cleanupDuplicateLedgerEntries(db, log); err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(&models.LedgerEntry{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	if err := RunMigrations(db, log); err != nil {
		return nil, err
	}

	log.Info("database migration completed")
	return db, nil
}

// Close releases the underlying connection pool
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func isMemory(path string) bool {
	return path == ":memory:" || strings.HasPrefix(path, "file:")
}
