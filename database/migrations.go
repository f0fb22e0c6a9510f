package database

import (
	"fmt"

	"gorm.io/gorm"
)

// createIndexes adds descending composite indexes used by the incremental
// range queries and the status views. Idempotent.
func createIndexes(db *gorm.DB) error {
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_daily_prices_symbol_date_desc
		ON daily_prices (symbol, trade_date DESC)
	`).Error; err != nil {
		return fmt.Errorf("failed to create daily_prices index: %w", err)
	}

	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_market_indices_code_date_desc
		ON market_indices (index_code, trade_date DESC)
	`).Error; err != nil {
		return fmt.Errorf("failed to create market_indices index: %w", err)
	}

	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_collection_logs_started_desc
		ON collection_logs (started_at DESC)
	`).Error; err != nil {
		return fmt.Errorf("failed to create collection_logs index: %w", err)
	}

	return nil
}
