package database

import (
	"log"

	"gorm.io/gorm"
)

// RunMigrations runs any custom data migrations after schema changes.
// Safe to run on every start.
func RunMigrations(db *gorm.DB) error {
	if err := normalizeItemCurrencies(db); err != nil {
		return err
	}
	return normalizeItemQuantities(db)
}

// normalizeItemCurrencies fills rows written before currency was required
// and upper-cases codes entered by hand
func normalizeItemCurrencies(db *gorm.DB) error {
	if !db.Migrator().HasColumn("portfolio_items", "currency") {
		return nil
	}

	result := db.Exec(`UPDATE portfolio_items SET currency = 'USD' WHERE currency IS NULL OR currency = ''`)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		log.Printf("Defaulted currency to USD on %d portfolio items", result.RowsAffected)
	}

	result = db.Exec(`UPDATE portfolio_items SET currency = UPPER(currency) WHERE currency != UPPER(currency)`)
	if result.Error != nil {
		log.Printf("Warning: failed to upper-case portfolio item currencies: %v", result.Error)
	}
	return nil
}

func normalizeItemQuantities(db *gorm.DB) error {
	result := db.Exec(`UPDATE portfolio_items SET quantity = 1 WHERE quantity IS NULL OR quantity < 1`)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		log.Printf("Fixed quantity on %d portfolio items", result.RowsAffected)
	}
	return nil
}
