package database

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/skinfolio/backend/internal/models"
)

func TestOpenRunsMigrations(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}

	p := models.Portfolio{ID: "p1", UserID: "u1", Name: "Main"}
	if err := db.Create(&p).Error; err != nil {
		t.Fatalf("create portfolio: %v", err)
	}
	// Legacy rows: lower-case currency, missing quantity
	if err := db.Exec(`INSERT INTO portfolio_items (id, portfolio_id, name, quantity, currency, added_at) VALUES ('i1', 'p1', 'AK-47 | Redline (Field-Tested)', 0, 'rub', ?)`, time.Now()).Error; err != nil {
		t.Fatalf("insert legacy item: %v", err)
	}
	if err := db.Exec(`INSERT INTO portfolio_items (id, portfolio_id, name, quantity, currency, added_at) VALUES ('i2', 'p1', 'Revolution Case', 3, '', ?)`, time.Now()).Error; err != nil {
		t.Fatalf("insert legacy item: %v", err)
	}

	if err := RunMigrations(db); err != nil {
		t.Fatalf("RunMigrations() error: %v", err)
	}

	var items []models.PortfolioItem
	if err := db.Order("id").Find(&items).Error; err != nil {
		t.Fatalf("find items: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0].Currency != "RUB" || items[0].Quantity != 1 {
		t.Errorf("item i1 not normalized: currency=%q quantity=%d", items[0].Currency, items[0].Quantity)
	}
	if items[1].Currency != "USD" || items[1].Quantity != 3 {
		t.Errorf("item i2 not normalized: currency=%q quantity=%d", items[1].Currency, items[1].Quantity)
	}
}
