package services

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/skinfolio/backend/internal/database"
	"github.com/skinfolio/backend/internal/models"
)

type recordingTracker struct {
	names []string
}

func (r *recordingTracker) Track(name string) bool {
	for _, n := range r.names {
		if n == name {
			return false
		}
	}
	r.names = append(r.names, name)
	return true
}

func newTestPortfolioService(t *testing.T) (*PortfolioService, *recordingTracker) {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	sqlDB, _ := db.DB()
	t.Cleanup(func() { sqlDB.Close() })

	tracker := &recordingTracker{}
	return NewPortfolioService(db, NewIconIndex(testCatalog(), 0), tracker), tracker
}

func TestPortfolioListCreatesDefault(t *testing.T) {
	svc, _ := newTestPortfolioService(t)

	portfolios, err := svc.List("user-1")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(portfolios) != 1 || portfolios[0].Name != models.DefaultPortfolioName {
		t.Fatalf("expected default portfolio, got %+v", portfolios)
	}

	again, err := svc.List("user-1")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(again) != 1 || again[0].ID != portfolios[0].ID {
		t.Errorf("expected the same default portfolio on second access, got %+v", again)
	}
}

func TestPortfolioCRUD(t *testing.T) {
	svc, tracker := newTestPortfolioService(t)

	p, err := svc.Create("user-1", "  Investments ")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if p.Name != "Investments" || p.ID == "" {
		t.Errorf("unexpected portfolio %+v", p)
	}

	item, err := svc.AddItem("user-1", p.ID, models.AddItemRequest{
		Name:     "StatTrak™ AK-47 | Redline (Field-Tested)",
		Quantity: 0,
		BuyPrice: decimal.RequireFromString("25.40"),
		Currency: "usd",
	})
	if err != nil {
		t.Fatalf("add item failed: %v", err)
	}
	if item.Quantity != 1 || item.Currency != "USD" {
		t.Errorf("expected defaults quantity 1 / USD, got %d / %s", item.Quantity, item.Currency)
	}
	if item.IconURL != "https://img.example/redline.png" {
		t.Errorf("expected icon from index, got %q", item.IconURL)
	}
	if len(tracker.names) != 1 || tracker.names[0] != item.Name {
		t.Errorf("expected item to be tracked, got %v", tracker.names)
	}

	renamed, err := svc.Rename("user-1", p.ID, "Long Holds")
	if err != nil || renamed.Name != "Long Holds" {
		t.Fatalf("rename failed: %v (%+v)", err, renamed)
	}

	got, err := svc.Get("user-1", p.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.Name != "Long Holds" || len(got.Items) != 1 {
		t.Errorf("unexpected portfolio %+v", got)
	}
	if !got.Items[0].BuyPrice.Equal(decimal.RequireFromString("25.4")) {
		t.Errorf("expected buy price 25.4, got %s", got.Items[0].BuyPrice)
	}

	if _, err := svc.Get("user-2", p.ID); !errors.Is(err, ErrPortfolioNotFound) {
		t.Errorf("expected other users not to see the portfolio, got %v", err)
	}

	if err := svc.DeleteItem("user-1", p.ID, "missing"); !errors.Is(err, ErrItemNotFound) {
		t.Errorf("expected ErrItemNotFound, got %v", err)
	}
	if err := svc.DeleteItem("user-1", p.ID, item.ID); err != nil {
		t.Fatalf("delete item failed: %v", err)
	}

	if err := svc.Delete("user-1", p.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if err := svc.Delete("user-1", p.ID); !errors.Is(err, ErrPortfolioNotFound) {
		t.Errorf("expected ErrPortfolioNotFound on second delete, got %v", err)
	}
}

func TestPortfolioAddItemValidation(t *testing.T) {
	svc, _ := newTestPortfolioService(t)
	p, err := svc.Create("user-1", "Main")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if _, err := svc.AddItem("user-1", p.ID, models.AddItemRequest{Name: "Revolution Case", Currency: "XYZ"}); !errors.Is(err, ErrInvalidCurrency) {
		t.Errorf("expected ErrInvalidCurrency, got %v", err)
	}
	if _, err := svc.AddItem("user-1", "missing", models.AddItemRequest{Name: "Revolution Case"}); !errors.Is(err, ErrPortfolioNotFound) {
		t.Errorf("expected ErrPortfolioNotFound, got %v", err)
	}
}

func TestPortfolioTrackAll(t *testing.T) {
	svc, tracker := newTestPortfolioService(t)

	a, _ := svc.Create("user-1", "A")
	b, _ := svc.Create("user-2", "B")
	for _, add := range []struct {
		user, portfolio, name string
	}{
		{"user-1", a.ID, "Revolution Case"},
		{"user-1", a.ID, "AK-47 | Redline (Field-Tested)"},
		{"user-2", b.ID, "Revolution Case"},
	} {
		if _, err := svc.AddItem(add.user, add.portfolio, models.AddItemRequest{Name: add.name}); err != nil {
			t.Fatalf("add item failed: %v", err)
		}
	}

	names, err := svc.TrackedNames()
	if err != nil {
		t.Fatalf("tracked names failed: %v", err)
	}
	if len(names) != 2 || names[0] != "AK-47 | Redline (Field-Tested)" || names[1] != "Revolution Case" {
		t.Errorf("unexpected distinct names %v", names)
	}

	tracker.names = nil
	added, err := svc.TrackAll()
	if err != nil {
		t.Fatalf("track all failed: %v", err)
	}
	if added != 2 || len(tracker.names) != 2 {
		t.Errorf("expected 2 tracked names, got %d (%v)", added, tracker.names)
	}
}

func TestPortfolioRejectsBlankNames(t *testing.T) {
	svc, _ := newTestPortfolioService(t)

	if _, err := svc.Create("user-1", "   "); !errors.Is(err, ErrInvalidName) {
		t.Errorf("expected ErrInvalidName on create, got %v", err)
	}

	p, err := svc.Create("user-1", "Main")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, err := svc.Rename("user-1", p.ID, "\t "); !errors.Is(err, ErrInvalidName) {
		t.Errorf("expected ErrInvalidName on rename, got %v", err)
	}
	if _, err := svc.AddItem("user-1", p.ID, models.AddItemRequest{Name: "  "}); !errors.Is(err, ErrInvalidName) {
		t.Errorf("expected ErrInvalidName on add item, got %v", err)
	}

	got, err := svc.Get("user-1", p.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.Name != "Main" || len(got.Items) != 0 {
		t.Errorf("expected portfolio to be unchanged, got %+v", got)
	}
}
