package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/shopspring/decimal"

	"github.com/skinfolio/backend/internal/models"
)

func floatPtr(v float64) *float64 { return &v }

// newSkinportServer serves items brotli-encoded and counts requests
func newSkinportServer(t *testing.T, items []skinportItem, status *atomic.Int32, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Path != "/v1/items" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("app_id"); got != "730" {
			t.Errorf("expected app_id=730, got %s", got)
		}
		if code := status.Load(); code != 0 && code != http.StatusOK {
			w.WriteHeader(int(code))
			return
		}
		if r.Header.Get("Accept-Encoding") != "br" {
			w.WriteHeader(http.StatusNotAcceptable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Encoding", "br")
		bw := brotli.NewWriter(w)
		if err := json.NewEncoder(bw).Encode(items); err != nil {
			t.Errorf("failed to encode items: %v", err)
		}
		bw.Close()
	}))
}

func TestMarketSnapshotRefresh(t *testing.T) {
	items := []skinportItem{
		{MarketHashName: "AK-47 | Redline (Field-Tested)", SuggestedPrice: floatPtr(12.5), MinPrice: floatPtr(11.9), Quantity: 120},
		{MarketHashName: "Revolution Case", SuggestedPrice: nil, MinPrice: floatPtr(0.6)},
	}
	var status, hits atomic.Int32
	server := newSkinportServer(t, items, &status, &hits)
	defer server.Close()

	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	svc := NewMarketSnapshotService(server.URL, time.Second, 30*time.Minute, time.Hour)
	svc.now = func() time.Time { return now }

	if svc.IsLoaded() {
		t.Fatal("expected empty snapshot before first refresh")
	}
	if err := svc.Refresh(context.Background(), false); err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	if svc.Count() != 2 {
		t.Fatalf("expected 2 items, got %d", svc.Count())
	}

	redline, ok := svc.Lookup("AK-47 | Redline (Field-Tested)")
	if !ok {
		t.Fatal("expected Redline in snapshot")
	}
	if !redline.DisplayPrice().Equal(decimal.NewFromFloat(12.5)) {
		t.Errorf("expected display price 12.5, got %s", redline.DisplayPrice())
	}
	caseItem, _ := svc.Lookup("Revolution Case")
	if !caseItem.DisplayPrice().Equal(decimal.NewFromFloat(0.6)) {
		t.Errorf("expected display price to fall back to min price 0.6, got %s", caseItem.DisplayPrice())
	}

	// Within the TTL a non-forced refresh is a no-op
	now = now.Add(10 * time.Minute)
	if err := svc.Refresh(context.Background(), false); err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	if hits.Load() != 1 {
		t.Errorf("expected 1 upstream request within TTL, got %d", hits.Load())
	}

	now = now.Add(25 * time.Minute)
	if err := svc.Refresh(context.Background(), false); err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	if hits.Load() != 2 {
		t.Errorf("expected a second upstream request after TTL, got %d", hits.Load())
	}
	if svc.Generation() != 2 {
		t.Errorf("expected generation 2, got %d", svc.Generation())
	}
	if !svc.LastRefresh().Equal(now) {
		t.Errorf("expected last refresh %v, got %v", now, svc.LastRefresh())
	}
}

func TestMarketSnapshotRefreshFailureKeepsSnapshot(t *testing.T) {
	var status, hits atomic.Int32
	server := newSkinportServer(t, nil, &status, &hits)
	defer server.Close()

	svc := NewMarketSnapshotService(server.URL, time.Second, time.Minute, time.Hour)
	svc.install([]models.MarketItem{
		{MarketName: "AWP | Asiimov (Field-Tested)", SuggestedPrice: decimal.NewFromInt(90)},
	})
	before := svc.LastRefresh()

	status.Store(http.StatusBadGateway)
	if err := svc.Refresh(context.Background(), true); err == nil {
		t.Fatal("expected error from failing upstream")
	}

	if svc.Count() != 1 {
		t.Errorf("expected previous snapshot to be kept, got %d items", svc.Count())
	}
	if _, ok := svc.Lookup("AWP | Asiimov (Field-Tested)"); !ok {
		t.Error("expected previous item to still resolve")
	}
	if !svc.LastRefresh().Equal(before) {
		t.Error("expected refresh timestamp to be unchanged after a failure")
	}
	if svc.Generation() != 1 {
		t.Errorf("expected generation 1, got %d", svc.Generation())
	}
}

func TestMarketSnapshotRefreshInProgress(t *testing.T) {
	svc := NewMarketSnapshotService("http://127.0.0.1:0", time.Second, time.Minute, time.Hour)
	svc.refreshing.Store(true)

	if err := svc.Refresh(context.Background(), true); err != ErrRefreshInProgress {
		t.Errorf("expected ErrRefreshInProgress, got %v", err)
	}
}

func TestMarketSnapshotInstallDeduplicates(t *testing.T) {
	svc := NewMarketSnapshotService("", 0, 0, 0)
	svc.install([]models.MarketItem{
		{MarketName: "A", SuggestedPrice: decimal.NewFromInt(1)},
		{MarketName: "B", SuggestedPrice: decimal.NewFromInt(2)},
		{MarketName: "A", SuggestedPrice: decimal.NewFromInt(3)},
		{MarketName: ""},
	})

	if svc.Count() != 2 {
		t.Fatalf("expected 2 unique items, got %d", svc.Count())
	}
	items := svc.Items()
	if items[0].MarketName != "A" || items[1].MarketName != "B" {
		t.Errorf("expected scan order A, B, got %s, %s", items[0].MarketName, items[1].MarketName)
	}
	a, _ := svc.Lookup("A")
	if !a.SuggestedPrice.Equal(decimal.NewFromInt(3)) {
		t.Errorf("expected last duplicate to win, got %s", a.SuggestedPrice)
	}
}

func TestConvertSkinportItemClampsNegativePrices(t *testing.T) {
	item := convertSkinportItem(skinportItem{
		MarketHashName: "Sticker | Broken",
		SuggestedPrice: floatPtr(-1),
		MinPrice:       nil,
		UpdatedAt:      1700000000,
	})

	if !item.SuggestedPrice.IsZero() || !item.MinListingPrice.IsZero() {
		t.Errorf("expected zero prices, got %s / %s", item.SuggestedPrice, item.MinListingPrice)
	}
	if item.UpdatedAt.Unix() != 1700000000 {
		t.Errorf("expected updated_at to be carried over, got %v", item.UpdatedAt)
	}
}
