package services

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestSchedulerTrackDeduplicates(t *testing.T) {
	s := NewSteamPriceScheduler("", 0, nil, 0, 0)

	if !s.Track("Revolution Case") {
		t.Error("expected first Track to add the item")
	}
	if s.Track("Revolution Case") {
		t.Error("expected duplicate Track to be ignored")
	}
	if s.Track("") {
		t.Error("expected empty name to be ignored")
	}

	status := s.Status()
	if status.Tracked != 1 || status.QueueSize != 1 {
		t.Errorf("expected 1 tracked item, got %+v", status)
	}
}

func TestSchedulerIntervalDependsOnProxies(t *testing.T) {
	direct := NewSteamPriceScheduler("", 0, NewProxyPool(nil), 5*time.Second, 2*time.Second)
	if direct.Status().IntervalMS != 5000 {
		t.Errorf("expected 5s interval without proxies, got %dms", direct.Status().IntervalMS)
	}

	proxied := NewSteamPriceScheduler("", 0, NewProxyPool([]string{"http://10.0.0.1:8080"}), 5*time.Second, 2*time.Second)
	if proxied.Status().IntervalMS != 2000 {
		t.Errorf("expected 2s interval with proxies, got %dms", proxied.Status().IntervalMS)
	}
	if proxied.Status().Proxies != 1 {
		t.Errorf("expected 1 proxy, got %d", proxied.Status().Proxies)
	}
}

func TestSchedulerProcessesOneItemPerTickRoundRobin(t *testing.T) {
	var mu sync.Mutex
	var requested []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := r.URL.Query().Get("market_hash_name")
		mu.Lock()
		requested = append(requested, name)
		mu.Unlock()
		if r.URL.Query().Get("currency") != "1" {
			t.Errorf("expected scheduler to fetch USD, got currency %s", r.URL.Query().Get("currency"))
		}
		if name == "Broken Item" {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprintf(w, `{"success":true,"lowest_price":"$%d.00"}`, len(name))
	}))
	defer server.Close()

	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	s := NewSteamPriceScheduler(server.URL, time.Second, nil, time.Second, time.Second)
	s.now = func() time.Time { return now }
	ctx := context.Background()

	if s.processNext(ctx) {
		t.Fatal("expected idle tick with an empty queue")
	}

	s.Track("Case A")
	s.Track("Broken Item")
	s.Track("Sticker B")

	for i := 0; i < 4; i++ {
		if !s.processNext(ctx) {
			t.Fatalf("tick %d should process an item", i)
		}
	}

	expected := []string{"Case A", "Broken Item", "Sticker B", "Case A"}
	mu.Lock()
	defer mu.Unlock()
	if len(requested) != len(expected) {
		t.Fatalf("expected %d requests, got %d", len(expected), len(requested))
	}
	for i := range expected {
		if requested[i] != expected[i] {
			t.Errorf("tick %d fetched %s, want %s", i, requested[i], expected[i])
		}
	}

	entry, ok := s.Price("Case A")
	if !ok || !entry.Amount.Equal(decimal.NewFromInt(6)) || entry.Currency != "USD" {
		t.Errorf("unexpected cache entry %+v", entry)
	}
	if !entry.FetchedAt.Equal(now) {
		t.Errorf("expected fetched_at %v, got %v", now, entry.FetchedAt)
	}
	if _, ok := s.Price("Broken Item"); ok {
		t.Error("expected failed fetch not to be cached")
	}

	status := s.Status()
	if status.Processed != 4 || status.Cached != 2 || !status.LastRunAt.Equal(now) {
		t.Errorf("unexpected status %+v", status)
	}
}

func TestSchedulerStartStopsOnCancel(t *testing.T) {
	s := NewSteamPriceScheduler("http://127.0.0.1:0", time.Second, nil, 10*time.Millisecond, 10*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop after cancel")
	}
}
