package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/shopspring/decimal"

	"github.com/skinfolio/backend/internal/metrics"
	"github.com/skinfolio/backend/internal/models"
)

const (
	skinportBaseURL = "https://api.skinport.com"
	// cs2AppID is the Steam app id for Counter-Strike 2
	cs2AppID = "730"

	// DefaultSnapshotTTL is how old the snapshot may be before a non-forced
	// refresh actually downloads again
	DefaultSnapshotTTL = 30 * time.Minute
	// DefaultSnapshotRefreshInterval is how often Start forces a refresh
	DefaultSnapshotRefreshInterval = 30 * time.Minute
)

// ErrRefreshInProgress is returned when Refresh is called while another refresh is running
var ErrRefreshInProgress = errors.New("snapshot refresh already in progress")

// skinportItem is the wire format of GET /v1/items
type skinportItem struct {
	MarketHashName string   `json:"market_hash_name"`
	Currency       string   `json:"currency"`
	SuggestedPrice *float64 `json:"suggested_price"`
	MinPrice       *float64 `json:"min_price"`
	Quantity       int      `json:"quantity"`
	ItemPage       string   `json:"item_page"`
	UpdatedAt      int64    `json:"updated_at"`
}

// marketSnapshot is an immutable installed snapshot. Readers load it through
// an atomic pointer so they never see a half-built table.
type marketSnapshot struct {
	items      []models.MarketItem
	byName     map[string]int
	fetchedAt  time.Time
	generation uint64
}

// MarketSnapshotService keeps the full Skinport item list in memory
type MarketSnapshotService struct {
	client          *http.Client
	baseURL         string
	ttl             time.Duration
	refreshInterval time.Duration
	now             func() time.Time

	current    atomic.Pointer[marketSnapshot]
	refreshing atomic.Bool
}

// NewMarketSnapshotService creates the bulk snapshot cache. Zero durations
// fall back to the defaults.
func NewMarketSnapshotService(baseURL string, timeout, ttl, refreshInterval time.Duration) *MarketSnapshotService {
	if baseURL == "" {
		baseURL = skinportBaseURL
	}
	if timeout <= 0 {
		timeout = defaultUpstreamTimeout
	}
	if ttl <= 0 {
		ttl = DefaultSnapshotTTL
	}
	if refreshInterval <= 0 {
		refreshInterval = DefaultSnapshotRefreshInterval
	}

	s := &MarketSnapshotService{
		client:          &http.Client{Timeout: timeout},
		baseURL:         strings.TrimRight(baseURL, "/"),
		ttl:             ttl,
		refreshInterval: refreshInterval,
		now:             time.Now,
	}
	s.current.Store(&marketSnapshot{byName: map[string]int{}})
	return s
}

// Start performs an initial forced refresh and then refreshes on a ticker
// until ctx is cancelled
func (s *MarketSnapshotService) Start(ctx context.Context) {
	log.Printf("Skinport: snapshot refresher started (every %v, ttl %v)", s.refreshInterval, s.ttl)

	if err := s.Refresh(ctx, true); err != nil {
		log.Printf("Skinport: initial refresh failed: %v", err)
	}

	ticker := time.NewTicker(s.refreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Skinport: snapshot refresher stopping...")
			return
		case <-ticker.C:
			log.Println("Skinport: auto-refreshing prices...")
			if err := s.Refresh(ctx, true); err != nil {
				log.Printf("Skinport: refresh failed, keeping %d cached items: %v", s.Count(), err)
			}
		}
	}
}

// Refresh downloads the full item list and installs it. Without force it is
// a no-op while the installed snapshot is non-empty and younger than the TTL.
// On failure the installed snapshot is left untouched.
func (s *MarketSnapshotService) Refresh(ctx context.Context, force bool) error {
	cur := s.current.Load()
	if !force && len(cur.items) > 0 && s.now().Sub(cur.fetchedAt) < s.ttl {
		metrics.SnapshotRefreshTotal.WithLabelValues("skipped").Inc()
		return nil
	}

	if !s.refreshing.CompareAndSwap(false, true) {
		return ErrRefreshInProgress
	}
	defer s.refreshing.Store(false)

	start := time.Now()
	items, err := s.fetchItems(ctx)
	if err != nil {
		metrics.SnapshotRefreshTotal.WithLabelValues("error").Inc()
		return err
	}

	s.install(items)
	metrics.SnapshotRefreshTotal.WithLabelValues("success").Inc()
	metrics.SnapshotRefreshDuration.Observe(time.Since(start).Seconds())
	log.Printf("Skinport: loaded %d items", len(items))
	return nil
}

// install swaps in a new snapshot built from items
func (s *MarketSnapshotService) install(items []models.MarketItem) {
	byName := make(map[string]int, len(items))
	kept := make([]models.MarketItem, 0, len(items))
	for _, item := range items {
		if item.MarketName == "" {
			continue
		}
		if idx, ok := byName[item.MarketName]; ok {
			// Last occurrence wins, scan position of the first is kept
			kept[idx] = item
			continue
		}
		byName[item.MarketName] = len(kept)
		kept = append(kept, item)
	}

	prev := s.current.Load()
	s.current.Store(&marketSnapshot{
		items:      kept,
		byName:     byName,
		fetchedAt:  s.now(),
		generation: prev.generation + 1,
	})
	metrics.SnapshotItems.Set(float64(len(kept)))
}

func (s *MarketSnapshotService) fetchItems(ctx context.Context) ([]models.MarketItem, error) {
	params := url.Values{}
	params.Set("app_id", cs2AppID)
	params.Set("currency", models.BaseCurrency)
	params.Set("tradable", "0")
	reqURL := fmt.Sprintf("%s/v1/items?%s", s.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	// Skinport rejects requests that do not accept brotli
	req.Header.Set("Accept-Encoding", "br")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", browserUserAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch items: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
		return nil, fmt.Errorf("skinport API error: status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var body io.Reader = resp.Body
	if strings.EqualFold(resp.Header.Get("Content-Encoding"), "br") {
		body = brotli.NewReader(resp.Body)
	}

	var raw []skinportItem
	if err := json.NewDecoder(body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	items := make([]models.MarketItem, 0, len(raw))
	for _, r := range raw {
		items = append(items, convertSkinportItem(r))
	}
	return items, nil
}

func convertSkinportItem(r skinportItem) models.MarketItem {
	item := models.MarketItem{
		MarketName:      r.MarketHashName,
		SuggestedPrice:  nonNegative(r.SuggestedPrice),
		MinListingPrice: nonNegative(r.MinPrice),
		Quantity:        r.Quantity,
		ItemPage:        r.ItemPage,
	}
	if r.UpdatedAt > 0 {
		item.UpdatedAt = time.Unix(r.UpdatedAt, 0).UTC()
	}
	return item
}

func nonNegative(v *float64) decimal.Decimal {
	if v == nil || *v < 0 {
		return decimal.Zero
	}
	return decimal.NewFromFloat(*v)
}

// Lookup returns the snapshot entry for a market name
func (s *MarketSnapshotService) Lookup(marketName string) (models.MarketItem, bool) {
	snap := s.current.Load()
	idx, ok := snap.byName[marketName]
	if !ok {
		return models.MarketItem{}, false
	}
	return snap.items[idx], true
}

// Items returns the installed snapshot rows in scan order. The slice must not be modified.
func (s *MarketSnapshotService) Items() []models.MarketItem {
	return s.current.Load().items
}

// IsLoaded reports whether a non-empty snapshot is installed
func (s *MarketSnapshotService) IsLoaded() bool {
	return len(s.current.Load().items) > 0
}

// Count returns the number of items in the installed snapshot
func (s *MarketSnapshotService) Count() int {
	return len(s.current.Load().items)
}

// LastRefresh returns when the installed snapshot was fetched (zero if never)
func (s *MarketSnapshotService) LastRefresh() time.Time {
	return s.current.Load().fetchedAt
}

// Generation increments every time a new snapshot is installed
func (s *MarketSnapshotService) Generation() uint64 {
	return s.current.Load().generation
}
