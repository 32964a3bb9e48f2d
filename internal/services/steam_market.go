package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/skinfolio/backend/internal/metrics"
	"github.com/skinfolio/backend/internal/models"
)

const (
	steamMarketBaseURL = "https://steamcommunity.com"

	// DefaultSteamPriceTTL is how long an on-demand Steam price stays cached
	DefaultSteamPriceTTL = time.Hour
	// defaultSteamBurst lets a page load resolve a few misses at once
	defaultSteamBurst = 5
)

var (
	// ErrSteamRateLimited is returned when Steam answers 429 or the local limiter is empty
	ErrSteamRateLimited = errors.New("steam market rate limited")
	// ErrNoSteamPrice is returned when the response carries no usable price
	ErrNoSteamPrice = errors.New("steam market returned no price")
)

// steamCurrencyIDs maps ISO codes to Steam wallet currency ids
var steamCurrencyIDs = map[string]int{
	"USD": 1,
	"GBP": 2,
	"EUR": 3,
	"RUB": 5,
	"UAH": 18,
	"KZT": 37,
}

// steamCurrency returns the Steam currency id to request and the ISO code the
// answer will be denominated in. Unsupported codes are fetched in USD.
func steamCurrency(code string) (int, string) {
	code = models.NormalizeCurrency(code)
	if id, ok := steamCurrencyIDs[code]; ok {
		return id, code
	}
	return steamCurrencyIDs[models.BaseCurrency], models.BaseCurrency
}

// steamPriceOverview is the wire format of /market/priceoverview/
type steamPriceOverview struct {
	Success     bool   `json:"success"`
	LowestPrice string `json:"lowest_price"`
	MedianPrice string `json:"median_price"`
	Volume      string `json:"volume"`
}

type priceKey struct {
	name     string
	currency string
}

// SteamMarketService resolves single item prices from the Steam Community
// Market. It is only consulted for items missing from the bulk snapshot.
type SteamMarketService struct {
	client  *http.Client
	baseURL string
	ttl     time.Duration
	limiter *rate.Limiter
	now     func() time.Time
	group   singleflight.Group

	mu    sync.RWMutex
	cache map[priceKey]models.PriceCacheEntry
}

// NewSteamMarketService creates the on-demand Steam price source.
// requestsPerMinute <= 0 disables the local limiter.
func NewSteamMarketService(baseURL string, timeout, ttl time.Duration, requestsPerMinute int) *SteamMarketService {
	if baseURL == "" {
		baseURL = steamMarketBaseURL
	}
	if timeout <= 0 {
		timeout = defaultUpstreamTimeout
	}
	if ttl <= 0 {
		ttl = DefaultSteamPriceTTL
	}

	limit := rate.Inf
	if requestsPerMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(requestsPerMinute))
	}

	return &SteamMarketService{
		client:  &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
		ttl:     ttl,
		limiter: rate.NewLimiter(limit, defaultSteamBurst),
		now:     time.Now,
		cache:   make(map[priceKey]models.PriceCacheEntry),
	}
}

// FetchPrice returns the price of marketName. A cached value younger than
// the TTL is returned without a request; otherwise exactly one upstream
// request is made. Every failure (rate limit, network, malformed payload)
// is logged and reported as absent.
func (s *SteamMarketService) FetchPrice(ctx context.Context, marketName, currency string) (models.PriceQuote, bool) {
	key := priceKey{name: marketName, currency: models.NormalizeCurrency(currency)}

	if entry, ok := s.cached(key); ok {
		metrics.SteamCacheHits.Inc()
		return models.PriceQuote{Amount: entry.Amount, Currency: entry.Currency, Source: models.PriceSourceSteam}, true
	}

	v, err, _ := s.group.Do(key.name+"\x00"+key.currency, func() (interface{}, error) {
		return s.fetchAndCache(ctx, key)
	})
	if err != nil {
		return models.PriceQuote{}, false
	}
	entry := v.(models.PriceCacheEntry)
	return models.PriceQuote{Amount: entry.Amount, Currency: entry.Currency, Source: models.PriceSourceSteam}, true
}

func (s *SteamMarketService) cached(key priceKey) (models.PriceCacheEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.cache[key]
	if !ok || !entry.IsFresh(s.now(), s.ttl) {
		return models.PriceCacheEntry{}, false
	}
	return entry, true
}

func (s *SteamMarketService) fetchAndCache(ctx context.Context, key priceKey) (models.PriceCacheEntry, error) {
	if !s.limiter.Allow() {
		log.Printf("Steam: local rate limit reached, skipping %s", key.name)
		metrics.SteamRequestsTotal.WithLabelValues("ondemand", "throttled").Inc()
		return models.PriceCacheEntry{}, ErrSteamRateLimited
	}

	currencyID, denominated := steamCurrency(key.currency)
	log.Printf("Steam: fetching price for %s in %s (%d)", key.name, denominated, currencyID)

	amount, err := fetchSteamPrice(ctx, s.client, s.baseURL, key.name, currencyID)
	if err != nil {
		logSteamError("Steam", "ondemand", key.name, err)
		return models.PriceCacheEntry{}, err
	}
	metrics.SteamRequestsTotal.WithLabelValues("ondemand", "ok").Inc()

	entry := models.PriceCacheEntry{
		MarketName: key.name,
		Amount:     amount,
		Currency:   denominated,
		FetchedAt:  s.now(),
	}
	s.mu.Lock()
	s.cache[key] = entry
	s.mu.Unlock()
	return entry, nil
}

// CacheSize returns the number of cached item/currency pairs
func (s *SteamMarketService) CacheSize() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.cache)
}

// fetchSteamPrice performs one priceoverview request and parses the result
func fetchSteamPrice(ctx context.Context, client *http.Client, baseURL, marketName string, currencyID int) (decimal.Decimal, error) {
	params := url.Values{}
	params.Set("appid", cs2AppID)
	params.Set("currency", strconv.Itoa(currencyID))
	params.Set("market_hash_name", marketName)
	reqURL := fmt.Sprintf("%s/market/priceoverview/?%s", baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", browserUserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to fetch price: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return decimal.Zero, ErrSteamRateLimited
	}
	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, fmt.Errorf("steam API error: status %d", resp.StatusCode)
	}

	var overview steamPriceOverview
	if err := json.NewDecoder(resp.Body).Decode(&overview); err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", ErrNoSteamPrice, err)
	}
	if !overview.Success {
		return decimal.Zero, ErrNoSteamPrice
	}

	raw := overview.LowestPrice
	if raw == "" {
		raw = overview.MedianPrice
	}
	amount, ok := ParseLocalizedPrice(raw)
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: unparseable %q", ErrNoSteamPrice, raw)
	}
	return amount, nil
}

// logSteamError logs a failed lookup and counts it by outcome
func logSteamError(prefix, caller, marketName string, err error) {
	switch {
	case errors.Is(err, ErrSteamRateLimited):
		log.Printf("%s: 429 rate limit on %s, skipping", prefix, marketName)
		metrics.SteamRequestsTotal.WithLabelValues(caller, "rate_limited").Inc()
	case errors.Is(err, ErrNoSteamPrice):
		log.Printf("%s: no price for %s: %v", prefix, marketName, err)
		metrics.SteamRequestsTotal.WithLabelValues(caller, "malformed").Inc()
	default:
		log.Printf("%s: error fetching %s: %v", prefix, marketName, err)
		metrics.SteamRequestsTotal.WithLabelValues(caller, "error").Inc()
	}
}

// ParseLocalizedPrice parses a price string as Steam formats it for the
// wallet currency, e.g. "$1,234.56", "1 234,56 pуб." or "12,5€".
//
// Whitespace and currency symbols are dropped. When both ',' and '.' are
// present the rightmost one is the decimal separator. A single separator
// followed by one or two digits is a decimal separator; otherwise
// separators group thousands.
func ParseLocalizedPrice(s string) (decimal.Decimal, bool) {
	var b strings.Builder
	for _, r := range s {
		switch {
		case unicode.IsSpace(r):
		case r >= '0' && r <= '9', r == ',', r == '.':
			b.WriteRune(r)
		}
	}
	cleaned := strings.TrimRight(b.String(), ".,")
	if cleaned == "" || strings.Trim(cleaned, ".,") == "" {
		return decimal.Zero, false
	}
	if cleaned[0] == '.' || cleaned[0] == ',' {
		cleaned = "0" + cleaned
	}

	decimalSep := byte(0)
	lastComma := strings.LastIndexByte(cleaned, ',')
	lastDot := strings.LastIndexByte(cleaned, '.')
	switch {
	case lastComma >= 0 && lastDot >= 0:
		if lastComma > lastDot {
			decimalSep = ','
		} else {
			decimalSep = '.'
		}
	case lastComma >= 0 || lastDot >= 0:
		sep := byte(',')
		idx := lastComma
		if lastDot >= 0 {
			sep, idx = '.', lastDot
		}
		digitsAfter := len(cleaned) - idx - 1
		if strings.Count(cleaned, string(sep)) == 1 && digitsAfter <= 2 {
			decimalSep = sep
		}
	}

	var normalized strings.Builder
	for i := 0; i < len(cleaned); i++ {
		c := cleaned[i]
		switch {
		case c >= '0' && c <= '9':
			normalized.WriteByte(c)
		case decimalSep != 0 && c == decimalSep && i == strings.LastIndexByte(cleaned, decimalSep):
			normalized.WriteByte('.')
		}
	}

	amount, err := decimal.NewFromString(normalized.String())
	if err != nil {
		return decimal.Zero, false
	}
	return amount, true
}
