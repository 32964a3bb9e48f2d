package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"github.com/skinfolio/backend/internal/metrics"
	"github.com/skinfolio/backend/internal/models"
)

const (
	exchangeRatesBaseURL = "https://open.er-api.com"

	// DefaultExchangeRateTTL is how long a fetched rate set is considered fresh
	DefaultExchangeRateTTL = time.Hour

	// exchangeRateRetryBackoff is the minimum wait after a failed refresh
	// before Get starts another one
	exchangeRateRetryBackoff = time.Minute
)

type exchangeRatesResponse struct {
	Result string             `json:"result"`
	Rates  map[string]float64 `json:"rates"`
}

// ExchangeRateService caches USD based conversion rates. Readers always get
// a usable value: the fallback set until the first refresh lands, then the
// last successful fetch.
type ExchangeRateService struct {
	client  *http.Client
	baseURL string
	ttl     time.Duration
	now     func() time.Time

	mu          sync.RWMutex
	rates       models.ExchangeRateSet
	lastFailure time.Time
	refreshing  atomic.Bool
}

// NewExchangeRateService creates the rate cache seeded with the fallback rates
func NewExchangeRateService(baseURL string, timeout, ttl time.Duration) *ExchangeRateService {
	if baseURL == "" {
		baseURL = exchangeRatesBaseURL
	}
	if timeout <= 0 {
		timeout = defaultUpstreamTimeout
	}
	if ttl <= 0 {
		ttl = DefaultExchangeRateTTL
	}
	return &ExchangeRateService{
		client:  &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
		ttl:     ttl,
		now:     time.Now,
		rates:   models.FallbackExchangeRates(),
	}
}

// Start refreshes immediately and then every TTL until ctx is cancelled
func (s *ExchangeRateService) Start(ctx context.Context) {
	log.Printf("Exchange rates: refresher started (every %v)", s.ttl)
	if err := s.Refresh(ctx); err != nil {
		log.Printf("Exchange rates: initial refresh failed, serving fallback: %v", err)
	}

	ticker := time.NewTicker(s.ttl)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Exchange rates: refresher stopping...")
			return
		case <-ticker.C:
			if err := s.Refresh(ctx); err != nil {
				log.Printf("Exchange rates: refresh failed, keeping previous rates: %v", err)
			}
		}
	}
}

// Get returns the current rate set without blocking. A stale set triggers
// one background refresh and is still returned. After a failed refresh no
// new one is started until the retry backoff has passed.
func (s *ExchangeRateService) Get() models.ExchangeRateSet {
	s.mu.RLock()
	current := s.rates
	lastFailure := s.lastFailure
	s.mu.RUnlock()

	now := s.now()
	stale := now.Sub(current.FetchedAt) >= s.ttl
	backingOff := !lastFailure.IsZero() && now.Sub(lastFailure) < exchangeRateRetryBackoff
	if stale && !backingOff && !s.refreshing.Load() {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), s.client.Timeout)
			defer cancel()
			if err := s.Refresh(ctx); err != nil {
				log.Printf("Exchange rates: background refresh failed: %v", err)
			}
		}()
	}
	return current
}

// Refresh fetches the latest rates. On failure the previous set is kept.
// Concurrent calls while a refresh is running return immediately.
func (s *ExchangeRateService) Refresh(ctx context.Context) error {
	if !s.refreshing.CompareAndSwap(false, true) {
		return nil
	}
	defer s.refreshing.Store(false)

	rates, err := s.fetchRates(ctx)
	if err != nil {
		s.mu.Lock()
		s.lastFailure = s.now()
		s.mu.Unlock()
		metrics.ExchangeRateRefreshTotal.WithLabelValues("error").Inc()
		return err
	}

	s.mu.Lock()
	s.rates = models.ExchangeRateSet{Rates: rates, FetchedAt: s.now()}
	s.lastFailure = time.Time{}
	s.mu.Unlock()

	metrics.ExchangeRateRefreshTotal.WithLabelValues("success").Inc()
	log.Printf("Exchange rates: updated %d rates (RUB %.4f, KZT %.4f)", len(rates), rates["RUB"], rates["KZT"])
	return nil
}

func (s *ExchangeRateService) fetchRates(ctx context.Context) (map[string]float64, error) {
	reqURL := fmt.Sprintf("%s/v6/latest/%s", s.baseURL, models.BaseCurrency)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch rates: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("exchange rate API error: status %d", resp.StatusCode)
	}

	var body exchangeRatesResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if body.Result != "success" {
		return nil, fmt.Errorf("exchange rate API returned result %q", body.Result)
	}
	if len(body.Rates) == 0 {
		return nil, fmt.Errorf("exchange rate API returned no rates")
	}

	rates := make(map[string]float64, len(body.Rates))
	for code, r := range body.Rates {
		if r > 0 {
			rates[strings.ToUpper(code)] = r
		}
	}
	rates[models.BaseCurrency] = 1
	return rates, nil
}

// Convert converts amount between two currencies using the current rates.
// It reports false when either rate is unknown.
func (s *ExchangeRateService) Convert(amount decimal.Decimal, from, to string) (decimal.Decimal, bool) {
	return convertAmount(s.Get(), amount, from, to)
}

func convertAmount(set models.ExchangeRateSet, amount decimal.Decimal, from, to string) (decimal.Decimal, bool) {
	from, to = models.NormalizeCurrency(from), models.NormalizeCurrency(to)
	if from == to {
		return amount, true
	}
	fromRate, ok := set.Rate(from)
	if !ok {
		return decimal.Zero, false
	}
	toRate, ok := set.Rate(to)
	if !ok {
		return decimal.Zero, false
	}
	usd := amount.Div(decimal.NewFromFloat(fromRate))
	return usd.Mul(decimal.NewFromFloat(toRate)), true
}
