package models

import (
	"strings"
	"time"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// Price sources
const (
	PriceSourceSkinport = "skinport"
	PriceSourceSteam    = "steam"
)

// PriceQuote is a resolved price together with the currency it is denominated in
type PriceQuote struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
	Source   string          `json:"source"`
	// CashPrice is only known for snapshot hits
	CashPrice *decimal.Decimal `json:"cash_price,omitempty"`
}

// PriceCacheEntry is a cached single-item price keyed by name and requested currency
type PriceCacheEntry struct {
	MarketName string          `json:"market_hash_name"`
	Amount     decimal.Decimal `json:"amount"`
	Currency   string          `json:"currency"`
	FetchedAt  time.Time       `json:"fetched_at"`
}

// IsFresh reports whether the entry is younger than ttl at now
func (e PriceCacheEntry) IsFresh(now time.Time, ttl time.Duration) bool {
	if e.FetchedAt.IsZero() {
		return false
	}
	return now.Sub(e.FetchedAt) < ttl
}

// ExchangeRateSet maps currency codes to their multiplier against USD
type ExchangeRateSet struct {
	Rates     map[string]float64 `json:"rates"`
	FetchedAt time.Time          `json:"fetched_at"`
}

// FallbackExchangeRates is served until the first successful refresh
func FallbackExchangeRates() ExchangeRateSet {
	return ExchangeRateSet{
		Rates: map[string]float64{
			"USD": 1,
			"RUB": 100,
			"KZT": 500,
		},
	}
}

// Rate returns the multiplier for code. USD is always 1.
func (s ExchangeRateSet) Rate(code string) (float64, bool) {
	code = NormalizeCurrency(code)
	if code == BaseCurrency {
		return 1, true
	}
	r, ok := s.Rates[code]
	if !ok || r <= 0 {
		return 0, false
	}
	return r, true
}

// NormalizeCurrency upper-cases a currency code and defaults empty input to USD
func NormalizeCurrency(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return BaseCurrency
	}
	return code
}

// IsKnownCurrency reports whether code is an ISO 4217 currency code
func IsKnownCurrency(code string) bool {
	return money.GetCurrency(NormalizeCurrency(code)) != nil
}
