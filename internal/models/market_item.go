package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// BaseCurrency is the currency the bulk market snapshot is denominated in
const BaseCurrency = "USD"

// MarketItem is one row of the bulk market snapshot
type MarketItem struct {
	MarketName      string          `json:"market_hash_name"`
	SuggestedPrice  decimal.Decimal `json:"suggested_price"`
	MinListingPrice decimal.Decimal `json:"min_price"`
	Quantity        int             `json:"quantity"`
	ItemPage        string          `json:"item_page,omitempty"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// DisplayPrice is the suggested price, or the lowest listing when no
// suggested price is known. Rounded to cents.
func (m MarketItem) DisplayPrice() decimal.Decimal {
	if m.SuggestedPrice.IsPositive() {
		return m.SuggestedPrice.Round(2)
	}
	return m.MinListingPrice.Round(2)
}

// CashPrice is the lowest listing price rounded to cents
func (m MarketItem) CashPrice() decimal.Decimal {
	return m.MinListingPrice.Round(2)
}

// SearchResult is a single autocomplete hit
type SearchResult struct {
	Name      string  `json:"name"`
	IconURL   string  `json:"icon_url"`
	Price     float64 `json:"price"`
	CashPrice float64 `json:"cash_price"`
}
