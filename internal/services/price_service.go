package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/skinfolio/backend/internal/metrics"
	"github.com/skinfolio/backend/internal/models"
)

// ErrPriceNotFound is returned when no source has a price for an item
var ErrPriceNotFound = errors.New("price not found")

// SnapshotLookup is the bulk snapshot as seen by the resolver
type SnapshotLookup interface {
	Lookup(marketName string) (models.MarketItem, bool)
}

// ItemPriceSource resolves a single item price from an external market
type ItemPriceSource interface {
	FetchPrice(ctx context.Context, marketName, currency string) (models.PriceQuote, bool)
}

// RateProvider returns the current USD based exchange rates without blocking
type RateProvider interface {
	Get() models.ExchangeRateSet
}

// PriceService resolves item prices: bulk snapshot first, then the external
// market, converting into the requested currency
type PriceService struct {
	snapshot SnapshotLookup
	external ItemPriceSource
	rates    RateProvider
}

// NewPriceService creates a new price resolver
func NewPriceService(snapshot SnapshotLookup, external ItemPriceSource, rates RateProvider) *PriceService {
	return &PriceService{
		snapshot: snapshot,
		external: external,
		rates:    rates,
	}
}

// ResolvePrice returns the price of marketName in currency.
// Fallback order: bulk snapshot (USD, converted) -> external market.
// The external market is never called for items in the snapshot.
func (s *PriceService) ResolvePrice(ctx context.Context, marketName, currency string) (models.PriceQuote, error) {
	currency = models.NormalizeCurrency(currency)

	// 1. Bulk snapshot
	if item, ok := s.snapshot.Lookup(marketName); ok {
		cash := item.CashPrice()
		quote := models.PriceQuote{
			Amount:    item.DisplayPrice(),
			Currency:  models.BaseCurrency,
			Source:    models.PriceSourceSkinport,
			CashPrice: &cash,
		}
		metrics.PriceResolutionsTotal.WithLabelValues(models.PriceSourceSkinport).Inc()
		return s.convert(quote, currency), nil
	}

	// 2. External market, asked for the target currency directly
	if s.external != nil {
		if quote, ok := s.external.FetchPrice(ctx, marketName, currency); ok {
			metrics.PriceResolutionsTotal.WithLabelValues(models.PriceSourceSteam).Inc()
			return s.convert(quote, currency), nil
		}
	}

	metrics.PriceResolutionsTotal.WithLabelValues("not_found").Inc()
	return models.PriceQuote{}, fmt.Errorf("%s: %w", marketName, ErrPriceNotFound)
}

// convert re-denominates quote into currency. When a rate is missing the
// quote is returned unchanged in its own currency.
func (s *PriceService) convert(quote models.PriceQuote, currency string) models.PriceQuote {
	if quote.Currency == currency || s.rates == nil {
		return quote
	}

	set := s.rates.Get()
	amount, ok := convertAmount(set, quote.Amount, quote.Currency, currency)
	if !ok {
		return quote
	}
	quote.Amount = amount
	if quote.CashPrice != nil {
		if cash, ok := convertAmount(set, *quote.CashPrice, quote.Currency, currency); ok {
			quote.CashPrice = &cash
		}
	}
	quote.Currency = currency
	return quote
}

// ValuePortfolio sums quantity x current price for every item in currency.
// Items without a price are listed in Unpriced and do not fail the valuation.
func (s *PriceService) ValuePortfolio(ctx context.Context, portfolio *models.Portfolio, currency string) models.PortfolioValuation {
	currency = models.NormalizeCurrency(currency)
	valuation := models.PortfolioValuation{
		PortfolioID: portfolio.ID,
		Currency:    currency,
		TotalValue:  decimal.Zero,
	}

	for _, item := range portfolio.Items {
		quote, err := s.ResolvePrice(ctx, item.Name, currency)
		if err != nil {
			valuation.Unpriced = append(valuation.Unpriced, item.Name)
			continue
		}
		valuation.TotalValue = valuation.TotalValue.Add(quote.Amount.Mul(decimal.NewFromInt(int64(item.Quantity))))
		valuation.PricedItems++
	}
	valuation.TotalValue = valuation.TotalValue.Round(2)
	return valuation
}
