package handlers

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/skinfolio/backend/internal/models"
	"github.com/skinfolio/backend/internal/services"
)

// TrackedPrices exposes the background scheduler's cache
type TrackedPrices interface {
	Price(marketName string) (models.PriceCacheEntry, bool)
}

type PriceHandler struct {
	prices  *services.PriceService
	rates   services.RateProvider
	tracked TrackedPrices
}

func NewPriceHandler(prices *services.PriceService, rates services.RateProvider, tracked TrackedPrices) *PriceHandler {
	return &PriceHandler{
		prices:  prices,
		rates:   rates,
		tracked: tracked,
	}
}

// GetPrice resolves the current price of one item in the requested currency
func (h *PriceHandler) GetPrice(c *gin.Context) {
	name := strings.TrimSpace(c.Query("name"))
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "missing name parameter"})
		return
	}

	currency := models.NormalizeCurrency(c.Query("currency"))
	if !models.IsKnownCurrency(currency) {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "unknown currency " + currency})
		return
	}

	quote, err := h.prices.ResolvePrice(c.Request.Context(), name, currency)
	if errors.Is(err, services.ErrPriceNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "price not found"})
		return
	}
	if err != nil {
		log.Printf("Price handler: failed to resolve %s: %v", name, err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to fetch price"})
		return
	}

	resp := gin.H{
		"success":  true,
		"price":    quote.Amount.InexactFloat64(),
		"currency": quote.Currency,
		"source":   quote.Source,
	}
	if quote.CashPrice != nil {
		resp["cash_price"] = quote.CashPrice.InexactFloat64()
	}
	c.JSON(http.StatusOK, resp)
}

// GetTrackedPrice returns the scheduler's last USD price for a tracked item
func (h *PriceHandler) GetTrackedPrice(c *gin.Context) {
	name := strings.TrimSpace(c.Query("name"))
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "missing name parameter"})
		return
	}

	entry, ok := h.tracked.Price(name)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "price not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"price":      entry.Amount.InexactFloat64(),
		"currency":   entry.Currency,
		"source":     models.PriceSourceSteam,
		"fetched_at": entry.FetchedAt,
	})
}

// GetRates returns the current USD based exchange rates
func (h *PriceHandler) GetRates(c *gin.Context) {
	c.JSON(http.StatusOK, h.rates.Get().Rates)
}
