package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/skinfolio/backend/internal/models"
	"github.com/skinfolio/backend/internal/services"
)

type PortfolioHandler struct {
	portfolios *services.PortfolioService
	prices     *services.PriceService
}

func NewPortfolioHandler(portfolios *services.PortfolioService, prices *services.PriceService) *PortfolioHandler {
	return &PortfolioHandler{
		portfolios: portfolios,
		prices:     prices,
	}
}

// respondError maps service errors to HTTP statuses
func respondError(c *gin.Context, action string, err error) {
	switch {
	case errors.Is(err, services.ErrPortfolioNotFound), errors.Is(err, services.ErrItemNotFound):
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": err.Error()})
	case errors.Is(err, services.ErrInvalidCurrency), errors.Is(err, services.ErrInvalidName):
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
	default:
		log.Printf("Portfolio handler: %s failed: %v", action, err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to " + action})
	}
}

// GetPortfolios lists a user's portfolios, creating the default one on first access
func (h *PortfolioHandler) GetPortfolios(c *gin.Context) {
	portfolios, err := h.portfolios.List(c.Param("userId"))
	if err != nil {
		respondError(c, "load portfolios", err)
		return
	}
	c.JSON(http.StatusOK, portfolios)
}

// CreatePortfolio adds an empty portfolio and returns it with the full list
func (h *PortfolioHandler) CreatePortfolio(c *gin.Context) {
	userID := c.Param("userId")

	var req models.CreatePortfolioRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "portfolio name required"})
		return
	}

	portfolio, err := h.portfolios.Create(userID, req.Name)
	if err != nil {
		respondError(c, "create portfolio", err)
		return
	}
	all, err := h.portfolios.List(userID)
	if err != nil {
		respondError(c, "load portfolios", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "portfolio": portfolio, "portfolios": all})
}

// RenamePortfolio changes a portfolio's name
func (h *PortfolioHandler) RenamePortfolio(c *gin.Context) {
	var req models.RenamePortfolioRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "portfolio name required"})
		return
	}

	portfolio, err := h.portfolios.Rename(c.Param("userId"), c.Param("portfolioId"), req.Name)
	if err != nil {
		respondError(c, "rename portfolio", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "portfolio": portfolio})
}

// DeletePortfolio removes a portfolio and its items
func (h *PortfolioHandler) DeletePortfolio(c *gin.Context) {
	if err := h.portfolios.Delete(c.Param("userId"), c.Param("portfolioId")); err != nil {
		respondError(c, "delete portfolio", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// AddItem adds an item and returns the updated portfolio
func (h *PortfolioHandler) AddItem(c *gin.Context) {
	userID, portfolioID := c.Param("userId"), c.Param("portfolioId")

	var req models.AddItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "item name required"})
		return
	}

	if _, err := h.portfolios.AddItem(userID, portfolioID, req); err != nil {
		respondError(c, "add item", err)
		return
	}
	h.respondPortfolio(c, userID, portfolioID)
}

// DeleteItem removes an item and returns the updated portfolio
func (h *PortfolioHandler) DeleteItem(c *gin.Context) {
	userID, portfolioID := c.Param("userId"), c.Param("portfolioId")

	if err := h.portfolios.DeleteItem(userID, portfolioID, c.Param("itemId")); err != nil {
		respondError(c, "delete item", err)
		return
	}
	h.respondPortfolio(c, userID, portfolioID)
}

func (h *PortfolioHandler) respondPortfolio(c *gin.Context, userID, portfolioID string) {
	portfolio, err := h.portfolios.Get(userID, portfolioID)
	if err != nil {
		respondError(c, "load portfolio", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "portfolio": portfolio})
}

// GetValue returns the current market value of a portfolio
func (h *PortfolioHandler) GetValue(c *gin.Context) {
	currency := models.NormalizeCurrency(c.Query("currency"))
	if !models.IsKnownCurrency(currency) {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "unknown currency " + currency})
		return
	}

	portfolio, err := h.portfolios.Get(c.Param("userId"), c.Param("portfolioId"))
	if err != nil {
		respondError(c, "load portfolio", err)
		return
	}

	valuation := h.prices.ValuePortfolio(c.Request.Context(), portfolio, currency)
	c.JSON(http.StatusOK, gin.H{"success": true, "valuation": valuation})
}
