package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultPortfolioName is used for the portfolio created on first access
const DefaultPortfolioName = "Main Portfolio"

type Portfolio struct {
	ID        string          `json:"id" gorm:"primaryKey"`
	UserID    string          `json:"user_id" gorm:"not null;index"`
	Name      string          `json:"name" gorm:"not null"`
	Items     []PortfolioItem `json:"items" gorm:"foreignKey:PortfolioID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

type PortfolioItem struct {
	ID          string          `json:"id" gorm:"primaryKey"`
	PortfolioID string          `json:"portfolioId" gorm:"not null;index"`
	Name        string          `json:"name" gorm:"not null"`
	Quantity    int             `json:"quantity" gorm:"default:1"`
	BuyPrice    decimal.Decimal `json:"buyPrice" gorm:"type:decimal(20,8)"`
	Currency    string          `json:"currency" gorm:"default:'USD'"`
	IconURL     string          `json:"iconUrl"`
	AddedAt     time.Time       `json:"addedAt"`
}

type CreatePortfolioRequest struct {
	Name string `json:"name" binding:"required"`
}

type RenamePortfolioRequest struct {
	Name string `json:"name" binding:"required"`
}

type AddItemRequest struct {
	Name     string          `json:"name" binding:"required"`
	Quantity int             `json:"quantity"`
	BuyPrice decimal.Decimal `json:"buyPrice"`
	Currency string          `json:"currency"`
	IconURL  string          `json:"iconUrl"`
}

// PortfolioValuation is the current market value of a portfolio in one currency
type PortfolioValuation struct {
	PortfolioID string          `json:"portfolio_id"`
	Currency    string          `json:"currency"`
	TotalValue  decimal.Decimal `json:"total_value"`
	PricedItems int             `json:"priced_items"`
	Unpriced    []string        `json:"unpriced,omitempty"`
}
