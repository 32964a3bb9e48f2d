package services

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/skinfolio/backend/internal/metrics"
	"github.com/skinfolio/backend/internal/models"
)

var (
	ErrPortfolioNotFound = errors.New("portfolio not found")
	ErrItemNotFound      = errors.New("item not found")
	ErrInvalidCurrency   = errors.New("unknown currency code")
	ErrInvalidName       = errors.New("name must not be empty")
)

// ItemTracker receives the names of items that should have their prices kept warm
type ItemTracker interface {
	Track(marketName string) bool
}

// PortfolioService persists users' portfolios and their items
type PortfolioService struct {
	db      *gorm.DB
	icons   *IconIndex
	tracker ItemTracker
	now     func() time.Time
}

// NewPortfolioService creates a portfolio store. icons and tracker may be nil.
func NewPortfolioService(db *gorm.DB, icons *IconIndex, tracker ItemTracker) *PortfolioService {
	return &PortfolioService{
		db:      db,
		icons:   icons,
		tracker: tracker,
		now:     time.Now,
	}
}

// List returns all portfolios of a user with their items. A user without
// portfolios gets a default one created on first access.
func (s *PortfolioService) List(userID string) ([]models.Portfolio, error) {
	var portfolios []models.Portfolio
	if err := s.db.Preload("Items").Where("user_id = ?", userID).Order("created_at ASC").Find(&portfolios).Error; err != nil {
		return nil, fmt.Errorf("failed to list portfolios: %w", err)
	}
	if len(portfolios) > 0 {
		return portfolios, nil
	}

	p, err := s.Create(userID, models.DefaultPortfolioName)
	if err != nil {
		return nil, err
	}
	return []models.Portfolio{*p}, nil
}

// Create adds a new empty portfolio for a user
func (s *PortfolioService) Create(userID, name string) (*models.Portfolio, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidName
	}
	p := models.Portfolio{
		ID:     uuid.New().String(),
		UserID: userID,
		Name:   name,
		Items:  []models.PortfolioItem{},
	}
	if err := s.db.Create(&p).Error; err != nil {
		return nil, fmt.Errorf("failed to create portfolio: %w", err)
	}
	log.Printf("Portfolio: created %q for user %s", p.Name, userID)
	return &p, nil
}

// Get returns one portfolio of a user with its items
func (s *PortfolioService) Get(userID, portfolioID string) (*models.Portfolio, error) {
	var p models.Portfolio
	err := s.db.Preload("Items").Where("id = ? AND user_id = ?", portfolioID, userID).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPortfolioNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load portfolio: %w", err)
	}
	return &p, nil
}

// Rename changes a portfolio's name
func (s *PortfolioService) Rename(userID, portfolioID, name string) (*models.Portfolio, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidName
	}
	p, err := s.Get(userID, portfolioID)
	if err != nil {
		return nil, err
	}
	p.Name = name
	if err := s.db.Model(p).Update("name", p.Name).Error; err != nil {
		return nil, fmt.Errorf("failed to rename portfolio: %w", err)
	}
	return p, nil
}

// Delete removes a portfolio and all of its items
func (s *PortfolioService) Delete(userID, portfolioID string) error {
	if _, err := s.Get(userID, portfolioID); err != nil {
		return err
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("portfolio_id = ?", portfolioID).Delete(&models.PortfolioItem{}).Error; err != nil {
			return fmt.Errorf("failed to delete portfolio items: %w", err)
		}
		if err := tx.Where("id = ? AND user_id = ?", portfolioID, userID).Delete(&models.Portfolio{}).Error; err != nil {
			return fmt.Errorf("failed to delete portfolio: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.updateItemMetrics(s.db)
	return nil
}

// AddItem appends an item to a portfolio, filling in its icon and starting
// background price tracking for it
func (s *PortfolioService) AddItem(userID, portfolioID string, req models.AddItemRequest) (*models.PortfolioItem, error) {
	if _, err := s.Get(userID, portfolioID); err != nil {
		return nil, err
	}

	if strings.TrimSpace(req.Name) == "" {
		return nil, ErrInvalidName
	}

	currency := models.NormalizeCurrency(req.Currency)
	if !models.IsKnownCurrency(currency) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidCurrency, req.Currency)
	}

	quantity := req.Quantity
	if quantity < 1 {
		quantity = 1
	}

	item := models.PortfolioItem{
		ID:          uuid.New().String(),
		PortfolioID: portfolioID,
		Name:        strings.TrimSpace(req.Name),
		Quantity:    quantity,
		BuyPrice:    req.BuyPrice,
		Currency:    currency,
		IconURL:     req.IconURL,
		AddedAt:     s.now(),
	}
	if item.IconURL == "" && s.icons != nil {
		item.IconURL, _ = s.icons.Lookup(item.Name)
	}

	if err := s.db.Create(&item).Error; err != nil {
		return nil, fmt.Errorf("failed to add item: %w", err)
	}
	if s.tracker != nil {
		s.tracker.Track(item.Name)
	}
	s.updateItemMetrics(s.db)
	return &item, nil
}

// DeleteItem removes one item from a portfolio
func (s *PortfolioService) DeleteItem(userID, portfolioID, itemID string) error {
	if _, err := s.Get(userID, portfolioID); err != nil {
		return err
	}

	res := s.db.Where("id = ? AND portfolio_id = ?", itemID, portfolioID).Delete(&models.PortfolioItem{})
	if res.Error != nil {
		return fmt.Errorf("failed to delete item: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrItemNotFound
	}
	s.updateItemMetrics(s.db)
	return nil
}

// TrackedNames returns the distinct item names across all portfolios
func (s *PortfolioService) TrackedNames() ([]string, error) {
	var names []string
	if err := s.db.Model(&models.PortfolioItem{}).Distinct("name").Order("name").Pluck("name", &names).Error; err != nil {
		return nil, fmt.Errorf("failed to list item names: %w", err)
	}
	return names, nil
}

// TrackAll registers every portfolio item with the tracker
func (s *PortfolioService) TrackAll() (int, error) {
	if s.tracker == nil {
		return 0, nil
	}
	names, err := s.TrackedNames()
	if err != nil {
		return 0, err
	}
	added := 0
	for _, name := range names {
		if s.tracker.Track(name) {
			added++
		}
	}
	s.updateItemMetrics(s.db)
	return added, nil
}

func (s *PortfolioService) updateItemMetrics(db *gorm.DB) {
	var count int64
	if err := db.Model(&models.PortfolioItem{}).Count(&count).Error; err != nil {
		return
	}
	metrics.PortfolioItemsTotal.Set(float64(count))
}
