package services

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/skinfolio/backend/internal/models"
)

// CatalogService serves the static case/collection catalog loaded from disk.
// It is read-only after construction.
type CatalogService struct {
	collections []models.CatalogCollection
	byID        map[string]int
}

// NewCatalogService loads cases.json from path. A missing file yields an
// empty catalog so the server can still start.
func NewCatalogService(path string) (*CatalogService, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		log.Printf("Catalog: %s not found, starting with an empty catalog", path)
		return NewCatalogFromCollections(nil), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}

	var collections []models.CatalogCollection
	if err := json.Unmarshal(data, &collections); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}

	s := NewCatalogFromCollections(collections)
	log.Printf("Catalog: loaded %d cases/collections with %d items", len(s.collections), s.ItemCount())
	return s, nil
}

// NewCatalogFromCollections builds a catalog from already decoded collections
func NewCatalogFromCollections(collections []models.CatalogCollection) *CatalogService {
	s := &CatalogService{
		collections: collections,
		byID:        make(map[string]int, len(collections)),
	}
	for i, c := range collections {
		s.byID[c.ID] = i
	}
	return s
}

// Collections returns the overview list without items
func (s *CatalogService) Collections() []models.CatalogSummary {
	out := make([]models.CatalogSummary, 0, len(s.collections))
	for _, c := range s.collections {
		out = append(out, models.CatalogSummary{
			ID:    c.ID,
			Name:  c.Name,
			Image: c.Image,
			Type:  c.Type,
			URL:   "/cases/" + c.ID,
		})
	}
	return out
}

// Collection returns a single collection with its items
func (s *CatalogService) Collection(id string) (*models.CatalogCollection, bool) {
	idx, ok := s.byID[id]
	if !ok {
		return nil, false
	}
	c := s.collections[idx]
	return &c, true
}

// Search returns catalog items whose name contains query (already
// normalized), in catalog order, deduplicated by name, at most limit.
func (s *CatalogService) Search(query string, limit int) []models.CatalogItem {
	if query == "" || limit <= 0 {
		return nil
	}

	var results []models.CatalogItem
	seen := make(map[string]bool)
	for _, c := range s.collections {
		for _, item := range c.Items {
			if seen[item.Name] {
				continue
			}
			if strings.Contains(strings.ToLower(item.Name), query) {
				seen[item.Name] = true
				results = append(results, item)
				if len(results) >= limit {
					return results
				}
			}
		}
	}
	return results
}

// ItemCount returns the number of item rows across all collections
func (s *CatalogService) ItemCount() int {
	n := 0
	for _, c := range s.collections {
		n += len(c.Items)
	}
	return n
}

// iconSeeds returns name -> image pairs for every collection and item
func (s *CatalogService) iconSeeds() map[string]string {
	seeds := make(map[string]string, s.ItemCount()+len(s.collections))
	for _, c := range s.collections {
		if c.Image != "" {
			seeds[c.Name] = c.Image
		}
		for _, item := range c.Items {
			if item.Image != "" {
				seeds[item.Name] = item.Image
			}
		}
	}
	return seeds
}
