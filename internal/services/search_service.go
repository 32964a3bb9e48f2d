package services

import (
	"strconv"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/skinfolio/backend/internal/metrics"
	"github.com/skinfolio/backend/internal/models"
)

const (
	// MinSearchQueryLength is the shortest query that is searched at all
	MinSearchQueryLength = 2
	// MaxSnapshotResults caps hits from the bulk snapshot
	MaxSnapshotResults = 50
	// MaxCatalogResults caps hits from the static catalog fallback
	MaxCatalogResults = 20

	defaultSearchCacheSize = 512
)

// SearchService answers autocomplete queries from the bulk snapshot, falling
// back to the static catalog when the snapshot has no hits
type SearchService struct {
	snapshot *MarketSnapshotService
	catalog  *CatalogService
	icons    *IconIndex
	cache    *lru.Cache[string, []models.SearchResult]
}

// NewSearchService creates the search service with an LRU of cacheSize recent queries
func NewSearchService(snapshot *MarketSnapshotService, catalog *CatalogService, icons *IconIndex, cacheSize int) (*SearchService, error) {
	if cacheSize <= 0 {
		cacheSize = defaultSearchCacheSize
	}
	cache, err := lru.New[string, []models.SearchResult](cacheSize)
	if err != nil {
		return nil, err
	}
	return &SearchService{
		snapshot: snapshot,
		catalog:  catalog,
		icons:    icons,
		cache:    cache,
	}, nil
}

// Search returns matching items in scan order: up to 50 snapshot hits, or
// up to 20 catalog hits when the snapshot has none. The returned slice is
// owned by the caller.
func (s *SearchService) Search(query string) []models.SearchResult {
	if len([]rune(strings.TrimSpace(query))) < MinSearchQueryLength {
		metrics.SearchRequestsTotal.WithLabelValues("rejected").Inc()
		return []models.SearchResult{}
	}

	q := normalizeQuery(query)
	// A snapshot swap or an icon merge invalidates older entries
	cacheKey := strconv.FormatUint(s.snapshot.Generation(), 10) + "\x00" +
		strconv.FormatUint(s.iconVersion(), 10) + "\x00" + q
	if cached, ok := s.cache.Get(cacheKey); ok {
		metrics.SearchRequestsTotal.WithLabelValues("cache").Inc()
		out := make([]models.SearchResult, len(cached))
		copy(out, cached)
		return out
	}

	results := s.searchSnapshot(q)
	source := "skinport"
	if len(results) == 0 {
		results = s.searchCatalog(q)
		source = "catalog"
	}
	metrics.SearchRequestsTotal.WithLabelValues(source).Inc()

	// Catalog answers given before the first snapshot load are not cached
	if s.snapshot.IsLoaded() {
		cached := make([]models.SearchResult, len(results))
		copy(cached, results)
		s.cache.Add(cacheKey, cached)
	}
	return results
}

func (s *SearchService) searchSnapshot(q string) []models.SearchResult {
	results := []models.SearchResult{}
	for _, item := range s.snapshot.Items() {
		if !strings.Contains(strings.ToLower(item.MarketName), q) {
			continue
		}
		results = append(results, models.SearchResult{
			Name:      item.MarketName,
			IconURL:   s.icon(item.MarketName),
			Price:     item.DisplayPrice().InexactFloat64(),
			CashPrice: item.CashPrice().InexactFloat64(),
		})
		if len(results) >= MaxSnapshotResults {
			break
		}
	}
	return results
}

func (s *SearchService) searchCatalog(q string) []models.SearchResult {
	results := []models.SearchResult{}
	if s.catalog == nil {
		return results
	}
	for _, item := range s.catalog.Search(q, MaxCatalogResults) {
		icon := item.Image
		if icon == "" {
			icon = s.icon(item.Name)
		}
		results = append(results, models.SearchResult{
			Name:    item.Name,
			IconURL: icon,
		})
	}
	return results
}

func (s *SearchService) iconVersion() uint64 {
	if s.icons == nil {
		return 0
	}
	return s.icons.Version()
}

func (s *SearchService) icon(name string) string {
	if s.icons == nil {
		return ""
	}
	icon, _ := s.icons.Lookup(name)
	return icon
}

// CacheSize returns the number of memoized queries
func (s *SearchService) CacheSize() int {
	return s.cache.Len()
}
