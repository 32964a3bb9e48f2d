package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/skinfolio/backend/internal/metrics"
)

// remoteIcon is one entry of the public CS2 item database lists
type remoteIcon struct {
	Name           string `json:"name"`
	MarketHashName string `json:"market_hash_name"`
	Image          string `json:"image"`
}

// IconIndex maps item names to image URLs. It is seeded from the catalog and
// extended asynchronously, so lookups may miss until LoadRemote finishes.
type IconIndex struct {
	client *http.Client

	mu      sync.RWMutex
	icons   map[string]string
	version uint64
}

// NewIconIndex seeds the index from the catalog
func NewIconIndex(catalog *CatalogService, timeout time.Duration) *IconIndex {
	if timeout <= 0 {
		timeout = defaultUpstreamTimeout
	}
	idx := &IconIndex{
		client: &http.Client{Timeout: timeout},
		icons:  make(map[string]string),
	}
	if catalog != nil {
		idx.merge(catalog.iconSeeds())
	}
	return idx
}

// Lookup returns the image for name, falling back to the cleaned name
func (idx *IconIndex) Lookup(name string) (string, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if icon, ok := idx.icons[name]; ok {
		return icon, true
	}
	if cleaned := CleanName(name); cleaned != name {
		if icon, ok := idx.icons[cleaned]; ok {
			return icon, true
		}
	}
	return "", false
}

// Version increments every time a merge adds names
func (idx *IconIndex) Version() uint64 {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.version
}

// Size returns the number of indexed names
func (idx *IconIndex) Size() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.icons)
}

// LoadRemote fetches each list and merges it. A failing source is logged and
// skipped. Existing names keep their catalog image.
func (idx *IconIndex) LoadRemote(ctx context.Context, urls ...string) {
	for _, u := range urls {
		icons, err := idx.fetchIcons(ctx, u)
		if err != nil {
			log.Printf("Icons: failed to load %s: %v", u, err)
			continue
		}
		added := idx.merge(icons)
		log.Printf("Icons: merged %d new icons from %s (index size %d)", added, u, idx.Size())
	}
}

func (idx *IconIndex) fetchIcons(ctx context.Context, u string) (map[string]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := idx.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch icons: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("icon source error: status %d", resp.StatusCode)
	}

	var entries []remoteIcon
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, fmt.Errorf("failed to decode icons: %w", err)
	}

	icons := make(map[string]string, len(entries)*2)
	for _, e := range entries {
		if e.Image == "" {
			continue
		}
		if e.Name != "" {
			icons[e.Name] = e.Image
		}
		if e.MarketHashName != "" {
			icons[e.MarketHashName] = e.Image
		}
	}
	return icons, nil
}

// merge adds names that are not indexed yet and returns how many were added
func (idx *IconIndex) merge(icons map[string]string) int {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	added := 0
	for name, icon := range icons {
		if _, exists := idx.icons[name]; exists {
			continue
		}
		idx.icons[name] = icon
		added++
	}
	if added > 0 {
		idx.version++
	}
	metrics.IconIndexSize.Set(float64(len(idx.icons)))
	return added
}
