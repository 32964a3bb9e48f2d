package services

import (
	"context"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/skinfolio/backend/internal/metrics"
	"github.com/skinfolio/backend/internal/models"
)

const (
	// DefaultSchedulerInterval is the per-item pace without proxies
	DefaultSchedulerInterval = 5 * time.Second
	// DefaultSchedulerProxyInterval is the per-item pace when proxies spread the load
	DefaultSchedulerProxyInterval = 2 * time.Second
)

// SchedulerStatus is reported on the status endpoint
type SchedulerStatus struct {
	QueueSize  int       `json:"queue_size"`
	Tracked    int       `json:"tracked"`
	Processed  int       `json:"processed"`
	Cached     int       `json:"cached"`
	LastRunAt  time.Time `json:"last_run_at,omitempty"`
	Proxies    int       `json:"proxies"`
	IntervalMS int64     `json:"interval_ms"`
}

// SteamPriceScheduler keeps Steam USD prices warm for tracked items by
// fetching one item per tick in round-robin order
type SteamPriceScheduler struct {
	baseURL  string
	client   *http.Client
	pool     *ProxyPool
	interval time.Duration
	now      func() time.Time

	mu      sync.RWMutex
	tracked map[string]bool
	queue   []string
	next    int
	cache   map[string]models.PriceCacheEntry

	processed int
	lastRunAt time.Time
}

// NewSteamPriceScheduler creates a scheduler. Requests go through pool; the
// proxy interval applies whenever the pool has at least one proxy.
func NewSteamPriceScheduler(baseURL string, timeout time.Duration, pool *ProxyPool, interval, proxyInterval time.Duration) *SteamPriceScheduler {
	if baseURL == "" {
		baseURL = steamMarketBaseURL
	}
	if timeout <= 0 {
		timeout = defaultUpstreamTimeout
	}
	if pool == nil {
		pool = NewProxyPool(nil)
	}
	if interval <= 0 {
		interval = DefaultSchedulerInterval
	}
	if proxyInterval <= 0 {
		proxyInterval = DefaultSchedulerProxyInterval
	}
	if pool.Len() > 0 {
		interval = proxyInterval
	}

	return &SteamPriceScheduler{
		baseURL:  strings.TrimRight(baseURL, "/"),
		client:   &http.Client{Timeout: timeout, Transport: pool},
		pool:     pool,
		interval: interval,
		now:      time.Now,
		tracked:  make(map[string]bool),
		cache:    make(map[string]models.PriceCacheEntry),
	}
}

// Track adds an item to the tracked set. Returns false if it was already tracked.
func (s *SteamPriceScheduler) Track(marketName string) bool {
	if marketName == "" {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tracked[marketName] {
		return false
	}
	s.tracked[marketName] = true
	s.queue = append(s.queue, marketName)
	metrics.SchedulerQueueSize.Set(float64(len(s.queue)))
	log.Printf("Steam scheduler: tracking %s (queue size: %d)", marketName, len(s.queue))
	return true
}

// Price returns the last scheduled price for an item
func (s *SteamPriceScheduler) Price(marketName string) (models.PriceCacheEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.cache[marketName]
	return entry, ok
}

// Start processes one tracked item per tick until ctx is cancelled
func (s *SteamPriceScheduler) Start(ctx context.Context) {
	log.Printf("Steam scheduler started: 1 item every %v (%d proxies)", s.interval, s.pool.Len())

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Steam scheduler stopping...")
			return
		case <-ticker.C:
			s.processNext(ctx)
		}
	}
}

// processNext fetches the next item in the queue. Returns false on an idle tick.
func (s *SteamPriceScheduler) processNext(ctx context.Context) bool {
	s.mu.Lock()
	if len(s.queue) == 0 {
		s.mu.Unlock()
		return false
	}
	if s.next >= len(s.queue) {
		s.next = 0
	}
	name := s.queue[s.next]
	s.next = (s.next + 1) % len(s.queue)
	s.mu.Unlock()

	amount, err := fetchSteamPrice(ctx, s.client, s.baseURL, name, steamCurrencyIDs[models.BaseCurrency])

	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastRunAt = s.now()
	s.processed++

	if err != nil {
		logSteamError("Steam scheduler", "scheduler", name, err)
		return true
	}

	s.cache[name] = models.PriceCacheEntry{
		MarketName: name,
		Amount:     amount,
		Currency:   models.BaseCurrency,
		FetchedAt:  s.lastRunAt,
	}
	metrics.SteamRequestsTotal.WithLabelValues("scheduler", "ok").Inc()
	return true
}

// Status returns the current scheduler state
func (s *SteamPriceScheduler) Status() SchedulerStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return SchedulerStatus{
		QueueSize:  len(s.queue),
		Tracked:    len(s.tracked),
		Processed:  s.processed,
		Cached:     len(s.cache),
		LastRunAt:  s.lastRunAt,
		Proxies:    s.pool.Len(),
		IntervalMS: s.interval.Milliseconds(),
	}
}
