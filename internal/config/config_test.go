package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("SNAPSHOT_TTL", "")
	t.Setenv("STEAM_PROXIES", "")

	cfg := Load()

	if cfg.SnapshotTTL != 30*time.Minute {
		t.Errorf("expected 30m snapshot TTL, got %v", cfg.SnapshotTTL)
	}
	if cfg.SnapshotRefreshInterval != 30*time.Minute {
		t.Errorf("expected 30m refresh interval, got %v", cfg.SnapshotRefreshInterval)
	}
	if cfg.ExchangeRateTTL != time.Hour {
		t.Errorf("expected 1h exchange rate TTL, got %v", cfg.ExchangeRateTTL)
	}
	if cfg.HTTPTimeout != 10*time.Second {
		t.Errorf("expected 10s HTTP timeout, got %v", cfg.HTTPTimeout)
	}
	if len(cfg.SteamProxies) != 0 {
		t.Errorf("expected no proxies, got %v", cfg.SteamProxies)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SNAPSHOT_TTL", "12h")
	t.Setenv("STEAM_REQUESTS_PER_MINUTE", "5")
	t.Setenv("STEAM_PROXIES", "http://a:1, ,http://b:2")
	t.Setenv("SEARCH_CACHE_SIZE", "nope")

	cfg := Load()

	if cfg.SnapshotTTL != 12*time.Hour {
		t.Errorf("expected 12h, got %v", cfg.SnapshotTTL)
	}
	if cfg.SteamRequestsPerMinute != 5 {
		t.Errorf("expected 5, got %d", cfg.SteamRequestsPerMinute)
	}
	if len(cfg.SteamProxies) != 2 || cfg.SteamProxies[1] != "http://b:2" {
		t.Errorf("unexpected proxies %v", cfg.SteamProxies)
	}
	if cfg.SearchCacheSize != 512 {
		t.Errorf("invalid value should fall back to default, got %d", cfg.SearchCacheSize)
	}
}
