// Package config loads runtime settings from the environment, with an
// optional .env file in the working directory.
package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port             string
	DBPath           string
	CatalogPath      string
	FrontendPath     string
	CORSOrigins      []string
	HTTPTimeout      time.Duration
	SearchCacheSize  int
	SkinportURL      string
	SteamMarketURL   string
	ExchangeRatesURL string
	IconSourceURLs   []string

	// Bulk snapshot
	SnapshotTTL             time.Duration
	SnapshotRefreshInterval time.Duration

	// Exchange rates
	ExchangeRateTTL time.Duration

	// Steam on-demand lookups
	SteamPriceTTL          time.Duration
	SteamRequestsPerMinute int

	// Tracked item scheduler
	SteamProxies           []string
	SteamProxiesFile       string
	SchedulerInterval      time.Duration
	SchedulerProxyInterval time.Duration
}

// Load reads .env (if present) and then the process environment
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Printf("Config: .env file not loaded (%v), using process environment", err)
	}

	return &Config{
		Port:             getString("PORT", "3001"),
		DBPath:           getString("DB_PATH", "./skinfolio.db"),
		CatalogPath:      getString("CATALOG_PATH", "./data/cases.json"),
		FrontendPath:     getString("FRONTEND_DIST_PATH", ""),
		CORSOrigins:      getList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:5173", "http://localhost:3000"}),
		HTTPTimeout:      getDuration("HTTP_TIMEOUT", 10*time.Second),
		SearchCacheSize:  getInt("SEARCH_CACHE_SIZE", 512),
		SkinportURL:      getString("SKINPORT_API_URL", "https://api.skinport.com"),
		SteamMarketURL:   getString("STEAM_MARKET_URL", "https://steamcommunity.com"),
		ExchangeRatesURL: getString("EXCHANGE_RATES_URL", "https://open.er-api.com"),
		IconSourceURLs: getList("ICON_SOURCE_URLS", []string{
			"https://raw.githubusercontent.com/ByMykel/CSGO-API/main/public/api/en/skins_not_grouped.json",
			"https://raw.githubusercontent.com/ByMykel/CSGO-API/main/public/api/en/stickers.json",
			"https://raw.githubusercontent.com/ByMykel/CSGO-API/main/public/api/en/crates.json",
		}),

		SnapshotTTL:             getDuration("SNAPSHOT_TTL", 30*time.Minute),
		SnapshotRefreshInterval: getDuration("SNAPSHOT_REFRESH_INTERVAL", 30*time.Minute),

		ExchangeRateTTL: getDuration("EXCHANGE_RATE_TTL", time.Hour),

		SteamPriceTTL:          getDuration("STEAM_PRICE_TTL", time.Hour),
		SteamRequestsPerMinute: getInt("STEAM_REQUESTS_PER_MINUTE", 20),

		SteamProxies:           getList("STEAM_PROXIES", nil),
		SteamProxiesFile:       getString("STEAM_PROXIES_FILE", "proxies.txt"),
		SchedulerInterval:      getDuration("SCHEDULER_INTERVAL", 5*time.Second),
		SchedulerProxyInterval: getDuration("SCHEDULER_PROXY_INTERVAL", 2*time.Second),
	}
}

func getString(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		log.Printf("Config: invalid %s=%q, using %d", key, v, def)
		return def
	}
	return n
}

func getDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		log.Printf("Config: invalid %s=%q, using %v", key, v, def)
		return def
	}
	return d
}

// getList splits a comma separated value, dropping empty entries
func getList(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
