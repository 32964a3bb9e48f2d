package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"

	"github.com/skinfolio/backend/internal/api"
	"github.com/skinfolio/backend/internal/config"
	"github.com/skinfolio/backend/internal/database"
	"github.com/skinfolio/backend/internal/services"
)

// runWithRecovery keeps a background worker alive across panics until ctx is cancelled
func runWithRecovery(ctx context.Context, name string, start func(context.Context)) {
	for {
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.Printf("PANIC in %s: %v - restarting in 30 seconds", name, r)
				}
			}()
			start(ctx)
		}()

		select {
		case <-ctx.Done():
			return // Graceful shutdown
		case <-time.After(30 * time.Second):
			log.Printf("%s restarting after panic recovery...", name)
		}
	}
}

func main() {
	cfg := config.Load()

	// Amounts are sent to the frontend as JSON numbers
	decimal.MarshalJSONWithoutQuotes = true

	db, err := database.Open(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	catalog, err := services.NewCatalogService(cfg.CatalogPath)
	if err != nil {
		log.Fatalf("Failed to load catalog: %v", err)
	}
	icons := services.NewIconIndex(catalog, cfg.HTTPTimeout)

	snapshot := services.NewMarketSnapshotService(cfg.SkinportURL, cfg.HTTPTimeout, cfg.SnapshotTTL, cfg.SnapshotRefreshInterval)
	rates := services.NewExchangeRateService(cfg.ExchangeRatesURL, cfg.HTTPTimeout, cfg.ExchangeRateTTL)
	steam := services.NewSteamMarketService(cfg.SteamMarketURL, cfg.HTTPTimeout, cfg.SteamPriceTTL, cfg.SteamRequestsPerMinute)

	proxies, err := services.LoadProxyList(cfg.SteamProxies, cfg.SteamProxiesFile)
	if err != nil {
		log.Printf("Failed to load proxies, scheduler will connect directly: %v", err)
	}
	pool := services.NewProxyPool(proxies)
	scheduler := services.NewSteamPriceScheduler(cfg.SteamMarketURL, cfg.HTTPTimeout, pool, cfg.SchedulerInterval, cfg.SchedulerProxyInterval)

	priceService := services.NewPriceService(snapshot, steam, rates)
	searchService, err := services.NewSearchService(snapshot, catalog, icons, cfg.SearchCacheSize)
	if err != nil {
		log.Fatalf("Failed to initialize search: %v", err)
	}
	portfolioService := services.NewPortfolioService(db, icons, scheduler)

	if n, err := portfolioService.TrackAll(); err != nil {
		log.Printf("Failed to track portfolio items: %v", err)
	} else {
		log.Printf("Tracking %d portfolio items for background price updates", n)
	}

	// Create a cancellable context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go runWithRecovery(ctx, "snapshot refresher", snapshot.Start)
	go runWithRecovery(ctx, "exchange rate refresher", rates.Start)
	go runWithRecovery(ctx, "steam scheduler", scheduler.Start)

	// The item database is large; search works from the catalog icons until it lands
	go icons.LoadRemote(ctx, cfg.IconSourceURLs...)

	router := api.SetupRouter(cfg, api.Services{
		Snapshot:   snapshot,
		Catalog:    catalog,
		Icons:      icons,
		Rates:      rates,
		Steam:      steam,
		Scheduler:  scheduler,
		Prices:     priceService,
		Search:     searchService,
		Portfolios: portfolioService,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("Starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Cancel the context to stop background workers
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}
