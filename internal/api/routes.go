package api

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/skinfolio/backend/internal/api/handlers"
	"github.com/skinfolio/backend/internal/config"
	"github.com/skinfolio/backend/internal/metrics"
	"github.com/skinfolio/backend/internal/services"
)

// Services groups everything the HTTP layer serves from
type Services struct {
	Snapshot   *services.MarketSnapshotService
	Catalog    *services.CatalogService
	Icons      *services.IconIndex
	Rates      *services.ExchangeRateService
	Steam      *services.SteamMarketService
	Scheduler  *services.SteamPriceScheduler
	Prices     *services.PriceService
	Search     *services.SearchService
	Portfolios *services.PortfolioService
}

func SetupRouter(cfg *config.Config, svc Services) *gin.Engine {
	router := gin.Default()
	router.Use(metrics.GinMiddleware())

	serveFrontend := cfg.FrontendPath != "" && dirExists(cfg.FrontendPath)

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORSOrigins
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	corsConfig.AllowCredentials = false
	router.Use(cors.New(corsConfig))

	// Initialize handlers
	priceHandler := handlers.NewPriceHandler(svc.Prices, svc.Rates, svc.Scheduler)
	searchHandler := handlers.NewSearchHandler(svc.Search)
	wikiHandler := handlers.NewWikiHandler(svc.Catalog)
	statusHandler := handlers.NewStatusHandler(svc.Snapshot, svc.Search, svc.Icons, svc.Steam, svc.Scheduler)
	portfolioHandler := handlers.NewPortfolioHandler(svc.Portfolios, svc.Prices)

	// API routes
	api := router.Group("/api")
	{
		api.GET("/price", priceHandler.GetPrice)
		api.GET("/price/tracked", priceHandler.GetTrackedPrice)
		api.GET("/rates", priceHandler.GetRates)
		api.GET("/search", searchHandler.Search)
		api.GET("/status", statusHandler.GetStatus)

		wiki := api.Group("/wiki")
		{
			wiki.GET("/cases", wikiHandler.GetCases)
			wiki.GET("/collection/:id", wikiHandler.GetCollection)
		}

		portfolio := api.Group("/portfolio/:userId")
		{
			portfolio.GET("", portfolioHandler.GetPortfolios)
			portfolio.POST("", portfolioHandler.CreatePortfolio)
			portfolio.PUT("/:portfolioId", portfolioHandler.RenamePortfolio)
			portfolio.DELETE("/:portfolioId", portfolioHandler.DeletePortfolio)
			portfolio.POST("/:portfolioId/add", portfolioHandler.AddItem)
			portfolio.DELETE("/:portfolioId/items/:itemId", portfolioHandler.DeleteItem)
			portfolio.GET("/:portfolioId/value", portfolioHandler.GetValue)
		}
	}

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Serve frontend static files
	if serveFrontend {
		indexPath := filepath.Join(cfg.FrontendPath, "index.html")

		router.Static("/assets", filepath.Join(cfg.FrontendPath, "assets"))
		router.StaticFile("/vite.svg", filepath.Join(cfg.FrontendPath, "vite.svg"))

		router.GET("/", func(c *gin.Context) {
			c.File(indexPath)
		})

		// SPA fallback - serve index.html for all non-API routes
		router.NoRoute(func(c *gin.Context) {
			if strings.HasPrefix(c.Request.URL.Path, "/api") {
				c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
				return
			}
			c.File(indexPath)
		})
	}

	return router
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}
