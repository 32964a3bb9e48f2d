package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/skinfolio/backend/internal/services"
)

type StatusHandler struct {
	started   time.Time
	snapshot  *services.MarketSnapshotService
	search    *services.SearchService
	icons     *services.IconIndex
	steam     *services.SteamMarketService
	scheduler *services.SteamPriceScheduler
}

func NewStatusHandler(snapshot *services.MarketSnapshotService, search *services.SearchService, icons *services.IconIndex, steam *services.SteamMarketService, scheduler *services.SteamPriceScheduler) *StatusHandler {
	return &StatusHandler{
		started:   time.Now(),
		snapshot:  snapshot,
		search:    search,
		icons:     icons,
		steam:     steam,
		scheduler: scheduler,
	}
}

// GetStatus reports cache sizes and background worker state
func (h *StatusHandler) GetStatus(c *gin.Context) {
	skinport := gin.H{
		"loaded": h.snapshot.IsLoaded(),
		"count":  h.snapshot.Count(),
	}
	if last := h.snapshot.LastRefresh(); !last.IsZero() {
		skinport["last_refresh"] = last
	}

	c.JSON(http.StatusOK, gin.H{
		"uptime":            time.Since(h.started).Seconds(),
		"skinport":          skinport,
		"search_cache_size": h.search.CacheSize(),
		"icons":             h.icons.Size(),
		"steam_cache_size":  h.steam.CacheSize(),
		"scheduler":         h.scheduler.Status(),
	})
}
