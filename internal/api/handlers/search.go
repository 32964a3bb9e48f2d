package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/skinfolio/backend/internal/services"
)

type SearchHandler struct {
	search *services.SearchService
}

func NewSearchHandler(search *services.SearchService) *SearchHandler {
	return &SearchHandler{search: search}
}

// Search returns autocomplete results for the query parameter
func (h *SearchHandler) Search(c *gin.Context) {
	query := strings.TrimSpace(c.Query("query"))
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "missing query parameter"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"results": h.search.Search(query),
	})
}
