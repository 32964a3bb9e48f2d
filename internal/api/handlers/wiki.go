package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/skinfolio/backend/internal/services"
)

type WikiHandler struct {
	catalog *services.CatalogService
}

func NewWikiHandler(catalog *services.CatalogService) *WikiHandler {
	return &WikiHandler{catalog: catalog}
}

// GetCases lists all cases and collections without their items
func (h *WikiHandler) GetCases(c *gin.Context) {
	c.JSON(http.StatusOK, h.catalog.Collections())
}

// GetCollection returns one case or collection with its items
func (h *WikiHandler) GetCollection(c *gin.Context) {
	collection, ok := h.catalog.Collection(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "collection not found"})
		return
	}
	c.JSON(http.StatusOK, collection)
}
