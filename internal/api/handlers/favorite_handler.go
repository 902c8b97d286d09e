package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"swisswheels/app/internal/services"
)

// FavoriteHandler handles REST requests for the favorites ledger.
type FavoriteHandler struct {
	favoriteService services.IFavoriteService
}

// NewFavoriteHandler creates a new FavoriteHandler.
func NewFavoriteHandler(favoriteService services.IFavoriteService) *FavoriteHandler {
	return &FavoriteHandler{favoriteService: favoriteService}
}

// AddFavorite handles PUT /v1/me/favorites/:id
func (h *FavoriteHandler) AddFavorite(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}
	listingID, ok := parseObjectIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.favoriteService.Add(c.Request.Context(), userID, listingID); err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"favorited": true})
}

// RemoveFavorite handles DELETE /v1/me/favorites/:id
func (h *FavoriteHandler) RemoveFavorite(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}
	listingID, ok := parseObjectIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.favoriteService.Remove(c.Request.Context(), userID, listingID); err != nil {
		writeServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListFavorites handles GET /v1/me/favorites
func (h *FavoriteHandler) ListFavorites(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	favorites, err := h.favoriteService.ListByUser(c.Request.Context(), userID)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": favorites})
}

// CheckFavorite handles GET /v1/me/favorites/:id
func (h *FavoriteHandler) CheckFavorite(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}
	listingID, ok := parseObjectIDParam(c, "id")
	if !ok {
		return
	}

	exists, err := h.favoriteService.Exists(c.Request.Context(), userID, listingID)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"favorited": exists})
}
