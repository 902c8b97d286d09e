package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"swisswheels/app/internal/services"
)

// DiscoveryHandler handles REST requests for the swipe surface.
type DiscoveryHandler struct {
	discoveryService services.IDiscoveryService
}

// NewDiscoveryHandler creates a new DiscoveryHandler.
func NewDiscoveryHandler(discoveryService services.IDiscoveryService) *DiscoveryHandler {
	return &DiscoveryHandler{discoveryService: discoveryService}
}

// NextCandidate handles GET /v1/discovery/next. An exhausted deck is a normal
// response, not an error.
func (h *DiscoveryHandler) NextCandidate(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	listing, err := h.discoveryService.Next(c.Request.Context(), userID, criteriaFromQuery(c))
	if err != nil {
		if errors.Is(err, services.ErrDeckExhausted) {
			c.JSON(http.StatusOK, gin.H{"exhausted": true})
			return
		}
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"exhausted": false, "listing": listing})
}

// Pass handles POST /v1/discovery/:id/pass
func (h *DiscoveryHandler) Pass(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}
	listingID, ok := parseObjectIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.discoveryService.Pass(c.Request.Context(), userID, listingID); err != nil {
		writeServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Like handles POST /v1/discovery/:id/like
func (h *DiscoveryHandler) Like(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}
	listingID, ok := parseObjectIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.discoveryService.Like(c.Request.Context(), userID, listingID); err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"favorited": true})
}

// Reset handles POST /v1/discovery/reset
func (h *DiscoveryHandler) Reset(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	if err := h.discoveryService.Reset(c.Request.Context(), userID); err != nil {
		writeServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
