package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"swisswheels/app/internal/api/middleware"
	"swisswheels/app/internal/services"
)

// ListingHandler handles REST requests for listings.
type ListingHandler struct {
	listingService services.IListingService
}

// NewListingHandler creates a new ListingHandler.
func NewListingHandler(listingService services.IListingService) *ListingHandler {
	return &ListingHandler{listingService: listingService}
}

// SearchListings handles GET /v1/listings
func (h *ListingHandler) SearchListings(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 || limit > 200 {
		limit = 50
	}
	cursor := c.Query("cursor")
	criteria := criteriaFromQuery(c)

	listings, nextCursor, err := h.listingService.SearchListings(c.Request.Context(), criteria, limit, cursor)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":        listings,
		"next_cursor": nextCursor,
	})
}

// GetListingByID handles GET /v1/listings/:id
func (h *ListingHandler) GetListingByID(c *gin.Context) {
	listingID, ok := parseObjectIDParam(c, "id")
	if !ok {
		return
	}

	if viewerID, authenticated := currentUserID(c); authenticated {
		listing, err := h.listingService.FindListingForViewer(c.Request.Context(), listingID, viewerID, c.GetBool(middleware.ContextKeyIsAdmin))
		if err != nil {
			writeServiceError(c, err)
			return
		}
		c.JSON(http.StatusOK, listing)
		return
	}

	listing, err := h.listingService.FindListingByID(c.Request.Context(), listingID)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, listing)
}

// GetModelsForMake handles GET /v1/makes/:make/models
func (h *ListingHandler) GetModelsForMake(c *gin.Context) {
	vehicleMake := c.Param("make")
	if vehicleMake == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Make is required"})
		return
	}

	modelNames, err := h.listingService.ModelsForMake(c.Request.Context(), vehicleMake)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": modelNames})
}

// CreateListing handles POST /v1/listings
func (h *ListingHandler) CreateListing(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	var input services.ListingInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	listing, err := h.listingService.CreateListing(c.Request.Context(), userID, input)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, listing)
}

// UpdateListing handles PUT /v1/listings/:id
func (h *ListingHandler) UpdateListing(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}
	listingID, ok := parseObjectIDParam(c, "id")
	if !ok {
		return
	}

	var input services.ListingInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	listing, err := h.listingService.UpdateListing(c.Request.Context(), listingID, userID, input)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, listing)
}

// SetPublished handles PATCH /v1/listings/:id/published
func (h *ListingHandler) SetPublished(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}
	listingID, ok := parseObjectIDParam(c, "id")
	if !ok {
		return
	}

	var body struct {
		Published bool `json:"published"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	if err := h.listingService.SetPublished(c.Request.Context(), listingID, userID, body.Published); err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"published": body.Published})
}

// DeleteListing handles DELETE /v1/listings/:id
func (h *ListingHandler) DeleteListing(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}
	listingID, ok := parseObjectIDParam(c, "id")
	if !ok {
		return
	}

	var body struct {
		Reason string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if body.Reason == "" {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Validation failed", "fields": gin.H{"reason": "a deletion reason is required"}})
		return
	}

	if err := h.listingService.DeleteListing(c.Request.Context(), listingID, userID, body.Reason); err != nil {
		writeServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GetMyListings handles GET /v1/me/listings
func (h *ListingHandler) GetMyListings(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	listings, err := h.listingService.FindListingsByUserID(c.Request.Context(), userID)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": listings})
}

// GetPendingListings handles GET /v1/admin/listings/pending
func (h *ListingHandler) GetPendingListings(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 || limit > 200 {
		limit = 50
	}

	listings, err := h.listingService.FindPendingListings(c.Request.Context(), limit)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": listings})
}

// ApproveListing handles POST /v1/admin/listings/:id/approve
func (h *ListingHandler) ApproveListing(c *gin.Context) {
	listingID, ok := parseObjectIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.listingService.ApproveListing(c.Request.Context(), listingID); err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "approved"})
}

// RejectListing handles POST /v1/admin/listings/:id/reject
func (h *ListingHandler) RejectListing(c *gin.Context) {
	listingID, ok := parseObjectIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.listingService.RejectListing(c.Request.Context(), listingID); err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "rejected"})
}
