package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"

	"swisswheels/app/internal/models"
	"swisswheels/app/internal/services"
	"swisswheels/app/internal/tasks"
)

// ContactHandler handles contact affordances and buyer enquiries.
type ContactHandler struct {
	listingService services.IListingService
	userService    services.IUserService
	taskClient     *asynq.Client
}

// NewContactHandler creates a new ContactHandler.
func NewContactHandler(listingService services.IListingService, userService services.IUserService, taskClient *asynq.Client) *ContactHandler {
	return &ContactHandler{listingService: listingService, userService: userService, taskClient: taskClient}
}

// GetContactOptions handles GET /v1/listings/:id/contact. The response is
// tailored to the viewer: unverified viewers only learn which step to
// complete, never the seller's details.
func (h *ContactHandler) GetContactOptions(c *gin.Context) {
	listingID, ok := parseObjectIDParam(c, "id")
	if !ok {
		return
	}

	listing, err := h.listingService.FindListingByID(c.Request.Context(), listingID)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	viewer := viewerState(c)
	if viewer != models.ViewerVerified {
		c.JSON(http.StatusOK, services.DecideContact(viewer, nil))
		return
	}

	seller, err := h.userService.FindByID(c.Request.Context(), listing.UserID)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, services.DecideContact(viewer, seller))
}

type enquiryRequest struct {
	Message string `json:"message"`
}

// SendEnquiry handles POST /v1/listings/:id/enquiry. Requires a verified
// phone; delivery happens asynchronously through the task queue.
func (h *ContactHandler) SendEnquiry(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}
	listingID, ok := parseObjectIDParam(c, "id")
	if !ok {
		return
	}

	var req enquiryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if req.Message == "" {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Validation failed", "fields": gin.H{"message": "a message is required"}})
		return
	}

	listing, err := h.listingService.FindListingByID(c.Request.Context(), listingID)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	seller, err := h.userService.FindByID(c.Request.Context(), listing.UserID)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	if seller.Email == "" {
		c.JSON(http.StatusConflict, gin.H{"error": "Seller cannot be reached by email"})
		return
	}
	buyer, err := h.userService.FindByID(c.Request.Context(), userID)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	payload := tasks.EnquiryEmailPayload{
		To:        seller.Email,
		ListingID: listingID.Hex(),
		FromName:  buyer.DisplayName,
		ReplyTo:   buyer.Email,
		Message:   req.Message,
	}
	if err := tasks.EnqueueEnquiryEmail(h.taskClient, payload); err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"queued": true})
}
