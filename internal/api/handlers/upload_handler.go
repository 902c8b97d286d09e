package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"

	"swisswheels/app/internal/services"
	"swisswheels/app/internal/storage"
	"swisswheels/app/internal/tasks"
)

// UploadHandler handles listing image uploads. Clients upload directly to S3
// with a presigned URL, then report completion so the image worker can
// normalize the object and attach it to the listing.
type UploadHandler struct {
	listingService services.IListingService
	storage        storage.IStorage
	taskClient     *asynq.Client
}

// NewUploadHandler creates a new UploadHandler.
func NewUploadHandler(listingService services.IListingService, st storage.IStorage, taskClient *asynq.Client) *UploadHandler {
	return &UploadHandler{listingService: listingService, storage: st, taskClient: taskClient}
}

type presignRequest struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
}

// PresignUpload handles POST /v1/listings/:id/images. Only the owner may
// upload to a listing.
func (h *UploadHandler) PresignUpload(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}
	listingID, ok := parseObjectIDParam(c, "id")
	if !ok {
		return
	}

	var req presignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if req.Filename == "" || !strings.HasPrefix(req.ContentType, "image/") {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Validation failed", "fields": gin.H{"content_type": "an image filename and content type are required"}})
		return
	}

	listing, err := h.listingService.FindListingForViewer(c.Request.Context(), listingID, userID, false)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	if listing.UserID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
		return
	}

	url, key, err := h.storage.GeneratePresignedPutURL(c.Request.Context(), userID.Hex(), listingID.Hex(), req.Filename, req.ContentType)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"upload_url": url, "key": key})
}

type uploadCompleteRequest struct {
	Key string `json:"key"`
}

// CompleteUpload handles POST /v1/listings/:id/images/complete. It queues the
// processing task; the image joins the listing once the worker finishes.
func (h *UploadHandler) CompleteUpload(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}
	listingID, ok := parseObjectIDParam(c, "id")
	if !ok {
		return
	}

	var req uploadCompleteRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Key == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	// The presign step scopes keys to uploads/<user>/<listing>/; reject keys
	// pointing anywhere else.
	expectedPrefix := "uploads/" + userID.Hex() + "/" + listingID.Hex() + "/"
	if !strings.HasPrefix(req.Key, expectedPrefix) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
		return
	}

	if err := tasks.EnqueueImageProcess(h.taskClient, req.Key, listingID.Hex()); err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"queued": true})
}
