package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"swisswheels/app/internal/services"
)

// ProfileHandler handles REST requests for the viewer's own profile.
type ProfileHandler struct {
	userService services.IUserService
}

// NewProfileHandler creates a new ProfileHandler.
func NewProfileHandler(userService services.IUserService) *ProfileHandler {
	return &ProfileHandler{userService: userService}
}

// GetProfile handles GET /v1/me/profile. A default profile is materialized on
// first access.
func (h *ProfileHandler) GetProfile(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	profile, err := h.userService.GetOrCreateProfile(c.Request.Context(), userID)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

// UpdateProfile handles PUT /v1/me/profile.
func (h *ProfileHandler) UpdateProfile(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	var input services.ProfileInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	profile, err := h.userService.UpdateProfile(c.Request.Context(), userID, input)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}
