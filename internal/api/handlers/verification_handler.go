package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"swisswheels/app/internal/auth"
	"swisswheels/app/internal/config"
	"swisswheels/app/internal/services"
)

// VerificationHandler handles phone-number verification.
type VerificationHandler struct {
	cfg                 *config.Config
	verificationService services.IVerificationService
	userService         services.IUserService
}

// NewVerificationHandler creates a new VerificationHandler.
func NewVerificationHandler(cfg *config.Config, verificationService services.IVerificationService, userService services.IUserService) *VerificationHandler {
	return &VerificationHandler{cfg: cfg, verificationService: verificationService, userService: userService}
}

// StartVerification handles POST /v1/me/phone/verify
func (h *VerificationHandler) StartVerification(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	var req struct {
		Phone string `json:"phone"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	err := h.verificationService.StartVerification(c.Request.Context(), userID, req.Phone)
	if err != nil {
		if errors.Is(err, services.ErrResendThrottled) {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "Code sent recently, wait before requesting another"})
			return
		}
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sent": true})
}

// ConfirmVerification handles POST /v1/me/phone/confirm. On success the
// session token is re-issued with the verified flag so contact gating takes
// effect immediately.
func (h *VerificationHandler) ConfirmVerification(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	var req struct {
		Code string `json:"code"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	err := h.verificationService.ConfirmVerification(c.Request.Context(), userID, req.Code)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrCodeExpired):
			c.JSON(http.StatusGone, gin.H{"error": "Code expired, request a new one"})
		case errors.Is(err, services.ErrCodeMismatch):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Incorrect code"})
		case errors.Is(err, services.ErrTooManyAttempts):
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "Too many attempts, request a new code"})
		default:
			writeServiceError(c, err)
		}
		return
	}

	user, err := h.userService.FindByID(c.Request.Context(), userID)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	token, err := auth.GenerateJWT(user.ID.Hex(), user.Anonymous, user.PhoneVerified, user.IsAdmin, h.cfg.JwtSecret, h.cfg.JwtTTL)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"verified": true, "token": token})
}
