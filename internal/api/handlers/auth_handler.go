package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"swisswheels/app/internal/auth"
	"swisswheels/app/internal/config"
	"swisswheels/app/internal/models"
	"swisswheels/app/internal/services"
)

// AuthHandler handles sessions: anonymous bootstrap, registration and login.
type AuthHandler struct {
	cfg         *config.Config
	userService services.IUserService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(cfg *config.Config, userService services.IUserService) *AuthHandler {
	return &AuthHandler{cfg: cfg, userService: userService}
}

func (h *AuthHandler) issueToken(c *gin.Context, user *models.UserProfile) {
	token, err := auth.GenerateJWT(user.ID.Hex(), user.Anonymous, user.PhoneVerified, user.IsAdmin, h.cfg.JwtSecret, h.cfg.JwtTTL)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "user": user})
}

// CreateAnonymousSession handles POST /v1/auth/anonymous. It backs the
// browse-first experience: a session exists before any registration.
func (h *AuthHandler) CreateAnonymousSession(c *gin.Context) {
	user, err := h.userService.CreateAnonymousUser(c.Request.Context())
	if err != nil {
		writeServiceError(c, err)
		return
	}
	h.issueToken(c, user)
}

type registerRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

// Register handles POST /v1/auth/register. When the caller already holds an
// anonymous session, the account is promoted in place so listings and
// favorites created anonymously carry over.
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	var (
		user *models.UserProfile
		err  error
	)
	if userID, authenticated := currentUserID(c); authenticated {
		user, err = h.userService.PromoteAnonymous(c.Request.Context(), userID, req.Email, req.Password)
	} else {
		user, err = h.userService.Register(c.Request.Context(), req.Email, req.Password, req.DisplayName)
	}
	if err != nil {
		if errors.Is(err, services.ErrEmailTaken) {
			c.JSON(http.StatusConflict, gin.H{"error": "Email already registered"})
			return
		}
		writeServiceError(c, err)
		return
	}
	h.issueToken(c, user)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login handles POST /v1/auth/login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	user, err := h.userService.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
			return
		}
		writeServiceError(c, err)
		return
	}
	h.issueToken(c, user)
}
