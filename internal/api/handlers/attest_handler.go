package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"swisswheels/app/internal/attest"
	"swisswheels/app/internal/config"
)

// AttestHandler exchanges a device-integrity assertion for a short-lived
// X-Integrity token.
type AttestHandler struct {
	cfg      *config.Config
	verifier attest.IVerifier
}

// NewAttestHandler creates a new AttestHandler.
func NewAttestHandler(cfg *config.Config, verifier attest.IVerifier) *AttestHandler {
	return &AttestHandler{cfg: cfg, verifier: verifier}
}

// VerifyDevice handles POST /v1/attest/verify
func (h *AttestHandler) VerifyDevice(c *gin.Context) {
	var req struct {
		Assertion string `json:"assertion"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Assertion == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Assertion required"})
		return
	}

	ok, err := h.verifier.Verify(c.Request.Context(), req.Assertion, c.ClientIP())
	if err != nil {
		writeServiceError(c, err)
		return
	}
	if !ok {
		c.JSON(http.StatusForbidden, gin.H{"error": "Attestation failed"})
		return
	}

	token, err := h.verifier.GenerateIntegrityToken(c.ClientIP()+"|"+c.GetHeader("X-Device"), h.cfg.IntegrityTokenTTL)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.Header("X-Integrity", token)
	c.JSON(http.StatusOK, gin.H{"token": token})
}
