package middleware

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"swisswheels/app/internal/attest"
	"swisswheels/app/internal/config"
)

const (
	// ContextKeyDeviceTrusted holds the key for attestation status in Gin context.
	ContextKeyDeviceTrusted = "deviceTrusted"
)

// clientID identifies the device presenting an integrity token. IP plus the
// client-supplied device header keeps tokens from travelling between devices.
func clientID(c *gin.Context) string {
	return c.ClientIP() + "|" + c.GetHeader("X-Device")
}

// AttestMiddleware checks the X-Integrity token minted after a successful
// attestation and records the result in the context. It never aborts on its
// own; RequireTrustedDevice and the rate limiter act on the flag.
func AttestMiddleware(verifier attest.IVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		trusted := false
		if token := c.GetHeader("X-Integrity"); token != "" {
			trusted = verifier.ValidateIntegrityToken(token, clientID(c))
			if !trusted {
				log.Printf("Invalid X-Integrity token from %s", c.ClientIP())
			}
		}
		c.Set(ContextKeyDeviceTrusted, trusted)
		c.Next()
	}
}

// RequireTrustedDevice rejects mutating requests from unattested devices when
// attestation is enforced. Assumes AttestMiddleware runs first.
func RequireTrustedDevice(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cfg.AttestRequired && !c.GetBool(ContextKeyDeviceTrusted) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Device attestation required"})
			return
		}
		c.Next()
	}
}
