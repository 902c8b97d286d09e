package attest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"swisswheels/app/internal/config"
)

// IVerifier verifies device-integrity assertions and manages the short-lived
// integrity tokens that gate the mutating API surface.
type IVerifier interface {
	Verify(ctx context.Context, assertion, remoteIP string) (bool, error)
	GenerateIntegrityToken(clientID string, ttl time.Duration) (string, error)
	ValidateIntegrityToken(tokenString, clientID string) bool
}

// providerResponse is the expected structure from the attestation provider's
// verify endpoint.
type providerResponse struct {
	Success    bool     `json:"success"`
	ErrorCodes []string `json:"error-codes"`
}

// verifier implements IVerifier.
type verifier struct {
	cfg        *config.Config
	httpClient *http.Client
}

// NewVerifier creates a new attestation verifier.
func NewVerifier(cfg *config.Config) IVerifier {
	return &verifier{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 5 * time.Second},
	}
}

// Verify calls the attestation provider's verify endpoint.
func (v *verifier) Verify(ctx context.Context, assertion, remoteIP string) (bool, error) {
	if v.cfg.AttestSecretKey == "" {
		log.Println("WARN: attestation secret key not configured, skipping verification.")
		return true, nil
	}

	formData := map[string]string{
		"secret":   v.cfg.AttestSecretKey,
		"response": assertion,
	}
	if remoteIP != "" {
		formData["remoteip"] = remoteIP
	}

	jsonData, _ := json.Marshal(formData)
	req, err := http.NewRequestWithContext(ctx, "POST", v.cfg.AttestVerifyURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return false, fmt.Errorf("failed to create attestation request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("failed to contact attestation provider: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return false, fmt.Errorf("failed to read attestation response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("attestation verify returned status %d", resp.StatusCode)
	}

	var pr providerResponse
	if err := json.Unmarshal(body, &pr); err != nil {
		return false, fmt.Errorf("failed to parse attestation response: %w", err)
	}

	if !pr.Success {
		log.Printf("Attestation unsuccessful. Error codes: %v", pr.ErrorCodes)
	}

	return pr.Success, nil
}

// integrityClaims is the payload of the X-Integrity token issued after a
// successful attestation.
type integrityClaims struct {
	ClientID string `json:"cid"`
	jwt.RegisteredClaims
}

// GenerateIntegrityToken creates a signed token confirming a passed attestation.
func (v *verifier) GenerateIntegrityToken(clientID string, ttl time.Duration) (string, error) {
	claims := &integrityClaims{
		ClientID: clientID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "swisswheels-attest",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(v.cfg.JwtSecret))
	if err != nil {
		return "", fmt.Errorf("failed to sign integrity token: %w", err)
	}
	return tokenString, nil
}

// ValidateIntegrityToken validates the X-Integrity token against the caller's
// client identity.
func (v *verifier) ValidateIntegrityToken(tokenString, clientID string) bool {
	claims := &integrityClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(v.cfg.JwtSecret), nil
	})

	if err != nil || !token.Valid {
		return false
	}

	return claims.ClientID == clientID
}
