package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims defines the structure of the JWT claims. Anonymous and PhoneVerified
// together determine the viewer's verification state; a phone-verification
// confirmation re-issues the token with PhoneVerified set.
type Claims struct {
	UserID        string `json:"user_id"`
	Anonymous     bool   `json:"anonymous"`
	PhoneVerified bool   `json:"phone_verified"`
	IsAdmin       bool   `json:"is_admin"`
	jwt.RegisteredClaims
}

// GenerateJWT creates a new session token for a given user.
func GenerateJWT(userID string, anonymous, phoneVerified, isAdmin bool, secretKey string, ttl time.Duration) (string, error) {
	expirationTime := time.Now().Add(ttl)
	claims := &Claims{
		UserID:        userID,
		Anonymous:     anonymous,
		PhoneVerified: phoneVerified,
		IsAdmin:       isAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expirationTime),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Subject:   userID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(secretKey))
	if err != nil {
		return "", fmt.Errorf("failed to sign JWT: %w", err)
	}

	return tokenString, nil
}

// ValidateJWT verifies a JWT string and returns the claims if valid.
func ValidateJWT(tokenString string, secretKey string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secretKey), nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to parse JWT: %w", err)
	}

	if !token.Valid {
		return nil, fmt.Errorf("invalid JWT")
	}

	return claims, nil
}
