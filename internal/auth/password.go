package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// HashPassword derives the bcrypt hash stored on the user record.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("bcrypt hashing failed: %w", err)
	}
	return string(hash), nil
}

// CheckPasswordHash reports whether password matches the stored hash.
func CheckPasswordHash(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
