package utils

import (
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// HashPassword hashes a seed or admin password. Leading and trailing
// whitespace is stripped so pasted secrets hash the same everywhere.
func HashPassword(password string) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(strings.TrimSpace(password)), bcrypt.DefaultCost)
}

func ComparePassword(hashed string, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(strings.TrimSpace(plain)))
}
