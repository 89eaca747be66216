package player

import (
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const (
	minNameLen = 3
	maxNameLen = 12
	minPassLen = 4
)

// HashPassword derives a bcrypt hash at the default cost.
func HashPassword(password string) (string, error) {
	return hashPasswordCost(password, bcrypt.DefaultCost)
}

func hashPasswordCost(password string, cost int) (string, error) {
	if len(password) < minPassLen {
		return "", fmt.Errorf("password must be at least %d characters", minPassLen)
	}
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches the stored hash.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// NormalizeName canonicalizes a player name for display: first letter upper,
// rest lower. Lookups are case-insensitive regardless.
func NormalizeName(name string) string {
	if name == "" {
		return name
	}
	return strings.ToUpper(name[:1]) + strings.ToLower(name[1:])
}

// ValidateName enforces the naming rules: length in [3, 12], letters only.
func ValidateName(name string) error {
	if len(name) < minNameLen || len(name) > maxNameLen {
		return fmt.Errorf("name must be %d to %d characters", minNameLen, maxNameLen)
	}
	for _, r := range name {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') {
			return fmt.Errorf("name must contain only letters")
		}
	}
	return nil
}
