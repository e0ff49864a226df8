package password

import (
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const (
	// DefaultCost is the default bcrypt cost
	DefaultCost = 12

	minLength = 6
)

// commonWeakPasswords blocklists the values that show up at the top of
// every breach-corpus frequency list; rejecting them catches the worst
// case that a bare length check lets through.
var commonWeakPasswords = map[string]bool{
	"password":  true,
	"123456":    true,
	"12345678":  true,
	"123456789": true,
	"qwerty":    true,
	"qwerty123": true,
	"letmein":   true,
	"admin123":  true,
	"111111":    true,
	"abc123":    true,
}

// HashPassword hashes a password using bcrypt
func HashPassword(password string) (string, error) {
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashedBytes), nil
}

// VerifyPassword verifies a password against its hash
func VerifyPassword(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}

// IsValidPassword enforces the weak_password rule: non-empty, at least
// 6 characters, and not one of the handful of values everyone tries first.
func IsValidPassword(password string) bool {
	if len(password) < minLength {
		return false
	}
	if commonWeakPasswords[strings.ToLower(password)] {
		return false
	}
	return true
}

