package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

const (
	// MinPasswordLength is the shortest accepted password.
	MinPasswordLength = 8
	// MaxPasswordBytes is the bcrypt input limit; longer input would be truncated silently.
	MaxPasswordBytes = 72
)

var (
	ErrPasswordTooShort = errors.New("password too short")
	ErrPasswordTooLong  = errors.New("password too long")
	ErrPasswordMismatch = errors.New("password mismatch")
)

// ValidatePassword checks a candidate password against the length policy.
func ValidatePassword(password string) error {
	switch {
	case len([]rune(password)) < MinPasswordLength:
		return ErrPasswordTooShort
	case len(password) > MaxPasswordBytes:
		return ErrPasswordTooLong
	}
	return nil
}

// HashPassword hashes a plaintext password. Out-of-range costs fall back to bcrypt.DefaultCost.
func HashPassword(password string, cost int) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), normalizeCost(cost))
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// ComparePassword verifies a password against its hash and reports ErrPasswordMismatch
// for a wrong password.
func ComparePassword(hashed, plain string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrPasswordMismatch
	}
	return err
}

// NeedsRehash reports whether hashed was produced with a cost other than the configured one.
func NeedsRehash(hashed string, cost int) bool {
	current, err := bcrypt.Cost([]byte(hashed))
	if err != nil {
		return false
	}
	return current != normalizeCost(cost)
}

func normalizeCost(cost int) int {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return bcrypt.DefaultCost
	}
	return cost
}
