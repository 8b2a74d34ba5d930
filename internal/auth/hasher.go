package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// PasswordHasher is the one-way salted hash collaborator of the governor.
// The cost factor is fixed at construction time.
type PasswordHasher interface {
	// Hash derives a salted digest from the plaintext.
	Hash(password string) (string, error)

	// Verify compares a plaintext candidate against a stored digest.
	// (false, nil) is a clean mismatch; a non-nil error means the
	// comparison itself failed (malformed digest) and must not be
	// treated as a wrong password.
	Verify(password, digest string) (bool, error)
}

// bcryptHasher implements PasswordHasher with golang.org/x/crypto/bcrypt.
type bcryptHasher struct {
	cost int
}

// NewBcryptHasher creates a bcrypt-backed hasher with the given cost factor.
// Out-of-range costs fall back to bcrypt.DefaultCost.
func NewBcryptHasher(cost int) PasswordHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &bcryptHasher{cost: cost}
}

// Hash derives a salted bcrypt digest from the plaintext.
func (h *bcryptHasher) Hash(password string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(digest), nil
}

// Verify compares the candidate against the digest in constant effort.
func (h *bcryptHasher) Verify(password, digest string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(digest), []byte(password))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	// Malformed or truncated digest: an infrastructure problem, not a
	// credential mismatch.
	return false, fmt.Errorf("comparing password hash: %w", err)
}
