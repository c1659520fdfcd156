// Package auth verifies account passwords.
package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/JossMR/VersionsControlRepository/internal/repo"
)

// BcryptVerifier stores bcrypt hashes as credentials.
type BcryptVerifier struct {
	cost int
}

// NewBcryptVerifier creates a verifier hashing with cost. A cost outside
// bcrypt's range falls back to bcrypt.DefaultCost.
func NewBcryptVerifier(cost int) *BcryptVerifier {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &BcryptVerifier{cost: cost}
}

// Hash derives the credential to store for a new account.
func (v *BcryptVerifier) Hash(secret string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), v.cost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(hash), nil
}

// Verify reports whether secret matches the stored credential.
func (v *BcryptVerifier) Verify(credential, secret string) bool {
	return bcrypt.CompareHashAndPassword([]byte(credential), []byte(secret)) == nil
}

// Compile-time check that BcryptVerifier implements repo.CredentialVerifier interface
var _ repo.CredentialVerifier = (*BcryptVerifier)(nil)
