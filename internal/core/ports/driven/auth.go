package driven

import (
	"github.com/archivist-labs/ragcore/internal/core/domain"
)

// AuthAdapter handles token signing and API-key verification
type AuthAdapter interface {
	// VerifyAPIKey checks a plaintext API key against a bcrypt hash
	VerifyAPIKey(apiKey, hash string) bool

	// HashAPIKey generates a bcrypt hash for an API key
	HashAPIKey(apiKey string) (string, error)

	// GenerateToken creates a signed access token from claims
	GenerateToken(claims *domain.TokenClaims) (string, error)

	// ParseToken validates a token and extracts its claims
	ParseToken(token string) (*domain.TokenClaims, error)
}
