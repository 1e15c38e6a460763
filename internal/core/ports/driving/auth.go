package driving

import (
	"context"

	"github.com/archivist-labs/ragcore/internal/core/domain"
)

// AuthService issues and validates API access tokens
type AuthService interface {
	// IssueToken exchanges a configured API key for a signed access token
	IssueToken(ctx context.Context, req domain.TokenRequest) (*domain.TokenResponse, error)

	// ValidateToken parses and validates an access token
	ValidateToken(ctx context.Context, token string) (*domain.TokenClaims, error)
}
