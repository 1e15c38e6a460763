package services

import (
	"context"
	"time"

	"github.com/archivist-labs/ragcore/internal/core/domain"
	"github.com/archivist-labs/ragcore/internal/core/ports/driven"
	"github.com/archivist-labs/ragcore/internal/core/ports/driving"
)

// Ensure authService implements AuthService
var _ driving.AuthService = (*authService)(nil)

// authService exchanges a configured API key for short-lived access tokens
type authService struct {
	authAdapter driven.AuthAdapter
	apiKeyHash  string // bcrypt hash of the configured API key
	tokenTTL    time.Duration
}

// NewAuthService creates a new AuthService. apiKeyHash is the bcrypt
// hash of the API key clients exchange for access tokens.
func NewAuthService(authAdapter driven.AuthAdapter, apiKeyHash string) driving.AuthService {
	return &authService{
		authAdapter: authAdapter,
		apiKeyHash:  apiKeyHash,
		tokenTTL:    24 * time.Hour,
	}
}

// IssueToken exchanges the configured API key for a signed access token
func (s *authService) IssueToken(ctx context.Context, req domain.TokenRequest) (*domain.TokenResponse, error) {
	if req.APIKey == "" {
		return nil, domain.ErrInvalidInput
	}
	if s.apiKeyHash == "" || !s.authAdapter.VerifyAPIKey(req.APIKey, s.apiKeyHash) {
		return nil, domain.ErrUnauthorized
	}

	now := time.Now()
	expiresAt := now.Add(s.tokenTTL)
	claims := &domain.TokenClaims{
		Subject:   "api-client",
		IssuedAt:  now.Unix(),
		ExpiresAt: expiresAt.Unix(),
	}

	token, err := s.authAdapter.GenerateToken(claims)
	if err != nil {
		return nil, err
	}

	return &domain.TokenResponse{
		Token:     token,
		ExpiresAt: expiresAt,
	}, nil
}

// ValidateToken parses and validates an access token
func (s *authService) ValidateToken(ctx context.Context, token string) (*domain.TokenClaims, error) {
	if token == "" {
		return nil, domain.ErrUnauthorized
	}

	claims, err := s.authAdapter.ParseToken(token)
	if err != nil {
		return nil, domain.ErrUnauthorized
	}
	if claims.IsExpired() {
		return nil, domain.ErrTokenExpired
	}
	return claims, nil
}
