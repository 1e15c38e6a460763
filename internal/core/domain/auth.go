package domain

import "time"

// TokenClaims are the claims carried in an API access token
type TokenClaims struct {
	Subject   string `json:"subject"`
	IssuedAt  int64  `json:"issued_at"`
	ExpiresAt int64  `json:"expires_at"`
}

// IsExpired returns true if the token has passed its expiry
func (c *TokenClaims) IsExpired() bool {
	return time.Now().Unix() >= c.ExpiresAt
}

// TokenRequest exchanges a configured API key for an access token
type TokenRequest struct {
	APIKey string `json:"api_key"`
}

// TokenResponse carries a freshly issued access token
type TokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}
