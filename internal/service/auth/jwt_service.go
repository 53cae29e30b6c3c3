package auth

import (
	"context"
	"time"
)

// JWTService mints and validates the bearer tokens of the admin surface.
type JWTService interface {
	// GenerateToken creates a signed access token for subject.
	// Returns the token and its expiry.
	GenerateToken(ctx context.Context, subject string) (string, time.Time, error)

	// ValidateToken validates the token string and extracts its claims.
	// Returns ErrExpiredToken, ErrTokenNotYetValid or ErrInvalidToken on failure.
	ValidateToken(ctx context.Context, tokenString string) (*Claims, error)
}

// Claims are the validated claims of an access token.
type Claims struct {
	Subject   string    `json:"sub"`
	IssuedAt  time.Time `json:"iat"`
	ExpiresAt time.Time `json:"exp"`
	ID        string    `json:"jti"`
}
