package session

import (
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the unverified view of a bearer token's payload
type Claims struct {
	UserID    int64
	TokenType string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Expired reports whether the token's exp claim is at or before now.
// A token without exp never expires locally.
func (c *Claims) Expired(now time.Time) bool {
	if c.ExpiresAt.IsZero() {
		return false
	}
	return !now.Before(c.ExpiresAt)
}

// Inspect decodes a JWT without checking its signature. The result is for
// display only; whether a token is accepted is decided by the backend.
func Inspect(token string) (*Claims, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("failed to decode token: %w", err)
	}

	out := &Claims{}
	switch v := claims["user_id"].(type) {
	case float64:
		out.UserID = int64(v)
	case string:
		out.UserID, _ = strconv.ParseInt(v, 10, 64)
	}
	if v, ok := claims["token_type"].(string); ok {
		out.TokenType = v
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		out.ExpiresAt = exp.Time
	}
	if iat, err := claims.GetIssuedAt(); err == nil && iat != nil {
		out.IssuedAt = iat.Time
	}
	return out, nil
}
