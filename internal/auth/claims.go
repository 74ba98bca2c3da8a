package auth

import (
	"time"

	"github.com/tagwright/tagwright-server/internal/domain"
)

// AccessClaims represents the claims stored in a PASETO access token.
// v4.local tokens are encrypted, so clients cannot read these.
type AccessClaims struct {
	UserID string       `json:"user_id"`
	Name   string       `json:"name"`
	Level  domain.Level `json:"level"`

	// Standard PASETO claims
	Issuer     string    `json:"iss"`
	Subject    string    `json:"sub"`
	Audience   string    `json:"aud"`
	Expiration time.Time `json:"exp"`
	NotBefore  time.Time `json:"nbf"`
	IssuedAt   time.Time `json:"iat"`
	TokenID    string    `json:"jti"`
}

// IsAdmin reports whether the token was issued to an administrator.
// The store remains authoritative; handlers re-read the user before acting.
func (c *AccessClaims) IsAdmin() bool {
	return c.Level >= domain.LevelAdmin
}
