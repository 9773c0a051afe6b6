package session

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims are the fields the client reads from an access token.
type Claims struct {
	Subject   string
	Role      string
	ExpiresAt *time.Time
}

// DecodeClaims reads a JWT without verifying its signature. The backend is
// the only party that verifies tokens; the client only uses the claims to
// predict expiry and pick a role before /auth/me answers.
func DecodeClaims(token string) (Claims, error) {
	mc := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, mc); err != nil {
		return Claims{}, fmt.Errorf("decoding token: %w", err)
	}

	var c Claims
	c.Subject, _ = mc.GetSubject()
	if role, ok := mc["role"].(string); ok {
		c.Role = role
	}
	if exp, err := mc.GetExpirationTime(); err == nil && exp != nil {
		t := exp.Time
		c.ExpiresAt = &t
	}
	return c, nil
}
