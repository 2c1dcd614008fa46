package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// JWTClaims is the payload embedded in both tokens of a pair. The role
// titles are immutable for the token's lifetime; a grant made after
// issuance has no effect until the next refresh.
type JWTClaims struct {
	jwt.RegisteredClaims
	UID   string   `json:"uid,omitempty"`
	Email string   `json:"email,omitempty"`
	Roles []string `json:"roles,omitempty"`
}

// UserID returns the user ID
func (c *JWTClaims) UserID() string {
	if c.UID != "" {
		return c.UID
	}
	return c.Subject
}

// UserUUID parses the user ID claim
func (c *JWTClaims) UserUUID() (uuid.UUID, error) {
	return uuid.Parse(c.UserID())
}

// HasRole checks whether the snapshot carries the given role title
func (c *JWTClaims) HasRole(role string) bool {
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// HasAnyRole checks the snapshot against a required role set. An empty
// required set admits every authenticated caller.
func (c *JWTClaims) HasAnyRole(required ...string) bool {
	if len(required) == 0 {
		return true
	}
	for _, want := range required {
		if c.HasRole(want) {
			return true
		}
	}
	return false
}

// Expires returns the expiration time claim
func (c *JWTClaims) Expires() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}
