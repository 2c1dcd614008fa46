package auth

import (
	"context"
	"fmt"
	"io"
	"time"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Config holds auth options
type Config interface {
	GetSigningKey() string
	GetIssuer() string
	GetAudience() []string
	GetAccessTokenTTL() time.Duration
	GetRefreshTokenTTL() time.Duration
	GetContextKey() string
	GetAuthScheme() string
}

// TokenService mints and validates token pairs
type TokenService interface {
	Issue(identity TokenIdentity) (*TokenPair, error)
	Validate(token string) (*JWTClaims, error)
}

// TokenValidator validates raw tokens at a request boundary
type TokenValidator interface {
	Validate(token string) (*JWTClaims, error)
}

// TokenIdentity is the claim source captured at issuance time. Role
// titles are a snapshot: a grant made after issuance only shows up in
// the next pair.
type TokenIdentity struct {
	UserID string
	Email  string
	Roles  []string
}

// TokenPair carries the two bearer tokens returned by login and refresh.
// Only the refresh token is persisted, one per user.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// AvatarStore is the external blob collaborator: store a blob, get back
// a URL to keep on the user record.
type AvatarStore interface {
	Save(ctx context.Context, filename string, blob io.Reader) (string, error)
}

// PasswordAuthenticator authenticates passwords
type PasswordAuthenticator interface {
	HashPassword(password string) (string, error)
	ComparePasswordAndHash(password, hash string) error
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] AUTH "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] AUTH "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] AUTH "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] AUTH "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
