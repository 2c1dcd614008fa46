// Package social reconciles externally asserted OAuth identities into
// the local identity registry and terminates with the same token pair
// contract as local login.
package social

import (
	"context"
	"time"
)

// Provider is an OAuth2 identity source.
type Provider interface {
	// Name returns the provider identifier (e.g. "google").
	Name() string

	// AuthCodeURL returns the URL to redirect users for authorization.
	// The state parameter must round-trip for CSRF protection.
	AuthCodeURL(state string) string

	// Exchange trades an authorization code for an access token.
	Exchange(ctx context.Context, code string) (*Token, error)

	// UserInfo fetches the user's profile using the access token.
	UserInfo(ctx context.Context, token *Token) (*Profile, error)
}

// Token is an OAuth2 token response.
type Token struct {
	AccessToken  string
	TokenType    string
	RefreshToken string
	ExpiresAt    time.Time
	Scopes       []string
}

// Profile is the identity assertion extracted from a provider.
type Profile struct {
	ProviderUserID string
	Email          string
	Name           string
	AvatarURL      string
	EmailVerified  bool
}
